package discovery

import (
	"sort"

	"github.com/TomShtern/Date-Program-sub004/internal/common/clock"
)

// CandidateFilter runs the discovery pipeline: exclusion, mutual preference,
// mutual age, distance and dealbreaker stages, then sorts survivors by
// distance from the seeker.
type CandidateFilter struct {
	clock     clock.Clock
	evaluator *DealbreakerEvaluator
}

func NewCandidateFilter(clk clock.Clock) *CandidateFilter {
	return &CandidateFilter{
		clock:     clk,
		evaluator: NewDealbreakerEvaluator(clk),
	}
}

// FilteredCandidate pairs a surviving profile with its distance from the
// seeker so consumers don't recompute it.
type FilteredCandidate struct {
	Profile    *UserProfile
	DistanceKm float64
}

// FindCandidates filters pool down to the profiles the seeker may be shown.
// excludedIDs holds users already liked or passed; blockedIDs holds blocks in
// either direction. An empty interested-in set on the seeker yields no
// candidates: the mutual-preference stage fails closed. Output is sorted
// ascending by distance, stable on input order for ties. Never errors; empty
// input gives an empty result.
func (f *CandidateFilter) FindCandidates(seeker *UserProfile, pool []*UserProfile, excludedIDs, blockedIDs map[int64]bool) []FilteredCandidate {
	now := f.clock.Now()
	seekerAge := seeker.Age(now)

	var out []FilteredCandidate
	for _, candidate := range pool {
		if candidate.ID == seeker.ID {
			continue
		}
		if excludedIDs[candidate.ID] || blockedIDs[candidate.ID] {
			continue
		}
		if candidate.State != StateActive {
			continue
		}

		// Mutual preference, fail-closed on an empty interested-in set.
		if len(seeker.InterestedIn) == 0 {
			continue
		}
		if !seeker.InterestedInGender(candidate.Gender) || !candidate.InterestedInGender(seeker.Gender) {
			continue
		}

		candidateAge := candidate.Age(now)
		if candidateAge < seeker.MinAge || candidateAge > seeker.MaxAge {
			continue
		}
		if seekerAge < candidate.MinAge || seekerAge > candidate.MaxAge {
			continue
		}

		if !seeker.HasLocation() || !candidate.HasLocation() {
			continue
		}
		distance := DistanceKm(*seeker.Latitude, *seeker.Longitude, *candidate.Latitude, *candidate.Longitude)
		if distance > seeker.MaxDistanceKm {
			continue
		}

		// Only the seeker's hard filters apply during discovery; the
		// candidate's dealbreakers are checked when they swipe.
		if !f.evaluator.Passes(seeker, candidate) {
			continue
		}

		out = append(out, FilteredCandidate{Profile: candidate, DistanceKm: distance})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceKm < out[j].DistanceKm
	})

	return out
}
