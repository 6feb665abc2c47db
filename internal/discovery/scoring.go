package discovery

import (
	"fmt"
	"math"

	"github.com/TomShtern/Date-Program-sub004/internal/common/clock"
)

// ScoreUnknown is returned when a composite score cannot be computed because
// pace data is incomplete. It is distinct from a genuinely low score of 0.
const ScoreUnknown = -1

const weightEpsilon = 0.001

// Per-dimension pace scoring: each of the four dimensions carries 25 points.
// A wildcard on either side earns fixed partial credit; otherwise the score
// decays with ordinal distance down to a floor.
const (
	paceDimensionShare = 25
	paceWildcardCredit = 20
	pacePenaltyPerStep = 5
	paceDimensionFloor = 5
)

// ScoringWeights are the relative shares of each sub-score. They must sum
// to 1.0; NewScoringWeights rejects anything else.
type ScoringWeights struct {
	Distance  float64 `json:"distance"`
	Age       float64 `json:"age"`
	Interests float64 `json:"interests"`
	Lifestyle float64 `json:"lifestyle"`
	Pace      float64 `json:"pace"`
	Response  float64 `json:"response"`
}

// DefaultScoringWeights is the production weighting.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		Distance:  0.20,
		Age:       0.15,
		Interests: 0.20,
		Lifestyle: 0.15,
		Pace:      0.20,
		Response:  0.10,
	}
}

// NewScoringWeights validates that the weights sum to 1.0 (within epsilon)
// and are all non-negative.
func NewScoringWeights(w ScoringWeights) (ScoringWeights, error) {
	for name, v := range map[string]float64{
		"distance": w.Distance, "age": w.Age, "interests": w.Interests,
		"lifestyle": w.Lifestyle, "pace": w.Pace, "response": w.Response,
	} {
		if v < 0 {
			return ScoringWeights{}, fmt.Errorf("negative %s weight: %f", name, v)
		}
	}
	sum := w.Distance + w.Age + w.Interests + w.Lifestyle + w.Pace + w.Response
	if math.Abs(sum-1.0) > weightEpsilon {
		return ScoringWeights{}, fmt.Errorf("scoring weights sum to %f, want 1.0", sum)
	}
	return w, nil
}

// ScoreBreakdown exposes the 0-100 sub-scores behind a composite score.
type ScoreBreakdown struct {
	Distance  float64 `json:"distance"`
	Age       float64 `json:"age"`
	Interests float64 `json:"interests"`
	Lifestyle float64 `json:"lifestyle"`
	Pace      float64 `json:"pace"`
	Response  float64 `json:"response"`
}

// Scorer computes 0-100 compatibility scores from weighted sub-scores.
type Scorer struct {
	weights      ScoringWeights
	maxAgeGap    int
	lowThreshold int
	clock        clock.Clock
}

// NewScorer builds a scorer. maxAgeGap is the gap (in years) at which the
// age sub-score bottoms out; lowThreshold classifies "low compatibility".
func NewScorer(weights ScoringWeights, maxAgeGap, lowThreshold int, clk clock.Clock) *Scorer {
	return &Scorer{
		weights:      weights,
		maxAgeGap:    maxAgeGap,
		lowThreshold: lowThreshold,
		clock:        clk,
	}
}

// Score is the weighted composite compatibility of a and b, rounded to the
// nearest integer in [0,100]. It returns ScoreUnknown when either side's
// pace preferences are incomplete: a missing answer is "cannot compute",
// never a partial score.
func (s *Scorer) Score(a, b *UserProfile) int {
	score, _ := s.ScoreWithBreakdown(a, b)
	return score
}

// ScoreWithBreakdown is Score plus the individual sub-scores. The breakdown
// is nil when the score is ScoreUnknown.
func (s *Scorer) ScoreWithBreakdown(a, b *UserProfile) (int, *ScoreBreakdown) {
	pace := PaceCompatibility(a, b)
	if pace == ScoreUnknown {
		return ScoreUnknown, nil
	}

	breakdown := &ScoreBreakdown{
		Distance:  s.distanceScore(a, b),
		Age:       s.ageScore(a, b),
		Interests: interestScore(a.Interests, b.Interests),
		Lifestyle: lifestyleScore(a.Lifestyle, b.Lifestyle),
		Pace:      float64(pace),
		Response:  responseScore(a.ResponseRate, b.ResponseRate),
	}

	total := breakdown.Distance*s.weights.Distance +
		breakdown.Age*s.weights.Age +
		breakdown.Interests*s.weights.Interests +
		breakdown.Lifestyle*s.weights.Lifestyle +
		breakdown.Pace*s.weights.Pace +
		breakdown.Response*s.weights.Response

	return int(math.Round(total)), breakdown
}

// IsLowCompatibility reports whether a computed score falls below the
// configured threshold. ScoreUnknown is not low; it is no data.
func (s *Scorer) IsLowCompatibility(score int) bool {
	return score >= 0 && score < s.lowThreshold
}

// distanceScore falls linearly from 100 at co-location to 0 at the seeker's
// max search distance. Unset locations contribute nothing.
func (s *Scorer) distanceScore(a, b *UserProfile) float64 {
	if !a.HasLocation() || !b.HasLocation() || a.MaxDistanceKm <= 0 {
		return 0
	}
	d := DistanceKm(*a.Latitude, *a.Longitude, *b.Latitude, *b.Longitude)
	if d >= a.MaxDistanceKm {
		return 0
	}
	return 100 * (1 - d/a.MaxDistanceKm)
}

// ageScore falls linearly from 100 at equal ages to 0 at the configured
// maximum gap.
func (s *Scorer) ageScore(a, b *UserProfile) float64 {
	if s.maxAgeGap <= 0 {
		return 0
	}
	now := s.clock.Now()
	gap := math.Abs(float64(a.Age(now) - b.Age(now)))
	if gap >= float64(s.maxAgeGap) {
		return 0
	}
	return 100 * (1 - gap/float64(s.maxAgeGap))
}

// interestScore is the Jaccard overlap of the two interest sets scaled to
// 0-100. Either set empty scores 0.
func interestScore(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, tag := range a {
		set[tag] = true
	}
	shared := 0
	for _, tag := range b {
		if set[tag] {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	if union == 0 {
		return 0
	}
	return 100 * float64(shared) / float64(union)
}

// lifestyleScore is the fraction of lifestyle attributes both users set that
// match exactly, scaled to 0-100. No comparable attributes scores 0.
func lifestyleScore(a, b Lifestyle) float64 {
	comparable, matched := 0, 0
	compare := func(x, y *string) {
		if x == nil || y == nil {
			return
		}
		comparable++
		if *x == *y {
			matched++
		}
	}
	compare(a.Smoking, b.Smoking)
	compare(a.Drinking, b.Drinking)
	compare(a.Kids, b.Kids)
	compare(a.LookingFor, b.LookingFor)

	if comparable == 0 {
		return 0
	}
	return 100 * float64(matched) / float64(comparable)
}

// responseScore averages whichever responsiveness signals are present. The
// signal itself is opaque: the messaging collaborator owns its meaning.
func responseScore(a, b *float64) float64 {
	switch {
	case a != nil && b != nil:
		return (*a + *b) / 2
	case a != nil:
		return *a
	case b != nil:
		return *b
	default:
		return 0
	}
}

// PaceCompatibility scores the four pace dimensions against each other:
// 100 for identical preferences, 20 for maximally opposite ones. It returns
// ScoreUnknown when either profile has any pace field unset.
func PaceCompatibility(a, b *UserProfile) int {
	if a == nil || b == nil || !a.Pace.Complete() || !b.Pace.Complete() {
		return ScoreUnknown
	}

	total := 0
	total += paceDimensionScore(*a.Pace.MessagingFrequency, *b.Pace.MessagingFrequency, messagingFrequencyScale)
	total += paceDimensionScore(*a.Pace.FirstDateTiming, *b.Pace.FirstDateTiming, firstDateScale)
	total += paceDimensionScore(*a.Pace.CommunicationStyle, *b.Pace.CommunicationStyle, communicationStyleScale)
	total += paceDimensionScore(*a.Pace.ConversationDepth, *b.Pace.ConversationDepth, conversationDepthScale)
	return total
}

func paceDimensionScore(a, b string, scale map[string]int) int {
	if a == PaceNoPreference || b == PaceNoPreference {
		return paceWildcardCredit
	}
	ordA, okA := scale[a]
	ordB, okB := scale[b]
	if !okA || !okB {
		// Unrecognized values behave like a declared wildcard rather than
		// poisoning the whole score.
		return paceWildcardCredit
	}
	dist := ordA - ordB
	if dist < 0 {
		dist = -dist
	}
	score := paceDimensionShare - pacePenaltyPerStep*dist
	if score < paceDimensionFloor {
		score = paceDimensionFloor
	}
	return score
}
