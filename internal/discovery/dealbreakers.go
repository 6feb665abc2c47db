package discovery

import (
	"fmt"

	"github.com/TomShtern/Date-Program-sub004/internal/common/clock"
)

// Default sanity bounds for height dealbreakers, overridable via config.
const (
	DefaultMinHeightCm = 50
	DefaultMaxHeightCm = 300
)

// DealbreakerSet is a seeker's immutable set of hard constraints. An empty
// set accepts everyone. The acceptable-value slices are defensively copied
// at construction and never mutated afterwards.
type DealbreakerSet struct {
	smokingOK    []string
	drinkingOK   []string
	kidsOK       []string
	lookingForOK []string
	minHeightCm  *int
	maxHeightCm  *int
	maxAgeDiff   *int
}

// DealbreakerParams carries the optional constraints for NewDealbreakerSet.
// A nil field means the category is unconstrained.
type DealbreakerParams struct {
	SmokingOK    []string
	DrinkingOK   []string
	KidsOK       []string
	LookingForOK []string
	MinHeightCm  *int
	MaxHeightCm  *int
	MaxAgeDiff   *int
}

// NewDealbreakerSet validates and builds an immutable dealbreaker set.
// Height bounds must lie within [minHeight, maxHeight] and be ordered;
// the age difference must be non-negative.
func NewDealbreakerSet(p DealbreakerParams, minHeight, maxHeight int) (*DealbreakerSet, error) {
	if p.MinHeightCm != nil && (*p.MinHeightCm < minHeight || *p.MinHeightCm > maxHeight) {
		return nil, fmt.Errorf("min height %d outside sane range [%d,%d]", *p.MinHeightCm, minHeight, maxHeight)
	}
	if p.MaxHeightCm != nil && (*p.MaxHeightCm < minHeight || *p.MaxHeightCm > maxHeight) {
		return nil, fmt.Errorf("max height %d outside sane range [%d,%d]", *p.MaxHeightCm, minHeight, maxHeight)
	}
	if p.MinHeightCm != nil && p.MaxHeightCm != nil && *p.MinHeightCm > *p.MaxHeightCm {
		return nil, fmt.Errorf("inverted height bounds: %d > %d", *p.MinHeightCm, *p.MaxHeightCm)
	}
	if p.MaxAgeDiff != nil && *p.MaxAgeDiff < 0 {
		return nil, fmt.Errorf("negative max age difference: %d", *p.MaxAgeDiff)
	}

	return &DealbreakerSet{
		smokingOK:    copyStrings(p.SmokingOK),
		drinkingOK:   copyStrings(p.DrinkingOK),
		kidsOK:       copyStrings(p.KidsOK),
		lookingForOK: copyStrings(p.LookingForOK),
		minHeightCm:  copyInt(p.MinHeightCm),
		maxHeightCm:  copyInt(p.MaxHeightCm),
		maxAgeDiff:   copyInt(p.MaxAgeDiff),
	}, nil
}

// Empty reports whether no constraint is configured.
func (d *DealbreakerSet) Empty() bool {
	if d == nil {
		return true
	}
	return len(d.smokingOK) == 0 && len(d.drinkingOK) == 0 &&
		len(d.kidsOK) == 0 && len(d.lookingForOK) == 0 &&
		d.minHeightCm == nil && d.maxHeightCm == nil && d.maxAgeDiff == nil
}

// DealbreakerEvaluator applies a seeker's dealbreakers to candidates. The
// evaluation is one-directional: only the seeker's constraints matter here.
type DealbreakerEvaluator struct {
	clock clock.Clock
}

// NewDealbreakerEvaluator builds an evaluator over the given clock (ages are
// computed against the clock's current date).
func NewDealbreakerEvaluator(clk clock.Clock) *DealbreakerEvaluator {
	return &DealbreakerEvaluator{clock: clk}
}

// Passes reports whether the candidate survives every configured constraint
// of the seeker. Missing candidate data for an active constraint fails:
// unknown is never treated as a pass.
func (e *DealbreakerEvaluator) Passes(seeker, candidate *UserProfile) bool {
	return len(e.Failures(seeker, candidate)) == 0
}

// Failures returns one human-readable reason per failing or
// not-specified-required constraint. Empty slice means the candidate passes.
func (e *DealbreakerEvaluator) Failures(seeker, candidate *UserProfile) []string {
	d := seeker.Dealbreakers
	if d.Empty() {
		return nil
	}

	var failures []string

	failures = appendSetFailure(failures, "smoking", d.smokingOK, candidate.Lifestyle.Smoking)
	failures = appendSetFailure(failures, "drinking", d.drinkingOK, candidate.Lifestyle.Drinking)
	failures = appendSetFailure(failures, "kids", d.kidsOK, candidate.Lifestyle.Kids)
	failures = appendSetFailure(failures, "looking for", d.lookingForOK, candidate.Lifestyle.LookingFor)

	if d.minHeightCm != nil || d.maxHeightCm != nil {
		switch h := candidate.Lifestyle.HeightCm; {
		case h == nil:
			failures = append(failures, "height not specified")
		case d.minHeightCm != nil && *h < *d.minHeightCm:
			failures = append(failures, fmt.Sprintf("height %dcm below minimum %dcm", *h, *d.minHeightCm))
		case d.maxHeightCm != nil && *h > *d.maxHeightCm:
			failures = append(failures, fmt.Sprintf("height %dcm above maximum %dcm", *h, *d.maxHeightCm))
		}
	}

	if d.maxAgeDiff != nil {
		now := e.clock.Now()
		gap := seeker.Age(now) - candidate.Age(now)
		if gap < 0 {
			gap = -gap
		}
		if gap > *d.maxAgeDiff {
			failures = append(failures, fmt.Sprintf("age difference %d exceeds maximum %d", gap, *d.maxAgeDiff))
		}
	}

	return failures
}

func appendSetFailure(failures []string, category string, acceptable []string, value *string) []string {
	if len(acceptable) == 0 {
		return failures
	}
	if value == nil {
		return append(failures, category+" not specified")
	}
	for _, ok := range acceptable {
		if ok == *value {
			return failures
		}
	}
	return append(failures, category+" preference not met: "+*value)
}

func copyStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func copyInt(in *int) *int {
	if in == nil {
		return nil
	}
	v := *in
	return &v
}
