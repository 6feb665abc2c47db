package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TomShtern/Date-Program-sub004/internal/common/clock"
)

func mustDealbreakers(t *testing.T, p DealbreakerParams) *DealbreakerSet {
	t.Helper()
	d, err := NewDealbreakerSet(p, DefaultMinHeightCm, DefaultMaxHeightCm)
	require.NoError(t, err)
	return d
}

func TestNewDealbreakerSetRejectsBadBounds(t *testing.T) {
	_, err := NewDealbreakerSet(DealbreakerParams{MinHeightCm: intPtr(10)}, DefaultMinHeightCm, DefaultMaxHeightCm)
	assert.Error(t, err)

	_, err = NewDealbreakerSet(DealbreakerParams{MinHeightCm: intPtr(190), MaxHeightCm: intPtr(160)}, DefaultMinHeightCm, DefaultMaxHeightCm)
	assert.Error(t, err)

	_, err = NewDealbreakerSet(DealbreakerParams{MaxAgeDiff: intPtr(-1)}, DefaultMinHeightCm, DefaultMaxHeightCm)
	assert.Error(t, err)
}

func TestEmptySetAcceptsEveryone(t *testing.T) {
	eval := NewDealbreakerEvaluator(clock.NewMock(testNow))

	seeker := testProfile(1, GenderFemale, 30, 0, 0)
	candidate := testProfile(2, GenderMale, 45, 0, 0)
	// Candidate declared nothing at all.
	candidate.Lifestyle = Lifestyle{}

	seeker.Dealbreakers = mustDealbreakers(t, DealbreakerParams{})
	assert.True(t, eval.Passes(seeker, candidate))

	seeker.Dealbreakers = nil
	assert.True(t, eval.Passes(seeker, candidate))
}

func TestUnsetAttributeFailsActiveConstraint(t *testing.T) {
	eval := NewDealbreakerEvaluator(clock.NewMock(testNow))

	seeker := testProfile(1, GenderFemale, 30, 0, 0)
	seeker.Dealbreakers = mustDealbreakers(t, DealbreakerParams{SmokingOK: []string{"never"}})

	candidate := testProfile(2, GenderMale, 30, 0, 0)
	candidate.Lifestyle.Smoking = nil

	failures := eval.Failures(seeker, candidate)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0], "not specified")
}

func TestSetMembershipConstraint(t *testing.T) {
	eval := NewDealbreakerEvaluator(clock.NewMock(testNow))

	seeker := testProfile(1, GenderFemale, 30, 0, 0)
	seeker.Dealbreakers = mustDealbreakers(t, DealbreakerParams{SmokingOK: []string{"never", "socially"}})

	candidate := testProfile(2, GenderMale, 30, 0, 0)
	candidate.Lifestyle.Smoking = strPtr("socially")
	assert.True(t, eval.Passes(seeker, candidate))

	candidate.Lifestyle.Smoking = strPtr("regularly")
	assert.False(t, eval.Passes(seeker, candidate))
}

func TestHeightRangeConstraint(t *testing.T) {
	eval := NewDealbreakerEvaluator(clock.NewMock(testNow))

	seeker := testProfile(1, GenderFemale, 30, 0, 0)
	seeker.Dealbreakers = mustDealbreakers(t, DealbreakerParams{
		MinHeightCm: intPtr(160),
		MaxHeightCm: intPtr(190),
	})

	candidate := testProfile(2, GenderMale, 30, 0, 0)

	candidate.Lifestyle.HeightCm = intPtr(175)
	assert.True(t, eval.Passes(seeker, candidate))

	// Boundary values are inclusive.
	candidate.Lifestyle.HeightCm = intPtr(160)
	assert.True(t, eval.Passes(seeker, candidate))
	candidate.Lifestyle.HeightCm = intPtr(190)
	assert.True(t, eval.Passes(seeker, candidate))

	candidate.Lifestyle.HeightCm = intPtr(159)
	assert.False(t, eval.Passes(seeker, candidate))
	candidate.Lifestyle.HeightCm = intPtr(191)
	assert.False(t, eval.Passes(seeker, candidate))

	candidate.Lifestyle.HeightCm = nil
	assert.False(t, eval.Passes(seeker, candidate))
}

func TestMaxAgeDifferenceConstraint(t *testing.T) {
	eval := NewDealbreakerEvaluator(clock.NewMock(testNow))

	seeker := testProfile(1, GenderFemale, 30, 0, 0)
	seeker.Dealbreakers = mustDealbreakers(t, DealbreakerParams{MaxAgeDiff: intPtr(5)})

	within := testProfile(2, GenderMale, 35, 0, 0)
	assert.True(t, eval.Passes(seeker, within))

	beyond := testProfile(3, GenderMale, 36, 0, 0)
	assert.False(t, eval.Passes(seeker, beyond))

	// Works in both directions.
	younger := testProfile(4, GenderMale, 24, 0, 0)
	assert.False(t, eval.Passes(seeker, younger))
}

func TestDealbreakerSetIsImmutable(t *testing.T) {
	acceptable := []string{"never"}
	set := mustDealbreakers(t, DealbreakerParams{SmokingOK: acceptable})

	// Mutating the caller's slice must not widen the constraint.
	acceptable[0] = "regularly"

	eval := NewDealbreakerEvaluator(clock.NewMock(testNow))
	seeker := testProfile(1, GenderFemale, 30, 0, 0)
	seeker.Dealbreakers = set

	candidate := testProfile(2, GenderMale, 30, 0, 0)
	candidate.Lifestyle.Smoking = strPtr("regularly")
	assert.False(t, eval.Passes(seeker, candidate))
}
