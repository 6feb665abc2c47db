package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TomShtern/Date-Program-sub004/internal/common/clock"
)

func newTestScorer() *Scorer {
	return NewScorer(DefaultScoringWeights(), 20, 50, clock.NewMock(testNow))
}

func TestNewScoringWeightsValidation(t *testing.T) {
	_, err := NewScoringWeights(DefaultScoringWeights())
	assert.NoError(t, err)

	bad := DefaultScoringWeights()
	bad.Distance = 0.5
	_, err = NewScoringWeights(bad)
	assert.Error(t, err)

	negative := DefaultScoringWeights()
	negative.Age = -0.15
	negative.Distance = 0.50
	_, err = NewScoringWeights(negative)
	assert.Error(t, err)
}

func TestPaceCompatibilityIdenticalIs100(t *testing.T) {
	a := testProfile(1, GenderFemale, 30, 0, 0)
	b := testProfile(2, GenderMale, 30, 0, 0)
	a.Pace = completePace("daily", "within_week", "texting", "balanced")
	b.Pace = completePace("daily", "within_week", "texting", "balanced")

	assert.Equal(t, 100, PaceCompatibility(a, b))
}

func TestPaceCompatibilityOppositeIs20(t *testing.T) {
	a := testProfile(1, GenderFemale, 30, 0, 0)
	b := testProfile(2, GenderMale, 30, 0, 0)
	a.Pace = completePace("multiple_daily", "asap", "texting", "light")
	b.Pace = completePace("rarely", "take_time", "in_person", "intense")

	assert.Equal(t, 20, PaceCompatibility(a, b))
}

func TestPaceCompatibilityWildcardCredit(t *testing.T) {
	a := testProfile(1, GenderFemale, 30, 0, 0)
	b := testProfile(2, GenderMale, 30, 0, 0)
	a.Pace = completePace(PaceNoPreference, PaceNoPreference, PaceNoPreference, PaceNoPreference)
	b.Pace = completePace("rarely", "take_time", "in_person", "intense")

	assert.Equal(t, 80, PaceCompatibility(a, b))
}

func TestPaceCompatibilityIncompleteIsUnknown(t *testing.T) {
	a := testProfile(1, GenderFemale, 30, 0, 0)
	b := testProfile(2, GenderMale, 30, 0, 0)
	a.Pace.ConversationDepth = nil

	assert.Equal(t, ScoreUnknown, PaceCompatibility(a, b))
	assert.Equal(t, ScoreUnknown, PaceCompatibility(b, a))
}

func TestScoreUnknownWhenPaceIncomplete(t *testing.T) {
	scorer := newTestScorer()
	a := testProfile(1, GenderFemale, 30, 0, 0)
	b := testProfile(2, GenderMale, 30, 0, 0)
	b.Pace.MessagingFrequency = nil

	score, breakdown := scorer.ScoreWithBreakdown(a, b)
	assert.Equal(t, ScoreUnknown, score)
	assert.Nil(t, breakdown)
}

func TestScorePerfectMatch(t *testing.T) {
	scorer := newTestScorer()

	a := testProfile(1, GenderFemale, 30, 32.0853, 34.7818)
	b := testProfile(2, GenderMale, 30, 32.0853, 34.7818)
	a.Interests = []string{"hiking", "music"}
	b.Interests = []string{"hiking", "music"}
	a.Lifestyle = Lifestyle{Smoking: strPtr("never"), Drinking: strPtr("socially")}
	b.Lifestyle = Lifestyle{Smoking: strPtr("never"), Drinking: strPtr("socially")}
	a.ResponseRate = floatPtr(100)
	b.ResponseRate = floatPtr(100)

	score, breakdown := scorer.ScoreWithBreakdown(a, b)
	require.NotNil(t, breakdown)
	assert.Equal(t, 100, score)
	assert.Equal(t, float64(100), breakdown.Distance)
	assert.Equal(t, float64(100), breakdown.Age)
	assert.Equal(t, float64(100), breakdown.Interests)
	assert.Equal(t, float64(100), breakdown.Lifestyle)
	assert.Equal(t, float64(100), breakdown.Pace)
	assert.Equal(t, float64(100), breakdown.Response)
}

func TestInterestScoreJaccard(t *testing.T) {
	// 2 shared of 4 distinct tags: 50.
	assert.InDelta(t, 50, interestScore(
		[]string{"hiking", "music", "cooking"},
		[]string{"hiking", "music", "gaming"},
	), 1e-9)

	assert.Zero(t, interestScore(nil, []string{"hiking"}))
	assert.Zero(t, interestScore([]string{"hiking"}, nil))
}

func TestLifestyleScoreComparableOnly(t *testing.T) {
	a := Lifestyle{Smoking: strPtr("never"), Drinking: strPtr("often"), Kids: strPtr("want")}
	b := Lifestyle{Smoking: strPtr("never"), Drinking: strPtr("rarely")}

	// Two comparable attributes, one matching.
	assert.InDelta(t, 50, lifestyleScore(a, b), 1e-9)

	// No comparable attributes.
	assert.Zero(t, lifestyleScore(Lifestyle{}, b))
}

func TestResponseScoreAveragesSetSides(t *testing.T) {
	assert.InDelta(t, 75, responseScore(floatPtr(50), floatPtr(100)), 1e-9)
	assert.InDelta(t, 60, responseScore(floatPtr(60), nil), 1e-9)
	assert.Zero(t, responseScore(nil, nil))
}

func TestAgeScoreLinearDecay(t *testing.T) {
	scorer := newTestScorer()

	a := testProfile(1, GenderFemale, 30, 0, 0)
	same := testProfile(2, GenderMale, 30, 0, 0)
	ten := testProfile(3, GenderMale, 40, 0, 0)
	beyond := testProfile(4, GenderMale, 55, 0, 0)

	assert.InDelta(t, 100, scorer.ageScore(a, same), 1e-9)
	assert.InDelta(t, 50, scorer.ageScore(a, ten), 1e-9)
	assert.Zero(t, scorer.ageScore(a, beyond))
}

func TestIsLowCompatibility(t *testing.T) {
	scorer := newTestScorer()

	assert.True(t, scorer.IsLowCompatibility(0))
	assert.True(t, scorer.IsLowCompatibility(49))
	assert.False(t, scorer.IsLowCompatibility(50))
	assert.False(t, scorer.IsLowCompatibility(100))
	// Unknown is no data, not low.
	assert.False(t, scorer.IsLowCompatibility(ScoreUnknown))
}
