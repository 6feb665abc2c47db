package discovery

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/TomShtern/Date-Program-sub004/internal/common/clock"
)

// UnlimitedQuota disables a daily limit; QuotaRemainingUnlimited is the
// remaining-count sentinel reported for an unlimited direction.
const (
	UnlimitedQuota          = -1
	QuotaRemainingUnlimited = -1
)

// DailyConfig carries the daily engine's tunables.
type DailyConfig struct {
	LikeLimit       int    // -1 = unlimited, 0 = blocked
	PassLimit       int    // -1 = unlimited, 0 = blocked
	DefaultTimezone string // fallback when the profile has none
}

// DailyService selects the deterministic daily pick and enforces per-day
// like/pass quotas in each user's local timezone.
type DailyService struct {
	repo   Repository
	filter *CandidateFilter
	scorer *Scorer
	clock  clock.Clock
	cfg    DailyConfig
}

func NewDailyService(repo Repository, filter *CandidateFilter, scorer *Scorer, clk clock.Clock, cfg DailyConfig) *DailyService {
	return &DailyService{repo: repo, filter: filter, scorer: scorer, clock: clk, cfg: cfg}
}

// DailyPickResult is the structured outcome of GetDailyPick. Found=false
// with a reason is the no-candidates steady state, not an error.
// AlreadyViewed reports whether today's pick was surfaced before this call.
type DailyPickResult struct {
	Found         bool         `json:"found"`
	AlreadyViewed bool         `json:"already_viewed"`
	Candidate     *UserProfile `json:"candidate,omitempty"`
	DistanceKm    float64      `json:"distance_km,omitempty"`
	Score         int          `json:"score,omitempty"`
	Reason        string       `json:"reason"`
}

// DailyStatus reports quota consumption for both directions. Remaining is
// QuotaRemainingUnlimited for an unlimited direction, never "zero quota".
type DailyStatus struct {
	LikesUsed       int           `json:"likes_used"`
	LikesRemaining  int           `json:"likes_remaining"`
	LikesUnlimited  bool          `json:"likes_unlimited"`
	PassesUsed      int           `json:"passes_used"`
	PassesRemaining int           `json:"passes_remaining"`
	PassesUnlimited bool          `json:"passes_unlimited"`
	ResetIn         time.Duration `json:"reset_in"`
}

// GetDailyPick selects one candidate for the seeker's current calendar day.
// The draw is a pure seeded function of (seeker id, local ISO date): the
// same day always yields the same candidate and reason, a new day an
// independent draw. Only the viewed flag is persisted.
func (d *DailyService) GetDailyPick(ctx context.Context, seekerID int64) (*DailyPickResult, error) {
	seeker, err := d.repo.GetUserProfile(ctx, seekerID)
	if err != nil {
		return nil, err
	}

	candidates, err := assembleCandidates(ctx, d.repo, d.filter, seeker)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return &DailyPickResult{Found: false, Reason: "no candidates available today"}, nil
	}

	loc := d.userLocation(seeker)
	today := d.clock.Now().In(loc).Format("2006-01-02")

	idx := dailyPickIndex(seekerID, today, len(candidates))
	pick := candidates[idx]

	score, breakdown := d.scorer.ScoreWithBreakdown(seeker, pick.Profile)

	viewed, err := d.repo.DailyPickViewed(ctx, seekerID, today)
	if err != nil {
		return nil, fmt.Errorf("check daily pick viewed: %w", err)
	}
	if err := d.repo.MarkDailyPickViewed(ctx, seekerID, today, d.clock.Now()); err != nil {
		return nil, fmt.Errorf("mark daily pick viewed: %w", err)
	}

	return &DailyPickResult{
		Found:         true,
		AlreadyViewed: viewed,
		Candidate:     pick.Profile,
		DistanceKm:    pick.DistanceKm,
		Score:         score,
		Reason:        pickReason(pick, breakdown),
	}, nil
}

// CanLike reports whether the user may issue another like today. An
// unlimited quota short-circuits without touching storage; a zero quota
// blocks unconditionally.
func (d *DailyService) CanLike(ctx context.Context, userID int64) (bool, error) {
	return d.canSwipe(ctx, userID, DirectionLike, d.cfg.LikeLimit)
}

// CanPass is CanLike for the pass direction.
func (d *DailyService) CanPass(ctx context.Context, userID int64) (bool, error) {
	return d.canSwipe(ctx, userID, DirectionPass, d.cfg.PassLimit)
}

func (d *DailyService) canSwipe(ctx context.Context, userID int64, direction SwipeDirection, limit int) (bool, error) {
	if limit == UnlimitedQuota {
		return true, nil
	}
	if limit == 0 {
		return false, nil
	}
	used, err := d.usedToday(ctx, userID, direction)
	if err != nil {
		return false, err
	}
	return used < limit, nil
}

// GetStatus reports quota usage for both directions plus the time until the
// next local-midnight reset.
func (d *DailyService) GetStatus(ctx context.Context, userID int64) (*DailyStatus, error) {
	likesUsed, err := d.usedToday(ctx, userID, DirectionLike)
	if err != nil {
		return nil, err
	}
	passesUsed, err := d.usedToday(ctx, userID, DirectionPass)
	if err != nil {
		return nil, err
	}
	resetIn, err := d.TimeUntilReset(ctx, userID)
	if err != nil {
		return nil, err
	}

	status := &DailyStatus{
		LikesUsed:  likesUsed,
		PassesUsed: passesUsed,
		ResetIn:    resetIn,
	}

	if d.cfg.LikeLimit == UnlimitedQuota {
		status.LikesUnlimited = true
		status.LikesRemaining = QuotaRemainingUnlimited
	} else {
		status.LikesRemaining = clampZero(d.cfg.LikeLimit - likesUsed)
	}
	if d.cfg.PassLimit == UnlimitedQuota {
		status.PassesUnlimited = true
		status.PassesRemaining = QuotaRemainingUnlimited
	} else {
		status.PassesRemaining = clampZero(d.cfg.PassLimit - passesUsed)
	}

	return status, nil
}

// TimeUntilReset is the duration to the next midnight in the user's
// timezone. Always positive and below 24 hours.
func (d *DailyService) TimeUntilReset(ctx context.Context, userID int64) (time.Duration, error) {
	user, err := d.repo.GetUserProfile(ctx, userID)
	if err != nil {
		return 0, err
	}

	loc := d.userLocation(user)
	now := d.clock.Now().In(loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	return midnight.Sub(now), nil
}

func (d *DailyService) usedToday(ctx context.Context, userID int64, direction SwipeDirection) (int, error) {
	user, err := d.repo.GetUserProfile(ctx, userID)
	if err != nil {
		return 0, err
	}

	loc := d.userLocation(user)
	now := d.clock.Now().In(loc)
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	return d.repo.CountSwipesBetween(ctx, userID, direction, startOfDay, now)
}

func (d *DailyService) userLocation(user *UserProfile) *time.Location {
	for _, name := range []string{user.Timezone, d.cfg.DefaultTimezone} {
		if name == "" {
			continue
		}
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.UTC
}

// dailyPickIndex derives a stable index into the sorted candidate list from
// the seeker id and the local ISO date. FNV-1a keeps the draw platform
// independent; no unseeded randomness is involved.
func dailyPickIndex(seekerID int64, isoDate string, n int) int {
	h := fnv.New64a()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(seekerID))
	h.Write(buf[:])
	h.Write([]byte(isoDate))
	return int(h.Sum64() % uint64(n))
}

// pickReason derives the human-readable reason deterministically from the
// score breakdown, so the same pick always carries the same text.
func pickReason(pick FilteredCandidate, breakdown *ScoreBreakdown) string {
	name := pick.Profile.DisplayName
	if breakdown != nil {
		switch {
		case breakdown.Interests >= 50:
			return name + " shares your interests"
		case breakdown.Pace >= 80:
			return name + " moves at your pace"
		case breakdown.Lifestyle >= 75:
			return name + " lives like you do"
		}
	}
	if pick.DistanceKm <= 10 {
		return name + " is nearby"
	}
	return "Today's pick for you"
}

func clampZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
