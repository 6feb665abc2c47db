package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/TomShtern/Date-Program-sub004/internal/common/clock"
)

var (
	ErrSelfSwipe     = errors.New("cannot swipe on yourself")
	ErrAlreadySwiped = errors.New("already swiped on this user")
	ErrInvalidSwipe  = errors.New("invalid swipe direction")
)

// Quota rejection reasons.
const (
	QuotaReasonLikes  = "daily like limit reached"
	QuotaReasonPasses = "daily pass limit reached"
)

// SwipeResult is the structured outcome of one swipe attempt. A gated swipe
// comes back with Allowed=false and a reason rather than an error.
type SwipeResult struct {
	Allowed         bool          `json:"allowed"`
	Reason          string        `json:"reason,omitempty"`
	Swipe           *SwipeAction  `json:"swipe,omitempty"`
	Matched         bool          `json:"matched"`
	Match           *Match        `json:"match,omitempty"`
	VelocityWarning string        `json:"velocity_warning,omitempty"`
	QuotaResetIn    time.Duration `json:"quota_reset_in,omitempty"`
}

// Service is the consumer-facing surface of the discovery core.
type Service interface {
	FindCandidates(ctx context.Context, seekerID int64) ([]FilteredCandidate, error)
	Compatibility(ctx context.Context, userAID, userBID int64) (int, *ScoreBreakdown, error)
	GetDailyPick(ctx context.Context, userID int64) (*DailyPickResult, error)
	GetDailyStatus(ctx context.Context, userID int64) (*DailyStatus, error)
	Swipe(ctx context.Context, actorID, targetID int64, direction SwipeDirection) (*SwipeResult, error)
	CanUndo(ctx context.Context, userID int64) (bool, error)
	Undo(ctx context.Context, userID int64) (*UndoResult, error)
	EndSession(ctx context.Context, userID int64) error
	GetSessionStats(ctx context.Context, userID int64) (*SessionStats, error)
	GetSessionHistory(ctx context.Context, userID int64, limit int) ([]*SwipeSession, error)
	EndStaleSessions(ctx context.Context) (int64, error)
}

type service struct {
	repo     Repository
	filter   *CandidateFilter
	scorer   *Scorer
	daily    *DailyService
	undo     *UndoService
	sessions *SessionTracker
	clock    clock.Clock
	log      zerolog.Logger
}

// NewService wires the discovery components into one service.
func NewService(
	repo Repository,
	filter *CandidateFilter,
	scorer *Scorer,
	daily *DailyService,
	undo *UndoService,
	sessions *SessionTracker,
	clk clock.Clock,
	log zerolog.Logger,
) Service {
	return &service{
		repo:     repo,
		filter:   filter,
		scorer:   scorer,
		daily:    daily,
		undo:     undo,
		sessions: sessions,
		clock:    clk,
		log:      log,
	}
}

// assembleCandidates loads the active pool, the seeker's interacted ids and
// blocks, and runs the filter pipeline. Shared between discovery browsing
// and the daily pick.
func assembleCandidates(ctx context.Context, repo Repository, filter *CandidateFilter, seeker *UserProfile) ([]FilteredCandidate, error) {
	pool, err := repo.GetActiveProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load candidate pool: %w", err)
	}
	excluded, err := repo.InteractedIDs(ctx, seeker.ID)
	if err != nil {
		return nil, fmt.Errorf("load interacted ids: %w", err)
	}
	blocked, err := repo.GetBlockedIDs(ctx, seeker.ID)
	if err != nil {
		return nil, fmt.Errorf("load blocked ids: %w", err)
	}
	return filter.FindCandidates(seeker, pool, excluded, blocked), nil
}

func (s *service) FindCandidates(ctx context.Context, seekerID int64) ([]FilteredCandidate, error) {
	seeker, err := s.repo.GetUserProfile(ctx, seekerID)
	if err != nil {
		return nil, err
	}
	return assembleCandidates(ctx, s.repo, s.filter, seeker)
}

func (s *service) Compatibility(ctx context.Context, userAID, userBID int64) (int, *ScoreBreakdown, error) {
	a, err := s.repo.GetUserProfile(ctx, userAID)
	if err != nil {
		return 0, nil, err
	}
	b, err := s.repo.GetUserProfile(ctx, userBID)
	if err != nil {
		return 0, nil, err
	}

	score, breakdown := s.scorer.ScoreWithBreakdown(a, b)
	RecordCompatibilityScore(score)
	return score, breakdown, nil
}

func (s *service) GetDailyPick(ctx context.Context, userID int64) (*DailyPickResult, error) {
	result, err := s.daily.GetDailyPick(ctx, userID)
	if err != nil {
		return nil, err
	}
	if result.Found {
		RecordDailyPick()
	}
	return result, nil
}

func (s *service) GetDailyStatus(ctx context.Context, userID int64) (*DailyStatus, error) {
	return s.daily.GetStatus(ctx, userID)
}

// Swipe runs the full gate chain: self-check, daily quota, session cap,
// persist, mutual-like match, undo record. Gates reject with a structured
// result; only validation and storage problems surface as errors.
func (s *service) Swipe(ctx context.Context, actorID, targetID int64, direction SwipeDirection) (*SwipeResult, error) {
	if actorID == targetID {
		return nil, ErrSelfSwipe
	}
	if direction != DirectionLike && direction != DirectionPass {
		return nil, ErrInvalidSwipe
	}

	exists, err := s.repo.SwipeExists(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadySwiped
	}

	// Mutual like is checked before persisting so the session counters can
	// attribute the match to this swipe.
	willMatch := false
	if direction == DirectionLike {
		willMatch, err = s.repo.LikeExists(ctx, targetID, actorID)
		if err != nil {
			return nil, err
		}
	}

	// Quota first: it only reads, while the session gate mutates counters.
	allowed, reason, err := s.checkQuota(ctx, actorID, direction)
	if err != nil {
		return nil, err
	}
	if !allowed {
		RecordRejectedSwipe(reason)
		resetIn, err := s.daily.TimeUntilReset(ctx, actorID)
		if err != nil {
			return nil, err
		}
		return &SwipeResult{Allowed: false, Reason: reason, QuotaResetIn: resetIn}, nil
	}

	gate, err := s.sessions.RecordSwipe(ctx, actorID, direction, willMatch)
	if err != nil {
		return nil, err
	}
	if !gate.Allowed {
		RecordRejectedSwipe(gate.Reason)
		return &SwipeResult{Allowed: false, Reason: gate.Reason}, nil
	}

	swipe := &SwipeAction{
		ActorID:   actorID,
		TargetID:  targetID,
		Direction: direction,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.CreateSwipe(ctx, swipe); err != nil {
		return nil, err
	}
	RecordSwipeMetric(direction)

	var match *Match
	if willMatch {
		match = &Match{UserAID: actorID, UserBID: targetID, MatchedAt: swipe.CreatedAt}
		// The upsert absorbs the duplicate when concurrent mutual likes
		// race; callers never see the second attempt.
		if err := s.repo.UpsertMatch(ctx, match); err != nil {
			return nil, err
		}
		RecordMatch()
		s.log.Info().
			Int64("user_a", match.UserAID).
			Int64("user_b", match.UserBID).
			Msg("match created")
	}

	if err := s.undo.RecordSwipe(ctx, *swipe, match); err != nil {
		// The swipe stands even if the undo record could not be written.
		s.log.Warn().Err(err).Int64("user", actorID).Msg("undo record failed")
	}

	return &SwipeResult{
		Allowed:         true,
		Swipe:           swipe,
		Matched:         match != nil,
		Match:           match,
		VelocityWarning: gate.Warning,
	}, nil
}

func (s *service) checkQuota(ctx context.Context, userID int64, direction SwipeDirection) (bool, string, error) {
	if direction == DirectionLike {
		ok, err := s.daily.CanLike(ctx, userID)
		return ok, QuotaReasonLikes, err
	}
	ok, err := s.daily.CanPass(ctx, userID)
	return ok, QuotaReasonPasses, err
}

func (s *service) CanUndo(ctx context.Context, userID int64) (bool, error) {
	return s.undo.CanUndo(ctx, userID)
}

func (s *service) Undo(ctx context.Context, userID int64) (*UndoResult, error) {
	result, err := s.undo.Undo(ctx, userID)
	if err != nil {
		return nil, err
	}
	if result.Undone {
		RecordUndo("success")
	} else {
		RecordUndo(result.Reason)
	}
	return result, nil
}

func (s *service) EndSession(ctx context.Context, userID int64) error {
	return s.sessions.EndSession(ctx, userID)
}

func (s *service) GetSessionStats(ctx context.Context, userID int64) (*SessionStats, error) {
	return s.sessions.GetStats(ctx, userID)
}

func (s *service) GetSessionHistory(ctx context.Context, userID int64, limit int) ([]*SwipeSession, error) {
	return s.sessions.History(ctx, userID, limit)
}

func (s *service) EndStaleSessions(ctx context.Context) (int64, error) {
	return s.sessions.EndStaleSessions(ctx)
}
