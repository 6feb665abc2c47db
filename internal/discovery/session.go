package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TomShtern/Date-Program-sub004/internal/common/clock"
)

var ErrNoActiveSession = errors.New("no active session")

// SessionReasonLimit is the machine-readable reason for a swipe rejected by
// the per-session cap.
const SessionReasonLimit = "session swipe limit reached"

// SessionConfig carries the tracker's tunables.
type SessionConfig struct {
	Timeout           time.Duration // inactivity gap that expires a session
	MaxSwipes         int           // per-session cap
	VelocityThreshold float64       // swipes per minute considered suspicious
}

// SessionTracker groups consecutive swipes into per-user sessions, enforces
// the per-session cap and flags abnormal swipe velocity.
//
// State mutation is single-user-keyed: the tracker serializes its own
// read-modify-write against storage; no cross-user coordination exists.
type SessionTracker struct {
	repo  Repository
	clock clock.Clock
	cfg   SessionConfig
	mu    sync.Mutex
}

func NewSessionTracker(repo Repository, clk clock.Clock, cfg SessionConfig) *SessionTracker {
	return &SessionTracker{repo: repo, clock: clk, cfg: cfg}
}

// SessionSwipeResult reports whether a swipe was admitted and any velocity
// warning attached to it. The warning never blocks the swipe.
type SessionSwipeResult struct {
	Session         *SwipeSession `json:"session"`
	Allowed         bool          `json:"allowed"`
	Reason          string        `json:"reason,omitempty"`
	SwipesPerMinute float64       `json:"swipes_per_minute"`
	Warning         string        `json:"warning,omitempty"`
}

// GetOrCreateSession returns the user's ACTIVE session if its last activity
// is within the timeout, otherwise starts a fresh one. A stale ACTIVE
// session is simply superseded; the sweep ends it later.
func (t *SessionTracker) GetOrCreateSession(ctx context.Context, userID int64) (*SwipeSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.getOrCreateLocked(ctx, userID)
}

func (t *SessionTracker) getOrCreateLocked(ctx context.Context, userID int64) (*SwipeSession, error) {
	now := t.clock.Now()

	active, err := t.repo.GetActiveSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active != nil && now.Sub(active.LastActivity) <= t.cfg.Timeout {
		return active, nil
	}

	session := &SwipeSession{
		ID:           uuid.NewString(),
		UserID:       userID,
		State:        SessionActive,
		StartedAt:    now,
		LastActivity: now,
	}
	if err := t.repo.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// RecordSwipe admits or rejects one swipe against the user's session. At
// the cap the swipe is rejected without mutating counters; otherwise the
// counters and last activity advance and the instantaneous velocity is
// checked against the suspicious threshold.
func (t *SessionTracker) RecordSwipe(ctx context.Context, userID int64, direction SwipeDirection, wasMatch bool) (*SessionSwipeResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, err := t.getOrCreateLocked(ctx, userID)
	if err != nil {
		return nil, err
	}

	if session.SwipeCount >= t.cfg.MaxSwipes {
		return &SessionSwipeResult{
			Session: session,
			Allowed: false,
			Reason:  SessionReasonLimit,
		}, nil
	}

	now := t.clock.Now()
	session.SwipeCount++
	if direction == DirectionLike {
		session.LikeCount++
	} else {
		session.PassCount++
	}
	if wasMatch {
		session.MatchCount++
	}
	session.LastActivity = now

	if err := t.repo.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	velocity := swipesPerMinute(session.SwipeCount, now.Sub(session.StartedAt))
	result := &SessionSwipeResult{
		Session:         session,
		Allowed:         true,
		SwipesPerMinute: velocity,
	}
	if velocity > t.cfg.VelocityThreshold {
		result.Warning = fmt.Sprintf("unusually fast swiping: %.1f swipes/min", velocity)
		sessionVelocityWarnings.Inc()
	}
	return result, nil
}

// EndSession explicitly transitions the user's ACTIVE session to ENDED.
func (t *SessionTracker) EndSession(ctx context.Context, userID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, err := t.repo.GetActiveSession(ctx, userID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrNoActiveSession
	}

	now := t.clock.Now()
	session.State = SessionEnded
	session.EndedAt = &now
	return t.repo.SaveSession(ctx, session)
}

// EndStaleSessions bulk-ends every ACTIVE session whose last activity
// exceeds the timeout. Returns the number of sessions ended.
func (t *SessionTracker) EndStaleSessions(ctx context.Context) (int64, error) {
	now := t.clock.Now()
	return t.repo.EndStaleSessions(ctx, now.Add(-t.cfg.Timeout), now)
}

// GetStats returns lifetime aggregates over the user's stored sessions.
func (t *SessionTracker) GetStats(ctx context.Context, userID int64) (*SessionStats, error) {
	return t.repo.GetSessionStats(ctx, userID)
}

// History lists the user's most recent sessions, newest first.
func (t *SessionTracker) History(ctx context.Context, userID int64, limit int) ([]*SwipeSession, error) {
	return t.repo.ListSessions(ctx, userID, limit)
}

// swipesPerMinute guards the near-zero elapsed case: a burst inside the
// first second still yields a finite, very high velocity.
func swipesPerMinute(swipes int, elapsed time.Duration) float64 {
	if elapsed < time.Second {
		elapsed = time.Second
	}
	return float64(swipes) / elapsed.Minutes()
}
