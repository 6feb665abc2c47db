package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/TomShtern/Date-Program-sub004/internal/common/clock"
)

// Undo failure reasons, machine-readable per the error taxonomy.
const (
	UndoReasonNothing = "no swipe to undo"
	UndoReasonExpired = "undo window expired"
)

// UndoRecord is the single live undoable action for a user. Each new swipe
// overwrites it; only the most recent action can be reverted.
type UndoRecord struct {
	UserID    int64       `json:"user_id"`
	Swipe     SwipeAction `json:"swipe"`
	Match     *Match      `json:"match,omitempty"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// UndoStore keeps at most one UndoRecord per user. Get returns (nil, nil)
// when no record exists; Delete on a missing record is a no-op.
type UndoStore interface {
	Put(ctx context.Context, record *UndoRecord) error
	Get(ctx context.Context, userID int64) (*UndoRecord, error)
	Delete(ctx context.Context, userID int64) error
}

// memoryUndoStore is the in-process store used in tests and when Redis is
// not configured.
type memoryUndoStore struct {
	mu      sync.RWMutex
	records map[int64]*UndoRecord
}

// NewMemoryUndoStore returns an in-memory UndoStore.
func NewMemoryUndoStore() UndoStore {
	return &memoryUndoStore{records: make(map[int64]*UndoRecord)}
}

func (s *memoryUndoStore) Put(_ context.Context, record *UndoRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.UserID] = record
	return nil
}

func (s *memoryUndoStore) Get(_ context.Context, userID int64) (*UndoRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[userID], nil
}

func (s *memoryUndoStore) Delete(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
	return nil
}

// redisUndoStore keeps one JSON record per user key. The key TTL is hygiene
// only; expiry decisions always come from the injected clock.
type redisUndoStore struct {
	client *redis.Client
	clock  clock.Clock
	window time.Duration
}

// NewRedisUndoStore returns a Redis-backed UndoStore. window sizes the key
// TTL (with slack so a record never vanishes before its clock expiry).
func NewRedisUndoStore(client *redis.Client, clk clock.Clock, window time.Duration) UndoStore {
	return &redisUndoStore{client: client, clock: clk, window: window}
}

func undoKey(userID int64) string {
	return fmt.Sprintf("discovery:undo:%d", userID)
}

func (s *redisUndoStore) Put(ctx context.Context, record *UndoRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal undo record: %w", err)
	}
	ttl := s.window + time.Minute
	if err := s.client.Set(ctx, undoKey(record.UserID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("store undo record: %w", err)
	}
	return nil
}

func (s *redisUndoStore) Get(ctx context.Context, userID int64) (*UndoRecord, error) {
	payload, err := s.client.Get(ctx, undoKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load undo record: %w", err)
	}
	var record UndoRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("decode undo record: %w", err)
	}
	return &record, nil
}

func (s *redisUndoStore) Delete(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, undoKey(userID)).Err(); err != nil {
		return fmt.Errorf("delete undo record: %w", err)
	}
	return nil
}

// UndoResult is the structured outcome of an undo attempt.
type UndoResult struct {
	Undone       bool         `json:"undone"`
	Reason       string       `json:"reason,omitempty"`
	RemovedSwipe *SwipeAction `json:"removed_swipe,omitempty"`
	RemovedMatch *Match       `json:"removed_match,omitempty"`
}

// UndoService reverts the single most recent swipe per user within a fixed
// window.
type UndoService struct {
	store  UndoStore
	repo   Repository
	clock  clock.Clock
	window time.Duration
}

func NewUndoService(store UndoStore, repo Repository, clk clock.Clock, window time.Duration) *UndoService {
	return &UndoService{store: store, repo: repo, clock: clk, window: window}
}

// RecordSwipe replaces the user's undo record with the given action. match
// is the match the swipe created, if any.
func (u *UndoService) RecordSwipe(ctx context.Context, action SwipeAction, match *Match) error {
	record := &UndoRecord{
		UserID:    action.ActorID,
		Swipe:     action,
		Match:     match,
		ExpiresAt: action.CreatedAt.Add(u.window),
	}
	return u.store.Put(ctx, record)
}

// CanUndo reports whether a live record exists and the window has not
// passed. The exact expiry instant still counts as inside the window.
func (u *UndoService) CanUndo(ctx context.Context, userID int64) (bool, error) {
	record, err := u.store.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, nil
	}
	return !u.clock.Now().After(record.ExpiresAt), nil
}

// Undo reverts the user's most recent swipe: the swipe row and any match it
// created are deleted in one transaction, then the record is cleared. A
// second call after success reports "no swipe to undo".
func (u *UndoService) Undo(ctx context.Context, userID int64) (*UndoResult, error) {
	record, err := u.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return &UndoResult{Undone: false, Reason: UndoReasonNothing}, nil
	}
	if u.clock.Now().After(record.ExpiresAt) {
		// Expired records are cleared eagerly so later calls report the
		// cheaper no-record reason.
		if err := u.store.Delete(ctx, userID); err != nil {
			return nil, err
		}
		return &UndoResult{Undone: false, Reason: UndoReasonExpired}, nil
	}

	var matchID *int64
	if record.Match != nil {
		matchID = &record.Match.ID
	}
	if err := u.repo.DeleteSwipeAndMatch(ctx, record.Swipe.ID, matchID); err != nil {
		return nil, fmt.Errorf("undo swipe %d: %w", record.Swipe.ID, err)
	}
	if err := u.store.Delete(ctx, userID); err != nil {
		return nil, err
	}

	return &UndoResult{
		Undone:       true,
		RemovedSwipe: &record.Swipe,
		RemovedMatch: record.Match,
	}, nil
}

// ClearUndo drops the user's record if one exists. Idempotent.
func (u *UndoService) ClearUndo(ctx context.Context, userID int64) error {
	return u.store.Delete(ctx, userID)
}
