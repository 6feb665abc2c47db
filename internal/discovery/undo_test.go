package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TomShtern/Date-Program-sub004/internal/common/clock"
)

const undoTestWindow = 30 * time.Second

func seedSwipe(t *testing.T, repo *fakeRepo, clk clock.Clock, actor, target int64, direction SwipeDirection) SwipeAction {
	t.Helper()
	swipe := SwipeAction{ActorID: actor, TargetID: target, Direction: direction, CreatedAt: clk.Now()}
	require.NoError(t, repo.CreateSwipe(context.Background(), &swipe))
	return swipe
}

func TestUndoWithinWindow(t *testing.T) {
	repo := newFakeRepo()
	clk := clock.NewMock(testNow)
	svc := NewUndoService(NewMemoryUndoStore(), repo, clk, undoTestWindow)

	ctx := context.Background()
	swipe := seedSwipe(t, repo, clk, 1, 2, DirectionPass)
	require.NoError(t, svc.RecordSwipe(ctx, swipe, nil))

	clk.Advance(10 * time.Second)

	ok, err := svc.CanUndo(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	result, err := svc.Undo(ctx, 1)
	require.NoError(t, err)
	assert.True(t, result.Undone)
	require.NotNil(t, result.RemovedSwipe)
	assert.Equal(t, swipe.ID, result.RemovedSwipe.ID)
	assert.Nil(t, result.RemovedMatch)

	// The swipe row is gone; the pair can be swiped again.
	exists, err := repo.SwipeExists(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUndoExactExpiryInstantStillAllowed(t *testing.T) {
	repo := newFakeRepo()
	clk := clock.NewMock(testNow)
	svc := NewUndoService(NewMemoryUndoStore(), repo, clk, undoTestWindow)

	ctx := context.Background()
	swipe := seedSwipe(t, repo, clk, 1, 2, DirectionLike)
	require.NoError(t, svc.RecordSwipe(ctx, swipe, nil))

	clk.Advance(undoTestWindow)

	ok, err := svc.CanUndo(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUndoExpiredWindow(t *testing.T) {
	repo := newFakeRepo()
	clk := clock.NewMock(testNow)
	svc := NewUndoService(NewMemoryUndoStore(), repo, clk, undoTestWindow)

	ctx := context.Background()
	swipe := seedSwipe(t, repo, clk, 1, 2, DirectionLike)
	require.NoError(t, svc.RecordSwipe(ctx, swipe, nil))

	clk.Advance(undoTestWindow + time.Second)

	ok, err := svc.CanUndo(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	result, err := svc.Undo(ctx, 1)
	require.NoError(t, err)
	assert.False(t, result.Undone)
	assert.Equal(t, UndoReasonExpired, result.Reason)

	// The swipe itself stands.
	exists, err := repo.SwipeExists(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUndoNothingToUndo(t *testing.T) {
	repo := newFakeRepo()
	svc := NewUndoService(NewMemoryUndoStore(), repo, clock.NewMock(testNow), undoTestWindow)

	result, err := svc.Undo(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, result.Undone)
	assert.Equal(t, UndoReasonNothing, result.Reason)
}

func TestDoubleUndoFails(t *testing.T) {
	repo := newFakeRepo()
	clk := clock.NewMock(testNow)
	svc := NewUndoService(NewMemoryUndoStore(), repo, clk, undoTestWindow)

	ctx := context.Background()
	swipe := seedSwipe(t, repo, clk, 1, 2, DirectionPass)
	require.NoError(t, svc.RecordSwipe(ctx, swipe, nil))

	first, err := svc.Undo(ctx, 1)
	require.NoError(t, err)
	assert.True(t, first.Undone)

	second, err := svc.Undo(ctx, 1)
	require.NoError(t, err)
	assert.False(t, second.Undone)
	assert.Equal(t, UndoReasonNothing, second.Reason)
}

func TestNewSwipeOverwritesUndoRecord(t *testing.T) {
	repo := newFakeRepo()
	clk := clock.NewMock(testNow)
	svc := NewUndoService(NewMemoryUndoStore(), repo, clk, undoTestWindow)

	ctx := context.Background()
	first := seedSwipe(t, repo, clk, 1, 2, DirectionPass)
	require.NoError(t, svc.RecordSwipe(ctx, first, nil))

	clk.Advance(5 * time.Second)
	second := seedSwipe(t, repo, clk, 1, 3, DirectionLike)
	require.NoError(t, svc.RecordSwipe(ctx, second, nil))

	result, err := svc.Undo(ctx, 1)
	require.NoError(t, err)
	require.True(t, result.Undone)
	assert.Equal(t, second.ID, result.RemovedSwipe.ID)

	// The first swipe is beyond reach.
	exists, err := repo.SwipeExists(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUndoLikeRemovesMatch(t *testing.T) {
	repo := newFakeRepo()
	clk := clock.NewMock(testNow)
	svc := NewUndoService(NewMemoryUndoStore(), repo, clk, undoTestWindow)

	ctx := context.Background()
	seedSwipe(t, repo, clk, 2, 1, DirectionLike)
	swipe := seedSwipe(t, repo, clk, 1, 2, DirectionLike)

	match := &Match{UserAID: 1, UserBID: 2, MatchedAt: clk.Now()}
	require.NoError(t, repo.UpsertMatch(ctx, match))
	require.NoError(t, svc.RecordSwipe(ctx, swipe, match))

	result, err := svc.Undo(ctx, 1)
	require.NoError(t, err)
	require.True(t, result.Undone)
	require.NotNil(t, result.RemovedMatch)
	assert.Equal(t, match.ID, result.RemovedMatch.ID)

	// Both the swipe and the match are gone.
	_, found := repo.matchByPair(1, 2)
	assert.False(t, found)
	exists, err := repo.SwipeExists(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, exists)

	// The other side's like is untouched.
	exists, err = repo.SwipeExists(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestClearUndoIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	clk := clock.NewMock(testNow)
	svc := NewUndoService(NewMemoryUndoStore(), repo, clk, undoTestWindow)

	ctx := context.Background()
	assert.NoError(t, svc.ClearUndo(ctx, 1))

	swipe := seedSwipe(t, repo, clk, 1, 2, DirectionPass)
	require.NoError(t, svc.RecordSwipe(ctx, swipe, nil))
	assert.NoError(t, svc.ClearUndo(ctx, 1))
	assert.NoError(t, svc.ClearUndo(ctx, 1))

	ok, err := svc.CanUndo(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}
