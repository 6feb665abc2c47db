package discovery

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Fixed instant used across the package tests; every mock clock starts here.
var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func floatPtr(f float64) *float64 { return &f }

// testProfile builds an active profile with a location, mutual-everything
// preferences and complete pace data. Tests override fields as needed.
func testProfile(id int64, gender Gender, age int, lat, lon float64) *UserProfile {
	return &UserProfile{
		ID:            id,
		DisplayName:   fmt.Sprintf("user-%d", id),
		Gender:        gender,
		InterestedIn:  []Gender{GenderMale, GenderFemale, GenderNonBinary},
		BirthDate:     testNow.AddDate(-age, 0, -30),
		Latitude:      floatPtr(lat),
		Longitude:     floatPtr(lon),
		MaxDistanceKm: 100,
		MinAge:        18,
		MaxAge:        99,
		State:         StateActive,
		Interests:     []string{"hiking", "music"},
		Pace:          completePace("daily", "within_week", "texting", "balanced"),
		Timezone:      "UTC",
		CreatedAt:     testNow.AddDate(0, -1, 0),
	}
}

func completePace(msg, date, comm, depth string) PacePreferences {
	return PacePreferences{
		MessagingFrequency: strPtr(msg),
		FirstDateTiming:    strPtr(date),
		CommunicationStyle: strPtr(comm),
		ConversationDepth:  strPtr(depth),
	}
}

// fakeRepo is an in-memory Repository for tests.
type fakeRepo struct {
	mu          sync.Mutex
	profiles    map[int64]*UserProfile
	blocks      map[int64]map[int64]bool
	swipes      []*SwipeAction
	nextSwipeID int64
	matches     map[string]*Match
	nextMatchID int64
	sessions    map[string]*SwipeSession
	dailyViews  map[string]bool
}

func newFakeRepo(profiles ...*UserProfile) *fakeRepo {
	r := &fakeRepo{
		profiles:   make(map[int64]*UserProfile),
		blocks:     make(map[int64]map[int64]bool),
		matches:    make(map[string]*Match),
		sessions:   make(map[string]*SwipeSession),
		dailyViews: make(map[string]bool),
	}
	for _, p := range profiles {
		r.profiles[p.ID] = p
	}
	return r
}

func (r *fakeRepo) block(blocker, blocked int64) {
	if r.blocks[blocker] == nil {
		r.blocks[blocker] = make(map[int64]bool)
	}
	r.blocks[blocker][blocked] = true
}

func pairKey(a, b int64) string {
	a, b = CanonicalPair(a, b)
	return fmt.Sprintf("%d:%d", a, b)
}

func (r *fakeRepo) GetUserProfile(_ context.Context, userID int64) (*UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return p, nil
}

func (r *fakeRepo) GetActiveProfiles(_ context.Context) ([]*UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*UserProfile
	for _, p := range r.profiles {
		if p.State == StateActive && p.DeletedAt == nil {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepo) GetBlockedIDs(_ context.Context, userID int64) (map[int64]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int64]bool)
	for id := range r.blocks[userID] {
		out[id] = true
	}
	for blocker, set := range r.blocks {
		if set[userID] {
			out[blocker] = true
		}
	}
	return out, nil
}

func (r *fakeRepo) CreateSwipe(_ context.Context, swipe *SwipeAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSwipeID++
	swipe.ID = r.nextSwipeID
	cp := *swipe
	r.swipes = append(r.swipes, &cp)
	return nil
}

func (r *fakeRepo) LikeExists(_ context.Context, actorID, targetID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.swipes {
		if s.ActorID == actorID && s.TargetID == targetID && s.Direction == DirectionLike {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) SwipeExists(_ context.Context, actorID, targetID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.swipes {
		if s.ActorID == actorID && s.TargetID == targetID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) InteractedIDs(_ context.Context, userID int64) (map[int64]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int64]bool)
	for _, s := range r.swipes {
		if s.ActorID == userID {
			out[s.TargetID] = true
		}
	}
	return out, nil
}

func (r *fakeRepo) CountSwipesBetween(_ context.Context, userID int64, direction SwipeDirection, from, to time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, s := range r.swipes {
		if s.ActorID != userID || s.Direction != direction {
			continue
		}
		if !s.CreatedAt.Before(from) && s.CreatedAt.Before(to) {
			count++
		}
	}
	return count, nil
}

func (r *fakeRepo) UpsertMatch(_ context.Context, match *Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	match.UserAID, match.UserBID = CanonicalPair(match.UserAID, match.UserBID)
	key := pairKey(match.UserAID, match.UserBID)
	if existing, ok := r.matches[key]; ok {
		existing.IsActive = true
		existing.UnmatchedAt = nil
		*match = *existing
		return nil
	}
	r.nextMatchID++
	match.ID = r.nextMatchID
	match.IsActive = true
	cp := *match
	r.matches[key] = &cp
	return nil
}

func (r *fakeRepo) matchByPair(userA, userB int64) (*Match, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[pairKey(userA, userB)]
	return m, ok
}

func (r *fakeRepo) DeleteSwipeAndMatch(_ context.Context, swipeID int64, matchID *int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := -1
	for i, s := range r.swipes {
		if s.ID == swipeID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrSwipeNotFound
	}
	r.swipes = append(r.swipes[:idx], r.swipes[idx+1:]...)
	if matchID != nil {
		for key, m := range r.matches {
			if m.ID == *matchID {
				delete(r.matches, key)
				break
			}
		}
	}
	return nil
}

func (r *fakeRepo) SaveSession(_ context.Context, session *SwipeSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *session
	r.sessions[session.ID] = &cp
	return nil
}

func (r *fakeRepo) GetActiveSession(_ context.Context, userID int64) (*SwipeSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *SwipeSession
	for _, s := range r.sessions {
		if s.UserID != userID || s.State != SessionActive {
			continue
		}
		if latest == nil || s.StartedAt.After(latest.StartedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *fakeRepo) ListSessions(_ context.Context, userID int64, limit int) ([]*SwipeSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*SwipeSession
	for _, s := range r.sessions {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].StartedAt.After(out[i].StartedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRepo) EndStaleSessions(_ context.Context, lastActivityBefore, endedAt time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ended int64
	for _, s := range r.sessions {
		if s.State == SessionActive && s.LastActivity.Before(lastActivityBefore) {
			s.State = SessionEnded
			at := endedAt
			s.EndedAt = &at
			ended++
		}
	}
	return ended, nil
}

func (r *fakeRepo) GetSessionStats(_ context.Context, userID int64) (*SessionStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &SessionStats{}
	for _, s := range r.sessions {
		if s.UserID != userID {
			continue
		}
		stats.Sessions++
		stats.Swipes += s.SwipeCount
		stats.Likes += s.LikeCount
		stats.Passes += s.PassCount
		stats.Matches += s.MatchCount
	}
	return stats, nil
}

func (r *fakeRepo) MarkDailyPickViewed(_ context.Context, userID int64, pickDate string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dailyViews[fmt.Sprintf("%d|%s", userID, pickDate)] = true
	return nil
}

func (r *fakeRepo) DailyPickViewed(_ context.Context, userID int64, pickDate string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dailyViews[fmt.Sprintf("%d|%s", userID, pickDate)], nil
}
