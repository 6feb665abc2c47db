package discovery

import (
	"time"
)

// UserState is the profile lifecycle state. Profiles are never physically
// deleted; DeletedAt plus the state flag soft-delete them.
type UserState string

const (
	StateIncomplete UserState = "incomplete"
	StateActive     UserState = "active"
	StateBanned     UserState = "banned"
	StateDeleted    UserState = "deleted"
)

type Gender string

const (
	GenderMale      Gender = "male"
	GenderFemale    Gender = "female"
	GenderNonBinary Gender = "non_binary"
)

// SwipeDirection is the direction of a swipe action.
type SwipeDirection string

const (
	DirectionLike SwipeDirection = "like"
	DirectionPass SwipeDirection = "pass"
)

// PaceNoPreference is the wildcard value accepted in every pace dimension.
const PaceNoPreference = "no_preference"

// Ordinal scales for the four pace dimensions. Distance between two values
// on the same scale drives the pace sub-score.
var (
	messagingFrequencyScale = map[string]int{
		"multiple_daily": 0,
		"daily":          1,
		"every_few_days": 2,
		"weekly":         3,
		"rarely":         4,
	}
	firstDateScale = map[string]int{
		"asap":             0,
		"within_week":      1,
		"within_two_weeks": 2,
		"within_month":     3,
		"take_time":        4,
	}
	communicationStyleScale = map[string]int{
		"texting":     0,
		"voice_notes": 1,
		"calls":       2,
		"video":       3,
		"in_person":   4,
	}
	conversationDepthScale = map[string]int{
		"light":    0,
		"casual":   1,
		"balanced": 2,
		"deep":     3,
		"intense":  4,
	}
)

// PacePreferences are the user's communication-tempo expectations. A nil
// field means the user never answered that dimension, which is different
// from the explicit no-preference wildcard.
type PacePreferences struct {
	MessagingFrequency *string `json:"messaging_frequency,omitempty" db:"messaging_frequency"`
	FirstDateTiming    *string `json:"first_date_timing,omitempty" db:"first_date_timing"`
	CommunicationStyle *string `json:"communication_style,omitempty" db:"communication_style"`
	ConversationDepth  *string `json:"conversation_depth,omitempty" db:"conversation_depth"`
}

// Complete reports whether all four dimensions were answered.
func (p *PacePreferences) Complete() bool {
	if p == nil {
		return false
	}
	return p.MessagingFrequency != nil && p.FirstDateTiming != nil &&
		p.CommunicationStyle != nil && p.ConversationDepth != nil
}

// Lifestyle holds the attributes compared by the lifestyle sub-score and by
// dealbreakers. Nil means not declared.
type Lifestyle struct {
	Smoking    *string `json:"smoking,omitempty" db:"smoking"`
	Drinking   *string `json:"drinking,omitempty" db:"drinking"`
	Kids       *string `json:"kids,omitempty" db:"kids"`
	LookingFor *string `json:"looking_for,omitempty" db:"looking_for"`
	HeightCm   *int    `json:"height_cm,omitempty" db:"height_cm"`
}

// UserProfile is the discovery-facing view of a user. Location is
// explicitly-set-or-unset: (0,0) with both pointers non-nil is a real
// coordinate, not a missing one.
type UserProfile struct {
	ID            int64           `json:"id" db:"id"`
	DisplayName   string          `json:"display_name" db:"display_name"`
	Gender        Gender          `json:"gender" db:"gender"`
	InterestedIn  []Gender        `json:"interested_in" db:"-"`
	BirthDate     time.Time       `json:"birth_date" db:"birth_date"`
	Latitude      *float64        `json:"latitude,omitempty" db:"latitude"`
	Longitude     *float64        `json:"longitude,omitempty" db:"longitude"`
	MaxDistanceKm float64         `json:"max_distance_km" db:"max_distance_km"`
	MinAge        int             `json:"min_age" db:"min_age"`
	MaxAge        int             `json:"max_age" db:"max_age"`
	State         UserState       `json:"state" db:"state"`
	Interests     []string        `json:"interests" db:"-"`
	Lifestyle     Lifestyle       `json:"lifestyle"`
	Pace          PacePreferences `json:"pace"`
	Dealbreakers  *DealbreakerSet `json:"dealbreakers,omitempty" db:"-"`
	// ResponseRate is an opaque 0-100 responsiveness signal supplied by the
	// messaging collaborator. Nil when the user has no history yet.
	ResponseRate *float64   `json:"response_rate,omitempty" db:"response_rate"`
	Timezone     string     `json:"timezone" db:"timezone"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// HasLocation reports whether the profile location was explicitly set.
func (u *UserProfile) HasLocation() bool {
	return u.Latitude != nil && u.Longitude != nil
}

// Age is the user's age in floor years at the given instant.
func (u *UserProfile) Age(now time.Time) int {
	years := now.Year() - u.BirthDate.Year()
	anniversary := u.BirthDate.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}

// InterestedInGender reports whether g is in the user's interested-in set.
func (u *UserProfile) InterestedInGender(g Gender) bool {
	for _, want := range u.InterestedIn {
		if want == g {
			return true
		}
	}
	return false
}

// SwipeAction is an immutable like/pass record. Deleted only by Undo.
type SwipeAction struct {
	ID        int64          `json:"id" db:"id"`
	ActorID   int64          `json:"actor_id" db:"actor_id"`
	TargetID  int64          `json:"target_id" db:"target_id"`
	Direction SwipeDirection `json:"direction" db:"direction"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// Match is the canonical unordered pair of matched users: UserAID is always
// the smaller id so the pair key is order-independent.
type Match struct {
	ID          int64      `json:"id" db:"id"`
	UserAID     int64      `json:"user_a_id" db:"user_a_id"`
	UserBID     int64      `json:"user_b_id" db:"user_b_id"`
	IsActive    bool       `json:"is_active" db:"is_active"`
	MatchedAt   time.Time  `json:"matched_at" db:"matched_at"`
	UnmatchedAt *time.Time `json:"unmatched_at,omitempty" db:"unmatched_at"`
}

// CanonicalPair orders a user id pair so the smaller id comes first.
func CanonicalPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

// SessionState is the swipe-session lifecycle state.
type SessionState string

const (
	SessionActive SessionState = "active"
	SessionEnded  SessionState = "ended"
)

// SwipeSession groups a run of consecutive swipes for rate limiting and
// anomaly detection.
type SwipeSession struct {
	ID           string       `json:"id" db:"id"`
	UserID       int64        `json:"user_id" db:"user_id"`
	State        SessionState `json:"state" db:"state"`
	StartedAt    time.Time    `json:"started_at" db:"started_at"`
	LastActivity time.Time    `json:"last_activity" db:"last_activity"`
	EndedAt      *time.Time   `json:"ended_at,omitempty" db:"ended_at"`
	SwipeCount   int          `json:"swipe_count" db:"swipe_count"`
	LikeCount    int          `json:"like_count" db:"like_count"`
	PassCount    int          `json:"pass_count" db:"pass_count"`
	MatchCount   int          `json:"match_count" db:"match_count"`
}

// SessionStats are lifetime aggregates over a user's stored sessions.
type SessionStats struct {
	Sessions int `json:"sessions" db:"sessions"`
	Swipes   int `json:"swipes" db:"swipes"`
	Likes    int `json:"likes" db:"likes"`
	Passes   int `json:"passes" db:"passes"`
	Matches  int `json:"matches" db:"matches"`
}

// DailyPick records that a user's pick for a calendar day was surfaced.
// The pick identity itself is recomputed deterministically, never stored.
type DailyPick struct {
	ID       int64     `json:"id" db:"id"`
	UserID   int64     `json:"user_id" db:"user_id"`
	PickDate string    `json:"pick_date" db:"pick_date"`
	ViewedAt time.Time `json:"viewed_at" db:"viewed_at"`
}
