package discovery

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrSwipeNotFound = errors.New("swipe not found")
)

// Repository is the storage contract the discovery core consumes. The core
// never talks to a concrete engine directly.
type Repository interface {
	// Users
	GetUserProfile(ctx context.Context, userID int64) (*UserProfile, error)
	GetActiveProfiles(ctx context.Context) ([]*UserProfile, error)
	GetBlockedIDs(ctx context.Context, userID int64) (map[int64]bool, error)

	// Swipes
	CreateSwipe(ctx context.Context, swipe *SwipeAction) error
	LikeExists(ctx context.Context, actorID, targetID int64) (bool, error)
	InteractedIDs(ctx context.Context, userID int64) (map[int64]bool, error)
	CountSwipesBetween(ctx context.Context, userID int64, direction SwipeDirection, from, to time.Time) (int, error)
	SwipeExists(ctx context.Context, actorID, targetID int64) (bool, error)

	// Matches
	UpsertMatch(ctx context.Context, match *Match) error
	// DeleteSwipeAndMatch removes a swipe and, when matchID is non-nil, the
	// match it created, in one transaction: both rows go or neither does.
	DeleteSwipeAndMatch(ctx context.Context, swipeID int64, matchID *int64) error

	// Sessions
	SaveSession(ctx context.Context, session *SwipeSession) error
	GetActiveSession(ctx context.Context, userID int64) (*SwipeSession, error)
	ListSessions(ctx context.Context, userID int64, limit int) ([]*SwipeSession, error)
	EndStaleSessions(ctx context.Context, lastActivityBefore, endedAt time.Time) (int64, error)
	GetSessionStats(ctx context.Context, userID int64) (*SessionStats, error)

	// Daily picks
	MarkDailyPickViewed(ctx context.Context, userID int64, pickDate string, viewedAt time.Time) error
	DailyPickViewed(ctx context.Context, userID int64, pickDate string) (bool, error)
}

type postgresRepository struct {
	db *sqlx.DB

	// Sanity bounds applied when rehydrating stored height dealbreakers.
	minHeightCm int
	maxHeightCm int
}

// NewPostgresRepository wraps a sqlx handle in the discovery Repository.
func NewPostgresRepository(db *sqlx.DB, minHeightCm, maxHeightCm int) Repository {
	return &postgresRepository{db: db, minHeightCm: minHeightCm, maxHeightCm: maxHeightCm}
}

// User methods

const profileColumns = `
	id, display_name, gender, interested_in, birth_date,
	latitude, longitude, max_distance_km, min_age, max_age, state,
	interests, smoking, drinking, kids, looking_for, height_cm,
	messaging_frequency, first_date_timing, communication_style, conversation_depth,
	db_smoking_ok, db_drinking_ok, db_kids_ok, db_looking_for_ok,
	db_min_height_cm, db_max_height_cm, db_max_age_diff,
	response_rate, timezone, created_at, deleted_at
`

func (r *postgresRepository) GetUserProfile(ctx context.Context, userID int64) (*UserProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles WHERE id = $1`

	row := r.db.QueryRowxContext(ctx, query, userID)
	profile, err := r.scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user profile: %w", err)
	}
	return profile, nil
}

func (r *postgresRepository) GetActiveProfiles(ctx context.Context) ([]*UserProfile, error) {
	// State is filtered explicitly; soft-deleted rows never rely on
	// implicit visibility.
	query := `SELECT ` + profileColumns + ` FROM user_profiles
		WHERE state = 'active' AND deleted_at IS NULL
		ORDER BY id`

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get active profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*UserProfile
	for rows.Next() {
		profile, err := r.scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan active profile: %w", err)
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

func (r *postgresRepository) GetBlockedIDs(ctx context.Context, userID int64) (map[int64]bool, error) {
	// Blocks apply in either direction.
	query := `
		SELECT blocked_id FROM blocks WHERE blocker_id = $1
		UNION
		SELECT blocker_id FROM blocks WHERE blocked_id = $1
	`

	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("get blocked ids: %w", err)
	}
	return idSet(ids), nil
}

// Swipe methods

func (r *postgresRepository) CreateSwipe(ctx context.Context, swipe *SwipeAction) error {
	query := `
		INSERT INTO swipes (actor_id, target_id, direction, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.db.QueryRowxContext(
		ctx, query,
		swipe.ActorID, swipe.TargetID, swipe.Direction, swipe.CreatedAt,
	).Scan(&swipe.ID)
	if err != nil {
		return fmt.Errorf("create swipe: %w", err)
	}
	return nil
}

func (r *postgresRepository) LikeExists(ctx context.Context, actorID, targetID int64) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM swipes
			WHERE actor_id = $1 AND target_id = $2 AND direction = 'like'
		)
	`

	err := r.db.GetContext(ctx, &exists, query, actorID, targetID)
	return exists, err
}

func (r *postgresRepository) SwipeExists(ctx context.Context, actorID, targetID int64) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM swipes WHERE actor_id = $1 AND target_id = $2
		)
	`

	err := r.db.GetContext(ctx, &exists, query, actorID, targetID)
	return exists, err
}

func (r *postgresRepository) InteractedIDs(ctx context.Context, userID int64) (map[int64]bool, error) {
	var ids []int64
	query := `SELECT DISTINCT target_id FROM swipes WHERE actor_id = $1`

	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("get interacted ids: %w", err)
	}
	return idSet(ids), nil
}

func (r *postgresRepository) CountSwipesBetween(ctx context.Context, userID int64, direction SwipeDirection, from, to time.Time) (int, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM swipes
		WHERE actor_id = $1 AND direction = $2
		      AND created_at >= $3 AND created_at < $4
	`

	err := r.db.GetContext(ctx, &count, query, userID, direction, from, to)
	return count, err
}

// Match methods

func (r *postgresRepository) UpsertMatch(ctx context.Context, match *Match) error {
	match.UserAID, match.UserBID = CanonicalPair(match.UserAID, match.UserBID)

	// Concurrent mutual-like processing may race here; the conflict path
	// absorbs the duplicate so only one match row ever exists per pair.
	query := `
		INSERT INTO matches (user_a_id, user_b_id, is_active, matched_at)
		VALUES ($1, $2, TRUE, $3)
		ON CONFLICT (user_a_id, user_b_id)
		DO UPDATE SET is_active = TRUE, unmatched_at = NULL
		RETURNING id, matched_at
	`

	err := r.db.QueryRowxContext(
		ctx, query,
		match.UserAID, match.UserBID, match.MatchedAt,
	).Scan(&match.ID, &match.MatchedAt)
	if err != nil {
		return fmt.Errorf("upsert match: %w", err)
	}
	match.IsActive = true
	return nil
}

func (r *postgresRepository) DeleteSwipeAndMatch(ctx context.Context, swipeID int64, matchID *int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin undo tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM swipes WHERE id = $1`, swipeID)
	if err != nil {
		return fmt.Errorf("delete swipe: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSwipeNotFound
	}

	if matchID != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, *matchID); err != nil {
			return fmt.Errorf("delete match: %w", err)
		}
	}

	return tx.Commit()
}

// Session methods

func (r *postgresRepository) SaveSession(ctx context.Context, session *SwipeSession) error {
	query := `
		INSERT INTO swipe_sessions (
			id, user_id, state, started_at, last_activity, ended_at,
			swipe_count, like_count, pass_count, match_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			state = $3, last_activity = $5, ended_at = $6,
			swipe_count = $7, like_count = $8, pass_count = $9, match_count = $10
	`

	_, err := r.db.ExecContext(
		ctx, query,
		session.ID, session.UserID, session.State, session.StartedAt,
		session.LastActivity, session.EndedAt,
		session.SwipeCount, session.LikeCount, session.PassCount, session.MatchCount,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetActiveSession(ctx context.Context, userID int64) (*SwipeSession, error) {
	var session SwipeSession
	query := `
		SELECT id, user_id, state, started_at, last_activity, ended_at,
		       swipe_count, like_count, pass_count, match_count
		FROM swipe_sessions
		WHERE user_id = $1 AND state = 'active'
		ORDER BY started_at DESC
		LIMIT 1
	`

	err := r.db.GetContext(ctx, &session, query, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active session: %w", err)
	}
	return &session, nil
}

func (r *postgresRepository) ListSessions(ctx context.Context, userID int64, limit int) ([]*SwipeSession, error) {
	var sessions []*SwipeSession
	query := `
		SELECT id, user_id, state, started_at, last_activity, ended_at,
		       swipe_count, like_count, pass_count, match_count
		FROM swipe_sessions
		WHERE user_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	if err := r.db.SelectContext(ctx, &sessions, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

func (r *postgresRepository) EndStaleSessions(ctx context.Context, lastActivityBefore, endedAt time.Time) (int64, error) {
	query := `
		UPDATE swipe_sessions
		SET state = 'ended', ended_at = $2
		WHERE state = 'active' AND last_activity < $1
	`

	res, err := r.db.ExecContext(ctx, query, lastActivityBefore, endedAt)
	if err != nil {
		return 0, fmt.Errorf("end stale sessions: %w", err)
	}
	return res.RowsAffected()
}

func (r *postgresRepository) GetSessionStats(ctx context.Context, userID int64) (*SessionStats, error) {
	var stats SessionStats
	query := `
		SELECT COUNT(*) AS sessions,
		       COALESCE(SUM(swipe_count), 0) AS swipes,
		       COALESCE(SUM(like_count), 0) AS likes,
		       COALESCE(SUM(pass_count), 0) AS passes,
		       COALESCE(SUM(match_count), 0) AS matches
		FROM swipe_sessions
		WHERE user_id = $1
	`

	if err := r.db.GetContext(ctx, &stats, query, userID); err != nil {
		return nil, fmt.Errorf("get session stats: %w", err)
	}
	return &stats, nil
}

// Daily pick methods

func (r *postgresRepository) MarkDailyPickViewed(ctx context.Context, userID int64, pickDate string, viewedAt time.Time) error {
	query := `
		INSERT INTO daily_picks (user_id, pick_date, viewed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, pick_date) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query, userID, pickDate, viewedAt)
	if err != nil {
		return fmt.Errorf("mark daily pick viewed: %w", err)
	}
	return nil
}

func (r *postgresRepository) DailyPickViewed(ctx context.Context, userID int64, pickDate string) (bool, error) {
	var viewed bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM daily_picks WHERE user_id = $1 AND pick_date = $2
		)
	`

	err := r.db.GetContext(ctx, &viewed, query, userID, pickDate)
	return viewed, err
}

// Helpers

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *postgresRepository) scanProfile(row rowScanner) (*UserProfile, error) {
	var p UserProfile
	var interestedIn, interests pq.StringArray
	var dbParams DealbreakerParams
	var dbSmoking, dbDrinking, dbKids, dbLookingFor pq.StringArray

	err := row.Scan(
		&p.ID, &p.DisplayName, &p.Gender, &interestedIn, &p.BirthDate,
		&p.Latitude, &p.Longitude, &p.MaxDistanceKm, &p.MinAge, &p.MaxAge, &p.State,
		&interests,
		&p.Lifestyle.Smoking, &p.Lifestyle.Drinking, &p.Lifestyle.Kids,
		&p.Lifestyle.LookingFor, &p.Lifestyle.HeightCm,
		&p.Pace.MessagingFrequency, &p.Pace.FirstDateTiming,
		&p.Pace.CommunicationStyle, &p.Pace.ConversationDepth,
		&dbSmoking, &dbDrinking, &dbKids, &dbLookingFor,
		&dbParams.MinHeightCm, &dbParams.MaxHeightCm, &dbParams.MaxAgeDiff,
		&p.ResponseRate, &p.Timezone, &p.CreatedAt, &p.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	p.InterestedIn = make([]Gender, 0, len(interestedIn))
	for _, g := range interestedIn {
		p.InterestedIn = append(p.InterestedIn, Gender(g))
	}
	p.Interests = []string(interests)

	dbParams.SmokingOK = []string(dbSmoking)
	dbParams.DrinkingOK = []string(dbDrinking)
	dbParams.KidsOK = []string(dbKids)
	dbParams.LookingForOK = []string(dbLookingFor)
	dealbreakers, err := NewDealbreakerSet(dbParams, r.minHeightCm, r.maxHeightCm)
	if err != nil {
		return nil, fmt.Errorf("stored dealbreakers for user %d: %w", p.ID, err)
	}
	p.Dealbreakers = dealbreakers

	return &p, nil
}

func idSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
