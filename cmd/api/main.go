// cmd/api/main.go
// Main entry point for the discovery service
// Bootstraps all components and starts the server

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/TomShtern/Date-Program-sub004/internal/common/clock"
	"github.com/TomShtern/Date-Program-sub004/internal/common/database"
	"github.com/TomShtern/Date-Program-sub004/internal/config"
	"github.com/TomShtern/Date-Program-sub004/internal/discovery"
)

func main() {
	// 1. Load environment variables
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	// 2. Load and validate configuration
	cfg := config.Load()

	log := newLogger(cfg)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("configuration validation failed")
	}
	log.Info().Str("environment", cfg.Environment).Msg("configuration loaded")

	// 3. Connect to PostgreSQL
	sqlDB, err := database.NewPostgresDBFromURL(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
	}
	defer sqlDB.Close()
	db := sqlx.NewDb(sqlDB, "postgres")
	log.Info().Msg("connected to PostgreSQL")

	// 4. Connect to Redis (optional, backs the undo store)
	var redisClient *redis.Client
	if cfg.UseRedis {
		redisClient, err = database.NewRedisClientFromURL(cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, falling back to in-memory undo store")
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Info().Msg("connected to Redis")
		}
	}

	// 5. Run database migrations
	if err := runMigrations(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().Msg("database migrations completed")

	// 6. Wire the discovery module
	clk := clock.System()

	weights, err := discovery.NewScoringWeights(discovery.ScoringWeights{
		Distance:  cfg.WeightDistance,
		Age:       cfg.WeightAge,
		Interests: cfg.WeightInterests,
		Lifestyle: cfg.WeightLifestyle,
		Pace:      cfg.WeightPace,
		Response:  cfg.WeightResponseRate,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid scoring weights")
	}

	repo := discovery.NewPostgresRepository(db, cfg.MinHeightCm, cfg.MaxHeightCm)
	filter := discovery.NewCandidateFilter(clk)
	scorer := discovery.NewScorer(weights, cfg.MaxAgeGapYears, cfg.LowCompatibilityThreshold, clk)

	daily := discovery.NewDailyService(repo, filter, scorer, clk, discovery.DailyConfig{
		LikeLimit:       cfg.DailyLikeLimit,
		PassLimit:       cfg.DailyPassLimit,
		DefaultTimezone: cfg.DefaultTimezone,
	})

	var undoStore discovery.UndoStore
	if redisClient != nil {
		undoStore = discovery.NewRedisUndoStore(redisClient, clk, cfg.UndoWindow)
	} else {
		undoStore = discovery.NewMemoryUndoStore()
	}
	undo := discovery.NewUndoService(undoStore, repo, clk, cfg.UndoWindow)

	sessions := discovery.NewSessionTracker(repo, clk, discovery.SessionConfig{
		Timeout:           cfg.SessionTimeout,
		MaxSwipes:         cfg.SessionMaxSwipes,
		VelocityThreshold: cfg.SessionVelocityThreshold,
	})

	service := discovery.NewService(repo, filter, scorer, daily, undo, sessions, clk, log)
	handler := discovery.NewHandler(service, scorer)
	log.Info().Msg("discovery module initialized")

	// 7. Start the stale session sweep
	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	defer cancelSweep()
	scheduler := discovery.NewScheduler(service, cfg.SessionSweepInterval, log)
	scheduler.Start(sweepCtx)

	// 8. Setup routes
	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	discovery.RegisterRoutes(router, handler)

	router.Use(requestLogger(log))

	// 9. Create and start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutdown signal received")
	cancelSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exited gracefully")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	if cfg.IsDevelopment() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

// healthCheck returns server health status
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":%q}`, time.Now().Format(time.RFC3339))
}

// requestLogger logs all requests with method, path, status and duration
func requestLogger(log zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.statusCode).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// runMigrations executes database migrations
func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS user_profiles (
			id BIGSERIAL PRIMARY KEY,
			display_name VARCHAR(100) NOT NULL,
			gender VARCHAR(20) NOT NULL,
			interested_in TEXT[] NOT NULL DEFAULT '{}',
			birth_date DATE NOT NULL,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			max_distance_km DOUBLE PRECISION NOT NULL DEFAULT 50,
			min_age INTEGER NOT NULL DEFAULT 18,
			max_age INTEGER NOT NULL DEFAULT 100,
			state VARCHAR(20) NOT NULL DEFAULT 'incomplete',
			interests TEXT[] NOT NULL DEFAULT '{}',
			smoking VARCHAR(30),
			drinking VARCHAR(30),
			kids VARCHAR(30),
			looking_for VARCHAR(30),
			height_cm INTEGER,
			messaging_frequency VARCHAR(30),
			first_date_timing VARCHAR(30),
			communication_style VARCHAR(30),
			conversation_depth VARCHAR(30),
			db_smoking_ok TEXT[] NOT NULL DEFAULT '{}',
			db_drinking_ok TEXT[] NOT NULL DEFAULT '{}',
			db_kids_ok TEXT[] NOT NULL DEFAULT '{}',
			db_looking_for_ok TEXT[] NOT NULL DEFAULT '{}',
			db_min_height_cm INTEGER,
			db_max_height_cm INTEGER,
			db_max_age_diff INTEGER,
			response_rate DOUBLE PRECISION,
			timezone VARCHAR(64) NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			deleted_at TIMESTAMP WITH TIME ZONE
		)`,

		`CREATE TABLE IF NOT EXISTS blocks (
			blocker_id BIGINT NOT NULL REFERENCES user_profiles(id) ON DELETE CASCADE,
			blocked_id BIGINT NOT NULL REFERENCES user_profiles(id) ON DELETE CASCADE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (blocker_id, blocked_id)
		)`,

		`CREATE TABLE IF NOT EXISTS swipes (
			id BIGSERIAL PRIMARY KEY,
			actor_id BIGINT NOT NULL REFERENCES user_profiles(id) ON DELETE CASCADE,
			target_id BIGINT NOT NULL REFERENCES user_profiles(id) ON DELETE CASCADE,
			direction VARCHAR(10) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT unique_swipe UNIQUE(actor_id, target_id)
		)`,

		`CREATE TABLE IF NOT EXISTS matches (
			id BIGSERIAL PRIMARY KEY,
			user_a_id BIGINT NOT NULL REFERENCES user_profiles(id) ON DELETE CASCADE,
			user_b_id BIGINT NOT NULL REFERENCES user_profiles(id) ON DELETE CASCADE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			matched_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			unmatched_at TIMESTAMP WITH TIME ZONE,
			CONSTRAINT unique_match_pair UNIQUE(user_a_id, user_b_id),
			CONSTRAINT canonical_match_pair CHECK (user_a_id < user_b_id)
		)`,

		`CREATE TABLE IF NOT EXISTS swipe_sessions (
			id UUID PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES user_profiles(id) ON DELETE CASCADE,
			state VARCHAR(10) NOT NULL DEFAULT 'active',
			started_at TIMESTAMP WITH TIME ZONE NOT NULL,
			last_activity TIMESTAMP WITH TIME ZONE NOT NULL,
			ended_at TIMESTAMP WITH TIME ZONE,
			swipe_count INTEGER NOT NULL DEFAULT 0,
			like_count INTEGER NOT NULL DEFAULT 0,
			pass_count INTEGER NOT NULL DEFAULT 0,
			match_count INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS daily_picks (
			user_id BIGINT NOT NULL REFERENCES user_profiles(id) ON DELETE CASCADE,
			pick_date DATE NOT NULL,
			viewed_at TIMESTAMP WITH TIME ZONE NOT NULL,
			PRIMARY KEY (user_id, pick_date)
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_user_profiles_state ON user_profiles(state) WHERE deleted_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_swipes_actor ON swipes(actor_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_swipes_target ON swipes(target_id, direction)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user_state ON swipe_sessions(user_id, state, started_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_stale ON swipe_sessions(last_activity) WHERE state = 'active'`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
