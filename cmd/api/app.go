package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/onnwee/talentboard/internal/api"
	"github.com/onnwee/talentboard/internal/candidate"
	"github.com/onnwee/talentboard/internal/config"
	"github.com/onnwee/talentboard/internal/db"
	"github.com/onnwee/talentboard/internal/evaluation"
	"github.com/onnwee/talentboard/internal/health"
	"github.com/onnwee/talentboard/internal/idempotency"
	"github.com/onnwee/talentboard/internal/jobs"
	"github.com/onnwee/talentboard/internal/live"
	"github.com/onnwee/talentboard/internal/middleware"
	"github.com/onnwee/talentboard/internal/ranking"
	"github.com/onnwee/talentboard/internal/scoring"
	"github.com/onnwee/talentboard/internal/seed"
	"github.com/onnwee/talentboard/internal/tracing"
	"github.com/onnwee/talentboard/migrations"
)

const serviceName = "talentboard-api"

// cleanupInterval is how often expired in-memory rate limit windows and
// idempotency records are dropped.
const cleanupInterval = time.Minute

// app holds the wired dependencies of the API server.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	tracer      *tracing.Provider
	conn        *sql.DB
	redis       *redis.Client
	repo        candidate.Repository
	scorer      scoring.Scorer
	service     *evaluation.Service
	broadcaster *live.Broadcaster
	recompute   *evaluation.RecomputeJob
	jobMetrics  *jobs.Metrics
	memLimits   *middleware.InMemoryRateLimitStore
	memReplays  *idempotency.InMemoryStore

	handler http.Handler

	stopBackground context.CancelFunc
}

// newApp wires storage, scoring, metrics and HTTP routes from cfg.
// An empty DatabaseURL selects the in-memory store; an empty RedisURL keeps
// rate limits in process.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	a.tracer, err = tracing.NewProvider(ctx, tracing.Config{
		ServiceName:  serviceName,
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.OTLPExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplingRate: cfg.TracingSampleRate,
		InsecureMode: !cfg.IsProduction(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	var checkers []api.HealthChecker
	if cfg.DatabaseURL != "" {
		a.conn, err = db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		applied, err := db.Migrate(ctx, a.conn, migrations.FS)
		if err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		logger.Info("database ready", "migrations_applied", applied)

		latest, err := latestMigration()
		if err != nil {
			return nil, err
		}
		a.repo = candidate.NewPostgresRepository(a.conn)
		checkers = append(checkers, health.NewDBChecker(a.conn, latest))
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		a.repo = candidate.NewInMemoryRepository()
	}

	weights, err := ranking.LoadCalibration(cfg.RankingCalibrationPath)
	if err != nil {
		// The defaults are returned alongside the error.
		logger.Warn("failed to load ranking calibration, using default weights",
			"path", cfg.RankingCalibrationPath, "error", err)
	}

	a.scorer, err = scoring.New(ctx, scoring.Options{
		Provider:     cfg.ScorerProvider,
		GeminiAPIKey: cfg.GeminiAPIKey,
		GeminiModel:  cfg.GeminiModel,
		Weights:      weights,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create scorer: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := middleware.NewMetrics()
	evalMetrics := evaluation.NewMetrics()
	a.jobMetrics = jobs.NewMetrics()
	if err := errors.Join(
		httpMetrics.Register(registry),
		evalMetrics.Register(registry),
		a.jobMetrics.Register(registry),
	); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	a.broadcaster = live.NewBroadcaster(live.DefaultWriteTimeout)
	a.service = evaluation.NewService(a.repo, a.scorer, evaluation.Config{
		LeaderboardSize: cfg.LeaderboardSize,
		Metrics:         evalMetrics,
		Publisher:       a.broadcaster,
		Logger:          logger,
	})
	a.recompute = evaluation.NewRecomputeJob(evaluation.RecomputeJobConfig{
		Interval:   cfg.RecomputeInterval,
		Logger:     logger,
		JobMetrics: a.jobMetrics,
	}, a.service)

	var (
		limitStore  middleware.RateLimitStore
		replayStore idempotency.Store
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		a.redis = redis.NewClient(opts)
		limitStore = middleware.NewRedisRateLimitStore(a.redis).WithMetrics(httpMetrics)
		replayStore = idempotency.NewRedisStore(a.redis)
		checkers = append(checkers, health.NewRedisChecker(a.redis))
	} else {
		a.memLimits = middleware.NewInMemoryRateLimitStore()
		a.memReplays = idempotency.NewInMemoryStore()
		limitStore, replayStore = a.memLimits, a.memReplays
	}

	var evaluateLimit func(http.Handler) http.Handler
	if cfg.EvaluateRateLimit > 0 {
		limitCfg := middleware.DefaultEvaluateLimit()
		limitCfg.RequestsPerWindow = cfg.EvaluateRateLimit
		evaluateLimit = middleware.RateLimiter(limitStore, limitCfg, middleware.IPKeyFunc(), httpMetrics)
	}

	mux := api.NewRouter(api.RouterConfig{
		Candidates:  api.NewCandidateHandlers(a.repo, a.service),
		Leaderboard: api.NewLeaderboardHandlers(a.service, a.broadcaster, cfg.CORSAllowedOrigins),
		Health: api.NewHealthHandlers(api.HealthHandlersConfig{
			Checkers:   checkers,
			RanksDirty: a.service.Dirty,
		}),
		Metrics:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		EvaluateLimit:       evaluateLimit,
		EvaluateIdempotency: middleware.Idempotency(replayStore),
	})

	// Request flow: Tracing -> RequestID -> Logging -> HTTPMetrics -> CORS -> Profiling -> routes
	handler := middleware.Profiling(cfg.ProfilingEnabled, cfg.Env)(mux)
	handler = middleware.CORS(middleware.DashboardCORSConfig(cfg.CORSAllowedOrigins))(handler)
	handler = middleware.HTTPMetrics(httpMetrics)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(handler)
	if a.tracer.IsEnabled() {
		handler = middleware.Tracing(serviceName)(handler)
	}
	a.handler = handler

	return a, nil
}

// start seeds an empty store when configured and launches background jobs.
func (a *app) start(ctx context.Context) error {
	if a.cfg.SeedOnStart {
		result, err := seed.New(a.repo, a.scorer, a.service, seed.Config{
			Logger:     a.logger,
			JobMetrics: a.jobMetrics,
		}).Run(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed candidates: %w", err)
		}
		a.logger.Info("seed finished",
			"skipped", result.Skipped,
			"created", result.Created,
			"evaluated", result.Evaluated)
	}

	a.recompute.Start(ctx)

	if a.memLimits != nil {
		bg, cancel := context.WithCancel(ctx)
		a.stopBackground = cancel
		go a.cleanupRateLimits(bg)
		go idempotency.RunPeriodicCleanup(bg, a.memReplays, cleanupInterval)
	}
	return nil
}

func (a *app) cleanupRateLimits(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.memLimits.Cleanup()
		case <-ctx.Done():
			return
		}
	}
}

// close stops background work and releases connections. Safe to call on a
// partially built app.
func (a *app) close() {
	if a.stopBackground != nil {
		a.stopBackground()
	}
	if a.recompute != nil {
		a.recompute.Stop()
	}
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Error("failed to shutdown tracer", "error", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("failed to close redis client", "error", err)
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close database", "error", err)
		}
	}
}

// latestMigration returns the newest embedded schema version.
func latestMigration() (int, error) {
	ms, err := db.LoadMigrations(migrations.FS)
	if err != nil {
		return 0, fmt.Errorf("failed to load migrations: %w", err)
	}
	if len(ms) == 0 {
		return 0, errors.New("no embedded migrations")
	}
	return ms[len(ms)-1].Version, nil
}
