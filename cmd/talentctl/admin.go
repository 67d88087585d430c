package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/onnwee/talentboard/internal/candidate"
	"github.com/onnwee/talentboard/internal/config"
	"github.com/onnwee/talentboard/internal/db"
	"github.com/onnwee/talentboard/internal/evaluation"
	"github.com/onnwee/talentboard/internal/ranking"
	"github.com/onnwee/talentboard/internal/scoring"
	"github.com/onnwee/talentboard/internal/seed"
	"github.com/onnwee/talentboard/migrations"
)

var errNoDatabase = errors.New("DATABASE_URL is required for this command")

func loadConfig(opts *options) (*config.Config, error) {
	cfg, errs := config.Load(opts.configPath)
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// cliLogger sends warnings and errors to stderr so tables on stdout stay clean.
func cliLogger(cmd *cobra.Command) *slog.Logger {
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// store is a direct database connection with the evaluation service on top.
type store struct {
	conn    *sql.DB
	repo    candidate.Repository
	scorer  scoring.Scorer
	service *evaluation.Service
}

func openStore(ctx context.Context, cmd *cobra.Command, opts *options) (*store, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, errNoDatabase
	}
	logger := cliLogger(cmd)

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	weights, err := ranking.LoadCalibration(cfg.RankingCalibrationPath)
	if err != nil {
		logger.Warn("using default ranking weights", "error", err)
	}
	scorer, err := scoring.New(ctx, scoring.Options{
		Provider:     cfg.ScorerProvider,
		GeminiAPIKey: cfg.GeminiAPIKey,
		GeminiModel:  cfg.GeminiModel,
		Weights:      weights,
	})
	if err != nil {
		conn.Close()
		return nil, err
	}

	repo := candidate.NewPostgresRepository(conn)
	return &store{
		conn:   conn,
		repo:   repo,
		scorer: scorer,
		service: evaluation.NewService(repo, scorer, evaluation.Config{
			LeaderboardSize: cfg.LeaderboardSize,
			Logger:          logger,
		}),
	}, nil
}

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errNoDatabase
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			conn, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer conn.Close()

			applied, err := db.Migrate(ctx, conn, migrations.FS)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", applied)
			return nil
		},
	}
}

func newSeedCmd(opts *options) *cobra.Command {
	var fraction float64
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert and evaluate sample candidates into an empty database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			s, err := openStore(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer s.conn.Close()

			result, err := seed.New(s.repo, s.scorer, s.service, seed.Config{
				EvaluateFraction: fraction,
				Logger:           cliLogger(cmd),
			}).Run(ctx)
			if err != nil {
				return err
			}
			if result.Skipped {
				fmt.Fprintln(cmd.OutOrStdout(), "database already has candidates, nothing seeded")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d, evaluated %d, ranked %d\n",
				result.Created, result.Evaluated, result.Ranked)
			return nil
		},
	}
	cmd.Flags().Float64Var(&fraction, "evaluate-fraction", seed.DefaultEvaluateFraction, "share of seeded candidates to evaluate")
	return cmd
}

func newRerankCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rerank",
		Short: "Recompute every rank from stored overall scores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			s, err := openStore(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer s.conn.Close()

			ranked, err := s.service.Recompute(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ranked %d candidate(s)\n", len(ranked))

			board, err := s.service.Leaderboard(ctx)
			if err != nil {
				return err
			}
			renderLeaderboard(cmd.OutOrStdout(), derefProfiles(board))
			return nil
		},
	}
}

func derefProfiles(ps []*candidate.Profile) []candidate.Profile {
	out := make([]candidate.Profile, 0, len(ps))
	for _, p := range ps {
		out = append(out, *p)
	}
	return out
}
