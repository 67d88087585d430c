package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/onnwee/talentboard/internal/client"
	"github.com/onnwee/talentboard/internal/config"
	"github.com/onnwee/talentboard/internal/export"
)

func newCandidatesCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "candidates",
		Aliases: []string{"c"},
		Short:   "List, show and add candidates",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every candidate with its current score and rank",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel, c, err := opts.remote(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			profiles, err := c.ListCandidates(ctx)
			if err != nil {
				return err
			}
			renderCandidates(cmd.OutOrStdout(), profiles)
			return nil
		},
	}

	var history bool
	show := &cobra.Command{
		Use:   "show ID",
		Short: "Show a candidate with sub-score bars",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel, c, err := opts.remote(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			profile, err := c.GetCandidate(ctx, id)
			if err != nil {
				return err
			}
			renderCandidate(cmd.OutOrStdout(), profile)

			if history {
				evals, err := c.ListEvaluations(ctx, id)
				if err != nil {
					return err
				}
				renderEvaluations(cmd.OutOrStdout(), evals)
			}
			return nil
		},
	}
	show.Flags().BoolVar(&history, "history", false, "also print every past evaluation")

	var in client.CreateCandidateInput
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a candidate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel, c, err := opts.remote(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			created, err := c.CreateCandidate(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created candidate %d (%s)\n", created.ID, created.Name)
			return nil
		},
	}
	add.Flags().StringVar(&in.Name, "name", "", "candidate name")
	add.Flags().IntVar(&in.YearsExperience, "years", 0, "years of experience")
	add.Flags().StringSliceVar(&in.Skills, "skills", nil, "comma-separated skills")
	_ = add.MarkFlagRequired("name")
	_ = add.MarkFlagRequired("skills")

	cmd.AddCommand(list, show, add)
	return cmd
}

func newEvaluateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate ID",
		Short: "Score a candidate and re-rank everyone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel, c, err := opts.remote(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			eval, err := c.Evaluate(ctx, id)
			if err != nil {
				return err
			}
			renderEvaluation(cmd.OutOrStdout(), eval)
			return nil
		},
	}
}

func newLeaderboardCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "leaderboard",
		Aliases: []string{"top"},
		Short:   "Show the top ranked candidates",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel, c, err := opts.remote(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			board, err := c.Leaderboard(ctx)
			if err != nil {
				return err
			}
			renderLeaderboard(cmd.OutOrStdout(), board)
			return nil
		},
	}
}

func newExportCmd(opts *options) *cobra.Command {
	var (
		out     string
		publish bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the leaderboard as an Excel workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel, c, err := opts.remote(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			data, err := c.ExportLeaderboard(ctx)
			if err != nil {
				return err
			}

			if out == "" {
				out = "leaderboard-" + time.Now().UTC().Format("20060102-150405") + ".xlsx"
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(data))

			if !publish {
				return nil
			}
			published, err := publishExport(ctx, opts, data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published s3://%s/%s\n%s\nlink expires %s\n",
				published.Bucket, published.Key, published.URL, published.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default leaderboard-<timestamp>.xlsx)")
	cmd.Flags().BoolVar(&publish, "publish", false, "upload the workbook to the configured export bucket")
	return cmd
}

func publishExport(ctx context.Context, opts *options, data []byte) (*export.Published, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	if !cfg.ExportEnabled() {
		return nil, config.ErrMissingExportBucket
	}
	publisher, err := export.NewPublisher(export.PublisherConfig{
		BucketName:      cfg.ExportBucket,
		AccessKeyID:     cfg.ExportAccessKeyID,
		SecretAccessKey: cfg.ExportSecretAccessKey,
		Endpoint:        cfg.ExportEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}
	return publisher.Publish(ctx, data)
}

// remote returns a context bounded by --timeout and an API client.
func (o *options) remote(cmd *cobra.Command) (context.Context, context.CancelFunc, *client.Client, error) {
	c, err := o.client()
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	return ctx, cancel, c, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid candidate id %q", s)
	}
	return id, nil
}
