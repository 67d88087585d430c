package main

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/onnwee/talentboard/internal/client"
)

const (
	defaultAPIURL  = "http://localhost:8080"
	defaultEnvFile = ".env"
	apiURLEnv      = "TALENTBOARD_API_URL"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	apiURL     string
	configPath string
	envFile    string
	timeout    time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "talentctl",
		Short:        "talentctl manages candidates, evaluations and the leaderboard",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadEnvFile(opts.envFile)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.apiURL, "api", "", "API base URL (default $"+apiURLEnv+" or "+defaultAPIURL+")")
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to YAML configuration file")
	flags.StringVar(&opts.envFile, "env-file", defaultEnvFile, "dotenv file loaded before running")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall command timeout")

	root.AddCommand(
		newCandidatesCmd(opts),
		newEvaluateCmd(opts),
		newLeaderboardCmd(opts),
		newExportCmd(opts),
		newMigrateCmd(opts),
		newSeedCmd(opts),
		newRerankCmd(opts),
	)
	return root
}

// loadEnvFile loads path into the process environment without overriding
// variables that are already set. A missing default file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) && path == defaultEnvFile {
		return nil
	}
	return err
}

// client returns an API client for --api, $TALENTBOARD_API_URL or the default.
func (o *options) client() (*client.Client, error) {
	url := o.apiURL
	if url == "" {
		url = os.Getenv(apiURLEnv)
	}
	if url == "" {
		url = defaultAPIURL
	}
	return client.New(url)
}
