// Package config provides configuration loading and validation for the
// talentboard server and CLI. It uses koanf to merge environment variables
// with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/onnwee/talentboard/internal/validate"
)

// Config holds all configuration values.
type Config struct {
	// Server settings
	Port               int      `koanf:"port"`
	Env                string   `koanf:"env"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// Storage. An empty DatabaseURL selects the in-memory store.
	DatabaseURL string `koanf:"database_url"`
	RedisURL    string `koanf:"redis_url"`

	// Ranking
	SeedOnStart            bool          `koanf:"seed_on_start"`
	LeaderboardSize        int           `koanf:"leaderboard_size"`
	RankingCalibrationPath string        `koanf:"ranking_calibration_path"`
	RecomputeInterval      time.Duration `koanf:"recompute_interval"`
	EvaluateRateLimit      int           `koanf:"evaluate_rate_limit"` // Requests per minute per client; 0 disables

	// Scoring
	ScorerProvider string `koanf:"scorer_provider"`
	GeminiAPIKey   string `koanf:"gemini_api_key"`
	GeminiModel    string `koanf:"gemini_model"`

	// Tracing
	TracingEnabled    bool    `koanf:"tracing_enabled"`
	OTLPEndpoint      string  `koanf:"otlp_endpoint"`
	OTLPExporter      string  `koanf:"otlp_exporter"`
	TracingSampleRate float64 `koanf:"tracing_sample_rate"`

	// ProfilingEnabled mounts /debug/pprof. Rejected in production.
	ProfilingEnabled bool `koanf:"profiling_enabled"`

	// Leaderboard report publishing (S3 or Cloudflare R2)
	ExportBucket          string `koanf:"export_bucket"`
	ExportAccessKeyID     string `koanf:"export_access_key_id"`
	ExportSecretAccessKey string `koanf:"export_secret_access_key"`
	ExportEndpoint        string `koanf:"export_endpoint"`
}

// Configuration validation errors.
var (
	ErrInvalidPort               = errors.New("PORT must be a valid integer")
	ErrInvalidNumber             = errors.New("value must be a valid number")
	ErrInvalidDuration           = errors.New("value must be a valid duration")
	ErrInvalidLeaderboardSize    = errors.New("LEADERBOARD_SIZE must be between 1 and 10")
	ErrInvalidRateLimit          = errors.New("EVALUATE_RATE_LIMIT must not be negative")
	ErrInvalidRecomputeInterval  = errors.New("RECOMPUTE_INTERVAL must be positive")
	ErrUnknownScorerProvider     = errors.New("SCORER_PROVIDER must be random or gemini")
	ErrMissingGeminiAPIKey       = errors.New("GEMINI_API_KEY is required when SCORER_PROVIDER=gemini")
	ErrInvalidSampleRate         = errors.New("TRACING_SAMPLE_RATE must be between 0 and 1")
	ErrUnknownOTLPExporter       = errors.New("OTLP_EXPORTER must be otlp-http or otlp-grpc")
	ErrMissingExportBucket       = errors.New("EXPORT_BUCKET is required")
	ErrMissingExportAccessKeyID  = errors.New("EXPORT_ACCESS_KEY_ID is required")
	ErrMissingExportSecretKey    = errors.New("EXPORT_SECRET_ACCESS_KEY is required")
	ErrInvalidExportEndpoint     = errors.New("EXPORT_ENDPOINT must be an http or https URL")
	ErrInvalidCORSAllowedOrigins = errors.New("CORS_ALLOWED_ORIGINS entries must not be empty")
	ErrProfilingInProduction     = errors.New("PROFILING_ENABLED must not be set in production")
)

// Default values for non-secret configuration.
const (
	DefaultPort              = 8080
	DefaultEnv               = "development"
	DefaultLeaderboardSize   = 10
	MaxLeaderboardSize       = 10
	DefaultRecomputeInterval = 30 * time.Second
	DefaultEvaluateRateLimit = 30
	DefaultScorerProvider    = "random"
	DefaultGeminiModel       = "gemini-2.5-flash"
	DefaultOTLPExporter      = "otlp-http"
	DefaultTracingSampleRate = 0.1
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	collect := func(err error) {
		if err != nil {
			loadErrs = append(loadErrs, err)
		}
	}

	// TALENTBOARD_PORT first, then PORT for platform compatibility
	port, err := getEnvIntOrDefaultMulti([]string{"TALENTBOARD_PORT", "PORT"}, k.Int("port"), DefaultPort)
	if err != nil {
		collect(fmt.Errorf("%w: %w", ErrInvalidPort, err))
	}

	leaderboardSize, err := getEnvIntOrDefault("LEADERBOARD_SIZE", k.Int("leaderboard_size"), DefaultLeaderboardSize)
	collect(err)

	rateLimit := DefaultEvaluateRateLimit
	if k.Exists("evaluate_rate_limit") {
		rateLimit = k.Int("evaluate_rate_limit")
	}
	rateLimit, err = getEnvIntOrDefault("EVALUATE_RATE_LIMIT", rateLimit, rateLimit)
	collect(err)

	interval, err := getEnvDurationOrDefault("RECOMPUTE_INTERVAL", k.String("recompute_interval"), DefaultRecomputeInterval)
	collect(err)

	sampleRate := DefaultTracingSampleRate
	if k.Exists("tracing_sample_rate") {
		sampleRate = k.Float64("tracing_sample_rate")
	}
	sampleRate, err = getEnvFloatOrDefault("TRACING_SAMPLE_RATE", sampleRate, sampleRate)
	collect(err)

	origins := k.Strings("cors_allowed_origins")
	if val := os.Getenv("CORS_ALLOWED_ORIGINS"); val != "" {
		origins = splitList(val)
	}

	cfg := &Config{
		Port:                   port,
		Env:                    getEnvOrDefaultMulti([]string{"TALENTBOARD_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		CORSAllowedOrigins:     origins,
		DatabaseURL:            getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisURL:               getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		SeedOnStart:            getEnvBoolOrKoanf("SEED_ON_START", k, "seed_on_start"),
		LeaderboardSize:        leaderboardSize,
		RankingCalibrationPath: getEnvOrKoanf("RANKING_CALIBRATION_PATH", k, "ranking_calibration_path"),
		RecomputeInterval:      interval,
		EvaluateRateLimit:      rateLimit,
		ScorerProvider:         getEnvOrDefault("SCORER_PROVIDER", k.String("scorer_provider"), DefaultScorerProvider),
		GeminiAPIKey:           getEnvOrKoanf("GEMINI_API_KEY", k, "gemini_api_key"),
		GeminiModel:            getEnvOrDefault("GEMINI_MODEL", k.String("gemini_model"), DefaultGeminiModel),
		TracingEnabled:         getEnvBoolOrKoanf("TRACING_ENABLED", k, "tracing_enabled"),
		OTLPEndpoint:           getEnvOrKoanf("OTLP_ENDPOINT", k, "otlp_endpoint"),
		OTLPExporter:           getEnvOrDefault("OTLP_EXPORTER", k.String("otlp_exporter"), DefaultOTLPExporter),
		TracingSampleRate:      sampleRate,
		ProfilingEnabled:       getEnvBoolOrKoanf("PROFILING_ENABLED", k, "profiling_enabled"),
		ExportBucket:           getEnvOrKoanf("EXPORT_BUCKET", k, "export_bucket"),
		ExportAccessKeyID:      getEnvOrKoanf("EXPORT_ACCESS_KEY_ID", k, "export_access_key_id"),
		ExportSecretAccessKey:  getEnvOrKoanf("EXPORT_SECRET_ACCESS_KEY", k, "export_secret_access_key"),
		ExportEndpoint:         getEnvOrKoanf("EXPORT_ENDPOINT", k, "export_endpoint"),
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ExportEnabled reports whether leaderboard report publishing is configured.
func (c *Config) ExportEnabled() bool {
	return c.ExportBucket != ""
}

// Validate checks configuration values for consistency.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, ErrInvalidPort)
	}
	if c.LeaderboardSize <= 0 || c.LeaderboardSize > MaxLeaderboardSize {
		errs = append(errs, ErrInvalidLeaderboardSize)
	}
	if c.EvaluateRateLimit < 0 {
		errs = append(errs, ErrInvalidRateLimit)
	}
	if c.RecomputeInterval <= 0 {
		errs = append(errs, ErrInvalidRecomputeInterval)
	}

	switch c.ScorerProvider {
	case "random":
	case "gemini":
		if c.GeminiAPIKey == "" {
			errs = append(errs, ErrMissingGeminiAPIKey)
		}
	default:
		errs = append(errs, ErrUnknownScorerProvider)
	}

	if c.TracingSampleRate < 0 || c.TracingSampleRate > 1 {
		errs = append(errs, ErrInvalidSampleRate)
	}
	if c.OTLPExporter != "otlp-http" && c.OTLPExporter != "otlp-grpc" {
		errs = append(errs, ErrUnknownOTLPExporter)
	}

	if c.ProfilingEnabled && c.IsProduction() {
		errs = append(errs, ErrProfilingInProduction)
	}

	for _, origin := range c.CORSAllowedOrigins {
		if strings.TrimSpace(origin) == "" {
			errs = append(errs, ErrInvalidCORSAllowedOrigins)
			break
		}
	}

	// Export configuration is optional. Only validate fields if any export value is set.
	// The endpoint stays optional so plain AWS S3 works.
	if c.ExportBucket != "" || c.ExportAccessKeyID != "" || c.ExportSecretAccessKey != "" || c.ExportEndpoint != "" {
		if c.ExportBucket == "" {
			errs = append(errs, ErrMissingExportBucket)
		}
		if c.ExportAccessKeyID == "" {
			errs = append(errs, ErrMissingExportAccessKeyID)
		}
		if c.ExportSecretAccessKey == "" {
			errs = append(errs, ErrMissingExportSecretKey)
		}
		if c.ExportEndpoint != "" {
			if _, err := validate.ServiceURL(c.ExportEndpoint); err != nil {
				errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidExportEndpoint, err))
			}
		}
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                     strconv.Itoa(c.Port),
		"env":                      c.Env,
		"cors_allowed_origins":     strings.Join(c.CORSAllowedOrigins, ","),
		"database_url":             maskDatabaseURL(c.DatabaseURL),
		"redis_url":                maskDatabaseURL(c.RedisURL),
		"seed_on_start":            strconv.FormatBool(c.SeedOnStart),
		"leaderboard_size":         strconv.Itoa(c.LeaderboardSize),
		"ranking_calibration_path": c.RankingCalibrationPath,
		"recompute_interval":       c.RecomputeInterval.String(),
		"evaluate_rate_limit":      strconv.Itoa(c.EvaluateRateLimit),
		"scorer_provider":          c.ScorerProvider,
		"gemini_api_key":           maskSecret(c.GeminiAPIKey),
		"gemini_model":             c.GeminiModel,
		"tracing_enabled":          strconv.FormatBool(c.TracingEnabled),
		"otlp_endpoint":            c.OTLPEndpoint,
		"otlp_exporter":            c.OTLPExporter,
		"tracing_sample_rate":      strconv.FormatFloat(c.TracingSampleRate, 'f', -1, 64),
		"profiling_enabled":        strconv.FormatBool(c.ProfilingEnabled),
		"export_bucket":            c.ExportBucket,
		"export_access_key_id":     maskSecret(c.ExportAccessKeyID),
		"export_secret_access_key": maskSecret(c.ExportSecretAccessKey),
		"export_endpoint":          c.ExportEndpoint,
	}
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvBoolOrKoanf parses a boolean environment variable, falling back to the koanf value.
// Unrecognized values fall back as well.
func getEnvBoolOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) bool {
	switch strings.ToLower(os.Getenv(envKey)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	return k.Bool(koanfKey)
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return defaultVal, fmt.Errorf("%s: %w", envKey, ErrInvalidNumber)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first valid integer value found, otherwise the koanf value, or default.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if os.Getenv(key) != "" {
			return getEnvIntOrDefault(key, koanfVal, defaultVal)
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if set, otherwise the koanf value, or default.
func getEnvFloatOrDefault(envKey string, koanfVal float64, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return defaultVal, fmt.Errorf("%s: %w", envKey, ErrInvalidNumber)
		}
		return f, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvDurationOrDefault parses a Go duration ("45s", "2m") from env, then koanf, or returns default.
func getEnvDurationOrDefault(envKey string, koanfVal string, defaultVal time.Duration) (time.Duration, error) {
	raw := os.Getenv(envKey)
	if raw == "" {
		raw = koanfVal
	}
	if raw == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return defaultVal, fmt.Errorf("%s: %w", envKey, ErrInvalidDuration)
	}
	return d, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a connection URL.
// Works for postgres://, postgresql:// and redis:// URLs.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}
