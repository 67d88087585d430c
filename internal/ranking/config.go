package ranking

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
)

// ErrInvalidWeights is returned when a weight set is negative or does not sum to 1.
var ErrInvalidWeights = errors.New("invalid ranking weights")

// Weights defines how much each evaluation sub-score contributes to the overall score.
type Weights struct {
	Crisis         float64 `json:"crisis_management"` // default: 0.4
	Sustainability float64 `json:"sustainability"`    // default: 0.3
	Motivation     float64 `json:"team_motivation"`   // default: 0.3
}

// CalibrationConfig represents the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string  `json:"version"`
	Weights Weights `json:"weights"`
}

// DefaultWeights returns the default 40/30/30 weighting.
//
// Formula: overall = (crisis * 0.4) + (sustainability * 0.3) + (motivation * 0.3)
func DefaultWeights() *Weights {
	return &Weights{
		Crisis:         0.4,
		Sustainability: 0.3,
		Motivation:     0.3,
	}
}

// Validate checks that every weight is non-negative and that they sum to 1.
func (w *Weights) Validate() error {
	if w.Crisis < 0 || w.Sustainability < 0 || w.Motivation < 0 {
		return fmt.Errorf("%w: weights must be non-negative", ErrInvalidWeights)
	}
	sum := w.Crisis + w.Sustainability + w.Motivation
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("%w: weights sum to %.4f, expected 1.0", ErrInvalidWeights, sum)
	}
	return nil
}

// LoadCalibration loads ranking weights from a JSON calibration file.
// An empty path returns the defaults. On any read, parse or validation error
// the defaults are returned together with the error.
func LoadCalibration(filePath string) (*Weights, error) {
	if filePath == "" {
		return DefaultWeights(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	defaults := DefaultWeights()
	merged := MergeCalibration(defaults, &config.Weights)
	if err := merged.Validate(); err != nil {
		slog.Warn("calibration file produced invalid weights, using defaults",
			"path", filePath,
			"error", err)
		return defaults, err
	}
	logCalibrationOverrides(defaults, merged)

	return merged, nil
}

// MergeCalibration merges override weights onto base weights.
// Only non-zero override values are applied, so partial files are allowed.
func MergeCalibration(base *Weights, override *Weights) *Weights {
	if base == nil {
		return DefaultWeights()
	}
	result := *base
	if override == nil {
		return &result
	}

	if override.Crisis != 0 {
		result.Crisis = override.Crisis
	}
	if override.Sustainability != 0 {
		result.Sustainability = override.Sustainability
	}
	if override.Motivation != 0 {
		result.Motivation = override.Motivation
	}

	return &result
}

func logCalibrationOverrides(defaults *Weights, loaded *Weights) {
	var overrides []string

	if loaded.Crisis != defaults.Crisis {
		overrides = append(overrides, fmt.Sprintf("crisis_management: %.2f -> %.2f", defaults.Crisis, loaded.Crisis))
	}
	if loaded.Sustainability != defaults.Sustainability {
		overrides = append(overrides, fmt.Sprintf("sustainability: %.2f -> %.2f", defaults.Sustainability, loaded.Sustainability))
	}
	if loaded.Motivation != defaults.Motivation {
		overrides = append(overrides, fmt.Sprintf("team_motivation: %.2f -> %.2f", defaults.Motivation, loaded.Motivation))
	}

	if len(overrides) > 0 {
		slog.Warn("ranking calibration replaces the 0.4/0.3/0.3 overall score weights", "overrides", overrides)
	} else {
		slog.Info("loaded ranking calibration (using all defaults)")
	}
}
