package scoring

import (
	"context"
	"fmt"

	"github.com/onnwee/talentboard/internal/ranking"
)

// Options selects and configures a Scorer.
type Options struct {
	Provider     string
	GeminiAPIKey string
	GeminiModel  string
	Weights      *ranking.Weights
}

// New builds the Scorer named by opts.Provider. An empty provider is random.
func New(ctx context.Context, opts Options) (Scorer, error) {
	switch opts.Provider {
	case "", ProviderRandom:
		return NewRandomScorer(nil, opts.Weights), nil
	case ProviderGemini:
		gen, err := NewGenaiGenerator(ctx, opts.GeminiAPIKey, opts.GeminiModel)
		if err != nil {
			return nil, err
		}
		return NewGeminiScorer(gen, opts.Weights), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, opts.Provider)
	}
}
