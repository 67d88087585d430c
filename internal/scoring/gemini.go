package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/onnwee/talentboard/internal/candidate"
	"github.com/onnwee/talentboard/internal/ranking"
)

const defaultGeminiModel = "gemini-2.5-flash"

var (
	// ErrMissingAPIKey is returned when the Gemini scorer has no API key.
	ErrMissingAPIKey = errors.New("gemini api key is required")

	// ErrMalformedResponse is returned when the model reply has no usable scores.
	ErrMalformedResponse = errors.New("malformed scoring response")
)

// Generator sends a prompt to a language model and returns its text reply.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// GenaiGenerator is a Generator backed by the Gemini API.
type GenaiGenerator struct {
	client    *genai.Client
	modelName string
}

// NewGenaiGenerator creates a Generator for the Gemini API backend.
// An empty model uses gemini-2.5-flash.
func NewGenaiGenerator(ctx context.Context, apiKey, model string) (*GenaiGenerator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultGeminiModel
	}
	return &GenaiGenerator{client: client, modelName: model}, nil
}

// GenerateContent sends prompt and returns the concatenated text parts of the reply.
func (g *GenaiGenerator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || strings.TrimSpace(part.Text) == "" {
				continue
			}
			builder.WriteString(part.Text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}
	return output, nil
}

// Model returns the configured model name.
func (g *GenaiGenerator) Model() string {
	return g.modelName
}

// GeminiScorer asks a language model for the three sub-scores.
type GeminiScorer struct {
	gen     Generator
	weights *ranking.Weights
}

// NewGeminiScorer creates a scorer over gen. A nil weights uses the defaults.
func NewGeminiScorer(gen Generator, weights *ranking.Weights) *GeminiScorer {
	if weights == nil {
		weights = ranking.DefaultWeights()
	}
	return &GeminiScorer{gen: gen, weights: weights}
}

type modelScores struct {
	CrisisScore         *int   `json:"crisisScore"`
	SustainabilityScore *int   `json:"sustainabilityScore"`
	MotivationScore     *int   `json:"motivationScore"`
	Feedback            string `json:"feedback"`
}

// Score prompts the model and parses its JSON reply. Sub-scores are clamped
// to 0-100; the overall score is computed locally.
func (s *GeminiScorer) Score(ctx context.Context, c *candidate.Candidate) (Result, error) {
	reply, err := s.gen.GenerateContent(ctx, buildPrompt(c))
	if err != nil {
		return Result{}, fmt.Errorf("failed to get model response: %w", err)
	}

	parsed, err := parseModelScores(reply)
	if err != nil {
		return Result{}, err
	}

	return finish(Result{
		CrisisScore:         clamp(*parsed.CrisisScore),
		SustainabilityScore: clamp(*parsed.SustainabilityScore),
		MotivationScore:     clamp(*parsed.MotivationScore),
		Feedback:            strings.TrimSpace(parsed.Feedback),
	}, s.weights), nil
}

func buildPrompt(c *candidate.Candidate) string {
	var sb strings.Builder

	sb.WriteString("You are evaluating a candidate for a shift lead role at a recycling plant.\n\n")
	sb.WriteString("## CANDIDATE\n")
	sb.WriteString(fmt.Sprintf("Name: %s\n", c.Name))
	sb.WriteString(fmt.Sprintf("Years of experience: %d\n", c.YearsExperience))
	sb.WriteString("Skills:\n")
	for _, skill := range c.Skills {
		sb.WriteString(fmt.Sprintf("- %s\n", skill))
	}

	sb.WriteString("\n## INSTRUCTIONS\n")
	sb.WriteString("Score the candidate from 0 to 100 on each dimension:\n")
	sb.WriteString("- crisisScore: crisis management and safety incident response\n")
	sb.WriteString("- sustainabilityScore: sustainability and waste-stream knowledge\n")
	sb.WriteString("- motivationScore: ability to motivate a team under pressure\n\n")
	sb.WriteString("Reply with this JSON object only:\n")
	sb.WriteString(`{"crisisScore": <0-100>, "sustainabilityScore": <0-100>, "motivationScore": <0-100>, "feedback": "<two sentences>"}` + "\n")

	return sb.String()
}

// parseModelScores extracts the JSON object from reply, tolerating prose or
// code fences around it.
func parseModelScores(reply string) (modelScores, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start == -1 || end < start {
		return modelScores{}, fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
	}

	var parsed modelScores
	if err := json.Unmarshal([]byte(reply[start:end+1]), &parsed); err != nil {
		return modelScores{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if parsed.CrisisScore == nil || parsed.SustainabilityScore == nil || parsed.MotivationScore == nil {
		return modelScores{}, fmt.Errorf("%w: missing sub-score", ErrMalformedResponse)
	}
	return parsed, nil
}

func clamp(v int) int {
	return min(max(v, 0), 100)
}
