// Package client is a typed HTTP client for the talentboard API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/onnwee/talentboard/internal/candidate"
	"github.com/onnwee/talentboard/internal/validate"
)

const (
	contentType    = "application/json"
	userAgent      = "talentctl"
	defaultTimeout = 10 * time.Second
	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 64 << 10
)

// ErrNotFound is matched by errors.Is for 404 responses.
var ErrNotFound = errors.New("not found")

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Is reports ErrNotFound for 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client talks to a talentboard API server.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	baseURL    *url.URL
}

// New creates a Client for the API rooted at baseURL, e.g. http://localhost:8080.
func New(baseURL string) (*Client, error) {
	checked, err := validate.ServiceURL(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", baseURL, err)
	}
	u, err := url.Parse(strings.TrimRight(checked, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api url: %w", err)
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: defaultTimeout},
		UserAgent:  userAgent,
		baseURL:    u,
	}, nil
}

// CreateCandidateInput is the body of a create request.
type CreateCandidateInput struct {
	Name            string   `json:"name"`
	YearsExperience int      `json:"yearsExperience"`
	Skills          []string `json:"skills"`
}

// ListCandidates returns every candidate with its current ranking and evaluation.
func (c *Client) ListCandidates(ctx context.Context) ([]candidate.Profile, error) {
	var out []candidate.Profile
	if err := c.do(ctx, http.MethodGet, "/api/candidates", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCandidate returns one candidate. A missing candidate yields an error
// matching ErrNotFound.
func (c *Client) GetCandidate(ctx context.Context, id int64) (*candidate.Profile, error) {
	var out candidate.Profile
	if err := c.do(ctx, http.MethodGet, candidatePath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateCandidate adds a candidate.
func (c *Client) CreateCandidate(ctx context.Context, in CreateCandidateInput) (*candidate.Candidate, error) {
	var out candidate.Candidate
	if err := c.do(ctx, http.MethodPost, "/api/candidates", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListEvaluations returns a candidate's evaluation history, newest first.
func (c *Client) ListEvaluations(ctx context.Context, id int64) ([]candidate.Evaluation, error) {
	var out []candidate.Evaluation
	if err := c.do(ctx, http.MethodGet, candidatePath(id)+"/evaluations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Evaluate scores a candidate and triggers a re-rank.
func (c *Client) Evaluate(ctx context.Context, id int64) (*candidate.Evaluation, error) {
	var out candidate.Evaluation
	if err := c.do(ctx, http.MethodPost, candidatePath(id)+"/evaluate", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Leaderboard returns the top ranked candidates.
func (c *Client) Leaderboard(ctx context.Context) ([]candidate.Profile, error) {
	var out []candidate.Profile
	if err := c.do(ctx, http.MethodGet, "/api/leaderboard", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExportLeaderboard downloads the leaderboard workbook.
func (c *Client) ExportLeaderboard(ctx context.Context) ([]byte, error) {
	resp, err := c.send(ctx, http.MethodGet, "/api/leaderboard/export", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read export: %w", err)
	}
	return data, nil
}

func candidatePath(id int64) string {
	return "/api/candidates/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// send performs the request and converts non-2xx responses into *APIError.
// The caller closes the body of a successful response.
func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", contentType)
	req.Header.Set("User-Agent", c.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	apiErr := &APIError{StatusCode: resp.StatusCode}
	var payload struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Message != "" {
		apiErr.Message, apiErr.Code = payload.Message, payload.Code
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return nil, apiErr
}
