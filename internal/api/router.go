package api

import (
	"net/http"
)

// RouterConfig holds the handlers mounted by NewRouter.
type RouterConfig struct {
	Candidates  *CandidateHandlers
	Leaderboard *LeaderboardHandlers
	Health      *HealthHandlers

	// Metrics serves /metrics when set.
	Metrics http.Handler

	// EvaluateLimit wraps POST /api/candidates/{id}/evaluate when set.
	EvaluateLimit func(http.Handler) http.Handler

	// EvaluateIdempotency wraps the evaluate route inside EvaluateLimit when
	// set, so replays still count against the limit.
	EvaluateIdempotency func(http.Handler) http.Handler
}

// NewRouter registers every API route on a new ServeMux.
// Unknown paths get a JSON 404.
func NewRouter(cfg RouterConfig) *http.ServeMux {
	mux := http.NewServeMux()

	evaluate := http.Handler(http.HandlerFunc(cfg.Candidates.EvaluateCandidate))
	if cfg.EvaluateIdempotency != nil {
		evaluate = cfg.EvaluateIdempotency(evaluate)
	}
	if cfg.EvaluateLimit != nil {
		evaluate = cfg.EvaluateLimit(evaluate)
	}

	mux.HandleFunc("GET /api/candidates", cfg.Candidates.ListCandidates)
	mux.HandleFunc("POST /api/candidates", cfg.Candidates.CreateCandidate)
	mux.HandleFunc("GET /api/candidates/{id}", cfg.Candidates.GetCandidate)
	mux.HandleFunc("GET /api/candidates/{id}/evaluations", cfg.Candidates.ListEvaluations)
	mux.Handle("POST /api/candidates/{id}/evaluate", evaluate)
	mux.HandleFunc("GET /api/leaderboard", cfg.Candidates.Leaderboard)

	if cfg.Leaderboard != nil {
		mux.HandleFunc("GET /api/leaderboard/export", cfg.Leaderboard.ExportLeaderboard)
		mux.HandleFunc("GET /api/leaderboard/ws", cfg.Leaderboard.StreamLeaderboard)
	}

	if cfg.Health != nil {
		mux.HandleFunc("GET /health", cfg.Health.Health)
		mux.HandleFunc("GET /ready", cfg.Health.Ready)
	}

	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "The requested resource was not found")
	})

	return mux
}
