package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/onnwee/talentboard/internal/candidate"
	"github.com/onnwee/talentboard/internal/evaluation"
)

// maxCreateBodyBytes bounds POST /api/candidates request bodies.
const maxCreateBodyBytes = 64 << 10

// CreateCandidateRequest is the body of POST /api/candidates.
type CreateCandidateRequest struct {
	Name            string   `json:"name"`
	YearsExperience int      `json:"yearsExperience"`
	Skills          []string `json:"skills"`
}

// CandidateHandlers serves candidate, evaluation and leaderboard endpoints.
type CandidateHandlers struct {
	repo    candidate.Repository
	service *evaluation.Service
}

// NewCandidateHandlers creates a new CandidateHandlers instance.
func NewCandidateHandlers(repo candidate.Repository, service *evaluation.Service) *CandidateHandlers {
	return &CandidateHandlers{
		repo:    repo,
		service: service,
	}
}

// ListCandidates handles GET /api/candidates.
// Every candidate is returned, evaluated or not, ordered by id.
func (h *CandidateHandlers) ListCandidates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profiles, err := h.repo.List(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list candidates", "error", err)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to fetch candidates")
		return
	}
	if profiles == nil {
		profiles = []*candidate.Profile{}
	}

	writeJSON(w, ctx, http.StatusOK, profiles)
}

// CreateCandidate handles POST /api/candidates.
func (h *CandidateHandlers) CreateCandidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateCandidateRequest
	if err := decodeJSON(w, r, maxCreateBodyBytes, &req); err != nil {
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body")
		return
	}

	c, err := candidate.NewCandidate(req.Name, req.YearsExperience, req.Skills)
	if err != nil {
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, validationMessage(err))
		return
	}

	created, err := h.repo.Create(ctx, c)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create candidate", "error", err)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to create candidate")
		return
	}

	slog.InfoContext(ctx, "candidate created", "candidate_id", created.ID)
	writeJSON(w, ctx, http.StatusCreated, created)
}

// GetCandidate handles GET /api/candidates/{id}.
// A candidate that has never been evaluated is returned without ranking or
// evaluation fields.
func (h *CandidateHandlers) GetCandidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := candidateID(w, r)
	if !ok {
		return
	}

	profile, err := h.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, candidate.ErrCandidateNotFound) {
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Candidate not found")
			return
		}
		slog.ErrorContext(ctx, "failed to get candidate", "error", err, "candidate_id", id)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to fetch candidate")
		return
	}

	writeJSON(w, ctx, http.StatusOK, profile)
}

// ListEvaluations handles GET /api/candidates/{id}/evaluations, newest first.
func (h *CandidateHandlers) ListEvaluations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := candidateID(w, r)
	if !ok {
		return
	}

	evals, err := h.repo.ListEvaluations(ctx, id)
	if err != nil {
		if errors.Is(err, candidate.ErrCandidateNotFound) {
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Candidate not found")
			return
		}
		slog.ErrorContext(ctx, "failed to list evaluations", "error", err, "candidate_id", id)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to fetch evaluations")
		return
	}

	writeJSON(w, ctx, http.StatusOK, evals)
}

// EvaluateCandidate handles POST /api/candidates/{id}/evaluate.
// Each call stores a new evaluation and re-ranks; repeat calls are allowed.
func (h *CandidateHandlers) EvaluateCandidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := candidateID(w, r)
	if !ok {
		return
	}

	eval, err := h.service.Evaluate(ctx, id)
	switch {
	case err == nil:
		writeJSON(w, ctx, http.StatusCreated, eval)
	case errors.Is(err, candidate.ErrCandidateNotFound):
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Candidate not found")
	case errors.Is(err, evaluation.ErrScoringFailed):
		slog.ErrorContext(ctx, "failed to score candidate", "error", err, "candidate_id", id)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeScoringFailed, "Failed to evaluate candidate")
	case errors.Is(err, evaluation.ErrRecomputeFailed):
		// The evaluation is stored; the recompute job repairs the ranks.
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeRecomputeFailed, "Evaluation saved but ranking update failed")
	default:
		slog.ErrorContext(ctx, "failed to evaluate candidate", "error", err, "candidate_id", id)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to evaluate candidate")
	}
}

// Leaderboard handles GET /api/leaderboard: the top ranked candidates by
// overall score, highest first.
func (h *CandidateHandlers) Leaderboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	board, err := h.service.Leaderboard(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load leaderboard", "error", err)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to fetch leaderboard")
		return
	}
	if board == nil {
		board = []*candidate.Profile{}
	}

	writeJSON(w, ctx, http.StatusOK, board)
}

// candidateID parses the {id} path value. A value that is not an integer
// gets a 400. Ids are assigned from 1, so a non-positive id gets the same 404
// as any other unknown candidate.
func candidateID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeBadRequest, "Invalid candidate id")
		return 0, false
	}
	if id <= 0 {
		WriteError(w, r.Context(), http.StatusNotFound, ErrCodeNotFound, "Candidate not found")
		return 0, false
	}
	return id, true
}

// validationMessage strips the sentinel prefix so clients see only the
// field-level reason.
func validationMessage(err error) string {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, candidate.ErrInvalidCandidate.Error()+": "); ok {
		return rest
	}
	return msg
}
