package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/onnwee/talentboard/internal/idempotency"
)

const (
	// IdempotencyKeyHeader carries the client's idempotency key.
	IdempotencyKeyHeader = "Idempotency-Key"

	// IdempotentReplayedHeader is set to "true" on replayed responses.
	IdempotentReplayedHeader = "Idempotent-Replayed"
)

// idempotencyResponseWriter tees the response into a buffer.
type idempotencyResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
	body        bytes.Buffer
}

func (w *idempotencyResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *idempotencyResponseWriter) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.statusCode = statusCode
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *idempotencyResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.body.Write(b[:n])
	return n, err
}

// Idempotency replays the first successful response for a repeated
// Idempotency-Key. Requests without the header pass through, so plain
// retries still create new work. A key that is still being processed gets
// 409; failed (non-2xx) responses release the key for another attempt.
// When store is unavailable the request proceeds without replay protection.
func Idempotency(store idempotency.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyKeyHeader)
			if key == "" || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			if err := idempotency.ValidateKey(key); err != nil {
				msg := "Idempotency-Key may only contain letters, digits and - _ . :"
				if errors.Is(err, idempotency.ErrKeyTooLong) {
					msg = "Idempotency-Key exceeds maximum length of 64 characters"
				}
				writeMiddlewareError(w, ctx, http.StatusBadRequest, "invalid_idempotency_key", msg)
				return
			}

			rec := &idempotency.Record{
				Key:    idempotency.ScopedKey(r.Method, r.URL.Path, key),
				Method: r.Method,
				Route:  r.URL.Path,
			}
			existing, err := store.Begin(ctx, rec, idempotency.DefaultProcessingTTL)
			if err != nil {
				slog.ErrorContext(ctx, "idempotency store unavailable, proceeding without replay", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if existing != nil {
				if existing.Status != idempotency.StatusCompleted {
					writeMiddlewareError(w, ctx, http.StatusConflict, "idempotency_in_progress",
						"A request with this Idempotency-Key is still being processed")
					return
				}
				slog.InfoContext(ctx, "replaying idempotent response", "route", existing.Route, "status", existing.StatusCode)
				if existing.ContentType != "" {
					w.Header().Set("Content-Type", existing.ContentType)
				}
				w.Header().Set(IdempotentReplayedHeader, "true")
				w.WriteHeader(existing.StatusCode)
				_, _ = w.Write(existing.Body)
				return
			}

			capture := &idempotencyResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(capture, r)

			// The response is already sent; store errors only cost replay.
			storeCtx := context.WithoutCancel(ctx)
			if capture.statusCode < 200 || capture.statusCode >= 300 {
				if err := store.Release(storeCtx, rec.Key); err != nil {
					slog.ErrorContext(ctx, "failed to release idempotency key", "error", err)
				}
				return
			}

			rec.StatusCode = capture.statusCode
			rec.ContentType = capture.Header().Get("Content-Type")
			rec.Body = capture.body.Bytes()
			rec.BodyHash = idempotency.ComputeResponseHash(rec.Body)
			if err := store.Complete(storeCtx, rec, idempotency.DefaultTTL); err != nil {
				slog.ErrorContext(ctx, "failed to store idempotent response", "error", err)
			}
		})
	}
}

// writeMiddlewareError writes the API's flat {"message","code"} error body.
func writeMiddlewareError(w http.ResponseWriter, ctx context.Context, status int, code, message string) {
	UpdateResponseContext(w, SetErrorCode(ctx, code))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message, "code": code})
}
