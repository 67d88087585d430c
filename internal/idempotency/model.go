// Package idempotency stores responses keyed by client-supplied
// Idempotency-Key headers so retried writes can be replayed.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// Record states. A processing record reserves its key while the first
// request is in flight; a completed record holds the response to replay.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
)

var (
	// ErrKeyNotFound is returned when no record exists for a key.
	ErrKeyNotFound = errors.New("idempotency key not found")

	// ErrInvalidKey is returned when the key is empty or has characters
	// outside [A-Za-z0-9-_.:].
	ErrInvalidKey = errors.New("invalid idempotency key")

	// ErrKeyTooLong is returned when the key exceeds MaxKeyLength.
	ErrKeyTooLong = errors.New("idempotency key exceeds maximum length of 64 characters")
)

// MaxKeyLength is the maximum allowed length for an idempotency key.
const MaxKeyLength = 64

// DefaultTTL is how long a completed response stays replayable.
const DefaultTTL = 24 * time.Hour

// DefaultProcessingTTL bounds how long an in-flight reservation blocks
// retries if the process dies before completing it.
const DefaultProcessingTTL = time.Minute

// Record is a reserved or completed request.
type Record struct {
	Key         string    `json:"key"`
	Method      string    `json:"method"`
	Route       string    `json:"route"`
	Status      string    `json:"status"`
	StatusCode  int       `json:"statusCode,omitempty"`
	ContentType string    `json:"contentType,omitempty"`
	Body        []byte    `json:"body,omitempty"`
	BodyHash    string    `json:"bodyHash,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store persists records. Implementations must make Begin atomic: of two
// concurrent calls for the same key exactly one reserves it.
type Store interface {
	// Begin reserves rec.Key as processing for ttl. If the key is already
	// taken the existing record is returned and nothing is written.
	Begin(ctx context.Context, rec *Record, ttl time.Duration) (existing *Record, err error)

	// Complete replaces the reservation with a completed record kept for ttl.
	Complete(ctx context.Context, rec *Record, ttl time.Duration) error

	// Release drops a reservation so the request can be retried.
	Release(ctx context.Context, key string) error
}

// ValidateKey checks a client-supplied key.
func ValidateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	for _, c := range key {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.', c == ':':
		default:
			return ErrInvalidKey
		}
	}
	return nil
}

// ScopedKey binds a client key to the method and path it was sent with, so
// the same key on two different candidates does not collide.
func ScopedKey(method, route, key string) string {
	sum := sha256.Sum256([]byte(method + " " + route + " " + key))
	return hex.EncodeToString(sum[:])
}

// ComputeResponseHash returns the SHA-256 of a response body.
func ComputeResponseHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
