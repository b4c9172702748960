package middleware

import (
	"crypto/sha256"
	"fmt"
	"net/http"
	"time"

	"github.com/malabartours/bookings/internal/cache"
	"github.com/malabartours/bookings/pkg/logger"
)

const idempotencyTTL = 24 * time.Hour

// Idempotency replays the cached response for a repeated Idempotency-Key on
// POST. Keys are hashed before storage.
func Idempotency(store cache.IdempotencyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			hashed := fmt.Sprintf("idempotency:%x", sha256.Sum256([]byte(key)))
			if cached, err := store.Get(r.Context(), hashed); err == nil && cached != "" {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Idempotent-Replay", "true")
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(cached))
				return
			}

			rec := &responseRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			if rec.statusCode >= 200 && rec.statusCode < 300 {
				if err := store.Set(r.Context(), hashed, string(rec.body), idempotencyTTL); err != nil {
					logger.ErrorContext(r.Context(), "failed to cache idempotent response", "error", err)
				}
			}
		})
	}
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       []byte
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseRecorder) Write(body []byte) (int, error) {
	if r.statusCode == 0 {
		r.statusCode = http.StatusOK
	}
	r.body = append(r.body, body...)
	return r.ResponseWriter.Write(body)
}
