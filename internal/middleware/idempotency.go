package middleware

import (
	"bytes"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
)

// IdempotencyStore remembers responses by Idempotency-Key. Server errors
// are not remembered, so a retry after a failed submission runs again.
type IdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]*idempotencyEntry
	ttl     time.Duration
	now     func() time.Time
}

type idempotencyEntry struct {
	status    int
	headers   http.Header
	body      []byte
	expiresAt time.Time
	done      chan struct{} // closed once the first request finishes
}

// IdempotencyConfig holds configuration for idempotency middleware
type IdempotencyConfig struct {
	TTL time.Duration // how long responses are replayed (default 24h)
}

// NewIdempotencyStore creates a new idempotency store
func NewIdempotencyStore(cfg IdempotencyConfig) *IdempotencyStore {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &IdempotencyStore{
		entries: make(map[string]*idempotencyEntry),
		ttl:     cfg.TTL,
		now:     time.Now,
	}
}

// Prune drops expired entries and returns how many
func (s *IdempotencyStore) Prune(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for key, e := range s.entries {
		if !e.expiresAt.IsZero() && e.expiresAt.Before(now) {
			delete(s.entries, key)
			pruned++
		}
	}
	return pruned
}

// idempotencyKey binds the client key to the caller and the request
func idempotencyKey(userID, key, method, path string, body []byte) string {
	h, _ := blake2b.New256(nil)
	for _, part := range [][]byte{[]byte(userID), []byte(key), []byte(method), []byte(path), body} {
		h.Write(part)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

type recordingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *recordingWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (e *idempotencyEntry) replay(w http.ResponseWriter) {
	for k, v := range e.headers {
		if _, set := w.Header()[k]; !set {
			w.Header()[k] = append([]string(nil), v...)
		}
	}
	w.Header().Set("X-Idempotency-Replayed", "true")
	w.WriteHeader(e.status)
	_, _ = w.Write(e.body)
}

// Idempotency replays the first response for a repeated POST carrying the
// same Idempotency-Key. A duplicate that arrives while the first is still
// running waits for it.
func Idempotency(store *IdempotencyStore) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := r.Header.Get("Idempotency-Key")
			if r.Method != http.MethodPost || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			userID := GetUserID(r.Context())
			if userID == "" {
				userID = r.RemoteAddr
			}
			key := idempotencyKey(userID, clientKey, r.Method, r.URL.Path, body)

			for {
				store.mu.Lock()
				entry, ok := store.entries[key]
				if !ok {
					break
				}
				store.mu.Unlock()

				select {
				case <-entry.done:
				case <-r.Context().Done():
					return
				}

				store.mu.Lock()
				if current, ok := store.entries[key]; ok && current == entry {
					if entry.expiresAt.After(store.now()) {
						store.mu.Unlock()
						entry.replay(w)
						return
					}
					delete(store.entries, key)
				}
				store.mu.Unlock()
				// Not replayable; take another turn.
			}

			entry := &idempotencyEntry{done: make(chan struct{})}
			store.entries[key] = entry
			store.mu.Unlock()

			rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
			defer func() {
				store.mu.Lock()
				if rec.status >= http.StatusInternalServerError {
					delete(store.entries, key)
				} else {
					entry.status = rec.status
					entry.headers = rec.Header().Clone()
					entry.body = rec.body.Bytes()
					entry.expiresAt = store.now().Add(store.ttl)
				}
				close(entry.done)
				store.mu.Unlock()
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
