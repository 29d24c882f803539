package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/epicstrade/rifas/internal/clock"
	"github.com/epicstrade/rifas/internal/model"
)

const (
	IdempotencyKeyHeader      = "Idempotency-Key"
	IdempotentReplayedHeader  = "Idempotent-Replayed"
	maxIdempotencyKeyLength   = 128
	maxIdempotentRequestBytes = 64 << 10
)

// IdempotencyStore remembers responses to money-moving requests so a
// retried ticket purchase or bid is answered without running twice
type IdempotencyStore struct {
	mu       sync.Mutex
	entries  map[string]*idempotencyEntry
	ttl      time.Duration
	clock    clock.Clock
	stopChan chan struct{}
	stopOnce sync.Once
}

type idempotencyEntry struct {
	status    int
	headers   http.Header
	body      []byte
	expiresAt time.Time
	inFlight  bool
	done      chan struct{}
}

// IdempotencyConfig holds configuration for idempotency middleware
type IdempotencyConfig struct {
	TTL     time.Duration // default 24h
	Cleanup time.Duration // default 1h
	Clock   clock.Clock
}

// NewIdempotencyStore creates a store and starts its cleanup loop
func NewIdempotencyStore(cfg IdempotencyConfig) *IdempotencyStore {
	if cfg.TTL == 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Cleanup == 0 {
		cfg.Cleanup = time.Hour
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewSystem()
	}

	store := &IdempotencyStore{
		entries:  make(map[string]*idempotencyEntry),
		ttl:      cfg.TTL,
		clock:    cfg.Clock,
		stopChan: make(chan struct{}),
	}
	go store.cleanupLoop(cfg.Cleanup)
	return store
}

// Stop stops the cleanup goroutine. Safe to call more than once.
func (s *IdempotencyStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *IdempotencyStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopChan:
			return
		}
	}
}

func (s *IdempotencyStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for key, entry := range s.entries {
		if !entry.inFlight && entry.expiresAt.Before(now) {
			delete(s.entries, key)
		}
	}
}

func (s *IdempotencyStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// generateKey fingerprints the caller, the client key and the request
func generateKey(userID, idempotencyKey, method, path string, body []byte) string {
	h := sha256.New()
	for _, part := range []string{userID, idempotencyKey, method, path} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

type idempotencyResponseWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *idempotencyResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *idempotencyResponseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// unreplayedHeaders describe one particular delivery of the body rather
// than the stored response. The body is captured before Compress encodes
// it, so the replay's encoding is negotiated afresh.
var unreplayedHeaders = map[string]bool{
	"X-Request-Id":     true,
	"Content-Encoding": true,
	"Content-Length":   true,
	"Vary":             true,
}

func storableHeaders(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, v := range h {
		if unreplayedHeaders[http.CanonicalHeaderKey(k)] {
			continue
		}
		out[k] = append([]string(nil), v...)
	}
	return out
}

// replay writes a stored response. Headers the outer chain already set for
// this request (CORS, rate limit) are kept as they are.
func replay(w http.ResponseWriter, entry *idempotencyEntry) {
	for k, v := range storableHeaders(entry.headers) {
		if _, set := w.Header()[k]; set {
			continue
		}
		w.Header()[k] = v
	}
	w.Header().Set(IdempotentReplayedHeader, "true")
	w.WriteHeader(entry.status)
	_, _ = w.Write(entry.body)
}

// Idempotency replays the stored response for a repeated POST carrying the
// same Idempotency-Key and body. Server errors are not stored, so the
// client may retry them.
func Idempotency(store *IdempotencyStore) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}
			idempotencyKey := r.Header.Get(IdempotencyKeyHeader)
			if idempotencyKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(idempotencyKey) > maxIdempotencyKeyLength {
				model.NewBadRequestError("Idempotency-Key is too long").WriteJSON(w)
				return
			}

			userID := GetUserID(r.Context())
			if userID == "" {
				userID = r.RemoteAddr
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotentRequestBytes))
			if err != nil {
				model.NewBadRequestError("could not read request body").WriteJSON(w)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := generateKey(userID, idempotencyKey, r.Method, r.URL.Path, body)

			store.mu.Lock()
			entry, exists := store.entries[key]
			for exists && entry.inFlight {
				done := entry.done
				store.mu.Unlock()
				<-done

				store.mu.Lock()
				entry, exists = store.entries[key]
			}
			if exists && !entry.inFlight && entry.expiresAt.After(store.clock.Now()) {
				store.mu.Unlock()
				replay(w, entry)
				return
			}

			entry = &idempotencyEntry{inFlight: true, done: make(chan struct{})}
			store.entries[key] = entry
			store.mu.Unlock()

			irw := &idempotencyResponseWriter{ResponseWriter: w, status: http.StatusOK}
			defer func() {
				p := recover()
				store.mu.Lock()
				if p != nil || irw.status >= http.StatusInternalServerError {
					delete(store.entries, key)
				} else {
					entry.status = irw.status
					entry.headers = storableHeaders(irw.Header())
					entry.body = irw.body.Bytes()
					entry.expiresAt = store.clock.Now().Add(store.ttl)
					entry.inFlight = false
				}
				close(entry.done)
				store.mu.Unlock()
				if p != nil {
					panic(p)
				}
			}()

			next.ServeHTTP(irw, r)
		})
	}
}
