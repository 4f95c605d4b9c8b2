package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/tombamento-backend/api/responses"
	pkgerrors "github.com/angelmondragon/tombamento-backend/pkg/errors"
	"github.com/angelmondragon/tombamento-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/tombamento-backend/pkg/redis"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayedHeader    = "Idempotent-Replayed"

	defaultIdempotencyTTL  = 24 * time.Hour
	inFlightTTL            = time.Minute
	inFlightMarker         = "in-flight"
	maxIdempotencyKeyBytes = 200
	maxReplayBodyBytes     = 4 << 20
)

// Idempotency replays the first successful response for a repeated
// Idempotency-Key. Keys are scoped by operator, method and path. A key reused
// with a different body, or while its first request is still running, is
// rejected with 409.
type Idempotency struct {
	store pkgredis.IdempotencyStore
	ttl   time.Duration
	logg  *logger.Logger
}

func NewIdempotency(store pkgredis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) *Idempotency {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &Idempotency{store: store, ttl: ttl, logg: logg}
}

// Require rejects requests that do not carry a key.
func (m *Idempotency) Require(next http.Handler) http.Handler {
	return m.wrap(next, true)
}

// Allow only engages when the client sends a key.
func (m *Idempotency) Allow(next http.Handler) http.Handler {
	return m.wrap(next, false)
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	RequestHash string `json:"request_hash"`
}

func (m *Idempotency) wrap(next http.Handler, required bool) http.Handler {
	if m == nil || m.store == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
		switch {
		case key == "" && !required:
			next.ServeHTTP(w, r)
			return
		case key == "":
			m.fail(ctx, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
			return
		case len(key) > maxIdempotencyKeyBytes:
			m.fail(ctx, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header too long"))
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxReplayBodyBytes))
		if err != nil {
			m.fail(ctx, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		hash := hashBody(body)
		storeKey := m.store.IdempotencyKey(scopeOf(r), key)

		claimed, err := m.store.SetNX(ctx, storeKey, inFlightMarker, inFlightTTL)
		if err != nil {
			m.fail(ctx, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
			return
		}
		if !claimed {
			m.replay(ctx, w, storeKey, hash)
			return
		}

		capture := &responseCapture{ResponseWriter: w}
		next.ServeHTTP(capture, r)
		m.remember(ctx, storeKey, hash, capture)
	})
}

func (m *Idempotency) replay(ctx context.Context, w http.ResponseWriter, storeKey, hash string) {
	raw, err := m.store.Get(ctx, storeKey)
	if errors.Is(err, redis.Nil) || raw == inFlightMarker {
		m.fail(ctx, w, pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this Idempotency-Key is still in progress"))
		return
	}
	if err != nil {
		m.fail(ctx, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}
	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		m.fail(ctx, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode idempotency record"))
		return
	}
	if stored.RequestHash != hash {
		m.fail(ctx, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return
	}
	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}

// remember keeps successful outcomes only; failures release the key so the
// client can retry.
func (m *Idempotency) remember(ctx context.Context, storeKey, hash string, capture *responseCapture) {
	ctx = context.WithoutCancel(ctx)
	status := capture.status
	if status == 0 {
		status = http.StatusOK
	}
	if status >= http.StatusBadRequest {
		m.release(ctx, storeKey)
		return
	}

	payload, err := json.Marshal(storedResponse{
		Status:      status,
		ContentType: capture.Header().Get("Content-Type"),
		Body:        capture.body.Bytes(),
		RequestHash: hash,
	})
	if err == nil {
		err = m.store.Set(ctx, storeKey, string(payload), m.ttl)
	}
	if err != nil {
		m.logError(ctx, "persist idempotency record", err)
		m.release(ctx, storeKey)
	}
}

func (m *Idempotency) release(ctx context.Context, storeKey string) {
	if err := m.store.Del(ctx, storeKey); err != nil {
		m.logError(ctx, "release idempotency key", err)
	}
}

func (m *Idempotency) fail(ctx context.Context, w http.ResponseWriter, err error) {
	responses.WriteError(ctx, m.logg, w, err)
}

func (m *Idempotency) logError(ctx context.Context, msg string, err error) {
	if m.logg != nil {
		m.logg.Error(ctx, msg, err)
	}
}

func scopeOf(r *http.Request) string {
	return OperatorFromContext(r.Context()) + "|" + r.Method + "|" + r.URL.Path
}

func hashBody(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (r *responseCapture) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseCapture) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
