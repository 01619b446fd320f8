package middleware

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"

	apierrors "qajalicense/internal/errors"
)

// APIKeyHeader carries the admin key
const APIKeyHeader = "X-API-Key"

type adminKeyCtx struct{}

// AdminKeyAuth guards admin routes with bcrypt-hashed API keys. Accepted
// keys are remembered by digest so bcrypt runs once per key.
type AdminKeyAuth struct {
	hashes   [][]byte
	logger   *slog.Logger
	errors   *apierrors.ErrorHandler
	mu       sync.RWMutex
	accepted map[[sha256.Size]byte]int
}

// NewAdminKeyAuth creates the guard. With no hashes every request passes.
func NewAdminKeyAuth(hashes []string, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AdminKeyAuth {
	a := &AdminKeyAuth{
		logger:   logger.With(slog.String("component", "admin_auth")),
		errors:   errorHandler,
		accepted: make(map[[sha256.Size]byte]int),
	}
	for _, h := range hashes {
		if h != "" {
			a.hashes = append(a.hashes, []byte(h))
		}
	}
	return a
}

// Enabled reports whether any admin key is configured
func (a *AdminKeyAuth) Enabled() bool {
	return len(a.hashes) > 0
}

// Verify returns the index of the matching hash
func (a *AdminKeyAuth) Verify(key string) (int, bool) {
	if key == "" {
		return -1, false
	}
	digest := sha256.Sum256([]byte(key))

	a.mu.RLock()
	idx, ok := a.accepted[digest]
	a.mu.RUnlock()
	if ok {
		return idx, true
	}

	for i, h := range a.hashes {
		if bcrypt.CompareHashAndPassword(h, []byte(key)) == nil {
			a.mu.Lock()
			a.accepted[digest] = i
			a.mu.Unlock()
			return i, true
		}
	}
	return -1, false
}

// Handler rejects requests without a valid X-API-Key
func (a *AdminKeyAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		key := r.Header.Get(APIKeyHeader)
		if key == "" {
			a.logger.WarnContext(ctx, "missing admin key",
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))
			a.errors.HandleError(w, r, apierrors.ErrUnauthorized)
			return
		}

		idx, ok := a.Verify(key)
		if !ok {
			a.logger.WarnContext(ctx, "invalid admin key",
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))
			a.errors.HandleError(w, r, apierrors.New(http.StatusUnauthorized, "UNAUTHORIZED", "Invalid API key"))
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, adminKeyCtx{}, idx)))
	})
}

// AdminKeyIndex returns which configured key authenticated the request
func AdminKeyIndex(ctx context.Context) (int, bool) {
	idx, ok := ctx.Value(adminKeyCtx{}).(int)
	return idx, ok
}

// AuditLog records who called which admin route and the outcome
func AuditLog(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			ctx := r.Context()
			keyIdx, authenticated := AdminKeyIndex(ctx)
			logger.InfoContext(ctx, "admin audit",
				slog.String("event_type", "admin_access"),
				slog.Bool("authenticated", authenticated),
				slog.Int("admin_key_index", keyIdx),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
				slog.Int("status", ww.Status()),
				slog.String("duration", time.Since(start).String()),
			)
		})
	}
}
