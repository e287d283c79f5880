package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

var (
	// ErrMissingToken means the request carried no bearer token.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken means the bearer token matched no configured key.
	ErrInvalidToken = errors.New("invalid api key")
)

// DefaultBypassEndpoints lists endpoints that skip authentication.
var DefaultBypassEndpoints = []string{"/healthz", "/metrics"}

// APIKeys validates bearer tokens against a static key set.
type APIKeys struct {
	hashes [][32]byte
}

// NewAPIKeys hashes keys immediately; plaintext keys are not stored.
// Empty keys are ignored.
func NewAPIKeys(keys ...string) *APIKeys {
	a := &APIKeys{}
	for _, k := range keys {
		if k == "" {
			continue
		}
		a.hashes = append(a.hashes, sha256.Sum256([]byte(k)))
	}
	return a
}

// Enabled reports whether any key is configured.
func (a *APIKeys) Enabled() bool {
	return a != nil && len(a.hashes) > 0
}

// Check extracts the bearer token from r and validates it.
func (a *APIKeys) Check(r *http.Request) error {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return ErrMissingToken
	}

	tokenHash := sha256.Sum256([]byte(token))
	for _, h := range a.hashes {
		if subtle.ConstantTimeCompare(tokenHash[:], h[:]) == 1 {
			return nil
		}
	}
	return ErrInvalidToken
}

// Middleware rejects unauthenticated requests with a 401 in the OpenAI
// error format. Paths in bypass are always let through. A nil or empty
// key set disables the check.
func (a *APIKeys) Middleware(bypass ...string) func(http.Handler) http.Handler {
	skip := make(map[string]bool, len(bypass))
	for _, p := range bypass {
		skip[p] = true
	}

	return func(next http.Handler) http.Handler {
		if !a.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			if err := a.Check(r); err != nil {
				slog.Warn("authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", err,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{
						"message": err.Error(),
						"type":    "authentication_error",
					},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
