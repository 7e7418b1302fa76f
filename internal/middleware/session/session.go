// Package session gates mutating requests behind a shared session token.
// The token travels in the X-Session-Token header; reads stay open so a
// disconnected client can still browse cached data through a proxy.
package session

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"sync"
)

// Header carries the session token.
const Header = "X-Session-Token"

// Verifier checks tokens and remembers when the upstream rejected the
// cached one, so the client can prompt for a fresh credential.
type Verifier struct {
	mu      sync.RWMutex
	token   string
	invalid bool
}

func NewVerifier(token string) *Verifier {
	return &Verifier{token: token}
}

// Verify reports whether the presented token matches. An invalidated
// credential never verifies, even against the stale value, until SetToken
// installs a fresh one.
func (v *Verifier) Verify(presented string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.invalid {
		return false
	}
	if v.token == "" {
		// No token configured: the gate is open.
		return true
	}
	return subtle.ConstantTimeCompare([]byte(v.token), []byte(presented)) == 1
}

// Invalidate drops the cached token after an upstream 401. Suitable as the
// remote client's OnUnauthorized hook.
func (v *Verifier) Invalidate() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.invalid {
		v.invalid = true
		slog.Warn("Session token invalidated by upstream")
	}
}

// SetToken installs a fresh token and clears the invalid flag.
func (v *Verifier) SetToken(token string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.token = token
	v.invalid = false
}

// Token returns the current token, or "" when it has been invalidated.
func (v *Verifier) Token() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.invalid {
		return ""
	}
	return v.token
}

// Middleware rejects mutating requests without a valid token. GET and HEAD
// pass through.
func (v *Verifier) Middleware(onReject func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			if !v.Verify(r.Header.Get(Header)) {
				if onReject != nil {
					onReject(w, r)
				} else {
					http.Error(w, "invalid session token", http.StatusUnauthorized)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
