package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"contas/internal/middleware/ratelimit"
	"contas/internal/middleware/session"
	"contas/internal/middleware/trace"
	"contas/internal/services"
)

// Server serves the bills API over the operation surface, local or edge.
type Server struct {
	http.Server
	contas      services.Contas
	sessions    *session.Verifier
	rateLimiter *ratelimit.Limiter

	// now is the clock used for status derivation; overridable in tests.
	now func() time.Time

	shutdownOnce sync.Once
}

// Options tune the server construction.
type Options struct {
	RateLimitPerMinute int
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. sessions may be nil to leave mutations ungated.
func NewServer(addr string, contas services.Contas, sessions *session.Verifier, opts Options) *Server {
	mux := http.NewServeMux()

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		contas:      contas,
		sessions:    sessions,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		now:         now,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/contas", s.handleList)
	mux.HandleFunc("POST /api/contas", s.handleCreate)
	mux.HandleFunc("GET /api/contas/{id}", s.handleGet)
	mux.HandleFunc("PUT /api/contas/{id}", s.handleUpdate)
	mux.HandleFunc("PATCH /api/contas/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE /api/contas/{id}", s.handleDelete)
	mux.HandleFunc("POST /api/contas/group", s.handleCreateGroup)
	mux.HandleFunc("POST /api/contas/{id}/pay", s.handlePay)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)

	handler := http.Handler(mux)
	if sessions != nil {
		handler = sessions.Middleware(s.rejectUnauthorized)(handler)
	}
	handler = s.rateLimiter.Middleware(trace.ClientIP, s.rejectRateLimited)(handler)
	handler = trace.Middleware(handler)
	s.Handler = withSecurityHeaders(handler)

	return s
}

// Shutdown stops the server and its background cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) rejectUnauthorized(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusUnauthorized, envelope{Success: false, Error: "invalid session token"})
}

func (s *Server) rejectRateLimited(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Retry-After", "60")
	writeJSON(w, http.StatusTooManyRequests, envelope{Success: false, Error: "rate limit exceeded"})
}

func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
