package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/cqcsystem/cqcsrv/lifecycle"
	"github.com/cqcsystem/cqcsrv/pkg/cqclog"
	"github.com/cqcsystem/cqcsrv/pkg/cqcmetrics"
)

// Deregisterer removes a previously published name-service binding. The
// nameservice package's Binder satisfies this; admin only depends on the
// narrow slice of behavior it needs (accept interfaces, return structs).
type Deregisterer interface {
	Unbind(ctx context.Context, binding string) error
}

// deregisterTimeout is the bounded cleanup window spec.md §3.9/§4.2
// allots to name-service deregistration.
const deregisterTimeout = 2500 * time.Millisecond

// Config controls Server construction.
type Config struct {
	ListenAddr    string
	AuthToken     []byte // HMAC signing key for bearer tokens; empty disables auth
	RateLimitRPS  int
	RateLimitBurst int
}

// Server hosts the ACE's HTTP surface: AdminStop, a status query, and a
// /metrics endpoint, bound with gorilla/mux the way
// infrastructure/service/runner.go wires its own router.
type Server struct {
	engine   *lifecycle.Engine
	endpoint Endpoint
	cfg      Config
	logger   *cqclog.Logger
	httpSrv  *http.Server

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter

	deregister Deregisterer
	binding    string
}

// NewServer builds an admin Server bound to engine, serving at the
// resolved Endpoint identity.
func NewServer(engine *lifecycle.Engine, endpoint Endpoint, cfg Config, logger *cqclog.Logger, deregister Deregisterer) *Server {
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 10
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 20
	}
	if logger == nil {
		logger = cqclog.NewDefault("admin")
	}
	return &Server{
		engine:     engine,
		endpoint:   endpoint,
		cfg:        cfg,
		logger:     logger,
		limiters:   make(map[string]*rate.Limiter),
		deregister: deregister,
		binding:    endpoint.BindingPath,
	}
}

// router builds the gorilla/mux router for the ACE's HTTP surface.
func (s *Server) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.rateLimitMiddleware)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/admin/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/admin/stop", s.authMiddleware(s.handleAdminStop)).Methods(http.MethodPost)

	return r
}

// ListenAndServe starts the HTTP surface; it blocks until the server is
// shut down or an unrecoverable listen error occurs.
func (s *Server) ListenAndServe() error {
	s.httpSrv = &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.router(),
	}
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the HTTP surface and removes the name-service
// binding under the 2.5s bounded timeout (spec.md §4.2 "Failure
// semantics": if the name service is unreachable, log and proceed).
func (s *Server) Shutdown(ctx context.Context) {
	if s.deregister != nil {
		dctx, cancel := context.WithTimeout(ctx, deregisterTimeout)
		defer cancel()
		if err := s.deregister.Unbind(dctx, s.binding); err != nil {
			s.logger.ForComponent("admin").Warnf("name-service unbind failed, proceeding: %v", err)
		}
	}
	if s.httpSrv != nil {
		sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(sctx)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cqcmetrics.AdminCalls.WithLabelValues("status").Inc()
	status := struct {
		Stage       string `json:"stage"`
		ExitCode    string `json:"exit_code"`
		Description string `json:"description"`
		Binding     string `json:"binding"`
	}{
		Stage:       s.engine.Stage().String(),
		ExitCode:    s.engine.ExitCode().String(),
		Description: s.endpoint.Description,
		Binding:     s.endpoint.BindingPath,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}

// handleAdminStop implements AdminStop: calling Shutdown(AdminStop) on the
// owning SLE. Per spec.md §4.2, no authentication is performed by the
// core ACE contract itself; the bearer-token check here stands in for the
// "ORB/transport layer" access control the spec defers to, since this
// module's transport is HTTP rather than a proprietary ORB.
func (s *Server) handleAdminStop(w http.ResponseWriter, r *http.Request) {
	cqcmetrics.AdminCalls.WithLabelValues("stop").Inc()
	s.engine.Shutdown(lifecycle.AdminStop)
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte(`{"status":"stopping"}`))
}

// authMiddleware enforces a bearer JWT signed with cfg.AuthToken. When
// AuthToken is empty, auth is disabled (local/dev mode).
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(s.cfg.AuthToken) == 0 {
			next(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		tokenStr := strings.TrimPrefix(header, "Bearer ")
		if tokenStr == "" || tokenStr == header {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			return s.cfg.AuthToken, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
		if err != nil || !token.Valid {
			http.Error(w, "invalid bearer token", http.StatusUnauthorized)
			return
		}

		next(w, r)
	}
}

// rateLimitMiddleware applies a per-client-IP token bucket, grounded on
// infrastructure/middleware/ratelimit.go's per-key limiter map.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		limiter := s.getLimiter(key)
		if !limiter.Allow() {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) getLimiter(key string) *rate.Limiter {
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()

	l, ok := s.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Limit(s.cfg.RateLimitRPS), s.cfg.RateLimitBurst)
		s.limiters[key] = l
	}
	return l
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	return r.RemoteAddr
}
