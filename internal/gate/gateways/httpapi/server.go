// Package httpapi is the HTTP boundary: navigation checks, rule
// management, vault auth, transfer, and the blocked page. Handlers
// normalize origins at the edge and delegate everything else to the
// engine, repository, and vault.
package httpapi

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/haukened/sitegate/internal/gate/common/clock"
	"github.com/haukened/sitegate/internal/gate/common/log"
)

// Options bundles the Server's collaborators.
type Options struct {
	Addr        string
	BlockedPage string
	Engine      Decider
	Rules       RuleManager
	Auth        Authenticator
	Cache       CacheStats
	Clock       clock.Clock
	Logger      log.Logger
}

// Server hosts the HTTP API.
type Server struct {
	addr        string
	blockedPage string
	engine      Decider
	rules       RuleManager
	auth        Authenticator
	cache       CacheStats
	clk         clock.Clock
	logger      log.Logger
	handler     http.Handler

	mu      sync.Mutex
	running bool
	ln      net.Listener
	srv     *http.Server
}

// New creates a Server and wires its routes.
func New(opts Options) *Server {
	s := &Server{
		addr:        opts.Addr,
		blockedPage: opts.BlockedPage,
		engine:      opts.Engine,
		rules:       opts.Rules,
		auth:        opts.Auth,
		cache:       opts.Cache,
		clk:         opts.Clock,
		logger:      opts.Logger,
	}
	s.handler = s.routes()
	return s
}

// Handler returns the routed handler. Exposed for in-process tests.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/navigate", s.handleNavigate)
	mux.HandleFunc("GET /blocked", s.handleBlockedPage)

	mux.HandleFunc("POST /v1/auth/signup", s.handleSignup)
	mux.HandleFunc("POST /v1/auth/login", s.handleLogin)
	mux.HandleFunc("POST /v1/auth/logout", s.handleLogout)
	mux.HandleFunc("GET /v1/auth/status", s.handleAuthStatus)

	mux.HandleFunc("GET /v1/rules", s.handleListRules)
	mux.HandleFunc("POST /v1/rules/instant", s.requireLogin(s.handleAddInstant))
	mux.HandleFunc("DELETE /v1/rules/instant", s.requireLogin(s.handleRemoveInstant))
	mux.HandleFunc("POST /v1/rules/schedule", s.requireLogin(s.handleAddSchedule))
	mux.HandleFunc("DELETE /v1/rules/schedule", s.requireLogin(s.handleRemoveSchedule))
	mux.HandleFunc("POST /v1/rules/timer", s.requireLogin(s.handleSetTimer))
	mux.HandleFunc("DELETE /v1/rules/timer", s.requireLogin(s.handleClearTimer))
	mux.HandleFunc("POST /v1/rules/unblock", s.requireLogin(s.handleUnblockAll))

	mux.HandleFunc("GET /v1/export", s.handleExport)
	mux.HandleFunc("POST /v1/import", s.requireLogin(s.handleImport))

	mux.HandleFunc("GET /v1/status", s.handleStatus)

	return mux
}

// requireLogin rejects requests when no vault session is open.
func (s *Server) requireLogin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.auth.LoggedIn() {
			writeError(w, http.StatusUnauthorized, "login required")
			return
		}
		next(w, r)
	}
}

// Start binds the listener and begins serving in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("http gateway already running")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.addr, err)
	}

	s.ln = ln
	s.srv = &http.Server{
		Handler:     s.handler,
		ReadTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	s.running = true

	s.logger.Info(map[string]any{
		"transport": "http",
		"address":   ln.Addr().String(),
	}, "Gateway started")

	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error(map[string]any{"error": err.Error()}, "Gateway serve failed")
		}
	}()

	return nil
}

// Stop gracefully drains in-flight requests and closes the listener.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.srv.Shutdown(ctx)
	s.running = false

	s.logger.Info(map[string]any{
		"transport": "http",
		"address":   s.addr,
	}, "Gateway stopped")

	return err
}

// Address returns the bound address once running, or the configured one.
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running && s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}
