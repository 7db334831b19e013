// Package web provides the HTTP API for ingestion, viewing and export.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/dados/internal/config"
	"github.com/JonMunkholm/dados/internal/service"
	"github.com/JonMunkholm/dados/internal/web/middleware"
)

// realm is the HTTP Basic authentication realm.
const realm = "dados"

// Server is the HTTP server for the dados API.
type Server struct {
	service *service.Service
	auth    middleware.Authenticator
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server

	// stop ends background middleware work such as rate limiter cleanup.
	stop context.CancelFunc
}

// NewServer creates a server that authenticates requests with auth and
// dispatches them to svc.
func NewServer(svc *service.Service, auth middleware.Authenticator, cfg *config.Config) *Server {
	s := &Server{
		service: svc,
		auth:    auth,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	var bg context.Context
	bg, s.stop = context.WithCancel(context.Background())
	s.setupMiddleware(bg)
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware(bg context.Context) {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Server.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		s.router.Use(middleware.RateLimiter(bg, middleware.RateLimitConfig{
			RequestsPerSecond: s.cfg.Rate.RPS,
			Burst:             s.cfg.Rate.Burst,
		}))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/readyz", s.handleReady)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.BasicAuth(s.auth, realm))

		r.Get("/session", s.handleSession)
		r.Get("/status", s.handleStatus)

		r.Post("/schema", s.handleEnsureSchema)

		r.Route("/data", func(r chi.Router) {
			r.Get("/", s.handleView)
			r.Post("/", s.handleIngest)
			r.Get("/options", s.handleOptions)
		})

		r.Get("/export/{format}", s.handleExport)
		r.Post("/export/{format}/email", s.handleEmail)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	addr := s.cfg.Server.Addr()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its background middleware work.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")

		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
