package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/giho-tech/helpdesk/internal/audit"
	"github.com/giho-tech/helpdesk/internal/auth"
	"github.com/giho-tech/helpdesk/internal/conversation"
	"github.com/giho-tech/helpdesk/internal/knowledge"
	"github.com/giho-tech/helpdesk/internal/metrics"
	"github.com/giho-tech/helpdesk/internal/notifications"
	"github.com/giho-tech/helpdesk/internal/settings"
	"github.com/giho-tech/helpdesk/internal/storage"
	"github.com/giho-tech/helpdesk/internal/tickets"
)

// Config holds server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
	SecureCookies  bool // set when served over HTTPS
}

// Deps are the feature services the router exposes. Auth may be nil, in
// which case every admin route answers 401. Audit, when set, records every
// mutating admin request. Files is the local attachment handler and is nil
// for remote storage backends.
type Deps struct {
	Conversation  *conversation.Service
	Validator     conversation.Validator
	Tickets       *tickets.Service
	Retention     *tickets.Retention
	Knowledge     *knowledge.Store
	Settings      *settings.Store
	Notifications *notifications.Store
	Dispatcher    *notifications.Dispatcher
	Auth          *auth.Authenticator
	Audit         *audit.Store
	Files         http.Handler
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
}

// Server is the customer-facing chat API plus the admin back office.
type Server struct {
	cfg        Config
	deps       Deps
	logger     *slog.Logger
	router     chi.Router
	httpServer *http.Server
}

// New creates a server with all routes mounted.
func New(cfg Config, deps Deps) *Server {
	s := &Server{cfg: cfg, deps: deps, logger: deps.Logger}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.router = s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if s.deps.Metrics != nil {
		r.Use(s.deps.Metrics.Instrument)
	}

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics.Handler())
	}
	if s.deps.Files != nil {
		r.Handle(storage.URLPrefix+"*", s.deps.Files)
	}

	// Customer-facing routes. The chat websocket has no write deadline of
	// its own, so no request timeout is applied here.
	if s.deps.Conversation != nil {
		conversation.RegisterRoutes(r, s.deps.Conversation, s.deps.Validator, s.logger)
	}
	if s.deps.Tickets != nil {
		tickets.RegisterRoutes(r, s.deps.Tickets)
	}
	if s.deps.Auth != nil {
		auth.RegisterRoutes(r, s.deps.Auth, s.cfg.SecureCookies, s.logger)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.requireAdmin)
		if s.deps.Audit != nil {
			r.Use(audit.Middleware(s.deps.Audit, s.logger))
			audit.RegisterRoutes(r, s.deps.Audit)
		}
		if s.deps.Knowledge != nil {
			knowledge.RegisterRoutes(r, s.deps.Knowledge)
		}
		if s.deps.Tickets != nil {
			tickets.RegisterAdminRoutes(r, s.deps.Tickets.Store(), s.deps.Retention)
		}
		if s.deps.Settings != nil {
			settings.RegisterRoutes(r, s.deps.Settings)
		}
		if s.deps.Notifications != nil {
			notifications.RegisterRoutes(r, s.deps.Notifications, s.deps.Dispatcher)
		}
	})

	return r
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	if s.deps.Auth == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized"}`))
		})
	}
	return s.deps.Auth.Middleware(next)
}

// Router returns the chi router.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port. It returns
// http.ErrServerClosed after Shutdown, including a Shutdown that ran first.
func (s *Server) Start() error {
	s.logger.Info("helpdesk server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server. It is safe to call from
// another goroutine before or during Start.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
