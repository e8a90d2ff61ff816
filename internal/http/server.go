package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"carebridge/internal/config"
	"carebridge/internal/identity"
	"carebridge/internal/metrics"
	"carebridge/internal/model"
	"carebridge/internal/requests"
	"carebridge/internal/session"
)

type Server struct {
	cfg      config.Config
	identity *identity.Service
	sessions *session.Manager
	requests *requests.Service
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewServer(cfg config.Config, users *identity.Service, sessions *session.Manager, reqs *requests.Service, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if m == nil {
		m = metrics.New()
	}
	return &Server{
		cfg:      cfg,
		identity: users,
		sessions: sessions,
		requests: reqs,
		metrics:  m,
		logger:   logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.accessLog, middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.sessionMiddleware)

		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Get("/logout", s.handleLogout)
		r.Post("/logout", s.handleLogout)
		r.With(s.requireAuthenticated).Get("/me", s.handleMe)

		r.With(s.requireRole(model.RoleElderly)).Post("/requests", s.handleCreateRequest)
		r.With(s.requireRole(model.RoleElderly)).Get("/elderly", s.handleListOwn)

		r.Route("/staff", func(r chi.Router) {
			r.Use(s.requireRole(model.RoleStaff))
			r.Get("/", s.handleDashboard)
			r.Get("/important", s.handleImportant)
			r.Get("/fulfilled", s.handleFulfilled)
			r.Get("/requesters/{userId}", s.handleForRequester)
		})

		r.Route("/requests/{requestId}", func(r chi.Router) {
			r.Use(s.requireRole(model.RoleStaff))
			r.Post("/fulfill", s.handleFulfill)
			r.Post("/important", s.handleMarkImportant)
			r.Post("/delete", s.handleDelete)
		})
	})

	return r
}
