package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/opsdesk/internal/config"
	"github.com/dukerupert/opsdesk/internal/handler"
	"github.com/dukerupert/opsdesk/internal/middleware"
	"github.com/dukerupert/opsdesk/internal/model"
	"github.com/dukerupert/opsdesk/internal/schedule"
	"github.com/dukerupert/opsdesk/internal/store"
	ws "github.com/dukerupert/opsdesk/internal/websocket"
)

const (
	loginLimit       = 10
	loginLimitWindow = time.Minute
)

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	scheduleH      *handler.ScheduleHandler
	taskH          *handler.TaskHandler
	crmH           *handler.CRMHandler
	authH          *handler.AuthHandler
	sessionStore   *store.SessionStore
	userStore      *store.UserStore
	rateLimiter    *middleware.RateLimiter
	metricsHandler http.Handler
	originPatterns []string
	logger         *slog.Logger
}

// Options carries the parts of the server that come from the command line
// rather than the config file.
type Options struct {
	// MetricsHandler serves /metrics when non-nil.
	MetricsHandler http.Handler
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
	// OriginPatterns are extra origins allowed to open /ws.
	OriginPatterns []string
}

// NewEngine wires the schedule engine to the SQLite stores.
func NewEngine(db *sql.DB, cfg *config.Config, logger *slog.Logger) *schedule.Engine {
	crm := store.NewCRMStore(db)
	return schedule.NewEngine(
		store.NewTaskStore(db),
		store.NewScheduleStore(db),
		crm,
		crm,
		cfg.EngineConfig(),
		logger,
	)
}

func New(db *sql.DB, cfg *config.Config, opts Options, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))
	loc := cfg.EngineConfig().Location

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	scheduleStore := store.NewScheduleStore(db)

	engine := NewEngine(db, cfg, logger.With("component", "schedule"))
	gateway := schedule.NewGateway(scheduleStore, loc, logger.With("component", "schedule_gateway"))

	return &Server{
		db:             db,
		hub:            hub,
		scheduleH:      handler.NewScheduleHandler(engine, gateway, scheduleStore, hub, logger.With("component", "schedule_handler")),
		taskH:          handler.NewTaskHandler(store.NewTaskStore(db), userStore, loc, hub, logger.With("component", "task")),
		crmH:           handler.NewCRMHandler(store.NewCRMStore(db), loc, hub, logger.With("component", "crm")),
		authH:          handler.NewAuthHandler(userStore, sessionStore, opts.SecureCookies, logger.With("component", "auth")),
		sessionStore:   sessionStore,
		userStore:      userStore,
		rateLimiter:    middleware.NewRateLimiter(),
		metricsHandler: opts.MetricsHandler,
		originPatterns: opts.OriginPatterns,
		logger:         logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	outerMux.HandleFunc("POST /api/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)
	if s.metricsHandler != nil {
		outerMux.Handle("GET /metrics", s.metricsHandler)
	}

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore, s.logger.With("component", "auth"))
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, loginLimit, loginLimitWindow)
	return rl(h).ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	crmOnly := middleware.RequireRole(model.RoleAdmin, model.RoleManager, model.RoleSales)

	mux.HandleFunc("POST /api/logout", s.authH.Logout)

	// Schedule
	mux.HandleFunc("GET /api/schedule/month", s.scheduleH.Month)
	mux.HandleFunc("GET /api/schedule/day", s.scheduleH.Day)
	mux.HandleFunc("POST /api/schedule/events", s.scheduleH.Create)
	mux.HandleFunc("DELETE /api/schedule/events/{kind}/{id}", s.scheduleH.Delete)

	// Tasks
	mux.HandleFunc("GET /api/tasks", s.taskH.List)
	mux.HandleFunc("POST /api/tasks", s.taskH.Create)
	mux.HandleFunc("PATCH /api/tasks/{id}", s.taskH.UpdateStatus)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.taskH.Delete)

	// CRM
	mux.Handle("GET /api/leads", crmOnly(http.HandlerFunc(s.crmH.ListLeads)))
	mux.Handle("POST /api/leads", crmOnly(http.HandlerFunc(s.crmH.CreateLead)))
	mux.Handle("GET /api/follow-ups", crmOnly(http.HandlerFunc(s.crmH.ListFollowUps)))
	mux.Handle("POST /api/follow-ups", crmOnly(http.HandlerFunc(s.crmH.CreateFollowUp)))
	mux.Handle("PATCH /api/follow-ups/{id}", crmOnly(http.HandlerFunc(s.crmH.UpdateFollowUp)))

	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket"), s.originPatterns))
}
