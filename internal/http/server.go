package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"finadvisor/internal/classify"
	"finadvisor/internal/core"
	applog "finadvisor/internal/log"
	"finadvisor/internal/services"
)

// Store is the persistence the stored-data endpoints read from.
type Store interface {
	services.AdvisorStore
	Ping(ctx context.Context) error
}

// Deps are the collaborators behind the API. Forecaster and Store are
// optional; the endpoints that need a missing one answer 503.
type Deps struct {
	Forecaster *services.Forecaster
	Advisor    *services.BatchAdvisor
	Store      Store
	// PredictorReady reports whether the predictor is accepting calls.
	PredictorReady func() bool
	Logger         *applog.Logger
	// RateLimit is the number of POST requests per minute per client.
	RateLimit int
	Now       func() time.Time
}

// Server wraps http.Server to add the advisory routes.
type Server struct {
	http.Server

	forecaster     *services.Forecaster
	advisor        *services.BatchAdvisor
	stored         *services.AdvisorService
	store          Store
	predictorReady func() bool
	logger         *applog.Logger
	now            func() time.Time

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.RateLimit <= 0 {
		deps.RateLimit = 60
	}
	if deps.Advisor == nil {
		deps.Advisor = services.NewBatchAdvisor(classify.New(classify.DefaultTable()), services.DefaultReminderWindow, services.DefaultLowBalanceThreshold())
	}

	s := &Server{
		forecaster:     deps.Forecaster,
		advisor:        deps.Advisor,
		store:          deps.Store,
		predictorReady: deps.PredictorReady,
		logger:         deps.Logger,
		now:            deps.Now,
		rateLimiter:    newRateLimiter(deps.RateLimit),
	}
	if deps.Store != nil {
		s.stored = services.NewAdvisorService(deps.Store, deps.Advisor)
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Code: "not_found", Error: "not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Code: "method_not_allowed", Error: "method not allowed"})
	})

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/forecast", s.handleForecast).Methods(http.MethodPost)
	api.HandleFunc("/advisory", s.handleBatchAdvisory).Methods(http.MethodPost)
	api.HandleFunc("/advisory", s.handleStoredAdvisory).Methods(http.MethodGet)
	api.HandleFunc("/reminders", s.handleReminders).Methods(http.MethodGet)
	api.HandleFunc("/projection", s.handleProjection).Methods(http.MethodGet)

	var h http.Handler = r
	h = s.rateLimiter.middleware(h)
	h = securityHeaders(h)
	h = handlers.CompressHandler(h)
	h = handlers.CORS(
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost}),
		handlers.AllowedHeaders([]string{"Content-Type", applog.RequestIDHeader}),
		handlers.ExposedHeaders([]string{applog.RequestIDHeader}),
	)(h)
	h = applog.AccessLog(h)
	h = applog.RequestIDMiddleware(h)
	h = applog.Middleware(s.logger)(h)
	h = handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{s.logger}))(h)
	return h
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// recoveryLogger adapts the application logger to gorilla's RecoveryHandlerLogger.
type recoveryLogger struct {
	logger *applog.Logger
}

func (l recoveryLogger) Println(args ...any) {
	l.logger.Error("Panic recovered in handler", "panic", args)
}

func (s *Server) today() core.Date {
	return core.DateOf(s.now())
}
