package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"flavorwatch/internal/app"
	"flavorwatch/internal/config"
	"flavorwatch/internal/flavor"
	"flavorwatch/internal/observability"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

type Server struct {
	config     config.ServerConfig
	runner     app.Runner
	logger     *observability.Logger
	router     chi.Router
	httpServer *http.Server
}

func New(cfg config.ServerConfig, runner app.Runner, logger *observability.Logger) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	s := &Server{
		config: cfg,
		runner: runner,
		logger: logger,
		router: r,
	}
	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	r := s.router

	r.Get("/", s.handleCheck)

	// Only GET / exists; every other method or path is answered the same way.
	r.MethodNotAllowed(methodNotAllowed)
	r.NotFound(methodNotAllowed)
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run blocks until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	s.logger.Info("HTTP server listening", "address", s.config.Address)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.config.NotifyOnDemand {
		// A client that hangs up must not cut the recipient list short. The fetch and
		// every send carry their own timeouts.
		ctx = context.WithoutCancel(ctx)
	}

	outcome, err := s.runner.Run(ctx, app.RunOptions{
		Notify:  s.config.NotifyOnDemand,
		Trigger: "http",
	})
	if err != nil {
		// The pipeline has already logged the cause.
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	body, err := json.Marshal(flavor.NewView(outcome.Result, outcome.Matched))
	if err != nil {
		s.logger.Error("Failed to encode response", "error", err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		s.logger.Warn("Failed to write response",
			"request_id", middleware.GetReqID(r.Context()),
			"error", err.Error(),
		)
	}
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusMethodNotAllowed)
}

func requestLogger(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info("HTTP request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", ww.Status(),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
