// Package server provides the HTTP API for the pricing engine.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/MurderWizard/pokemon-pricing/internal/classifier"
	"github.com/MurderWizard/pokemon-pricing/internal/database"
	"github.com/MurderWizard/pokemon-pricing/internal/deals"
	"github.com/MurderWizard/pokemon-pricing/internal/resolver"
	"github.com/MurderWizard/pokemon-pricing/internal/store"
	"github.com/MurderWizard/pokemon-pricing/internal/trend"
	"github.com/MurderWizard/pokemon-pricing/pkg/logger"
)

// Config holds server wiring.
type Config struct {
	Log            zerolog.Logger
	DB             *database.DB
	Records        *store.Repository
	Resolver       *resolver.Resolver
	Classifier     *classifier.Classifier
	Trend          *trend.Analyzer
	Grading        *deals.GradingCalculator
	Port           int
	DevMode        bool
	AllowedOrigins []string

	// FreshnessWindow marks resolved prices older than this as stale in
	// API responses.
	FreshnessWindow time.Duration
}

// Server is the HTTP server.
type Server struct {
	router   *chi.Mux
	server   *http.Server
	log      zerolog.Logger
	handlers *Handlers
}

// New creates the HTTP server and wires its routes.
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    logger.Component(cfg.Log, "server"),
		handlers: NewHandlers(
			cfg.Log,
			cfg.DB,
			cfg.Records,
			cfg.Resolver,
			cfg.Classifier,
			cfg.Trend,
			cfg.Grading,
			cfg.FreshnessWindow,
		),
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.setupMiddleware(cfg.DevMode, origins)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware(devMode bool, origins []string) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handlers.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/price", s.handlers.HandleGetPrice)
		r.Get("/observations", s.handlers.HandleGetObservations)
		r.Post("/prices", s.handlers.HandlePostPrice)
		r.Post("/classify", s.handlers.HandleClassify)
		r.Get("/trend", s.handlers.HandleGetTrend)
		r.Get("/grading-profit", s.handlers.HandleGradingProfit)
		r.Get("/fees", s.handlers.HandleFees)
		r.Get("/stats", s.handlers.HandleStats)
		r.Get("/export", s.handlers.HandleExport)
		r.Post("/import", s.handlers.HandleImport)

		r.Route("/system", func(r chi.Router) {
			r.Get("/info", s.handlers.HandleSystemInfo)
			r.Get("/database/stats", s.handlers.HandleDatabaseStats)
		})
	})
}

// Start starts the HTTP server. Blocks until shutdown.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the mux for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
