// Package server provides the HTTP API for licita.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/licita/internal/config"
	"github.com/hyperjump/licita/internal/keyword"
	"github.com/hyperjump/licita/internal/metrics"
	"github.com/hyperjump/licita/internal/recommend"
	"github.com/hyperjump/licita/internal/scoring"
	"github.com/hyperjump/licita/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Server is the HTTP server for the licita API.
type Server struct {
	engine   *recommend.Engine
	storage  storage.Storage
	keyword  keyword.SupplierIndex
	scorer   *scoring.Service
	metrics  *metrics.Metrics
	config   *config.Config
	logger   *zap.Logger
	limiter  *rate.Limiter
	server   *http.Server
	router   http.Handler
	bgCtx    context.Context
	bgCancel context.CancelFunc
	bg       sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithKeywordIndex enables supplier search and keeps idx in sync with supplier changes.
func WithKeywordIndex(idx keyword.SupplierIndex) Option {
	return func(s *Server) { s.keyword = idx }
}

// WithScorer enables proposal scoring.
func WithScorer(scorer *scoring.Service) Option {
	return func(s *Server) { s.scorer = scorer }
}

// WithMetrics records request metrics and serves them at /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a server with the given dependencies.
func NewServer(engine *recommend.Engine, store storage.Storage, cfg *config.Config, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine:  engine,
		storage: store,
		config:  cfg,
		logger:  logger,
		limiter: newTrainLimiter(cfg.Server.TrainRatePerMinute),
	}
	s.bgCtx, s.bgCancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// newTrainLimiter allows perMinute rebuild requests per minute with an equal burst.
// A negative value disables the limit.
func newTrainLimiter(perMinute int) *rate.Limiter {
	if perMinute < 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if perMinute == 0 {
		perMinute = 1
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/recommendations", func(r chi.Router) {
			r.Post("/train", s.handleTrain)
			r.Get("/train/{token}", s.handleTrainJob)
			r.Get("/status", s.handleRecommenderStatus)
			r.Get("/{tender_id}", s.handleRecommend)
		})
		r.Route("/suppliers", func(r chi.Router) {
			r.Post("/", s.handleCreateSupplier)
			r.Get("/", s.handleListSuppliers)
			r.Get("/search", s.handleSearchSuppliers)
			r.Get("/{id}", s.handleGetSupplier)
			r.Delete("/{id}", s.handleDeleteSupplier)
		})
		r.Route("/tenders", func(r chi.Router) {
			r.Post("/", s.handleCreateTender)
			r.Get("/", s.handleListTenders)
			r.Get("/{id}", s.handleGetTender)
			r.Post("/{id}/proposals", s.handleCreateProposal)
			r.Get("/{id}/proposals", s.handleListProposals)
			r.Post("/{id}/scores", s.handleScoreTender)
		})
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server and waits for background scoring jobs.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	s.bgCancel()
	done := make(chan struct{})
	go func() {
		s.bg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

// observe logs each request and records it in metrics under its route pattern.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(route, r.Method, status, elapsed)
		}
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
