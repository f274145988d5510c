package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/mikey/llm-mail-triage/internal/core"
	"github.com/mikey/llm-mail-triage/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const (
	frontendHTTP    = "http"
	requestIDHeader = "X-Request-ID"
)

type ctxKey struct{}

// QueryEnhancer rewrites free-text search queries
type QueryEnhancer interface {
	EnhanceSearchQuery(ctx context.Context, query string) string
}

// CacheAdmin exposes cache maintenance operations
type CacheAdmin interface {
	Invalidate(ctx context.Context, pattern string) int
	Stats(ctx context.Context) (*core.CacheStats, error)
}

// Options configures the HTTP frontend
type Options struct {
	ListenAddress  string
	AllowedOrigins []string
	MaxBodyBytes   int64
}

// Server serves the analysis pipeline over a JSON API
type Server struct {
	analyzer   core.Analyzer
	enhancer   QueryEnhancer
	cache      CacheAdmin
	logger     *zap.Logger
	opts       Options
	httpServer *http.Server
}

type analyzeRequest struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type enhanceRequest struct {
	Query string `json:"query"`
}

type envelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// NewServer creates the HTTP frontend
func NewServer(analyzer core.Analyzer, enhancer QueryEnhancer, cache CacheAdmin, logger *zap.Logger, opts Options) *Server {
	return &Server{
		analyzer: analyzer,
		enhancer: enhancer,
		cache:    cache,
		logger:   logger,
		opts:     opts,
	}
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	router := chi.NewRouter()

	router.Use(s.requestID)
	router.Use(s.accessLog)
	router.Use(middleware.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedHeaders: []string{"Authorization", "Content-Type", "Accept", requestIDHeader},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		ExposedHeaders: []string{requestIDHeader},
	}).Handler)

	router.Get("/healthz", s.healthHandler)
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/emails/analyze", s.analyzeHandler)
		r.Post("/search/enhance", s.enhanceHandler)
		r.Delete("/cache", s.invalidateHandler)
		r.Get("/cache/stats", s.statsHandler)
	})

	return router
}

// Start starts listening in the background
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.opts.ListenAddress,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("HTTP API starting", zap.String("address", s.opts.ListenAddress))

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the server down, letting in-flight requests finish
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// ProcessEmail analyzes an email directly
func (s *Server) ProcessEmail(ctx context.Context, email *core.Email) (*core.AnalysisResult, error) {
	return s.analyzer.Analyze(ctx, email)
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !s.decode(w, r, &req) {
		return
	}

	email := &core.Email{ID: req.ID, Subject: req.Subject, Body: req.Body}
	if email.ID == "" {
		email.ID = RequestID(r.Context())
	}

	result, err := s.ProcessEmail(r.Context(), email)
	if err != nil {
		metrics.IncrementEmailProcessed(frontendHTTP, "error")
		s.logger.Error("Failed to analyze email",
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}
	metrics.IncrementEmailProcessed(frontendHTTP, "analyzed")

	s.writeSuccess(w, map[string]any{"email": email, "analysis": result})
}

func (s *Server) enhanceHandler(w http.ResponseWriter, r *http.Request) {
	var req enhanceRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	s.writeSuccess(w, map[string]string{
		"original": req.Query,
		"enhanced": s.enhancer.EnhanceSearchQuery(r.Context(), req.Query),
	})
}

func (s *Server) invalidateHandler(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	deleted := s.cache.Invalidate(r.Context(), pattern)
	s.writeSuccess(w, map[string]int{"deleted": deleted})
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.cache.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "cache statistics unavailable")
		return
	}
	s.writeSuccess(w, stats)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := r.Body
	if s.opts.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) writeSuccess(w http.ResponseWriter, data any) {
	s.writeJSON(w, http.StatusOK, envelope{Status: "success", Data: data})
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, envelope{Status: "error", Message: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to write response", zap.Error(err))
	}
}

// requestID propagates or assigns a request id
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Debug("HTTP request",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)))
	})
}

// RequestID returns the request id stored in ctx, if any
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
