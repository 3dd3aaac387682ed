// Package chi exposes the retrieval pipeline over HTTP: POST /search,
// GET /healthz, GET /metrics.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lifecare-ai/prodsearch/internal/domain"
	"github.com/lifecare-ai/prodsearch/internal/logger"
	"github.com/lifecare-ai/prodsearch/internal/metrics"
	"github.com/lifecare-ai/prodsearch/internal/usecase/retrieve"
)

// Pinger is the optional store health probe. Nil for in-memory backends.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Searcher runs the retrieval pipeline for one user query.
type Searcher interface {
	Search(ctx context.Context, userQuery string) (retrieve.Response, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the HTTP transport over the retrieval service.
type Server struct {
	search        Searcher
	store         Pinger
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates the HTTP API server. store may be nil when the
// configured backend keeps no external state.
func NewServer(search Searcher, store Pinger, log *zap.Logger) *Server {
	s := &Server{
		search: search,
		store:  store,
		logger: log,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"),
		sentinelHandler(domain.ErrBackendUnavailable, http.StatusServiceUnavailable, "backend_unavailable"),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, "embedding_provider_error"),
		sentinelHandler(domain.ErrExtractionFailed, http.StatusBadGateway, "extraction_failed"),
		sentinelHandler(domain.ErrMalformedSpecification, http.StatusBadGateway, "malformed_specification"),
	}
	return s
}

// Router assembles the chi router with the middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())

	r.Post("/search", s.Search)
	r.Get("/healthz", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	return r
}

// searchRequest is the POST /search body.
type searchRequest struct {
	Query string `json:"query"`
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "query is required")
		return
	}

	resp, err := s.search.Search(r.Context(), req.Query)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /healthz. Reports the store check only when a
// store is wired.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	status, httpStatus := "healthy", http.StatusOK

	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			checks["store"] = "unhealthy"
			status, httpStatus = "unhealthy", http.StatusServiceUnavailable
		} else {
			checks["store"] = "healthy"
		}
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": status,
		"checks": checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// requestLogger injects a request-scoped logger into the context and emits
// one canonical line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqLog := s.logger.With(zap.String("request_id", middleware.GetReqID(r.Context())))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(logger.ContextWithLogger(r.Context(), reqLog)))

		reqLog.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)))
	})
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrRateLimited,
		domain.ErrBackendUnavailable,
		domain.ErrEmbeddingProviderError,
		domain.ErrExtractionFailed,
		domain.ErrMalformedSpecification,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}
