package retrieve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lifecare-ai/prodsearch/internal/domain"
	"github.com/lifecare-ai/prodsearch/internal/domain/spec"
	"github.com/lifecare-ai/prodsearch/internal/format"
	"github.com/lifecare-ai/prodsearch/internal/logger"
	"github.com/lifecare-ai/prodsearch/internal/metrics"
	"github.com/lifecare-ai/prodsearch/internal/usecase/compile"
)

// Response is the chat-facing search result: the rendered text block and
// the parallel summary list. Both empty means no match.
type Response struct {
	Text      string           `json:"text"`
	Summaries []format.Summary `json:"summaries"`
}

// Service runs the retrieval pipeline: extract the specification from the
// user text, normalize it, compile it against the group vocabulary, query
// the configured backend and render the result.
type Service struct {
	extractor Extractor
	compiler  *compile.Compiler
	backend   Backend
	driver    string
}

// NewService wires the pipeline. driver names the backend in metrics and
// logs (lexical, vector or ensemble).
func NewService(extractor Extractor, compiler *compile.Compiler, backend Backend, driver string) *Service {
	return &Service{extractor: extractor, compiler: compiler, backend: backend, driver: driver}
}

// Search executes the full pipeline for one user query.
//
// An unknown product group short-circuits to an empty response with a nil
// error: the question is simply about something the catalog does not carry.
// Every other failure propagates; an empty response never masks an error.
func (s *Service) Search(ctx context.Context, userQuery string) (Response, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	raw, err := s.extractor.Extract(ctx, userQuery)
	if err != nil {
		s.observe("error", start, 0)
		return Response{}, fmt.Errorf("extract specification: %w", err)
	}

	specification, err := spec.Normalize(raw)
	if err != nil {
		s.observe("error", start, 0)
		return Response{}, fmt.Errorf("normalize specification: %w", err)
	}

	compiled, err := s.compiler.Compile(specification)
	if errors.Is(err, domain.ErrUnknownGroup) {
		log.Info("unknown product group, returning empty result",
			zap.String("group", specification.Group().Value()))
		s.observe("unknown_group", start, 0)
		return Response{}, nil
	}
	if err != nil {
		s.observe("error", start, 0)
		return Response{}, fmt.Errorf("compile query: %w", err)
	}

	hits, err := s.backend.Query(ctx, Request{Text: userQuery, Compiled: compiled})
	if err != nil {
		s.observe("error", start, 0)
		return Response{}, fmt.Errorf("query %s backend: %w", s.driver, err)
	}

	text, summaries := format.Format(hits)

	log.Debug("search completed",
		zap.String("backend", s.driver),
		zap.Int("hits", len(hits)),
		zap.Duration("took", time.Since(start)))
	s.observe("success", start, len(hits))

	return Response{Text: text, Summaries: summaries}, nil
}

func (s *Service) observe(status string, start time.Time, hits int) {
	metrics.SearchRequestsTotal.WithLabelValues(s.driver, status).Inc()
	metrics.SearchRequestDuration.WithLabelValues(s.driver).Observe(time.Since(start).Seconds())
	if status == "success" {
		metrics.SearchResultsReturned.WithLabelValues(s.driver).Observe(float64(hits))
	}
}
