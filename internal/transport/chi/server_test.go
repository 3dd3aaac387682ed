package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/lifecare-ai/prodsearch/internal/domain"
	"github.com/lifecare-ai/prodsearch/internal/format"
	"github.com/lifecare-ai/prodsearch/internal/usecase/retrieve"
)

type stubSearcher struct {
	resp retrieve.Response
	err  error
}

func (s *stubSearcher) Search(context.Context, string) (retrieve.Response, error) {
	return s.resp, s.err
}

type stubPinger struct{ err error }

func (p *stubPinger) Ping(context.Context) error { return p.err }

func newTestServer(search Searcher, store Pinger) http.Handler {
	return NewServer(search, store, zap.NewNop()).Router()
}

func doSearch(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSearch_OK(t *testing.T) {
	search := &stubSearcher{resp: retrieve.Response{
		Text:      "\n1. Tên: 'Máy giặt LG'\n",
		Summaries: []format.Summary{{ID: "P1", Name: "Máy giặt LG", FilePath: "data/P1.pdf"}},
	}}
	h := newTestServer(search, nil)

	rec := doSearch(t, h, `{"query":"máy giặt 10 triệu"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp retrieve.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Summaries) != 1 || resp.Summaries[0].ID != "P1" {
		t.Errorf("summaries = %+v", resp.Summaries)
	}
}

func TestSearch_EmptyQueryRejected(t *testing.T) {
	h := newTestServer(&stubSearcher{}, nil)

	rec := doSearch(t, h, `{"query":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, expected 400", rec.Code)
	}
}

func TestSearch_InvalidBody(t *testing.T) {
	h := newTestServer(&stubSearcher{}, nil)

	rec := doSearch(t, h, `{"query":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, expected 400", rec.Code)
	}
}

func TestSearch_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{"backend unavailable", domain.ErrBackendUnavailable, http.StatusServiceUnavailable, "backend_unavailable"},
		{"provider error", domain.ErrEmbeddingProviderError, http.StatusBadGateway, "embedding_provider_error"},
		{"no tool call", domain.ErrExtractionFailed, http.StatusBadGateway, "extraction_failed"},
		{"malformed payload", domain.ErrMalformedSpecification, http.StatusBadGateway, "malformed_specification"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(&stubSearcher{err: tt.err}, nil)

			rec := doSearch(t, h, `{"query":"máy giặt"}`)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, expected %d", rec.Code, tt.status)
			}

			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body["code"] != tt.code {
				t.Errorf("code = %q, expected %q", body["code"], tt.code)
			}
			if tt.status == http.StatusInternalServerError && body["message"] != "internal error" {
				t.Errorf("internal errors must not leak details, got %q", body["message"])
			}
		})
	}
}

func TestHealthCheck_NoStore(t *testing.T) {
	h := newTestServer(&stubSearcher{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHealthCheck_StoreDown(t *testing.T) {
	h := newTestServer(&stubSearcher{}, &stubPinger{err: errors.New("connection refused")})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, expected 503", rec.Code)
	}

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "unhealthy" || body.Checks["store"] != "unhealthy" {
		t.Errorf("body = %+v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(&stubSearcher{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("expected prometheus exposition output")
	}
}
