package retrieve

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lifecare-ai/prodsearch/internal/domain"
	"github.com/lifecare-ai/prodsearch/internal/domain/catalog"
	"github.com/lifecare-ai/prodsearch/internal/domain/result"
	"github.com/lifecare-ai/prodsearch/internal/usecase/compile"
)

type fakeBackend struct {
	calls    int
	lastReq  Request
	hits     []result.Ranked
	queryErr error
}

func (f *fakeBackend) Query(_ context.Context, req Request) ([]result.Ranked, error) {
	f.calls++
	f.lastReq = req
	return f.hits, f.queryErr
}

func (f *fakeBackend) Upsert(context.Context, []catalog.Product) error { return nil }
func (f *fakeBackend) EnsureIndexed(context.Context) error             { return nil }

type stubExtractor struct {
	payload string
	err     error
}

func (s *stubExtractor) Extract(context.Context, string) (string, error) {
	return s.payload, s.err
}

func washingMachine(id, name string, price float64) catalog.Product {
	return catalog.Product{
		ID:             id,
		Name:           name,
		GroupName:      "máy giặt cửa trước",
		GroupProduct:   "máy giặt",
		Price:          price,
		SoldQuantity:   10,
		Specifications: "10kg, inverter",
		FilePath:       "data/" + id + ".pdf",
	}
}

func newTestService(x Extractor, b Backend) *Service {
	compiler := compile.New([]string{"máy giặt", "điều hòa"}, 3)
	return NewService(x, compiler, b, "lexical")
}

const fullPayload = `{"group":"máy giặt","object":"máy giặt LG","price":"10 triệu","power":"","weight":"","volume":"","intent":"mua"}`

func TestSearch_Pipeline(t *testing.T) {
	backend := &fakeBackend{hits: []result.Ranked{
		result.New(washingMachine("P1", "Máy giặt LG AI DD", 9_500_000), 0, nil),
		result.New(washingMachine("P2", "Máy giặt Toshiba", 8_900_000), 1, nil),
	}}
	svc := newTestService(&stubExtractor{payload: fullPayload}, backend)

	resp, err := svc.Search(context.Background(), "tôi muốn mua máy giặt LG tầm 10 triệu")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if backend.calls != 1 {
		t.Fatalf("expected 1 backend call, got %d", backend.calls)
	}
	if backend.lastReq.Text != "tôi muốn mua máy giặt LG tầm 10 triệu" {
		t.Errorf("raw text must reach the backend, got %q", backend.lastReq.Text)
	}
	if g, ok := backend.lastReq.Compiled.MatchValue(catalog.ColGroupProduct); !ok || g != "máy giặt" {
		t.Errorf("compiled group = %q ok=%v", g, ok)
	}
	if len(backend.lastReq.Compiled.Ranges()) != 1 {
		t.Errorf("expected one range filter, got %d", len(backend.lastReq.Compiled.Ranges()))
	}

	if !strings.Contains(resp.Text, "Máy giặt LG AI DD") {
		t.Errorf("rendered text missing product name: %q", resp.Text)
	}
	if len(resp.Summaries) != 2 || resp.Summaries[0].ID != "P1" {
		t.Errorf("summaries = %+v", resp.Summaries)
	}
}

func TestSearch_UnknownGroupIsEmptyNotError(t *testing.T) {
	backend := &fakeBackend{}
	payload := `{"group":"xe máy","object":"","price":"","power":"","weight":"","volume":"","intent":""}`
	svc := newTestService(&stubExtractor{payload: payload}, backend)

	resp, err := svc.Search(context.Background(), "bán xe máy không")
	if err != nil {
		t.Fatalf("unknown group must not be an error: %v", err)
	}
	if resp.Text != "" || resp.Summaries != nil {
		t.Errorf("expected empty response, got %+v", resp)
	}
	if backend.calls != 0 {
		t.Errorf("backend must not be contacted for unknown groups, got %d calls", backend.calls)
	}
}

func TestSearch_ExtractorErrorPropagates(t *testing.T) {
	svc := newTestService(&stubExtractor{err: domain.ErrBackendUnavailable}, &fakeBackend{})

	_, err := svc.Search(context.Background(), "máy giặt")
	if !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestSearch_MalformedPayloadIsFatal(t *testing.T) {
	backend := &fakeBackend{}
	svc := newTestService(&stubExtractor{payload: "not json"}, backend)

	_, err := svc.Search(context.Background(), "máy giặt")
	if !errors.Is(err, domain.ErrMalformedSpecification) {
		t.Fatalf("expected ErrMalformedSpecification, got %v", err)
	}
	if backend.calls != 0 {
		t.Errorf("backend must not be contacted for malformed payloads")
	}
}

func TestSearch_BackendErrorPropagates(t *testing.T) {
	backend := &fakeBackend{queryErr: errors.New("index offline")}
	svc := newTestService(&stubExtractor{payload: fullPayload}, backend)

	_, err := svc.Search(context.Background(), "máy giặt")
	if err == nil || !strings.Contains(err.Error(), "index offline") {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestSearch_NoHitsIsEmptyResponse(t *testing.T) {
	svc := newTestService(&stubExtractor{payload: fullPayload}, &fakeBackend{})

	resp, err := svc.Search(context.Background(), "máy giặt")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if resp.Text != "" || resp.Summaries != nil {
		t.Errorf("expected empty response for zero hits, got %+v", resp)
	}
}
