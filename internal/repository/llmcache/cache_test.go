package llmcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lifecare-ai/prodsearch/internal/db"
)

type fakeKV struct {
	data map[string][]byte
	sets int
	ttls map[string]time.Duration
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := f.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value []byte) error {
	f.sets++
	f.data[key] = value
	return nil
}

func (f *fakeKV) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	f.sets++
	f.data[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeKV) Exists(_ context.Context, key string) (bool, error) {
	_, ok := f.data[key]
	return ok, nil
}

func TestKey_Deterministic(t *testing.T) {
	a := Key("gpt-4o-mini", "system prompt", "máy giặt 10kg")
	b := Key("gpt-4o-mini", "system prompt", "máy giặt 10kg")
	if a != b {
		t.Error("same inputs must produce the same key")
	}
	if a == Key("gpt-4o", "system prompt", "máy giặt 10kg") {
		t.Error("model must contribute to the key")
	}
	if a == Key("gpt-4o-mini", "system promptm", "áy giặt 10kg") {
		t.Error("message boundaries must contribute to the key")
	}
}

func TestGetByID_Miss(t *testing.T) {
	c := New(newFakeKV(), 0)
	_, ok, err := c.GetByID(context.Background(), "absent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected miss")
	}
}

func TestUpsert_FirstWriteWins(t *testing.T) {
	kv := newFakeKV()
	c := New(kv, 0)
	ctx := context.Background()

	if err := c.Upsert(ctx, "id1", []byte("first")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := c.Upsert(ctx, "id1", []byte("second")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	data, ok, err := c.GetByID(ctx, "id1")
	if err != nil || !ok {
		t.Fatalf("GetByID: ok=%v err=%v", ok, err)
	}
	if string(data) != "first" {
		t.Errorf("expected first write to win, got %q", data)
	}
	if kv.sets != 1 {
		t.Errorf("expected 1 write, got %d", kv.sets)
	}
}

func TestUpsert_WithTTL(t *testing.T) {
	kv := newFakeKV()
	c := New(kv, time.Hour)
	ctx := context.Background()

	if err := c.Upsert(ctx, "id1", []byte("payload")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if kv.ttls[keyPrefix+"id1"] != time.Hour {
		t.Errorf("expected 1h expiry, got %v", kv.ttls[keyPrefix+"id1"])
	}
}

func TestFilterUnseen(t *testing.T) {
	kv := newFakeKV()
	c := New(kv, 0)
	ctx := context.Background()

	if err := c.Upsert(ctx, "seen", []byte("x")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	unseen, err := c.FilterUnseen(ctx, []string{"a", "seen", "b"})
	if err != nil {
		t.Fatalf("FilterUnseen: %v", err)
	}
	if len(unseen) != 2 || unseen[0] != "a" || unseen[1] != "b" {
		t.Errorf("expected [a b], got %v", unseen)
	}
}

// --- extractor decorator ---

type fakeExtractor struct {
	calls int
	out   string
	err   error
}

func (f *fakeExtractor) Extract(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.out, f.err
}

func TestCachingExtractor_SecondCallHitsCache(t *testing.T) {
	inner := &fakeExtractor{out: `{"group":"máy giặt"}`}
	x := NewCachingExtractor(inner, New(newFakeKV(), 0), "gpt-4o-mini")
	ctx := context.Background()

	first, err := x.Extract(ctx, "máy giặt 10kg")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	second, err := x.Extract(ctx, "máy giặt 10kg")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if first != second {
		t.Errorf("cache must return the original payload, got %q vs %q", first, second)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 provider call, got %d", inner.calls)
	}
}

func TestCachingExtractor_ErrorNotCached(t *testing.T) {
	inner := &fakeExtractor{err: errors.New("rate limited")}
	x := NewCachingExtractor(inner, New(newFakeKV(), 0), "gpt-4o-mini")
	ctx := context.Background()

	if _, err := x.Extract(ctx, "q"); err == nil {
		t.Fatal("expected error")
	}

	inner.err = nil
	inner.out = "ok"
	out, err := x.Extract(ctx, "q")
	if err != nil || out != "ok" {
		t.Fatalf("expected recovery after provider error, got %q %v", out, err)
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 provider calls, got %d", inner.calls)
	}
}
