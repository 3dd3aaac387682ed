package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("transient")

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_RetriesUntilExhausted(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2}

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return errTransient
	}, func(err error) bool { return errors.Is(err, errTransient) })

	if !errors.Is(err, errTransient) {
		t.Fatalf("error = %v, want errTransient", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: time.Millisecond}
	fatal := errors.New("fatal")

	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return fatal
	}, func(err error) bool { return errors.Is(err, errTransient) })

	if !errors.Is(err, fatal) {
		t.Fatalf("error = %v, want fatal", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_ZeroPolicyRunsOnce(t *testing.T) {
	var p Policy

	calls := 0
	_ = p.Do(context.Background(), func(context.Context) error {
		calls++
		return errTransient
	}, func(error) bool { return true })

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_ContextCancel(t *testing.T) {
	p := Policy{MaxAttempts: 10, BaseDelay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := p.Do(ctx, func(context.Context) error {
		return errTransient
	}, func(error) bool { return true })

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
