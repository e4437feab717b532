package breaker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestBreaker_OpensAfterMaxFailures(t *testing.T) {
	b := New("test", Config{MaxFailures: 3, OpenTimeout: time.Minute})
	boom := errors.New("boom")
	calls := 0
	op := func(context.Context) error {
		calls++
		return boom
	}

	for i := 0; i < 3; i++ {
		if err := b.Execute(context.Background(), op); !errors.Is(err, boom) {
			t.Fatalf("call %d error = %v, want boom", i, err)
		}
	}
	if !b.IsOpen() {
		t.Fatal("breaker should be open after 3 failures")
	}
	if err := b.Execute(context.Background(), op); !errors.Is(err, ErrOpen) {
		t.Fatalf("error = %v, want ErrOpen", err)
	}
	if calls != 3 {
		t.Fatalf("op called %d times, want 3", calls)
	}
}

func TestBreaker_HalfOpenAfterTimeout(t *testing.T) {
	b := New("test", Config{MaxFailures: 1, OpenTimeout: time.Second})
	b.RecordFailure()
	if !b.IsOpen() {
		t.Fatal("breaker should be open")
	}

	b.mu.Lock()
	b.lastFailure = time.Now().Add(-2 * time.Second)
	b.mu.Unlock()

	if b.IsOpen() {
		t.Fatal("breaker should admit a trial call after the timeout")
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("state = %d, want half-open", b.State())
	}

	b.RecordFailure()
	if b.State() != StateOpen {
		t.Fatal("failed trial should reopen the circuit")
	}
}

func TestBreaker_SuccessResets(t *testing.T) {
	b := New("test", Config{})
	atomic.StoreInt64(&b.failureCount, 3)
	atomic.StoreInt32(&b.state, StateOpen)

	b.RecordSuccess()
	if b.IsOpen() || atomic.LoadInt64(&b.failureCount) != 0 {
		t.Fatal("success should close the circuit and reset the count")
	}
}

func TestBreaker_CancelledContext(t *testing.T) {
	b := New("test", Config{MaxFailures: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Execute(ctx, func(context.Context) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if b.IsOpen() {
		t.Fatal("cancellation must not open the circuit")
	}
}
