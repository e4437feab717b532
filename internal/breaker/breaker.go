// Package breaker provides a small circuit breaker shared by the outbound
// clients (AMQP publisher, HTTP predictor client).
package breaker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Circuit states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

// Defaults used when a zero Config is supplied.
const (
	DefaultMaxFailures = 5
	DefaultOpenTimeout = 30 * time.Second
)

// ErrOpen is returned without invoking the operation while the circuit is open.
var ErrOpen = errors.New("circuit breaker is open")

// Config tunes a Breaker.
type Config struct {
	MaxFailures int
	OpenTimeout time.Duration
}

// Breaker counts consecutive failures and fails fast once MaxFailures is
// reached, until OpenTimeout elapses and a trial call is let through.
type Breaker struct {
	name         string
	maxFailures  int64
	openTimeout  time.Duration
	state        int32
	failureCount int64

	mu          sync.Mutex
	lastFailure time.Time
}

// New creates a closed breaker.
func New(name string, cfg Config) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = DefaultMaxFailures
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultOpenTimeout
	}
	return &Breaker{
		name:        name,
		maxFailures: int64(cfg.MaxFailures),
		openTimeout: cfg.OpenTimeout,
	}
}

// Name returns the breaker name used in logs.
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state.
func (b *Breaker) State() int32 {
	return atomic.LoadInt32(&b.state)
}

// IsOpen reports whether calls are currently rejected. An open circuit whose
// timeout has elapsed moves to half-open and admits a trial call.
func (b *Breaker) IsOpen() bool {
	if atomic.LoadInt32(&b.state) != StateOpen {
		return false
	}
	b.mu.Lock()
	elapsed := time.Since(b.lastFailure)
	b.mu.Unlock()
	if elapsed > b.openTimeout {
		atomic.CompareAndSwapInt32(&b.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

// RecordSuccess closes the circuit and resets the failure count.
func (b *Breaker) RecordSuccess() {
	atomic.StoreInt64(&b.failureCount, 0)
	atomic.StoreInt32(&b.state, StateClosed)
}

// RecordFailure counts a failure and opens the circuit at the threshold or
// when a half-open trial fails.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	b.lastFailure = time.Now()
	b.mu.Unlock()

	n := atomic.AddInt64(&b.failureCount, 1)
	if n >= b.maxFailures || atomic.LoadInt32(&b.state) == StateHalfOpen {
		atomic.StoreInt32(&b.state, StateOpen)
	}
}

// Execute runs op unless the circuit is open. Context cancellation by the
// caller is not counted as a failure.
func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.IsOpen() {
		return ErrOpen
	}
	err := op(ctx)
	switch {
	case err == nil:
		b.RecordSuccess()
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
	default:
		b.RecordFailure()
	}
	return err
}
