// Package resilience provides the circuit breaker guarding database
// reconnect attempts: once a worker's reconnect loop fails to acquire
// a session enough times in a row, further reconnect attempts fail
// fast instead of hammering a database that is still down.
package resilience

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CircuitBreakerState represents the current state of a circuit breaker.
type CircuitBreakerState int

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker protects a single worker's reconnect loop against
// cascading failures: after maxFailures consecutive failures it opens
// and fails fast for resetTimeout before allowing one half-open probe.
type CircuitBreaker struct {
	mu     sync.Mutex
	logger *zap.Logger
	name   string

	maxFailures     int64
	resetTimeout    time.Duration
	halfOpenMaxReqs int64

	state           CircuitBreakerState
	failures        int64
	requests        int64
	successes       int64
	lastFailureTime time.Time
	lastStateChange time.Time

	halfOpenReqs int64
	halfOpenSucc int64
}

// CircuitBreakerConfig configures a new CircuitBreaker.
type CircuitBreakerConfig struct {
	Name            string
	MaxFailures     int64
	ResetTimeout    time.Duration
	HalfOpenMaxReqs int64
}

// NewCircuitBreaker creates a CircuitBreaker in the closed state.
func NewCircuitBreaker(config CircuitBreakerConfig, logger *zap.Logger) *CircuitBreaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	cb := &CircuitBreaker{
		logger:          logger,
		name:            config.Name,
		maxFailures:     config.MaxFailures,
		resetTimeout:    config.ResetTimeout,
		halfOpenMaxReqs: config.HalfOpenMaxReqs,
		state:           StateClosed,
		lastStateChange: time.Now(),
	}
	if cb.maxFailures <= 0 {
		cb.maxFailures = 5
	}
	if cb.resetTimeout <= 0 {
		cb.resetTimeout = 30 * time.Second
	}
	if cb.halfOpenMaxReqs <= 0 {
		cb.halfOpenMaxReqs = 1
	}
	return cb
}

// Execute runs fn under circuit-breaker protection. If the breaker is
// open, fn is not called and an error is returned immediately.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allowRequest() {
		return fmt.Errorf("circuit breaker %s is open: refusing reconnect attempt", cb.name)
	}

	err := fn()
	if err != nil {
		cb.onRequestFailure()
		return err
	}
	cb.onRequestSuccess()
	return nil
}

// State returns the current circuit breaker state.
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the breaker back to closed, used when an operator
// manually restarts a worker after fixing the underlying outage.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.setState(StateClosed)
	cb.failures = 0
	cb.halfOpenReqs = 0
	cb.halfOpenSucc = 0
}

func (cb *CircuitBreaker) allowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(cb.lastStateChange) >= cb.resetTimeout {
			cb.setState(StateHalfOpen)
			cb.halfOpenReqs = 0
			cb.halfOpenSucc = 0
			return true
		}
		return false
	case StateHalfOpen:
		return cb.halfOpenReqs < cb.halfOpenMaxReqs
	default:
		return false
	}
}

func (cb *CircuitBreaker) onRequestSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.requests++
	cb.successes++

	if cb.state == StateClosed {
		cb.failures = 0
	}
	if cb.state == StateHalfOpen {
		cb.halfOpenReqs++
		cb.halfOpenSucc++
		if cb.halfOpenSucc >= cb.halfOpenMaxReqs {
			cb.setState(StateClosed)
			cb.failures = 0
		}
	}
}

func (cb *CircuitBreaker) onRequestFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.requests++
	cb.failures++
	cb.lastFailureTime = time.Now()

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.maxFailures {
			cb.setState(StateOpen)
		}
	case StateHalfOpen:
		cb.halfOpenReqs++
		cb.setState(StateOpen)
	}
}

func (cb *CircuitBreaker) setState(newState CircuitBreakerState) {
	old := cb.state
	cb.state = newState
	cb.lastStateChange = time.Now()
	if old != newState {
		cb.logger.Info("circuit breaker state changed",
			zap.String("name", cb.name),
			zap.String("from", old.String()),
			zap.String("to", newState.String()))
	}
}
