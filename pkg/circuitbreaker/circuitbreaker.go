// Package circuitbreaker wraps sony/gobreaker for the upstreams the widget talks to
package circuitbreaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrOpen is returned when the breaker rejects a call without running it
var ErrOpen = errors.New("circuit breaker open")

// State represents the circuit breaker state
type State gobreaker.State

func (s State) String() string {
	return gobreaker.State(s).String()
}

const (
	StateClosed   State = State(gobreaker.StateClosed)
	StateHalfOpen State = State(gobreaker.StateHalfOpen)
	StateOpen     State = State(gobreaker.StateOpen)
)

// Config holds circuit breaker configuration
type Config struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
	// Tripping reports whether err counts against the breaker. Nil means every error trips.
	Tripping      func(err error) bool
	OnStateChange func(name string, from, to State)
}

// DefaultConfig returns the settings used for upstream HTTP APIs
func DefaultConfig(name string, logger *zap.Logger) Config {
	return Config{
		Name:             name,
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		OnStateChange: func(name string, from, to State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("upstream", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
}

// CircuitBreaker wraps gobreaker.CircuitBreaker
type CircuitBreaker struct {
	name string
	cb   *gobreaker.CircuitBreaker
}

// New creates a new CircuitBreaker with the given config
func New(cfg Config) *CircuitBreaker {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	}
	if cfg.Tripping != nil {
		tripping := cfg.Tripping
		settings.IsSuccessful = func(err error) bool {
			return err == nil || !tripping(err)
		}
	}
	if cfg.OnStateChange != nil {
		settings.OnStateChange = func(name string, from gobreaker.State, to gobreaker.State) {
			cfg.OnStateChange(name, State(from), State(to))
		}
	}
	return &CircuitBreaker{name: cfg.Name, cb: gobreaker.NewCircuitBreaker(settings)}
}

// Name returns the upstream name the breaker guards
func (c *CircuitBreaker) Name() string {
	return c.name
}

// Execute runs fn through the breaker. The function's own error is returned
// unchanged; a rejected call returns an error wrapping ErrOpen.
func (c *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Join(ErrOpen, err)
	}
	return err
}

// State returns the current state of the circuit breaker
func (c *CircuitBreaker) State() State {
	return State(c.cb.State())
}
