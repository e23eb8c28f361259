package effects

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-blob/pkg/logging"
	"github.com/opd-ai/go-blob/pkg/physics"
)

// Emitter is an effect output that can fail, e.g. an audio device
type Emitter interface {
	Emit(point, direction physics.Vector2D) error
}

// EmitterFunc adapts a function to Emitter
type EmitterFunc func(point, direction physics.Vector2D) error

// Emit calls f
func (f EmitterFunc) Emit(point, direction physics.Vector2D) error { return f(point, direction) }

// BreakerSettings configures the circuit breaker around an Emitter
type BreakerSettings struct {
	Name                   string        `json:"name" yaml:"name"`
	MaxRequests            uint32        `json:"max_requests" yaml:"max_requests"`
	Interval               time.Duration `json:"interval" yaml:"interval"`
	Timeout                time.Duration `json:"timeout" yaml:"timeout"`
	MaxConsecutiveFailures uint32        `json:"max_consecutive_failures" yaml:"max_consecutive_failures"`
}

// DefaultBreakerSettings trips after five straight failures and probes again
// after ten seconds
func DefaultBreakerSettings(name string) BreakerSettings {
	return BreakerSettings{
		Name:                   name,
		MaxRequests:            1,
		Interval:               time.Minute,
		Timeout:                10 * time.Second,
		MaxConsecutiveFailures: 5,
	}
}

// Guarded turns a fallible Emitter into a Sink. Failures and panics are
// counted and logged, and once the breaker opens the emitter is skipped
// entirely until the timeout elapses.
type Guarded struct {
	breaker *gobreaker.CircuitBreaker
	emitter Emitter
	logger  *logging.Logger
	ctx     context.Context

	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// NewGuarded wraps emitter. A nil logger discards output.
func NewGuarded(ctx context.Context, emitter Emitter, s BreakerSettings, logger *logging.Logger) *Guarded {
	if logger == nil {
		logger = logging.Discard()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if s.MaxConsecutiveFailures == 0 {
		s.MaxConsecutiveFailures = 1
	}

	g := &Guarded{emitter: emitter, logger: logger, ctx: ctx}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.MaxConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info(ctx, "effect breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return g
}

// OnAnchor emits through the breaker and swallows every failure
func (g *Guarded) OnAnchor(point, direction physics.Vector2D) {
	_, err := g.breaker.Execute(func() (res interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("emitter panic: %v", r)
			}
		}()
		return nil, g.emitter.Emit(point, direction)
	})
	if err != nil {
		g.dropped.Add(1)
		g.logger.Debug(g.ctx, "anchor effect dropped",
			"error", err.Error(),
			"state", g.breaker.State().String(),
		)
		return
	}
	g.delivered.Add(1)
}

// State returns the current state of the circuit breaker
func (g *Guarded) State() gobreaker.State {
	return g.breaker.State()
}

// Counts returns the breaker's counters for the current interval
func (g *Guarded) Counts() gobreaker.Counts {
	return g.breaker.Counts()
}

// Delivered is the number of notifications the emitter accepted
func (g *Guarded) Delivered() uint64 { return g.delivered.Load() }

// Dropped is the number of notifications lost to failures or an open breaker
func (g *Guarded) Dropped() uint64 { return g.dropped.Load() }
