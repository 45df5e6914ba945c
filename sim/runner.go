package sim

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/mmwave-channel-sim/internal/logging"
)

// TickFunc is one simulation callback. Returning an error halts the run:
// failures in the channel core indicate wiring bugs, not transient
// conditions, so the run must not continue with corrupted state.
type TickFunc func(ctx context.Context, now time.Duration) error

// Runner steps simulation time in fixed ticks and invokes the registered
// callbacks in registration order at every step. It owns the manual clock,
// so components reading the clock during a callback see the tick's time.
type Runner struct {
	clock     *ManualClock
	tick      time.Duration
	listeners []TickFunc
	log       logging.Logger
}

// NewRunner builds a runner with the given tick interval.
func NewRunner(tick time.Duration, log logging.Logger) (*Runner, error) {
	if tick <= 0 {
		return nil, fmt.Errorf("tick interval must be positive, got %v", tick)
	}
	if log == nil {
		log = logging.Noop()
	}
	return &Runner{
		clock: NewManualClock(),
		tick:  tick,
		log:   log,
	}, nil
}

// Clock returns the runner's simulation clock.
func (r *Runner) Clock() *ManualClock {
	return r.clock
}

// OnTick registers a callback invoked at every simulation step.
func (r *Runner) OnTick(fn TickFunc) {
	r.listeners = append(r.listeners, fn)
}

// Run advances simulation time from zero through duration inclusive,
// invoking all callbacks at each step. It stops early when the context is
// cancelled or a callback fails.
func (r *Runner) Run(ctx context.Context, duration time.Duration) error {
	tracer := otel.Tracer("sim")

	for now := time.Duration(0); now <= duration; now += r.tick {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.clock.Set(now)

		tickCtx, span := tracer.Start(ctx, "sim.tick",
			trace.WithAttributes(attribute.Float64("sim.time_seconds", now.Seconds())))
		for _, fn := range r.listeners {
			if err := fn(tickCtx, now); err != nil {
				span.End()
				r.log.Error(tickCtx, "tick callback failed",
					logging.Float64("sim_time_seconds", now.Seconds()),
					logging.String("error", err.Error()),
				)
				return fmt.Errorf("tick at %v: %w", now, err)
			}
		}
		span.End()
	}
	return nil
}
