// Package reclaimer runs the background loop that removes expired refresh
// tokens from storage.
package reclaimer

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// State is the lifecycle phase of a Reclaimer.
type State int32

const (
	// StateIdle waits for the next tick. It is the state before Run as well.
	StateIdle State = iota
	// StateSweeping is deleting expired tokens.
	StateSweeping
	// StateDisabled never runs; Run returns at once.
	StateDisabled
	// StateStopped has observed cancellation.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSweeping:
		return "sweeping"
	case StateDisabled:
		return "disabled"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Sweeper deletes every token that expired strictly before now.
// The refresh token repository satisfies it.
type Sweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Reclaimer periodically sweeps expired refresh tokens. A failed sweep is
// logged and retried on the next tick.
type Reclaimer struct {
	sweeper  Sweeper
	enabled  bool
	interval time.Duration
	logger   logging.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	now      func() time.Time

	state atomic.Int32
}

// New builds a Reclaimer. m may be nil.
func New(s Sweeper, enabled bool, interval time.Duration, l logging.Logger, m *metrics.Metrics) *Reclaimer {
	return &Reclaimer{
		sweeper:  s,
		enabled:  enabled && interval > 0,
		interval: interval,
		logger:   l.With("module", "reclaimer"),
		metrics:  m,
		tracer:   otel.Tracer("authkeeper/reclaimer"),
		now:      time.Now,
	}
}

// State reports the current phase. Safe for concurrent use.
func (r *Reclaimer) State() State {
	return State(r.state.Load())
}

// Run blocks until ctx is canceled. A disabled Reclaimer logs and returns
// immediately.
func (r *Reclaimer) Run(ctx context.Context) {
	if !r.enabled {
		r.state.Store(int32(StateDisabled))
		r.logger.Info(ctx, "expired token cleanup disabled")
		return
	}

	r.logger.Info(ctx, "expired token cleanup started", "interval", r.interval.String())

	timer := time.NewTimer(r.interval)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			break
		}

		r.state.Store(int32(StateIdle))
		select {
		case <-ctx.Done():
		case <-timer.C:
			r.sweep(ctx)
			timer.Reset(r.interval)
		}
	}

	r.state.Store(int32(StateStopped))
	r.logger.Info(ctx, "expired token cleanup stopped")
}

// sweep runs one cleanup cycle. Errors never leave this function.
func (r *Reclaimer) sweep(ctx context.Context) {
	r.state.Store(int32(StateSweeping))

	ctx, span := r.tracer.Start(ctx, "reclaimer.sweep")
	defer span.End()

	n, err := r.sweeper.DeleteExpired(ctx, r.now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sweep failed")
		r.metrics.SweepFailed()
		r.logger.Warn(ctx, "expired token cleanup failed", "error", err)
		return
	}

	span.SetAttributes(attribute.Int64("authkeeper.tokens_reclaimed", n))
	r.metrics.TokensReclaimed(n)
	r.logger.Info(ctx, "expired refresh tokens removed", "count", n)
}
