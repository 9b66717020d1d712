// target.go - the per-target notification state machine and repeat
// scheduler. Grounded on original_source/src/alerts/target.rs's
// Target::call / spawn_timeout_task.

package alerts

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Metrics is the narrow observability hook the engine drives. A Target
// starts with a no-op Metrics and WithMetrics ignores a nil interface
// value, so callers that don't care about Prometheus can skip wiring one
// up.
type Metrics interface {
	ObserveDispatch(sink string, state AlertState)
	ObserveRegistryFailure()
	RepeatTaskStarted()
	RepeatTaskEnded()
}

// noopMetrics satisfies Metrics when the caller passes nil.
type noopMetrics struct{}

func (noopMetrics) ObserveDispatch(string, AlertState) {}
func (noopMetrics) ObserveRegistryFailure()             {}
func (noopMetrics) RepeatTaskStarted()                  {}
func (noopMetrics) RepeatTaskEnded()                    {}

// Target is one configured notification destination: a sink, a repeat
// policy, and the mutable TimeoutState shared between the foreground
// Call path and the background repeat task.
type Target struct {
	sink     Callable
	policy   RepeatPolicy
	state    *timeoutState
	registry AlertRegistry
	logger   *zap.SugaredLogger
	metrics  Metrics
}

// NewTarget constructs a Target ready to receive events. registry is
// consulted only by the repeat scheduler, never by Call itself.
func NewTarget(sink Callable, policy RepeatPolicy, registry AlertRegistry, logger *zap.SugaredLogger) *Target {
	return &Target{
		sink:     sink,
		policy:   policy,
		state:    &timeoutState{},
		registry: registry,
		logger:   logger,
		metrics:  noopMetrics{},
	}
}

// WithMetrics attaches a Metrics sink and returns the Target for chaining.
func (t *Target) WithMetrics(m Metrics) *Target {
	if m != nil {
		t.metrics = m
	}
	return t
}

// Call is synchronous from the caller's perspective: it acquires the
// target's mutex, mutates TimeoutState, and releases it before any
// dispatch or scheduler spawn happens. Dispatch itself is fire-and-forget.
func (t *Target) Call(ctx context.Context, ec EventContext) {
	t.logger.Debugw("target.call", "alert_id", ec.AlertID, "state", ec.State)

	s := t.state
	s.mu.Lock()

	switch {
	case ec.State == Triggered:
		s.alertState = Triggered
		if !s.timedOut {
			s.timedOut = true
			s.awaitingResolve = true
			s.mu.Unlock()

			t.dispatch(ctx, ec)
			t.spawnRepeatTask(ctx, ec)
			return
		}
		s.mu.Unlock()

	default: // Resolved or Silenced
		s.alertState = ec.State
		if s.timedOut {
			if s.awaitingResolve {
				s.awaitingResolve = false
				s.mu.Unlock()
				t.dispatch(ctx, ec)
				return
			}
			// A resolve was already forwarded this repeat window; drop.
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
		t.dispatch(ctx, ec)
	}
}

// dispatch hands ec to the sink on a detached goroutine so the
// state-machine caller never blocks on network latency.
func (t *Target) dispatch(ctx context.Context, ec EventContext) {
	t.metrics.ObserveDispatch(t.sink.sinkName(), ec.State)
	go func() {
		t.sink.Call(ctx, &ec)
	}()
}

// spawnRepeatTask runs the background repeat scheduler for one Triggered
// window. It captures the original EventContext at spawn time and
// re-sends it verbatim on every repeat dispatch; only the registry lookup
// result decides whether to send again or wind down.
func (t *Target) spawnRepeatTask(ctx context.Context, ec EventContext) {
	t.metrics.RepeatTaskStarted()
	t.logger.Debugw("spawning repeat task", "alert_id", ec.AlertID, "interval", t.policy.Interval, "infinite", t.policy.Times.Infinite())

	go func() {
		defer t.metrics.RepeatTaskEnded()
		defer func() {
			s := t.state
			s.mu.Lock()
			s.reset()
			s.mu.Unlock()
		}()

		if t.policy.Times.Infinite() {
			for {
				if !t.tick(ctx, ec) {
					return
				}
			}
		}

		for i := 0; i < t.policy.Times.Times()-1; i++ {
			if !t.tick(ctx, ec) {
				return
			}
		}
	}()
}

// tick performs one sleep-and-check iteration of the repeat scheduler.
// It returns false when the loop must terminate (registry lookup
// failure); the caller resets TimeoutState in both cases via its defer.
func (t *Target) tick(ctx context.Context, ec EventContext) bool {
	time.Sleep(t.policy.Interval)

	current, err := t.registry.GetState(ctx, ec.AlertID)
	if err != nil {
		t.metrics.ObserveRegistryFailure()
		t.logger.Warnw("unable to fetch alert state, stopping target notifications", "alert_id", ec.AlertID, "error", err)
		return false
	}

	s := t.state
	s.mu.Lock()
	var shouldCall bool
	if current == Triggered {
		// Still firing: sleep more and come back. A fresh resolve can be
		// forwarded the moment it lands during the next window.
		s.awaitingResolve = true
		shouldCall = true
	} else {
		s.timedOut = false
		s.awaitingResolve = false
		shouldCall = false
	}
	s.mu.Unlock()

	if shouldCall {
		t.dispatch(ctx, ec)
	}
	return true
}

// Snapshot exposes the current TimeoutState for tests and diagnostics.
func (t *Target) Snapshot() (AlertState, bool, bool) {
	snap := t.state.snapshot()
	return snap.AlertState, snap.TimedOut, snap.AwaitingResolve
}
