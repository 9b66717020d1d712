package alerts

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var nopLogger = zap.NewNop().Sugar()

// countingSink records every Call invocation without doing network I/O,
// so target tests exercise only the state machine and scheduler timing.
type countingSink struct {
	mu    sync.Mutex
	calls []AlertState
}

func (s *countingSink) sinkName() string { return "counting" }

func (s *countingSink) Call(_ context.Context, ec *EventContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, ec.State)
}

func (s *countingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// programmableRegistry returns states from a fixed sequence, then repeats
// the last one forever; once the sequence is exhausted, notFound (if
// set) makes every further lookup fail with ErrAlertNotFound.
type programmableRegistry struct {
	mu       sync.Mutex
	states   []AlertState
	notFound bool
	calls    int32
}

func (r *programmableRegistry) GetState(ctx context.Context, alertID string) (AlertState, error) {
	n := int(atomic.AddInt32(&r.calls, 1)) - 1
	r.mu.Lock()
	defer r.mu.Unlock()
	if n >= len(r.states) {
		if r.notFound {
			return 0, ErrAlertNotFound
		}
		return r.states[len(r.states)-1], nil
	}
	return r.states[n], nil
}

func newTestTarget(sink Callable, policy RepeatPolicy, registry AlertRegistry) *Target {
	return NewTarget(sink, policy, registry, nopLogger)
}

func eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.True(t, cond(), "condition not met within %s", timeout)
}

func ec(state AlertState) EventContext {
	return EventContext{AlertID: "alert-1", AlertName: "demo", State: state}
}

// S1: Triggered -> 1 dispatch; registry says Triggered at tick -> 2nd
// dispatch; registry says Resolved at next tick -> scheduler stops.
func TestStateMachine_S1(t *testing.T) {
	sink := &countingSink{}
	registry := &programmableRegistry{states: []AlertState{Triggered, Resolved}}
	target := newTestTarget(sink, RepeatPolicy{Interval: 100 * time.Millisecond, Times: RetryFinite(3)}, registry)

	target.Call(context.Background(), ec(Triggered))

	eventually(t, time.Second, func() bool { return sink.count() == 2 })
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 2, sink.count())
}

// S2: Triggered immediately followed by Resolved.
func TestStateMachine_S2(t *testing.T) {
	sink := &countingSink{}
	registry := &programmableRegistry{states: []AlertState{Resolved}}
	target := newTestTarget(sink, RepeatPolicy{Interval: 100 * time.Millisecond, Times: RetryFinite(3)}, registry)

	target.Call(context.Background(), ec(Triggered))
	target.Call(context.Background(), ec(Resolved))

	eventually(t, time.Second, func() bool { return sink.count() == 2 })
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, 2, sink.count())
}

// S3: Triggered, then two Resolved events within the same window; only
// the first Resolved is forwarded.
func TestStateMachine_S3(t *testing.T) {
	sink := &countingSink{}
	registry := &programmableRegistry{states: []AlertState{Resolved}}
	target := newTestTarget(sink, RepeatPolicy{Interval: 100 * time.Millisecond, Times: RetryFinite(3)}, registry)

	target.Call(context.Background(), ec(Triggered))
	target.Call(context.Background(), ec(Resolved))
	target.Call(context.Background(), ec(Resolved))

	eventually(t, time.Second, func() bool { return sink.count() >= 2 })
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, 2, sink.count())
}

// S4: Finite(3), registry keeps returning Triggered -> 3 total dispatches.
func TestStateMachine_S4(t *testing.T) {
	sink := &countingSink{}
	registry := &programmableRegistry{states: []AlertState{Triggered, Triggered, Triggered}}
	target := newTestTarget(sink, RepeatPolicy{Interval: 100 * time.Millisecond, Times: RetryFinite(3)}, registry)

	target.Call(context.Background(), ec(Triggered))

	eventually(t, time.Second, func() bool { return sink.count() == 3 })
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, 3, sink.count())

	state, timedOut, awaiting := target.Snapshot()
	_ = state
	assert.False(t, timedOut)
	assert.False(t, awaiting)
}

// S5: Infinite retry, registry returns NotFound after the first sleep.
func TestStateMachine_S5(t *testing.T) {
	sink := &countingSink{}
	registry := &programmableRegistry{states: []AlertState{}, notFound: true}
	target := newTestTarget(sink, RepeatPolicy{Interval: 100 * time.Millisecond, Times: RetryInfinite()}, registry)

	target.Call(context.Background(), ec(Triggered))

	eventually(t, time.Second, func() bool { return sink.count() == 1 })
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, 1, sink.count())

	_, timedOut, awaiting := target.Snapshot()
	assert.False(t, timedOut)
	assert.False(t, awaiting)
}

// A Triggered burst of k events against an idle target produces exactly
// one dispatch from the burst itself (the scheduler may add more later).
func TestStateMachine_TriggeredBurstDedupes(t *testing.T) {
	sink := &countingSink{}
	registry := &programmableRegistry{states: []AlertState{Triggered}}
	target := newTestTarget(sink, RepeatPolicy{Interval: time.Hour, Times: RetryFinite(2)}, registry)

	for i := 0; i < 5; i++ {
		target.Call(context.Background(), ec(Triggered))
	}

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, sink.count())
}

// awaitingResolve implies timedOut across every observed transition.
func TestInvariant_AwaitingResolveImpliesTimedOut(t *testing.T) {
	sink := &countingSink{}
	registry := &programmableRegistry{states: []AlertState{Triggered, Triggered, Resolved}}
	target := newTestTarget(sink, RepeatPolicy{Interval: 30 * time.Millisecond, Times: RetryFinite(4)}, registry)

	target.Call(context.Background(), ec(Triggered))
	for i := 0; i < 20; i++ {
		_, timedOut, awaiting := target.Snapshot()
		if awaiting {
			assert.True(t, timedOut)
		}
		time.Sleep(15 * time.Millisecond)
	}
}

// After a scheduler task exits, TimeoutState equals its default.
func TestInvariant_StateResetsAfterSchedulerExit(t *testing.T) {
	sink := &countingSink{}
	registry := &programmableRegistry{states: []AlertState{Resolved}}
	target := newTestTarget(sink, RepeatPolicy{Interval: 20 * time.Millisecond, Times: RetryFinite(2)}, registry)

	target.Call(context.Background(), ec(Triggered))
	eventually(t, time.Second, func() bool {
		_, timedOut, _ := target.Snapshot()
		return !timedOut
	})

	state, timedOut, awaiting := target.Snapshot()
	assert.False(t, timedOut)
	assert.False(t, awaiting)
	_ = state
}
