package emitter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tygxx/human-monitor-system/internal/models"
)

type fakeSink struct {
	mu     sync.Mutex
	events []models.ArrivalEvent
	fail   bool
	calls  int
}

func (f *fakeSink) AppendArrivalEvent(_ context.Context, event models.ArrivalEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return errors.New("storage down")
	}
	// Idempotent by event id, like the real store.
	for _, e := range f.events {
		if e.ID == event.ID {
			return nil
		}
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func (f *fakeSink) attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestEmit_CooldownSuppressesRepeat(t *testing.T) {
	sink := &fakeSink{}
	e := New(sink, nil, 5*time.Minute)
	base := time.Now()

	_, emitted := e.Emit(context.Background(), "G1", "P1", "CAM_1", base, 0.9)
	require.True(t, emitted)

	// Re-confirmation 7s later is the same physical visit.
	_, emitted = e.Emit(context.Background(), "G1", "P1", "CAM_1", base.Add(7*time.Second), 0.9)
	assert.False(t, emitted)
	assert.Equal(t, 1, sink.count())

	// Past the cooldown it is a new visit.
	_, emitted = e.Emit(context.Background(), "G1", "P1", "CAM_1", base.Add(6*time.Minute), 0.9)
	assert.True(t, emitted)
	assert.Equal(t, 2, sink.count())
}

func TestEmit_KeysAreIndependent(t *testing.T) {
	sink := &fakeSink{}
	e := New(sink, nil, 5*time.Minute)
	base := time.Now()

	_, emitted := e.Emit(context.Background(), "G1", "P1", "CAM_1", base, 0.9)
	require.True(t, emitted)

	// Different zone, different guard, and unidentified all have their own
	// cooldown entries.
	_, emitted = e.Emit(context.Background(), "G1", "P2", "CAM_1", base.Add(time.Second), 0.9)
	assert.True(t, emitted)
	_, emitted = e.Emit(context.Background(), "G2", "P1", "CAM_1", base.Add(time.Second), 0.9)
	assert.True(t, emitted)
	_, emitted = e.Emit(context.Background(), "", "P1", "CAM_1", base.Add(time.Second), 0)
	assert.True(t, emitted)

	assert.Equal(t, 4, sink.count())
}

func TestEmit_UnidentifiedPlaceholder(t *testing.T) {
	sink := &fakeSink{}
	e := New(sink, nil, time.Minute)

	event, emitted := e.Emit(context.Background(), "", "P1", "CAM_1", time.Now(), 0)
	require.True(t, emitted)
	assert.Equal(t, models.UnidentifiedGuard, event.GuardID)
	assert.NotEmpty(t, event.ID)
}

func TestEmit_StorageOutageQueuesForReplay(t *testing.T) {
	sink := &fakeSink{fail: true}
	e := New(sink, nil, time.Minute)

	_, emitted := e.Emit(context.Background(), "G1", "P1", "CAM_1", time.Now(), 0.9)
	// Emission itself still succeeds: monitoring must not stall on storage.
	require.True(t, emitted)
	assert.Equal(t, 1, e.PendingCount())
	assert.Equal(t, 0, sink.count())

	// Storage recovers; replay drains the queue.
	sink.mu.Lock()
	sink.fail = false
	sink.mu.Unlock()

	e.flushPending(context.Background())
	assert.Equal(t, 0, e.PendingCount())
	assert.Equal(t, 1, sink.count())
}

func TestEmit_NoBackoffAfterFinalAttempt(t *testing.T) {
	sink := &fakeSink{fail: true}
	e := New(sink, nil, time.Minute)

	start := time.Now()
	_, emitted := e.Emit(context.Background(), "G1", "P1", "CAM_1", time.Now(), 0.9)
	elapsed := time.Since(start)

	require.True(t, emitted)
	assert.Equal(t, persistRetries, sink.attempts())
	// Backoff runs between attempts only (200ms + 400ms); a trailing sleep
	// after the last failure would push this past 1.4s.
	assert.Less(t, elapsed, time.Second)
}

func TestFlushPending_KeepsFailedEvents(t *testing.T) {
	sink := &fakeSink{fail: true}
	e := New(sink, nil, time.Minute)

	e.Emit(context.Background(), "G1", "P1", "CAM_1", time.Now(), 0.9)
	require.Equal(t, 1, e.PendingCount())

	e.flushPending(context.Background())
	assert.Equal(t, 1, e.PendingCount())
}
