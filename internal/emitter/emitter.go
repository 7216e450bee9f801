package emitter

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tygxx/human-monitor-system/internal/models"
)

const (
	persistRetries = 3
	retryDelay     = 200 * time.Millisecond
	replayInterval = 30 * time.Second
)

// EventSink persists arrival events. Appends must be idempotent by event id.
type EventSink interface {
	AppendArrivalEvent(ctx context.Context, event models.ArrivalEvent) error
}

// EventPublisher pushes arrival events onto the event stream. Best-effort,
// at-least-once; downstream consumers dedupe by event id.
type EventPublisher interface {
	PublishArrival(event models.ArrivalEvent) error
}

// Emitter turns dwell completions into canonical arrival events. It is the
// one structure shared by every camera pipeline: a guard crossing between two
// overlapping cameras still gets a single event per physical visit.
type Emitter struct {
	sink      EventSink
	publisher EventPublisher
	cooldown  time.Duration

	mu       sync.Mutex
	lastSeen map[cooldownKey]time.Time
	pending  []models.ArrivalEvent
}

type cooldownKey struct {
	guardID string
	pointID string
}

func New(sink EventSink, publisher EventPublisher, cooldown time.Duration) *Emitter {
	return &Emitter{
		sink:      sink,
		publisher: publisher,
		cooldown:  cooldown,
		lastSeen:  make(map[cooldownKey]time.Time),
	}
}

// Emit suppresses the completion if an arrival for the same (guard, zone) was
// emitted within the cooldown window, otherwise persists and publishes one
// event. Returns the event and whether it was emitted.
func (e *Emitter) Emit(ctx context.Context, guardID, pointID, cameraID string, arrivalTime time.Time, confidence float64) (models.ArrivalEvent, bool) {
	if guardID == "" {
		guardID = models.UnidentifiedGuard
	}
	key := cooldownKey{guardID: guardID, pointID: pointID}

	e.mu.Lock()
	if last, ok := e.lastSeen[key]; ok && arrivalTime.Sub(last) < e.cooldown {
		e.mu.Unlock()
		return models.ArrivalEvent{}, false
	}
	e.lastSeen[key] = arrivalTime
	e.mu.Unlock()

	event := models.ArrivalEvent{
		ID:          uuid.New().String(),
		GuardID:     guardID,
		PointID:     pointID,
		CameraID:    cameraID,
		ArrivalTime: arrivalTime,
		Confidence:  confidence,
	}

	if err := e.persistWithRetries(ctx, event); err != nil {
		// A storage outage must not halt live monitoring: park the event
		// for replay and move on.
		log.Printf("Emitter: persist failed for event %s, queued for replay: %v", event.ID, err)
		e.mu.Lock()
		e.pending = append(e.pending, event)
		e.mu.Unlock()
	}

	if e.publisher != nil {
		if err := e.publisher.PublishArrival(event); err != nil {
			log.Printf("Emitter: publish failed for event %s: %v", event.ID, err)
		}
	}

	return event, true
}

func (e *Emitter) persistWithRetries(ctx context.Context, event models.ArrivalEvent) error {
	var err error
	delay := retryDelay
	for attempt := 0; attempt < persistRetries; attempt++ {
		if err = e.sink.AppendArrivalEvent(ctx, event); err == nil {
			return nil
		}
		// No point backing off after the last attempt; the caller queues
		// the event for replay.
		if attempt == persistRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
	return err
}

// ReplayPending retries parked events until the context is cancelled.
// Appends are idempotent by event id, so a replay racing a late success
// cannot double-record a visit.
func (e *Emitter) ReplayPending(ctx context.Context) {
	ticker := time.NewTicker(replayInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Emitter: replay stopped")
			return
		case <-ticker.C:
			e.flushPending(ctx)
		}
	}
}

func (e *Emitter) flushPending(ctx context.Context) {
	e.mu.Lock()
	queued := e.pending
	e.pending = nil
	e.mu.Unlock()

	if len(queued) == 0 {
		return
	}

	var failed []models.ArrivalEvent
	for _, event := range queued {
		if err := e.sink.AppendArrivalEvent(ctx, event); err != nil {
			failed = append(failed, event)
			continue
		}
		log.Printf("Emitter: replayed event %s", event.ID)
	}

	if len(failed) > 0 {
		e.mu.Lock()
		e.pending = append(failed, e.pending...)
		e.mu.Unlock()
	}
}

// PendingCount reports how many events await replay.
func (e *Emitter) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}
