package pipeline

import (
	"context"
	"log"
	"time"

	"github.com/tygxx/human-monitor-system/internal/config"
	"github.com/tygxx/human-monitor-system/internal/dwell"
	"github.com/tygxx/human-monitor-system/internal/emitter"
	"github.com/tygxx/human-monitor-system/internal/identity"
	"github.com/tygxx/human-monitor-system/internal/models"
	"github.com/tygxx/human-monitor-system/internal/tracking"
	"github.com/tygxx/human-monitor-system/internal/zones"
)

// Detector is the injected person-detection capability.
type Detector interface {
	Detect(frame []byte, cameraID string) ([]models.RawDetection, error)
}

// SnapshotSaver stores the frame that confirmed an arrival. Optional.
type SnapshotSaver interface {
	SaveArrivalSnapshot(ctx context.Context, cameraID, eventID string, frame []byte) error
}

// Pipeline processes one camera's frame stream in order. It owns that
// camera's track store, dwell machine and identity windows; only the camera's
// goroutine touches them. The emitter is shared across pipelines.
type Pipeline struct {
	camera   models.Camera
	registry *zones.Registry
	detector Detector
	emitter  *emitter.Emitter
	snaps    SnapshotSaver

	tracks   *tracking.Store
	dwells   *dwell.Machine
	resolver *identity.Resolver
}

func New(camera models.Camera, registry *zones.Registry, cfg config.PatrolConfig, detector Detector, matcher identity.Matcher, em *emitter.Emitter, snaps SnapshotSaver) *Pipeline {
	return &Pipeline{
		camera:   camera,
		registry: registry,
		detector: detector,
		emitter:  em,
		snaps:    snaps,
		tracks:   tracking.NewStore(camera.ID, cfg.MatchDistance, cfg.TrackTimeout),
		dwells:   dwell.NewMachine(cfg.DwellThreshold),
		resolver: identity.NewResolver(matcher, cfg.IdentityWindow, cfg.ConfidenceFloor, cfg.AgreementFraction),
	}
}

// ProcessFrame runs one frame through detection and the full update chain.
// Detector trouble degrades to an empty detection set; a bad frame never
// stops the stream.
func (p *Pipeline) ProcessFrame(ctx context.Context, frameTime time.Time, frame []byte) []models.ArrivalEvent {
	detections, err := p.detector.Detect(frame, p.camera.ID)
	if err != nil {
		log.Printf("Pipeline %s: detection error, treating as empty frame: %v", p.camera.ID, err)
		detections = nil
	}

	events := p.Step(ctx, frameTime, detections)

	if p.snaps != nil && len(frame) > 0 {
		for _, event := range events {
			if err := p.snaps.SaveArrivalSnapshot(ctx, p.camera.ID, event.ID, frame); err != nil {
				log.Printf("Pipeline %s: snapshot error for event %s: %v", p.camera.ID, event.ID, err)
			}
		}
	}

	return events
}

// Step applies one frame's detections: track association, zone membership,
// dwell accumulation, identity resolution and deduplicated emission. Returns
// the arrival events emitted by this frame.
func (p *Pipeline) Step(ctx context.Context, frameTime time.Time, detections []models.RawDetection) []models.ArrivalEvent {
	matched, removed := p.tracks.Update(frameTime, detections)
	for _, trackID := range removed {
		p.dwells.DropTrack(trackID)
		p.resolver.DropTrack(trackID)
	}

	// matched[i] corresponds to detections[i].
	memberships := make(map[int64][]string, len(matched))
	for i, track := range matched {
		p.resolver.Observe(track.ID, detections[i].FaceFeature)
		memberships[track.ID] = p.registry.Containing(p.camera.ID, track.Position)
	}

	var events []models.ArrivalEvent
	for _, completion := range p.dwells.Observe(frameTime, memberships) {
		guardID, confidence := p.resolver.Resolve(completion.TrackID)
		event, emitted := p.emitter.Emit(ctx, guardID, completion.ZoneID, p.camera.ID, completion.Confirmed, confidence)
		if !emitted {
			continue
		}
		log.Printf("Pipeline %s: guard %s arrived at %s (track %d, confidence %.2f)",
			p.camera.ID, event.GuardID, event.PointID, completion.TrackID, event.Confidence)
		events = append(events, event)
	}

	return events
}

// TrackCount reports live tracks, for heartbeat diagnostics.
func (p *Pipeline) TrackCount() int {
	return p.tracks.Len()
}
