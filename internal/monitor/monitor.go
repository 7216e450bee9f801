package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tygxx/human-monitor-system/internal/config"
	"github.com/tygxx/human-monitor-system/internal/emitter"
	"github.com/tygxx/human-monitor-system/internal/identity"
	"github.com/tygxx/human-monitor-system/internal/kafka"
	"github.com/tygxx/human-monitor-system/internal/models"
	"github.com/tygxx/human-monitor-system/internal/pipeline"
	"github.com/tygxx/human-monitor-system/internal/zones"
)

const heartbeatInterval = 5 * time.Second

// FrameSource supplies the extracted frames of one camera source.
type FrameSource interface {
	DownloadFrames(ctx context.Context, frameStoreURL string) ([][]byte, error)
}

// Monitor runs one detection pipeline per camera and reacts to start/stop
// commands from Kafka. Pipelines never block each other; the shared emitter
// is the only cross-camera structure.
type Monitor struct {
	registry *zones.Registry
	cfg      config.PatrolConfig
	frames   FrameSource
	detector pipeline.Detector
	matcher  identity.Matcher
	emitter  *emitter.Emitter
	producer *kafka.Producer
	consumer *kafka.Consumer
	snaps    pipeline.SnapshotSaver

	activeMonitors map[string]context.CancelFunc
	mu             sync.Mutex
}

func New(registry *zones.Registry, cfg config.PatrolConfig, frames FrameSource, detector pipeline.Detector, matcher identity.Matcher, em *emitter.Emitter, producer *kafka.Producer, consumer *kafka.Consumer, snaps pipeline.SnapshotSaver) *Monitor {
	return &Monitor{
		registry:       registry,
		cfg:            cfg,
		frames:         frames,
		detector:       detector,
		matcher:        matcher,
		emitter:        em,
		producer:       producer,
		consumer:       consumer,
		snaps:          snaps,
		activeMonitors: make(map[string]context.CancelFunc),
	}
}

// StartAll begins monitoring every configured camera.
func (m *Monitor) StartAll(ctx context.Context) {
	for _, cam := range m.registry.Cameras() {
		if err := m.Start(ctx, cam.ID, ""); err != nil {
			log.Printf("Monitor: failed to start camera %s: %v", cam.ID, err)
		}
	}
}

// ListenAndRun processes monitor commands from Kafka. Messages are acked only
// after successful handling.
func (m *Monitor) ListenAndRun(ctx context.Context) {
	log.Println("Monitor: listening for commands")
	for {
		select {
		case <-ctx.Done():
			log.Println("Monitor: shutting down")
			return
		case msg := <-m.consumer.Messages():
			var cmd models.MonitorCommand
			if err := json.Unmarshal(msg.Value, &cmd); err != nil {
				log.Printf("Invalid command format: %v", err)
				continue
			}
			log.Printf("Monitor: received command %+v", cmd)

			var processErr error
			switch cmd.Action {
			case models.CommandStart:
				processErr = m.Start(ctx, cmd.CameraID, cmd.VideoSource)
			case models.CommandStop:
				if !m.Stop(cmd.CameraID) {
					log.Printf("Monitor: camera %s was not running", cmd.CameraID)
				}
			default:
				log.Printf("Unknown command: %s", cmd.Action)
			}

			if processErr != nil {
				log.Printf("Error processing command: %v", processErr)
				continue
			}

			msg.Session.MarkMessage(msg.Message, "")
		}
	}
}

// Start spawns the frame loop for one camera. videoSource overrides the
// configured frame store when set.
func (m *Monitor) Start(ctx context.Context, cameraID, videoSource string) error {
	camera, ok := m.registry.Camera(cameraID)
	if !ok {
		return fmt.Errorf("unknown camera %s", cameraID)
	}
	if videoSource != "" {
		camera.FrameStore = videoSource
	}

	m.mu.Lock()
	if _, running := m.activeMonitors[cameraID]; running {
		m.mu.Unlock()
		log.Printf("Monitor for %s already running", cameraID)
		return nil
	}
	childCtx, cancel := context.WithCancel(ctx)
	m.activeMonitors[cameraID] = cancel
	m.mu.Unlock()

	go func() {
		defer func() {
			m.mu.Lock()
			delete(m.activeMonitors, cameraID)
			m.mu.Unlock()

			log.Printf("Monitor %s finished", cameraID)
		}()

		if err := m.watchCamera(childCtx, camera); err != nil {
			log.Printf("Monitor %s error: %v", cameraID, err)
		}
	}()

	return nil
}

// watchCamera drives one camera's pipeline frame by frame, in capture order.
func (m *Monitor) watchCamera(ctx context.Context, camera models.Camera) error {
	log.Printf("Monitor %s: downloading frames from %s", camera.ID, camera.FrameStore)

	frames, err := m.frames.DownloadFrames(ctx, camera.FrameStore)
	if err != nil {
		return fmt.Errorf("download frames: %w", err)
	}

	if err := m.producer.SendHeartbeat(models.Heartbeat{
		CameraID:  camera.ID,
		Action:    models.CommandStart,
		TimeStamp: time.Now().UTC(),
	}); err != nil {
		log.Printf("Monitor %s error sending start heartbeat: %v", camera.ID, err)
	}

	p := pipeline.New(camera, m.registry, m.cfg, m.detector, m.matcher, m.emitter, m.snaps)

	frameRate := camera.FrameRate
	if frameRate <= 0 {
		frameRate = 10
	}
	framePeriod := time.Second / time.Duration(frameRate)

	ticker := time.NewTicker(framePeriod)
	defer ticker.Stop()
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	log.Printf("Monitor %s: processing %d frames at %d fps", camera.ID, len(frames), frameRate)
	for idx := 0; idx < len(frames); idx++ {
		select {
		case <-ctx.Done():
			// Drain cleanly: partial dwells are discarded by design.
			log.Printf("Monitor %s: received stop at frame %d", camera.ID, idx)
			return nil
		case <-ticker.C:
			p.ProcessFrame(ctx, time.Now(), frames[idx])
		}

		select {
		case <-heartbeat.C:
			if err := m.producer.SendHeartbeat(models.Heartbeat{
				CameraID:  camera.ID,
				Action:    models.CommandStart,
				Frame:     int64(idx),
				TimeStamp: time.Now().UTC(),
			}); err != nil {
				log.Printf("Monitor %s error sending heartbeat: %v", camera.ID, err)
			}
		default:
		}
	}

	if err := m.producer.SendHeartbeat(models.Heartbeat{
		CameraID:  camera.ID,
		Action:    models.CommandStop,
		Frame:     int64(len(frames)),
		TimeStamp: time.Now().UTC(),
	}); err != nil {
		log.Printf("Monitor %s error sending stop heartbeat: %v", camera.ID, err)
	}
	log.Printf("Monitor %s: finished %d frames", camera.ID, len(frames))
	return nil
}

// Stop cancels one camera's pipeline.
func (m *Monitor) Stop(cameraID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cancel, ok := m.activeMonitors[cameraID]; ok {
		cancel()
		log.Printf("Monitor %s stopped", cameraID)
		return true
	}

	return false
}

// StopAll cancels every running pipeline.
func (m *Monitor) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for cameraID, cancel := range m.activeMonitors {
		cancel()
		log.Printf("Monitor %s stopped", cameraID)
	}
}
