package models

import "time"

type CommandAction string

const (
	CommandStart CommandAction = "start"
	CommandStop  CommandAction = "stop"
)

// UnidentifiedGuard is recorded when the resolver cannot attribute a visit.
const UnidentifiedGuard = "unidentified"

// Point is a coordinate in a camera's pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Camera describes one monitored video stream. Read-only during a session.
type Camera struct {
	ID         string `json:"camera_id" yaml:"camera_id"`
	Name       string `json:"name" yaml:"name"`
	Location   string `json:"location" yaml:"location"`
	Width      int    `json:"width" yaml:"width"`
	Height     int    `json:"height" yaml:"height"`
	FrameRate  int    `json:"frame_rate" yaml:"frame_rate"`
	FrameStore string `json:"frame_store" yaml:"frame_store"` // s3 URL with extracted frames
}

// PatrolPoint is a circular check region in one camera's pixel space.
// Produced by the offline calibration tool, read-only to the engine.
type PatrolPoint struct {
	ID          string  `json:"point_id" yaml:"point_id"`
	CameraID    string  `json:"camera_id" yaml:"camera_id"`
	Name        string  `json:"name" yaml:"name"`
	Center      Point   `json:"center" yaml:"center"`
	Radius      float64 `json:"radius" yaml:"radius"`
	Description string  `json:"description" yaml:"description"`
}

// PatrolRoute is an ordered set of patrol points a guard is expected to
// cover in one round. Optional; coverage reports break down by route when
// routes are calibrated.
type PatrolRoute struct {
	ID              string   `json:"route_id" yaml:"route_id"`
	Name            string   `json:"name" yaml:"name"`
	PointIDs        []string `json:"point_ids" yaml:"point_ids"`
	ExpectedMinutes int      `json:"expected_minutes" yaml:"expected_minutes"`
}

// Guard is reference data loaded from the guards table.
type Guard struct {
	ID           string    `json:"guard_id"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	FaceFeature  []float64 `json:"-"`
	RegisterTime time.Time `json:"register_time"`
}

// FaceMatch is the result of the injected identity-match capability.
type FaceMatch struct {
	GuardID    string  `json:"guard_id"`
	Confidence float64 `json:"confidence"`
}

// RawDetection is one person reported by the external detector for a frame.
type RawDetection struct {
	Position    Point     `json:"position"`
	Box         []float64 `json:"box"` // [x1, y1, x2, y2]
	Score       float64   `json:"score"`
	FaceFeature []float64 `json:"face_feature,omitempty"`
}

// ArrivalEvent is one confirmed, deduplicated patrol visit. Immutable once emitted.
type ArrivalEvent struct {
	ID          string    `json:"id"`
	GuardID     string    `json:"guard_id"`
	PointID     string    `json:"point_id"`
	CameraID    string    `json:"camera_id"`
	ArrivalTime time.Time `json:"arrival_time"`
	Confidence  float64   `json:"confidence"`
}

// MonitorCommand starts or stops monitoring for one camera.
type MonitorCommand struct {
	CameraID    string        `json:"camera_id"`
	Action      CommandAction `json:"action"`
	VideoSource string        `json:"video_source"`
}

type Heartbeat struct {
	CameraID  string        `json:"camera_id"`
	Action    CommandAction `json:"action"`
	Frame     int64         `json:"frame"`
	TimeStamp time.Time     `json:"timestamp"`
}
