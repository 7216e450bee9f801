package zones

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/tygxx/human-monitor-system/internal/models"
	"gopkg.in/yaml.v3"
)

// Radius bounds applied at load time, in pixels.
const (
	MinRadius = 20
	MaxRadius = 400
)

// ConfigurationError means the calibration data cannot support a monitoring
// session. Fatal at startup; the session refuses to start.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "zone configuration: " + e.Reason
}

// Registry is an immutable per-session lookup of patrol points. Built once
// from calibration output, never mutated during a run.
type Registry struct {
	cameras  map[string]models.Camera
	byCamera map[string][]models.PatrolPoint
	byID     map[string]models.PatrolPoint
	routes   []models.PatrolRoute
}

type calibrationFile struct {
	Cameras []models.Camera      `yaml:"cameras"`
	Points  []models.PatrolPoint `yaml:"points"`
	Routes  []models.PatrolRoute `yaml:"routes"`
}

// StoreSource supplies calibration data kept in the database instead of a
// calibration file.
type StoreSource interface {
	LoadCameras(ctx context.Context) ([]models.Camera, error)
	LoadPatrolPoints(ctx context.Context) ([]models.PatrolPoint, error)
}

// Load reads the calibration file and validates it.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration %s: %w", path, err)
	}

	var cal calibrationFile
	if err := yaml.Unmarshal(data, &cal); err != nil {
		return nil, fmt.Errorf("parse calibration %s: %w", path, err)
	}

	return NewWithRoutes(cal.Cameras, cal.Points, cal.Routes)
}

// LoadFromStore builds the registry from the cameras and patrol_points
// tables. Used when no calibration file is configured; routes are file-only.
func LoadFromStore(ctx context.Context, src StoreSource) (*Registry, error) {
	cameras, err := src.LoadCameras(ctx)
	if err != nil {
		return nil, err
	}
	points, err := src.LoadPatrolPoints(ctx)
	if err != nil {
		return nil, err
	}
	return New(cameras, points)
}

// New validates cameras and points and builds the registry. Every camera must
// have at least one point; every point must reference a known camera and carry
// a radius within bounds.
func New(cameras []models.Camera, points []models.PatrolPoint) (*Registry, error) {
	return NewWithRoutes(cameras, points, nil)
}

// NewWithRoutes additionally validates patrol routes: unique ids, at least
// one point each, every point known.
func NewWithRoutes(cameras []models.Camera, points []models.PatrolPoint, routes []models.PatrolRoute) (*Registry, error) {
	r := &Registry{
		cameras:  make(map[string]models.Camera, len(cameras)),
		byCamera: make(map[string][]models.PatrolPoint, len(cameras)),
		byID:     make(map[string]models.PatrolPoint, len(points)),
	}

	for _, cam := range cameras {
		if cam.ID == "" {
			return nil, &ConfigurationError{Reason: "camera with empty id"}
		}
		if _, dup := r.cameras[cam.ID]; dup {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("duplicate camera %s", cam.ID)}
		}
		r.cameras[cam.ID] = cam
	}

	for _, p := range points {
		if p.Radius <= 0 {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("point %s has radius %v", p.ID, p.Radius)}
		}
		if p.Radius < MinRadius || p.Radius > MaxRadius {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("point %s radius %v outside [%d, %d]", p.ID, p.Radius, MinRadius, MaxRadius)}
		}
		if _, ok := r.cameras[p.CameraID]; !ok {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("point %s references unknown camera %s", p.ID, p.CameraID)}
		}
		if _, dup := r.byID[p.ID]; dup {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("duplicate point %s", p.ID)}
		}
		r.byID[p.ID] = p
		r.byCamera[p.CameraID] = append(r.byCamera[p.CameraID], p)
	}

	for id := range r.cameras {
		if len(r.byCamera[id]) == 0 {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("camera %s has no patrol points", id)}
		}
		pts := r.byCamera[id]
		sort.Slice(pts, func(i, j int) bool { return pts[i].ID < pts[j].ID })
	}

	seenRoutes := make(map[string]bool, len(routes))
	for _, route := range routes {
		if route.ID == "" {
			return nil, &ConfigurationError{Reason: "route with empty id"}
		}
		if seenRoutes[route.ID] {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("duplicate route %s", route.ID)}
		}
		seenRoutes[route.ID] = true
		if len(route.PointIDs) == 0 {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("route %s has no points", route.ID)}
		}
		for _, pointID := range route.PointIDs {
			if _, ok := r.byID[pointID]; !ok {
				return nil, &ConfigurationError{Reason: fmt.Sprintf("route %s references unknown point %s", route.ID, pointID)}
			}
		}
	}
	r.routes = append([]models.PatrolRoute(nil), routes...)
	sort.Slice(r.routes, func(i, j int) bool { return r.routes[i].ID < r.routes[j].ID })

	return r, nil
}

// Cameras returns every configured camera.
func (r *Registry) Cameras() []models.Camera {
	out := make([]models.Camera, 0, len(r.cameras))
	for _, cam := range r.cameras {
		out = append(out, cam)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Routes returns the calibrated patrol routes, ordered by id. May be empty.
func (r *Registry) Routes() []models.PatrolRoute {
	return r.routes
}

// Camera returns one camera by id.
func (r *Registry) Camera(cameraID string) (models.Camera, bool) {
	cam, ok := r.cameras[cameraID]
	return cam, ok
}

// ZonesFor returns the ordered patrol points of one camera.
func (r *Registry) ZonesFor(cameraID string) []models.PatrolPoint {
	return r.byCamera[cameraID]
}

// Zone returns one patrol point by id.
func (r *Registry) Zone(pointID string) (models.PatrolPoint, bool) {
	p, ok := r.byID[pointID]
	return p, ok
}

// Containing returns the ids of every zone of the camera whose circle contains
// pos. Boundary is inclusive; a position may sit in several overlapping zones.
func (r *Registry) Containing(cameraID string, pos models.Point) []string {
	var ids []string
	for _, p := range r.byCamera[cameraID] {
		if Contains(p, pos) {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// Contains reports whether the point's circle contains pos.
func Contains(p models.PatrolPoint, pos models.Point) bool {
	dx := pos.X - p.Center.X
	dy := pos.Y - p.Center.Y
	return math.Sqrt(dx*dx+dy*dy) <= p.Radius
}
