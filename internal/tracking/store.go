package tracking

import (
	"math"
	"sort"
	"time"

	"github.com/tygxx/human-monitor-system/internal/models"
)

// Track is a short-lived identity for one person seen by one camera.
// Ephemeral: garbage-collected after TrackTimeout of silence, never persisted.
type Track struct {
	ID       int64
	Position models.Point
	LastSeen time.Time
	Age      int // frames seen
}

// Store owns every live track of one camera. Single-writer: only that
// camera's pipeline calls Update.
type Store struct {
	cameraID      string
	matchDistance float64
	trackTimeout  time.Duration

	nextID int64
	tracks map[int64]*Track
}

func NewStore(cameraID string, matchDistance float64, trackTimeout time.Duration) *Store {
	return &Store{
		cameraID:      cameraID,
		matchDistance: matchDistance,
		trackTimeout:  trackTimeout,
		nextID:        1,
		tracks:        make(map[int64]*Track),
	}
}

// Update associates this frame's detections with live tracks and returns the
// tracks observed this frame plus the ids of tracks reaped for silence.
//
// Association is greedy nearest-neighbour in pixel distance, capped at the
// match distance, ties broken by lowest track id. Unmatched detections spawn
// new tracks. A reaped track takes any in-progress dwell with it; the guard
// must re-enter the zone after a tracking gap.
func (s *Store) Update(frameTime time.Time, detections []models.RawDetection) (matched []*Track, removed []int64) {
	claimed := make(map[int64]bool, len(detections))

	for _, det := range detections {
		track := s.nearestFree(det.Position, claimed)
		if track == nil {
			track = &Track{ID: s.nextID, Position: det.Position, LastSeen: frameTime}
			s.nextID++
			s.tracks[track.ID] = track
		} else {
			track.Position = det.Position
			track.LastSeen = frameTime
		}
		track.Age++
		claimed[track.ID] = true
		matched = append(matched, track)
	}

	// Reap tracks silent beyond the timeout.
	for id, track := range s.tracks {
		if claimed[id] {
			continue
		}
		if frameTime.Sub(track.LastSeen) > s.trackTimeout {
			delete(s.tracks, id)
			removed = append(removed, id)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })

	return matched, removed
}

// nearestFree finds the closest unclaimed track within the match distance.
func (s *Store) nearestFree(pos models.Point, claimed map[int64]bool) *Track {
	var best *Track
	bestDist := s.matchDistance

	// Iterate in id order so distance ties resolve to the lowest id.
	ids := make([]int64, 0, len(s.tracks))
	for id := range s.tracks {
		if !claimed[id] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		track := s.tracks[id]
		d := distance(track.Position, pos)
		if d < bestDist || (best == nil && d == bestDist) {
			best = track
			bestDist = d
		}
	}
	return best
}

// Len returns the number of live tracks.
func (s *Store) Len() int {
	return len(s.tracks)
}

func distance(a, b models.Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
