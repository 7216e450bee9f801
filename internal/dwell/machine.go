package dwell

import (
	"time"
)

// State of one (track, zone) pair. Absent pairs keep no record.
type State int

const (
	StateEntering State = iota
	StateConfirmed
	StateExited
)

func (s State) String() string {
	switch s {
	case StateEntering:
		return "entering"
	case StateConfirmed:
		return "confirmed"
	case StateExited:
		return "exited"
	}
	return "unknown"
}

// Completion is emitted exactly once when a pair reaches Confirmed.
type Completion struct {
	TrackID   int64
	ZoneID    string
	EnteredAt time.Time
	Confirmed time.Time
}

type pairKey struct {
	trackID int64
	zoneID  string
}

type pairState struct {
	state      State
	enteredAt  time.Time
	lastSeen   time.Time
	missedOnce bool
}

// Machine accumulates dwell evidence per (track, zone) pair for one camera.
// Single-writer, owned by the camera's pipeline.
//
// A pair moves Absent -> Entering on first membership, Entering -> Confirmed
// when membership holds for the dwell threshold (tolerating one consecutive
// missed frame of detector flicker), and Entering -> Absent when membership is
// lost longer than that. After Confirmed the pair rides along until the track
// leaves the zone, then moves to Exited; re-entry starts a fresh visit.
type Machine struct {
	threshold time.Duration
	pairs     map[pairKey]*pairState
}

func NewMachine(threshold time.Duration) *Machine {
	return &Machine{
		threshold: threshold,
		pairs:     make(map[pairKey]*pairState),
	}
}

// Observe applies one frame's zone memberships and returns the completions
// confirmed by this frame. memberships maps each track observed this frame to
// the zones containing it; tracks missing from the map count as a missed frame
// for all of their pairs.
func (m *Machine) Observe(frameTime time.Time, memberships map[int64][]string) []Completion {
	var completions []Completion
	inside := make(map[pairKey]bool)

	for trackID, zoneIDs := range memberships {
		for _, zoneID := range zoneIDs {
			key := pairKey{trackID: trackID, zoneID: zoneID}
			inside[key] = true

			ps, ok := m.pairs[key]
			if !ok {
				m.pairs[key] = &pairState{
					state:     StateEntering,
					enteredAt: frameTime,
					lastSeen:  frameTime,
				}
				continue
			}

			ps.lastSeen = frameTime
			ps.missedOnce = false

			if ps.state == StateEntering && frameTime.Sub(ps.enteredAt) >= m.threshold {
				ps.state = StateConfirmed
				completions = append(completions, Completion{
					TrackID:   trackID,
					ZoneID:    zoneID,
					EnteredAt: ps.enteredAt,
					Confirmed: frameTime,
				})
			}
		}
	}

	// Pairs without membership this frame: tolerate a single missed frame,
	// then drop (Entering) or close out the visit (Confirmed).
	for key, ps := range m.pairs {
		if inside[key] {
			continue
		}
		if !ps.missedOnce {
			ps.missedOnce = true
			continue
		}
		switch ps.state {
		case StateEntering:
			delete(m.pairs, key) // partial dwell discarded, no event
		case StateConfirmed:
			ps.state = StateExited
			delete(m.pairs, key) // visit over; re-entry starts fresh
		}
	}

	return completions
}

// DropTrack discards every pair of a destroyed track. In-progress dwells go
// with it: re-identification after a tracking gap must restart from zero.
func (m *Machine) DropTrack(trackID int64) {
	for key := range m.pairs {
		if key.trackID == trackID {
			delete(m.pairs, key)
		}
	}
}

// Pairs returns the number of live (track, zone) pairs.
func (m *Machine) Pairs() int {
	return len(m.pairs)
}

// StateOf reports the current state of a pair, if one is tracked.
func (m *Machine) StateOf(trackID int64, zoneID string) (State, bool) {
	ps, ok := m.pairs[pairKey{trackID: trackID, zoneID: zoneID}]
	if !ok {
		return 0, false
	}
	return ps.state, true
}
