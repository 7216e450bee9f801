package dwell

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frameStep = 100 * time.Millisecond

// run feeds frames where the membership function decides, per frame index,
// which zones contain track 1.
func run(m *Machine, base time.Time, frames int, member func(i int) []string) []Completion {
	var all []Completion
	for i := 0; i < frames; i++ {
		memberships := map[int64][]string{}
		if zones := member(i); zones != nil {
			memberships[1] = zones
		}
		all = append(all, m.Observe(base.Add(time.Duration(i)*frameStep), memberships)...)
	}
	return all
}

func TestObserve_ConfirmsOncePerVisit(t *testing.T) {
	m := NewMachine(3 * time.Second)
	base := time.Now()

	// Inside for 4s: confirmation fires exactly once, at the threshold.
	completions := run(m, base, 41, func(i int) []string { return []string{"P1"} })
	require.Len(t, completions, 1)
	assert.Equal(t, "P1", completions[0].ZoneID)
	assert.Equal(t, int64(1), completions[0].TrackID)
	assert.Equal(t, 3*time.Second, completions[0].Confirmed.Sub(completions[0].EnteredAt))
}

func TestObserve_PassThroughProducesNothing(t *testing.T) {
	m := NewMachine(3 * time.Second)
	base := time.Now()

	// Inside for 2s, then gone.
	completions := run(m, base, 40, func(i int) []string {
		if i < 20 {
			return []string{"P1"}
		}
		return nil
	})
	assert.Empty(t, completions)
	assert.Equal(t, 0, m.Pairs())
}

func TestObserve_SingleMissedFrameTolerated(t *testing.T) {
	m := NewMachine(3 * time.Second)
	base := time.Now()

	// One flicker frame mid-dwell must not reset the entry time.
	completions := run(m, base, 35, func(i int) []string {
		if i == 15 {
			return nil
		}
		return []string{"P1"}
	})
	require.Len(t, completions, 1)
	assert.Equal(t, 3*time.Second, completions[0].Confirmed.Sub(completions[0].EnteredAt))
}

func TestObserve_TwoMissedFramesResetDwell(t *testing.T) {
	m := NewMachine(3 * time.Second)
	base := time.Now()

	completions := run(m, base, 70, func(i int) []string {
		if i == 15 || i == 16 {
			return nil
		}
		return []string{"P1"}
	})
	// The pair restarts at frame 17 and confirms 3s later, once.
	require.Len(t, completions, 1)
	assert.Equal(t, base.Add(17*frameStep), completions[0].EnteredAt)
}

func TestObserve_ReEntryStartsFreshVisit(t *testing.T) {
	m := NewMachine(3 * time.Second)
	base := time.Now()

	completions := run(m, base, 120, func(i int) []string {
		// First visit: frames 0..35. Away until frame 70. Second visit after.
		if i <= 35 || i >= 70 {
			return []string{"P1"}
		}
		return nil
	})
	require.Len(t, completions, 2)
	assert.Equal(t, base.Add(70*frameStep), completions[1].EnteredAt)
}

func TestObserve_OverlappingZonesAccumulateIndependently(t *testing.T) {
	m := NewMachine(3 * time.Second)
	base := time.Now()

	completions := run(m, base, 35, func(i int) []string { return []string{"P1", "P2"} })
	require.Len(t, completions, 2)
	zones := []string{completions[0].ZoneID, completions[1].ZoneID}
	assert.ElementsMatch(t, []string{"P1", "P2"}, zones)
}

func TestDropTrack_DiscardsPartialDwell(t *testing.T) {
	m := NewMachine(3 * time.Second)
	base := time.Now()

	// 2s in: partial dwell exists.
	run(m, base, 20, func(i int) []string { return []string{"P1"} })
	assert.Equal(t, 1, m.Pairs())

	m.DropTrack(1)
	assert.Equal(t, 0, m.Pairs())

	// Re-detected as a new track: accumulation restarts from zero. Another
	// 2s is still short of the threshold.
	var completions []Completion
	for i := 0; i < 20; i++ {
		completions = append(completions, m.Observe(
			base.Add(time.Duration(20+i)*frameStep),
			map[int64][]string{2: {"P1"}},
		)...)
	}
	assert.Empty(t, completions)

	state, ok := m.StateOf(2, "P1")
	require.True(t, ok)
	assert.Equal(t, StateEntering, state)
}
