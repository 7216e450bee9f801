package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tygxx/human-monitor-system/internal/models"
)

// stubMatcher maps a feature's first element to a fixed match result.
type stubMatcher struct {
	matches map[float64]models.FaceMatch
}

func (s *stubMatcher) Match(feature []float64) (models.FaceMatch, bool) {
	m, ok := s.matches[feature[0]]
	return m, ok
}

func newStub() *stubMatcher {
	return &stubMatcher{matches: map[float64]models.FaceMatch{
		1: {GuardID: "G1", Confidence: 0.9},
		2: {GuardID: "G2", Confidence: 0.9},
		3: {GuardID: "G1", Confidence: 0.3}, // below the floor
	}}
}

func TestResolve_MajorityWins(t *testing.T) {
	r := NewResolver(newStub(), 10, 0.5, 0.5)

	for i := 0; i < 6; i++ {
		r.Observe(1, []float64{1})
	}
	for i := 0; i < 2; i++ {
		r.Observe(1, []float64{2})
	}

	guardID, confidence := r.Resolve(1)
	assert.Equal(t, "G1", guardID)
	assert.InDelta(t, 0.9, confidence, 1e-9)
}

func TestResolve_NoAgreementIsUnidentified(t *testing.T) {
	r := NewResolver(newStub(), 10, 0.5, 0.5)

	// 4 of 10 slots for G1: not more than half the window.
	for i := 0; i < 4; i++ {
		r.Observe(1, []float64{1})
	}
	for i := 0; i < 6; i++ {
		r.Observe(1, nil)
	}

	guardID, _ := r.Resolve(1)
	assert.Equal(t, models.UnidentifiedGuard, guardID)
}

func TestResolve_ConfidenceFloorFiltersVotes(t *testing.T) {
	r := NewResolver(newStub(), 10, 0.5, 0.5)

	// All matches name G1 but sit below the confidence floor.
	for i := 0; i < 8; i++ {
		r.Observe(1, []float64{3})
	}

	guardID, _ := r.Resolve(1)
	assert.Equal(t, models.UnidentifiedGuard, guardID)
}

func TestResolve_NoObservations(t *testing.T) {
	r := NewResolver(newStub(), 10, 0.5, 0.5)

	guardID, confidence := r.Resolve(42)
	assert.Equal(t, models.UnidentifiedGuard, guardID)
	assert.Zero(t, confidence)
}

func TestResolve_CachedAcrossFlicker(t *testing.T) {
	r := NewResolver(newStub(), 10, 0.5, 0.5)

	for i := 0; i < 8; i++ {
		r.Observe(1, []float64{1})
	}
	guardID, _ := r.Resolve(1)
	require.Equal(t, "G1", guardID)

	// The window later flips toward G2, but the visit already resolved.
	for i := 0; i < 10; i++ {
		r.Observe(1, []float64{2})
	}
	guardID, _ = r.Resolve(1)
	assert.Equal(t, "G1", guardID)

	// A fresh track is free to resolve differently.
	r.DropTrack(1)
	for i := 0; i < 8; i++ {
		r.Observe(1, []float64{2})
	}
	guardID, _ = r.Resolve(1)
	assert.Equal(t, "G2", guardID)
}

func TestResolve_WindowSlides(t *testing.T) {
	r := NewResolver(newStub(), 5, 0.5, 0.5)

	// Old G1 votes slide out of a window of 5.
	for i := 0; i < 5; i++ {
		r.Observe(1, []float64{1})
	}
	for i := 0; i < 5; i++ {
		r.Observe(1, []float64{2})
	}

	guardID, _ := r.Resolve(1)
	assert.Equal(t, "G2", guardID)
}

func TestGuardMatcher(t *testing.T) {
	guards := []models.Guard{
		{ID: "G1", FaceFeature: []float64{0, 0, 0}},
		{ID: "G2", FaceFeature: []float64{1, 1, 1}},
	}
	m := NewGuardMatcher(guards, 0.8)

	match, ok := m.Match([]float64{0.1, 0, 0})
	require.True(t, ok)
	assert.Equal(t, "G1", match.GuardID)
	assert.Greater(t, match.Confidence, 0.8)

	// Outside the tolerance of both guards.
	_, ok = m.Match([]float64{3, 3, 3})
	assert.False(t, ok)

	// Mismatched feature length cannot match.
	_, ok = m.Match([]float64{0, 0})
	assert.False(t, ok)
}
