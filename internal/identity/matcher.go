package identity

import (
	"math"

	"github.com/tygxx/human-monitor-system/internal/models"
)

// GuardMatcher matches face features against the registered guards by
// Euclidean distance, the same comparison the registration tool uses. A
// feature matches the closest guard whose distance is within the tolerance;
// confidence maps distance 0 -> 1.0 and tolerance -> 0.
type GuardMatcher struct {
	guards    []models.Guard
	tolerance float64
}

func NewGuardMatcher(guards []models.Guard, tolerance float64) *GuardMatcher {
	return &GuardMatcher{guards: guards, tolerance: tolerance}
}

func (m *GuardMatcher) Match(feature []float64) (models.FaceMatch, bool) {
	bestDist := m.tolerance
	var best *models.Guard

	for i := range m.guards {
		g := &m.guards[i]
		if len(g.FaceFeature) != len(feature) {
			continue
		}
		d := euclidean(g.FaceFeature, feature)
		if d <= bestDist {
			best = g
			bestDist = d
		}
	}

	if best == nil {
		return models.FaceMatch{}, false
	}
	return models.FaceMatch{
		GuardID:    best.ID,
		Confidence: 1 - bestDist/m.tolerance,
	}, true
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
