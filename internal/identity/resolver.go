package identity

import (
	"github.com/tygxx/human-monitor-system/internal/models"
)

// Matcher is the injected identity-match capability: compare one face feature
// vector against the registered guards.
type Matcher interface {
	Match(feature []float64) (models.FaceMatch, bool)
}

// observation is one frame-level match result for a track. A zero GuardID
// records "no match" and votes against every candidate.
type observation struct {
	guardID    string
	confidence float64
}

type trackWindow struct {
	obs    []observation
	cached *resolution
}

type resolution struct {
	guardID    string
	confidence float64
}

// Resolver attributes tracks to guards with a majority vote over a rolling
// window of face-match observations, so a single flickering frame cannot
// change who a visit is credited to.
type Resolver struct {
	matcher         Matcher
	windowSize      int
	confidenceFloor float64
	agreement       float64 // required fraction of the window, exclusive

	windows map[int64]*trackWindow
}

func NewResolver(matcher Matcher, windowSize int, confidenceFloor, agreement float64) *Resolver {
	return &Resolver{
		matcher:         matcher,
		windowSize:      windowSize,
		confidenceFloor: confidenceFloor,
		agreement:       agreement,
		windows:         make(map[int64]*trackWindow),
	}
}

// Observe feeds one frame's face feature for a track. A nil feature still
// occupies a window slot: prolonged no-match evidence erodes the majority.
func (r *Resolver) Observe(trackID int64, feature []float64) {
	w, ok := r.windows[trackID]
	if !ok {
		w = &trackWindow{}
		r.windows[trackID] = w
	}

	var obs observation
	if feature != nil && r.matcher != nil {
		if match, ok := r.matcher.Match(feature); ok {
			obs = observation{guardID: match.GuardID, confidence: match.Confidence}
		}
	}

	w.obs = append(w.obs, obs)
	if len(w.obs) > r.windowSize {
		w.obs = w.obs[len(w.obs)-r.windowSize:]
	}
}

// Resolve returns the guard the track's window agrees on, or the unidentified
// placeholder. The first resolution of a track is cached until the track is
// dropped, keeping repeated queries for one visit stable even if frame-level
// matches keep flickering.
func (r *Resolver) Resolve(trackID int64) (string, float64) {
	w, ok := r.windows[trackID]
	if !ok || len(w.obs) == 0 {
		return models.UnidentifiedGuard, 0
	}
	if w.cached != nil {
		return w.cached.guardID, w.cached.confidence
	}

	guardID, confidence := r.vote(w.obs)
	if guardID != models.UnidentifiedGuard {
		w.cached = &resolution{guardID: guardID, confidence: confidence}
	}
	return guardID, confidence
}

// vote counts window slots per guard above the confidence floor. The winner
// must hold strictly more than the agreement fraction of the whole window.
func (r *Resolver) vote(obs []observation) (string, float64) {
	counts := make(map[string]int)
	sums := make(map[string]float64)
	for _, o := range obs {
		if o.guardID == "" || o.confidence < r.confidenceFloor {
			continue
		}
		counts[o.guardID]++
		sums[o.guardID] += o.confidence
	}

	bestGuard := ""
	bestCount := 0
	for guardID, n := range counts {
		if n > bestCount || (n == bestCount && guardID < bestGuard) {
			bestGuard = guardID
			bestCount = n
		}
	}

	if bestGuard == "" || float64(bestCount) <= r.agreement*float64(len(obs)) {
		return models.UnidentifiedGuard, 0
	}
	return bestGuard, sums[bestGuard] / float64(bestCount)
}

// DropTrack forgets a destroyed track's window and cached resolution.
func (r *Resolver) DropTrack(trackID int64) {
	delete(r.windows, trackID)
}
