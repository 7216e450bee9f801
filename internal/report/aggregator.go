package report

import (
	"context"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/tygxx/human-monitor-system/internal/models"
)

// EventSource supplies the persisted arrival event log.
type EventSource interface {
	ListEventsSince(ctx context.Context, since time.Time) ([]models.ArrivalEvent, error)
}

// ZoneSource supplies the configured patrol points and routes.
type ZoneSource interface {
	Cameras() []models.Camera
	ZonesFor(cameraID string) []models.PatrolPoint
	Routes() []models.PatrolRoute
}

// ZoneVisits summarizes one guard's visits to one zone inside a window.
type ZoneVisits struct {
	PointID    string        `json:"point_id"`
	Count      int           `json:"count"`
	FirstVisit time.Time     `json:"first_visit"`
	LastVisit  time.Time     `json:"last_visit"`
	MaxGap     time.Duration `json:"max_gap"` // longest stretch between consecutive visits
}

// RouteCoverage summarizes one guard's progress on one calibrated route.
type RouteCoverage struct {
	RouteID        string   `json:"route_id"`
	Name           string   `json:"name"`
	Visited        int      `json:"visited"`
	Missing        []string `json:"missing"` // route points never visited
	CompletionRate float64  `json:"completion_rate"`
}

// CoverageReport is derived from the event log, recomputable at any time.
type CoverageReport struct {
	GuardID        string          `json:"guard_id"`
	WindowStart    time.Time       `json:"window_start"`
	WindowEnd      time.Time       `json:"window_end"`
	Visited        []ZoneVisits    `json:"visited"`
	Missed         []string        `json:"missed"` // configured zones never visited
	CompletionRate float64         `json:"completion_rate"`
	Routes         []RouteCoverage `json:"routes,omitempty"`
}

// Aggregator batches the event stream into per-guard coverage summaries.
// Holds no state of its own.
type Aggregator struct {
	events EventSource
	zones  ZoneSource
}

func NewAggregator(events EventSource, zones ZoneSource) *Aggregator {
	return &Aggregator{events: events, zones: zones}
}

// Coverage computes one report per guard seen in the window. Events are
// consumed in arrival-time order; cross-camera ordering is best-effort by
// wall clock.
func (a *Aggregator) Coverage(ctx context.Context, start, end time.Time) ([]CoverageReport, error) {
	events, err := a.events.ListEventsSince(ctx, start)
	if err != nil {
		return nil, err
	}
	events = lo.Filter(events, func(e models.ArrivalEvent, _ int) bool {
		return e.ArrivalTime.Before(end)
	})

	allZones := a.configuredZones()

	byGuard := lo.GroupBy(events, func(e models.ArrivalEvent) string {
		return e.GuardID
	})

	reports := make([]CoverageReport, 0, len(byGuard))
	for guardID, guardEvents := range byGuard {
		reports = append(reports, a.guardReport(guardID, guardEvents, allZones, start, end))
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].GuardID < reports[j].GuardID })

	return reports, nil
}

func (a *Aggregator) guardReport(guardID string, events []models.ArrivalEvent, allZones []string, start, end time.Time) CoverageReport {
	byZone := lo.GroupBy(events, func(e models.ArrivalEvent) string {
		return e.PointID
	})

	visited := make([]ZoneVisits, 0, len(byZone))
	for pointID, zoneEvents := range byZone {
		times := lo.Map(zoneEvents, func(e models.ArrivalEvent, _ int) time.Time {
			return e.ArrivalTime
		})
		sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

		var maxGap time.Duration
		for i := 1; i < len(times); i++ {
			if gap := times[i].Sub(times[i-1]); gap > maxGap {
				maxGap = gap
			}
		}

		visited = append(visited, ZoneVisits{
			PointID:    pointID,
			Count:      len(times),
			FirstVisit: times[0],
			LastVisit:  times[len(times)-1],
			MaxGap:     maxGap,
		})
	}
	sort.Slice(visited, func(i, j int) bool { return visited[i].PointID < visited[j].PointID })

	missed := lo.Without(allZones, lo.Keys(byZone)...)
	sort.Strings(missed)

	rate := 0.0
	if len(allZones) > 0 {
		rate = float64(len(visited)) / float64(len(allZones))
	}

	return CoverageReport{
		GuardID:        guardID,
		WindowStart:    start,
		WindowEnd:      end,
		Visited:        visited,
		Missed:         missed,
		CompletionRate: rate,
		Routes:         a.routeCoverage(byZone),
	}
}

// routeCoverage breaks the guard's visits down by calibrated route. Empty
// when no routes are configured.
func (a *Aggregator) routeCoverage(byZone map[string][]models.ArrivalEvent) []RouteCoverage {
	return lo.Map(a.zones.Routes(), func(route models.PatrolRoute, _ int) RouteCoverage {
		covered := lo.Filter(route.PointIDs, func(pointID string, _ int) bool {
			_, ok := byZone[pointID]
			return ok
		})
		missing := lo.Without(route.PointIDs, covered...)
		sort.Strings(missing)

		return RouteCoverage{
			RouteID:        route.ID,
			Name:           route.Name,
			Visited:        len(covered),
			Missing:        missing,
			CompletionRate: float64(len(covered)) / float64(len(route.PointIDs)),
		}
	})
}

func (a *Aggregator) configuredZones() []string {
	return lo.FlatMap(a.zones.Cameras(), func(cam models.Camera, _ int) []string {
		return lo.Map(a.zones.ZonesFor(cam.ID), func(p models.PatrolPoint, _ int) string {
			return p.ID
		})
	})
}
