package feed

import "github.com/camsys/nyct-rt-proxy/match"

// Counts tallies trip-update outcomes for one route (an entry of
// MetricsAggregator.ByRoute) or for an entire feed cycle
// (MetricsAggregator.Total), per spec.md §2's MetricsAggregator
// responsibility.
type Counts struct {
	StrictMatch         int
	LooseMatch          int
	NoMatch             int
	NoTripWithStartDate int
	BadTripId           int
	Merged              int
	Duplicates          int
	Canceled            int
}

func (c *Counts) add(status match.Status) {
	switch status {
	case match.StrictMatch:
		c.StrictMatch++
	case match.LooseMatch:
		c.LooseMatch++
	case match.NoMatch:
		c.NoMatch++
	case match.NoTripWithStartDate:
		c.NoTripWithStartDate++
	case match.BadTripId:
		c.BadTripId++
	}
}

// MetricsAggregator counts outcomes across one feed cycle, globally
// and broken down per route, per spec.md §2/§5 ("owned by the current
// cycle, not shared across cycles").
type MetricsAggregator struct {
	Total   Counts
	ByRoute map[string]*Counts
}

// NewMetricsAggregator returns an aggregator ready to accumulate one
// cycle's outcomes.
func NewMetricsAggregator() *MetricsAggregator {
	return &MetricsAggregator{ByRoute: make(map[string]*Counts)}
}

func (m *MetricsAggregator) recordStatus(routeID string, status match.Status) {
	m.Total.add(status)
	m.routeCounts(routeID).add(status)
}

func (m *MetricsAggregator) recordMerged(routeID string) {
	m.Total.Merged++
	m.routeCounts(routeID).Merged++
}

func (m *MetricsAggregator) recordDuplicate(routeID string) {
	m.Total.Duplicates++
	m.routeCounts(routeID).Duplicates++
}

func (m *MetricsAggregator) recordCanceled(routeID string) {
	m.Total.Canceled++
	m.routeCounts(routeID).Canceled++
}

func (m *MetricsAggregator) routeCounts(routeID string) *Counts {
	c, ok := m.ByRoute[routeID]
	if !ok {
		c = &Counts{}
		m.ByRoute[routeID] = c
	}
	return c
}
