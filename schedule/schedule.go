package schedule

import (
	"cmp"
	"slices"
)

// StopTime is one scheduled stop visit within a ScheduledTrip, per
// spec.md §3.
type StopTime struct {
	StopID       string
	ArrivalSec   int
	DepartureSec int
}

// ScheduledTrip is an immutable static-schedule trip record, per
// spec.md §3. Built once at startup by Load/LoadFromPath and never mutated
// afterwards.
type ScheduledTrip struct {
	TripID      string
	Route       string
	DirectionID string // "N" or "S", derived from the GTFS direction_id flag
	ServiceID   string
	PathID      string
	NetworkID   *string
	StartSec    int // departure of the first stop
	EndSec      int // arrival of the last stop
	StopTimes   []StopTime

	// RawID is the agency-specific real-time-style trip identifier
	// (the mta_trip_id column) used to rebuild this trip's TripId for
	// matching, per spec.md §4.1's "construction from a scheduled
	// trip".
	RawID string
}

// RouteID implements tripid.RouteResolver.
func (t *ScheduledTrip) RouteID() string { return t.Route }

// StopSequence returns the scheduled stop ids in schedule order.
func (t *ScheduledTrip) StopSequence() []string {
	ids := make([]string, len(t.StopTimes))
	for i, st := range t.StopTimes {
		ids[i] = st.StopID
	}
	return ids
}

// ActivatedTripIndex answers, for a service date and route, which
// scheduled trips are active, per spec.md §4.3. Built once at startup
// and read-only thereafter; safe to share across feed cycles without
// synchronization.
type ActivatedTripIndex struct {
	tripsByRoute map[string][]*ScheduledTrip
	datesByService map[string]map[ServiceDate]bool

	// intervals is an optional one-dimensional interval index over
	// [StartSec, EndSec], sorted by StartSec, for auxiliary range-scan
	// matchers. Not consulted by TripMatcher itself.
	intervals []*ScheduledTrip
}

// NewActivatedTripIndex builds an index from trips and the per-service
// active-date sets produced by the schedule loader.
func NewActivatedTripIndex(trips []*ScheduledTrip, datesByService map[string]map[ServiceDate]bool) *ActivatedTripIndex {
	idx := &ActivatedTripIndex{
		tripsByRoute:   make(map[string][]*ScheduledTrip),
		datesByService: datesByService,
		intervals:      slices.Clone(trips),
	}
	for _, trip := range trips {
		idx.tripsByRoute[trip.Route] = append(idx.tripsByRoute[trip.Route], trip)
	}
	slices.SortFunc(idx.intervals, func(a, b *ScheduledTrip) int {
		return cmp.Compare(a.StartSec, b.StartSec)
	})
	return idx
}

// TripsOnRoute returns every scheduled trip whose route equals routeID,
// regardless of service date.
func (idx *ActivatedTripIndex) TripsOnRoute(routeID string) []*ScheduledTrip {
	return idx.tripsByRoute[routeID]
}

// ServiceIdsForDate returns the set of service ids active on d.
func (idx *ActivatedTripIndex) ServiceIdsForDate(d ServiceDate) map[string]bool {
	active := make(map[string]bool)
	for serviceID, dates := range idx.datesByService {
		if dates[d] {
			active[serviceID] = true
		}
	}
	return active
}

// IsActiveOn reports whether trip runs on service date d.
func (idx *ActivatedTripIndex) IsActiveOn(trip *ScheduledTrip, d ServiceDate) bool {
	return idx.datesByService[trip.ServiceID][d]
}

// RangeQuery returns every scheduled trip whose [StartSec, EndSec]
// interval overlaps [startSec, endSec]. This is an optional auxiliary
// used by range-scan matchers outside the core matching algorithm;
// TripMatcher itself iterates TripsOnRoute instead. idx.intervals is
// sorted by StartSec, so the scan can stop as soon as a trip starts
// after the query window closes.
func (idx *ActivatedTripIndex) RangeQuery(startSec, endSec int) []*ScheduledTrip {
	var out []*ScheduledTrip
	for _, trip := range idx.intervals {
		if trip.StartSec > endSec {
			break
		}
		if trip.EndSec >= startSec {
			out = append(out, trip)
		}
	}
	return out
}
