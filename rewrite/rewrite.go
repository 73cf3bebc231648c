// Package rewrite filters and rewrites a real-time trip update's
// stop-time-update sequence so it is consistent with a matched
// scheduled trip, per spec.md §4.5.
package rewrite

import (
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"github.com/camsys/nyct-rt-proxy/schedule"
)

// Config holds the per-cycle rewriter tunables from spec.md §6.
type Config struct {
	// LatencyLimit, in seconds, drops stop-time updates whose departure
	// (or arrival, if no departure is present) is more than this many
	// seconds in the past relative to the feed timestamp. -1 disables
	// the filter.
	LatencyLimit int

	// CancelUnmatchedTrips, when true, causes a trip that rewrites down
	// to zero stop-time updates to be emitted as a CANCELED update
	// rather than absorbed silently.
	CancelUnmatchedTrips bool
}

// Rewriter rewrites real-time trip updates against matched scheduled
// trips.
type Rewriter struct {
	Config Config
}

// New builds a Rewriter with cfg.
func New(cfg Config) *Rewriter {
	return &Rewriter{Config: cfg}
}

// Rewrite implements spec.md §4.5. serviceDate is the service date the
// matcher found trip active on, used to set the rewritten descriptor's
// startDate. It returns the rewritten trip update and whether the
// outcome is MERGED (zero stop-time updates survived). On a MERGED
// outcome the returned update is nil when CancelUnmatchedTrips is false,
// and a CANCELED update with no stop-time updates when it is true.
func (r *Rewriter) Rewrite(real *gtfs.TripUpdate, trip *schedule.ScheduledTrip, serviceDate schedule.ServiceDate, feedTimestamp time.Time) (out *gtfs.TripUpdate, merged bool) {
	out = &gtfs.TripUpdate{
		Trip: &gtfs.TripDescriptor{
			TripId:               ptr(trip.TripID),
			RouteId:              ptr(trip.Route),
			StartDate:            ptr(serviceDate.Compact()),
			ScheduleRelationship: ptr(gtfs.TripDescriptor_SCHEDULED),
		},
	}

	stopOrder := make(map[string]int, len(trip.StopTimes))
	for i, st := range trip.StopTimes {
		if _, seen := stopOrder[st.StopID]; !seen {
			stopOrder[st.StopID] = i
		}
	}

	lastEmittedOrder := -1
	for _, update := range real.GetStopTimeUpdate() {
		stopID := update.GetStopId()
		order, onSchedule := stopOrder[stopID]
		if !onSchedule {
			continue
		}
		if order <= lastEmittedOrder {
			continue
		}
		if r.isStale(update, feedTimestamp) {
			continue
		}

		out.StopTimeUpdate = append(out.StopTimeUpdate, update)
		lastEmittedOrder = order
	}

	if len(out.StopTimeUpdate) > 0 {
		return out, false
	}

	if !r.Config.CancelUnmatchedTrips {
		return nil, true
	}

	out.Trip.ScheduleRelationship = ptr(gtfs.TripDescriptor_CANCELED)
	out.StopTimeUpdate = nil
	return out, true
}

// isStale reports whether update's departure (or arrival, absent a
// departure) falls more than r.Config.LatencyLimit seconds before
// feedTimestamp. A negative LatencyLimit disables the filter.
func (r *Rewriter) isStale(update *gtfs.TripUpdate_StopTimeUpdate, feedTimestamp time.Time) bool {
	if r.Config.LatencyLimit < 0 {
		return false
	}

	eventTime, ok := stopTimeEventUnix(update)
	if !ok {
		return false
	}

	age := feedTimestamp.Unix() - eventTime
	return age > int64(r.Config.LatencyLimit)
}

func stopTimeEventUnix(update *gtfs.TripUpdate_StopTimeUpdate) (int64, bool) {
	if d := update.GetDeparture(); d != nil && d.Time != nil {
		return d.GetTime(), true
	}
	if a := update.GetArrival(); a != nil && a.Time != nil {
		return a.GetTime(), true
	}
	return 0, false
}

func ptr[T any](v T) *T { return &v }
