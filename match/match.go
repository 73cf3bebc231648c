// Package match implements the trip-matching algorithm of spec.md §4.4:
// given one real-time trip update and its parsed agency trip id, choose
// the best scheduled trip, if any, and classify the outcome.
package match

import (
	"cmp"
	"slices"
	"time"

	"github.com/camsys/nyct-rt-proxy/schedule"
	"github.com/camsys/nyct-rt-proxy/tripid"
)

// Status classifies the outcome of matching one real-time trip.
type Status int

const (
	StrictMatch Status = iota
	LooseMatch
	NoMatch
	NoTripWithStartDate
	BadTripId
)

func (s Status) String() string {
	switch s {
	case StrictMatch:
		return "STRICT_MATCH"
	case LooseMatch:
		return "LOOSE_MATCH"
	case NoMatch:
		return "NO_MATCH"
	case NoTripWithStartDate:
		return "NO_TRIP_WITH_START_DATE"
	case BadTripId:
		return "BAD_TRIP_ID"
	default:
		return "UNKNOWN"
	}
}

// Result is the outcome of matching one real-time trip against the
// static schedule, per spec.md §3.
type Result struct {
	Status Status
	Trip   *schedule.ScheduledTrip

	// ServiceDate is the service date the matched trip was found
	// active on (the timestamp's own date, or its previous date when
	// the previous-day lookback fired). Zero value when Status is
	// BadTripId, NoMatch or NoTripWithStartDate.
	ServiceDate schedule.ServiceDate

	// Delta and OnServiceDay are only meaningful when Status ==
	// LooseMatch: the number of seconds the real-time trip is running
	// later than the scheduled trip, and whether the matched trip
	// actually runs on the service date evaluated.
	Delta        int
	OnServiceDay bool
}

// DefaultLateTripLimitSec is the default upper bound on a loose match's
// Delta, per spec.md §6.
const DefaultLateTripLimitSec = 3600

// Config holds the per-cycle matcher tunables from spec.md §6.
type Config struct {
	LateTripLimitSec   int
	LooseMatchDisabled bool
}

// NewConfig returns a Config with spec.md's defaults.
func NewConfig() Config {
	return Config{LateTripLimitSec: DefaultLateTripLimitSec}
}

// Matcher resolves real-time trips against a static schedule index.
type Matcher struct {
	Index    *schedule.ActivatedTripIndex
	Timezone *time.Location
	Config   Config
}

// New builds a Matcher over idx, using tz to compute service dates from
// wall-clock timestamps.
func New(idx *schedule.ActivatedTripIndex, tz *time.Location, cfg Config) *Matcher {
	return &Matcher{Index: idx, Timezone: tz, Config: cfg}
}

// Match implements spec.md §4.4's algorithm.
func (m *Matcher) Match(id *tripid.TripId, timestamp time.Time) Result {
	if id == nil {
		return Result{Status: BadTripId}
	}

	d := schedule.ServiceDateFromTime(timestamp, m.Timezone)

	candidates, found := m.addCandidates(*id, d)

	if id.OriginDepartureTime < 180 {
		prevCandidates, prevFound := m.addCandidates(id.RelativeToPreviousDay(), d.Previous())
		candidates = append(candidates, prevCandidates...)
		found = found || prevFound
	}

	if len(candidates) == 0 {
		if found {
			return Result{Status: NoMatch}
		}
		return Result{Status: NoTripWithStartDate}
	}

	slices.SortFunc(candidates, compareCandidates)
	best := candidates[0]
	return Result{
		Status:       best.status,
		Trip:         best.trip,
		ServiceDate:  best.serviceDate,
		Delta:        best.delta,
		OnServiceDay: best.onServiceDay,
	}
}

type candidate struct {
	trip         *schedule.ScheduledTrip
	status       Status
	serviceDate  schedule.ServiceDate
	delta        int
	onServiceDay bool
}

// addCandidates iterates every scheduled trip on id's route, per
// spec.md §4.4's "addCandidates" step.
func (m *Matcher) addCandidates(id tripid.TripId, d schedule.ServiceDate) (candidates []candidate, found bool) {
	limit := m.Config.LateTripLimitSec
	if limit <= 0 {
		limit = DefaultLateTripLimitSec
	}

	for _, trip := range m.Index.TripsOnRoute(id.RouteID) {
		schedID, err := tripid.FromScheduledTrip(trip.RawID, trip)
		if err != nil {
			continue
		}
		if !schedID.RouteDirMatch(id) {
			continue
		}

		onServiceDay := m.Index.IsActiveOn(trip, d)

		// Any scheduled trip with matching route+direction counts,
		// regardless of service day: resolved Open Question, see
		// DESIGN.md.
		found = true

		if schedID.StrictMatch(id) && onServiceDay {
			candidates = append(candidates, candidate{trip: trip, status: StrictMatch, serviceDate: d, onServiceDay: true})
		}

		if !m.Config.LooseMatchDisabled {
			delta := (id.OriginDepartureTime*3)/5 - trip.StartSec
			if delta >= 0 && delta < limit && (onServiceDay || delta == 0) {
				candidates = append(candidates, candidate{
					trip:         trip,
					status:       LooseMatch,
					serviceDate:  d,
					delta:        delta,
					onServiceDay: onServiceDay,
				})
			}
		}
	}

	return candidates, found
}

// compareCandidates orders candidates best-first, per spec.md §4.4:
// strict beats loose; among loose matches smaller delta wins, then
// onServiceDay; ties are broken by scheduled trip id.
func compareCandidates(a, b candidate) int {
	if a.status != b.status {
		if a.status == StrictMatch {
			return -1
		}
		if b.status == StrictMatch {
			return 1
		}
	}

	if a.status == LooseMatch && b.status == LooseMatch {
		if a.delta != b.delta {
			return cmp.Compare(a.delta, b.delta)
		}
		if a.onServiceDay != b.onServiceDay {
			if a.onServiceDay {
				return -1
			}
			return 1
		}
	}

	return cmp.Compare(a.trip.TripID, b.trip.TripID)
}
