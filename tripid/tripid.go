// Package tripid parses and formats the NYCT real-time trip identifier
// grammar and its static-schedule counterpart, and implements the
// loose/strict matching relations used by the trip matcher.
package tripid

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Direction is the inferred or parsed direction of travel, "N" or "S".
// A nil *Direction on a TripId means the direction is unknown.
type Direction string

const (
	North Direction = "N"
	South Direction = "S"
)

// realtimeRegex and staticRegex mirror spec.md's two trip-id grammars.
// Neither is anchored at the start: the agency prefixes real-time ids
// with route/trip metadata the grammar doesn't otherwise describe, and
// FindStringSubmatch returns the leftmost match whose trailing fields
// reach the end of the string.
var (
	realtimeRegex = regexp.MustCompile(`([A-Z0-9]+_)?(?P<originDepartureTime>[0-9-]{6})_?(?P<route>[A-Z0-9]+)\.+(?P<direction>[NS]?)(?P<network>[A-Z0-9 -]*)$`)
	staticRegex   = regexp.MustCompile(`(?P<route>[A-Z0-9]+)\.+(?P<direction>[NS])(?P<network>[A-Z0-9]*)$`)
)

// ErrBadTripId reports a trip-identifier string that does not match the
// expected grammar.
type ErrBadTripId string

func (e ErrBadTripId) Error() string {
	return fmt.Sprintf("trip id %q does not match the expected grammar", string(e))
}

// TripId is the decomposed form of an agency trip identifier, per spec.md
// §3. Direction and NetworkID are nil when not present in the source
// string; nil is never treated as equal to a present value during
// strict matching.
type TripId struct {
	OriginDepartureTime int
	RouteID             string
	Direction           *Direction
	NetworkID           *string
	PathID              string
}

// ParseRealtime parses s using the real-time trip-id grammar.
func ParseRealtime(s string) (TripId, error) {
	return parse(realtimeRegex, s)
}

// ParseStatic parses s using the static-schedule trip-id grammar.
func ParseStatic(s string) (TripId, error) {
	return parse(staticRegex, s)
}

func parse(re *regexp.Regexp, s string) (TripId, error) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return TripId{}, ErrBadTripId(s)
	}
	names := re.SubexpNames()

	var route, direction, network string
	var originRaw string
	haveOrigin := false
	for i, name := range names {
		switch name {
		case "route":
			route = m[i]
		case "direction":
			direction = m[i]
		case "network":
			network = m[i]
		case "originDepartureTime":
			originRaw = m[i]
			haveOrigin = true
		}
	}

	id := TripId{RouteID: route}

	if haveOrigin {
		origin, err := strconv.Atoi(originRaw)
		if err != nil {
			return TripId{}, ErrBadTripId(s)
		}
		id.OriginDepartureTime = origin
	}

	if direction != "" {
		d := Direction(direction)
		id.Direction = &d
	}
	if network != "" {
		id.NetworkID = &network
	}

	id.PathID = buildPathID(route, id.Direction)
	return id, nil
}

func buildPathID(route string, direction *Direction) string {
	padded := route
	if n := 3 - len(route); n > 0 {
		padded += strings.Repeat(".", n)
	}
	if direction != nil {
		padded += string(*direction)
	}
	return padded
}

// String renders the canonical "%06d_%s" form of the id.
func (t TripId) String() string {
	return fmt.Sprintf("%06d_%s", t.OriginDepartureTime, t.PathID)
}

func directionEqual(a, b *Direction) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// RouteDirMatch reports whether two ids share the same route and direction.
func (t TripId) RouteDirMatch(o TripId) bool {
	return t.RouteID == o.RouteID && directionEqual(t.Direction, o.Direction)
}

// LooseMatch reports whether two ids share route, direction and origin
// departure time.
func (t TripId) LooseMatch(o TripId) bool {
	return t.RouteDirMatch(o) && t.OriginDepartureTime == o.OriginDepartureTime
}

// StrictMatch reports whether two ids loosely match and, in addition,
// both carry the same non-null network id. A nil NetworkID on either
// side - including both sides - never produces a strict match: only one
// upstream feed carries network ids, so a strict match is only
// meaningful when both sides actually have one.
func (t TripId) StrictMatch(o TripId) bool {
	if !t.LooseMatch(o) {
		return false
	}
	if t.NetworkID == nil || o.NetworkID == nil {
		return false
	}
	return *t.NetworkID == *o.NetworkID
}

// RelativeToPreviousDay returns a copy of t re-expressed relative to the
// previous service day's midnight, i.e. with 144000 (24*60*100)
// hundredths-of-a-minute units added to OriginDepartureTime.
func (t TripId) RelativeToPreviousDay() TripId {
	t.OriginDepartureTime += 144000
	return t
}

// RouteResolver supplies the logical route id of a scheduled or
// real-time trip, used to correct routes whose static identifiers carry
// a different letter in the route position (e.g. route W ids containing
// "N").
type RouteResolver interface {
	RouteID() string
}

// FromScheduledTrip parses a scheduled trip's own identifier via the
// real-time grammar, then overrides RouteID with the trip's logical
// route, per spec.md §4.1.
func FromScheduledTrip(rawTripID string, route RouteResolver) (TripId, error) {
	id, err := ParseRealtime(rawTripID)
	if err != nil {
		return TripId{}, err
	}
	id.RouteID = route.RouteID()
	id.PathID = buildPathID(id.RouteID, id.Direction)
	return id, nil
}

// flushingRoutes are the routes whose real-time direction field is
// truncated and unreliable, requiring the train-id fallback.
var flushingRoutes = map[string]bool{"7": true, "7X": true}

// DirectionInferrer infers a direction from the agency-specific train
// identifier extension carried by a real-time trip descriptor. It
// returns ok=false when no direction could be inferred.
type DirectionInferrer func(trainID string) (Direction, bool)

// Descriptor carries the fields of a real-time trip descriptor needed
// to build a TripId: its literal trip_id string, an optional explicit
// route id, and an optional agency-specific train id used by the
// Flushing direction-inference fallback.
type Descriptor struct {
	TripID  string
	RouteID string // "" if not explicitly set on the descriptor
	TrainID string // "" if the descriptor carries no train-id extension
}

// FromDescriptor parses a real-time trip descriptor's trip id, applies
// the descriptor's explicit route id override, runs the Flushing
// direction-inference fallback when needed, and flips N/S for routes in
// reversedDirections. infer may be nil when the fallback is not needed
// by the caller (e.g. in tests that never hit route 7/7X).
func FromDescriptor(d Descriptor, infer DirectionInferrer, reversedDirections map[string]bool) (TripId, error) {
	id, err := ParseRealtime(d.TripID)
	if err != nil {
		return TripId{}, err
	}

	if d.RouteID != "" {
		id.RouteID = d.RouteID
		id.PathID = buildPathID(id.RouteID, id.Direction)
	}

	if id.Direction == nil && flushingRoutes[id.RouteID] && infer != nil && d.TrainID != "" {
		if dir, ok := infer(d.TrainID); ok {
			id.Direction = &dir
			id.PathID = buildPathID(id.RouteID, id.Direction)
		}
	}

	if reversedDirections[id.RouteID] && id.Direction != nil {
		flipped := flip(*id.Direction)
		id.Direction = &flipped
		id.PathID = buildPathID(id.RouteID, id.Direction)
	}

	return id, nil
}

func flip(d Direction) Direction {
	if d == North {
		return South
	}
	return North
}
