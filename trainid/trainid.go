// Package trainid parses the separate agency train-identifier string and
// implements the Flushing-line (route 7/7X) direction-inference
// fallback described in spec.md §4.2.
package trainid

import (
	"fmt"
	"regexp"
	"slices"
)

// ErrBadTrainId reports a train-identifier string that does not match
// the expected grammar.
type ErrBadTrainId string

func (e ErrBadTrainId) Error() string {
	return fmt.Sprintf("train id %q does not match the expected grammar", string(e))
}

// TrainId is the parsed form of the agency-specific train identifier
// carried as a trip-descriptor extension. Only the fields needed by
// direction inference are modeled.
type TrainId struct {
	Origin      string
	Destination string
}

// trainIdRegex captures an origin and destination stop abbreviation
// separated by "/", e.g. "TSQ/MST". The delimiter is "/" rather than
// "-" because stop abbreviations themselves may contain a dash (e.g.
// "G-C" for Grand Central); a "-" delimiter would be ambiguous against
// a dash inside either field.
var trainIdRegex = regexp.MustCompile(`^(?P<origin>[A-Z0-9-]+)/(?P<destination>[A-Z0-9-]+)$`)

// Parse parses s into a TrainId.
func Parse(s string) (TrainId, error) {
	m := trainIdRegex.FindStringSubmatch(s)
	if m == nil {
		return TrainId{}, ErrBadTrainId(s)
	}
	names := trainIdRegex.SubexpNames()
	var id TrainId
	for i, name := range names {
		switch name {
		case "origin":
			id.Origin = m[i]
		case "destination":
			id.Destination = m[i]
		}
	}
	return id, nil
}

// defaultFlushingStops is the fixed ordered list of 22 stop abbreviations
// from north to south along the Flushing line, used to infer direction
// for routes 7 and 7X (whose real-time direction field is truncated).
// spec.md §9 flags this as data, not logic; SetFlushingStops lets a
// caller override it without touching the inference algorithm.
var defaultFlushingStops = []string{
	"MST", "WPT", "111", "103", "JCT", "90S", "82S", "74S", "69S", "61S",
	"52S", "46B", "40S", "RAW", "QBP", "CHS", "HTR", "VER", "G-C", "5AV",
	"TSQ", "34H",
}

var flushingStops = slices.Clone(defaultFlushingStops)

// SetFlushingStops overrides the ordered north-to-south stop list used
// by InferFlushingDirection. Passing nil resets it to the default list.
func SetFlushingStops(stops []string) {
	if stops == nil {
		flushingStops = slices.Clone(defaultFlushingStops)
		return
	}
	flushingStops = slices.Clone(stops)
}

// InferFlushingDirection infers a direction from a raw train-identifier
// string, per spec.md §4.2: if parsing fails, either stop is absent
// from the ordered list, or origin equals destination, it returns
// ("", false). Otherwise it returns "N" when the origin is further
// south than the destination (the train is heading north), else "S".
func InferFlushingDirection(raw string) (string, bool) {
	id, err := Parse(raw)
	if err != nil {
		return "", false
	}
	return inferFromTrainID(id)
}

func inferFromTrainID(id TrainId) (string, bool) {
	if id.Origin == id.Destination {
		return "", false
	}
	originIdx := slices.Index(flushingStops, id.Origin)
	destIdx := slices.Index(flushingStops, id.Destination)
	if originIdx < 0 || destIdx < 0 {
		return "", false
	}
	if originIdx > destIdx {
		return "N", true
	}
	return "S", true
}
