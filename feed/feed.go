// Package feed drives one upstream feed message through parsing,
// matching and rewriting, per spec.md §4.6.
package feed

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"github.com/camsys/nyct-rt-proxy/match"
	"github.com/camsys/nyct-rt-proxy/rewrite"
	"github.com/camsys/nyct-rt-proxy/tripid"
)

// Config holds the per-feed tunables from spec.md §6 that Processor
// itself consults (the rest live on the Matcher/Rewriter it is built
// with).
type Config struct {
	CancelUnmatchedTrips bool
	ReversedDirections   map[string]bool
}

// TrainIDExtractor reads the agency-specific train-id extension off a
// real-time trip update, returning "" if the update carries none. The
// wire representation of that extension is outside this package's
// scope (spec.md §1's "protobuf wire format ... assumed provided by a
// library"); callers supply whatever accessor their binding generates.
type TrainIDExtractor func(*gtfs.TripUpdate) string

// Processor drives one feed message through TripIdCodec, TripMatcher
// and StopTimeRewriter, per spec.md §4.6.
type Processor struct {
	Matcher           *match.Matcher
	Rewriter          *rewrite.Rewriter
	DirectionInferrer tripid.DirectionInferrer
	TrainID           TrainIDExtractor
	Config            Config
}

// Process implements spec.md §4.6's procedure over one already-parsed
// feed message, accumulating outcome counts into metrics and returning
// the rewritten trip updates to emit, in input order with duplicates
// removed. feedID identifies feedMessage among the cycle's configured
// feeds, for logging and for the caller's feed-id-order concatenation
// (spec.md §5).
func (p *Processor) Process(feedID int, feedMessage *gtfs.FeedMessage, metrics *MetricsAggregator) []*gtfs.TripUpdate {
	seen := make(map[string]bool)
	var out []*gtfs.TripUpdate

	for _, entity := range feedMessage.GetEntity() {
		real := entity.GetTripUpdate()
		if real == nil {
			continue
		}

		rewritten, routeKey, status, merged := p.processOne(feedMessage, real)
		if merged {
			metrics.recordMerged(routeKey)
		} else {
			metrics.recordStatus(routeKey, status)
		}
		if rewritten != nil && rewritten.Trip.GetScheduleRelationship() == gtfs.TripDescriptor_CANCELED {
			metrics.recordCanceled(routeKey)
		}

		if status == match.BadTripId {
			slog.Debug("dropping trip update with unparseable trip id", "feedId", feedID, "entityId", entity.GetId())
		}

		if rewritten == nil {
			continue
		}

		key := dedupeKey(rewritten.Trip)
		if seen[key] {
			metrics.recordDuplicate(routeKey)
			slog.Debug("dropping duplicate trip update", "feedId", feedID, "key", key)
			continue
		}
		seen[key] = true
		out = append(out, rewritten)
	}

	return out
}

func (p *Processor) processOne(feedMessage *gtfs.FeedMessage, real *gtfs.TripUpdate) (rewritten *gtfs.TripUpdate, routeKey string, status match.Status, merged bool) {
	desc := real.GetTrip()

	trainID := ""
	if p.TrainID != nil {
		trainID = p.TrainID(real)
	}

	id, err := tripid.FromDescriptor(tripid.Descriptor{
		TripID:  desc.GetTripId(),
		RouteID: desc.GetRouteId(),
		TrainID: trainID,
	}, p.DirectionInferrer, p.Config.ReversedDirections)
	if err != nil {
		return p.maybeSyntheticCanceled(desc.GetTripId(), desc.GetRouteId()), desc.GetRouteId(), match.BadTripId, false
	}
	routeKey = id.RouteID

	result := p.Matcher.Match(&id, feedTimestamp(feedMessage, real))

	switch result.Status {
	case match.StrictMatch, match.LooseMatch:
		rw, wasMerged := p.Rewriter.Rewrite(real, result.Trip, result.ServiceDate, feedTimestamp(feedMessage, real))
		return rw, routeKey, result.Status, wasMerged
	default:
		return p.maybeSyntheticCanceled(id.String(), id.RouteID), routeKey, result.Status, false
	}
}

func (p *Processor) maybeSyntheticCanceled(tripID, routeID string) *gtfs.TripUpdate {
	if !p.Config.CancelUnmatchedTrips {
		return nil
	}
	return &gtfs.TripUpdate{
		Trip: &gtfs.TripDescriptor{
			TripId:               ptr(tripID),
			RouteId:              ptr(routeID),
			ScheduleRelationship: ptr(gtfs.TripDescriptor_CANCELED),
		},
	}
}

// dedupeKey identifies an emitted trip update by (tripId, startDate),
// per spec.md §4.6.
func dedupeKey(desc *gtfs.TripDescriptor) string {
	return fmt.Sprintf("%s|%s", desc.GetTripId(), desc.GetStartDate())
}

// feedTimestamp prefers the trip update's own timestamp, falling back
// to the feed message header's, per the source feeds' convention of
// stamping both.
func feedTimestamp(feedMessage *gtfs.FeedMessage, real *gtfs.TripUpdate) time.Time {
	if ts := real.GetTimestamp(); ts != 0 {
		return time.Unix(int64(ts), 0)
	}
	return time.Unix(int64(feedMessage.GetHeader().GetTimestamp()), 0)
}

func ptr[T any](v T) *T { return &v }
