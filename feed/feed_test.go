package feed

import (
	"testing"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camsys/nyct-rt-proxy/match"
	"github.com/camsys/nyct-rt-proxy/rewrite"
	"github.com/camsys/nyct-rt-proxy/schedule"
)

func ptrT[T any](v T) *T { return &v }

func mustLoc(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func newIndex(t *testing.T, trips ...*schedule.ScheduledTrip) *schedule.ActivatedTripIndex {
	datesByService := map[string]map[schedule.ServiceDate]bool{
		"WKD": {{Y: 2024, M: time.June, D: 3}: true},
	}
	return schedule.NewActivatedTripIndex(trips, datesByService)
}

func sixAMTrip() *schedule.ScheduledTrip {
	return &schedule.ScheduledTrip{
		TripID:    "1..N",
		Route:     "1",
		ServiceID: "WKD",
		PathID:    "1..N",
		StartSec:  21600,
		EndSec:    21900,
		RawID:     "036000_1..N",
		StopTimes: []schedule.StopTime{{StopID: "101N"}, {StopID: "102N"}},
	}
}

func newProcessor(t *testing.T, idx *schedule.ActivatedTripIndex, cfg Config) *Processor {
	return &Processor{
		Matcher:  match.New(idx, mustLoc(t), match.NewConfig()),
		Rewriter: rewrite.New(rewrite.Config{LatencyLimit: -1, CancelUnmatchedTrips: cfg.CancelUnmatchedTrips}),
		Config:   cfg,
	}
}

func feedMessageAt(t time.Time, entities ...*gtfs.FeedEntity) *gtfs.FeedMessage {
	return &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{Timestamp: ptrT(uint64(t.Unix()))},
		Entity: entities,
	}
}

func TestProcessorEmitsRewrittenMatchedTrip(t *testing.T) {
	idx := newIndex(t, sixAMTrip())
	p := newProcessor(t, idx, Config{})

	ts := time.Date(2024, time.June, 3, 5, 55, 0, 0, mustLoc(t))
	entity := &gtfs.FeedEntity{
		Id: ptrT("e1"),
		TripUpdate: &gtfs.TripUpdate{
			Trip:           &gtfs.TripDescriptor{TripId: ptrT("036000_1..N")},
			StopTimeUpdate: []*gtfs.TripUpdate_StopTimeUpdate{{StopId: ptrT("101N")}, {StopId: ptrT("102N")}},
		},
	}

	metrics := NewMetricsAggregator()
	out := p.Process(1, feedMessageAt(ts, entity), metrics)

	require.Len(t, out, 1)
	assert.Equal(t, "1..N", out[0].Trip.GetTripId())
	assert.Equal(t, 1, metrics.Total.StrictMatch+metrics.Total.LooseMatch)
}

func TestProcessorDeduplicatesByTripAndStartDate(t *testing.T) {
	idx := newIndex(t, sixAMTrip())
	p := newProcessor(t, idx, Config{})

	ts := time.Date(2024, time.June, 3, 5, 55, 0, 0, mustLoc(t))
	makeEntity := func(id string) *gtfs.FeedEntity {
		return &gtfs.FeedEntity{
			Id: ptrT(id),
			TripUpdate: &gtfs.TripUpdate{
				Trip:           &gtfs.TripDescriptor{TripId: ptrT("036000_1..N")},
				StopTimeUpdate: []*gtfs.TripUpdate_StopTimeUpdate{{StopId: ptrT("101N")}},
			},
		}
	}

	metrics := NewMetricsAggregator()
	out := p.Process(1, feedMessageAt(ts, makeEntity("e1"), makeEntity("e2")), metrics)

	assert.Len(t, out, 1)
	assert.Equal(t, 1, metrics.Total.Duplicates)
}

func TestProcessorBadTripIdCounted(t *testing.T) {
	idx := newIndex(t, sixAMTrip())
	p := newProcessor(t, idx, Config{})

	ts := time.Date(2024, time.June, 3, 5, 55, 0, 0, mustLoc(t))
	entity := &gtfs.FeedEntity{
		Id:         ptrT("e1"),
		TripUpdate: &gtfs.TripUpdate{Trip: &gtfs.TripDescriptor{TripId: ptrT("not-an-id")}},
	}

	metrics := NewMetricsAggregator()
	out := p.Process(1, feedMessageAt(ts, entity), metrics)

	assert.Empty(t, out)
	assert.Equal(t, 1, metrics.Total.BadTripId)
}

func TestProcessorUnmatchedEmitsCanceledWhenConfigured(t *testing.T) {
	idx := newIndex(t, sixAMTrip())
	p := newProcessor(t, idx, Config{CancelUnmatchedTrips: true})

	ts := time.Date(2024, time.June, 3, 5, 55, 0, 0, mustLoc(t))
	entity := &gtfs.FeedEntity{
		Id:         ptrT("e1"),
		TripUpdate: &gtfs.TripUpdate{Trip: &gtfs.TripDescriptor{TripId: ptrT("036000_9..N")}},
	}

	metrics := NewMetricsAggregator()
	out := p.Process(1, feedMessageAt(ts, entity), metrics)

	require.Len(t, out, 1)
	assert.Equal(t, gtfs.TripDescriptor_CANCELED, out[0].Trip.GetScheduleRelationship())
	assert.Equal(t, 1, metrics.Total.Canceled)
}

func TestProcessorMatchedButEmptyStopsIsMergedNotEmitted(t *testing.T) {
	idx := newIndex(t, sixAMTrip())
	p := newProcessor(t, idx, Config{})

	ts := time.Date(2024, time.June, 3, 5, 55, 0, 0, mustLoc(t))
	entity := &gtfs.FeedEntity{
		Id: ptrT("e1"),
		TripUpdate: &gtfs.TripUpdate{
			Trip:           &gtfs.TripDescriptor{TripId: ptrT("036000_1..N")},
			StopTimeUpdate: []*gtfs.TripUpdate_StopTimeUpdate{{StopId: ptrT("999X")}},
		},
	}

	metrics := NewMetricsAggregator()
	out := p.Process(1, feedMessageAt(ts, entity), metrics)

	assert.Empty(t, out)
	assert.Equal(t, 1, metrics.Total.Merged)
}
