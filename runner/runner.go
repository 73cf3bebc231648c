package runner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"github.com/camsys/nyct-rt-proxy/backoff"
	"github.com/camsys/nyct-rt-proxy/fact"
	"github.com/camsys/nyct-rt-proxy/feed"
	"github.com/camsys/nyct-rt-proxy/fetchsink"
	"github.com/camsys/nyct-rt-proxy/match"
	"github.com/camsys/nyct-rt-proxy/rewrite"
	"github.com/camsys/nyct-rt-proxy/schedule"
	"github.com/camsys/nyct-rt-proxy/trainid"
	"github.com/camsys/nyct-rt-proxy/tripid"
	"github.com/camsys/nyct-rt-proxy/util/http2"
)

// feedFetcher is the subset of *fetchsink.Fetcher the runner needs,
// factored out so tests can supply a stub instead of real HTTP.
type feedFetcher interface {
	Fetch(ctx context.Context, src fetchsink.Source) (*gtfs.FeedMessage, error)
}

// Runner owns one cycle's wiring: a fixed schedule index, a fetcher per
// configured feed, and a sink for the aggregated result.
type Runner struct {
	Config            Config
	Index             *schedule.ActivatedTripIndex
	Timezone          *time.Location
	Fetcher           feedFetcher
	Sink              *fetchsink.Sink
	DirectionInferrer tripid.DirectionInferrer
	TrainID           feed.TrainIDExtractor
}

// New builds a Runner over bundle, ready to run cycles per cfg. The
// Flushing-line direction-inference fallback (spec.md §4.2) is wired in
// by default; callers needing the actual train-id extension extracted
// from a binding-specific extension field set Runner.TrainID
// themselves.
func New(cfg Config, bundle *schedule.Bundle) *Runner {
	return &Runner{
		Config:            cfg,
		Index:             bundle.Index,
		Timezone:          bundle.Timezone,
		Fetcher:           fetchsink.New(nil),
		DirectionInferrer: inferFlushingDirection,
		Sink: &fetchsink.Sink{
			GTFSPath:      cfg.GTFSOutputPath,
			JSONPath:      cfg.JSONOutputPath,
			HumanReadable: cfg.HumanReadable,
		},
	}
}

func inferFlushingDirection(trainID string) (tripid.Direction, bool) {
	d, ok := trainid.InferFlushingDirection(trainID)
	if !ok {
		return "", false
	}
	return tripid.Direction(d), true
}

// RunCycle fetches every configured feed, matches and rewrites its
// trip updates, and publishes the aggregated result, per spec.md §4.6's
// "concatenation in feed-id order" and §5's "skip a feed whose parsed
// message is absent."
func (r *Runner) RunCycle(ctx context.Context) (totalFacts int, metrics *feed.MetricsAggregator, err error) {
	metrics = feed.NewMetricsAggregator()

	matcherCfg := match.NewConfig()
	matcherCfg.LooseMatchDisabled = r.Config.LooseMatchDisabled
	if r.Config.LateTripLimitSec > 0 {
		matcherCfg.LateTripLimitSec = r.Config.LateTripLimitSec
	}

	processor := &feed.Processor{
		Matcher:           match.New(r.Index, r.Timezone, matcherCfg),
		Rewriter:          rewrite.New(rewrite.Config{LatencyLimit: r.Config.LatencyLimit, CancelUnmatchedTrips: r.Config.CancelUnmatchedTrips}),
		DirectionInferrer: r.DirectionInferrer,
		TrainID:           r.TrainID,
		Config: feed.Config{
			CancelUnmatchedTrips: r.Config.CancelUnmatchedTrips,
			ReversedDirections:   r.Config.ReversedDirections,
		},
	}

	var all []*gtfs.TripUpdate
	var retriable error
	cycleTimestamp := time.Now()

	for _, src := range r.Config.Feeds {
		msg, fetchErr := r.Fetcher.Fetch(ctx, fetchsink.Source{ID: src.ID, URL: src.URL, Headers: src.Headers})
		if fetchErr != nil {
			if isRetriable(fetchErr) {
				slog.Warn("feed fetch failed with a retriable HTTP error", "feedId", src.ID, "error", fetchErr)
				retriable = fetchErr
			} else {
				slog.Warn("skipping feed after non-retriable fetch error", "feedId", src.ID, "error", fetchErr)
			}
			continue
		}
		if msg == nil {
			continue
		}

		if ts := msg.GetHeader().GetTimestamp(); ts != 0 {
			cycleTimestamp = time.Unix(int64(ts), 0)
		}

		all = append(all, processor.Process(src.ID, msg, metrics)...)
	}

	container := &fact.Container{Timestamp: cycleTimestamp, TripUpdates: all}
	if err = r.Sink.Write(container); err != nil {
		return 0, metrics, err
	}

	if retriable != nil {
		return container.TotalFacts(), metrics, retriable
	}

	return container.TotalFacts(), metrics, nil
}

// isRetriable reports whether err is a retriable HTTP failure (429,
// 500, 503) per spec.md §5, as opposed to an application-level
// parse/match error or a non-retriable HTTP status — those are logged
// and the feed is skipped for this cycle, not backed off.
func isRetriable(err error) bool {
	var httpErr *http2.Error
	return errors.As(err, &httpErr) && httpErr.Retriable()
}

// RunLoop runs RunCycle on r.Config.LoopPeriod, backing off on failure,
// until ctx is cancelled. A zero LoopPeriod runs the cycle exactly
// once.
func (r *Runner) RunLoop(ctx context.Context) error {
	if r.Config.LoopPeriod == 0 {
		_, metrics, err := r.RunCycle(ctx)
		if err != nil {
			return err
		}
		slog.Info("cycle complete", "metrics", metrics.Total)
		return nil
	}

	b := backoff.Backoff{Period: r.Config.LoopPeriod, MaxBackoffExponent: 6}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		b.Wait()
		b.StartRun()

		totalFacts, metrics, err := r.RunCycle(ctx)
		if err != nil {
			next := b.EndRun(backoff.Failure)
			slog.Error("cycle failed", "error", err, "nextTry", next)
			continue
		}
		b.EndRun(backoff.Success)
		slog.Info("cycle complete", "facts", totalFacts, "metrics", metrics.Total)
	}
}
