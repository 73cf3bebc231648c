// Command nyct-rt-proxy fetches the agency's real-time train feeds,
// reconciles them against a static GTFS Schedule bundle, and
// republishes a single unified GTFS-Realtime feed.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"strings"
	"time"

	"github.com/camsys/nyct-rt-proxy/runner"
	"github.com/camsys/nyct-rt-proxy/schedule"
	"github.com/camsys/nyct-rt-proxy/util/secret"
)

type feedList []string

func (f *feedList) String() string { return strings.Join(*f, ",") }

func (f *feedList) Set(value string) error {
	*f = append(*f, value)
	return nil
}

var (
	flagGTFS                 = flag.String("gtfs", "gtfs_schedule.zip", "path to the static GTFS Schedule bundle (directory or zip)")
	flagOut                  = flag.String("out", "nyct_rt.pb", "path to write the aggregated GTFS-Realtime feed")
	flagJSONOut              = flag.String("json-out", "", "optional path to also write a JSON rendering of the feed")
	flagReadable             = flag.Bool("readable", false, "dump output in human-readable prototext/JSON rather than binary")
	flagLoop                 = flag.Duration("loop", 60*time.Second, "when non-zero, update the feed continuously with the given period")
	flagVerbose              = flag.Bool("verbose", false, "show DEBUG logging")
	flagLateTripLimitSec     = flag.Int("late-trip-limit", 0, "upper bound in seconds on a loose match's lateness (0 keeps the default)")
	flagLooseMatchDisabled   = flag.Bool("loose-match-disabled", false, "only accept strict matches")
	flagCancelUnmatchedTrips = flag.Bool("cancel-unmatched", false, "emit unmatched real-time trips as CANCELED instead of dropping them")
	flagLatencyLimit         = flag.Int("latency-limit", -1, "drop stop-time updates older than this many seconds; -1 disables")
	flagReversedDirections   = flag.String("reversed-directions", "", "comma-separated route ids whose N/S direction should be flipped")
	flagAPIKeyEnv            = flag.String("apikey-env", "MTA_API_KEY", "environment variable (or VAR_FILE) carrying the feed API key")

	flagFeeds feedList
)

func main() {
	flag.Var(&flagFeeds, "feed", "upstream feed URL (repeatable)")
	flag.Parse()

	if *flagVerbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	if len(flagFeeds) == 0 {
		log.Fatal("at least one -feed URL is required")
	}

	apikey, err := secret.FromEnvironment(*flagAPIKeyEnv)
	if err != nil {
		log.Fatal(err)
	}

	slog.Info("loading static schedule", "path", *flagGTFS)
	bundle, err := schedule.LoadFromPath(*flagGTFS)
	if err != nil {
		log.Fatal(err)
	}

	cfg := runner.Config{
		SchedulePath:         *flagGTFS,
		GTFSOutputPath:       *flagOut,
		JSONOutputPath:       *flagJSONOut,
		HumanReadable:        *flagReadable,
		LateTripLimitSec:     *flagLateTripLimitSec,
		LooseMatchDisabled:   *flagLooseMatchDisabled,
		CancelUnmatchedTrips: *flagCancelUnmatchedTrips,
		LatencyLimit:         *flagLatencyLimit,
		ReversedDirections:   parseRouteSet(*flagReversedDirections),
		LoopPeriod:           *flagLoop,
	}

	for i, url := range flagFeeds {
		cfg.Feeds = append(cfg.Feeds, runner.Feed{
			ID:      i + 1,
			URL:     url,
			Headers: map[string]string{"x-api-key": apikey},
		})
	}

	r := runner.New(cfg, bundle)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := r.RunLoop(ctx); err != nil {
		log.Fatal(err)
	}
}

func parseRouteSet(csv string) map[string]bool {
	if csv == "" {
		return nil
	}
	set := make(map[string]bool)
	for _, r := range strings.Split(csv, ",") {
		r = strings.TrimSpace(r)
		if r != "" {
			set[r] = true
		}
	}
	return set
}
