// Package runner wires together the static schedule, matcher,
// rewriter and feed processor into one configured cycle, and drives
// that cycle on a backoff-governed timer — the construction-time
// wiring and external scheduler spec.md §9 calls for in place of the
// source's dependency-injection container and scheduled executor.
package runner

import "time"

// Feed describes one upstream feed to fetch each cycle.
type Feed struct {
	ID      int
	URL     string
	Headers map[string]string
}

// Config holds everything needed to run one or more cycles, per
// spec.md §6's enumerated configuration plus the feeds and output
// paths a complete deployment also needs.
type Config struct {
	Feeds []Feed

	// SchedulePath is a directory or zip archive of the static GTFS
	// Schedule bundle to load at startup.
	SchedulePath string

	LateTripLimitSec     int
	LooseMatchDisabled   bool
	CancelUnmatchedTrips bool
	LatencyLimit         int
	ReversedDirections   map[string]bool

	GTFSOutputPath string
	JSONOutputPath string
	HumanReadable  bool

	// LoopPeriod, when non-zero, causes Runner.RunLoop to repeat the
	// cycle on this period (backoff-adjusted on failure) rather than
	// running once.
	LoopPeriod time.Duration
}
