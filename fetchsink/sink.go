package fetchsink

import (
	"fmt"

	"github.com/camsys/nyct-rt-proxy/fact"
)

// Sink publishes one cycle's aggregated output to the configured
// binary and (optionally) human-readable file paths, atomically.
type Sink struct {
	GTFSPath      string
	JSONPath      string
	HumanReadable bool
}

// Write dumps c to the sink's configured paths. GTFSPath is required;
// JSONPath is skipped when empty.
func (s *Sink) Write(c *fact.Container) error {
	if s.GTFSPath == "" {
		return fmt.Errorf("fetchsink: no GTFS output path configured")
	}

	if err := c.DumpGTFSFile(s.GTFSPath, s.HumanReadable); err != nil {
		return fmt.Errorf("%s: %w", s.GTFSPath, err)
	}

	if s.JSONPath != "" {
		if err := c.DumpJSONFile(s.JSONPath, s.HumanReadable); err != nil {
			return fmt.Errorf("%s: %w", s.JSONPath, err)
		}
	}

	return nil
}
