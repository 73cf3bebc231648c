// Package fetchsink implements the periodic fetcher and output sink
// that spec.md §1 places outside the core's scope: HTTP retrieval of
// each configured upstream feed and atomic publication of the
// aggregated result.
package fetchsink

import (
	"context"
	"net/http"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"github.com/camsys/nyct-rt-proxy/util/http2"
)

// Source describes one upstream feed to fetch.
type Source struct {
	ID      int
	URL     string
	Headers map[string]string
}

// Fetcher retrieves and parses upstream GTFS-Realtime feed messages.
type Fetcher struct {
	Client *http.Client
}

// New builds a Fetcher using client, or http.DefaultClient if client is
// nil.
func New(client *http.Client) *Fetcher {
	return &Fetcher{Client: client}
}

// Fetch retrieves src's feed message. A nil result with a nil error
// never occurs; callers skip a feed only on a non-nil error, per
// spec.md §5's "if the parsed feed message is absent, the core skips
// it."
func (f *Fetcher) Fetch(ctx context.Context, src Source) (*gtfs.FeedMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range src.Headers {
		req.Header.Set(k, v)
	}

	return http2.GetFeedMessage(f.Client, req)
}
