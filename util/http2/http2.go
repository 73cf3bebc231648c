// SPDX-FileCopyrightText: 2026 Mikołaj Kuranowski
// SPDX-License-Identifier: MIT

// Package http2 wraps net/http with the small conveniences this proxy's
// fetcher needs: a typed HTTP-status error and a GTFS-Realtime
// FeedMessage fetch-and-decode helper.
package http2

import (
	"fmt"
	"io"
	"net/http"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

type Error struct {
	URL, Status string
	StatusCode  int
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.URL, e.Status)
}

// Retriable reports whether e is the kind of transient HTTP failure
// worth backing off and retrying (429, 500, 503), as opposed to one
// that will not resolve itself on the next cycle.
func (e *Error) Retriable() bool {
	switch e.StatusCode {
	case 429, 500, 503:
		return true
	default:
		return false
	}
}

func Check(r *http.Response) error {
	if r.StatusCode >= 400 && r.StatusCode < 600 {
		io.Copy(io.Discard, r.Body)
		r.Body.Close()
		return &Error{
			URL:        r.Request.URL.Redacted(),
			Status:     r.Status,
			StatusCode: r.StatusCode,
		}
	}
	return nil
}

// GetFeedMessage fetches req's response body and unmarshals it as a
// GTFS-Realtime FeedMessage.
func GetFeedMessage(client *http.Client, req *http.Request) (*gtfs.FeedMessage, error) {
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if err = Check(resp); err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	msg := new(gtfs.FeedMessage)
	if err := proto.Unmarshal(body, msg); err != nil {
		return nil, fmt.Errorf("unmarshaling feed message: %w", err)
	}
	return msg, nil
}
