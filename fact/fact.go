// Package fact assembles one cycle's rewritten trip updates into the
// aggregated GTFS-Realtime feed message and dumps it to disk, adapted
// from the teacher's output container.
package fact

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
)

const (
	Binary        = false
	HumanReadable = true
)

// Container is the aggregated output of one feed cycle: every rewritten
// trip update from every configured feed, concatenated in feed-id
// order, stamped with the cycle's wall-clock timestamp.
type Container struct {
	Timestamp   time.Time
	TripUpdates []*gtfs.TripUpdate
}

// AsGTFS renders c as a GTFS-Realtime FeedMessage.
func (c *Container) AsGTFS() *gtfs.FeedMessage {
	g := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: ptr("2.0"),
			Incrementality:      ptr(gtfs.FeedHeader_FULL_DATASET),
			Timestamp:           ptr(uint64(c.Timestamp.Unix())),
		},
		Entity: make([]*gtfs.FeedEntity, len(c.TripUpdates)),
	}

	for i, u := range c.TripUpdates {
		g.Entity[i] = &gtfs.FeedEntity{
			Id:         ptr(entityID(u, i)),
			TripUpdate: u,
		}
	}

	return g
}

func entityID(u *gtfs.TripUpdate, i int) string {
	if trip := u.GetTrip(); trip != nil && trip.GetTripId() != "" {
		return fmt.Sprintf("%s_%s", trip.GetStartDate(), trip.GetTripId())
	}
	return fmt.Sprintf("update_%d", i)
}

// TotalFacts reports how many trip updates the container carries.
func (c *Container) TotalFacts() int {
	return len(c.TripUpdates)
}

// DumpGTFS writes c's protobuf rendering to w, either binary-encoded or
// as human-readable prototext.
func (c *Container) DumpGTFS(w io.Writer, humanReadable bool) error {
	var data []byte
	var err error

	if humanReadable {
		data, err = prototext.MarshalOptions{Multiline: true}.Marshal(c.AsGTFS())
	} else {
		data, err = proto.Marshal(c.AsGTFS())
	}
	if err != nil {
		return err
	}

	_, err = w.Write(data)
	return err
}

// DumpGTFSFile writes c to path, via a temp-file-then-rename so readers
// never observe a partially written feed.
func (c *Container) DumpGTFSFile(path string, humanReadable bool) error {
	return atomicWrite(path, func(w io.Writer) error {
		return c.DumpGTFS(w, humanReadable)
	})
}

// DumpJSON writes c's protobuf JSON rendering to w.
func (c *Container) DumpJSON(w io.Writer, humanReadable bool) error {
	opts := protojson.MarshalOptions{}
	if humanReadable {
		opts.Indent = "\t"
	}
	data, err := opts.Marshal(c.AsGTFS())
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// DumpJSONFile writes c's JSON rendering to path, via a
// temp-file-then-rename.
func (c *Container) DumpJSONFile(path string, humanReadable bool) error {
	return atomicWrite(path, func(w io.Writer) error {
		return c.DumpJSON(w, humanReadable)
	})
}

func atomicWrite(path string, write func(io.Writer) error) error {
	tempPath := tempOutputPath(path)

	f, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	b := bufio.NewWriter(f)
	if err := write(b); err != nil {
		f.Close()
		return err
	}
	if err := b.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tempPath, path)
}

func tempOutputPath(path string) string {
	dir, name := filepath.Split(path)
	return filepath.Join(dir, fmt.Sprintf(".%s.tmp", name))
}

func ptr[T any](v T) *T { return &v }
