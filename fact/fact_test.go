package fact

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

func ptrT[T any](v T) *T { return &v }

func sampleContainer() *Container {
	return &Container{
		Timestamp: time.Unix(1717401600, 0),
		TripUpdates: []*gtfs.TripUpdate{
			{
				Trip: &gtfs.TripDescriptor{
					TripId:    ptrT("1..N"),
					StartDate: ptrT("20240603"),
				},
				StopTimeUpdate: []*gtfs.TripUpdate_StopTimeUpdate{
					{StopId: ptrT("101N")},
				},
			},
		},
	}
}

func TestAsGTFS(t *testing.T) {
	c := sampleContainer()
	msg := c.AsGTFS()

	require.Len(t, msg.Entity, 1)
	assert.Equal(t, "20240603_1..N", msg.Entity[0].GetId())
	assert.Equal(t, uint64(1717401600), msg.Header.GetTimestamp())
	assert.Equal(t, "1..N", msg.Entity[0].GetTripUpdate().GetTrip().GetTripId())
}

func TestTotalFacts(t *testing.T) {
	c := sampleContainer()
	assert.Equal(t, 1, c.TotalFacts())
}

func TestDumpGTFSBinaryRoundTrips(t *testing.T) {
	c := sampleContainer()
	var buf bytes.Buffer
	require.NoError(t, c.DumpGTFS(&buf, Binary))

	var msg gtfs.FeedMessage
	require.NoError(t, proto.Unmarshal(buf.Bytes(), &msg))
	assert.Equal(t, "1..N", msg.Entity[0].GetTripUpdate().GetTrip().GetTripId())
}

func TestDumpGTFSFileIsAtomic(t *testing.T) {
	c := sampleContainer()
	dir := t.TempDir()
	path := filepath.Join(dir, "feed.pb")

	require.NoError(t, c.DumpGTFSFile(path, Binary))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var msg gtfs.FeedMessage
	require.NoError(t, proto.Unmarshal(data, &msg))
	assert.Len(t, msg.Entity, 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should have been renamed away")
}

func TestDumpJSONFile(t *testing.T) {
	c := sampleContainer()
	dir := t.TempDir()
	path := filepath.Join(dir, "feed.json")

	require.NoError(t, c.DumpJSONFile(path, HumanReadable))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "1..N")
}
