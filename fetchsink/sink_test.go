package fetchsink

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camsys/nyct-rt-proxy/fact"
)

func TestSinkWriteBothOutputs(t *testing.T) {
	dir := t.TempDir()
	s := &Sink{
		GTFSPath: filepath.Join(dir, "feed.pb"),
		JSONPath: filepath.Join(dir, "feed.json"),
	}
	c := &fact.Container{Timestamp: time.Unix(1717401600, 0)}

	require.NoError(t, s.Write(c))

	_, err := os.Stat(s.GTFSPath)
	assert.NoError(t, err)
	_, err = os.Stat(s.JSONPath)
	assert.NoError(t, err)
}

func TestSinkWriteSkipsJSONWhenUnset(t *testing.T) {
	dir := t.TempDir()
	s := &Sink{GTFSPath: filepath.Join(dir, "feed.pb")}
	c := &fact.Container{Timestamp: time.Unix(1717401600, 0)}

	require.NoError(t, s.Write(c))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSinkWriteRequiresGTFSPath(t *testing.T) {
	s := &Sink{}
	err := s.Write(&fact.Container{})
	assert.Error(t, err)
}
