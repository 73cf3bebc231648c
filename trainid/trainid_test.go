package trainid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	id, err := Parse("TSQ/MST")
	require.NoError(t, err)
	assert.Equal(t, "TSQ", id.Origin)
	assert.Equal(t, "MST", id.Destination)
}

func TestParseBad(t *testing.T) {
	_, err := Parse("garbage")
	require.Error(t, err)
}

func TestParseStopWithDash(t *testing.T) {
	id, err := Parse("G-C/TSQ")
	require.NoError(t, err)
	assert.Equal(t, "G-C", id.Origin)
	assert.Equal(t, "TSQ", id.Destination)

	id, err = Parse("TSQ/G-C")
	require.NoError(t, err)
	assert.Equal(t, "TSQ", id.Origin)
	assert.Equal(t, "G-C", id.Destination)
}

func TestInferFlushingDirection(t *testing.T) {
	// TSQ (index 20) -> MST (index 0): origin is further south, heading north.
	dir, ok := InferFlushingDirection("TSQ/MST")
	require.True(t, ok)
	assert.Equal(t, "N", dir)

	// swap origin/destination: heading south.
	dir, ok = InferFlushingDirection("MST/TSQ")
	require.True(t, ok)
	assert.Equal(t, "S", dir)
}

func TestInferFlushingDirectionGrandCentralEndpoint(t *testing.T) {
	// G-C (index 18) -> TSQ (index 20): origin is further north, heading south.
	dir, ok := InferFlushingDirection("G-C/TSQ")
	require.True(t, ok)
	assert.Equal(t, "S", dir)

	dir, ok = InferFlushingDirection("TSQ/G-C")
	require.True(t, ok)
	assert.Equal(t, "N", dir)
}

func TestInferFlushingDirectionOriginEqualsDestination(t *testing.T) {
	_, ok := InferFlushingDirection("TSQ/TSQ")
	assert.False(t, ok)
}

func TestInferFlushingDirectionUnknownStop(t *testing.T) {
	_, ok := InferFlushingDirection("TSQ/ZZZ")
	assert.False(t, ok)
}

func TestInferFlushingDirectionBadTrainID(t *testing.T) {
	_, ok := InferFlushingDirection("not a train id")
	assert.False(t, ok)
}

func TestSetFlushingStopsOverride(t *testing.T) {
	t.Cleanup(func() { SetFlushingStops(nil) })
	SetFlushingStops([]string{"A", "B"})
	dir, ok := InferFlushingDirection("B/A")
	require.True(t, ok)
	assert.Equal(t, "N", dir)
}
