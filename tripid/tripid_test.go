package tripid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRealtime(t *testing.T) {
	for _, tc := range []struct {
		name      string
		input     string
		route     string
		direction *Direction
		network   *string
		origin    int
		pathID    string
	}{
		{"route_1_north", "036000_1..N", "1", ptr(North), nil, 36000, "1..N"},
		{"route_GS_south_network", "000650_GS.S05R", "GS", ptr(South), sptr("05R"), 650, "GS.S"},
		{"no_direction_no_network", "012345_7....", "7", nil, nil, 12345, "7.."},
	} {
		t.Run(tc.name, func(t *testing.T) {
			id, err := ParseRealtime(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.route, id.RouteID)
			assert.Equal(t, tc.origin, id.OriginDepartureTime)
			assert.Equal(t, tc.pathID, id.PathID)
			if tc.direction == nil {
				assert.Nil(t, id.Direction)
			} else {
				require.NotNil(t, id.Direction)
				assert.Equal(t, *tc.direction, *id.Direction)
			}
			if tc.network == nil {
				assert.Nil(t, id.NetworkID)
			} else {
				require.NotNil(t, id.NetworkID)
				assert.Equal(t, *tc.network, *id.NetworkID)
			}
		})
	}
}

func TestParseRealtimeBad(t *testing.T) {
	_, err := ParseRealtime("not a trip id")
	require.Error(t, err)
	var badID ErrBadTripId
	assert.ErrorAs(t, err, &badID)
}

func TestStringCanonicalForm(t *testing.T) {
	// String renders OriginDepartureTime and PathID only, so a network
	// suffix does not appear in the canonical form.
	for _, tc := range []struct{ in, want string }{
		{"036000_1..N", "036000_1..N"},
		{"000650_GS.S05R", "000650_GS.S"},
		{"-00500_7..N", "-00500_7..N"},
	} {
		id, err := ParseRealtime(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, id.String())
	}
}

func TestStaticGrammarParsesScheduleIDs(t *testing.T) {
	_, err := ParseStatic("1..N")
	require.NoError(t, err)
	_, err = ParseStatic("GS.S05R")
	require.NoError(t, err)
}

func TestLooseStrictMatch(t *testing.T) {
	a, err := ParseRealtime("036000_1..N05R")
	require.NoError(t, err)
	b, err := ParseRealtime("036000_1..N05R")
	require.NoError(t, err)
	assert.True(t, a.LooseMatch(b))
	assert.True(t, a.StrictMatch(b))

	// strict match requires non-null network on both sides
	c, err := ParseRealtime("036000_1..N")
	require.NoError(t, err)
	assert.True(t, a.LooseMatch(c))
	assert.False(t, a.StrictMatch(c))
	assert.False(t, c.StrictMatch(c))

	// strictMatch implies looseMatch
	assert.True(t, !a.StrictMatch(c) || a.LooseMatch(c))
}

func TestRelativeToPreviousDay(t *testing.T) {
	id, err := ParseRealtime("050000_1..N")
	require.NoError(t, err)
	require.Equal(t, 50000, id.OriginDepartureTime)
	shifted := id.RelativeToPreviousDay()
	assert.Equal(t, 194000, shifted.OriginDepartureTime)
}

func TestFromDescriptorRouteOverrideAndReversal(t *testing.T) {
	d := Descriptor{TripID: "036000_1..N", RouteID: "D"}
	id, err := FromDescriptor(d, nil, map[string]bool{"D": true})
	require.NoError(t, err)
	assert.Equal(t, "D", id.RouteID)
	require.NotNil(t, id.Direction)
	assert.Equal(t, South, *id.Direction)
}

func TestFromDescriptorFlushingFallback(t *testing.T) {
	d := Descriptor{TripID: "036000_7...", TrainID: "whatever"}
	infer := func(string) (Direction, bool) { return North, true }
	id, err := FromDescriptor(d, infer, nil)
	require.NoError(t, err)
	require.NotNil(t, id.Direction)
	assert.Equal(t, North, *id.Direction)
}

type fakeRoute string

func (r fakeRoute) RouteID() string { return string(r) }

func TestFromScheduledTripRouteOverride(t *testing.T) {
	id, err := FromScheduledTrip("036000_N..N", fakeRoute("W"))
	require.NoError(t, err)
	assert.Equal(t, "W", id.RouteID)
	assert.Equal(t, "W..N", id.PathID)
}

func ptr[T any](v T) *T   { return &v }
func sptr(s string) *string { return &s }
