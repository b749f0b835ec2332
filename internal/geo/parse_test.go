package geo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artylery/smash/pkg/core"
)

func TestParseDecimalPair(t *testing.T) {
	tests := []struct {
		name  string
		input string
		lat   float64
		lon   float64
	}{
		{name: "with parentheses", input: "(50.43709, 10.40787)", lat: 50.43709, lon: 10.40787},
		{name: "without parentheses", input: "50.43709,10.40787", lat: 50.43709, lon: 10.40787},
		{name: "extra whitespace", input: "  ( -33.8688 ,   151.2093 )  ", lat: -33.8688, lon: 151.2093},
		{name: "integers", input: "(0, 0)", lat: 0, lon: 0},
		{name: "signed", input: "(+12.5, -0.25)", lat: 12.5, lon: -0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseDecimalPair(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.lat, p.Latitude)
			assert.Equal(t, tt.lon, p.Longitude)
		})
	}
}

func TestParseDecimalPair_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  ParseErrorKind
	}{
		{name: "empty", input: "", kind: MalformedCount},
		{name: "single component", input: "(50.4)", kind: MalformedCount},
		{name: "three components", input: "(1, 2, 3)", kind: MalformedCount},
		{name: "letters", input: "abc, def", kind: InvalidNumber},
		{name: "second not numeric", input: "(50.4, east)", kind: InvalidNumber},
		{name: "empty component", input: "(50.4, )", kind: InvalidNumber},
		{name: "nan", input: "(NaN, 1)", kind: InvalidNumber},
		{name: "inf", input: "(1, Inf)", kind: InvalidNumber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseDecimalPair(tt.input)
			require.Error(t, err)
			assert.Equal(t, core.GeoPoint{}, p)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.kind, perr.Kind)
			assert.ErrorIs(t, err, ErrInvalidCoordinates)
		})
	}
}

func TestParseDecimalPair_RoundTrip(t *testing.T) {
	points := []core.GeoPoint{
		core.NewGeoPoint(50.43709, 10.40787),
		core.NewGeoPoint(-89.999999, 179.999999),
		core.NewGeoPoint(40.7128, -74.0060),
		core.NewGeoPoint(0.1+0.2, -0.3),
	}

	for _, want := range points {
		got, err := ParseDecimalPair(want.String())
		require.NoError(t, err)
		assert.InDelta(t, want.Latitude, got.Latitude, 1e-12)
		assert.InDelta(t, want.Longitude, got.Longitude, 1e-12)
	}
}

func TestParseCardinal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		lat   float64
		lon   float64
	}{
		{name: "plain words", input: "40.7128 north 74.0060 west", lat: 40.7128, lon: -74.0060},
		{name: "degree signs and commas", input: "(40.7128° north, 74.0060° west)", lat: 40.7128, lon: -74.0060},
		{name: "south east", input: "33.8688 south 151.2093 east", lat: -33.8688, lon: 151.2093},
		{name: "case insensitive", input: "10 NORTH 20 East", lat: 10, lon: 20},
		{name: "abbreviated", input: "10 s, 20 w", lat: -10, lon: -20},
		{name: "ukrainian markers", input: "50.45° пн, 30.52° сх", lat: 50.45, lon: 30.52},
		{name: "ukrainian south west", input: "50.45 пд 30.52 зх", lat: -50.45, lon: -30.52},
		{name: "tabs and newlines", input: "1\tnorth\n2\teast", lat: 1, lon: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseCardinal(tt.input)
			require.NoError(t, err)
			assert.InDelta(t, tt.lat, p.Latitude, 1e-12)
			assert.InDelta(t, tt.lon, p.Longitude, 1e-12)
		})
	}
}

func TestParseCardinal_SwappingMarkerNegatesAxis(t *testing.T) {
	north, err := ParseCardinal("40.7128 north 74.0060 west")
	require.NoError(t, err)
	south, err := ParseCardinal("40.7128 south 74.0060 west")
	require.NoError(t, err)
	east, err := ParseCardinal("40.7128 north 74.0060 east")
	require.NoError(t, err)

	assert.Equal(t, -north.Latitude, south.Latitude)
	assert.Equal(t, north.Longitude, south.Longitude)
	assert.Equal(t, -north.Longitude, east.Longitude)
	assert.Equal(t, north.Latitude, east.Latitude)
}

func TestParseCardinal_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  ParseErrorKind
		token string
	}{
		{name: "three tokens", input: "40.7128 north 74.0060", kind: MalformedCount},
		{name: "five tokens", input: "40 north 74 west extra", kind: MalformedCount},
		{name: "empty", input: "", kind: MalformedCount},
		{name: "non numeric latitude", input: "abc north 74 west", kind: InvalidNumber, token: "abc"},
		{name: "non numeric longitude", input: "40 north xyz west", kind: InvalidNumber, token: "xyz"},
		{name: "bad latitude marker", input: "40 east 74 west", kind: UnknownHemisphereMarker, token: "east"},
		{name: "bad longitude marker", input: "40 north 74 south", kind: UnknownHemisphereMarker, token: "south"},
		{name: "unknown word", input: "40 up 74 west", kind: UnknownHemisphereMarker, token: "up"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseCardinal(tt.input)
			require.Error(t, err)
			assert.Equal(t, core.GeoPoint{}, p)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.kind, perr.Kind)
			assert.Equal(t, tt.token, perr.Token)
		})
	}
}

func TestParseLatLonFields(t *testing.T) {
	p, err := ParseLatLonFields(" 50.45 ", "30.52")
	require.NoError(t, err)
	assert.Equal(t, core.NewGeoPoint(50.45, 30.52), p)

	_, err = ParseLatLonFields("50.45", "")
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, InvalidNumber, perr.Kind)
}

func TestParsersDoNotRejectOutOfRangeValues(t *testing.T) {
	p, err := ParseDecimalPair("(200, 500)")
	require.NoError(t, err)
	assert.False(t, p.InRange())

	err = Validate(p)
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, OutOfRange, perr.Kind)

	assert.NoError(t, Validate(core.NewGeoPoint(-90, 180)))
}

func TestParseError_Message(t *testing.T) {
	_, err := ParseCardinal("40 up 74 west")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown hemisphere marker")
	assert.Contains(t, err.Error(), `"up"`)
}
