package session

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artylery/smash/internal/geo"
	"github.com/artylery/smash/internal/logging"
	"github.com/artylery/smash/internal/overlay"
	"github.com/artylery/smash/internal/render/memory"
	"github.com/artylery/smash/internal/route"
	"github.com/artylery/smash/internal/targeting"
	"github.com/artylery/smash/pkg/core"
)

type routerFunc func(ctx context.Context, o, d core.GeoPoint, mode core.TransportMode) ([]core.GeoPoint, error)

func (f routerFunc) Route(ctx context.Context, o, d core.GeoPoint, mode core.TransportMode) ([]core.GeoPoint, error) {
	return f(ctx, o, d, mode)
}

func straight(_ context.Context, o, d core.GeoPoint, _ core.TransportMode) ([]core.GeoPoint, error) {
	return []core.GeoPoint{o, d}, nil
}

type fixture struct {
	ctrl     *Controller
	sink     *memory.Sink
	resolver *route.Resolver
}

func newFixture(t *testing.T, r route.Router, opts ...Option) fixture {
	t.Helper()
	if r == nil {
		r = routerFunc(straight)
	}
	sink := memory.New()
	res, err := route.NewResolver(r, &route.Tracker{}, sink, route.WithTimeout(time.Second))
	require.NoError(t, err)

	ctrl, err := New(targeting.NewEngine(targeting.DefaultParams()), targeting.NewPolicy(0, false), res, opts...)
	require.NoError(t, err)
	return fixture{ctrl: ctrl, sink: sink, resolver: res}
}

// Kyiv area points about 6.8 km apart.
var (
	kyivA = "(50.4501, 30.5234)"
	kyivB = "(50.4100, 30.4500)"
)

func TestCompute_Decimal(t *testing.T) {
	f := newFixture(t, nil)
	f.ctrl.SetOrigin(TextInput(kyivA))
	f.ctrl.SetTarget(TextInput(kyivB))

	shot, err := f.ctrl.Compute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Computed, f.ctrl.State())
	assert.InDelta(t, 6_849, shot.DistanceMeters, 5)
	assert.InDelta(t, 20+2*shot.DistanceMeters/1000, shot.DispersionRadiusMeters, 1e-9)

	got, ok := f.ctrl.Shot()
	assert.True(t, ok)
	assert.Equal(t, shot, got)

	// line mode: polyline + full + half circle
	prims := f.ctrl.Overlays()
	require.Len(t, prims, 3)
	assert.Equal(t, core.KindPolyline, prims[0].Kind)
	assert.Equal(t, prims, f.sink.Primitives())

	ops := f.sink.Ops()
	require.NotEmpty(t, ops)
	assert.True(t, ops[0].Clear)
}

func TestCompute_FormatsParseTheSamePoint(t *testing.T) {
	tests := []struct {
		name   string
		format InputFormat
		origin Input
	}{
		{"decimal", FormatDecimal, TextInput("(50.45, 30.52)")},
		{"cardinal", FormatCardinal, TextInput("50.45° N, 30.52° E")},
		{"cardinal ukrainian", FormatCardinal, TextInput("50.45 пн 30.52 сх")},
		{"fields", FormatFields, FieldInput("50.45", "30.52")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, WithInputFormat(tt.format))
			f.ctrl.SetOrigin(tt.origin)
			if tt.format == FormatFields {
				f.ctrl.SetTarget(FieldInput("50.41", "30.45"))
			} else {
				f.ctrl.SetTarget(locationInput(core.NewGeoPoint(50.41, 30.45), tt.format))
			}

			shot, err := f.ctrl.Compute(context.Background())
			require.NoError(t, err)
			assert.Equal(t, core.NewGeoPoint(50.45, 30.52), shot.Origin)
			assert.Equal(t, core.NewGeoPoint(50.41, 30.45), shot.Target)
		})
	}
}

func TestCompute_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		target  string
		check   func(t *testing.T, err error)
		message string
	}{
		{
			name:   "empty origin",
			origin: "  ",
			target: kyivB,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrEmptyInput)
			},
			message: MsgInvalidCoordinates,
		},
		{
			name:   "malformed target",
			origin: kyivA,
			target: "(50.1)",
			check: func(t *testing.T, err error) {
				var pe *geo.ParseError
				require.True(t, errors.As(err, &pe))
				assert.Equal(t, geo.MalformedCount, pe.Kind)
			},
			message: MsgInvalidCoordinates,
		},
		{
			name:   "latitude out of range",
			origin: "(91, 30)",
			target: kyivB,
			check: func(t *testing.T, err error) {
				var pe *geo.ParseError
				require.True(t, errors.As(err, &pe))
				assert.Equal(t, geo.OutOfRange, pe.Kind)
			},
			message: MsgInvalidCoordinates,
		},
		{
			name:   "beyond max range",
			origin: kyivA,
			target: "(49.8397, 24.0297)", // Lviv
			check: func(t *testing.T, err error) {
				var re *targeting.RejectionError
				require.True(t, errors.As(err, &re))
				assert.Equal(t, targeting.OutOfRange, re.Reason)
			},
			message: MsgOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.ctrl.SetOrigin(TextInput(kyivA))
			f.ctrl.SetTarget(TextInput(kyivB))
			_, err := f.ctrl.Compute(context.Background())
			require.NoError(t, err)
			require.NotZero(t, f.sink.Len())

			f.ctrl.SetOrigin(TextInput(tt.origin))
			f.ctrl.SetTarget(TextInput(tt.target))
			_, err = f.ctrl.Compute(context.Background())
			require.Error(t, err)
			tt.check(t, err)

			assert.Equal(t, Rejected, f.ctrl.State())
			assert.Equal(t, tt.message, UserMessage(err))
			assert.Equal(t, tt.message, f.ctrl.Snapshot().Message())
			assert.Nil(t, f.ctrl.Overlays())
			_, ok := f.ctrl.Shot()
			assert.False(t, ok)
			// previous overlays were cleared
			assert.Zero(t, f.sink.Len())
		})
	}
}

func TestToggleUnlimited_AllowsLongShots(t *testing.T) {
	f := newFixture(t, nil)
	f.ctrl.SetOrigin(TextInput(kyivA))
	f.ctrl.SetTarget(TextInput("(49.8397, 24.0297)"))

	_, err := f.ctrl.Compute(context.Background())
	require.Error(t, err)

	assert.True(t, f.ctrl.ToggleUnlimited())
	assert.Equal(t, Idle, f.ctrl.State())

	shot, err := f.ctrl.Compute(context.Background())
	require.NoError(t, err)
	assert.Greater(t, shot.DistanceMeters, 400_000.0)

	assert.False(t, f.ctrl.ToggleUnlimited())
}

func TestInputEditReturnsToIdle(t *testing.T) {
	f := newFixture(t, nil)
	f.ctrl.SetOrigin(TextInput(kyivA))
	f.ctrl.SetTarget(TextInput(kyivB))
	_, err := f.ctrl.Compute(context.Background())
	require.NoError(t, err)

	edits := []func(){
		func() { f.ctrl.SetTarget(TextInput(kyivA)) },
		func() { f.ctrl.SetMode(core.ModeBoth) },
		func() { f.ctrl.SetAnnotateEveryPoint(true) },
		func() { f.ctrl.SetInputFormat(FormatDecimal) },
	}
	for _, edit := range edits {
		_, err := f.ctrl.Compute(context.Background())
		require.NoError(t, err)
		require.Equal(t, Computed, f.ctrl.State())

		require.NotZero(t, f.sink.Len())

		edit()
		assert.Equal(t, Idle, f.ctrl.State())
		_, ok := f.ctrl.Shot()
		assert.False(t, ok)
		assert.Empty(t, f.ctrl.Overlays())
		assert.Zero(t, f.sink.Len(), "edit must erase the previous overlays")
	}
}

func TestCompute_RouteModeDeliversRoute(t *testing.T) {
	f := newFixture(t, nil, WithOverlayOptions(overlay.Options{Mode: core.ModeBoth}))
	f.ctrl.SetOrigin(TextInput(kyivA))
	f.ctrl.SetTarget(TextInput(kyivB))

	_, err := f.ctrl.Compute(context.Background())
	require.NoError(t, err)
	f.resolver.Wait()

	var kinds []core.PrimitiveKind
	var routeLines int
	for _, p := range f.sink.Primitives() {
		kinds = append(kinds, p.Kind)
		if p.Kind == core.KindPolyline && p.Role == core.RoleRoute {
			routeLines++
		}
	}
	assert.Contains(t, kinds, core.KindPendingRoute)
	assert.Equal(t, 1, routeLines)
}

func TestCompute_EditDuringRouteDropsResult(t *testing.T) {
	release := make(chan struct{})
	f := newFixture(t, routerFunc(func(ctx context.Context, o, d core.GeoPoint, mode core.TransportMode) ([]core.GeoPoint, error) {
		<-release
		return straight(ctx, o, d, mode)
	}), WithOverlayOptions(overlay.Options{Mode: core.ModeRoute}))

	f.ctrl.SetOrigin(TextInput(kyivA))
	f.ctrl.SetTarget(TextInput(kyivB))
	_, err := f.ctrl.Compute(context.Background())
	require.NoError(t, err)

	f.ctrl.SetTarget(TextInput(kyivA))
	close(release)
	f.resolver.Wait()

	for _, p := range f.sink.Primitives() {
		if p.Kind == core.KindPolyline {
			assert.NotEqual(t, core.RoleRoute, p.Role)
		}
	}
}

func TestCompute_CallerCancellationDoesNotCancelRoute(t *testing.T) {
	f := newFixture(t, nil, WithOverlayOptions(overlay.Options{Mode: core.ModeRoute}))
	f.ctrl.SetOrigin(TextInput(kyivA))
	f.ctrl.SetTarget(TextInput(kyivB))

	ctx, cancel := context.WithCancel(context.Background())
	_, err := f.ctrl.Compute(ctx)
	cancel()
	require.NoError(t, err)
	f.resolver.Wait()

	assert.Equal(t, 2, f.sink.Len())
}

func TestUseCurrentLocation(t *testing.T) {
	fix := core.NewGeoPoint(50.45, -30.5)

	tests := []struct {
		name   string
		format InputFormat
		want   Input
	}{
		{"decimal", FormatDecimal, TextInput("(50.45, -30.5)")},
		{"cardinal", FormatCardinal, TextInput("50.45° N, 30.5° W")},
		{"fields", FormatFields, FieldInput("50.45", "-30.5")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil, WithInputFormat(tt.format), WithLocation(StaticLocation{Point: fix}))

			p, err := f.ctrl.UseCurrentLocation(context.Background())
			require.NoError(t, err)
			assert.Equal(t, fix, p)
			assert.Equal(t, tt.want, f.ctrl.Snapshot().Origin)

			// the prefilled text parses back to the fix
			parsed, err := f.ctrl.parse(f.ctrl.Snapshot().Origin)
			require.NoError(t, err)
			assert.Equal(t, fix, parsed)
		})
	}
}

func TestUseCurrentLocation_NoFix(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.ctrl.UseCurrentLocation(context.Background())
	require.ErrorIs(t, err, ErrNoLocation)
	assert.Equal(t, MsgNoLocation, UserMessage(err))
}

type failingLocation struct{}

func (failingLocation) CurrentLocation(context.Context) (core.GeoPoint, error) {
	return core.GeoPoint{}, errors.New("permission denied")
}

func TestUseCurrentLocation_ProviderErrorIsWrapped(t *testing.T) {
	f := newFixture(t, nil, WithLocation(failingLocation{}))
	_, err := f.ctrl.UseCurrentLocation(context.Background())
	require.ErrorIs(t, err, ErrNoLocation)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, MsgUnknown, UserMessage(errors.New("boom")))
	assert.Equal(t, route.UserMessage, UserMessage(&route.Error{Kind: route.Timeout}))
}

func TestParseInputFormat(t *testing.T) {
	for _, f := range []InputFormat{FormatDecimal, FormatCardinal, FormatFields} {
		got, err := ParseInputFormat(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	got, err := ParseInputFormat("Custom")
	require.NoError(t, err)
	assert.Equal(t, FormatFields, got)

	_, err = ParseInputFormat("utm")
	assert.Error(t, err)
}

func TestLogAttrsDoNotDeadlock(t *testing.T) {
	var buf bytes.Buffer
	var ctrl *Controller
	handler := logging.NewContextHandler(slog.NewTextHandler(&buf, nil), func() []slog.Attr {
		return ctrl.LogAttrs()
	})

	f := newFixture(t, nil, WithLogger(slog.New(handler)), WithInputFormat(FormatCardinal))
	ctrl = f.ctrl
	f.ctrl.SetOrigin(TextInput("50.45 N 30.52 E"))
	f.ctrl.SetTarget(TextInput("50.41 N 30.45 E"))

	_, err := f.ctrl.Compute(context.Background())
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.Contains(out, "session.state=computed"), out)
	assert.Contains(t, out, "session.format=cardinal")
}
