package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/artylery/smash/internal/geo"
	"github.com/artylery/smash/internal/overlay"
	"github.com/artylery/smash/internal/route"
	"github.com/artylery/smash/internal/targeting"
	"github.com/artylery/smash/pkg/core"
)

// Option configures a Controller.
type Option func(*Controller)

// WithLocation sets the location provider used by UseCurrentLocation.
func WithLocation(p LocationProvider) Option {
	return func(c *Controller) {
		if p != nil {
			c.location = p
		}
	}
}

// WithLogger sets the controller's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithOverlayOptions sets the initial visualization mode and annotate flag.
func WithOverlayOptions(opts overlay.Options) Option {
	return func(c *Controller) {
		c.overlayOpts = opts
	}
}

// WithInputFormat sets the initial input format.
func WithInputFormat(f InputFormat) Option {
	return func(c *Controller) {
		c.format = f
	}
}

// Controller drives one targeting session. All methods are safe for
// concurrent use; input edits take effect synchronously.
type Controller struct {
	mu sync.RWMutex

	format      InputFormat
	origin      Input
	target      Input
	overlayOpts overlay.Options

	state    State
	shot     core.ShotInfo
	overlays []core.Primitive
	lastErr  error

	engine   *targeting.Engine
	policy   *targeting.Policy
	builder  *overlay.Builder
	resolver *route.Resolver
	location LocationProvider
	logger   *slog.Logger

	// Mirrors of state and format readable without c.mu, so log records
	// emitted while it is held can still carry them.
	stateView  atomic.Int32
	formatView atomic.Int32

	computations metric.Int64Counter
}

// New creates a controller. The resolver owns the sink and its tracker
// issues route request IDs for the overlay builder.
func New(engine *targeting.Engine, policy *targeting.Policy, resolver *route.Resolver, opts ...Option) (*Controller, error) {
	c := &Controller{
		engine:   engine,
		policy:   policy,
		resolver: resolver,
		builder:  overlay.NewBuilder(resolver.Tracker()),
		location: NoLocation{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.formatView.Store(int32(c.format))

	var err error
	c.computations, err = meter().Int64Counter(
		"session.computations",
		metric.WithDescription("Shot computations by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating computations counter: %w", err)
	}

	return c, nil
}

// invalidate drops the current result, makes pending routes stale and
// erases whatever the last computation drew. Caller must hold c.mu.
func (c *Controller) invalidate() {
	drawn := c.state == Computed
	c.setState(Idle)
	c.shot = core.ShotInfo{}
	c.overlays = nil
	c.lastErr = nil
	if !drawn {
		c.resolver.Tracker().Invalidate()
		return
	}
	if err := c.resolver.Clear(); err != nil {
		c.logger.Error("failed to clear overlays", "error", err)
	}
}

// setState records s. Caller must hold c.mu.
func (c *Controller) setState(s State) {
	c.state = s
	c.stateView.Store(int32(s))
}

// SetInputFormat switches the parser used for both inputs.
func (c *Controller) SetInputFormat(f InputFormat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.format = f
	c.formatView.Store(int32(f))
	c.invalidate()
}

// SetOrigin replaces the origin ("you") input.
func (c *Controller) SetOrigin(in Input) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.origin = in
	c.invalidate()
}

// SetTarget replaces the target input.
func (c *Controller) SetTarget(in Input) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = in
	c.invalidate()
}

// SetMode changes the visualization mode used by the next Compute.
func (c *Controller) SetMode(m core.VisualizationMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overlayOpts.Mode = m
	c.invalidate()
}

// SetAnnotateEveryPoint changes where dispersion circles are drawn.
func (c *Controller) SetAnnotateEveryPoint(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overlayOpts.AnnotateEveryPoint = v
	c.invalidate()
}

// ToggleUnlimited flips the range cap and returns the new unlimited flag.
func (c *Controller) ToggleUnlimited() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.policy.ToggleUnlimited()
	c.invalidate()
	return v
}

// UseCurrentLocation fills the origin input from the location provider,
// formatted for the current input format.
func (c *Controller) UseCurrentLocation(ctx context.Context) (core.GeoPoint, error) {
	p, err := c.location.CurrentLocation(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoLocation) {
			err = fmt.Errorf("%w: %w", ErrNoLocation, err)
		}
		return core.GeoPoint{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.origin = locationInput(p, c.format)
	c.invalidate()
	c.logger.Debug("origin set from location", "point", p.String())
	return p, nil
}

// Compute parses both inputs, range-gates the pair and publishes the
// overlays. On any failure the session is Rejected and the sink is cleared.
func (c *Controller) Compute(ctx context.Context) (core.ShotInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setState(Computing)

	shot, prims, err := c.compute()
	if err != nil {
		c.reject(ctx, err)
		return core.ShotInfo{}, err
	}

	// Route requests outlive the caller's context; the resolver applies its own timeout.
	if err := c.resolver.Publish(context.WithoutCancel(ctx), prims); err != nil {
		c.reject(ctx, err)
		return core.ShotInfo{}, err
	}

	c.setState(Computed)
	c.shot = shot
	c.overlays = prims
	c.lastErr = nil
	c.computations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "computed")))

	summary := shot.Summary()
	c.logger.Info("shot computed",
		"origin", shot.Origin.String(),
		"target", shot.Target.String(),
		"distance", summary.DistanceMeters,
		"spread", summary.SpreadMeters,
		"primitives", len(prims))
	return shot, nil
}

func (c *Controller) compute() (core.ShotInfo, []core.Primitive, error) {
	origin, err := c.parse(c.origin)
	if err != nil {
		return core.ShotInfo{}, nil, fmt.Errorf("origin: %w", err)
	}
	target, err := c.parse(c.target)
	if err != nil {
		return core.ShotInfo{}, nil, fmt.Errorf("target: %w", err)
	}

	shot, err := c.engine.Compute(origin, target, c.policy)
	if err != nil {
		return core.ShotInfo{}, nil, err
	}

	prims := c.builder.Build(shot, []core.GeoPoint{origin, target}, c.overlayOpts)
	return shot, prims, nil
}

func (c *Controller) parse(in Input) (core.GeoPoint, error) {
	if in.empty(c.format) {
		return core.GeoPoint{}, ErrEmptyInput
	}

	var (
		p   core.GeoPoint
		err error
	)
	switch c.format {
	case FormatCardinal:
		p, err = geo.ParseCardinal(in.Text)
	case FormatFields:
		p, err = geo.ParseLatLonFields(in.Lat, in.Lon)
	default:
		p, err = geo.ParseDecimalPair(in.Text)
	}
	if err != nil {
		return core.GeoPoint{}, err
	}
	if err := geo.Validate(p); err != nil {
		return core.GeoPoint{}, err
	}
	return p, nil
}

// reject records a failed computation. Caller must hold c.mu.
func (c *Controller) reject(ctx context.Context, err error) {
	c.setState(Rejected)
	c.shot = core.ShotInfo{}
	c.overlays = nil
	c.lastErr = err
	c.computations.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "rejected")))

	if clearErr := c.resolver.Clear(); clearErr != nil {
		c.logger.Error("failed to clear overlays", "error", clearErr)
	}
	c.logger.Info("shot rejected", "error", err, "message", UserMessage(err))
}

// State returns the current computation state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Shot returns the last computed shot. ok is false unless the state is Computed.
func (c *Controller) Shot() (shot core.ShotInfo, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.shot, c.state == Computed
}

// Overlays returns a copy of the primitives published by the last
// successful computation.
func (c *Controller) Overlays() []core.Primitive {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != Computed {
		return nil
	}
	out := make([]core.Primitive, len(c.overlays))
	copy(out, c.overlays)
	return out
}

// Snapshot is a point-in-time view of the session.
type Snapshot struct {
	State     State
	Format    InputFormat
	Mode      core.VisualizationMode
	Annotate  bool
	Unlimited bool
	Origin    Input
	Target    Input
	Shot      core.ShotInfo
	Err       error
}

// Message returns the user-facing message for the last failure, if any.
func (s Snapshot) Message() string {
	return UserMessage(s.Err)
}

// Snapshot returns the current session view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		State:     c.state,
		Format:    c.format,
		Mode:      c.overlayOpts.Mode,
		Annotate:  c.overlayOpts.AnnotateEveryPoint,
		Unlimited: c.policy.Unlimited(),
		Origin:    c.origin,
		Target:    c.target,
		Shot:      c.shot,
		Err:       c.lastErr,
	}
}

// LogAttrs returns session attributes for logging.ContextHandler. It does not
// take c.mu and may be called from inside any controller method.
func (c *Controller) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("session.state", State(c.stateView.Load()).String()),
		slog.String("session.format", InputFormat(c.formatView.Load()).String()),
		slog.Bool("session.unlimited", c.policy.Unlimited()),
	}
}
