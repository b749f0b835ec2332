package route

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/artylery/smash/internal/render"
	"github.com/artylery/smash/pkg/core"
)

// DefaultTimeout bounds a single route request.
const DefaultTimeout = 10 * time.Second

// ErrorFunc is called when the current route request fails. Failures of
// stale requests are not reported.
type ErrorFunc func(id uint64, err *Error)

// Option configures a Resolver.
type Option func(*Resolver)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithTransport sets the transport mode passed to the router.
func WithTransport(mode core.TransportMode) Option {
	return func(r *Resolver) {
		r.mode = mode
	}
}

// WithLogger sets the resolver's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// OnError registers a callback for failures of the current request.
func OnError(fn ErrorFunc) Option {
	return func(r *Resolver) {
		r.onError = fn
	}
}

// Resolver owns the overlay sink. Every write to the sink goes through it so
// a late route result can never land on top of a newer overlay set.
type Resolver struct {
	router  Router
	tracker *Tracker
	sink    render.Sink
	timeout time.Duration
	mode    core.TransportMode
	logger  *slog.Logger
	onError ErrorFunc

	mu sync.Mutex // serializes sink writes
	wg sync.WaitGroup

	resolved metric.Int64Counter
	stale    metric.Int64Counter
	failed   metric.Int64Counter
}

// NewResolver creates a resolver. Uses the global OTel meter for metrics.
func NewResolver(router Router, tracker *Tracker, sink render.Sink, opts ...Option) (*Resolver, error) {
	r := &Resolver{
		router:  router,
		tracker: tracker,
		sink:    sink,
		timeout: DefaultTimeout,
		mode:    core.TransportAutomobile,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	m := meter()
	var err error

	r.resolved, err = m.Int64Counter(
		"route.requests.resolved",
		metric.WithDescription("Route results delivered to the sink"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resolved counter: %w", err)
	}

	r.stale, err = m.Int64Counter(
		"route.requests.stale",
		metric.WithDescription("Route results discarded because a newer request exists"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stale counter: %w", err)
	}

	r.failed, err = m.Int64Counter(
		"route.requests.failed",
		metric.WithDescription("Route requests that failed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	return r, nil
}

// Tracker returns the request tracker, which also serves as the overlay
// builder's ID source.
func (r *Resolver) Tracker() *Tracker {
	return r.tracker
}

// Publish replaces the sink contents with prims and starts resolving every
// pending route among them.
func (r *Resolver) Publish(ctx context.Context, prims []core.Primitive) error {
	r.mu.Lock()
	err := render.Apply(r.sink, prims)
	r.mu.Unlock()
	if err != nil {
		return err
	}

	for _, p := range prims {
		if p.Kind == core.KindPendingRoute {
			r.Resolve(ctx, p)
		}
	}
	return nil
}

// Clear invalidates outstanding requests and empties the sink.
func (r *Resolver) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracker.Invalidate()
	return r.sink.Clear()
}

// Resolve starts an asynchronous request for a pending route primitive.
func (r *Resolver) Resolve(ctx context.Context, p core.Primitive) {
	if p.Kind != core.KindPendingRoute {
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.resolve(ctx, p)
	}()
}

// Wait blocks until every started request has finished.
func (r *Resolver) Wait() {
	r.wg.Wait()
}

func (r *Resolver) resolve(ctx context.Context, p core.Primitive) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	idAttr := attribute.Int64("request_id", int64(p.RequestID))

	points, err := r.router.Route(ctx, p.Origin, p.Destination, r.mode)
	if err == nil && len(points) < 2 {
		err = &Error{Kind: NoRoute}
	}
	if err != nil {
		rerr := Classify(err)
		r.failed.Add(ctx, 1, metric.WithAttributes(idAttr, attribute.String("kind", rerr.Kind.String())))
		if !r.tracker.IsCurrent(p.RequestID) {
			r.logger.Debug("stale route request failed", "id", p.RequestID, "error", rerr)
			return
		}
		r.logger.Warn("route request failed", "id", p.RequestID, "error", rerr)
		if r.onError != nil {
			r.onError(p.RequestID, rerr)
		}
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.tracker.IsCurrent(p.RequestID) {
		r.stale.Add(ctx, 1, metric.WithAttributes(idAttr))
		r.logger.Debug("dropping stale route", "id", p.RequestID, "current", r.tracker.Current())
		return
	}

	if err := r.sink.Add(core.NewPolyline(core.RoleRoute, core.LayerRoute, points)); err != nil {
		r.logger.Error("failed to add route overlay", "id", p.RequestID, "error", err)
		return
	}
	r.resolved.Add(ctx, 1, metric.WithAttributes(idAttr))
	r.logger.Debug("route delivered", "id", p.RequestID, "points", len(points))
}
