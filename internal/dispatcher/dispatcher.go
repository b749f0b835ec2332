package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrTimeout is returned when a handler registered with Timeout gives up
// because its context deadline passed.
var ErrTimeout = errors.New("handler timed out")

// Event represents one console command.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// Text returns the arguments joined by single spaces.
func (e Event) Text() string {
	return strings.Join(e.Args, " ")
}

// ParseEvent splits a line of the form ":COMMAND: arg1 arg2" into an Event.
func ParseEvent(line string, now time.Time) (Event, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Event{}, errors.New("empty command")
	}
	cmd := strings.ToUpper(fields[0])
	if len(cmd) < 3 || !strings.HasPrefix(cmd, ":") || !strings.HasSuffix(cmd, ":") {
		return Event{}, fmt.Errorf("malformed command: %s", fields[0])
	}
	return Event{Command: cmd, Args: fields[1:], Timestamp: now}, nil
}

// HandlerFunc processes an event and returns a result. Blocking handlers
// must return once ctx is done.
type HandlerFunc func(ctx context.Context, e Event) (any, error)

// Logger interface for pluggable logging. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	timeout time.Duration
	logged  bool
}

// Timeout gives the handler a context that expires after d. A handler that
// fails once the deadline has passed is reported as ErrTimeout.
func Timeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger

	// OTEL metrics
	processed metric.Int64Counter
	failed    metric.Int64Counter
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}

	m := meter()

	var err error

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total events processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.failed, err = m.Int64Counter(
		"dispatcher.events.failed",
		metric.WithDescription("Total events whose handler returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given command with optional configuration.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := d.withMetrics(command, h)

	if cfg.timeout > 0 {
		handler = withTimeout(command, cfg.timeout, handler)
	}

	if cfg.logged {
		handler = d.withLogging(command, handler)
	}

	d.handlers[command] = handler
}

// Dispatch routes an event to its registered handler and returns once the
// handler has returned.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) (any, error) {
	h, ok := d.handlers[e.Command]
	if !ok {
		return nil, fmt.Errorf("unknown command: %s", e.Command)
	}
	return h(ctx, e)
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.handlers[command]
	return ok
}

// Commands returns the registered command names.
func (d *Dispatcher) Commands() []string {
	out := make([]string, 0, len(d.handlers))
	for cmd := range d.handlers {
		out = append(out, cmd)
	}
	return out
}

func (d *Dispatcher) withMetrics(command string, h HandlerFunc) HandlerFunc {
	cmdAttr := attribute.String("command", command)
	return func(ctx context.Context, e Event) (any, error) {
		result, err := h(ctx, e)
		d.processed.Add(ctx, 1, metric.WithAttributes(cmdAttr))
		if err != nil {
			d.failed.Add(ctx, 1, metric.WithAttributes(cmdAttr))
		}
		return result, err
	}
}

func withTimeout(command string, timeout time.Duration, h HandlerFunc) HandlerFunc {
	return func(ctx context.Context, e Event) (any, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		result, err := h(ctx, e)
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s: %w after %s: %w", command, ErrTimeout, timeout, err)
		}
		return result, err
	}
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(ctx context.Context, e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "command", command, "args", len(e.Args))

		result, err := h(ctx, e)

		if err != nil {
			d.logger.Error("event failed", "command", command, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "command", command, "duration", time.Since(start))
		}

		return result, err
	}
}
