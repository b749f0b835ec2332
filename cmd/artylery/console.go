package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/artylery/smash/internal/dispatcher"
	"github.com/artylery/smash/internal/geo"
	intOtel "github.com/artylery/smash/internal/otel"
	"github.com/artylery/smash/internal/render/memory"
	"github.com/artylery/smash/internal/session"
	"github.com/artylery/smash/internal/targeting"
	"github.com/artylery/smash/pkg/core"
)

// defaultLocateTimeout bounds waiting for a location fix.
const defaultLocateTimeout = 5 * time.Second

// console maps command lines onto the session controller.
type console struct {
	ctx      context.Context
	ctrl     *session.Controller
	mirror   *memory.Sink
	otel     *intOtel.Provider
	segments int
	out      io.Writer
	d        *dispatcher.Dispatcher

	locateTimeout time.Duration
}

func newConsole(ctx context.Context, ctrl *session.Controller, mirror *memory.Sink, provider *intOtel.Provider,
	segments int, out io.Writer, logger dispatcher.Logger,
) (*console, error) {
	d, err := dispatcher.New(logger)
	if err != nil {
		return nil, err
	}
	c := &console{
		ctx:      ctx,
		ctrl:     ctrl,
		mirror:   mirror,
		otel:     provider,
		segments: segments,
		out:      out,
		d:        d,

		locateTimeout: defaultLocateTimeout,
	}
	c.register()
	return c, nil
}

func (c *console) register() {
	c.d.Register(":ORIGIN:", c.handleInput(c.ctrl.SetOrigin), dispatcher.Logged())
	c.d.Register(":TARGET:", c.handleInput(c.ctrl.SetTarget), dispatcher.Logged())
	c.d.Register(":FORMAT:", c.handleFormat, dispatcher.Logged())
	c.d.Register(":MODE:", c.handleMode, dispatcher.Logged())
	c.d.Register(":ANNOTATE:", c.handleAnnotate, dispatcher.Logged())
	c.d.Register(":UNLIMITED:", c.handleUnlimited, dispatcher.Logged())
	c.d.Register(":LOCATE:", c.handleLocate, dispatcher.Logged(), dispatcher.Timeout(c.locateTimeout))
	// Compute never blocks; route resolution runs under the resolver's own timeout.
	c.d.Register(":COMPUTE:", c.handleCompute, dispatcher.Logged())
	c.d.Register(":STATUS:", c.handleStatus)
	c.d.Register(":GEOJSON:", c.handleGeoJSON)
	c.d.Register(":HELP:", c.handleHelp)
}

// run reads commands until EOF, ":QUIT:" or context cancellation.
func (c *console) run(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if c.ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, ":QUIT:") {
			return nil
		}
		c.exec(line)
	}
	return scanner.Err()
}

// exec runs one command line and prints its result or user-facing error.
func (c *console) exec(line string) {
	e, err := dispatcher.ParseEvent(line, time.Now())
	if err != nil {
		fmt.Fprintf(c.out, "error: %v\n", err)
		return
	}
	result, err := c.d.Dispatch(c.ctx, e)
	if err != nil {
		fmt.Fprintf(c.out, "error: %s\n", c.describe(err))
		return
	}
	if result != nil {
		fmt.Fprintln(c.out, result)
	}
}

func (c *console) describe(err error) string {
	if msg := session.UserMessage(err); msg != session.MsgUnknown {
		return msg
	}
	if errors.Is(err, dispatcher.ErrTimeout) {
		return session.MsgUnknown
	}
	return err.Error()
}

func (c *console) handleInput(set func(session.Input)) dispatcher.HandlerFunc {
	return func(_ context.Context, e dispatcher.Event) (any, error) {
		if c.ctrl.Snapshot().Format == session.FormatFields {
			if len(e.Args) != 2 {
				return nil, fmt.Errorf("%w: expected latitude and longitude", session.ErrEmptyInput)
			}
			set(session.FieldInput(e.Args[0], e.Args[1]))
			return "ok", nil
		}
		set(session.TextInput(e.Text()))
		return "ok", nil
	}
}

func (c *console) handleFormat(_ context.Context, e dispatcher.Event) (any, error) {
	f, err := session.ParseInputFormat(e.Text())
	if err != nil {
		return nil, err
	}
	c.ctrl.SetInputFormat(f)
	return "format: " + f.String(), nil
}

func (c *console) handleMode(_ context.Context, e dispatcher.Event) (any, error) {
	m, err := core.ParseVisualizationMode(strings.ToLower(e.Text()))
	if err != nil {
		return nil, err
	}
	c.ctrl.SetMode(m)
	return "mode: " + m.String(), nil
}

func (c *console) handleAnnotate(_ context.Context, e dispatcher.Event) (any, error) {
	switch strings.ToLower(e.Text()) {
	case "on":
		c.ctrl.SetAnnotateEveryPoint(true)
	case "off":
		c.ctrl.SetAnnotateEveryPoint(false)
	default:
		return nil, fmt.Errorf("expected on or off, got %q", e.Text())
	}
	return "annotate: " + strings.ToLower(e.Text()), nil
}

func (c *console) handleUnlimited(context.Context, dispatcher.Event) (any, error) {
	return "unlimited: " + onOff(c.ctrl.ToggleUnlimited()), nil
}

func (c *console) handleLocate(ctx context.Context, _ dispatcher.Event) (any, error) {
	p, err := c.ctrl.UseCurrentLocation(ctx)
	if err != nil {
		return nil, err
	}
	return "origin: " + p.String(), nil
}

func (c *console) handleCompute(ctx context.Context, _ dispatcher.Event) (any, error) {
	shot, err := c.ctrl.Compute(ctx)
	if err != nil {
		return nil, err
	}
	return formatShot(shot), nil
}

func formatShot(shot core.ShotInfo) string {
	s := shot.Summary()
	var b strings.Builder
	fmt.Fprintf(&b, "distance: %d m\nspread: %d m", s.DistanceMeters, s.SpreadMeters)
	if _, err := targeting.ApexHeight(shot); errors.Is(err, targeting.ErrNotComputed) {
		b.WriteString("\napex height: n/a\nflight time: n/a")
	}
	return b.String()
}

func (c *console) handleStatus(context.Context, dispatcher.Event) (any, error) {
	s := c.ctrl.Snapshot()
	var b strings.Builder
	fmt.Fprintf(&b, "state: %s\n", s.State)
	fmt.Fprintf(&b, "format: %s\n", s.Format)
	fmt.Fprintf(&b, "mode: %s\n", s.Mode)
	fmt.Fprintf(&b, "annotate: %s\n", onOff(s.Annotate))
	fmt.Fprintf(&b, "unlimited: %s\n", onOff(s.Unlimited))
	fmt.Fprintf(&b, "overlays: %d", c.mirror.Len())
	if s.State == session.Computed {
		fmt.Fprintf(&b, "\n%s", formatShot(s.Shot))
	}
	if msg := s.Message(); msg != "" {
		fmt.Fprintf(&b, "\nmessage: %s", msg)
	}

	counters, err := c.otel.Counters(c.ctx)
	if err != nil {
		return nil, err
	}
	for _, ctr := range counters {
		fmt.Fprintf(&b, "\n%s{%s} %d", ctr.Name, ctr.Attributes, ctr.Value)
	}
	return b.String(), nil
}

func (c *console) handleGeoJSON(context.Context, dispatcher.Event) (any, error) {
	fc, err := geo.FeatureCollection(c.mirror.Primitives(), c.segments)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(fc)
	if err != nil {
		return nil, fmt.Errorf("encode geojson: %w", err)
	}
	return string(data), nil
}

func (c *console) handleHelp(context.Context, dispatcher.Event) (any, error) {
	cmds := c.d.Commands()
	sort.Strings(cmds)
	return strings.Join(append(cmds, ":QUIT:"), " "), nil
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
