// Command artylery is a console for computing artillery shots and streaming
// their map overlays.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/artylery/smash/internal/config"
	"github.com/artylery/smash/internal/logging"
	intOtel "github.com/artylery/smash/internal/otel"
	"github.com/artylery/smash/internal/overlay"
	"github.com/artylery/smash/internal/render"
	"github.com/artylery/smash/internal/render/memory"
	"github.com/artylery/smash/internal/render/websocket"
	"github.com/artylery/smash/internal/route"
	"github.com/artylery/smash/internal/route/osrm"
	"github.com/artylery/smash/internal/session"
	"github.com/artylery/smash/internal/targeting"
	"github.com/artylery/smash/pkg/core"
)

// set at build time via ldflags
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

const appName = "artylery"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "artylery:", err)
		os.Exit(1)
	}
}

func run(args []string, in io.Reader, out io.Writer) error {
	sessionStart := time.Now()

	fs := config.Flags()
	if err := fs.Parse(args); err != nil {
		return err
	}
	configDir, _ := fs.GetString("config-dir")
	if err := config.Load(configDir); err != nil {
		return err
	}
	if err := config.BindFlags(fs); err != nil {
		return err
	}
	if err := config.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logsDir := config.GetString("logsDir")
	logFile, err := logging.OpenLogFile(logsDir, appName, sessionStart)
	if err != nil {
		return err
	}
	defer logFile.Close()

	provider, otelFile, err := setupOTel(logsDir, sessionStart)
	if err != nil {
		return err
	}
	if otelFile != nil {
		defer otelFile.Close()
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(shutdownCtx)
	}()

	var current atomic.Pointer[session.Controller]
	slogManager := logging.NewSlogManager()
	slogManager.Setup(logging.Options{
		File:     logFile,
		Level:    config.GetString("logLevel"),
		Provider: provider.LoggerProvider(),
		Context: func() []slog.Attr {
			if c := current.Load(); c != nil {
				return c.LogAttrs()
			}
			return nil
		},
	})
	logger := slogManager.Logger()
	logger.Info("Starting up", "version", Version, "buildDate", BuildDate)

	mirror := memory.New()
	sink, closeSink, err := setupSink(mirror, logger)
	if err != nil {
		return err
	}
	defer closeSink()

	ctrl, err := setupSession(sink, out, logger)
	if err != nil {
		return err
	}
	current.Store(ctrl)

	oc, err := config.GetOverlayConfig()
	if err != nil {
		return err
	}
	con, err := newConsole(ctx, ctrl, mirror, provider, oc.CircleSegments, out, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "artylery %s ready, :HELP: lists commands\n", Version)
	err = con.run(in)

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if flushErr := slogManager.Flush(flushCtx); flushErr != nil {
		logger.Warn("Failed to flush logs", "error", flushErr)
	}
	logger.Info("Shutting down")
	return err
}

func setupOTel(logsDir string, sessionStart time.Time) (*intOtel.Provider, *os.File, error) {
	oc := config.GetOTelConfig()
	cfg := intOtel.Config{
		Enabled:      oc.Enabled,
		ServiceName:  oc.ServiceName,
		BatchTimeout: oc.BatchTimeout,
		Endpoint:     oc.Endpoint,
		Insecure:     oc.Insecure,
	}

	var f *os.File
	if oc.Enabled {
		var err error
		f, err = logging.OpenLogFile(logsDir, appName+".otel", sessionStart)
		if err != nil {
			return nil, nil, err
		}
		cfg.LogWriter = f
	}

	p, err := intOtel.New(cfg)
	if err != nil {
		if f != nil {
			f.Close()
		}
		return nil, nil, fmt.Errorf("otel setup: %w", err)
	}
	return p, f, nil
}

// setupSink returns the sink the session draws into. The memory mirror is
// always part of it so the console can export what is on the map.
func setupSink(mirror *memory.Sink, logger *slog.Logger) (render.Sink, func(), error) {
	rc := config.GetRenderConfig()
	if rc.Type != "websocket" {
		return mirror, func() {}, nil
	}

	ws := websocket.New(websocket.Config{URL: rc.WebSocket.URL, Secret: rc.WebSocket.Secret}, logger)
	if err := ws.Init(); err != nil {
		_ = ws.Close()
		return nil, nil, fmt.Errorf("connect map client: %w", err)
	}
	logger.Info("Map client connected", "url", rc.WebSocket.URL)

	return render.Multi{mirror, ws}, func() { _ = ws.Close() }, nil
}

func setupSession(sink render.Sink, out io.Writer, logger *slog.Logger) (*session.Controller, error) {
	tc := config.GetTargetingConfig()
	engine := targeting.NewEngine(targeting.Params{
		BaseRadiusMeters: tc.BaseRadiusMeters,
		RadiusPerKm:      tc.RadiusPerKm,
	})
	policy := targeting.NewPolicy(tc.MaxRangeMeters, tc.Unlimited)

	oc, err := config.GetOverlayConfig()
	if err != nil {
		return nil, err
	}

	rc := config.GetRouteConfig()
	router := osrm.New(rc.ServerURL, rc.Profile, rc.Timeout)
	if oc.Mode != core.ModeLine {
		ctx, cancel := context.WithTimeout(context.Background(), rc.Timeout)
		if err := router.Healthcheck(ctx); err != nil {
			logger.Warn("Routing service unreachable", "url", rc.ServerURL, "error", err)
		}
		cancel()
	}
	resolver, err := route.NewResolver(router, &route.Tracker{}, sink,
		route.WithTimeout(rc.Timeout),
		route.WithTransport(rc.Transport),
		route.WithLogger(logger),
		route.OnError(func(id uint64, err *route.Error) {
			fmt.Fprintf(out, "error: %s\n", err.UserMessage())
		}),
	)
	if err != nil {
		return nil, err
	}

	format, err := session.ParseInputFormat(config.GetString("input.format"))
	if err != nil {
		return nil, err
	}

	var location session.LocationProvider = session.NoLocation{}
	lc, err := config.GetLocationConfig()
	if err != nil {
		return nil, err
	}
	if lc.Fix != nil {
		location = session.StaticLocation{Point: *lc.Fix}
	}

	return session.New(engine, policy, resolver,
		session.WithLogger(logger),
		session.WithInputFormat(format),
		session.WithLocation(location),
		session.WithOverlayOptions(overlay.Options{
			Mode:               oc.Mode,
			AnnotateEveryPoint: oc.AnnotateEveryPoint,
		}),
	)
}
