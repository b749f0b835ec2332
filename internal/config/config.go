package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/artylery/smash/internal/geo"
	"github.com/artylery/smash/pkg/core"
)

// FileName is the config file looked up in the config directory.
const FileName = "artylery.cfg.json"

// TargetingConfig holds range policy and dispersion settings
type TargetingConfig struct {
	MaxRangeMeters   float64 `json:"maxRangeMeters" mapstructure:"maxRangeMeters"`
	BaseRadiusMeters float64 `json:"baseRadiusMeters" mapstructure:"baseRadiusMeters"`
	RadiusPerKm      float64 `json:"radiusPerKm" mapstructure:"radiusPerKm"`
	Unlimited        bool    `json:"unlimited" mapstructure:"unlimited"`
}

// OverlayConfig holds overlay builder settings
type OverlayConfig struct {
	Mode               core.VisualizationMode
	AnnotateEveryPoint bool
	CircleSegments     int
}

// RouteConfig holds routing service settings
type RouteConfig struct {
	ServerURL string
	Profile   string
	Timeout   time.Duration
	Transport core.TransportMode
}

// WebSocketConfig holds websocket sink settings
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// RenderConfig selects the overlay sink
type RenderConfig struct {
	Type      string
	WebSocket WebSocketConfig
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// LocationConfig holds the fixed device location, if any
type LocationConfig struct {
	Fix *core.GeoPoint
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("input.format", "decimal")

	viper.SetDefault("targeting.maxRangeMeters", 50_000.0)
	viper.SetDefault("targeting.baseRadiusMeters", 20.0)
	viper.SetDefault("targeting.radiusPerKm", 2.0)
	viper.SetDefault("targeting.unlimited", false)

	viper.SetDefault("overlay.mode", "line")
	viper.SetDefault("overlay.annotateEveryPoint", false)
	viper.SetDefault("overlay.circleSegments", geo.DefaultCircleSegments)

	viper.SetDefault("route.serverUrl", "https://router.project-osrm.org")
	viper.SetDefault("route.profile", "driving")
	viper.SetDefault("route.timeout", "10s")
	viper.SetDefault("route.transport", string(core.TransportAutomobile))

	viper.SetDefault("render.type", "memory")
	viper.SetDefault("render.websocket.url", "ws://localhost:5000/ws")
	viper.SetDefault("render.websocket.secret", "")

	viper.SetDefault("location.fix", "")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "artylery")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// Load sets default values and reads the JSON config file from configDir if
// one exists. Environment variables prefixed ARTYLERY_ override both, with
// dots in keys written as underscores.
func Load(configDir string) error {
	setDefaults()

	viper.SetEnvPrefix("ARTYLERY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// Flags returns the command-line flags understood by BindFlags.
func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("artylery", pflag.ContinueOnError)
	fs.String("config-dir", ".", "directory containing "+FileName)
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("mode", "", "visualization mode (line, route, both)")
	fs.String("format", "", "input format (decimal, cardinal, fields)")
	fs.String("render", "", "overlay sink (memory, websocket)")
	fs.String("location", "", "fixed device location as \"(lat, lon)\"")
	fs.Bool("unlimited", false, "disable the range cap")
	return fs
}

var flagKeys = map[string]string{
	"log-level": "logLevel",
	"mode":      "overlay.mode",
	"format":    "input.format",
	"render":    "render.type",
	"location":  "location.fix",
	"unlimited": "targeting.unlimited",
}

// BindFlags binds the flags from Flags into their config keys. Only flags
// set on the command line override the file and defaults.
func BindFlags(fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetTargetingConfig returns the targeting configuration.
func GetTargetingConfig() TargetingConfig {
	return TargetingConfig{
		MaxRangeMeters:   viper.GetFloat64("targeting.maxRangeMeters"),
		BaseRadiusMeters: viper.GetFloat64("targeting.baseRadiusMeters"),
		RadiusPerKm:      viper.GetFloat64("targeting.radiusPerKm"),
		Unlimited:        viper.GetBool("targeting.unlimited"),
	}
}

// GetOverlayConfig returns the overlay configuration.
func GetOverlayConfig() (OverlayConfig, error) {
	mode, err := core.ParseVisualizationMode(strings.ToLower(viper.GetString("overlay.mode")))
	if err != nil {
		return OverlayConfig{}, fmt.Errorf("overlay.mode: %w", err)
	}
	return OverlayConfig{
		Mode:               mode,
		AnnotateEveryPoint: viper.GetBool("overlay.annotateEveryPoint"),
		CircleSegments:     viper.GetInt("overlay.circleSegments"),
	}, nil
}

// GetRouteConfig returns the routing configuration.
func GetRouteConfig() RouteConfig {
	return RouteConfig{
		ServerURL: viper.GetString("route.serverUrl"),
		Profile:   viper.GetString("route.profile"),
		Timeout:   viper.GetDuration("route.timeout"),
		Transport: core.TransportMode(strings.ToLower(viper.GetString("route.transport"))),
	}
}

// GetRenderConfig returns the overlay sink configuration.
func GetRenderConfig() RenderConfig {
	return RenderConfig{
		Type: strings.ToLower(viper.GetString("render.type")),
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("render.websocket.url"),
			Secret: viper.GetString("render.websocket.secret"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetLocationConfig returns the configured location fix. An empty
// location.fix means no fix.
func GetLocationConfig() (LocationConfig, error) {
	raw := strings.TrimSpace(viper.GetString("location.fix"))
	if raw == "" {
		return LocationConfig{}, nil
	}
	p, err := geo.ParseDecimalPair(raw)
	if err == nil {
		err = geo.Validate(p)
	}
	if err != nil {
		return LocationConfig{}, fmt.Errorf("location.fix: %w", err)
	}
	return LocationConfig{Fix: &p}, nil
}

// Validate checks the loaded configuration and reports every problem found.
func Validate() error {
	var errs []string

	tc := GetTargetingConfig()
	if tc.MaxRangeMeters <= 0 {
		errs = append(errs, fmt.Sprintf("targeting.maxRangeMeters must be positive, got %v", tc.MaxRangeMeters))
	}
	if tc.BaseRadiusMeters < 0 {
		errs = append(errs, fmt.Sprintf("targeting.baseRadiusMeters must not be negative, got %v", tc.BaseRadiusMeters))
	}
	if tc.RadiusPerKm < 0 {
		errs = append(errs, fmt.Sprintf("targeting.radiusPerKm must not be negative, got %v", tc.RadiusPerKm))
	}

	oc, err := GetOverlayConfig()
	if err != nil {
		errs = append(errs, err.Error())
	} else if oc.CircleSegments < 3 {
		errs = append(errs, fmt.Sprintf("overlay.circleSegments must be at least 3, got %d", oc.CircleSegments))
	}

	rc := GetRouteConfig()
	if rc.Timeout <= 0 {
		errs = append(errs, "route.timeout must be positive")
	}
	if rc.Transport != core.TransportAutomobile && rc.Transport != core.TransportWalking {
		errs = append(errs, fmt.Sprintf("route.transport must be automobile or walking, got %q", rc.Transport))
	}
	if oc.Mode != core.ModeLine && rc.ServerURL == "" {
		errs = append(errs, "route.serverUrl is required for route overlays")
	}

	switch rdc := GetRenderConfig(); rdc.Type {
	case "memory":
	case "websocket":
		if rdc.WebSocket.URL == "" {
			errs = append(errs, "render.websocket.url is required for the websocket sink")
		}
	default:
		errs = append(errs, fmt.Sprintf("render.type must be memory or websocket, got %q", rdc.Type))
	}

	if _, err := GetLocationConfig(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
