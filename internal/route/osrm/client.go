// Package osrm implements route.Router against an OSRM-compatible HTTP
// routing service.
package osrm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/artylery/smash/internal/geo"
	"github.com/artylery/smash/internal/route"
	"github.com/artylery/smash/pkg/core"
)

const maxBodySize = 4 << 20

// DefaultProfile is used for automobile requests when none is configured.
const DefaultProfile = "driving"

// Client handles communication with the routing service.
type Client struct {
	baseURL    string
	profile    string
	httpClient *http.Client
}

// New creates a new routing client. profile names the service profile used
// for automobile requests; walking always uses "foot".
func New(baseURL, profile string, timeout time.Duration) *Client {
	if profile == "" {
		profile = DefaultProfile
	}
	if timeout <= 0 {
		timeout = route.DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		profile:    profile,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type response struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Geometry json.RawMessage `json:"geometry"`
		Distance float64         `json:"distance"`
		Duration float64         `json:"duration"`
	} `json:"routes"`
}

// Route asks the service for the first route from origin to destination.
func (c *Client) Route(ctx context.Context, origin, destination core.GeoPoint, mode core.TransportMode) ([]core.GeoPoint, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.routeURL(origin, destination, mode), nil)
	if err != nil {
		return nil, &route.Error{Kind: route.Network, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, &route.Error{Kind: route.Timeout, Err: err}
		}
		return nil, &route.Error{Kind: route.Network, Err: fmt.Errorf("route request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &route.Error{Kind: route.Network, Err: fmt.Errorf("read response: %w", err)}
	}

	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &route.Error{Kind: route.Network, Err: fmt.Errorf("route returned status %d", resp.StatusCode)}
		}
		return nil, &route.Error{Kind: route.Network, Err: fmt.Errorf("decode response: %w", err)}
	}

	// The service answers 400 with a code for unroutable input.
	if r.Code != "Ok" {
		if r.Code == "" {
			return nil, &route.Error{Kind: route.Network, Err: fmt.Errorf("route returned status %d", resp.StatusCode)}
		}
		return nil, &route.Error{Kind: route.NoRoute, Err: fmt.Errorf("%s: %s", r.Code, r.Message)}
	}
	if len(r.Routes) == 0 {
		return nil, &route.Error{Kind: route.NoRoute, Err: errors.New("empty route list")}
	}

	points, err := geo.DecodeLineString(r.Routes[0].Geometry)
	if err != nil {
		return nil, &route.Error{Kind: route.NoRoute, Err: err}
	}
	return points, nil
}

// Healthcheck checks if the routing service is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) routeURL(origin, destination core.GeoPoint, mode core.TransportMode) string {
	return fmt.Sprintf("%s/route/v1/%s/%s;%s?overview=full&geometries=geojson",
		c.baseURL, c.profileFor(mode), lonLat(origin), lonLat(destination))
}

func (c *Client) profileFor(mode core.TransportMode) string {
	if mode == core.TransportWalking {
		return "foot"
	}
	return c.profile
}

func lonLat(p core.GeoPoint) string {
	return strconv.FormatFloat(p.Longitude, 'f', -1, 64) + "," + strconv.FormatFloat(p.Latitude, 'f', -1, 64)
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
