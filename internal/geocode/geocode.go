// Package geocode resolves coordinates to human-readable place names using a
// Nominatim-compatible reverse geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/sony/gobreaker"
)

const maxResponseBytes = 1 << 20

var (
	errStatus    = errors.New("geocode: unexpected status")
	errNoAddress = errors.New("geocode: no address in response")
)

// Address holds the Nominatim address parts used to build a location string.
type Address map[string]string

// Config configures a Client.
type Config struct {
	BaseURL    string        // default: https://nominatim.openstreetmap.org
	UserAgent  string        // required by the public Nominatim usage policy
	Timeout    time.Duration // per request (default: 10s)
	Attempts   uint          // default: 2
	HTTPClient *http.Client  // default: &http.Client{Timeout: Timeout}
}

// Client is a reverse geocoder guarded by a circuit breaker so that an
// unreachable service does not slow down every upload.
type Client struct {
	cfg     Config
	breaker *gobreaker.CircuitBreaker
}

// New returns a Client with defaults applied.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://nominatim.openstreetmap.org"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 2
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	c := &Client{cfg: cfg}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "geocoder",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		// Open ocean and unmapped areas answer without an address.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errNoAddress)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("phototag: circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// Reverse looks up the address of a coordinate.
func (c *Client) Reverse(ctx context.Context, lat, lng float64) (Address, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		var addr Address
		err := retry.Do(
			func() error {
				var err error
				addr, err = c.reverse(ctx, lat, lng)
				return err
			},
			retry.Attempts(c.cfg.Attempts),
			retry.Delay(500*time.Millisecond),
			retry.DelayType(retry.BackOffDelay),
			retry.LastErrorOnly(true),
			retry.Context(ctx),
			retry.RetryIf(func(err error) bool {
				return !errors.Is(err, errNoAddress)
			}),
		)
		return addr, err
	})
	if err != nil {
		return nil, err
	}
	return res.(Address), nil
}

func (c *Client) reverse(ctx context.Context, lat, lng float64) (Address, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("zoom", "10")

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("geocode: request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w %d", errStatus, resp.StatusCode)
	}

	var body struct {
		Address map[string]any `json:"address"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("geocode: decode: %w", err)
	}
	if len(body.Address) == 0 {
		return nil, errNoAddress
	}

	addr := make(Address, len(body.Address))
	for k, v := range body.Address {
		if s, ok := v.(string); ok {
			addr[k] = s
		}
	}
	return addr, nil
}

var (
	specificKeys = []string{"road", "pedestrian", "suburb", "neighbourhood", "residential", "park", "tourism", "amenity"}
	cityKeys     = []string{"city", "town", "village", "city_district", "county"}
)

// Format builds "specific, city, country", "city, country" or "country"
// from an address, or "" when none of the parts are present.
func Format(addr Address) string {
	specific := first(addr, specificKeys)
	city := first(addr, cityKeys)
	country := addr["country"]

	switch {
	case specific != "" && city != "" && country != "":
		return specific + ", " + city + ", " + country
	case city != "" && country != "":
		return city + ", " + country
	case country != "":
		return country
	}
	return ""
}

// CoordinateLabel is the location used when no address is available.
func CoordinateLabel(lat, lng float64) string {
	return fmt.Sprintf("%.4f, %.4f", lat, lng)
}

// Locate returns a display location for a coordinate. Lookup failures fall
// back to CoordinateLabel and are only logged.
func (c *Client) Locate(ctx context.Context, lat, lng float64) string {
	if c == nil {
		return CoordinateLabel(lat, lng)
	}
	addr, err := c.Reverse(ctx, lat, lng)
	if err != nil {
		slog.Warn("phototag: reverse geocoding failed", "lat", lat, "lng", lng, "error", err.Error())
		return CoordinateLabel(lat, lng)
	}
	if s := Format(addr); s != "" {
		return s
	}
	return CoordinateLabel(lat, lng)
}

func first(addr Address, keys []string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(addr[k]); v != "" {
			return v
		}
	}
	return ""
}
