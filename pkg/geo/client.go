// Package geo resolves place names to coordinates and back using Nominatim
// with geocode.maps.co as a fallback.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/maypok86/otter/v2"
	"github.com/rozadev/roza/pkg/logger"
	"github.com/rozadev/roza/pkg/rozalib"
)

const (
	DefaultPrimaryURL  = "https://nominatim.openstreetmap.org"
	DefaultFallbackURL = "https://geocode.maps.co"
	DefaultUserAgent   = "roza/1.0 (+https://github.com/rozadev/roza)"
)

var (
	// ErrNotFound is returned when no provider knows the place.
	ErrNotFound = errors.New("place not found")
	// ErrLocation is returned by Resolver when no location can be determined.
	ErrLocation = errors.New("location unavailable")
)

// GeocodeError is a failure of one provider for one operation.
type GeocodeError struct {
	Provider string
	Op       string
	Err      error
}

func (e *GeocodeError) Error() string {
	return fmt.Sprintf("geocode %s via %s: %v", e.Op, e.Provider, e.Err)
}

func (e *GeocodeError) Unwrap() error {
	return e.Err
}

// HTTPClient is the subset of *http.Client used here.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures a Client. Zero values select the defaults.
type Options struct {
	PrimaryURL  string
	FallbackURL string
	UserAgent   string
	HTTPClient  HTTPClient
	Log         logger.Logger
	Attempts    uint
	RetryDelay  time.Duration
	CacheTTL    time.Duration
}

// Client performs forward and reverse geocoding.
type Client struct {
	primary    string
	fallback   string
	userAgent  string
	httpClient HTTPClient
	log        logger.Logger
	attempts   uint
	delay      time.Duration
	cache      *otter.Cache[string, rozalib.Location]
}

// NewClient creates a geocoding client.
func NewClient(opts Options) *Client {
	c := &Client{
		primary:    strings.TrimRight(opts.PrimaryURL, "/"),
		fallback:   strings.TrimRight(opts.FallbackURL, "/"),
		userAgent:  opts.UserAgent,
		httpClient: opts.HTTPClient,
		log:        opts.Log,
		attempts:   opts.Attempts,
		delay:      opts.RetryDelay,
	}
	if c.primary == "" {
		c.primary = DefaultPrimaryURL
	}
	if c.fallback == "" {
		c.fallback = DefaultFallbackURL
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if c.log == nil {
		c.log = logger.NewNopLogger()
	}
	if c.attempts == 0 {
		c.attempts = 3
	}
	if c.delay <= 0 {
		c.delay = 500 * time.Millisecond
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	c.cache = otter.Must(&otter.Options[string, rozalib.Location]{
		MaximumSize:      1_000,
		ExpiryCalculator: otter.ExpiryWriting[string, rozalib.Location](ttl),
	})
	return c
}

type address struct {
	City          string `json:"city"`
	Town          string `json:"town"`
	Village       string `json:"village"`
	Suburb        string `json:"suburb"`
	Neighbourhood string `json:"neighbourhood"`
	Hamlet        string `json:"hamlet"`
	CityDistrict  string `json:"city_district"`
	County        string `json:"county"`
	StateDistrict string `json:"state_district"`
	CountryCode   string `json:"country_code"`
}

type place struct {
	Lat         string   `json:"lat"`
	Lon         string   `json:"lon"`
	DisplayName string   `json:"display_name"`
	Address     *address `json:"address"`
}

// Search resolves a free-form place name.
func (c *Client) Search(ctx context.Context, query string) (rozalib.Location, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return rozalib.Location{}, fmt.Errorf("%w: empty query", ErrNotFound)
	}
	key := "search:" + strings.ToLower(query)
	if loc, ok := c.cache.GetIfPresent(key); ok {
		return loc, nil
	}

	q := url.Values{"format": {"json"}, "addressdetails": {"1"}, "q": {query}}
	loc, perr := c.search(ctx, "nominatim", c.primary+"/search?"+q.Encode(), true)
	if perr != nil {
		c.log.Warning("primary geocoding failed for %q: %v", query, perr)
		var ferr error
		loc, ferr = c.search(ctx, "geocode.maps.co", c.fallback+"/search?"+url.Values{"q": {query}}.Encode(), false)
		if ferr != nil {
			c.log.Warning("fallback geocoding failed for %q: %v", query, ferr)
			return rozalib.Location{}, errors.Join(perr, ferr)
		}
	}
	c.cache.Set(key, loc)
	return loc, nil
}

func (c *Client) search(ctx context.Context, provider, u string, withAddress bool) (rozalib.Location, error) {
	var places []place
	if err := c.getJSON(ctx, u, &places); err != nil {
		return rozalib.Location{}, &GeocodeError{Provider: provider, Op: "search", Err: err}
	}
	if len(places) == 0 {
		return rozalib.Location{}, &GeocodeError{Provider: provider, Op: "search", Err: ErrNotFound}
	}
	p := places[0]
	lat, err1 := strconv.ParseFloat(p.Lat, 64)
	lon, err2 := strconv.ParseFloat(p.Lon, 64)
	if err := errors.Join(err1, err2); err != nil {
		return rozalib.Location{}, &GeocodeError{Provider: provider, Op: "search", Err: err}
	}
	loc := rozalib.Location{Latitude: lat, Longitude: lon, Name: firstSegment(p.DisplayName)}
	if withAddress && p.Address != nil {
		a := p.Address
		if n := firstNonEmpty(a.City, a.Town, a.Village, a.Suburb, a.CityDistrict); n != "" {
			loc.Name = n
		}
		loc.CountryCode = strings.ToUpper(a.CountryCode)
	}
	return loc, nil
}

// Reverse names the place at the given coordinates.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (rozalib.Location, error) {
	key := fmt.Sprintf("reverse:%.4f,%.4f", lat, lon)
	if loc, ok := c.cache.GetIfPresent(key); ok {
		return loc, nil
	}
	q := url.Values{
		"format": {"json"},
		"lat":    {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":    {strconv.FormatFloat(lon, 'f', -1, 64)},
	}
	loc, perr := c.reverse(ctx, "nominatim", c.primary+"/reverse?"+q.Encode(), true)
	if perr != nil {
		c.log.Warning("primary reverse geocoding failed: %v", perr)
		q.Del("format")
		var ferr error
		loc, ferr = c.reverse(ctx, "geocode.maps.co", c.fallback+"/reverse?"+q.Encode(), false)
		if ferr != nil {
			c.log.Warning("fallback reverse geocoding failed: %v", ferr)
			return rozalib.Location{}, errors.Join(perr, ferr)
		}
	}
	loc.Latitude, loc.Longitude = lat, lon
	c.cache.Set(key, loc)
	return loc, nil
}

func (c *Client) reverse(ctx context.Context, provider, u string, granular bool) (rozalib.Location, error) {
	var p place
	if err := c.getJSON(ctx, u, &p); err != nil {
		return rozalib.Location{}, &GeocodeError{Provider: provider, Op: "reverse", Err: err}
	}
	if p.Address == nil {
		return rozalib.Location{}, &GeocodeError{Provider: provider, Op: "reverse", Err: ErrNotFound}
	}
	a := p.Address
	var name string
	if granular {
		name = firstNonEmpty(a.City, a.Town, a.Village, a.Suburb, a.Neighbourhood, a.Hamlet, a.CityDistrict, a.County, a.StateDistrict)
		if name == "" || strings.Contains(name, "Division") {
			name = firstSegment(p.DisplayName)
		}
		if name == "" {
			name = "Detected Location"
		}
	} else {
		name = firstNonEmpty(a.City, a.Town, a.Village, a.Suburb, firstSegment(p.DisplayName))
	}
	return rozalib.Location{Name: name, CountryCode: strings.ToUpper(a.CountryCode)}, nil
}

// getJSON fetches u with retries. Client errors other than 429 are not retried.
func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("User-Agent", c.userAgent)
			req.Header.Set("Accept", "application/json")
			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer func() {
				_ = resp.Body.Close()
			}()
			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
				err := fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
				if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
					return retry.Unrecoverable(err)
				}
				return err
			}
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decoding response: %w", err))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.MaxDelay(10*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warning("retrying %s (attempt %d): %v", u, n+1, err)
		}),
	)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstSegment(displayName string) string {
	seg, _, _ := strings.Cut(displayName, ",")
	return strings.TrimSpace(seg)
}
