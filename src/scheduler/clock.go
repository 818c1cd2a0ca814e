package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/patrickmn/go-cache"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/logger"
)

// Clock supplies the current time in the target market's timezone.
type Clock interface {
	Now() time.Time
}

const clockCacheKey = "market_time"

type cachedInstant struct {
	remote  time.Time // time reported by the external source
	fetched time.Time // host monotonic reference at fetch
}

// MarketClock obtains the current market time from an external time source
// with a secondary fallback, cached for a window so the sources are hit at
// most once per TTL. The host clock is only a last resort and logged as
// degraded when used.
type MarketClock struct {
	http        *resty.Client
	cache       *cache.Cache
	loc         *time.Location
	tz          string
	primaryURL  string
	fallbackURL string
}

// NewMarketClock builds a clock for the given IANA timezone.
func NewMarketClock(timezone string, ttl time.Duration) (*MarketClock, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading market timezone %q: %w", timezone, err)
	}
	return &MarketClock{
		http:        resty.New().SetTimeout(5 * time.Second),
		cache:       cache.New(ttl, 2*ttl),
		loc:         loc,
		tz:          timezone,
		primaryURL:  "https://worldtimeapi.org/api/timezone",
		fallbackURL: "https://timeapi.io/api/Time/current/zone",
	}, nil
}

// Now returns the current time in the market timezone. Between source
// refreshes the cached instant is advanced by host-measured elapsed time.
func (c *MarketClock) Now() time.Time {
	if v, ok := c.cache.Get(clockCacheKey); ok {
		ci := v.(cachedInstant)
		return ci.remote.Add(time.Since(ci.fetched)).In(c.loc)
	}

	remote, err := c.fetchWorldTimeAPI()
	if err != nil {
		logger.L.Warn("Primary time source failed, trying fallback", "error", err)
		remote, err = c.fetchTimeAPI()
	}
	if err != nil {
		logger.L.Warn("All external time sources failed, degraded to host clock", "error", err)
		return time.Now().In(c.loc)
	}

	c.cache.SetDefault(clockCacheKey, cachedInstant{remote: remote, fetched: time.Now()})
	return remote.In(c.loc)
}

type worldTimeResponse struct {
	DateTime string `json:"datetime"` // RFC3339 with offset
}

func (c *MarketClock) fetchWorldTimeAPI() (time.Time, error) {
	var body worldTimeResponse
	resp, err := c.http.R().
		SetResult(&body).
		Get(c.primaryURL + "/" + c.tz)
	if err != nil {
		return time.Time{}, err
	}
	if resp.IsError() {
		return time.Time{}, fmt.Errorf("worldtimeapi returned status %d", resp.StatusCode())
	}
	t, err := time.Parse(time.RFC3339, body.DateTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing worldtimeapi datetime %q: %w", body.DateTime, err)
	}
	return t, nil
}

type timeAPIResponse struct {
	DateTime string `json:"dateTime"` // local wall time without offset
}

func (c *MarketClock) fetchTimeAPI() (time.Time, error) {
	var body timeAPIResponse
	resp, err := c.http.R().
		SetQueryParam("timeZone", c.tz).
		SetResult(&body).
		Get(c.fallbackURL)
	if err != nil {
		return time.Time{}, err
	}
	if resp.IsError() {
		return time.Time{}, fmt.Errorf("timeapi returned status %d", resp.StatusCode())
	}
	// The payload carries fractional seconds but no offset; parse the wall
	// time in the market location.
	raw := body.DateTime
	if i := strings.IndexByte(raw, '.'); i > 0 {
		raw = raw[:i]
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05", raw, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timeapi datetime %q: %w", body.DateTime, err)
	}
	return t, nil
}
