package questrade

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/logger"
	"golang.org/x/time/rate"
)

// ErrAuthFailed is returned when a request still fails authorization after the
// single credential refresh and retry.
var ErrAuthFailed = errors.New("brokerage authorization failed after credential refresh")

// APIError is a non-2xx response from the brokerage API.
type APIError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("brokerage API %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// IsRateLimited reports whether the error is an upstream throttle response.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// Client wraps every outbound call to the brokerage API. It enforces a global
// requests-per-second ceiling and a bounded concurrency window, resolves a
// per-person access credential before each call, and on a 401 performs exactly
// one credential refresh and one retry of the original request.
type Client struct {
	tokens  TokenProvider
	limiter *rate.Limiter
	sem     chan struct{}
	http    *resty.Client
}

// NewClient builds a rate-limited client. rps is the global request budget per
// second, burst its headroom, maxConcurrent the concurrency window.
func NewClient(tokens TokenProvider, rps float64, burst, maxConcurrent int) *Client {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Client{
		tokens:  tokens,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		sem:     make(chan struct{}, maxConcurrent),
		http:    resty.New().SetTimeout(30 * time.Second),
	}
}

// get performs one rate-limited, auth-aware GET against the person's API
// server and decodes the JSON body into out. calls, when non-nil, is
// incremented once per request actually dispatched.
func (c *Client) get(ctx context.Context, person, path string, query map[string]string, out any, calls *atomic.Int64) error {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-c.sem }()

	resp, err := c.dispatch(ctx, person, path, query, out, calls)
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusUnauthorized {
		return c.checkStatus(resp, path)
	}

	// 401: exactly one credential refresh and one retry. A second failure
	// propagates as a hard error so a bad credential can never loop.
	logger.L.Warn("Brokerage API returned 401, refreshing credential", "person", person, "endpoint", path)
	if err := c.tokens.Refresh(ctx, person); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	resp, err = c.dispatch(ctx, person, path, query, out, calls)
	if err != nil {
		return err
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		return ErrAuthFailed
	}
	return c.checkStatus(resp, path)
}

func (c *Client) dispatch(ctx context.Context, person, path string, query map[string]string, out any, calls *atomic.Int64) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	creds, err := c.tokens.Credentials(ctx, person)
	if err != nil {
		return nil, err
	}

	req := c.http.R().
		SetContext(ctx).
		SetAuthToken(creds.AccessToken).
		SetResult(out)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	resp, err := req.Get(creds.APIServer + path)
	if calls != nil {
		calls.Add(1)
	}
	if err != nil {
		return nil, fmt.Errorf("brokerage API %s: %w", path, err)
	}
	return resp, nil
}

func (c *Client) checkStatus(resp *resty.Response, path string) error {
	if resp.IsSuccess() {
		return nil
	}
	return &APIError{StatusCode: resp.StatusCode(), Endpoint: path, Body: string(resp.Body())}
}

// Accounts fetches the person's account list.
func (c *Client) Accounts(ctx context.Context, person string, calls *atomic.Int64) ([]AccountPayload, error) {
	var result accountsResponse
	if err := c.get(ctx, person, "/v1/accounts", nil, &result, calls); err != nil {
		return nil, err
	}
	return result.Accounts, nil
}

// Balances fetches one account's per-currency balances.
func (c *Client) Balances(ctx context.Context, person, accountNumber string, calls *atomic.Int64) ([]BalancePayload, error) {
	var result balancesResponse
	path := fmt.Sprintf("/v1/accounts/%s/balances", accountNumber)
	if err := c.get(ctx, person, path, nil, &result, calls); err != nil {
		return nil, err
	}
	return result.PerCurrencyBalances, nil
}

// Positions fetches one account's open positions.
func (c *Client) Positions(ctx context.Context, person, accountNumber string, calls *atomic.Int64) ([]PositionPayload, error) {
	var result positionsResponse
	path := fmt.Sprintf("/v1/accounts/%s/positions", accountNumber)
	if err := c.get(ctx, person, path, nil, &result, calls); err != nil {
		return nil, err
	}
	return result.Positions, nil
}

// activityChunkDays is the widest window the activities endpoint accepts.
const activityChunkDays = 30

// Activities fetches one account's transactions between start and end,
// chunking requests into windows the upstream accepts.
func (c *Client) Activities(ctx context.Context, person, accountNumber string, start, end time.Time, calls *atomic.Int64) ([]ActivityPayload, error) {
	path := fmt.Sprintf("/v1/accounts/%s/activities", accountNumber)
	var all []ActivityPayload

	for chunkStart := start; chunkStart.Before(end); {
		chunkEnd := chunkStart.AddDate(0, 0, activityChunkDays)
		if chunkEnd.After(end) {
			chunkEnd = end
		}
		var result activitiesResponse
		query := map[string]string{
			"startTime": chunkStart.Format(time.RFC3339),
			"endTime":   chunkEnd.Format(time.RFC3339),
		}
		if err := c.get(ctx, person, path, query, &result, calls); err != nil {
			return nil, err
		}
		all = append(all, result.Activities...)
		chunkStart = chunkEnd
	}
	return all, nil
}

// Candles fetches daily price bars for one symbol between start and end.
func (c *Client) Candles(ctx context.Context, person string, symbolID int64, start, end time.Time, calls *atomic.Int64) ([]CandlePayload, error) {
	var result candlesResponse
	path := fmt.Sprintf("/v1/markets/candles/%d", symbolID)
	query := map[string]string{
		"startTime": start.Format(time.RFC3339),
		"endTime":   end.Format(time.RFC3339),
		"interval":  "OneDay",
	}
	if err := c.get(ctx, person, path, query, &result, calls); err != nil {
		return nil, err
	}
	return result.Candles, nil
}
