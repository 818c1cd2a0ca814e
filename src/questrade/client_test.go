package questrade

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vivekp9991/Questrade-Portfolio-Manager-sub000/src/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

// stubTokens hands out static credentials pointing at a test server and counts
// refreshes. rotate, when set, swaps the access token on refresh.
type stubTokens struct {
	apiServer string
	token     string
	rotate    string
	refreshes atomic.Int64
	failNext  bool
}

func (s *stubTokens) Credentials(ctx context.Context, person string) (Credentials, error) {
	return Credentials{
		AccessToken: s.token,
		APIServer:   s.apiServer,
		ExpiresAt:   time.Now().Add(time.Hour),
	}, nil
}

func (s *stubTokens) Refresh(ctx context.Context, person string) error {
	s.refreshes.Add(1)
	if s.failNext {
		return errors.New("login server rejected refresh token")
	}
	if s.rotate != "" {
		s.token = s.rotate
	}
	return nil
}

func newTestClient(apiServer string) (*Client, *stubTokens) {
	tokens := &stubTokens{apiServer: apiServer, token: "tok-1"}
	return NewClient(tokens, 100, 100, 5), tokens
}

func TestAccounts_DecodesPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"accounts":[{"type":"TFSA","number":"26598145","status":"Active","isPrimary":true}]}`))
	}))
	defer srv.Close()

	client, _ := newTestClient(srv.URL)
	var calls atomic.Int64
	accounts, err := client.Accounts(context.Background(), "Alice", &calls)

	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "26598145", accounts[0].Number)
	assert.Equal(t, "TFSA", accounts[0].Type)
	assert.True(t, accounts[0].IsPrimary)
	assert.Equal(t, int64(1), calls.Load())
}

func TestGet_RefreshesOnceOn401ThenRetries(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"accounts":[{"number":"26598145","type":"TFSA"}]}`))
	}))
	defer srv.Close()

	client, tokens := newTestClient(srv.URL)
	tokens.rotate = "tok-2"

	var calls atomic.Int64
	accounts, err := client.Accounts(context.Background(), "Alice", &calls)

	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, int64(1), tokens.refreshes.Load(), "exactly one refresh")
	assert.Equal(t, int64(1), hits.Load(), "exactly one authorized retry")
	assert.Equal(t, int64(2), calls.Load(), "both dispatches counted")
}

func TestGet_SecondUnauthorizedIsAuthFailure(t *testing.T) {
	var dispatches atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dispatches.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, tokens := newTestClient(srv.URL)

	var calls atomic.Int64
	_, err := client.Accounts(context.Background(), "Alice", &calls)

	assert.ErrorIs(t, err, ErrAuthFailed)
	assert.Equal(t, int64(1), tokens.refreshes.Load(), "never refreshes twice")
	assert.Equal(t, int64(2), dispatches.Load(), "exactly one retry, never a loop")
	assert.Equal(t, int64(2), calls.Load())
}

func TestGet_RefreshFailureIsAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, tokens := newTestClient(srv.URL)
	tokens.failNext = true

	_, err := client.Accounts(context.Background(), "Alice", nil)
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestGet_NonAuthErrorNeverTriggersRefresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"code":1011,"message":"Rate limit exceeded"}`))
	}))
	defer srv.Close()

	client, tokens := newTestClient(srv.URL)

	_, err := client.Accounts(context.Background(), "Alice", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.True(t, apiErr.IsRateLimited())
	assert.Equal(t, int64(0), tokens.refreshes.Load())
}

func TestActivities_ChunksLongWindows(t *testing.T) {
	type window struct{ start, end string }
	var windows []window
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		windows = append(windows, window{
			start: r.URL.Query().Get("startTime"),
			end:   r.URL.Query().Get("endTime"),
		})
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"activities":[{"type":"Dividends","symbol":"ENB.TO","netAmount":35.5}]}`))
	}))
	defer srv.Close()

	client, _ := newTestClient(srv.URL)
	end := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, 0, -90)

	var calls atomic.Int64
	activities, err := client.Activities(context.Background(), "Alice", "26598145", start, end, &calls)

	require.NoError(t, err)
	require.Len(t, windows, 3, "90 days split into 30-day requests")
	assert.Equal(t, start.Format(time.RFC3339), windows[0].start)
	assert.Equal(t, end.Format(time.RFC3339), windows[2].end)
	// Windows tile without gaps.
	assert.Equal(t, windows[0].end, windows[1].start)
	assert.Equal(t, windows[1].end, windows[2].start)
	assert.Len(t, activities, 3)
	assert.Equal(t, int64(3), calls.Load())
}

func TestCandles_RequestsDailyBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/markets/candles/17356", r.URL.Path)
		assert.Equal(t, "OneDay", r.URL.Query().Get("interval"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candles":[{"close":47.95},{"close":48.10}]}`))
	}))
	defer srv.Close()

	client, _ := newTestClient(srv.URL)
	end := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	candles, err := client.Candles(context.Background(), "Alice", 17356, end.AddDate(0, 0, -7), end, nil)

	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, 47.95, candles[0].Close)
}

func TestGet_HonoursContextCancellation(t *testing.T) {
	client, _ := newTestClient("http://unreachable.invalid")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Accounts(ctx, "Alice", nil)
	assert.Error(t, err)
}
