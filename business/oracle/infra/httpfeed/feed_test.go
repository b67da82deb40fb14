package httpfeed

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/nft-auction/internal/apperror"
	"github.com/fd1az/nft-auction/internal/clock"
	"github.com/fd1az/nft-auction/internal/logger"
)

func newTickerServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("symbol") {
		case "ETHUSDT":
			_, _ = w.Write([]byte(`{"symbol":"ETHUSDT","price":"2512.34000000"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFeed_LatestPrice(t *testing.T) {
	var hits atomic.Int32
	srv := newTickerServer(t, &hits)
	clk := clock.NewManual(time.Unix(1_700_000_000, 0).UTC())

	feed, err := NewFeed(Config{BaseURL: srv.URL, Symbol: "ETHUSDT"}, clk, logger.NewDiscard())
	require.NoError(t, err)
	defer feed.Close()

	r, err := feed.LatestPrice(context.Background())
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(2512_34000000), r.Value)
	assert.Equal(t, uint8(Decimals), r.Decimals)
	assert.Equal(t, clk.Now(), r.UpdatedAt)
	assert.Equal(t, "ETHUSDT ticker", feed.Description())
}

func TestFeed_Cache(t *testing.T) {
	var hits atomic.Int32
	srv := newTickerServer(t, &hits)

	feed, err := NewFeed(Config{BaseURL: srv.URL, Symbol: "ETHUSDT", CacheTTL: time.Minute}, clock.System{}, logger.NewDiscard())
	require.NoError(t, err)
	defer feed.Close()

	for i := 0; i < 3; i++ {
		_, err := feed.LatestPrice(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestFeed_APIError(t *testing.T) {
	var hits atomic.Int32
	srv := newTickerServer(t, &hits)

	feed, err := NewFeed(Config{BaseURL: srv.URL, Symbol: "NOPE"}, clock.System{}, logger.NewDiscard())
	require.NoError(t, err)
	defer feed.Close()

	_, err = feed.LatestPrice(context.Background())
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeTickerFetchFailed))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, -1121, apiErr.Code)
}
