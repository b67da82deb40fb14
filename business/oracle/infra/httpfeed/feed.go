// Package httpfeed derives prices from a Binance-compatible ticker endpoint.
package httpfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/nft-auction/business/oracle/app"
	"github.com/fd1az/nft-auction/business/oracle/domain"
	"github.com/fd1az/nft-auction/internal/apperror"
	"github.com/fd1az/nft-auction/internal/cache"
	"github.com/fd1az/nft-auction/internal/circuitbreaker"
	"github.com/fd1az/nft-auction/internal/clock"
	"github.com/fd1az/nft-auction/internal/httpclient"
	"github.com/fd1az/nft-auction/internal/logger"
	"github.com/fd1az/nft-auction/internal/ratelimit"
)

const (
	tracerName = "httpfeed"

	DefaultBaseURL = "https://api.binance.com"

	tickerEndpoint = "/api/v3/ticker/price"
	httpTimeout    = 10 * time.Second

	// Decimals of every reading, as for Chainlink USD pairs.
	Decimals = 8
)

var _ app.Feed = (*Feed)(nil)

// Config tunes a Feed.
type Config struct {
	BaseURL           string
	Symbol            string
	Timeout           time.Duration
	CacheTTL          time.Duration
	RequestsPerMinute int
}

// Feed answers with the last traded price of one symbol. Tickers carry no
// timestamp so readings are stamped with the clock at fetch time.
type Feed struct {
	client  httpclient.Client
	symbol  string
	ttl     time.Duration
	clock   clock.Clock
	cache   *cache.Cache[string, domain.Reading]
	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[*TickerResponse]
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

// NewFeed creates a ticker feed.
func NewFeed(cfg Config, clk clock.Clock, log logger.LoggerInterface) (*Feed, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = httpTimeout
	}

	tracer := otel.Tracer(tracerName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("ticker"),
		httpclient.WithBaseURL(baseURL),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithTraceOptions(tracer, httpclient.TraceResponse),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &Feed{
		client:  client,
		symbol:  cfg.Symbol,
		ttl:     cfg.CacheTTL,
		clock:   clk,
		cache:   cache.New[string, domain.Reading](time.Minute),
		limiter: ratelimit.New(cfg.RequestsPerMinute),
		cb:      circuitbreaker.New[*TickerResponse](circuitbreaker.DefaultConfig("ticker-" + cfg.Symbol)),
		logger:  log,
		tracer:  tracer,
	}, nil
}

// TickerResponse is the body of the ticker price endpoint.
type TickerResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// APIError is the error body returned by the exchange.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ticker API error %d: %s", e.Code, e.Message)
}

func (f *Feed) Description() string {
	return f.symbol + " ticker"
}

// Close stops the cache janitor.
func (f *Feed) Close() {
	f.cache.Close()
}

func (f *Feed) LatestPrice(ctx context.Context) (domain.Reading, error) {
	if r, ok := f.cache.Get(ctx, f.symbol); ok {
		return r, nil
	}

	ctx, span := f.tracer.Start(ctx, "httpfeed.ticker",
		trace.WithAttributes(attribute.String("symbol", f.symbol)),
	)
	defer span.End()

	if err := f.limiter.Wait(ctx); err != nil {
		return domain.Reading{}, err
	}

	ticker, err := f.cb.Execute(func() (*TickerResponse, error) {
		return f.fetch(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ticker fetch failed")
		return domain.Reading{}, err
	}

	price, err := decimal.NewFromString(ticker.Price)
	if err != nil {
		span.RecordError(err)
		return domain.Reading{}, apperror.New(apperror.CodeTickerFetchFailed,
			apperror.WithCause(err),
			apperror.WithContext("malformed price "+ticker.Price))
	}

	reading := domain.Reading{
		Value:     price.Shift(Decimals).BigInt(),
		Decimals:  Decimals,
		UpdatedAt: f.clock.Now(),
	}
	span.SetAttributes(attribute.String("price", ticker.Price))

	f.logger.Debug(ctx, "ticker price", "symbol", f.symbol, "price", ticker.Price)

	if f.ttl > 0 {
		f.cache.Set(ctx, f.symbol, reading, f.ttl)
	}
	return reading, nil
}

func (f *Feed) fetch(ctx context.Context) (*TickerResponse, error) {
	var result TickerResponse
	resp, err := f.client.NewRequestWithOptions(
		httpclient.WithLabels(
			httpclient.NewLabel("endpoint", "ticker"),
			httpclient.NewLabel("symbol", f.symbol),
		),
		httpclient.WithResponseErrorHandler(tickerErrorHandler),
	).
		SetQueryParam("symbol", f.symbol).
		SetResult(&result).
		Get(ctx, tickerEndpoint)
	if err != nil {
		return nil, apperror.New(apperror.CodeTickerFetchFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to fetch "+f.symbol))
	}
	if resp.IsError() {
		return nil, apperror.New(apperror.CodeTickerFetchFailed,
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.String())))
	}
	return &result, nil
}

func tickerErrorHandler(statusCode int, body []byte) error {
	if statusCode < 400 {
		return nil
	}
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != 0 {
		return &apiErr
	}
	return fmt.Errorf("HTTP %d: %s", statusCode, string(body))
}
