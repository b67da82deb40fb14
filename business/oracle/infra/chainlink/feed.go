// Package chainlink reads prices from AggregatorV3 contracts over JSON-RPC.
package chainlink

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/nft-auction/business/oracle/app"
	"github.com/fd1az/nft-auction/business/oracle/domain"
	"github.com/fd1az/nft-auction/internal/apperror"
	"github.com/fd1az/nft-auction/internal/cache"
	"github.com/fd1az/nft-auction/internal/circuitbreaker"
	"github.com/fd1az/nft-auction/internal/logger"
	"github.com/fd1az/nft-auction/internal/ratelimit"
)

const (
	tracerName = "chainlink"
	meterName  = "chainlink"
)

var _ app.Feed = (*Feed)(nil)

// Caller is the part of ethclient.Client the feed needs.
type Caller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Config tunes a Feed.
type Config struct {
	Aggregator        common.Address
	Decimals          uint8 // 0 means ask the aggregator
	CacheTTL          time.Duration
	RequestsPerMinute int
}

type feedMetrics struct {
	readsTotal  metric.Int64Counter
	readLatency metric.Float64Histogram
	readErrors  metric.Int64Counter
}

// Feed reads one aggregator. Answers are cached for CacheTTL and calls go
// through a rate limiter and a circuit breaker.
type Feed struct {
	client     Caller
	aggregator common.Address
	abi        abi.ABI
	ttl        time.Duration

	decimalsMu sync.Mutex
	decimals   uint8

	cache   *cache.Cache[common.Address, domain.Reading]
	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[[]byte]
	logger  logger.LoggerInterface

	tracer  trace.Tracer
	metrics *feedMetrics
}

// NewFeed creates a feed for cfg.Aggregator.
func NewFeed(client Caller, cfg Config, log logger.LoggerInterface) (*Feed, error) {
	parsed, err := abi.JSON(strings.NewReader(AggregatorV3ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse aggregator ABI: %w", err)
	}

	f := &Feed{
		client:     client,
		aggregator: cfg.Aggregator,
		abi:        parsed,
		ttl:        cfg.CacheTTL,
		cache:      cache.New[common.Address, domain.Reading](time.Minute),
		limiter:    ratelimit.New(cfg.RequestsPerMinute),
		cb:         circuitbreaker.New[[]byte](circuitbreaker.DefaultConfig("chainlink-" + cfg.Aggregator.Hex())),
		logger:     log,
		tracer:     otel.Tracer(tracerName),
	}
	f.decimals = cfg.Decimals

	if err := f.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return f, nil
}

func (f *Feed) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	f.metrics = &feedMetrics{}

	f.metrics.readsTotal, err = meter.Int64Counter(
		"chainlink_reads_total",
		metric.WithDescription("Total aggregator reads"),
	)
	if err != nil {
		return err
	}

	f.metrics.readLatency, err = meter.Float64Histogram(
		"chainlink_read_latency_ms",
		metric.WithDescription("Aggregator read latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	f.metrics.readErrors, err = meter.Int64Counter(
		"chainlink_read_errors_total",
		metric.WithDescription("Total aggregator read errors"),
	)
	return err
}

// Description names the aggregator.
func (f *Feed) Description() string {
	return "chainlink " + f.aggregator.Hex()
}

// LatestPrice returns the latest round of the aggregator.
func (f *Feed) LatestPrice(ctx context.Context) (domain.Reading, error) {
	if r, ok := f.cache.Get(ctx, f.aggregator); ok {
		return r, nil
	}

	ctx, span := f.tracer.Start(ctx, "chainlink.latest_round_data",
		trace.WithAttributes(attribute.String("aggregator", f.aggregator.Hex())),
	)
	defer span.End()

	start := time.Now()
	f.metrics.readsTotal.Add(ctx, 1)

	reading, err := f.read(ctx)
	f.metrics.readLatency.Record(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		f.metrics.readErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return domain.Reading{}, err
	}

	span.SetAttributes(
		attribute.String("answer", reading.Value.String()),
		attribute.Int("decimals", int(reading.Decimals)),
	)
	span.SetStatus(codes.Ok, "price received")

	f.logger.Debug(ctx, "chainlink round",
		"aggregator", f.aggregator.Hex(),
		"answer", reading.Value.String(),
		"updated_at", reading.UpdatedAt,
	)

	if f.ttl > 0 {
		f.cache.Set(ctx, f.aggregator, reading, f.ttl)
	}
	return reading, nil
}

// Close stops the cache janitor.
func (f *Feed) Close() {
	f.cache.Close()
}

func (f *Feed) read(ctx context.Context) (domain.Reading, error) {
	decimals, err := f.loadDecimals(ctx)
	if err != nil {
		return domain.Reading{}, err
	}

	out, err := f.call(ctx, "latestRoundData")
	if err != nil {
		return domain.Reading{}, err
	}

	var round RoundData
	if err := f.abi.UnpackIntoInterface(&round, "latestRoundData", out); err != nil {
		return domain.Reading{}, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to decode latestRoundData"))
	}

	return domain.Reading{
		Value:     round.Answer,
		Decimals:  decimals,
		UpdatedAt: time.Unix(round.UpdatedAt.Int64(), 0).UTC(),
	}, nil
}

// loadDecimals asks the aggregator once. Failures are not remembered.
func (f *Feed) loadDecimals(ctx context.Context) (uint8, error) {
	f.decimalsMu.Lock()
	defer f.decimalsMu.Unlock()

	if f.decimals > 0 {
		return f.decimals, nil
	}

	out, err := f.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	values, err := f.abi.Unpack("decimals", out)
	if err != nil || len(values) != 1 {
		return 0, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to decode decimals"))
	}
	f.decimals = values[0].(uint8)
	return f.decimals, nil
}

func (f *Feed) call(ctx context.Context, method string) ([]byte, error) {
	data, err := f.abi.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", method, err)
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, apperror.New(apperror.CodeRateLimitExceeded,
			apperror.WithCause(err),
			apperror.WithContext(method+" call to "+f.aggregator.Hex()))
	}

	out, err := f.cb.Execute(func() ([]byte, error) {
		return f.client.CallContract(ctx, ethereum.CallMsg{
			To:   &f.aggregator,
			Data: data,
		}, nil)
	})
	if err != nil {
		if apperror.HasCode(err, apperror.CodeCircuitOpen) {
			return nil, err
		}
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s call to %s failed", method, f.aggregator.Hex())))
	}
	return out, nil
}
