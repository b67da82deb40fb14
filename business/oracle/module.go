// Package oracle implements the price oracle bounded context.
package oracle

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/nft-auction/business/oracle/app"
	oracleDI "github.com/fd1az/nft-auction/business/oracle/di"
	"github.com/fd1az/nft-auction/business/oracle/infra/chainlink"
	"github.com/fd1az/nft-auction/business/oracle/infra/httpfeed"
	"github.com/fd1az/nft-auction/business/oracle/infra/static"
	"github.com/fd1az/nft-auction/internal/apperror"
	"github.com/fd1az/nft-auction/internal/clock"
	"github.com/fd1az/nft-auction/internal/config"
	"github.com/fd1az/nft-auction/internal/di"
	"github.com/fd1az/nft-auction/internal/logger"
	"github.com/fd1az/nft-auction/internal/monolith"
)

// Module implements the oracle bounded context.
type Module struct{}

// RegisterServices registers all oracle services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Only resolved when a chainlink feed is configured.
	di.RegisterToken(c, oracleDI.EthClient, func(sr di.ServiceRegistry) *ethclient.Client {
		cfg := sr.Get("config").(*config.Config)

		client, err := ethclient.Dial(cfg.Ethereum.HTTPURL)
		if err != nil {
			panic(apperror.New(apperror.CodeEthereumConnectionFailed,
				apperror.WithCause(err),
				apperror.WithContext(cfg.Ethereum.HTTPURL)))
		}
		return client
	})

	di.RegisterToken(c, oracleDI.OracleService, func(sr di.ServiceRegistry) *app.OracleService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		clk := sr.Get("clock").(clock.Clock)

		svc := app.NewOracleService(cfg.Oracle.NativeFeedHex(), cfg.Oracle.MaxAge, clk, log)
		for _, fc := range cfg.Oracle.Feeds {
			feed, err := buildFeed(sr, cfg, fc, clk, log)
			if err != nil {
				panic("failed to create price feed: " + err.Error())
			}
			svc.Register(fc.AddressHex(), feed)
		}
		return svc
	})

	return nil
}

func buildFeed(sr di.ServiceRegistry, cfg *config.Config, fc config.PriceFeed, clk clock.Clock, log logger.LoggerInterface) (app.Feed, error) {
	switch fc.Kind {
	case config.FeedKindChainlink:
		return chainlink.NewFeed(oracleDI.GetEthClient(sr), chainlink.Config{
			Aggregator:        fc.SourceHex(),
			Decimals:          fc.Decimals,
			CacheTTL:          cfg.Oracle.CacheTTL,
			RequestsPerMinute: cfg.Oracle.RequestsPerMinute,
		}, log)

	case config.FeedKindHTTP:
		return httpfeed.NewFeed(httpfeed.Config{
			BaseURL:           cfg.Oracle.TickerURL,
			Symbol:            fc.Source,
			CacheTTL:          cfg.Oracle.CacheTTL,
			RequestsPerMinute: cfg.Oracle.RequestsPerMinute,
		}, clk, log)

	case config.FeedKindStatic:
		price, err := fc.PriceDecimal()
		if err != nil {
			return nil, err
		}
		decimals := fc.Decimals
		if decimals == 0 {
			decimals = static.DefaultDecimals
		}
		return static.New(staticDescription(fc), price.Shift(int32(decimals)).BigInt(), decimals, clk), nil
	}
	return nil, fmt.Errorf("unknown feed kind %q", fc.Kind)
}

func staticDescription(fc config.PriceFeed) string {
	if fc.Source != "" {
		return fc.Source
	}
	return "static " + fc.AddressHex().Hex()
}

// Startup reads every feed once so misconfiguration shows up in the logs.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	svc := oracleDI.GetOracleService(mono.Services())

	for _, f := range svc.Feeds() {
		price, err := svc.PriceInUSD(ctx, f.Address)
		if err != nil {
			log.Warn(ctx, "price feed unavailable", "feed", f.Address.Hex(), "description", f.Description, "error", err)
			continue
		}
		log.Info(ctx, "price feed ready", "feed", f.Address.Hex(), "description", f.Description,
			"native", f.Native, "usd", price.String())
	}

	log.Info(ctx, "oracle module started", "feeds", len(svc.Feeds()))
	return nil
}
