// Package main is the entry point for the NFT auction ledger daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/nft-auction/business/auction"
	auctionDI "github.com/fd1az/nft-auction/business/auction/di"
	"github.com/fd1az/nft-auction/business/custody"
	custodyDI "github.com/fd1az/nft-auction/business/custody/di"
	"github.com/fd1az/nft-auction/business/oracle"
	oracleDI "github.com/fd1az/nft-auction/business/oracle/di"
	"github.com/fd1az/nft-auction/business/payment"
	paymentDI "github.com/fd1az/nft-auction/business/payment/di"
	"github.com/fd1az/nft-auction/business/registry"
	registryDI "github.com/fd1az/nft-auction/business/registry/di"
	"github.com/fd1az/nft-auction/internal/api"
	"github.com/fd1az/nft-auction/internal/apm"
	"github.com/fd1az/nft-auction/internal/config"
	"github.com/fd1az/nft-auction/internal/eventfeed"
	"github.com/fd1az/nft-auction/internal/health"
	"github.com/fd1az/nft-auction/internal/logger"
	"github.com/fd1az/nft-auction/internal/metrics"
	"github.com/fd1az/nft-auction/internal/monolith"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("auctiond %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(os.Stderr, parseLevel(cfg.App.LogLevel), cfg.App.Name, nil)
	log.Info(ctx, "starting nft auction ledger",
		"version", version,
		"environment", cfg.App.Environment,
		"store", cfg.Store.Driver,
	)

	stopTelemetry, err := setupTelemetry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stopTelemetry()

	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	// Dependency order: registry escrows through custody and initializes
	// auctions, which settle through custody and payment and price through oracle.
	modules := []monolith.Module{
		&custody.Module{},
		&payment.Module{},
		&oracle.Module{},
		&auction.Module{},
		&registry.Module{},
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	recorder, err := metrics.NewLedgerRecorder(otel.Meter("nft-auction/ledger"))
	if err != nil {
		return fmt.Errorf("failed to create ledger recorder: %w", err)
	}
	ledgerCh, cancelLedger := mono.Events().Bus().Subscribe(cfg.Feed.BufferSize)
	defer cancelLedger()

	healthServer := health.NewServer(cfg.App.HealthPort, version, log)
	healthServer.RegisterCheck("store", health.PingCheck(mono.DB()))
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	}

	svc := mono.Services()
	apiServer := api.New(api.Dependencies{
		Auctions:   auctionDI.GetAuctionService(svc),
		Registry:   registryDI.GetRegistryService(svc),
		Custody:    custodyDI.GetCustodyService(svc),
		Balances:   paymentDI.GetPaymentService(svc),
		Events:     mono.Events(),
		Feeds:      oracleDI.GetOracleService(svc),
		Currencies: mono.AssetRegistry(),
	}, log)

	feed := eventfeed.New(eventfeed.Config{
		Port:       cfg.Feed.Port,
		BufferSize: cfg.Feed.BufferSize,
		WriteWait:  cfg.Feed.WriteWait,
	}, mono.Events(), log)
	feed.Start()
	healthServer.RegisterCheck("eventfeed", func(context.Context) (bool, string) {
		return true, strconv.Itoa(feed.Clients()) + " clients"
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recorder.Run(gctx, ledgerCh)
		return nil
	})
	g.Go(func() error {
		if err := apiServer.Listen(cfg.API.Port); err != nil {
			return fmt.Errorf("query api: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(context.Background(), "shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			log.Error(shutdownCtx, "error stopping query api", "error", err)
		}
		if err := feed.Shutdown(shutdownCtx); err != nil {
			log.Error(shutdownCtx, "error stopping event feed", "error", err)
		}
		if err := healthServer.Stop(shutdownCtx); err != nil {
			log.Error(shutdownCtx, "error stopping health server", "error", err)
		}
		return nil
	})

	log.Info(ctx, "all modules started", "api_port", cfg.API.Port, "feed_port", cfg.Feed.Port)
	return g.Wait()
}

func parseLevel(level string) logger.Level {
	switch level {
	case "debug":
		return logger.LevelDebug
	case "warn":
		return logger.LevelWarn
	case "error":
		return logger.LevelError
	default:
		return logger.LevelInfo
	}
}

// setupTelemetry installs tracing and metrics when enabled and returns the
// function that flushes them.
func setupTelemetry(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (func(), error) {
	if !cfg.Telemetry.Enabled {
		return func() {}, nil
	}

	tp, err := apm.NewTraceProvider(ctx, apm.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Provider:    apm.Provider(cfg.Telemetry.Provider),
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Headers:     cfg.Telemetry.OTLPHeaders,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}
	log.Info(ctx, "tracing initialized", "provider", cfg.Telemetry.Provider)

	opts := []metrics.OptionFn{
		metrics.WithServiceName(cfg.Telemetry.ServiceName),
		metrics.WithProviderConfig(metrics.ProviderCfg{Provider: metrics.PrometheusProvider}),
	}
	if cfg.Telemetry.OTLPEndpoint != "" && cfg.Telemetry.Provider == string(apm.OTLPGRPCProvider) {
		opts = append(opts, metrics.WithProviderConfig(metrics.NewOtelCollectorConfig(
			cfg.Telemetry.OTLPEndpoint, apm.ParseHeaders(cfg.Telemetry.OTLPHeaders), true)))
	}
	mp, err := metrics.NewMetricProvider(opts...)
	if err != nil {
		tp.Stop()
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	promServer := metrics.NewPrometheusServer(metrics.WithPort(strconv.Itoa(cfg.Telemetry.PrometheusPort)))
	go func() {
		if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(context.Background(), "prometheus server failed", "error", err)
		}
	}()
	log.Info(ctx, "prometheus metrics server started", "port", cfg.Telemetry.PrometheusPort)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = promServer.Shutdown(shutdownCtx)
		_ = mp.Shutdown(shutdownCtx)
		_ = tp.Stop()
	}, nil
}
