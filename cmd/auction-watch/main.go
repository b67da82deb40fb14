// Package main is the entry point for the auction feed watcher.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"

	"github.com/fd1az/nft-auction/internal/asset"
	"github.com/fd1az/nft-auction/internal/events"
	"github.com/fd1az/nft-auction/internal/logger"
	"github.com/fd1az/nft-auction/internal/watch"
	"github.com/fd1az/nft-auction/internal/wsconn"
	"github.com/fd1az/nft-auction/pkg/ui"
)

var version = "dev"

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	feedURL := flag.String("feed", envOr("AUCTION_FEED_URL", "ws://localhost:8082/events"), "Event feed websocket URL")
	apiURL := flag.String("api", envOr("AUCTION_API_URL", "http://localhost:8080"), "Query API base URL, empty disables USD quotes")
	afterSeq := flag.Uint64("after", 0, "Replay events after this sequence")
	name := flag.String("name", "", "Only follow events with this name")
	emitter := flag.String("emitter", "", "Only follow events emitted by this address")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("auction-watch %s\n", version)
		os.Exit(0)
	}

	cfg := watch.Config{FeedURL: *feedURL, APIURL: *apiURL, AfterSeq: *afterSeq, Name: *name}
	if *emitter != "" {
		if !common.IsHexAddress(*emitter) {
			fmt.Fprintf(os.Stderr, "error: invalid emitter address %q\n", *emitter)
			os.Exit(2)
		}
		e := common.HexToAddress(*emitter)
		cfg.Emitter = &e
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	if *cliMode {
		err = runCLI(ctx, cfg)
	} else {
		err = runTUI(ctx, cfg)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// logSink prints the feed as structured log lines.
type logSink struct {
	ctx context.Context
	log logger.LoggerInterface
}

func (s logSink) Event(e events.Event) {
	s.log.Info(s.ctx, e.Name, "seq", e.Seq, "emitter", e.Emitter.Hex(), "payload", string(e.Payload))
}

func (s logSink) Synced(lastSeq uint64) {
	s.log.Info(s.ctx, "caught up with ledger", "last_seq", lastSeq)
}

func (s logSink) Quote(auction common.Address, usd string) {
	s.log.Info(s.ctx, "highest bid value", "auction", auction.Hex(), "usd", usd)
}

func (s logSink) State(state wsconn.State, err error) {
	if err != nil {
		s.log.Warn(s.ctx, "feed connection", "state", state, "error", err)
		return
	}
	s.log.Info(s.ctx, "feed connection", "state", state)
}

func runCLI(ctx context.Context, cfg watch.Config) error {
	log := logger.New(os.Stderr, logger.LevelInfo, "auction-watch", nil)
	cfg.Logger = log

	w, err := watch.New(cfg, logSink{ctx: ctx, log: log})
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to connect to event feed: %w", err)
	}
	log.Info(ctx, "watching auctions", "feed", cfg.FeedURL, "after_seq", cfg.AfterSeq)

	<-ctx.Done()
	log.Info(context.Background(), "shutting down", "last_seq", w.LastSeq())
	return nil
}

func runTUI(ctx context.Context, cfg watch.Config) error {
	cfg.Logger = logger.New(io.Discard, logger.LevelError, "auction-watch", nil)

	w, err := watch.New(cfg, ui.NewSink())
	if err != nil {
		return err
	}
	defer w.Close()

	// The feed is dialed once the welcome screen is done.
	ui.OnStartModules = func() {
		if err := w.Start(ctx); err != nil {
			ui.Send(ui.ErrorMsg{Error: fmt.Errorf("failed to connect to event feed: %w", err)})
		}
	}

	p := tea.NewProgram(ui.New(asset.DefaultRegistry(asset.ETH)), tea.WithAltScreen(), tea.WithContext(ctx))
	ui.Program = p

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
