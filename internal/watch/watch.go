// Package watch follows the ledger event feed and resumes from the last
// sequence seen after every reconnect.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/semaphore"

	"github.com/fd1az/nft-auction/internal/apperror"
	"github.com/fd1az/nft-auction/internal/eventfeed"
	"github.com/fd1az/nft-auction/internal/events"
	"github.com/fd1az/nft-auction/internal/httpclient"
	"github.com/fd1az/nft-auction/internal/logger"
	"github.com/fd1az/nft-auction/internal/wsconn"
)

const (
	tracerName = "nft-auction/watch"
	// maxQuotes bounds concurrent USD lookups; bids beyond it go unquoted.
	maxQuotes = 4
)

// Sink receives everything the watcher observes. Calls come from the
// websocket read loop and quote goroutines, so implementations must not block.
type Sink interface {
	Event(e events.Event)
	Synced(lastSeq uint64)
	Quote(auction common.Address, usd string)
	State(state wsconn.State, err error)
}

// Config points the watcher at a daemon.
type Config struct {
	FeedURL  string
	APIURL   string // optional, enables USD quotes for new highest bids
	AfterSeq uint64
	Name     string
	Emitter  *common.Address
	Logger   logger.LoggerInterface
}

// Watcher subscribes to the event feed.
type Watcher struct {
	cfg     Config
	sink    Sink
	log     logger.LoggerInterface
	client  *wsconn.Client
	api     httpclient.Client
	quotes  *semaphore.Weighted
	lastSeq atomic.Uint64
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a watcher. Nothing is dialed until Start.
func New(cfg Config, sink Sink) (*Watcher, error) {
	log := cfg.Logger
	if log == nil {
		log = logger.NewDiscard()
	}

	wcfg := wsconn.DefaultConfig(cfg.FeedURL, "eventfeed")
	wcfg.Logger = log
	client, err := wsconn.New(wcfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		cfg:    cfg,
		sink:   sink,
		log:    log,
		client: client,
		quotes: semaphore.NewWeighted(maxQuotes),
		ctx:    ctx,
		cancel: cancel,
	}
	w.lastSeq.Store(cfg.AfterSeq)

	if cfg.APIURL != "" {
		w.api, err = httpclient.NewInstrumentedClient(
			httpclient.WithProviderName("query-api"),
			httpclient.WithBaseURL(cfg.APIURL),
			httpclient.WithRequestTimeout(5*time.Second),
			httpclient.WithTraceOptions(otel.Tracer(tracerName)),
			httpclient.WithHeaders(map[string]string{"Accept": "application/json"}),
		)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to create api client: %w", err)
		}
	}

	client.OnConnect(w.subscribe)
	client.OnMessage(w.handle)
	client.OnStateChange(sink.State)
	return w, nil
}

// Start dials the feed. Later disconnects are retried in the background.
func (w *Watcher) Start(ctx context.Context) error {
	return w.client.Connect(ctx)
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.cancel()
	return w.client.Close()
}

// LastSeq is the sequence of the last event delivered to the sink.
func (w *Watcher) LastSeq() uint64 {
	return w.lastSeq.Load()
}

func (w *Watcher) subscribe(ctx context.Context, c *wsconn.Client) error {
	after := w.lastSeq.Load()
	w.log.Debug(ctx, "subscribing to event feed", "after_seq", after)
	return c.SendJSON(ctx, eventfeed.Subscribe{
		Type:     eventfeed.TypeSubscribe,
		AfterSeq: after,
		Emitter:  w.cfg.Emitter,
		Name:     w.cfg.Name,
	})
}

func (w *Watcher) handle(ctx context.Context, raw []byte) {
	var msg eventfeed.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		w.log.Warn(ctx, "undecodable feed message", "error", err)
		return
	}

	switch msg.Type {
	case eventfeed.TypeEvent:
		if msg.Event == nil {
			return
		}
		ev := *msg.Event
		// A replay after reconnect can overlap what was already delivered.
		if ev.Seq <= w.lastSeq.Load() {
			return
		}
		w.lastSeq.Store(ev.Seq)
		w.sink.Event(ev)

		if ev.Name == events.BidPlaced && w.api != nil && w.quotes.TryAcquire(1) {
			go func() {
				defer w.quotes.Release(1)
				w.quote(ev.Emitter)
			}()
		}
	case eventfeed.TypeSynced:
		w.sink.Synced(msg.LastSeq)
	case eventfeed.TypeError:
		w.log.Error(ctx, "event feed rejected subscription", "error", msg.Error)
	}
}

type usdResponse struct {
	Value struct {
		Display string `json:"display"`
	} `json:"value"`
}

func (w *Watcher) quote(auction common.Address) {
	ctx, cancel := context.WithTimeout(w.ctx, 5*time.Second)
	defer cancel()

	var out usdResponse
	_, err := w.api.NewRequestWithOptions(
		httpclient.WithLabels(httpclient.NewLabel("endpoint", "highest-bid-usd")),
		httpclient.WithResponseErrorHandler(apiErrorHandler),
	).
		SetResult(&out).
		Get(ctx, "/api/v1/auctions/"+auction.Hex()+"/highest-bid/usd")
	if err != nil {
		w.log.Debug(ctx, "usd quote unavailable", "auction", auction.Hex(), "error", err)
		return
	}
	w.sink.Quote(auction, out.Value.Display)
}

func apiErrorHandler(status int, body []byte) error {
	if status < http.StatusBadRequest {
		return nil
	}
	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err == nil && resp.Error.Code != "" {
		return apperror.New(apperror.Code(resp.Error.Code), apperror.WithMessage(resp.Error.Message))
	}
	return apperror.New(apperror.CodeExternalServiceError,
		apperror.WithContext(fmt.Sprintf("query api returned %d", status)))
}
