// Package eventfeed streams committed ledger events to websocket clients.
//
// A client opens the socket and sends one subscribe message:
//
//	{"type":"subscribe","afterSeq":42,"emitter":"0x...","name":"BidPlaced"}
//
// The server replays every matching event with a sequence above afterSeq,
// sends a "synced" marker and then forwards live events as they commit.
// A client that falls behind the bus buffer is disconnected and resumes by
// subscribing again with the last sequence it saw.
package eventfeed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/nft-auction/internal/events"
	"github.com/fd1az/nft-auction/internal/logger"
)

// Message types.
const (
	TypeSubscribe = "subscribe"
	TypeEvent     = "event"
	TypeSynced    = "synced"
	TypeError     = "error"
)

const backfillPage = 200

// Subscribe is the first message a client sends.
type Subscribe struct {
	Type     string          `json:"type"`
	AfterSeq uint64          `json:"afterSeq"`
	Emitter  *common.Address `json:"emitter,omitempty"`
	Name     string          `json:"name,omitempty"`
}

// Message is a server frame.
type Message struct {
	Type    string        `json:"type"`
	Event   *events.Event `json:"event,omitempty"`
	LastSeq uint64        `json:"lastSeq,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Source is the ledger the feed reads from.
type Source interface {
	List(ctx context.Context, f events.Filter) ([]events.Event, error)
	Bus() *events.Bus
}

// Config tunes the feed.
type Config struct {
	Port         int
	BufferSize   int
	WriteWait    time.Duration
	HelloTimeout time.Duration
	PingInterval time.Duration
}

func (c *Config) setDefaults() {
	if c.BufferSize <= 0 {
		c.BufferSize = 64
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 5 * time.Second
	}
	if c.HelloTimeout <= 0 {
		c.HelloTimeout = 10 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
}

// Server accepts feed subscriptions.
type Server struct {
	cfg     Config
	source  Source
	log     logger.LoggerInterface
	clients atomic.Int64
	gauge   metric.Int64UpDownCounter
	server  *http.Server
}

// New creates a feed server over source.
func New(cfg Config, source Source, log logger.LoggerInterface) *Server {
	cfg.setDefaults()
	s := &Server{cfg: cfg, source: source, log: log}

	gauge, err := otel.Meter("nft-auction/eventfeed").Int64UpDownCounter(
		"eventfeed.clients",
		metric.WithDescription("Connected event feed clients"),
	)
	if err == nil {
		s.gauge = gauge
	}
	return s
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	return int(s.clients.Load())
}

// Handler returns the websocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.serveWS)
	return mux
}

// Start serves on the configured port in the background.
func (s *Server) Start() {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		s.log.Info(context.Background(), "event feed listening", "port", s.cfg.Port)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error(context.Background(), "event feed server failed", "error", err)
		}
	}()
}

// Shutdown stops accepting connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		s.log.Warn(r.Context(), "event feed accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	s.clients.Add(1)
	s.addGauge(r.Context(), 1)
	defer func() {
		s.clients.Add(-1)
		s.addGauge(context.Background(), -1)
	}()

	if err := s.stream(r.Context(), conn); err != nil {
		var ce websocket.CloseError
		if errors.As(err, &ce) || errors.Is(err, context.Canceled) {
			return
		}
		s.log.Debug(r.Context(), "event feed client dropped", "remote", r.RemoteAddr, "error", err)
	}
}

func (s *Server) stream(ctx context.Context, conn *websocket.Conn) error {
	sub, err := s.readSubscribe(ctx, conn)
	if err != nil {
		s.write(ctx, conn, Message{Type: TypeError, Error: err.Error()})
		conn.Close(websocket.StatusPolicyViolation, "expected subscribe")
		return err
	}

	// Subscribe before the backfill so nothing committed in between is lost.
	live, cancel := s.source.Bus().Subscribe(s.cfg.BufferSize)
	defer cancel()

	// Client frames after subscribe are ignored. CloseRead keeps control
	// frames flowing and cancels ctx when the peer goes away.
	ctx = conn.CloseRead(ctx)

	last, err := s.backfill(ctx, conn, sub)
	if err != nil {
		return err
	}
	if err := s.write(ctx, conn, Message{Type: TypeSynced, LastSeq: last}); err != nil {
		return err
	}

	ping := time.NewTicker(s.cfg.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ping.C:
			pctx, pcancel := context.WithTimeout(ctx, s.cfg.WriteWait)
			err := conn.Ping(pctx)
			pcancel()
			if err != nil {
				return err
			}
		case ev, ok := <-live:
			if !ok {
				conn.Close(websocket.StatusTryAgainLater, "slow consumer")
				return errors.New("evicted from bus")
			}
			if ev.Seq <= last || !matches(sub, ev) {
				continue
			}
			if err := s.write(ctx, conn, Message{Type: TypeEvent, Event: &ev}); err != nil {
				return err
			}
			last = ev.Seq
		}
	}
}

func (s *Server) readSubscribe(ctx context.Context, conn *websocket.Conn) (Subscribe, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.HelloTimeout)
	defer cancel()

	var sub Subscribe
	if err := wsjson.Read(ctx, conn, &sub); err != nil {
		return Subscribe{}, fmt.Errorf("read subscribe: %w", err)
	}
	if sub.Type != TypeSubscribe {
		return Subscribe{}, fmt.Errorf("unexpected message type %q", sub.Type)
	}
	return sub, nil
}

func (s *Server) backfill(ctx context.Context, conn *websocket.Conn, sub Subscribe) (uint64, error) {
	last := sub.AfterSeq
	for {
		page, err := s.source.List(ctx, events.Filter{
			AfterSeq: last,
			Emitter:  sub.Emitter,
			Name:     sub.Name,
			Limit:    backfillPage,
		})
		if err != nil {
			return last, err
		}
		for i := range page {
			if err := s.write(ctx, conn, Message{Type: TypeEvent, Event: &page[i]}); err != nil {
				return last, err
			}
			last = page[i].Seq
		}
		if len(page) < backfillPage {
			return last, nil
		}
	}
}

func (s *Server) write(ctx context.Context, conn *websocket.Conn, m Message) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.WriteWait)
	defer cancel()
	return wsjson.Write(ctx, conn, m)
}

func (s *Server) addGauge(ctx context.Context, n int64) {
	if s.gauge != nil {
		s.gauge.Add(ctx, n)
	}
}

func matches(sub Subscribe, ev events.Event) bool {
	if sub.Emitter != nil && *sub.Emitter != ev.Emitter {
		return false
	}
	return sub.Name == "" || sub.Name == ev.Name
}
