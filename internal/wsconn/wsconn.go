// Package wsconn is a websocket client that reconnects with exponential backoff.
package wsconn

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/fd1az/nft-auction/internal/apperror"
	"github.com/fd1az/nft-auction/internal/logger"
)

// State represents the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// Config holds WebSocket client configuration.
type Config struct {
	URL            string
	Name           string
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReconnects  int // 0 = infinite
	PingInterval   time.Duration
	PongTimeout    time.Duration
	MaxMessageSize int64
	Logger         logger.LoggerInterface
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url, name string) Config {
	return Config{
		URL:            url,
		Name:           name,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		PingInterval:   30 * time.Second,
		PongTimeout:    10 * time.Second,
		MaxMessageSize: 1 << 20,
	}
}

type (
	MessageHandler     func(ctx context.Context, msg []byte)
	StateChangeHandler func(state State, err error)
	// ConnectHandler runs after every successful dial, before messages are read.
	ConnectHandler func(ctx context.Context, c *Client) error
)

// Client is a websocket client. Handlers must be set before Connect.
type Client struct {
	cfg Config
	log logger.LoggerInterface

	mu         sync.RWMutex
	state      State
	conn       *websocket.Conn
	reconnects int

	onMessage MessageHandler
	onState   StateChangeHandler
	onConnect ConnectHandler

	ctx       context.Context
	cancel    context.CancelFunc
	closing   atomic.Bool
	closeOnce sync.Once
}

// New creates a new WebSocket client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "websocket url is required")
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 100 * time.Millisecond
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = 10 * time.Second
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewDiscard()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		cfg:    cfg,
		log:    log,
		state:  StateDisconnected,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

func (c *Client) OnMessage(h MessageHandler) {
	c.mu.Lock()
	c.onMessage = h
	c.mu.Unlock()
}

func (c *Client) OnStateChange(h StateChangeHandler) {
	c.mu.Lock()
	c.onState = h
	c.mu.Unlock()
}

func (c *Client) OnConnect(h ConnectHandler) {
	c.mu.Lock()
	c.onConnect = h
	c.mu.Unlock()
}

// Connect dials once. Later disconnects are retried in the background.
func (c *Client) Connect(ctx context.Context) error {
	c.setState(StateConnecting, nil)

	if err := c.dial(ctx); err != nil {
		c.setState(StateDisconnected, err)
		return apperror.Wrap(err, apperror.CodeWebSocketConnectionError, c.cfg.URL)
	}
	return nil
}

func (c *Client) dial(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.cfg.URL, nil)
	if err != nil {
		return err
	}
	if c.cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(c.cfg.MaxMessageSize)
	}

	c.mu.Lock()
	c.conn = conn
	c.reconnects = 0
	onConnect := c.onConnect
	c.mu.Unlock()

	c.setState(StateConnected, nil)

	if onConnect != nil {
		if err := onConnect(ctx, c); err != nil {
			conn.CloseNow()
			return err
		}
	}

	go c.readLoop(conn)
	if c.cfg.PingInterval > 0 {
		go c.pingLoop(conn)
	}

	c.log.Info(ctx, "websocket connected", "name", c.cfg.Name, "url", c.cfg.URL)
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(c.ctx)
		if err != nil {
			c.handleDisconnect(conn, err)
			return
		}

		c.mu.RLock()
		h := c.onMessage
		c.mu.RUnlock()
		if h != nil {
			h(c.ctx, data)
		}
	}
}

func (c *Client) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.ctx, c.cfg.PongTimeout)
			err := conn.Ping(ctx)
			cancel()
			if err != nil {
				// Closing the connection makes the read loop reconnect.
				conn.CloseNow()
				return
			}
		}
	}
}

func (c *Client) handleDisconnect(conn *websocket.Conn, cause error) {
	conn.CloseNow()
	if c.closing.Load() || c.ctx.Err() != nil {
		return
	}

	c.log.Warn(c.ctx, "websocket disconnected", "name", c.cfg.Name, "error", cause)
	c.reconnect(cause)
}

func (c *Client) reconnect(cause error) {
	backoff := c.cfg.InitialBackoff
	for {
		c.mu.Lock()
		c.reconnects++
		attempt := c.reconnects
		c.mu.Unlock()

		if c.cfg.MaxReconnects > 0 && attempt > c.cfg.MaxReconnects {
			c.setState(StateDisconnected, cause)
			return
		}
		c.setState(StateReconnecting, cause)

		select {
		case <-c.ctx.Done():
			return
		case <-time.After(backoff):
		}

		err := c.dial(c.ctx)
		if err == nil {
			return
		}
		cause = err
		c.log.Debug(c.ctx, "websocket reconnect failed", "name", c.cfg.Name, "attempt", attempt, "error", err)

		backoff *= 2
		if backoff > c.cfg.MaxBackoff {
			backoff = c.cfg.MaxBackoff
		}
	}
}

// Send writes one text message.
func (c *Client) Send(ctx context.Context, msg []byte) error {
	conn, err := c.connected()
	if err != nil {
		return err
	}
	if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
		return apperror.Wrap(err, apperror.CodeWebSocketSendError, c.cfg.Name)
	}
	return nil
}

// SendJSON writes v as one JSON text message.
func (c *Client) SendJSON(ctx context.Context, v any) error {
	conn, err := c.connected()
	if err != nil {
		return err
	}
	if err := wsjson.Write(ctx, conn, v); err != nil {
		return apperror.Wrap(err, apperror.CodeWebSocketSendError, c.cfg.Name)
	}
	return nil
}

func (c *Client) connected() (*websocket.Conn, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state == StateClosed {
		return nil, apperror.New(apperror.CodeWebSocketClosed, apperror.WithContext(c.cfg.Name))
	}
	if c.state != StateConnected || c.conn == nil {
		return nil, apperror.New(apperror.CodeWebSocketSendError, apperror.WithContext("not connected"))
	}
	return c.conn, nil
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// Close gracefully closes the connection and stops reconnecting. It is idempotent.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closing.Store(true)

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		if conn != nil {
			err := conn.Close(websocket.StatusNormalClosure, "client closing")
			if err != nil && !errors.Is(err, context.Canceled) {
				c.log.Debug(context.Background(), "websocket close", "name", c.cfg.Name, "error", err)
			}
		}
		c.cancel()
		c.setState(StateClosed, nil)
	})
	return nil
}

func (c *Client) setState(state State, err error) {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = state
	h := c.onState
	c.mu.Unlock()

	if h != nil {
		h(state, err)
	}
}
