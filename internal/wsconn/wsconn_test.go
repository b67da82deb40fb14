package wsconn

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/nft-auction/internal/apperror"
)

func wsServer(t *testing.T, handler func(conn *websocket.Conn)) (*httptest.Server, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Logf("websocket accept error: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		if handler != nil {
			handler(conn)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.Read(context.Background()); err != nil {
			return
		}
	}
}

func echo(conn *websocket.Conn) {
	ctx := context.Background()
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if err := conn.Write(ctx, typ, data); err != nil {
			return
		}
	}
}

func newClient(t *testing.T, url string, tweak func(*Config)) *Client {
	t.Helper()
	cfg := DefaultConfig(url, "test")
	cfg.PingInterval = 0
	if tweak != nil {
		tweak(&cfg)
	}
	c, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := New(Config{})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidInput))
}

func TestClient_Connect(t *testing.T) {
	_, url := wsServer(t, drain)
	c := newClient(t, url, nil)

	require.NoError(t, c.Connect(context.Background()))
	assert.True(t, c.IsConnected())
}

func TestClient_ConnectFailure(t *testing.T) {
	c := newClient(t, "ws://127.0.0.1:1", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := c.Connect(ctx)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeWebSocketConnectionError))
	assert.Equal(t, StateDisconnected, c.State())
}

func TestClient_SendBeforeConnect(t *testing.T) {
	c := newClient(t, "ws://127.0.0.1:1", nil)
	err := c.Send(context.Background(), []byte("x"))
	assert.True(t, apperror.HasCode(err, apperror.CodeWebSocketSendError))
}

func TestClient_SendJSON(t *testing.T) {
	got := make(chan []byte, 1)
	_, url := wsServer(t, func(conn *websocket.Conn) {
		_, data, err := conn.Read(context.Background())
		if err == nil {
			got <- data
		}
	})
	c := newClient(t, url, nil)
	ctx := context.Background()
	require.NoError(t, c.Connect(ctx))

	require.NoError(t, c.SendJSON(ctx, map[string]any{"afterSeq": 42}))

	select {
	case data := <-got:
		var parsed map[string]any
		require.NoError(t, json.Unmarshal(data, &parsed))
		assert.Equal(t, float64(42), parsed["afterSeq"])
	case <-time.After(2 * time.Second):
		t.Fatal("server did not receive message")
	}
}

func TestClient_OnMessage(t *testing.T) {
	_, url := wsServer(t, echo)
	c := newClient(t, url, nil)

	received := make(chan []byte, 1)
	c.OnMessage(func(_ context.Context, msg []byte) { received <- msg })

	ctx := context.Background()
	require.NoError(t, c.Connect(ctx))
	require.NoError(t, c.Send(ctx, []byte(`{"name":"BidPlaced"}`)))

	select {
	case msg := <-received:
		assert.JSONEq(t, `{"name":"BidPlaced"}`, string(msg))
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestClient_StateChanges(t *testing.T) {
	_, url := wsServer(t, drain)
	c := newClient(t, url, nil)

	var mu sync.Mutex
	var states []State
	c.OnStateChange(func(s State, _ error) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateConnecting, StateConnected, StateClosed}, states)
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	_, url := wsServer(t, drain)
	c := newClient(t, url, nil)
	require.NoError(t, c.Connect(context.Background()))

	require.NoError(t, c.Close())
	assert.Equal(t, StateClosed, c.State())
	assert.NoError(t, c.Close())

	err := c.Send(context.Background(), []byte("late"))
	assert.True(t, apperror.HasCode(err, apperror.CodeWebSocketClosed))
}

func TestClient_ConcurrentSend(t *testing.T) {
	var count atomic.Int32
	_, url := wsServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.Read(context.Background()); err != nil {
				return
			}
			count.Add(1)
		}
	})
	c := newClient(t, url, nil)
	ctx := context.Background()
	require.NoError(t, c.Connect(ctx))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				assert.NoError(t, c.SendJSON(ctx, map[string]int{"sender": id, "n": j}))
			}
		}(i)
	}
	wg.Wait()

	assert.Eventually(t, func() bool { return count.Load() == 50 }, 2*time.Second, 10*time.Millisecond)
}

func TestClient_ReconnectsAndRunsOnConnect(t *testing.T) {
	var dials atomic.Int32
	_, url := wsServer(t, func(conn *websocket.Conn) {
		// The first connection drops right away, the second stays up.
		if dials.Add(1) == 1 {
			return
		}
		drain(conn)
	})
	c := newClient(t, url, func(cfg *Config) {
		cfg.InitialBackoff = 10 * time.Millisecond
	})

	var hooks atomic.Int32
	c.OnConnect(func(ctx context.Context, c *Client) error {
		hooks.Add(1)
		return nil
	})

	require.NoError(t, c.Connect(context.Background()))

	assert.Eventually(t, func() bool {
		return dials.Load() == 2 && hooks.Load() == 2 && c.IsConnected()
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClient_MaxMessageSize(t *testing.T) {
	_, url := wsServer(t, func(conn *websocket.Conn) {
		conn.Write(context.Background(), websocket.MessageText, []byte(strings.Repeat("A", 1<<16)))
		time.Sleep(500 * time.Millisecond)
	})
	c := newClient(t, url, func(cfg *Config) {
		cfg.MaxMessageSize = 100
	})

	require.NoError(t, c.Connect(context.Background()))

	assert.Eventually(t, func() bool {
		return c.State() != StateConnected
	}, time.Second, 10*time.Millisecond)
}
