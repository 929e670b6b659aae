package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-lab/internal/domain"
)

// wsServer accepts connections and forwards every text frame to msgs.
func wsServer(t *testing.T) (*httptest.Server, <-chan Message, *atomic.Int32) {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	msgs := make(chan Message, 16)
	var conns atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns.Add(1)
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var m Message
			if json.Unmarshal(data, &m) == nil {
				msgs <- m
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, msgs, &conns
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func receive(t *testing.T, msgs <-chan Message) Message {
	t.Helper()
	select {
	case m := <-msgs:
		return m
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestWebSocketPublisher_Publish(t *testing.T) {
	srv, msgs, conns := wsServer(t)
	p := NewWebSocketPublisher(WebSocketOptions{URL: wsURL(srv)})
	defer p.Close()

	ctx := context.Background()
	require.NoError(t, p.Publish(ctx, buyDecision("BTCUSDT")))
	require.NoError(t, p.Publish(ctx, buyDecision("ETHUSDT")))

	assert.Equal(t, "BTCUSDT", receive(t, msgs).Symbol)
	assert.Equal(t, "ETHUSDT", receive(t, msgs).Symbol)
	assert.Equal(t, int32(1), conns.Load())
}

func TestWebSocketPublisher_Reconnect(t *testing.T) {
	srv, msgs, conns := wsServer(t)
	p := NewWebSocketPublisher(WebSocketOptions{URL: wsURL(srv)})
	defer p.Close()

	ctx := context.Background()
	require.NoError(t, p.Publish(ctx, buyDecision("BTCUSDT")))
	receive(t, msgs)

	// Break the connection underneath the publisher.
	p.mu.Lock()
	require.NoError(t, p.conn.UnderlyingConn().Close())
	p.mu.Unlock()

	require.NoError(t, p.Publish(ctx, buyDecision("SOLUSDT")))
	assert.Equal(t, "SOLUSDT", receive(t, msgs).Symbol)
	assert.Equal(t, int32(2), conns.Load())
}

func TestWebSocketPublisher_DialFailure(t *testing.T) {
	p := NewWebSocketPublisher(WebSocketOptions{URL: "ws://127.0.0.1:1/ws", DialTimeout: time.Second})
	err := p.Publish(context.Background(), buyDecision("BTCUSDT"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial")
}

func TestWebSocketPublisher_Closed(t *testing.T) {
	srv, _, _ := wsServer(t)
	p := NewWebSocketPublisher(WebSocketOptions{URL: wsURL(srv)})
	require.NoError(t, p.Close())

	err := p.Publish(context.Background(), buyDecision("BTCUSDT"))
	assert.ErrorIs(t, err, ErrPublisherClosed)
}

func TestWebSocketPublisher_Hold(t *testing.T) {
	p := NewWebSocketPublisher(WebSocketOptions{URL: "ws://unused"})
	err := p.Publish(context.Background(), domain.NewHold("BTCUSDT", 1, 0))
	assert.ErrorIs(t, err, ErrHoldDecision)
}
