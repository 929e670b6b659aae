package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"signal-lab/internal/domain"
)

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("publisher closed")

// WebSocketOptions configures a WebSocketPublisher.
type WebSocketOptions struct {
	URL          string
	Header       http.Header
	WriteTimeout time.Duration // default 5s
	DialTimeout  time.Duration // default 10s
	Logger       *zap.Logger
}

// WebSocketPublisher writes decisions as JSON text frames to a single endpoint.
// The connection is dialed lazily and redialed once after a failed write.
type WebSocketPublisher struct {
	opts   WebSocketOptions
	dialer *websocket.Dialer
	logger *zap.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// NewWebSocketPublisher creates a publisher for opts.URL.
func NewWebSocketPublisher(opts WebSocketOptions) *WebSocketPublisher {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketPublisher{
		opts:   opts,
		dialer: &websocket.Dialer{HandshakeTimeout: opts.DialTimeout},
		logger: logger,
	}
}

var _ DecisionSink = (*WebSocketPublisher)(nil)

// Publish writes d to the endpoint.
func (p *WebSocketPublisher) Publish(ctx context.Context, d domain.TradeDecision) error {
	data, err := encode(d)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPublisherClosed
	}

	err = p.write(ctx, data)
	if err == nil {
		return nil
	}
	p.logger.Warn("websocket write failed, reconnecting", zap.String("url", p.opts.URL), zap.Error(err))
	p.drop()
	if err := p.write(ctx, data); err != nil {
		p.drop()
		return err
	}
	return nil
}

// Close sends a close frame and releases the connection.
func (p *WebSocketPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.conn == nil {
		return nil
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = p.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(p.opts.WriteTimeout))
	err := p.conn.Close()
	p.conn = nil
	return err
}

// write must be called with mu held.
func (p *WebSocketPublisher) write(ctx context.Context, data []byte) error {
	if p.conn == nil {
		conn, _, err := p.dialer.DialContext(ctx, p.opts.URL, p.opts.Header)
		if err != nil {
			return fmt.Errorf("dial %s: %w", p.opts.URL, err)
		}
		p.conn = conn
		p.logger.Info("websocket connected", zap.String("url", p.opts.URL))
	}

	deadline := time.Now().Add(p.opts.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := p.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

func (p *WebSocketPublisher) drop() {
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
