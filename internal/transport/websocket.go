package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"sketchparty/internal/protocol"
)

type Config struct {
	URL              string
	SendBuffer       int
	PingInterval     time.Duration
	ReconnectWait    time.Duration // first retry delay, doubled per attempt
	MaxReconnectWait time.Duration
	MaxAttempts      int // 0 retries until Close
}

func DefaultConfig(url string) Config {
	return Config{
		URL:              url,
		SendBuffer:       256,
		PingInterval:     30 * time.Second,
		ReconnectWait:    time.Second,
		MaxReconnectWait: 30 * time.Second,
	}
}

// WSConn is the websocket transport. A read pump decodes inbound frames
// onto the events channel and owns reconnection; a write pump drains the
// bounded send queue and keeps the connection pinged.
type WSConn struct {
	cfg    Config
	log    zerolog.Logger
	cancel context.CancelFunc

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	send   chan protocol.Envelope
	events chan protocol.Envelope
}

var _ Conn = (*WSConn)(nil)

func Dial(ctx context.Context, cfg Config, log zerolog.Logger) (*WSConn, error) {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}
	conn, _, err := websocket.Dial(ctx, cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", cfg.URL, err)
	}

	lifeCtx, cancel := context.WithCancel(context.Background())
	c := &WSConn{
		cfg:    cfg,
		log:    log,
		cancel: cancel,
		conn:   conn,
		send:   make(chan protocol.Envelope, cfg.SendBuffer),
		events: make(chan protocol.Envelope, cfg.SendBuffer),
	}
	go c.readPump(lifeCtx)
	go c.writePump(lifeCtx)
	return c, nil
}

// Send enqueues an envelope without blocking. A full queue drops the
// frame and reports it; slow connections must not stall the caller.
func (c *WSConn) Send(env protocol.Envelope) error {
	if c.isClosed() {
		return ErrClosed
	}
	select {
	case c.send <- env:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *WSConn) Events() <-chan protocol.Envelope {
	return c.events
}

func (c *WSConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	c.cancel()
	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "client closed")
	}
	return nil
}

func (c *WSConn) readPump(ctx context.Context) {
	defer close(c.events)
	for {
		conn := c.current()
		if conn == nil {
			return
		}
		_, data, err := conn.Read(ctx)
		if err != nil {
			if c.isClosed() || ctx.Err() != nil {
				return
			}
			c.log.Warn().Err(err).Msg("connection lost")
			c.deliver(ctx, syntheticEvent(protocol.EventConnectionError, protocol.ErrorData{Message: err.Error()}))
			if !c.reconnect(ctx) {
				return
			}
			c.deliver(ctx, syntheticEvent(protocol.EventConnectionReconnect, nil))
			continue
		}
		env, err := protocol.ParseEnvelope(data)
		if err != nil {
			c.log.Warn().Err(err).Msg("dropping unreadable frame")
			continue
		}
		c.deliver(ctx, env)
	}
}

func (c *WSConn) deliver(ctx context.Context, env protocol.Envelope) {
	select {
	case c.events <- env:
	case <-ctx.Done():
	}
}

func (c *WSConn) reconnect(ctx context.Context) bool {
	wait := c.cfg.ReconnectWait
	if wait <= 0 {
		wait = time.Second
	}
	for attempt := 1; ; attempt++ {
		if c.isClosed() || ctx.Err() != nil {
			return false
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
		conn, _, err := websocket.Dial(ctx, c.cfg.URL, nil)
		if err == nil {
			c.setConn(conn)
			c.log.Info().Int("attempt", attempt).Msg("reconnected")
			return true
		}
		c.log.Warn().Err(err).Int("attempt", attempt).Msg("reconnect failed")
		if c.cfg.MaxAttempts > 0 && attempt >= c.cfg.MaxAttempts {
			return false
		}
		wait *= 2
		if limit := c.cfg.MaxReconnectWait; limit > 0 && wait > limit {
			wait = limit
		}
	}
}

func (c *WSConn) writePump(ctx context.Context) {
	interval := c.cfg.PingInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-c.send:
			data, err := json.Marshal(env)
			if err != nil {
				c.log.Error().Err(err).Str("event", env.Event).Msg("encoding frame")
				continue
			}
			conn := c.current()
			if conn == nil {
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				c.log.Warn().Err(err).Str("event", env.Event).Msg("dropping frame")
			}
		case <-ticker.C:
			if conn := c.current(); conn != nil {
				if err := conn.Ping(ctx); err != nil {
					c.log.Debug().Err(err).Msg("ping failed")
				}
			}
		}
	}
}

func (c *WSConn) current() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *WSConn) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *WSConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func syntheticEvent(event string, payload any) protocol.Envelope {
	env, err := protocol.NewEnvelope(event, payload)
	if err != nil {
		return protocol.Envelope{Event: event}
	}
	return env
}
