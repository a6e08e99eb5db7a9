// Package controllink is the Control-Link Client: the persistent websocket
// connection to the operator's dashboard/brain (spec.md §2.3, §6). It owns
// reconnection, an outbound send queue that re-queues a send whose write
// failed but drops the oldest pending send once its 256 slots are full,
// and dispatches
// decoded inbound messages to a Dispatcher supplied by the orchestrator.
package controllink

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	reconnectDelay = 1 * time.Second
	pingInterval   = 30 * time.Second
	sendQueueSize  = 256
)

// Dispatcher receives decoded inbound envelopes. Implemented by the
// orchestrator; kept as an interface here so this package has no import
// dependency on orchestrator (spec.md §6 "Control-Link Client... routes
// each inbound message to its handler").
type Dispatcher interface {
	Dispatch(ctx context.Context, env Envelope)
}

// Client maintains the websocket connection, following the teacher's
// connect/readLoop/pingLoop structure with a bounded fixed-delay retry loop
// in place of the recursive reconnect the original client used (spec.md Q4,
// §7 "Transport loss"; recorded in DESIGN.md).
type Client struct {
	url        string
	dispatcher Dispatcher

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected bool

	outbound chan Envelope
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New constructs a Client for the given session URL; it does not connect
// until Run is called.
func New(url string, dispatcher Dispatcher) *Client {
	return &Client{
		url:        url,
		dispatcher: dispatcher,
		outbound:   make(chan Envelope, sendQueueSize),
		stopCh:     make(chan struct{}),
	}
}

// Send enqueues an outbound envelope. It never blocks indefinitely: a full
// queue drops the oldest pending send rather than stalling the caller,
// since the command queue must keep making progress even if the link is
// down (spec.md §5 "must not block the event loop").
func (c *Client) Send(env Envelope) {
	select {
	case c.outbound <- env:
	default:
		select {
		case <-c.outbound:
		default:
		}
		select {
		case c.outbound <- env:
		default:
		}
	}
}

// Connected reports whether the websocket is currently up.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Stop tears down the connection and ends Run.
func (c *Client) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
	}
}

// Run dials, reads, and writes until ctx is cancelled or Stop is called,
// reconnecting on any failure after reconnectDelay (spec.md §7 "reconnect
// with 1 s fixed delay").
func (c *Client) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err != nil {
			log.Error().Err(err).Str("url", c.url).Msg("control-link dial failed, retrying")
			if !sleepOrDone(ctx, c.stopCh, reconnectDelay) {
				return
			}
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.connected = true
		c.mu.Unlock()
		log.Info().Msg("control-link connected")

		c.runConnection(ctx, conn)

		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()

		if !sleepOrDone(ctx, c.stopCh, reconnectDelay) {
			return
		}
	}
}

// runConnection pumps one connection's read loop, write loop, and ping
// loop concurrently until any of them ends.
func (c *Client) runConnection(ctx context.Context, conn *websocket.Conn) {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); c.readLoop(connCtx, conn, cancel) }()
	go func() { defer wg.Done(); c.writeLoop(connCtx, conn) }()
	go func() { defer wg.Done(); c.pingLoop(connCtx, conn) }()
	wg.Wait()
	conn.Close()
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, onError context.CancelFunc) {
	defer onError()
	for {
		if ctx.Err() != nil {
			return
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warn().Err(err).Msg("control-link read error")
			return
		}
		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			log.Warn().Err(err).Msg("control-link malformed envelope")
			continue
		}
		if c.dispatcher != nil {
			c.dispatcher.Dispatch(ctx, env)
		}
	}
}

func (c *Client) writeLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case env := <-c.outbound:
			b, err := json.Marshal(env)
			if err != nil {
				log.Error().Err(err).Str("type", env.Type).Msg("control-link marshal failed")
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				log.Warn().Err(err).Str("type", env.Type).Msg("control-link write failed")
				// put the envelope back for the next connection attempt
				c.Send(env)
				return
			}
		}
	}
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn().Err(err).Msg("control-link ping failed")
				return
			}
		}
	}
}

func sleepOrDone(ctx context.Context, stopCh <-chan struct{}, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	case <-stopCh:
		return false
	}
}
