package chat

import (
	"errors"
	gosync "sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jazbelrose/mylg-chat/logger"
	"github.com/jazbelrose/mylg-chat/module/chat/model"
	"github.com/jazbelrose/mylg-chat/tools/safe"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingInterval   = 30 * time.Second
	wsReconnectDelay = 5 * time.Second
)

// FrameHandler receives every inbound text frame off the read pump.
type FrameHandler func(raw []byte)

// WSChannel maintains one client websocket to the push endpoint. It
// reconnects on its own after a drop and reports Ready=false in between, so
// the delivery pipe's readiness retry covers the gap. Writes are serialized;
// gorilla allows one concurrent writer only.
//
// Handlers are attached with SetHandlers after construction, under the same
// mutex the pumps read them through, so the session wiring never races the
// dial. Frames arriving before a handler is attached are dropped.
type WSChannel struct {
	url            string
	reconnectDelay time.Duration

	mu      gosync.Mutex
	conn    *websocket.Conn
	closed  bool
	onFrame FrameHandler
	onOpen  func()
}

func NewWSChannel(url string) *WSChannel {
	ch := &WSChannel{url: url, reconnectDelay: wsReconnectDelay}
	safe.SafeGo(ch.run)
	return ch
}

// SetHandlers attaches the inbound frame handler and the open notification.
// The open notification fires on every (re)connect; when the connection is
// already up at attach time it fires immediately, so the caller never has to
// race the dial.
func (c *WSChannel) SetHandlers(onFrame FrameHandler, onOpen func()) {
	c.mu.Lock()
	c.onFrame = onFrame
	c.onOpen = onOpen
	connected := c.conn != nil
	c.mu.Unlock()
	if connected && onOpen != nil {
		onOpen()
	}
}

// run owns the connection lifecycle: dial, pump, backoff, redial.
func (c *WSChannel) run() {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
		if err != nil {
			logger.Warnf("[ws] dial %s: %v", c.url, err)
			time.Sleep(c.reconnectDelay)
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		c.conn = conn
		onOpen := c.onOpen
		c.mu.Unlock()
		logger.Infof("[ws] connected %s", c.url)
		if onOpen != nil {
			onOpen()
		}

		c.pump(conn)

		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		closed := c.closed
		c.mu.Unlock()
		_ = conn.Close()
		if closed {
			return
		}
		time.Sleep(c.reconnectDelay)
	}
}

// pump reads until the connection errors. A keepalive ticker sends a
// presence ping every 30s; missing pongs trips the read deadline and the
// pump exits into a reconnect.
func (c *WSChannel) pump(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	stop := make(chan struct{})
	defer close(stop)
	safe.SafeGo(func() { c.keepalive(conn, stop) })

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed: %v", err)
			} else {
				logger.Warnf("[ws] read: %v", err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		c.mu.Lock()
		onFrame := c.onFrame
		c.mu.Unlock()
		if onFrame != nil {
			onFrame(data)
		}
	}
}

func (c *WSChannel) keepalive(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			payload, err := model.EncodePresencePing()
			if err != nil {
				continue
			}
			if err := c.write(conn, payload); err != nil {
				logger.Warnf("[ws] keepalive: %v", err)
				return
			}
		}
	}
}

func (c *WSChannel) write(conn *websocket.Conn, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != conn {
		return errors.New("connection replaced")
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// Ready reports whether a live connection is held right now.
func (c *WSChannel) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.closed
}

func (c *WSChannel) Send(payload []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("websocket not connected")
	}
	return c.write(conn, payload)
}

// Reset drops the current connection so the run loop redials. The delivery
// pipe calls this when a send finds the channel not ready.
func (c *WSChannel) Reset() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *WSChannel) Close() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}
