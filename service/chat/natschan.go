package chat

import (
	"errors"
	gosync "sync"

	"github.com/nats-io/nats.go"

	"github.com/jazbelrose/mylg-chat/logger"
)

// NATSChannel is the broker-backed alternative to the websocket channel,
// used when the deployment fronts the push fan-out with NATS instead of a
// direct socket. Outbound frames publish to sendSubject; inbound frames
// arrive on recvSubject. Handlers attach after construction via SetHandlers,
// same contract as WSChannel.
type NATSChannel struct {
	sendSubject string

	mu      gosync.Mutex
	conn    *nats.Conn
	sub     *nats.Subscription
	onFrame FrameHandler
	onOpen  func()
}

type NATSConfig struct {
	URL         string
	Name        string
	SendSubject string
	RecvSubject string
}

func NewNATSChannel(cfg NATSConfig) (*NATSChannel, error) {
	ch := &NATSChannel{sendSubject: cfg.SendSubject}
	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infof("[nats] reconnected %s", nc.ConnectedUrl())
			ch.notifyOpen()
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warnf("[nats] disconnected: %v", err)
		}),
	)
	if err != nil {
		return nil, err
	}
	ch.conn = conn

	sub, err := conn.Subscribe(cfg.RecvSubject, func(m *nats.Msg) {
		ch.mu.Lock()
		onFrame := ch.onFrame
		ch.mu.Unlock()
		if onFrame != nil {
			onFrame(m.Data)
		}
	})
	if err != nil {
		conn.Close()
		return nil, err
	}
	ch.sub = sub
	return ch, nil
}

// SetHandlers attaches the inbound frame handler and the open notification.
// Connect is synchronous, so the connection is normally already up here and
// the open notification fires immediately; reconnects fire it again.
func (c *NATSChannel) SetHandlers(onFrame FrameHandler, onOpen func()) {
	c.mu.Lock()
	c.onFrame = onFrame
	c.onOpen = onOpen
	connected := c.conn != nil && c.conn.Status() == nats.CONNECTED
	c.mu.Unlock()
	if connected && onOpen != nil {
		onOpen()
	}
}

func (c *NATSChannel) notifyOpen() {
	c.mu.Lock()
	onOpen := c.onOpen
	c.mu.Unlock()
	if onOpen != nil {
		onOpen()
	}
}

func (c *NATSChannel) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && c.conn.Status() == nats.CONNECTED
}

func (c *NATSChannel) Send(payload []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errors.New("nats connection closed")
	}
	return conn.Publish(c.sendSubject, payload)
}

// Reset is a no-op; the client library drives its own reconnect loop and
// Ready flips back once it lands.
func (c *NATSChannel) Reset() error { return nil }

func (c *NATSChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub != nil {
		_ = c.sub.Unsubscribe()
		c.sub = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	return nil
}
