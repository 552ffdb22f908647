package sync

import (
	"context"
	"errors"
	gosync "sync"

	"github.com/jazbelrose/mylg-chat/logger"
	"github.com/jazbelrose/mylg-chat/module/chat/model"
	"github.com/jazbelrose/mylg-chat/tools/retry"
	"github.com/jazbelrose/mylg-chat/tools/safe"
)

// EngineFactory builds the engine for a conversation on first activation.
type EngineFactory func(conversationID string) *Engine

// ManagerConfig wires one manager instance.
type ManagerConfig struct {
	Channel Channel
	Factory EngineFactory

	// AnnouncePolicy bounds delivery of the active-conversation announce.
	// Zero value selects the default send bounds.
	AnnouncePolicy retry.Policy
}

// Manager owns the session's engines and the single push channel. Engines
// are retained for the whole session so a re-activated conversation keeps
// its tombstone ledger and its loaded-once history guard. Exactly one
// engine is routed to at a time.
type Manager struct {
	ch      Channel
	factory EngineFactory
	pipe    *DeliveryPipe

	mu      gosync.Mutex
	engines map[string]*Engine
	router  *Router
	active  *Engine
}

func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		ch:      cfg.Channel,
		factory: cfg.Factory,
		pipe:    NewDeliveryPipe(cfg.Channel, cfg.AnnouncePolicy),
		engines: make(map[string]*Engine),
	}
}

// Activate switches the session to a conversation: the old engine gets a
// final snapshot and stops receiving events, the new one is seeded and
// announced over the channel. Activating the already-active conversation is
// a no-op.
func (m *Manager) Activate(ctx context.Context, conversationID string) *Engine {
	m.mu.Lock()
	if m.active != nil && m.active.ConversationID() == conversationID {
		eng := m.active
		m.mu.Unlock()
		return eng
	}
	old := m.active
	eng, ok := m.engines[conversationID]
	if !ok {
		eng = m.factory(conversationID)
		m.engines[conversationID] = eng
	}
	m.active = eng
	m.router = NewRouter(eng)
	m.mu.Unlock()

	if old != nil {
		old.Deactivate(ctx)
	}
	eng.Activate(ctx)
	m.announce(conversationID)
	return eng
}

// announce tells the push endpoint which conversation this session watches.
// Delivery rides the pipe's readiness retry, so an announce issued while the
// channel is still connecting is not lost with it.
func (m *Manager) announce(conversationID string) {
	payload, err := model.EncodeSetActiveConversation(conversationID)
	if err != nil {
		return
	}
	safe.SafeGo(func() {
		if err := m.pipe.Deliver(payload); err != nil {
			logger.Warnf("announce conversation %s: %v", conversationID, err)
		}
	})
}

// HandleOpen re-announces the active conversation. Wire it to the channel's
// open notification so a reconnect restores the server-side subscription.
func (m *Manager) HandleOpen() {
	m.mu.Lock()
	active := m.active
	m.mu.Unlock()
	if active != nil {
		m.announce(active.ConversationID())
	}
}

// Active returns the engine currently routed to, or nil.
func (m *Manager) Active() *Engine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// HandleFrame parses a raw push frame and routes it to the active engine.
// Frames outside the event vocabulary (presence acks, unrelated broadcasts)
// are skipped quietly.
func (m *Manager) HandleFrame(raw []byte) {
	evt, err := model.ParseEvent(raw)
	if err != nil {
		if errors.Is(err, model.ErrUnknownAction) {
			logger.Debug("skip frame: " + err.Error())
		} else {
			logger.Warnf("drop frame: %v", err)
		}
		return
	}
	m.mu.Lock()
	r := m.router
	m.mu.Unlock()
	if r != nil {
		r.OnEvent(evt)
	}
}

// Close snapshots the active conversation and shuts the channel down.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	active := m.active
	m.active = nil
	m.router = nil
	m.mu.Unlock()

	if active != nil {
		active.Deactivate(ctx)
	}
	return m.ch.Close()
}
