package sync

import (
	"context"
	"errors"
	"strings"
	gosync "sync"
	"time"

	"github.com/jazbelrose/mylg-chat/logger"
	"github.com/jazbelrose/mylg-chat/module/chat/model"
	"github.com/jazbelrose/mylg-chat/tools/errs"
	"github.com/jazbelrose/mylg-chat/tools/ids"
	"github.com/jazbelrose/mylg-chat/tools/retry"
	"github.com/jazbelrose/mylg-chat/tools/safe"
)

// User-facing status strings surfaced through LastError.
const (
	msgRateLimited = "Too many requests. Please try again later."
	msgLoadFailed  = "Failed to load messages."
	msgSendFailed  = "Failed to send message."
)

// Config wires one engine instance. Channel and History are required; the
// rest degrade gracefully when absent (no snapshots, no uploads, no member
// directory).
type Config struct {
	ConversationID string
	SenderID       string
	SenderName     string

	Channel   Channel
	History   HistoryAPI
	Rest      RestAPI
	Snapshots SnapshotStore
	Uploader  Uploader
	Blobs     BlobRegistry
	Members   MemberDirectory

	SendPolicy    retry.Policy // zero value -> 5 attempts, 1s apart
	HistoryPolicy retry.Policy // zero value -> 1+5 attempts, 2^n backoff

	Now      func() int64 // unix ms clock, injectable for tests
	OnChange func()       // invoked after every canonical-list mutation
}

// Engine owns the canonical message list for exactly one conversation. All
// mutation is serialized through its mutex: user actions, history results
// and push events converge through the same resolver merge, so no
// interleaving can produce a torn list, a duplicate, or a resurrected
// delete. Nothing outside the engine mutates the list directly.
type Engine struct {
	conversationID string
	senderID       string
	senderName     string

	ledger   *TombstoneLedger
	resolver *Resolver
	pipe     *DeliveryPipe
	loader   *HistoryLoader

	rest      RestAPI
	snapshots SnapshotStore
	uploader  Uploader
	blobs     BlobRegistry
	members   MemberDirectory

	now      func() int64
	onChange func()

	mu       gosync.Mutex
	msgs     []model.Message
	loaded   bool
	loading  bool
	detached bool
	lastErr  string
}

func NewEngine(cfg Config) *Engine {
	safe.MustNotNil(cfg.Channel, "Config.Channel")
	safe.MustNotNil(cfg.History, "Config.History")
	if cfg.ConversationID == "" {
		panic("Config.ConversationID must not be empty")
	}
	if cfg.Now == nil {
		cfg.Now = func() int64 { return time.Now().UnixMilli() }
	}

	ledger := NewTombstoneLedger()
	return &Engine{
		conversationID: cfg.ConversationID,
		senderID:       cfg.SenderID,
		senderName:     cfg.SenderName,
		ledger:         ledger,
		resolver:       NewResolver(ledger),
		pipe:           NewDeliveryPipe(cfg.Channel, cfg.SendPolicy),
		loader:         NewHistoryLoader(cfg.History, cfg.HistoryPolicy),
		rest:           cfg.Rest,
		snapshots:      cfg.Snapshots,
		uploader:       cfg.Uploader,
		blobs:          cfg.Blobs,
		members:        cfg.Members,
		now:            cfg.Now,
		onChange:       cfg.OnChange,
	}
}

func (e *Engine) ConversationID() string { return e.conversationID }

// Activate prepares the engine for display: the snapshot cache seeds the
// list when it is empty (a populated in-memory list is never clobbered by a
// stale snapshot), and the history fetch is kicked off the first time only.
func (e *Engine) Activate(ctx context.Context) {
	e.mu.Lock()
	e.detached = false
	if len(e.msgs) == 0 && e.snapshots != nil {
		snap, err := e.snapshots.Read(ctx, e.conversationID)
		if err != nil {
			logger.Warnf("snapshot read %s: %v", e.conversationID, err)
		} else if snap != nil {
			e.msgs = e.resolver.Merge(nil, snap.Messages)
		}
	}
	start := !e.loaded
	if start {
		e.loaded = true
		e.loading = true
	}
	e.mu.Unlock()

	if start {
		// Deliberately not tied to the caller's context: an in-flight fetch
		// must survive a conversation switch (its result lands in the
		// snapshot cache, see loadHistory).
		safe.SafeGo(func() { e.loadHistory(context.Background()) })
	}
	e.notify()
}

// Deactivate writes a final snapshot and stops change notifications. The
// caller (manager) stops routing push events separately.
func (e *Engine) Deactivate(ctx context.Context) {
	e.mu.Lock()
	e.detached = true
	e.persistLocked(ctx)
	e.mu.Unlock()
}

func (e *Engine) loadHistory(ctx context.Context) {
	msgs, err := e.loader.Load(ctx, e.conversationID)
	if err != nil {
		e.mu.Lock()
		e.loading = false
		if errs.IsCode(err, errs.CodeRateLimited) {
			e.lastErr = msgRateLimited
		} else {
			e.lastErr = msgLoadFailed
		}
		e.mu.Unlock()
		logger.Errorf("history load %s: %v", e.conversationID, err)
		e.notify()
		return
	}

	// The server itself may return since-deleted or duplicated records if
	// deletion propagation lagged; clean the set before it meets the list.
	fetched := e.resolver.Dedupe(msgs)

	e.mu.Lock()
	e.loading = false
	e.msgs = e.resolver.Merge(e.msgs, fetched)
	e.persistLocked(ctx)
	e.mu.Unlock()
	e.notify()
}

// Messages returns a copy of the canonical list, CreatedAt ascending.
func (e *Engine) Messages() []model.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return model.CloneMessages(e.msgs)
}

func (e *Engine) Loading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loading
}

func (e *Engine) LastError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

func (e *Engine) ClearError() {
	e.mu.Lock()
	e.lastErr = ""
	e.mu.Unlock()
}

// Send inserts an optimistic pending message and transmits it. On retry
// exhaustion the record stays pending (never silently dropped) so the UI can
// distinguish "failed" from "confirmed", and the error is surfaced.
func (e *Engine) Send(ctx context.Context, text string) (model.Message, error) {
	if strings.TrimSpace(text) == "" {
		return model.Message{}, errors.New("empty message")
	}

	msg := model.Message{
		LocalID:        ids.NewOptimisticID(),
		ConversationID: e.conversationID,
		SenderID:       e.senderID,
		SenderName:     e.senderName,
		Text:           text,
		CreatedAt:      e.now(),
		Pending:        true,
	}
	e.insert(ctx, msg)

	payload, err := model.EncodeCreate(msg)
	if err != nil {
		return msg, err
	}
	if err := e.pipe.Deliver(payload); err != nil {
		e.setError(msgSendFailed)
		logger.Errorf("send %s: %v", e.conversationID, err)
		return msg, err
	}
	return msg, nil
}

// Delete tombstones the target and removes it from the list before any
// network confirmation; local state is the source of truth for "I deleted
// this". Remote cleanup (attachment files, the REST record, the broadcast)
// is attempted afterward and the tombstone is kept regardless of outcome.
func (e *Engine) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	e.mu.Lock()
	var target *model.Message
	for i := range e.msgs {
		if e.msgs[i].Matches(id) {
			m := e.msgs[i].Clone()
			target = &m
			break
		}
	}
	e.ledger.Add(id)
	if target != nil {
		e.ledger.Add(target.ServerID)
		e.ledger.Add(target.LocalID)
	}
	kept := e.msgs[:0]
	for _, m := range e.msgs {
		if !m.Matches(id) {
			kept = append(kept, m)
		}
	}
	e.msgs = kept
	e.persistLocked(ctx)
	e.mu.Unlock()
	e.notify()

	if target == nil {
		return nil
	}
	if e.rest != nil && target.File != nil && target.File.RemoteURL != "" {
		if err := e.rest.DeleteFiles(ctx, e.conversationID, []string{target.File.RemoteURL}); err != nil {
			logger.Errorf("delete files %s: %v", e.conversationID, err)
		}
	}
	if e.rest != nil && target.ServerID != "" {
		if err := e.rest.DeleteMessage(ctx, e.conversationID, target.ServerID); err != nil {
			logger.Errorf("delete message %s: %v", target.ServerID, err)
		}
	}
	payload, err := model.EncodeDelete(e.conversationID, target.ServerID, target.LocalID)
	if err == nil {
		if err := e.pipe.Deliver(payload); err != nil {
			logger.Errorf("broadcast delete %s: %v", id, err)
		}
	}
	return nil
}

// Edit mutates the record in place and transmits best-effort: an optimistic
// edit is never rolled back on delivery failure and no error is surfaced.
func (e *Engine) Edit(ctx context.Context, id, newText string) error {
	if id == "" || newText == "" {
		return nil
	}

	editedAt := e.now()
	var target *model.Message
	e.mu.Lock()
	for i := range e.msgs {
		if e.msgs[i].Matches(id) {
			e.msgs[i].Text = newText
			e.msgs[i].Edited = true
			e.msgs[i].EditedAt = editedAt
			m := e.msgs[i].Clone()
			target = &m
			break
		}
	}
	if target != nil {
		e.persistLocked(ctx)
	}
	e.mu.Unlock()
	if target == nil {
		return nil
	}
	e.notify()

	if e.rest != nil && target.ServerID != "" {
		if err := e.rest.EditMessage(ctx, e.conversationID, target.ServerID, newText, editedAt); err != nil {
			logger.Errorf("edit message %s: %v", target.ServerID, err)
		}
	}
	payload, err := model.EncodeEdit(e.conversationID, target.ServerID, newText, editedAt)
	if err == nil {
		if err := e.pipe.Deliver(payload); err != nil {
			logger.Errorf("broadcast edit %s: %v", id, err)
		}
	}
	return nil
}

// React toggles this user's reaction locally, then transmits. A single
// reaction toggle failing has no user-facing remedy, so delivery errors are
// swallowed after logging.
func (e *Engine) React(ctx context.Context, messageID, symbol string) error {
	if messageID == "" || symbol == "" {
		return nil
	}

	found := false
	e.mu.Lock()
	for i := range e.msgs {
		if e.msgs[i].Matches(messageID) {
			e.msgs[i].ToggleReaction(symbol, e.senderID)
			found = true
			break
		}
	}
	if found {
		e.persistLocked(ctx)
	}
	e.mu.Unlock()
	if !found {
		return nil
	}
	e.notify()

	payload, err := model.EncodeReact(e.conversationID, messageID, symbol, e.senderID)
	if err == nil {
		if err := e.pipe.Deliver(payload); err != nil {
			logger.Errorf("broadcast reaction %s: %v", messageID, err)
		}
	}
	return nil
}

// insert merges one message into the canonical list and persists.
func (e *Engine) insert(ctx context.Context, msg model.Message) {
	e.mu.Lock()
	e.msgs = e.resolver.Merge(e.msgs, []model.Message{msg})
	e.persistLocked(ctx)
	e.mu.Unlock()
	e.notify()
}

// persistLocked rewrites the conversation snapshot; callers hold e.mu.
// Snapshot failures never affect the in-memory list.
func (e *Engine) persistLocked(ctx context.Context) {
	if e.snapshots == nil {
		return
	}
	if err := e.snapshots.Write(ctx, e.conversationID, model.CloneMessages(e.msgs)); err != nil {
		logger.Warnf("snapshot write %s: %v", e.conversationID, err)
	}
}

func (e *Engine) setError(s string) {
	e.mu.Lock()
	e.lastErr = s
	e.mu.Unlock()
	e.notify()
}

func (e *Engine) notify() {
	e.mu.Lock()
	detached := e.detached
	cb := e.onChange
	e.mu.Unlock()
	if cb != nil && !detached {
		cb()
	}
}
