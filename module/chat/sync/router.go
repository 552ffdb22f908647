package sync

import (
	"context"

	"github.com/jazbelrose/mylg-chat/logger"
	"github.com/jazbelrose/mylg-chat/module/chat/model"
)

// Router applies push events to one engine's canonical list. Events for any
// other conversation are ignored outright; the manager swaps routers on
// conversation switch so events can never leak across conversations.
type Router struct {
	e *Engine
}

func NewRouter(e *Engine) *Router {
	return &Router{e: e}
}

func (r *Router) OnEvent(evt model.Event) {
	if evt == nil || evt.Conversation() != r.e.conversationID {
		return
	}
	switch ev := evt.(type) {
	case model.CreateEvent:
		r.e.applyCreate(ev.Msg)
	case model.DeleteEvent:
		r.e.applyDelete(ev)
	case model.EditEvent:
		r.e.applyEdit(ev)
	case model.ReactEvent:
		r.e.applyReact(ev)
	default:
		logger.Warnf("router: unhandled event kind %v", evt.Kind())
	}
}

// applyCreate merges a confirmed message. This is both how other
// participants' messages arrive and how this client's own pending message is
// promoted when the server echoes the create with the matching local id.
func (e *Engine) applyCreate(msg model.Message) {
	if e.members != nil && msg.SenderID != "" && msg.SenderName != "" {
		e.members.Observe(msg.SenderID, msg.SenderName)
	}
	e.mu.Lock()
	e.msgs = e.resolver.Merge(e.msgs, []model.Message{msg})
	e.persistLocked(context.Background())
	e.mu.Unlock()
	e.notify()
}

// applyDelete tombstones and removes. Another client's delete is applied the
// same way as our own; the ledger's immunity only matters against this
// client's stale sources, but recording every delete is harmless and keeps
// late history fetches clean either way.
func (e *Engine) applyDelete(ev model.DeleteEvent) {
	e.ledger.Add(ev.ServerID)
	e.ledger.Add(ev.LocalID)

	e.mu.Lock()
	kept := e.msgs[:0]
	for _, m := range e.msgs {
		if m.Matches(ev.ServerID) || m.Matches(ev.LocalID) {
			continue
		}
		kept = append(kept, m)
	}
	e.msgs = kept
	e.persistLocked(context.Background())
	e.mu.Unlock()
	e.notify()
}

// applyEdit updates the target in place. An edit arriving before its create
// is dropped; no out-of-order buffering is attempted.
func (e *Engine) applyEdit(ev model.EditEvent) {
	e.mu.Lock()
	found := false
	for i := range e.msgs {
		if e.msgs[i].Matches(ev.ServerID) {
			e.msgs[i].Text = ev.Text
			e.msgs[i].Edited = true
			e.msgs[i].EditedAt = ev.EditedAt
			found = true
			break
		}
	}
	if found {
		e.persistLocked(context.Background())
	}
	e.mu.Unlock()
	if found {
		e.notify()
	}
}

// applyReact toggles the reactor in the symbol's set, or adopts the server's
// full reaction map when the event carries one.
func (e *Engine) applyReact(ev model.ReactEvent) {
	e.mu.Lock()
	found := false
	for i := range e.msgs {
		if !e.msgs[i].Matches(ev.MessageID) {
			continue
		}
		if ev.Reactions != nil {
			clean := make(map[string][]string, len(ev.Reactions))
			for sym, users := range ev.Reactions {
				clean[sym] = append([]string(nil), users...)
			}
			e.msgs[i].Reactions = clean
		} else {
			e.msgs[i].ToggleReaction(ev.Symbol, ev.UserID)
		}
		found = true
		break
	}
	if found {
		e.persistLocked(context.Background())
	}
	e.mu.Unlock()
	if found {
		e.notify()
	}
}
