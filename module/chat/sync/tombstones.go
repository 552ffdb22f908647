package sync

import (
	gosync "sync"

	"github.com/jazbelrose/mylg-chat/module/chat/model"
)

// TombstoneLedger records identities of deleted messages for the lifetime of
// the session. Entries are never removed: a message the user just deleted
// must not reappear when an HTTP history fetch issued before the delete
// resolves afterward, or when a stale create frame is replayed. The ledger is
// deliberately not persisted: a delete resurrected by another client in a
// later session is legitimate new state; only this client's own stale data
// must be immune.
type TombstoneLedger struct {
	mu  gosync.RWMutex
	ids map[string]struct{}
}

func NewTombstoneLedger() *TombstoneLedger {
	return &TombstoneLedger{ids: make(map[string]struct{})}
}

func (l *TombstoneLedger) Add(id string) {
	if id == "" {
		return
	}
	l.mu.Lock()
	l.ids[id] = struct{}{}
	l.mu.Unlock()
}

func (l *TombstoneLedger) Contains(id string) bool {
	if id == "" {
		return false
	}
	l.mu.RLock()
	_, ok := l.ids[id]
	l.mu.RUnlock()
	return ok
}

// Hits reports whether either identity of the message is tombstoned.
func (l *TombstoneLedger) Hits(m *model.Message) bool {
	return l.Contains(m.ServerID) || l.Contains(m.LocalID)
}

func (l *TombstoneLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ids)
}
