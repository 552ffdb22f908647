package storage

import (
	"context"
	gosync "sync"
	"time"

	"github.com/jazbelrose/mylg-chat/module/chat/model"
)

// MemorySnapshots is the in-process fallback store, used when Redis is not
// configured and throughout the test suite. Staleness is judged at read time
// against CapturedAt.
type MemorySnapshots struct {
	ttl time.Duration
	now func() int64

	mu    gosync.RWMutex
	snaps map[string]model.ConversationSnapshot
}

func NewMemorySnapshots(ttl time.Duration) *MemorySnapshots {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &MemorySnapshots{
		ttl:   ttl,
		now:   func() int64 { return time.Now().UnixMilli() },
		snaps: make(map[string]model.ConversationSnapshot),
	}
}

// SetClock overrides the staleness clock (unix ms).
func (s *MemorySnapshots) SetClock(now func() int64) { s.now = now }

func (s *MemorySnapshots) Read(_ context.Context, conversationID string) (*model.ConversationSnapshot, error) {
	s.mu.RLock()
	snap, ok := s.snaps[conversationID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if s.now()-snap.CapturedAt > s.ttl.Milliseconds() {
		s.mu.Lock()
		delete(s.snaps, conversationID)
		s.mu.Unlock()
		return nil, nil
	}
	out := snap
	out.Messages = model.CloneMessages(snap.Messages)
	return &out, nil
}

func (s *MemorySnapshots) Write(_ context.Context, conversationID string, msgs []model.Message) error {
	snap := model.ConversationSnapshot{
		ConversationID: conversationID,
		Messages:       model.CloneMessages(msgs),
		CapturedAt:     s.now(),
	}
	s.mu.Lock()
	s.snaps[conversationID] = snap
	s.mu.Unlock()
	return nil
}

func (s *MemorySnapshots) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snaps)
}
