package storage

import (
	gosync "sync"
)

// MemberCache accumulates sender profiles observed on inbound traffic. It is
// an explicit session-scoped object rather than a global, so tests and
// multi-session embeddings each get their own.
type MemberCache struct {
	mu      gosync.RWMutex
	members map[string]string
}

func NewMemberCache() *MemberCache {
	return &MemberCache{members: make(map[string]string)}
}

// Observe records the latest display name seen for a user.
func (c *MemberCache) Observe(userID, displayName string) {
	if userID == "" || displayName == "" {
		return
	}
	c.mu.Lock()
	c.members[userID] = displayName
	c.mu.Unlock()
}

func (c *MemberCache) Get(userID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.members[userID]
	return name, ok
}

func (c *MemberCache) Evict(userID string) {
	c.mu.Lock()
	delete(c.members, userID)
	c.mu.Unlock()
}

func (c *MemberCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.members)
}
