package model

// ConversationSnapshot is the persisted copy of a conversation's canonical
// list, written after every mutation and read once per activation to avoid an
// empty-state flash. It carries no compatibility requirement; the stored form
// is whatever the snapshot store serializes this struct to.
type ConversationSnapshot struct {
	ConversationID string    `json:"conversationId"`
	Messages       []Message `json:"messages"`
	CapturedAt     int64     `json:"capturedAt"` // unix ms
}
