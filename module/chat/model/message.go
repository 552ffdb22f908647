package model

// Attachment is a file reference carried by a message. While an upload is in
// flight only PendingLocalURL is set (an ephemeral blob reference the UI can
// preview); after the upload succeeds RemoteURL replaces it.
type Attachment struct {
	FileName        string `json:"fileName"`
	RemoteURL       string `json:"url,omitempty"`
	PendingLocalURL string `json:"pendingUrl,omitempty"`
}

// Message is the atomic unit of a conversation.
//
// Identity is two-field: ServerID is assigned by the backend once the message
// is persisted, LocalID is generated client-side at creation and retained
// forever on messages this client created. At least one of the two is always
// present on a record accepted into the canonical list; both are present once
// a pending message has been acknowledged.
type Message struct {
	ServerID       string              `json:"messageId,omitempty"`
	LocalID        string              `json:"optimisticId,omitempty"`
	ConversationID string              `json:"conversationId"`
	SenderID       string              `json:"senderId,omitempty"`
	SenderName     string              `json:"username,omitempty"`
	Text           string              `json:"text,omitempty"`
	File           *Attachment         `json:"file,omitempty"`
	CreatedAt      int64               `json:"createdAt"` // unix ms, assigned client-side, never altered
	Edited         bool                `json:"edited,omitempty"`
	EditedAt       int64               `json:"editedAt,omitempty"`
	Reactions      map[string][]string `json:"reactions,omitempty"` // symbol -> reactor ids
	Pending        bool                `json:"pending,omitempty"`
}

// HasIdentity reports whether the record carries at least one identity field.
// Records without any identity are never accepted into the canonical list.
func (m *Message) HasIdentity() bool {
	return m.ServerID != "" || m.LocalID != ""
}

// PrimaryID returns the server id when present, the local id otherwise.
func (m *Message) PrimaryID() string {
	if m.ServerID != "" {
		return m.ServerID
	}
	return m.LocalID
}

// SameIdentity reports whether two records denote the same logical message:
// equal server ids, or equal local ids (the id the client attaches to its
// outgoing action and the server echoes back). No cross-field matching.
func (m *Message) SameIdentity(other *Message) bool {
	if m.ServerID != "" && other.ServerID != "" && m.ServerID == other.ServerID {
		return true
	}
	if m.LocalID != "" && other.LocalID != "" && m.LocalID == other.LocalID {
		return true
	}
	return false
}

// Matches reports whether either identity field of the record equals id.
func (m *Message) Matches(id string) bool {
	if id == "" {
		return false
	}
	return m.ServerID == id || m.LocalID == id
}

// Clone returns a deep copy. The canonical list hands out copies so callers
// can never mutate engine-owned state.
func (m Message) Clone() Message {
	out := m
	if m.File != nil {
		f := *m.File
		out.File = &f
	}
	if m.Reactions != nil {
		out.Reactions = make(map[string][]string, len(m.Reactions))
		for sym, users := range m.Reactions {
			out.Reactions[sym] = append([]string(nil), users...)
		}
	}
	return out
}

// ToggleReaction adds the reactor to the symbol's set, or removes it when
// already present.
func (m *Message) ToggleReaction(symbol, userID string) {
	if symbol == "" || userID == "" {
		return
	}
	if m.Reactions == nil {
		m.Reactions = make(map[string][]string)
	}
	users := m.Reactions[symbol]
	for i, u := range users {
		if u == userID {
			m.Reactions[symbol] = append(users[:i], users[i+1:]...)
			return
		}
	}
	m.Reactions[symbol] = append(users, userID)
}

// CloneMessages deep-copies a message slice.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i := range msgs {
		out[i] = msgs[i].Clone()
	}
	return out
}
