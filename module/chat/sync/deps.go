package sync

import (
	"context"

	"github.com/jazbelrose/mylg-chat/module/chat/model"
)

// Channel is the bidirectional push transport shared by the outbound
// delivery pipe and the inbound event router.
type Channel interface {
	// Ready reports whether the channel is open for writes.
	Ready() bool
	Send(payload []byte) error
	// Reset discards a half-open handle so the next readiness check starts
	// from a clean state. Implementations that manage their own reconnects
	// may treat this as a no-op.
	Reset() error
	Close() error
}

// HistoryAPI fetches server-confirmed history. A rate-limited response is
// reported as errs.CodeRateLimited so the loader can back off.
type HistoryAPI interface {
	Messages(ctx context.Context, conversationID string) ([]model.Message, error)
}

// RestAPI covers the collaborator-owned mutation endpoints used by the
// delete and edit paths.
type RestAPI interface {
	DeleteMessage(ctx context.Context, conversationID, serverID string) error
	EditMessage(ctx context.Context, conversationID, serverID, text string, editedAt int64) error
	DeleteFiles(ctx context.Context, conversationID string, urls []string) error
}

// SnapshotStore persists the canonical list per conversation with a TTL.
// Read returns (nil, nil) when no fresh snapshot exists.
type SnapshotStore interface {
	Read(ctx context.Context, conversationID string) (*model.ConversationSnapshot, error)
	Write(ctx context.Context, conversationID string, msgs []model.Message) error
}

// Uploader stores an attachment blob and returns its permanent URL.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte) (string, error)
}

// BlobRegistry hands out ephemeral references for not-yet-uploaded
// attachment bytes. References must be released on both the success and the
// failure path of an upload.
type BlobRegistry interface {
	Put(fileName string, data []byte) string
	Release(ref string)
}

// MemberDirectory caches sender profiles observed on the wire so the UI can
// resolve display names without a per-message lookup.
type MemberDirectory interface {
	Observe(userID, displayName string)
}
