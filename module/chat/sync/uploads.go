package sync

import (
	"context"
	"errors"
	"strings"

	"github.com/jazbelrose/mylg-chat/logger"
	"github.com/jazbelrose/mylg-chat/module/chat/model"
	"github.com/jazbelrose/mylg-chat/tools/errs"
	"github.com/jazbelrose/mylg-chat/tools/ids"
)

const uploadFolder = "chat_uploads"

// SendAttachment runs the blob upload alongside an optimistic placeholder:
// the pending message carries an ephemeral local reference so the UI can
// render a preview before the round-trip completes. On success the
// reference is swapped for the permanent URL under the same local id (an
// update, not a new message) and the create is transmitted; on failure the
// placeholder is removed entirely, since an attachment message with no
// retrievable content has no useful failed state. The ephemeral reference
// is released on both paths.
func (e *Engine) SendAttachment(ctx context.Context, fileName string, data []byte) (model.Message, error) {
	if e.uploader == nil {
		return model.Message{}, errors.New("uploader not configured")
	}
	if fileName == "" || len(data) == 0 {
		return model.Message{}, errors.New("empty attachment")
	}

	ref := ""
	if e.blobs != nil {
		ref = e.blobs.Put(fileName, data)
	}
	msg := model.Message{
		LocalID:        ids.NewOptimisticID(),
		ConversationID: e.conversationID,
		SenderID:       e.senderID,
		SenderName:     e.senderName,
		File: &model.Attachment{
			FileName:        fileName,
			PendingLocalURL: ref,
		},
		CreatedAt: e.now(),
		Pending:   true,
	}
	e.insert(ctx, msg)

	url, err := e.uploader.Upload(ctx, e.uploadKey(fileName), data)
	if ref != "" {
		defer e.blobs.Release(ref)
	}
	if err != nil {
		e.retract(ctx, msg.LocalID)
		logger.Errorf("upload %s: %v", fileName, err)
		return msg, errs.ErrUploadFailed.WithDetail(err.Error())
	}

	var updated model.Message
	e.mu.Lock()
	for i := range e.msgs {
		if e.msgs[i].LocalID == msg.LocalID {
			e.msgs[i].Text = url
			e.msgs[i].File.RemoteURL = url
			e.msgs[i].File.PendingLocalURL = ""
			updated = e.msgs[i].Clone()
			break
		}
	}
	e.persistLocked(ctx)
	e.mu.Unlock()
	e.notify()

	if updated.LocalID == "" {
		// Deleted while the upload was in flight; nothing to transmit.
		return msg, nil
	}
	payload, err := model.EncodeCreate(updated)
	if err != nil {
		return updated, err
	}
	if err := e.pipe.Deliver(payload); err != nil {
		e.setError(msgSendFailed)
		logger.Errorf("send attachment %s: %v", e.conversationID, err)
		return updated, err
	}
	return updated, nil
}

// retract removes an optimistic record without tombstoning it: the message
// never existed anywhere but this client, so there is nothing to suppress.
func (e *Engine) retract(ctx context.Context, localID string) {
	e.mu.Lock()
	kept := e.msgs[:0]
	for _, m := range e.msgs {
		if m.LocalID != localID {
			kept = append(kept, m)
		}
	}
	e.msgs = kept
	e.persistLocked(ctx)
	e.mu.Unlock()
	e.notify()
}

func (e *Engine) uploadKey(fileName string) string {
	conv := strings.TrimPrefix(e.conversationID, "project#")
	return "projects/" + conv + "/" + uploadFolder + "/" + fileName
}
