package sync

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jazbelrose/mylg-chat/module/chat/model"
	"github.com/jazbelrose/mylg-chat/tools/errs"
)

func TestSendAttachmentSwapsURLOnSuccess(t *testing.T) {
	blobs := &fakeBlobs{}
	e, ch, _, _ := newTestEngine(t, func(cfg *Config) {
		cfg.Uploader = &fakeUploader{url: "https://cdn/projects/42/chat_uploads/a.png"}
		cfg.Blobs = blobs
	})

	msg, err := e.SendAttachment(context.Background(), "a.png", []byte("bytes"))
	if err != nil {
		t.Fatalf("send attachment: %v", err)
	}
	if msg.File == nil || msg.File.RemoteURL == "" || msg.File.PendingLocalURL != "" {
		t.Fatalf("url swap missing: %+v", msg.File)
	}

	got := e.Messages()
	if len(got) != 1 || got[0].File.RemoteURL != "https://cdn/projects/42/chat_uploads/a.png" {
		t.Fatalf("canonical record not updated: %+v", got)
	}
	if blobs.releaseCount() != 1 {
		t.Errorf("blob released %d times, want 1", blobs.releaseCount())
	}

	var frame struct {
		Action string `json:"action"`
		File   *model.Attachment
	}
	if err := json.Unmarshal(ch.lastSent(), &frame); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if frame.Action != model.ActionSendMessage || frame.File == nil || frame.File.RemoteURL == "" {
		t.Errorf("bad attachment frame: %+v", frame)
	}
}

func TestSendAttachmentFailureRemovesPlaceholder(t *testing.T) {
	blobs := &fakeBlobs{}
	e, ch, _, _ := newTestEngine(t, func(cfg *Config) {
		cfg.Uploader = &fakeUploader{err: errBoom}
		cfg.Blobs = blobs
	})

	_, err := e.SendAttachment(context.Background(), "a.png", []byte("bytes"))
	if !errs.IsCode(err, errs.CodeUploadFailed) {
		t.Fatalf("got %v, want upload-failed", err)
	}
	if len(e.Messages()) != 0 {
		t.Fatal("failed upload must remove the placeholder")
	}
	if blobs.releaseCount() != 1 {
		t.Errorf("blob released %d times, want 1", blobs.releaseCount())
	}
	if ch.sentCount() != 0 {
		t.Error("failed upload must not broadcast a create")
	}
}

func TestSendAttachmentRejectsEmptyInput(t *testing.T) {
	e, _, _, _ := newTestEngine(t, func(cfg *Config) {
		cfg.Uploader = &fakeUploader{url: "https://cdn/x"}
	})
	if _, err := e.SendAttachment(context.Background(), "", []byte("x")); err == nil {
		t.Fatal("empty file name must be rejected")
	}
	if _, err := e.SendAttachment(context.Background(), "a.png", nil); err == nil {
		t.Fatal("empty data must be rejected")
	}
}

func TestUploadKeyStripsProjectPrefix(t *testing.T) {
	e, _, _, _ := newTestEngine(t, nil)
	got := e.uploadKey("a.png")
	want := "projects/42#chat/chat_uploads/a.png"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
