package storage

import (
	"context"
	"testing"
	"time"

	"github.com/jazbelrose/mylg-chat/module/chat/model"
)

func TestMemorySnapshotsRoundTrip(t *testing.T) {
	s := NewMemorySnapshots(5 * time.Minute)
	ctx := context.Background()

	if err := s.Write(ctx, "conv-a", []model.Message{{ServerID: "s1", CreatedAt: 100}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	snap, err := s.Read(ctx, "conv-a")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if snap == nil || len(snap.Messages) != 1 || snap.Messages[0].ServerID != "s1" {
		t.Fatalf("snapshot: %+v", snap)
	}
}

func TestMemorySnapshotsExpire(t *testing.T) {
	s := NewMemorySnapshots(5 * time.Minute)
	now := int64(1_000_000)
	s.SetClock(func() int64 { return now })
	ctx := context.Background()

	if err := s.Write(ctx, "conv-a", []model.Message{{ServerID: "s1"}}); err != nil {
		t.Fatalf("write: %v", err)
	}

	now += (5*time.Minute - time.Second).Milliseconds()
	if snap, _ := s.Read(ctx, "conv-a"); snap == nil {
		t.Fatal("fresh snapshot reported stale")
	}

	now += (2 * time.Second).Milliseconds()
	if snap, _ := s.Read(ctx, "conv-a"); snap != nil {
		t.Fatal("stale snapshot served")
	}
	if s.Len() != 0 {
		t.Error("stale entry not evicted")
	}
}

func TestMemorySnapshotsMissingConversation(t *testing.T) {
	s := NewMemorySnapshots(time.Minute)
	snap, err := s.Read(context.Background(), "nope")
	if err != nil || snap != nil {
		t.Fatalf("got snap=%v err=%v, want nil/nil", snap, err)
	}
}

func TestMemorySnapshotsHandOutCopies(t *testing.T) {
	s := NewMemorySnapshots(time.Minute)
	ctx := context.Background()
	_ = s.Write(ctx, "conv-a", []model.Message{{ServerID: "s1", Text: "orig"}})

	snap, _ := s.Read(ctx, "conv-a")
	snap.Messages[0].Text = "mutated"

	again, _ := s.Read(ctx, "conv-a")
	if again.Messages[0].Text != "orig" {
		t.Fatal("store shares memory with readers")
	}
}

func TestMemberCacheObserveAndEvict(t *testing.T) {
	c := NewMemberCache()
	c.Observe("u1", "Ada")
	c.Observe("u1", "Ada L.") // latest name wins
	c.Observe("", "ghost")
	c.Observe("u2", "")

	if name, ok := c.Get("u1"); !ok || name != "Ada L." {
		t.Fatalf("got %q/%v", name, ok)
	}
	if c.Len() != 1 {
		t.Errorf("len %d, want 1", c.Len())
	}
	c.Evict("u1")
	if _, ok := c.Get("u1"); ok {
		t.Error("evicted member still present")
	}
}
