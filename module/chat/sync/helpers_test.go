package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"github.com/jazbelrose/mylg-chat/module/chat/model"
	"github.com/jazbelrose/mylg-chat/tools/retry"
)

// instantPolicy retries without sleeping so tests never wait on timers.
func instantPolicy(attempts int) retry.Policy {
	return retry.Policy{
		Attempts: attempts,
		Delay:    func(int) time.Duration { return 0 },
		Sleep:    func(time.Duration) {},
	}
}

type fakeChannel struct {
	mu     gosync.Mutex
	ready  bool
	sent   [][]byte
	resets int
	closed bool

	// readyAfter flips ready on after this many Ready() calls when >0.
	readyAfter int
	readyCalls int
}

func (c *fakeChannel) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readyCalls++
	if c.readyAfter > 0 && c.readyCalls > c.readyAfter {
		c.ready = true
	}
	return c.ready
}

func (c *fakeChannel) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, append([]byte(nil), payload...))
	return nil
}

func (c *fakeChannel) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resets++
	return nil
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChannel) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func (c *fakeChannel) lastSent() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return nil
	}
	return c.sent[len(c.sent)-1]
}

type fakeHistory struct {
	mu    gosync.Mutex
	calls int
	msgs  []model.Message
	err   error
	// gate, when non-nil, blocks Messages until closed.
	gate chan struct{}
}

func (h *fakeHistory) Messages(_ context.Context, _ string) ([]model.Message, error) {
	h.mu.Lock()
	h.calls++
	gate := h.gate
	msgs, err := h.msgs, h.err
	h.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return model.CloneMessages(msgs), err
}

func (h *fakeHistory) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

type fakeSnapshots struct {
	mu     gosync.Mutex
	snaps  map[string][]model.Message
	writes int
}

func newFakeSnapshots() *fakeSnapshots {
	return &fakeSnapshots{snaps: make(map[string][]model.Message)}
}

func (s *fakeSnapshots) Read(_ context.Context, conversationID string) (*model.ConversationSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs, ok := s.snaps[conversationID]
	if !ok {
		return nil, nil
	}
	return &model.ConversationSnapshot{
		ConversationID: conversationID,
		Messages:       model.CloneMessages(msgs),
	}, nil
}

func (s *fakeSnapshots) Write(_ context.Context, conversationID string, msgs []model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[conversationID] = model.CloneMessages(msgs)
	s.writes++
	return nil
}

func (s *fakeSnapshots) stored(conversationID string) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneMessages(s.snaps[conversationID])
}

type fakeUploader struct {
	url string
	err error
}

func (u *fakeUploader) Upload(_ context.Context, _ string, _ []byte) (string, error) {
	return u.url, u.err
}

type fakeBlobs struct {
	mu       gosync.Mutex
	puts     int
	releases int
}

func (b *fakeBlobs) Put(_ string, _ []byte) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.puts++
	return "blob:test"
}

func (b *fakeBlobs) Release(_ string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releases++
}

func (b *fakeBlobs) releaseCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.releases
}

type fakeRest struct {
	mu       gosync.Mutex
	deletes  []string
	edits    []string
	fileDels [][]string
}

func (r *fakeRest) DeleteMessage(_ context.Context, _, serverID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes = append(r.deletes, serverID)
	return nil
}

func (r *fakeRest) EditMessage(_ context.Context, _, serverID, _ string, _ int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edits = append(r.edits, serverID)
	return nil
}

func (r *fakeRest) DeleteFiles(_ context.Context, _ string, urls []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fileDels = append(r.fileDels, urls)
	return nil
}

var errBoom = errors.New("boom")

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func newTestEngine(t *testing.T, mutate func(*Config)) (*Engine, *fakeChannel, *fakeHistory, *fakeSnapshots) {
	t.Helper()
	ch := &fakeChannel{ready: true}
	hist := &fakeHistory{}
	snaps := newFakeSnapshots()
	cfg := Config{
		ConversationID: "project#42#chat",
		SenderID:       "user-1",
		SenderName:     "Ada",
		Channel:        ch,
		History:        hist,
		Snapshots:      snaps,
		SendPolicy:     instantPolicy(SendAttempts),
		HistoryPolicy:  instantPolicy(1 + HistoryRetries),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewEngine(cfg), ch, hist, snaps
}
