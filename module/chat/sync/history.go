package sync

import (
	"context"
	"time"

	"github.com/jazbelrose/mylg-chat/module/chat/model"
	"github.com/jazbelrose/mylg-chat/tools/errs"
	"github.com/jazbelrose/mylg-chat/tools/retry"
)

// History fetch bounds: the initial attempt plus HistoryRetries retries on a
// rate-limit failure, backing off 2^attempt seconds.
const (
	HistoryRetries     = 5
	HistoryBackoffBase = time.Second
)

// HistoryLoader fetches server-confirmed history with bounded retry. It is
// invoked at most once per conversation for the session; that guard lives in
// the engine, keyed by loaded-state, not by time.
type HistoryLoader struct {
	api    HistoryAPI
	policy retry.Policy
}

func NewHistoryLoader(api HistoryAPI, policy retry.Policy) *HistoryLoader {
	if policy.Attempts == 0 {
		policy = retry.Exponential(1+HistoryRetries, HistoryBackoffBase)
	}
	return &HistoryLoader{api: api, policy: policy}
}

// Load returns the fetched set as-is; deduplication and tombstone filtering
// happen in the resolver so history converges through the same merge as
// every other source. Only rate-limit failures are retried.
func (l *HistoryLoader) Load(ctx context.Context, conversationID string) ([]model.Message, error) {
	var out []model.Message
	err := l.policy.Run(func(int) error {
		msgs, err := l.api.Messages(ctx, conversationID)
		if err != nil {
			return err
		}
		out = msgs
		return nil
	}, func(err error) bool {
		return errs.IsCode(err, errs.CodeRateLimited)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
