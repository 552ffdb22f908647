package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jazbelrose/mylg-chat/module/chat/model"
)

const snapshotKeyPrefix = "chat:snapshot:"

// RedisSnapshots persists per-conversation snapshots as JSON values with a
// server-side TTL, so staleness is enforced by Redis itself and a read never
// has to judge age.
type RedisSnapshots struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSnapshots(client *redis.Client, ttl time.Duration) *RedisSnapshots {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisSnapshots{client: client, ttl: ttl}
}

func snapshotKey(conversationID string) string {
	return snapshotKeyPrefix + conversationID
}

func (s *RedisSnapshots) Read(ctx context.Context, conversationID string) (*model.ConversationSnapshot, error) {
	raw, err := s.client.Get(ctx, snapshotKey(conversationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap model.ConversationSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		// A corrupt snapshot is worth less than a fresh history fetch.
		_ = s.client.Del(ctx, snapshotKey(conversationID)).Err()
		return nil, nil
	}
	return &snap, nil
}

func (s *RedisSnapshots) Write(ctx context.Context, conversationID string, msgs []model.Message) error {
	snap := model.ConversationSnapshot{
		ConversationID: conversationID,
		Messages:       msgs,
		CapturedAt:     time.Now().UnixMilli(),
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, snapshotKey(conversationID), raw, s.ttl).Err()
}
