package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"metinanaliz/internal/progress"
)

const progressKeyPrefix = "metinanaliz:progress:"

// ProgressStore keeps progress snapshots in redis so any instance can answer
// a poll.
type ProgressStore struct {
	client *Client
	ttl    time.Duration
}

func NewProgressStore(client *Client, ttl time.Duration) *ProgressStore {
	return &ProgressStore{client: client, ttl: ttl}
}

func progressKey(id string) string { return progressKeyPrefix + id }

func (p *ProgressStore) Save(ctx context.Context, s progress.Snapshot) error {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	return p.client.Set(ctx, progressKey(s.RequestID), payload, p.ttl)
}

func (p *ProgressStore) Load(ctx context.Context, requestID string) (progress.Snapshot, error) {
	raw, err := p.client.Get(ctx, progressKey(requestID))
	if errors.Is(err, ErrCacheMiss) {
		return progress.Snapshot{}, progress.ErrNotFound
	}
	if err != nil {
		return progress.Snapshot{}, fmt.Errorf("load progress: %w", err)
	}
	var s progress.Snapshot
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return progress.Snapshot{}, fmt.Errorf("decode progress: %w", err)
	}
	return s, nil
}
