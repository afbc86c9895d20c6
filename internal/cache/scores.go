package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"swapshelf/internal/classifier"
)

const scoreKeyPrefix = "nsfw:score:"

// ScoreCache keeps classifier output keyed by image digest so re-uploaded
// images skip the model.
type ScoreCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewScoreCache(client *redis.Client, ttl time.Duration) *ScoreCache {
	return &ScoreCache{client: client, ttl: ttl}
}

func (c *ScoreCache) Get(ctx context.Context, digest string) ([]classifier.Prediction, bool, error) {
	raw, err := c.client.Get(ctx, scoreKeyPrefix+digest).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get scores: %w", err)
	}

	var preds []classifier.Prediction
	if err := json.Unmarshal(raw, &preds); err != nil {
		return nil, false, fmt.Errorf("decode scores: %w", err)
	}
	return preds, true, nil
}

func (c *ScoreCache) Set(ctx context.Context, digest string, preds []classifier.Prediction) error {
	raw, err := json.Marshal(preds)
	if err != nil {
		return fmt.Errorf("encode scores: %w", err)
	}
	if err := c.client.Set(ctx, scoreKeyPrefix+digest, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set scores: %w", err)
	}
	return nil
}
