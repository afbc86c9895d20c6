package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PendingQueue is the reviewer feed of flagged listings, ordered by the time
// they were flagged.
type PendingQueue struct {
	client *redis.Client
	key    string
}

type PendingItem struct {
	ListingID string    `json:"listingId"`
	FlaggedAt time.Time `json:"flaggedAt"`
}

func NewPendingQueue(client *redis.Client, key string) *PendingQueue {
	return &PendingQueue{client: client, key: key}
}

func (q *PendingQueue) Add(ctx context.Context, listingID string, at time.Time) error {
	err := q.client.ZAdd(ctx, q.key, redis.Z{
		Score:  float64(at.Unix()),
		Member: listingID,
	}).Err()
	if err != nil {
		return fmt.Errorf("zadd %s: %w", q.key, err)
	}
	return nil
}

// List returns up to limit items, oldest first.
func (q *PendingQueue) List(ctx context.Context, limit int64) ([]PendingItem, error) {
	if limit <= 0 {
		limit = 50
	}
	entries, err := q.client.ZRangeWithScores(ctx, q.key, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange %s: %w", q.key, err)
	}
	items := make([]PendingItem, 0, len(entries))
	for _, z := range entries {
		id, _ := z.Member.(string)
		items = append(items, PendingItem{
			ListingID: id,
			FlaggedAt: time.Unix(int64(z.Score), 0).UTC(),
		})
	}
	return items, nil
}
