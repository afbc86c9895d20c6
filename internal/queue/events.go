package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	EventListingCreated    = "listing.created"
	EventListingFlagged    = "listing.flagged"
	EventTransferCompleted = "transfer.completed"
)

// Event is a domain event carried on the events stream. Stream entries are
// flat string maps, so every field is a string.
type Event struct {
	Type          string `json:"type"`
	ListingID     string `json:"listingId,omitempty"`
	OwnerID       string `json:"ownerId,omitempty"`
	Collection    string `json:"collection,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
	GiverID       string `json:"giverId,omitempty"`
	ReceiverID    string `json:"receiverId,omitempty"`
	Credits       string `json:"credits,omitempty"`
	OccurredAt    string `json:"occurredAt,omitempty"`
}

func (e Event) values() map[string]any {
	out := map[string]any{"type": e.Type}
	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	set("listingId", e.ListingID)
	set("ownerId", e.OwnerID)
	set("collection", e.Collection)
	set("transactionId", e.TransactionID)
	set("giverId", e.GiverID)
	set("receiverId", e.ReceiverID)
	set("credits", e.Credits)
	set("occurredAt", e.OccurredAt)
	return out
}

// DecodeEvent reads an event back from stream entry values.
func DecodeEvent(values map[string]interface{}) (Event, error) {
	raw, err := json.Marshal(values)
	if err != nil {
		return Event{}, err
	}
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}

type Publisher struct {
	client *redis.Client
	stream string
	maxLen int64
	now    func() time.Time
}

func NewPublisher(client *redis.Client, stream string) *Publisher {
	return &Publisher{
		client: client,
		stream: stream,
		maxLen: 100000,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Publish appends ev to the stream and returns the entry id.
func (p *Publisher) Publish(ctx context.Context, ev Event) (string, error) {
	if p == nil || p.client == nil {
		return "", nil
	}
	if ev.OccurredAt == "" {
		ev.OccurredAt = p.now().Format(time.RFC3339Nano)
	}
	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: ev.values(),
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", ev.Type, err)
	}
	return id, nil
}
