package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"swapshelf/internal/queue"
)

// Processor handles domain events read from the events stream.
type Processor struct {
	pending *queue.PendingQueue
	logger  zerolog.Logger
	now     func() time.Time
}

func NewProcessor(pending *queue.PendingQueue, logger zerolog.Logger) *Processor {
	return &Processor{
		pending: pending,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	ev, err := queue.DecodeEvent(msg.Values)
	if err != nil {
		return fmt.Errorf("decode event: %w", err)
	}

	switch ev.Type {
	case queue.EventListingFlagged:
		return p.handleFlagged(ctx, ev)
	case queue.EventListingCreated:
		p.logger.Info().
			Str("listing_id", ev.ListingID).
			Str("owner_id", ev.OwnerID).
			Msg("listing published")
		return nil
	case queue.EventTransferCompleted:
		p.logger.Info().
			Str("transaction_id", ev.TransactionID).
			Str("listing_id", ev.ListingID).
			Str("giver_id", ev.GiverID).
			Str("receiver_id", ev.ReceiverID).
			Str("credits", ev.Credits).
			Msg("transfer completed")
		return nil
	default:
		p.logger.Warn().Str("type", ev.Type).Str("message_id", msg.ID).Msg("unknown event type")
		return nil
	}
}

func (p *Processor) handleFlagged(ctx context.Context, ev queue.Event) error {
	if ev.ListingID == "" {
		return fmt.Errorf("flagged event %q without listing id", ev.Type)
	}
	at := p.now()
	if ev.OccurredAt != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, ev.OccurredAt); err == nil {
			at = parsed
		}
	}
	if err := p.pending.Add(ctx, ev.ListingID, at); err != nil {
		return err
	}
	p.logger.Info().
		Str("listing_id", ev.ListingID).
		Str("owner_id", ev.OwnerID).
		Msg("listing queued for review")
	return nil
}
