package service

import (
	"context"

	"github.com/rs/zerolog"

	"swapshelf/internal/queue"
)

// EventPublisher emits domain events after a commit.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) (string, error)
}

// publish never fails the caller: the commit already happened.
func publish(ctx context.Context, events EventPublisher, log zerolog.Logger, ev queue.Event) {
	if events == nil {
		return
	}
	if _, err := events.Publish(context.WithoutCancel(ctx), ev); err != nil {
		log.Warn().Err(err).Str("event", ev.Type).Msg("publish event failed")
	}
}
