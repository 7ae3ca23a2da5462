package events

import (
	"context"

	"github.com/zatekoja/geyser-noncompliance/internal/domain/entities"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/providers"
)

// LocalEventBus delivers events within one process. It backs the event
// stream when Redis is unavailable.
type LocalEventBus struct {
	*fanout
}

var _ providers.EventBus = (*LocalEventBus)(nil)

// NewLocalEventBus creates an in-process event bus
func NewLocalEventBus() *LocalEventBus {
	return &LocalEventBus{fanout: newFanout()}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Publish delivers the event to current subscribers of channel
func (b *LocalEventBus) Publish(ctx context.Context, channel string, event *entities.AssessmentEvent) error {
	b.broadcast(channel, event)
	return nil
}

// Subscribe subscribes to events on a channel
func (b *LocalEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.AssessmentEvent, error) {
	return b.subscribe(ctx, channel, func() (closer, error) { return nopCloser{}, nil })
}

// Unsubscribe drops every subscriber of channel
func (b *LocalEventBus) Unsubscribe(ctx context.Context, channel string) error {
	return b.cleanupChannel(channel)
}

// Close closes the event bus and all subscriptions
func (b *LocalEventBus) Close() error {
	return b.closeAll()
}
