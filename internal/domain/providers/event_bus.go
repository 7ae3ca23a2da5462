package providers

import (
	"context"

	"github.com/zatekoja/geyser-noncompliance/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to assessment events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.AssessmentEvent) error

	// Subscribe subscribes to events on a channel until ctx is done
	Subscribe(ctx context.Context, channel string) (<-chan *entities.AssessmentEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelAssessments carries every assessment event
	EventChannelAssessments = "noncompliance:assessments"

	// EventChannelJobPrefix prefixes the per-job channels
	EventChannelJobPrefix = "noncompliance:job:"
)

// GetJobChannel returns the channel name for a specific job
func GetJobChannel(jobID string) string {
	return EventChannelJobPrefix + jobID
}
