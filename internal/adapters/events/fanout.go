package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/entities"
)

const subscriberBuffer = 100

type closer interface {
	Close() error
}

// fanout tracks local subscribers per channel and the upstream subscription feeding them
type fanout struct {
	subscriptions map[string]closer
	subscribers   map[string]map[chan *entities.AssessmentEvent]struct{}
	mu            sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
}

func newFanout() *fanout {
	ctx, cancel := context.WithCancel(context.Background())
	return &fanout{
		subscriptions: make(map[string]closer),
		subscribers:   make(map[string]map[chan *entities.AssessmentEvent]struct{}),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// subscribe registers a buffered subscriber; open creates the upstream subscription on first use
func (f *fanout) subscribe(ctx context.Context, channel string, open func() (closer, error)) (<-chan *entities.AssessmentEvent, error) {
	f.mu.Lock()
	if f.ctx.Err() != nil {
		f.mu.Unlock()
		return nil, fmt.Errorf("event bus is closed")
	}

	if _, exists := f.subscriptions[channel]; !exists {
		upstream, err := open()
		if err != nil {
			f.mu.Unlock()
			return nil, err
		}
		f.subscriptions[channel] = upstream
	}

	if f.subscribers[channel] == nil {
		f.subscribers[channel] = make(map[chan *entities.AssessmentEvent]struct{})
	}

	eventChan := make(chan *entities.AssessmentEvent, subscriberBuffer)
	f.subscribers[channel][eventChan] = struct{}{}
	count := len(f.subscribers[channel])
	f.mu.Unlock()

	log.Debug().Str("channel", channel).Int("subscribers", count).Msg("Subscribed to channel")

	go func() {
		select {
		case <-ctx.Done():
		case <-f.ctx.Done():
		}
		f.removeSubscriber(channel, eventChan)
	}()

	return eventChan, nil
}

// broadcast delivers without blocking; a full subscriber misses the event
func (f *fanout) broadcast(channel string, event *entities.AssessmentEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for subscriber := range f.subscribers[channel] {
		select {
		case subscriber <- event:
		default:
			log.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("Subscriber channel full, skipping event")
		}
	}
}

func (f *fanout) removeSubscriber(channel string, eventChan chan *entities.AssessmentEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	subscribers, exists := f.subscribers[channel]
	if !exists {
		return
	}
	if _, ok := subscribers[eventChan]; !ok {
		return
	}

	delete(subscribers, eventChan)
	close(eventChan)

	if len(subscribers) == 0 {
		delete(f.subscribers, channel)
		if upstream, ok := f.subscriptions[channel]; ok {
			_ = upstream.Close()
			delete(f.subscriptions, channel)
		}
	}
}

func (f *fanout) cleanupChannel(channel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if subscribers, exists := f.subscribers[channel]; exists {
		for subscriber := range subscribers {
			close(subscriber)
		}
		delete(f.subscribers, channel)
	}

	if upstream, ok := f.subscriptions[channel]; ok {
		delete(f.subscriptions, channel)
		if err := upstream.Close(); err != nil {
			return fmt.Errorf("failed to close subscription %s: %w", channel, err)
		}
	}
	return nil
}

func (f *fanout) closeAll() error {
	f.cancel()

	f.mu.RLock()
	channels := make([]string, 0, len(f.subscriptions))
	for channel := range f.subscriptions {
		channels = append(channels, channel)
	}
	f.mu.RUnlock()

	var errs []error
	for _, channel := range channels {
		if err := f.cleanupChannel(channel); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing event bus: %v", errs)
	}
	return nil
}
