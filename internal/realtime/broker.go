package realtime

import (
	"context"
	"sync"
)

// defaultBuffer is the per-subscription channel capacity.
const defaultBuffer = 32

// Broker fans change events out to page-scoped subscribers.
type Broker interface {
	Publish(ctx context.Context, ev ChangeEvent) error
	// Subscribe receives events for pageID plus events whose page is unknown.
	Subscribe(ctx context.Context, pageID string) (*Subscription, error)
	Close() error
}

// Subscription is a live channel of change events. Close releases it and is idempotent.
type Subscription struct {
	C <-chan ChangeEvent

	once    sync.Once
	release func() error
	err     error
}

func newSubscription(c <-chan ChangeEvent, release func() error) *Subscription {
	return &Subscription{C: c, release: release}
}

// Close releases the underlying channel.
func (s *Subscription) Close() error {
	s.once.Do(func() {
		if s.release != nil {
			s.err = s.release()
		}
	})
	return s.err
}
