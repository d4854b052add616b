package realtime

import (
	"context"
	"errors"
	"sync"

	"kejinlab/internal/logger"

	"go.uber.org/zap"
)

// ErrBrokerClosed is returned by a broker after Close.
var ErrBrokerClosed = errors.New("realtime: broker closed")

// MemoryBroker is an in-process Broker used when no Redis is configured.
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[string]map[chan ChangeEvent]struct{} // pageID -> subscribers
	buffer int
	closed bool
}

// NewMemoryBroker creates an in-process broker.
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		subs:   make(map[string]map[chan ChangeEvent]struct{}),
		buffer: defaultBuffer,
	}
}

// Publish delivers ev without blocking; a subscriber with a full buffer misses the event.
func (b *MemoryBroker) Publish(_ context.Context, ev ChangeEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBrokerClosed
	}

	page := ev.PageID()
	if page == "" {
		for p, set := range b.subs {
			b.deliver(p, set, ev)
		}
		return nil
	}
	b.deliver(page, b.subs[page], ev)
	return nil
}

func (b *MemoryBroker) deliver(page string, set map[chan ChangeEvent]struct{}, ev ChangeEvent) {
	for ch := range set {
		select {
		case ch <- ev:
		default:
			logger.L().Warn("realtime subscriber buffer full, dropping event",
				zap.String("page_id", page), zap.String("type", string(ev.Type)))
		}
	}
}

// Subscribe registers a subscriber for pageID.
func (b *MemoryBroker) Subscribe(_ context.Context, pageID string) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBrokerClosed
	}

	ch := make(chan ChangeEvent, b.buffer)
	set, ok := b.subs[pageID]
	if !ok {
		set = make(map[chan ChangeEvent]struct{})
		b.subs[pageID] = set
	}
	set[ch] = struct{}{}

	return newSubscription(ch, func() error {
		b.mu.Lock()
		defer b.mu.Unlock()
		if set, ok := b.subs[pageID]; ok {
			if _, exists := set[ch]; exists {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(b.subs, pageID)
			}
		}
		return nil
	}), nil
}

// Subscribers returns the number of live subscriptions for pageID.
func (b *MemoryBroker) Subscribers(pageID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[pageID])
}

// Close closes every subscriber channel.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for page, set := range b.subs {
		for ch := range set {
			close(ch)
		}
		delete(b.subs, page)
	}
	return nil
}
