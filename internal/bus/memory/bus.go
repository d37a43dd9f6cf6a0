// Package memory provides an in-process implementation of the broadcast bus
package memory

import (
	"context"
	"sync"

	"github.com/illusionlabs/classync/internal/bus"
	"github.com/illusionlabs/classync/internal/models"
)

// subscriberBuffer bounds each subscription's channel; a subscriber that
// falls this far behind starts losing messages rather than blocking publishers
const subscriberBuffer = 256

// Bus implements the broadcast bus with per-channel subscriber sets
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscription]struct{}
	closed bool
}

type subscription struct {
	bus     *Bus
	channel string
	ch      chan *models.Update
	once    sync.Once
}

// NewBus creates a new in-process broadcast bus
func NewBus() *Bus {
	return &Bus{
		subs: make(map[string]map[*subscription]struct{}),
	}
}

// Publish sends an update to all current subscribers of the channel.
// Non-blocking: the message is dropped for subscribers with a full buffer.
func (b *Bus) Publish(ctx context.Context, channel string, update *models.Update) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[channel] {
		select {
		case sub.ch <- update:
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return nil
}

// Subscribe registers a new subscriber on the channel
func (b *Bus) Subscribe(channel string) (bus.Subscription, error) {
	sub := &subscription{
		bus:     b,
		channel: channel,
		ch:      make(chan *models.Update, subscriberBuffer),
	}

	b.mu.Lock()
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[*subscription]struct{})
	}
	b.subs[channel][sub] = struct{}{}
	b.mu.Unlock()

	return sub, nil
}

// Close closes the bus and every open subscription
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[string]map[*subscription]struct{})
	b.mu.Unlock()

	for _, channelSubs := range subs {
		for sub := range channelSubs {
			sub.once.Do(func() { close(sub.ch) })
		}
	}
	return nil
}

func (s *subscription) Updates() <-chan *models.Update {
	return s.ch
}

// Close unregisters the subscription and closes its stream
func (s *subscription) Close() {
	s.bus.mu.Lock()
	if subs, ok := s.bus.subs[s.channel]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(s.bus.subs, s.channel)
		}
	}
	s.bus.mu.Unlock()

	s.once.Do(func() { close(s.ch) })
}
