// Package redis provides a Redis pub/sub implementation of the broadcast
// bus, allowing out-of-band handlers in other processes to reach a room's
// connected clients
package redis

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/illusionlabs/classync/internal/bus"
	"github.com/illusionlabs/classync/internal/config"
	"github.com/illusionlabs/classync/internal/models"
	"github.com/redis/go-redis/v9"
)

const subscriberBuffer = 256

// Bus implements the broadcast bus on top of Redis pub/sub
type Bus struct {
	client    *redis.Client
	keyPrefix string
}

type subscription struct {
	pubsub *redis.PubSub
	ch     chan *models.Update
	once   sync.Once
}

// NewBus creates a Redis-backed broadcast bus
func NewBus(cfg config.RedisConfig) (*Bus, error) {
	var client *redis.Client

	if cfg.URI != "" {
		opt, err := redis.ParseURL(cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URI: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Bus{client: client, keyPrefix: cfg.KeyPrefix}, nil
}

// channelKey namespaces bus channels alongside the state store keys
func (b *Bus) channelKey(channel string) string {
	return b.keyPrefix + channel
}

// Publish sends an update to all current subscribers of the channel
func (b *Bus) Publish(ctx context.Context, channel string, update *models.Update) error {
	data, err := update.Encode()
	if err != nil {
		return err
	}

	if err := b.client.Publish(ctx, b.channelKey(channel), data).Err(); err != nil {
		return fmt.Errorf("failed to publish update: %w", err)
	}
	return nil
}

// Subscribe registers a new subscriber on the channel
func (b *Bus) Subscribe(channel string) (bus.Subscription, error) {
	pubsub := b.client.Subscribe(context.Background(), b.channelKey(channel))

	// Confirm the subscription before handing it out so publishes that
	// follow Subscribe are not silently missed
	if _, err := pubsub.Receive(context.Background()); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	sub := &subscription{
		pubsub: pubsub,
		ch:     make(chan *models.Update, subscriberBuffer),
	}

	go sub.relay(channel)

	return sub, nil
}

// relay decodes raw pub/sub payloads and forwards them to the subscriber.
// Undecodable messages are dropped; a full subscriber buffer drops too.
func (s *subscription) relay(channel string) {
	defer close(s.ch)

	for msg := range s.pubsub.Channel() {
		update, err := models.DecodeUpdate([]byte(msg.Payload))
		if err != nil {
			log.Printf("Dropping malformed bus message on %s: %v", channel, err)
			continue
		}

		select {
		case s.ch <- update:
		default:
		}
	}
}

// Close closes the underlying Redis connection
func (b *Bus) Close() error {
	return b.client.Close()
}

func (s *subscription) Updates() <-chan *models.Update {
	return s.ch
}

// Close unregisters the subscription; the relay goroutine exits once the
// underlying pub/sub channel closes
func (s *subscription) Close() {
	s.once.Do(func() { s.pubsub.Close() })
}
