// Package bus defines the broadcast bus contract used to fan room state out
// to every subscriber of a room channel
package bus

import (
	"context"

	"github.com/illusionlabs/classync/internal/models"
)

// Bus delivers published updates to every current subscriber of a channel.
// Delivery is at-most-once and best-effort: there is no persistence, no
// replay for late subscribers, and slow subscribers may miss messages.
type Bus interface {
	// Publish sends an update to all current subscribers of the channel
	Publish(ctx context.Context, channel string, update *models.Update) error

	// Subscribe registers interest in a channel. The caller must Close the
	// subscription when done.
	Subscribe(channel string) (Subscription, error)

	// Close tears the bus down and closes all subscriptions
	Close() error
}

// Subscription is one subscriber's view of a channel
type Subscription interface {
	// Updates is the stream of messages published to the channel. It is
	// closed when the subscription or the bus is closed.
	Updates() <-chan *models.Update

	// Close unregisters the subscription and closes its stream
	Close()
}
