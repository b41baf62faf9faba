package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/busline/booking-backend/internal/models"
)

// tripGroupKey is the pub/sub channel name for one leg's seat events.
func tripGroupKey(legID int) string {
	return fmt.Sprintf("trip:%d:seats", legID)
}

// RedisChannel implements Channel over a single Redis pub/sub
// subscription with dynamic per-leg channel membership. Message order per
// channel follows Redis delivery order, which preserves the per-leg
// receipt ordering the seat state relies on.
type RedisChannel struct {
	client *redis.Client
	pubsub *redis.PubSub
	events chan models.SeatEvent
	logger *logrus.Logger

	mu     sync.Mutex
	joined map[int]struct{}
	closed bool
}

// NewRedisChannel opens the subscription and starts the receive loop.
func NewRedisChannel(client *redis.Client, logger *logrus.Logger) *RedisChannel {
	ch := &RedisChannel{
		client: client,
		pubsub: client.Subscribe(context.Background()),
		events: make(chan models.SeatEvent, 64),
		logger: logger,
		joined: make(map[int]struct{}),
	}
	go ch.receive()
	return ch
}

// JoinTripGroup subscribes to one leg's seat events. Joining a group
// twice is a no-op.
func (c *RedisChannel) JoinTripGroup(ctx context.Context, legID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("channel is closed")
	}
	if _, ok := c.joined[legID]; ok {
		return nil
	}
	if err := c.pubsub.Subscribe(ctx, tripGroupKey(legID)); err != nil {
		return fmt.Errorf("joining trip group %d: %w", legID, err)
	}
	c.joined[legID] = struct{}{}
	return nil
}

// LeaveTripGroup unsubscribes from one leg's seat events.
func (c *RedisChannel) LeaveTripGroup(ctx context.Context, legID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	if _, ok := c.joined[legID]; !ok {
		return nil
	}
	delete(c.joined, legID)
	if err := c.pubsub.Unsubscribe(ctx, tripGroupKey(legID)); err != nil {
		return fmt.Errorf("leaving trip group %d: %w", legID, err)
	}
	return nil
}

// Events returns the stream of decoded seat events.
func (c *RedisChannel) Events() <-chan models.SeatEvent {
	return c.events
}

// Close tears down the subscription and closes the event stream.
func (c *RedisChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.pubsub.Close()
}

func (c *RedisChannel) receive() {
	defer close(c.events)
	for msg := range c.pubsub.Channel() {
		var event models.SeatEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			c.logger.WithError(err).WithField("channel", msg.Channel).
				Warn("Dropping undecodable seat event")
			continue
		}
		if event.Type != models.SeatEventLocked && event.Type != models.SeatEventUnlocked {
			c.logger.WithField("type", event.Type).Warn("Dropping seat event of unknown type")
			continue
		}
		c.events <- event
	}
}
