// Package realtime streams a complaint's timeline to browsers as events are
// recorded. Events travel over Redis pub/sub, so any API instance can serve a
// subscriber regardless of which instance recorded the event.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"grievance/backend/internal/models"
	"grievance/backend/internal/storage"
)

const subscriberBuffer = 16

type Stream struct {
	rdb    *redis.Client
	logger *slog.Logger
}

func NewStream(rdb *redis.Client, logger *slog.Logger) *Stream {
	return &Stream{rdb: rdb, logger: logger}
}

// Subscribe listens on the complaint's timeline channel until ctx is done.
// It returns once the subscription is confirmed by Redis; the returned
// channel is closed when listening stops.
func (s *Stream) Subscribe(ctx context.Context, complaintID uint) (<-chan models.TimelineMessage, error) {
	channel := storage.TimelineChannel(complaintID)
	pubsub := s.rdb.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	out := make(chan models.TimelineMessage, subscriberBuffer)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev models.TimelineMessage
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					s.logger.Warn("dropping malformed timeline message", "channel", channel, "error", err)
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
