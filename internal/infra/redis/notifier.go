package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"quiz-engine/internal/domain"
)

// Publisher is the subset of the Redis client the notifier needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Notifier fans session scope events out over Redis pub/sub so other
// instances (and any other subscriber) can relay them.
type Notifier struct {
	redis  Publisher
	prefix string
}

func NewNotifier(r Publisher, prefix string) *Notifier {
	return &Notifier{redis: r, prefix: prefix}
}

type notification struct {
	Type    string       `json:"type"`
	Payload domain.Event `json:"payload"`
}

func (n *Notifier) Publish(ctx context.Context, key domain.SessionKey, e domain.Event) error {
	b, err := json.Marshal(notification{Type: e.Name(), Payload: e})
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %w", e.Name(), err)
	}
	return n.redis.Publish(ctx, n.Channel(key), b).Err()
}

// Channel returns the pub/sub channel of a session scope.
func (n *Notifier) Channel(key domain.SessionKey) string {
	return fmt.Sprintf("%s:session:%s:%s", n.prefix, key.HostID, key.SessionID)
}
