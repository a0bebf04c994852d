package finance

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultInvalidationChannel carries settings change notices between instances.
const DefaultInvalidationChannel = "finance:settings:invalidate"

// Invalidator drops a locally cached value. *Store satisfies it.
type Invalidator interface {
	Invalidate()
}

// Notice is published after a settings update.
type Notice struct {
	InstanceID string    `json:"instance_id"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Broadcaster fans settings invalidations out over Redis pub/sub.
type Broadcaster struct {
	client     redis.UniversalClient
	channel    string
	instanceID string
	logger     zerolog.Logger
}

// NewBroadcaster constructs a Broadcaster with a random instance id.
func NewBroadcaster(client redis.UniversalClient, channel string, logger *zerolog.Logger) *Broadcaster {
	if channel == "" {
		channel = DefaultInvalidationChannel
	}
	b := &Broadcaster{
		client:     client,
		channel:    channel,
		instanceID: uuid.NewString(),
		logger:     zerolog.Nop(),
	}
	if logger != nil {
		b.logger = logger.With().Str("component", "finance_broadcast").Logger()
	}
	return b
}

// InstanceID identifies notices sent by this process.
func (b *Broadcaster) InstanceID() string {
	if b == nil {
		return ""
	}
	return b.instanceID
}

// Publish announces that settings changed.
func (b *Broadcaster) Publish(ctx context.Context, updatedAt time.Time) error {
	if b == nil || b.client == nil {
		return nil
	}
	payload, err := json.Marshal(Notice{InstanceID: b.instanceID, UpdatedAt: updatedAt})
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("finance: publish invalidation: %w", err)
	}
	return nil
}

// Listen invalidates target whenever another instance publishes a notice.
// It blocks until ctx is cancelled.
func (b *Broadcaster) Listen(ctx context.Context, target Invalidator) error {
	if b == nil || b.client == nil || target == nil {
		<-ctx.Done()
		return nil
	}
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("finance: subscribe %s: %w", b.channel, err)
	}
	msgs := sub.Channel()
	b.logger.Info().Str("channel", b.channel).Msg("listening for settings invalidations")
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var notice Notice
			if err := json.Unmarshal([]byte(msg.Payload), &notice); err != nil {
				b.logger.Warn().Err(err).Msg("malformed settings notice")
				continue
			}
			if notice.InstanceID == b.instanceID {
				continue
			}
			target.Invalidate()
			b.logger.Info().Str("origin", notice.InstanceID).Msg("settings invalidated by peer")
		}
	}
}
