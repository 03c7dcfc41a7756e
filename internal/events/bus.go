// Package events carries domain events between the listing service and
// background consumers over an in-process watermill pub/sub.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Topics.
const (
	TopicListingSubmitted = "listing.submitted"
	TopicListingModerated = "listing.moderated"
	TopicMilestone        = "points.milestone"
)

// ListingSubmitted is published after a listing is stored.
type ListingSubmitted struct {
	ListingID   string    `json:"listing_id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	SubmitterID int64     `json:"submitter_id"`
	At          time.Time `json:"at"`
}

// ListingModerated is published after an approve or reject.
type ListingModerated struct {
	ListingID   string    `json:"listing_id"`
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	SubmitterID int64     `json:"submitter_id"`
	ModeratorID int64     `json:"moderator_id"`
	At          time.Time `json:"at"`
}

// MilestoneReached is published once per milestone crossed by an award.
type MilestoneReached struct {
	UserID    int64     `json:"user_id"`
	Milestone int       `json:"milestone"`
	Total     int       `json:"total"`
	Rank      string    `json:"rank"`
	At        time.Time `json:"at"`
}

// Config tunes the bus.
type Config struct {
	// Buffer is the per-subscriber output channel size.
	Buffer int64
	// BreakerFailures is the number of consecutive publish failures that
	// opens the circuit.
	BreakerFailures uint32
	// BreakerTimeout is how long the circuit stays open.
	BreakerTimeout time.Duration
}

// DefaultConfig returns the defaults used by the server.
func DefaultConfig() Config {
	return Config{
		Buffer:          256,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

// Bus publishes JSON-encoded events to in-process subscribers.
type Bus struct {
	pubsub  *gochannel.GoChannel
	breaker *gobreaker.CircuitBreaker[any]
}

// NewBus creates a bus. logger may be nil.
func NewBus(cfg Config, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultConfig().Buffer
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = DefaultConfig().BreakerFailures
	}

	pubsub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: cfg.Buffer},
		watermill.NewSlogLogger(logger),
	)

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "event-bus",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Bus{pubsub: pubsub, breaker: breaker}
}

// Publish encodes payload and publishes it on topic.
func (b *Bus) Publish(topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	_, err = b.breaker.Execute(func() (any, error) {
		return nil, b.pubsub.Publish(topic, msg)
	})
	if err != nil {
		return fmt.Errorf("publishing %s event: %w", topic, err)
	}
	return nil
}

// Subscribe returns the message stream for topic. Every message must be
// acked or nacked by the consumer.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

// Close stops delivery to all subscribers.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// Decode unmarshals a message payload into v.
func Decode(msg *message.Message, v any) error {
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("decoding event %s: %w", msg.UUID, err)
	}
	return nil
}
