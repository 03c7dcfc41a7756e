// Package notify turns domain events into per-user notifications.
package notify

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/erazemk/dukandaar/internal/events"
	"github.com/erazemk/dukandaar/internal/metrics"
	"github.com/erazemk/dukandaar/internal/model"
	"github.com/erazemk/dukandaar/internal/store"
)

// Subscriber is the event source consumed by the service.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
}

// Service consumes moderation and milestone events and queues a
// notification for the affected user. It runs under the supervisor tree.
type Service struct {
	db     *sql.DB
	events Subscriber

	readyOnce sync.Once
	ready     chan struct{}
}

// NewService creates a notification consumer.
func NewService(db *sql.DB, events Subscriber) *Service {
	return &Service{db: db, events: events, ready: make(chan struct{})}
}

// Ready is closed once the service has subscribed to its topics.
func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// Serve implements suture.Service.
func (s *Service) Serve(ctx context.Context) error {
	moderated, err := s.events.Subscribe(ctx, events.TopicListingModerated)
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", events.TopicListingModerated, err)
	}
	milestones, err := s.events.Subscribe(ctx, events.TopicMilestone)
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", events.TopicMilestone, err)
	}
	s.readyOnce.Do(func() { close(s.ready) })

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-moderated:
			if !ok {
				return closed(ctx, events.TopicListingModerated)
			}
			s.handle(ctx, events.TopicListingModerated, msg, s.listingModerated)
		case msg, ok := <-milestones:
			if !ok {
				return closed(ctx, events.TopicMilestone)
			}
			s.handle(ctx, events.TopicMilestone, msg, s.milestoneReached)
		}
	}
}

func (s *Service) String() string {
	return "notify"
}

func closed(ctx context.Context, topic string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fmt.Errorf("%s subscription closed", topic)
}

// handle acks every message. A failed notification is logged and counted
// rather than redelivered.
func (s *Service) handle(ctx context.Context, topic string, msg *message.Message, fn func(context.Context, *message.Message) error) {
	err := fn(ctx, msg)
	metrics.RecordEvent(topic, err)
	if err != nil {
		slog.Error("handling event", "topic", topic, "message_id", msg.UUID, "error", err)
	}
	msg.Ack()
}

func (s *Service) listingModerated(ctx context.Context, msg *message.Message) error {
	var ev events.ListingModerated
	if err := events.Decode(msg, &ev); err != nil {
		return err
	}

	var kind, text string
	switch ev.Status {
	case model.StatusApproved:
		kind = model.NotificationListingApproved
		text = fmt.Sprintf("Your listing %q was approved and is now on the map.", ev.Name)
	case model.StatusRejected:
		kind = model.NotificationListingRejected
		text = fmt.Sprintf("Your listing %q was not approved.", ev.Name)
	default:
		return fmt.Errorf("unexpected moderation status %q", ev.Status)
	}

	data, err := json.Marshal(map[string]string{"listing_id": ev.ListingID})
	if err != nil {
		return fmt.Errorf("encoding notification data: %w", err)
	}
	return s.create(ctx, ev.SubmitterID, kind, text, string(data))
}

func (s *Service) milestoneReached(ctx context.Context, msg *message.Message) error {
	var ev events.MilestoneReached
	if err := events.Decode(msg, &ev); err != nil {
		return err
	}

	text := fmt.Sprintf("You reached %d points! Your rank is now %s.", ev.Milestone, ev.Rank)
	data, err := json.Marshal(map[string]int{"milestone": ev.Milestone, "total": ev.Total})
	if err != nil {
		return fmt.Errorf("encoding notification data: %w", err)
	}
	return s.create(ctx, ev.UserID, model.NotificationMilestone, text, string(data))
}

func (s *Service) create(ctx context.Context, userID int64, kind, text, data string) error {
	if userID <= 0 {
		return errors.New("event without a user")
	}
	if err := store.CreateNotification(ctx, s.db, userID, kind, text, data); err != nil {
		return err
	}
	slog.Debug("notification queued", "user_id", userID, "kind", kind)
	return nil
}
