package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/nearmarket/nearmarket-backend/pkg/db/models"
	"github.com/nearmarket/nearmarket-backend/pkg/enums"
	"github.com/nearmarket/nearmarket-backend/pkg/logger"
	nmpubsub "github.com/nearmarket/nearmarket-backend/pkg/pubsub"
)

type creator interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches marketplace events and turns barter activity into
// per-user notifications.
type Consumer struct {
	repo         creator
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

// NewConsumer builds the barter notification consumer.
func NewConsumer(repo creator, subscription *pubsub.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{repo: repo, subscription: subscription, logg: logg}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// BarterEventPayload is the event body published alongside barter envelopes.
type BarterEventPayload struct {
	ListingID    uuid.UUID `json:"listing_id"`
	ListingTitle string    `json:"listing_title"`
	ProposerID   uuid.UUID `json:"proposer_id"`
	SellerUserID uuid.UUID `json:"seller_user_id"`
	OfferedItem  string    `json:"offered_item"`
	Status       string    `json:"status,omitempty"`
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) bool {
	eventType := enums.EventType(msg.Attributes["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType.String(),
	})

	if eventType != enums.EventBarterProposed && eventType != enums.EventBarterDecided {
		c.logg.Info(logCtx, "skipping non-barter event")
		return true
	}

	var envelope nmpubsub.Envelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		// Malformed messages never become deliverable; drop them.
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return true
	}

	var payload BarterEventPayload
	if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse barter payload", err)
		return true
	}

	notification, err := notificationFor(eventType, payload)
	if err != nil {
		c.logg.Error(logCtx, "unable to build notification", err)
		return true
	}

	if err := c.repo.Create(ctx, notification); err != nil {
		c.logg.Error(logCtx, "persist notification failed", err)
		return false
	}

	c.logg.Info(c.logg.WithField(logCtx, "user_id", notification.UserID.String()), "notification created")
	return true
}

func notificationFor(eventType enums.EventType, payload BarterEventPayload) (*models.Notification, error) {
	switch eventType {
	case enums.EventBarterProposed:
		if payload.SellerUserID == uuid.Nil {
			return nil, fmt.Errorf("barter.proposed payload missing seller user id")
		}
		body := fmt.Sprintf("Someone offered %q for your listing %q.", payload.OfferedItem, payload.ListingTitle)
		entityID := payload.ListingID
		return &models.Notification{
			UserID:   payload.SellerUserID,
			Type:     enums.NotificationTypeBarterProposal,
			Title:    "New barter proposal",
			Body:     &body,
			EntityID: &entityID,
		}, nil

	case enums.EventBarterDecided:
		if payload.ProposerID == uuid.Nil {
			return nil, fmt.Errorf("barter.decided payload missing proposer id")
		}
		body := fmt.Sprintf("Your barter offer for %q was %s.", payload.ListingTitle, payload.Status)
		entityID := payload.ListingID
		return &models.Notification{
			UserID:   payload.ProposerID,
			Type:     enums.NotificationTypeBarterDecision,
			Title:    "Barter proposal update",
			Body:     &body,
			EntityID: &entityID,
		}, nil
	}

	return nil, fmt.Errorf("unsupported event type %q", eventType)
}
