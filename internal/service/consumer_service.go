package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Dots-Uzbekistan/Lexora/internal/pkg/logger"
	"github.com/Dots-Uzbekistan/Lexora/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const consumerModule = "EVENT_CONSUMER"

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// SessionNotifier pushes a payload to the clients watching a session.
type SessionNotifier interface {
	SendToSession(sessionID string, data []byte)
}

// EventForwarder relays events to another bus, e.g. NATS.
type EventForwarder interface {
	Publish(ctx context.Context, event events.Event) error
}

// consumerService drains the in-process bus: every research event goes to
// the session's websocket clients and, when configured, to NATS.
type consumerService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	notifier  SessionNotifier
	forwarder EventForwarder
	logger    logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	notifier SessionNotifier,
	forwarder EventForwarder,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:    pubSub,
		topicName: topicName,
		notifier:  notifier,
		forwarder: forwarder,
		logger:    log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

// wsMessage is what websocket clients receive.
type wsMessage struct {
	Type       string                 `json:"type"`
	Event      string                 `json:"event"`
	OccurredAt string                 `json:"occurred_at"`
	Data       map[string]interface{} `json:"data"`
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	// undecodable messages are acked so they are not redelivered forever
	defer msg.Ack()

	event, err := events.Decode(msg.Payload)
	if err != nil {
		cs.logger.Error(consumerModule, "Failed to decode event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		return
	}

	if sessionID := events.SessionID(event); sessionID != "" && cs.notifier != nil {
		data, err := json.Marshal(wsMessage{
			Type:       "workflow_event",
			Event:      event.EventType(),
			OccurredAt: event.Timestamp().UTC().Format(time.RFC3339),
			Data:       event.Payload(),
		})
		if err == nil {
			cs.notifier.SendToSession(sessionID, data)
		}
	}

	if cs.forwarder != nil {
		if err := cs.forwarder.Publish(ctx, event); err != nil {
			cs.logger.Warn(consumerModule, "Failed to forward event", map[string]interface{}{
				"event": event.EventType(),
				"error": err.Error(),
			})
		}
	}
}
