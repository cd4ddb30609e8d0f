package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"ai-studymate-be/internal/dto"
	"ai-studymate-be/pkg/events"
	pktNats "ai-studymate-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const EventTurnPersisted = "TURN_PERSISTED"

// IConsumerService drains the in-process turn topic and bridges each event
// onto the NATS bus for downstream consumers (analytics, notifications).
type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	eventPublisher *pktNats.Publisher
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	eventPublisher *pktNats.Publisher,
) IConsumerService {
	return &consumerService{
		pubSub:         pubSub,
		topicName:      topicName,
		eventPublisher: eventPublisher,
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

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishTurnPersistedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal turn event: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	if cs.eventPublisher == nil {
		msg.Ack()
		return
	}

	evt := events.BaseEvent{
		Type: EventTurnPersisted,
		Data: map[string]interface{}{
			"chat_session_id":      payload.ChatSessionId,
			"user_id":              payload.UserId,
			"user_message_id":      payload.UserMessageId,
			"assistant_message_id": payload.AssistantMessageId,
			"mode":                 payload.Mode,
			"citation_count":       payload.CitationCount,
		},
		OccurredAt: time.Now(),
	}

	if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
		log.Printf("[ERROR] Failed to bridge turn event to NATS: %v", err)
		msg.Nack()
		return
	}

	msg.Ack()
}
