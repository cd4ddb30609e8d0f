package service

import (
	"context"

	"ai-studymate-be/internal/pkg/logger"
	"ai-studymate-be/pkg/events"
	pktNats "ai-studymate-be/pkg/nats"
)

const analyticsDurableName = "analytics-worker"

// IAnalyticsService consumes persisted-turn events from the NATS bus and
// records per-turn usage to the analytics log. It is the downstream half of
// the consumer bridge: turns flow in-process -> NATS -> here.
type IAnalyticsService interface {
	Start() error
}

type analyticsService struct {
	subscriber *pktNats.Subscriber
	logger     logger.ILogger
}

func NewAnalyticsService(subscriber *pktNats.Subscriber, logger logger.ILogger) IAnalyticsService {
	return &analyticsService{
		subscriber: subscriber,
		logger:     logger,
	}
}

func (s *analyticsService) Start() error {
	return s.subscriber.Subscribe("events."+EventTurnPersisted, analyticsDurableName, s.handleTurnPersisted)
}

func (s *analyticsService) handleTurnPersisted(ctx context.Context, event events.Event) error {
	payload := event.Payload()

	s.logger.Info("Analytics", "turn persisted", map[string]interface{}{
		"chat_session_id": payload["chat_session_id"],
		"user_id":         payload["user_id"],
		"mode":            payload["mode"],
		"citation_count":  payload["citation_count"],
		"occurred_at":     event.Timestamp(),
	})

	return nil
}
