package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"catalog-service/internal/models"
	"catalog-service/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher publishes browsing telemetry
type EventPublisher struct {
	producer *Producer
	timeout  time.Duration
	logger   *zap.Logger
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{
		producer: producer,
		timeout:  5 * time.Second,
		logger:   util.GetLogger(),
	}
}

// LogEvent publishes a telemetry event in the background. Callers never
// wait on it and failures are only logged.
func (ep *EventPublisher) LogEvent(ctx context.Context, kind string, payload map[string]interface{}) {
	event := NewTelemetryEvent(kind, payload)
	if sessionID, ok := payload["session_id"].(string); ok {
		event.SessionID = sessionID
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ep.timeout)
		defer cancel()

		if err := ep.Publish(ctx, event); err != nil {
			util.TelemetryEventsFailed.Inc()
			ep.logger.Warn("Failed to publish telemetry event",
				zap.String("event_type", kind),
				zap.Error(err))
		}
	}()
}

// Publish publishes a telemetry event and waits for the write
func (ep *EventPublisher) Publish(ctx context.Context, event *models.TelemetryEvent) error {
	key := event.SessionID
	if key == "" {
		key = event.EventID
	}
	return ep.producer.PublishEvent(ctx, key, event)
}

// NewTelemetryEvent stamps a telemetry event
func NewTelemetryEvent(kind string, payload map[string]interface{}) *models.TelemetryEvent {
	return &models.TelemetryEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: kind,
			Timestamp: time.Now(),
		},
		Payload: payload,
	}
}

// EventHandler handles incoming catalog events
type EventHandler struct {
	onProductChanged func(context.Context, *models.ProductChangedEvent) error
	logger           *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnProductChanged registers a handler for product update and delete events
func (eh *EventHandler) OnProductChanged(handler func(context.Context, *models.ProductChangedEvent) error) {
	eh.onProductChanged = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("event_type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeProductUpdated, models.EventTypeProductDeleted:
		if eh.onProductChanged != nil {
			var event models.ProductChangedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal %s event: %w", baseEvent.EventType, err)
			}
			return eh.onProductChanged(ctx, &event)
		}

	default:
		eh.logger.Debug("Unhandled event type", zap.String("event_type", baseEvent.EventType))
	}

	return nil
}
