package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"outreach-service/internal/constants"
	"outreach-service/internal/contextkeys"
	"outreach-service/internal/core/domain"
	"outreach-service/internal/core/port"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 10 * time.Second

// Publisher - часть rabbitmq_producer.Publisher, нужная адаптерам
type Publisher interface {
	Publish(ctx context.Context, routingKey string, msg amqp.Publishing) error
}

func publishJSON(ctx context.Context, p Publisher, routingKey, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", eventType, err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Headers: amqp.Table{
			constants.HeaderEventType:    eventType,
			constants.HeaderEventVersion: constants.EventVersionV1,
		},
	}
	if traceID := contextkeys.TraceIDFromContext(ctx); traceID != "" {
		msg.Headers["x-trace-id"] = traceID
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return p.Publish(publishCtx, routingKey, msg)
}

// TaskEventPublisherAdapter публикует события о созданных задачах (NotifierPort)
type TaskEventPublisherAdapter struct {
	producer Publisher
}

func NewTaskEventPublisherAdapter(producer Publisher) (*TaskEventPublisherAdapter, error) {
	if producer == nil {
		return nil, fmt.Errorf("rabbitmq adapter: producer cannot be nil")
	}
	return &TaskEventPublisherAdapter{producer: producer}, nil
}

func (a *TaskEventPublisherAdapter) Notify(ctx context.Context, event domain.TaskEvent) {
	if event.Task == nil || event.Type != domain.TaskEventCreated {
		return
	}
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "TaskEventPublisherAdapter",
		"task_id":   event.Task.ID.String(),
	})
	err := publishJSON(ctx, a.producer, constants.RoutingKeyTaskCreated, constants.EventTaskCreated, toTaskCreatedDTO(event.Task))
	if err != nil {
		logger.Error("Failed to publish task event", err, nil)
		return
	}
	logger.Debug("Task event published", nil)
}

// IngestionReportPublisherAdapter публикует итог прогона
type IngestionReportPublisherAdapter struct {
	producer Publisher
}

func NewIngestionReportPublisherAdapter(producer Publisher) (*IngestionReportPublisherAdapter, error) {
	if producer == nil {
		return nil, fmt.Errorf("rabbitmq adapter: producer cannot be nil")
	}
	return &IngestionReportPublisherAdapter{producer: producer}, nil
}

func (a *IngestionReportPublisherAdapter) PublishReport(ctx context.Context, report *domain.IngestionReport) error {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "IngestionReportPublisherAdapter",
		"run_id":    report.RunID.String(),
	})
	err := publishJSON(ctx, a.producer, constants.RoutingKeyIngestionReport, constants.EventIngestionReport, toIngestionReportDTO(report))
	if err != nil {
		logger.Error("Failed to publish ingestion report", err, nil)
		return fmt.Errorf("rabbitmq adapter: failed to publish report for run %s: %w", report.RunID, err)
	}
	logger.Info("Ingestion report published", nil)
	return nil
}
