package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"outreach-service/internal/constants"
	"outreach-service/internal/contextkeys"
	"outreach-service/internal/contracts"
	"outreach-service/internal/core/domain"
	"outreach-service/internal/core/port"
	"outreach-service/internal/core/port/usecases_port"
	"outreach-service/pkg/rabbitmq/rabbitmq_common"
	"outreach-service/pkg/rabbitmq/rabbitmq_consumer"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// IngestionRequestConsumerAdapter - входящий адаптер: запрос из очереди запускает прогон
type IngestionRequestConsumerAdapter struct {
	consumer *rabbitmq_consumer.Consumer
	useCase  usecases_port.RunIngestionPort
	matcher  usecases_port.MatchListingsPort
	logger   port.LoggerPort
}

// NewIngestionRequestConsumerAdapter: matcher может быть nil, тогда match_after игнорируется
func NewIngestionRequestConsumerAdapter(
	consumerCfg rabbitmq_consumer.ConsumerConfig,
	useCase usecases_port.RunIngestionPort,
	matcher usecases_port.MatchListingsPort,
	logger port.LoggerPort,
	connManager *rabbitmq_common.ConnectionManager,
) (*IngestionRequestConsumerAdapter, error) {
	if useCase == nil {
		return nil, fmt.Errorf("rabbitmq adapter: ingestion use case cannot be nil")
	}
	a := &IngestionRequestConsumerAdapter{useCase: useCase, matcher: matcher, logger: logger}

	consumerCfg.Logger = NewPkgLoggerBridge(logger.WithFields(port.Fields{
		"component":    "rabbitmq_consumer",
		"consumer_tag": consumerCfg.ConsumerTag,
	}))
	consumer, err := rabbitmq_consumer.NewConsumer(consumerCfg, a.handleDelivery, connManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ consumer for ingestion requests: %w", err)
	}
	a.consumer = consumer
	return a, nil
}

func (a *IngestionRequestConsumerAdapter) Start(ctx context.Context) error {
	return a.consumer.StartConsuming(ctx)
}

func (a *IngestionRequestConsumerAdapter) Close() error {
	return a.consumer.Close()
}

func (a *IngestionRequestConsumerAdapter) handleDelivery(ctx context.Context, d amqp.Delivery) error {
	traceID, _ := d.Headers["x-trace-id"].(string)
	if traceID == "" {
		traceID = uuid.New().String()
	}
	msgLogger := a.logger.WithFields(port.Fields{
		"trace_id":     traceID,
		"message_id":   d.MessageId,
		"adapter_name": "IngestionRequestConsumerAdapter",
	})
	ctx = contextkeys.ContextWithTraceID(contextkeys.ContextWithLogger(ctx, msgLogger), traceID)

	eventType, _ := d.Headers[constants.HeaderEventType].(string)
	if eventType == "" {
		eventType = constants.EventIngestionRunRequest
	}
	eventVersion, _ := d.Headers[constants.HeaderEventVersion].(string)
	if eventVersion == "" {
		eventVersion = constants.EventVersionV1
	}
	if err := contracts.ValidateEvent(eventType, eventVersion, d.Body); err != nil {
		msgLogger.Error("Message failed schema validation. Rejecting.", err, nil)
		return rabbitmq_consumer.Permanent(err)
	}

	var dto IngestionRunRequestDTO
	if err := json.Unmarshal(d.Body, &dto); err != nil {
		return rabbitmq_consumer.Permanent(fmt.Errorf("failed to unmarshal ingestion request: %w", err))
	}
	msgLogger.Info("Ingestion request received", port.Fields{"request_id": dto.RequestID, "city": dto.Criteria.City})

	report, err := a.useCase.Execute(ctx, dto.Criteria.toDomain())
	if errors.Is(err, domain.ErrAlreadyRunning) {
		// запрос поглощается текущим прогоном
		msgLogger.Warn("Ingestion run already in progress, request dropped", port.Fields{"request_id": dto.RequestID})
		return nil
	}
	if err != nil {
		return fmt.Errorf("ingestion run failed: %w", err)
	}

	if dto.MatchAfter != nil && *dto.MatchAfter && a.matcher != nil {
		if _, err := a.matcher.Execute(ctx, report.StartedAt); err != nil {
			// прогон уже сохранён, повтор сообщения ничего не даст
			msgLogger.Error("Matching after ingestion failed", err, nil)
		}
	}
	return nil
}
