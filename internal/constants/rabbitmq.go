package constants

// Обменники
const (
	ExchangeOutreach = "outreach"
)

// Очереди
const (
	QueueIngestionRequests = "outreach_ingestion_requests"
)

// Ключи маршрутизации
const (
	RoutingKeyIngestionRequest = "outreach.ingestion.run"
	RoutingKeyTaskCreated      = "outreach.task.created"
	RoutingKeyIngestionReport  = "outreach.ingestion.report"
)

// Повторы и финальная DLQ для запросов на прогон
const (
	RetryExchange      = "outreach_ingestion_retry_exchange"
	RetryQueue         = "outreach_ingestion_retry_wait"
	RetryTTLMillis     = 30000
	MaxRetries         = 3
	FinalDLXExchange   = "outreach_ingestion_final_dlx"
	FinalDLQ           = "outreach_ingestion_final_dlq"
	FinalDLQRoutingKey = "outreach.ingestion.dlq"
)

// Заголовки с типом и версией события
const (
	HeaderEventType    = "event_type"
	HeaderEventVersion = "event_version"
)

// Типы событий
const (
	EventIngestionRunRequest = "IngestionRunRequestEvent"
	EventTaskCreated         = "TaskCreatedEvent"
	EventIngestionReport     = "IngestionReportEvent"
	EventVersionV1           = "1.0.0"
)
