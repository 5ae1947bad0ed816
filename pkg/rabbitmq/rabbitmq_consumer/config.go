package rabbitmq_consumer

import (
	"fmt"

	"outreach-service/pkg/rabbitmq/rabbitmq_common"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ConsumerConfig - очередь, привязка, QoS и цикл повторов
type ConsumerConfig struct {
	rabbitmq_common.Config

	QueueName    string
	DeclareQueue bool
	DurableQueue bool
	QueueArgs    amqp.Table

	// ExchangeNameForBind пустой - без привязки
	ExchangeNameForBind    string
	DeclareExchangeForBind bool
	ExchangeTypeForBind    string
	RoutingKeyForBind      string

	PrefetchCount int
	ConsumerTag   string

	// Повторы: основная очередь -> RetryExchange -> RetryQueue (TTL) -> снова основная.
	// После MaxRetries сообщение уходит в FinalDLXExchange/FinalDLQ.
	EnableRetryMechanism bool
	RetryExchange        string
	RetryQueue           string
	RetryTTL             int // мс
	FinalDLXExchange     string
	FinalDLQ             string
	FinalDLQRoutingKey   string
	MaxRetries           int

	Logger rabbitmq_common.Logger
}

func (c ConsumerConfig) validate() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.QueueName == "" {
		return fmt.Errorf("consumer: queue name is required")
	}
	if c.DeclareExchangeForBind && c.ExchangeTypeForBind == "" {
		return fmt.Errorf("consumer: exchange type is required to declare exchange '%s'", c.ExchangeNameForBind)
	}
	if c.EnableRetryMechanism {
		if c.RetryExchange == "" || c.RetryQueue == "" || c.FinalDLXExchange == "" || c.FinalDLQ == "" {
			return fmt.Errorf("consumer: retry exchange, retry queue, final DLX and final DLQ are required when retries are enabled")
		}
		if c.RetryTTL <= 0 || c.MaxRetries < 0 {
			return fmt.Errorf("consumer: retry TTL must be positive and max retries non-negative")
		}
	}
	return nil
}

// deathCount - сколько раз сообщение было отклонено из очереди queue (заголовок x-death)
func deathCount(headers amqp.Table, queue string) int64 {
	deaths, ok := headers["x-death"].([]interface{})
	if !ok {
		return 0
	}
	for _, death := range deaths {
		tbl, ok := death.(amqp.Table)
		if !ok {
			continue
		}
		if q, _ := tbl["queue"].(string); q == queue {
			if count, ok := tbl["count"].(int64); ok {
				return count
			}
		}
	}
	return 0
}
