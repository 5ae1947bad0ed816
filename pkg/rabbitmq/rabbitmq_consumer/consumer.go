package rabbitmq_consumer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"outreach-service/pkg/rabbitmq/rabbitmq_common"
	"outreach-service/pkg/rabbitmq/rabbitmq_producer"

	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageHandler обрабатывает одно сообщение, подтверждением управляет потребитель
type MessageHandler func(ctx context.Context, delivery amqp.Delivery) error

// ErrPermanent помечает ошибки, которые не исправятся повтором
var ErrPermanent = errors.New("permanent message failure")

// Permanent оборачивает ошибку, чтобы сообщение сразу ушло в финальную DLQ
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// Consumer обрабатывает каждое сообщение в отдельной горутине
type Consumer struct {
	config  ConsumerConfig
	handler MessageHandler
	conn    *amqp.Connection
	channel *amqp.Channel
	dlx     *rabbitmq_producer.Publisher
	wg      sync.WaitGroup
	Logger  rabbitmq_common.Logger
}

func NewConsumer(cfg ConsumerConfig, handler MessageHandler, connManager *rabbitmq_common.ConnectionManager) (*Consumer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, fmt.Errorf("consumer: message handler is required")
	}
	if connManager == nil {
		return nil, fmt.Errorf("consumer: connection manager cannot be nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = rabbitmq_common.NewNoopLogger()
	}

	conn, ch, err := connManager.GetChannel()
	if err != nil {
		return nil, fmt.Errorf("consumer: failed to get channel from manager: %w", err)
	}
	c := &Consumer{config: cfg, handler: handler, conn: conn, channel: ch, Logger: cfg.Logger}

	if err := c.setup(); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("consumer: setup failed: %w", err)
	}

	if cfg.EnableRetryMechanism {
		c.dlx, err = rabbitmq_producer.NewPublisher(rabbitmq_producer.PublisherConfig{
			Config:       cfg.Config,
			ExchangeName: cfg.FinalDLXExchange,
			Logger:       cfg.Logger,
		}, connManager)
		if err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("consumer: failed to create final DLX publisher: %w", err)
		}
	}
	return c, nil
}

func (c *Consumer) setup() error {
	cfg := &c.config
	if cfg.PrefetchCount > 0 {
		if err := c.channel.Qos(cfg.PrefetchCount, 0, false); err != nil {
			return fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	if cfg.EnableRetryMechanism {
		args := amqp.Table{}
		for k, v := range cfg.QueueArgs {
			args[k] = v
		}
		args["x-dead-letter-exchange"] = cfg.RetryExchange
		cfg.QueueArgs = args
	}

	if cfg.DeclareExchangeForBind {
		if err := c.channel.ExchangeDeclare(cfg.ExchangeNameForBind, cfg.ExchangeTypeForBind, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare exchange '%s': %w", cfg.ExchangeNameForBind, err)
		}
	}
	if cfg.DeclareQueue {
		c.Logger.Debug("Declaring queue", "name", cfg.QueueName, "durable", cfg.DurableQueue)
		if _, err := c.channel.QueueDeclare(cfg.QueueName, cfg.DurableQueue, false, false, false, cfg.QueueArgs); err != nil {
			return fmt.Errorf("failed to declare queue '%s': %w", cfg.QueueName, err)
		}
	}
	if cfg.ExchangeNameForBind != "" {
		if err := c.channel.QueueBind(cfg.QueueName, cfg.RoutingKeyForBind, cfg.ExchangeNameForBind, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue '%s' to '%s': %w", cfg.QueueName, cfg.ExchangeNameForBind, err)
		}
	}

	if !cfg.EnableRetryMechanism {
		return nil
	}
	c.Logger.Debug("Setting up retry topology", "retry_exchange", cfg.RetryExchange, "retry_queue", cfg.RetryQueue)
	steps := []struct {
		what string
		run  func() error
	}{
		{"final DLX", func() error {
			return c.channel.ExchangeDeclare(cfg.FinalDLXExchange, "direct", true, false, false, false, nil)
		}},
		{"final DLQ", func() error {
			_, err := c.channel.QueueDeclare(cfg.FinalDLQ, true, false, false, false, nil)
			return err
		}},
		{"final DLQ binding", func() error {
			return c.channel.QueueBind(cfg.FinalDLQ, cfg.FinalDLQRoutingKey, cfg.FinalDLXExchange, false, nil)
		}},
		{"retry exchange", func() error {
			return c.channel.ExchangeDeclare(cfg.RetryExchange, "fanout", true, false, false, false, nil)
		}},
		{"retry queue", func() error {
			_, err := c.channel.QueueDeclare(cfg.RetryQueue, true, false, false, false, amqp.Table{
				"x-message-ttl":          int32(cfg.RetryTTL),
				"x-dead-letter-exchange": cfg.ExchangeNameForBind,
			})
			return err
		}},
		{"retry queue binding", func() error {
			return c.channel.QueueBind(cfg.RetryQueue, "", cfg.RetryExchange, false, nil)
		}},
	}
	for _, s := range steps {
		if err := s.run(); err != nil {
			return fmt.Errorf("failed to declare %s: %w", s.what, err)
		}
	}
	return nil
}

// StartConsuming блокируется до отмены ctx или обрыва соединения
func (c *Consumer) StartConsuming(ctx context.Context) error {
	if c.channel == nil || c.conn == nil || c.conn.IsClosed() {
		return fmt.Errorf("consumer: not connected")
	}
	msgs, err := c.channel.Consume(c.config.QueueName, c.config.ConsumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consumer %s: failed to consume from '%s': %w", c.config.ConsumerTag, c.config.QueueName, err)
	}
	c.Logger.Info("Waiting for messages", "queue_name", c.config.QueueName)

	notifyClose := c.conn.NotifyClose(make(chan *amqp.Error, 1))
	for {
		select {
		case <-ctx.Done():
			c.Logger.Info("Context cancelled, consumer stops", "consumer_tag", c.config.ConsumerTag)
			return nil
		case amqpErr := <-notifyClose:
			if amqpErr == nil {
				return nil
			}
			c.Logger.Error(amqpErr, "Connection closed for consumer", "consumer_tag", c.config.ConsumerTag)
			return amqpErr
		case d, ok := <-msgs:
			if !ok {
				c.Logger.Info("Deliveries channel closed", "consumer_tag", c.config.ConsumerTag)
				return nil
			}
			c.wg.Add(1)
			go func(d amqp.Delivery) {
				defer c.wg.Done()
				c.handle(ctx, d)
			}(d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	err := c.handler(ctx, d)
	if err == nil {
		_ = d.Ack(false)
		return
	}
	c.Logger.Error(err, "Handler error", "consumer_tag", c.config.ConsumerTag, "delivery_tag", d.DeliveryTag)

	if !c.config.EnableRetryMechanism {
		_ = d.Nack(false, false)
		return
	}
	deaths := deathCount(d.Headers, c.config.QueueName)
	if !errors.Is(err, ErrPermanent) && deaths < int64(c.config.MaxRetries) {
		c.Logger.Info("Retrying message", "delivery_tag", d.DeliveryTag, "death_count", deaths)
		_ = d.Nack(false, false)
		return
	}

	pubErr := c.dlx.Publish(context.Background(), c.config.FinalDLQRoutingKey, amqp.Publishing{
		ContentType:  d.ContentType,
		Body:         d.Body,
		Headers:      d.Headers,
		Timestamp:    time.Now(),
		DeliveryMode: amqp.Persistent,
	})
	if pubErr != nil {
		c.Logger.Error(pubErr, "Failed to publish to final DLX, message goes around again", "delivery_tag", d.DeliveryTag)
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

// Close ждёт активные обработчики и закрывает канал
func (c *Consumer) Close() error {
	c.wg.Wait()
	var errs []error
	if c.dlx != nil {
		errs = append(errs, c.dlx.Close())
	}
	if c.channel != nil {
		errs = append(errs, c.channel.Close())
		c.channel = nil
	}
	c.Logger.Info("Consumer closed", "queue_name", c.config.QueueName)
	return errors.Join(errs...)
}
