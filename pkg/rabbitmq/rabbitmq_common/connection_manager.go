package rabbitmq_common

import (
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const reconnectInterval = 10 * time.Second

// ConnectionManager держит одно соединение на процесс и переподключается при обрыве
type ConnectionManager struct {
	url    string
	mu     sync.RWMutex
	conn   *amqp.Connection
	done   chan struct{}
	once   sync.Once
	Logger Logger
}

// NewManager подключается сразу и запускает фоновый контроль соединения
func NewManager(url string, logger Logger) (*ConnectionManager, error) {
	if err := (Config{URL: url}).Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = NewNoopLogger()
	}
	m := &ConnectionManager{url: url, Logger: logger, done: make(chan struct{})}
	if _, err := m.connection(); err != nil {
		logger.Error(err, "Initial connection failed")
		return nil, fmt.Errorf("initial connection failed: %w", err)
	}
	go m.watch()
	return m, nil
}

func (m *ConnectionManager) connection() (*amqp.Connection, error) {
	m.mu.RLock()
	if m.conn != nil && !m.conn.IsClosed() {
		defer m.mu.RUnlock()
		return m.conn, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil && !m.conn.IsClosed() {
		return m.conn, nil
	}

	m.Logger.Debug("ConnectionManager: connecting")
	conn, err := amqp.Dial(m.url)
	if err != nil {
		return nil, fmt.Errorf("ConnectionManager: failed to dial RabbitMQ: %w", err)
	}
	m.conn = conn
	m.Logger.Debug("ConnectionManager: connected")
	return conn, nil
}

// GetChannel открывает новый канал на общем соединении
func (m *ConnectionManager) GetChannel() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := m.connection()
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return conn, nil, fmt.Errorf("ConnectionManager: failed to open a channel: %w", err)
	}
	return conn, ch, nil
}

func (m *ConnectionManager) watch() {
	ticker := time.NewTicker(reconnectInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
		}

		m.mu.RLock()
		closed := m.conn != nil && m.conn.IsClosed()
		m.mu.RUnlock()
		if !closed {
			continue
		}
		m.Logger.Warn("ConnectionManager: connection lost, reconnecting")
		if _, err := m.connection(); err != nil {
			m.Logger.Error(err, "ConnectionManager: reconnect failed")
		}
	}
}

// Close останавливает контроль и закрывает соединение
func (m *ConnectionManager) Close() error {
	m.once.Do(func() { close(m.done) })

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil || m.conn.IsClosed() {
		return nil
	}
	if err := m.conn.Close(); err != nil {
		m.Logger.Error(err, "ConnectionManager: failed to close connection")
		return err
	}
	m.Logger.Debug("ConnectionManager: connection closed")
	return nil
}
