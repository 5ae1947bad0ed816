package port

import "context"

// EventListenerPort - входящий адаптер очереди, запускающий use case на каждое сообщение
type EventListenerPort interface {
	// Start блокирует до отмены ctx или фатальной ошибки потребителя
	Start(ctx context.Context) error
	// Close останавливает потребление и ждёт обработчики, которые уже работают
	Close() error
}
