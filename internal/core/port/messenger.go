package port

import "context"

// SendResult - ответ шлюза сообщений
type SendResult struct {
	Success    bool
	ExternalID string
	Error      string
}

// MessengerPort - отправка сообщений клиентам
type MessengerPort interface {
	Send(ctx context.Context, phone, text string) (SendResult, error)
}
