package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	"outreach-service/internal/core/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if b.err != nil {
		return tgbotapi.Message{}, b.err
	}
	b.sent = append(b.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{MessageID: len(b.sent)}, nil
}

func TestNotifier_TaskCreated(t *testing.T) {
	bot := &fakeBot{}
	n, err := NewNotifier(bot, 42)
	require.NoError(t, err)

	task := domain.NewTask(domain.TaskCallOwner, uuid.New(), uuid.New(), time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC))
	task.Title = "Call owner of Bilocale"
	task.Target = "+39 02 1234567"
	n.Notify(context.Background(), domain.TaskEvent{Type: domain.TaskEventCreated, Task: task})

	require.Len(t, bot.sent, 1)
	assert.Equal(t, int64(42), bot.sent[0].ChatID)
	assert.Contains(t, bot.sent[0].Text, "CALL_OWNER")
	assert.Contains(t, bot.sent[0].Text, "Due: 2026-05-04")
}

func TestNotifier_Report(t *testing.T) {
	bot := &fakeBot{}
	n, _ := NewNotifier(bot, 42)

	a := domain.NewAdapterReport("alpha", 5)
	a.Fetched, a.Imported = 10, 7
	a.MarkSourceFailed("alpha: timeout")
	start := time.Now()
	report := &domain.IngestionReport{RunID: uuid.New(), StartedAt: start, FinishedAt: start.Add(2 * time.Second), Adapters: []*domain.AdapterReport{a}}

	require.NoError(t, n.PublishReport(context.Background(), report))
	assert.Contains(t, bot.sent[0].Text, "fetched 10, new 7")
	assert.Contains(t, bot.sent[0].Text, "alpha: timeout")
	assert.Contains(t, bot.sent[0].Text, "sources down 1")

	bot.err = errors.New("forbidden")
	assert.Error(t, n.PublishReport(context.Background(), report))
	n.Notify(context.Background(), domain.TaskEvent{Type: domain.TaskEventCreated, Task: domain.NewTask(domain.TaskSendMessage, uuid.New(), uuid.New(), start)})
}

func TestNewNotifier_Validation(t *testing.T) {
	_, err := NewNotifier(nil, 1)
	assert.Error(t, err)
	_, err = NewNotifier(&fakeBot{}, 0)
	assert.Error(t, err)
}
