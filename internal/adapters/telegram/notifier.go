// Package telegram шлёт операторам уведомления о новых задачах и итогах прогонов.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"outreach-service/internal/contextkeys"
	"outreach-service/internal/core/domain"
	"outreach-service/internal/core/port"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender - часть tgbotapi.BotAPI, которой достаточно для уведомлений
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Notifier struct {
	bot    Sender
	chatID int64
}

// NewBot авторизует бота по токену
func NewBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: failed to authorize bot: %w", err)
	}
	return bot, nil
}

func NewNotifier(bot Sender, chatID int64) (*Notifier, error) {
	if bot == nil {
		return nil, fmt.Errorf("telegram bot cannot be nil")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("telegram chat id is required")
	}
	return &Notifier{bot: bot, chatID: chatID}, nil
}

func (n *Notifier) send(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.DisableWebPagePreview = true
	_, err := n.bot.Send(msg)
	return err
}

func (n *Notifier) Notify(ctx context.Context, event domain.TaskEvent) {
	if event.Task == nil || event.Type != domain.TaskEventCreated {
		return
	}
	if err := n.send(formatTask(event.Task)); err != nil {
		contextkeys.LoggerFromContext(ctx).Error("Failed to send Telegram notification", err, port.Fields{
			"component": "TelegramNotifier",
			"task_id":   event.Task.ID.String(),
		})
	}
}

func (n *Notifier) PublishReport(ctx context.Context, report *domain.IngestionReport) error {
	if err := n.send(formatReport(report)); err != nil {
		return fmt.Errorf("telegram: failed to send ingestion report: %w", err)
	}
	return nil
}

func formatTask(t *domain.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New task %s\n%s\n", t.Type, t.Title)
	if t.Target != "" {
		fmt.Fprintf(&b, "Target: %s\n", t.Target)
	}
	fmt.Fprintf(&b, "Due: %s", t.DueDate.Format("2006-01-02"))
	return b.String()
}

func formatReport(r *domain.IngestionReport) string {
	total := r.Totals()
	var b strings.Builder
	fmt.Fprintf(&b, "Ingestion run %s finished in %s\n", r.RunID.String()[:8], r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(&b, "Total: fetched %d, new %d, updated %d, duplicates %d, failed %d, sources down %d\n",
		total.Fetched, total.Imported, total.Updated, total.Duplicates, total.Failed, total.SourceFailures)
	for _, a := range r.Adapters {
		fmt.Fprintf(&b, "- %s: %d/%d/%d", a.Portal, a.Fetched, a.Imported, a.Failed)
		if len(a.Errors) > 0 {
			fmt.Fprintf(&b, " (%s)", a.Errors[0])
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
