package usecase

import (
	"context"
	"fmt"
	"time"

	"outreach-service/internal/contextkeys"
	"outreach-service/internal/core/domain"
	"outreach-service/internal/core/phone"
	"outreach-service/internal/core/port"
)

// TaskEngineConfig - пороги и флаги отправки
type TaskEngineConfig struct {
	ScoreThreshold    int
	AntiDupWindowDays int
	OutreachEnabled   bool
	Allowlist         phone.Allowlist
	MessageTemplate   string
}

// GenerateTasksUseCase превращает оценённые совпадения в задачи для операторов
// и, если разрешено, сразу отправляет сообщение клиенту.
type GenerateTasksUseCase struct {
	guard        *AntiDuplicationGuard
	tasks        port.TaskRepositoryPort
	interactions port.InteractionLogPort
	messenger    port.MessengerPort
	notifier     port.NotifierPort
	renderer     *messageRenderer
	locks        *keyedMutex
	cfg          TaskEngineConfig
	now          func() time.Time
}

func NewGenerateTasksUseCase(
	guard *AntiDuplicationGuard,
	tasks port.TaskRepositoryPort,
	interactions port.InteractionLogPort,
	messenger port.MessengerPort,
	notifier port.NotifierPort,
	cfg TaskEngineConfig,
) (*GenerateTasksUseCase, error) {
	if guard == nil || tasks == nil || interactions == nil {
		return nil, fmt.Errorf("guard, task repository and interaction log cannot be nil")
	}
	if cfg.OutreachEnabled && messenger == nil {
		return nil, fmt.Errorf("messenger cannot be nil when outreach is enabled")
	}
	if cfg.ScoreThreshold < 0 || cfg.ScoreThreshold > 100 {
		return nil, fmt.Errorf("score threshold must be within 0..100, got %d", cfg.ScoreThreshold)
	}
	if cfg.AntiDupWindowDays < 1 {
		return nil, fmt.Errorf("anti-duplication window must be at least one day, got %d", cfg.AntiDupWindowDays)
	}
	renderer, err := newMessageRenderer(cfg.MessageTemplate)
	if err != nil {
		return nil, err
	}
	return &GenerateTasksUseCase{
		guard:        guard,
		tasks:        tasks,
		interactions: interactions,
		messenger:    messenger,
		notifier:     notifier,
		renderer:     renderer,
		locks:        newKeyedMutex(),
		cfg:          cfg,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

func (uc *GenerateTasksUseCase) Execute(ctx context.Context, matches []domain.ScoredMatch) (*domain.TaskRunReport, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case": "GenerateTasks",
		"matches":  len(matches),
	})
	ucLogger.Info("Use case started", nil)

	report := &domain.TaskRunReport{}
	for _, m := range matches {
		report.Considered++
		if m.Candidate.Score < uc.cfg.ScoreThreshold {
			report.BelowThreshold++
			continue
		}
		if err := ctx.Err(); err != nil {
			ucLogger.Warn("Context cancelled, stopping task generation", port.Fields{"processed": report.Considered - 1})
			return report, fmt.Errorf("task generation interrupted: %w", err)
		}
		uc.processMatch(ctx, ucLogger, m, report)
	}

	ucLogger.Info("Use case finished", port.Fields{"report": report})
	return report, nil
}

// SelectTaskType: наш объект (или без флага) - сообщение клиенту,
// мультиагентский - звонок владельцу, иначе - звонок агентству.
func SelectTaskType(listing domain.Listing) domain.TaskType {
	switch {
	case listing.OwnedByUs():
		return domain.TaskSendMessage
	case listing.IsMultiagency:
		return domain.TaskCallOwner
	default:
		return domain.TaskCallAgency
	}
}

func (uc *GenerateTasksUseCase) processMatch(ctx context.Context, ucLogger port.LoggerPort, m domain.ScoredMatch, report *domain.TaskRunReport) {
	taskType := SelectTaskType(m.Listing)
	key := domain.InteractionKey{ClientID: m.Client.ID, PropertyID: m.Listing.ID, Channel: taskType.Channel()}
	matchLogger := ucLogger.WithFields(port.Fields{
		"client_id":   key.ClientID.String(),
		"property_id": key.PropertyID.String(),
		"channel":     string(key.Channel),
		"score":       m.Candidate.Score,
	})

	// проверка и запись по одной тройке выполняются строго последовательно
	unlock := uc.locks.Lock(key.String())
	defer unlock()

	recent, err := uc.guard.HasRecentInteraction(ctx, key.ClientID, key.PropertyID, key.Channel, uc.cfg.AntiDupWindowDays)
	if err != nil {
		// без ответа журнала задачу не создаём: лучше пропустить, чем написать дважды
		report.GuardErrors++
		matchLogger.Error("Anti-duplication check failed, skipping match", err, nil)
		return
	}
	if recent {
		report.Suppressed++
		matchLogger.Debug("Recent interaction found, match suppressed", nil)
		return
	}

	task, body, err := uc.buildTask(taskType, m)
	if err != nil {
		report.Failed++
		matchLogger.Error("Failed to build task", err, nil)
		return
	}

	created, err := uc.tasks.UpsertOpen(ctx, task)
	if err != nil {
		report.Failed++
		matchLogger.Error("Failed to upsert task", err, nil)
		return
	}
	if created {
		report.Created++
		matchLogger.Info("Task created", port.Fields{"task_id": task.ID.String(), "task_type": string(task.Type)})
		if uc.notifier != nil {
			uc.notifier.Notify(ctx, domain.TaskEvent{Type: domain.TaskEventCreated, Task: task})
		}
	} else {
		report.Refreshed++
	}

	if taskType == domain.TaskSendMessage {
		uc.dispatch(ctx, matchLogger, key, m.Client, body, report)
	}
}

func (uc *GenerateTasksUseCase) buildTask(taskType domain.TaskType, m domain.ScoredMatch) (*domain.Task, string, error) {
	task := domain.NewTask(taskType, m.Client.ID, m.Listing.ID, uc.now())
	listingRef := m.Listing.Title
	if listingRef == "" {
		listingRef = m.Listing.Key()
	}
	details := fmt.Sprintf("Match score %d: %s", m.Candidate.Score, m.Candidate.Reasoning)
	if m.Listing.URL != "" {
		details += "\nListing: " + m.Listing.URL
	}

	switch taskType {
	case domain.TaskSendMessage:
		body, err := uc.renderer.Render(m.Client, m.Listing, m.Candidate.Score)
		if err != nil {
			return nil, "", err
		}
		task.Title = fmt.Sprintf("Send WhatsApp to %s about %s", m.Client.Name, listingRef)
		task.Target = WhatsAppDeepLink(m.Client.Phone, body)
		task.Notes = body + "\n\n" + details
		return task, body, nil

	case domain.TaskCallOwner:
		task.Title = fmt.Sprintf("Call owner of %s for %s", listingRef, m.Client.Name)
		task.Target = ownerTarget(m.Listing)
		task.Notes = "Multi-agency listing: contact the owner directly.\n" + details

	default:
		agency := "listing agency"
		if m.Listing.AgencyName != nil && *m.Listing.AgencyName != "" {
			agency = *m.Listing.AgencyName
		}
		task.Title = fmt.Sprintf("Call %s about %s for %s", agency, listingRef, m.Client.Name)
		task.Target = ownerTarget(m.Listing)
		hint := "No exclusivity detected: the property may be offered by other agencies too."
		if m.Listing.ExclusivityHint {
			hint = "Listing looks exclusive to this agency: propose a co-brokerage agreement."
		}
		task.Notes = hint + "\n" + details
	}
	return task, "", nil
}

func ownerTarget(l domain.Listing) string {
	if l.OwnerContact != nil && *l.OwnerContact != "" {
		return *l.OwnerContact
	}
	return l.URL
}

// dispatch отправляет сообщение только при включённой рассылке и номере из allowlist.
// Ошибка отправки не отменяет задачу.
func (uc *GenerateTasksUseCase) dispatch(ctx context.Context, logger port.LoggerPort, key domain.InteractionKey, client domain.Client, body string, report *domain.TaskRunReport) {
	if !uc.cfg.OutreachEnabled {
		return
	}
	number := phone.Normalize(client.Phone)
	if number == "" || !uc.cfg.Allowlist.Contains(number) {
		logger.Debug("Phone is not in outreach allowlist, message not sent", nil)
		return
	}

	result, err := uc.messenger.Send(ctx, number, body)
	if err == nil && !result.Success {
		err = fmt.Errorf("gateway rejected message: %s", result.Error)
	}
	if err != nil {
		report.DispatchFailed++
		logger.Error("Outreach dispatch failed, task kept open", fmt.Errorf("%w: %v", domain.ErrDispatchFailure, err), nil)
		return
	}

	report.Dispatched++
	interaction := domain.NewInteraction(key, body, result.ExternalID)
	if err := uc.interactions.Append(ctx, interaction); err != nil {
		logger.Error("Message sent but interaction was not logged", err, port.Fields{"external_id": result.ExternalID})
		return
	}
	logger.Info("Outreach message sent", port.Fields{"external_id": result.ExternalID})
}
