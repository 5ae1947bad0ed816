package usecase

import (
	"context"
	"fmt"
	"time"

	"outreach-service/internal/contextkeys"
	"outreach-service/internal/core/domain"
	"outreach-service/internal/core/port"

	"github.com/google/uuid"
)

type ListTasksUseCase struct {
	tasks port.TaskRepositoryPort
}

func NewListTasksUseCase(tasks port.TaskRepositoryPort) *ListTasksUseCase {
	return &ListTasksUseCase{tasks: tasks}
}

func (uc *ListTasksUseCase) Execute(ctx context.Context, status domain.TaskStatus, limit, offset int) ([]domain.Task, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	tasks, err := uc.tasks.ListByStatus(ctx, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// CompleteTaskUseCase - оператор отмечает задачу выполненной.
// Выполненная задача фиксируется в журнале контактов по своему каналу,
// иначе следующий прогон создал бы её заново.
type CompleteTaskUseCase struct {
	tasks        port.TaskRepositoryPort
	interactions port.InteractionLogPort
}

func NewCompleteTaskUseCase(tasks port.TaskRepositoryPort, interactions port.InteractionLogPort) *CompleteTaskUseCase {
	return &CompleteTaskUseCase{tasks: tasks, interactions: interactions}
}

func (uc *CompleteTaskUseCase) Execute(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	ucLogger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"use_case": "CompleteTask",
		"task_id":  taskID.String(),
	})

	if err := uc.tasks.Complete(ctx, taskID, time.Now().UTC()); err != nil {
		ucLogger.Error("Failed to complete task", err, nil)
		return nil, fmt.Errorf("failed to complete task %s: %w", taskID, err)
	}
	task, err := uc.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload task %s: %w", taskID, err)
	}

	key := domain.InteractionKey{ClientID: task.ClientID, PropertyID: task.PropertyID, Channel: task.Type.Channel()}
	if err := uc.interactions.Append(ctx, domain.NewInteraction(key, "task completed: "+task.Title, task.ID.String())); err != nil {
		ucLogger.Error("Task completed but interaction was not logged", err, nil)
		return nil, fmt.Errorf("failed to log interaction for task %s: %w", taskID, err)
	}
	ucLogger.Info("Task completed", port.Fields{"channel": string(key.Channel)})
	return task, nil
}
