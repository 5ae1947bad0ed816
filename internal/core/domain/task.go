package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskType - тип задачи для оператора
type TaskType string

const (
	TaskSendMessage TaskType = "SEND_MESSAGE"
	TaskCallOwner   TaskType = "CALL_OWNER"
	TaskCallAgency  TaskType = "CALL_AGENCY"
)

// Channel возвращает канал, которым будет выполнена задача
func (t TaskType) Channel() Channel {
	switch t {
	case TaskCallOwner:
		return ChannelCallOwner
	case TaskCallAgency:
		return ChannelCallAgency
	default:
		return ChannelWhatsApp
	}
}

// TaskStatus - перечисление для статусов задачи
type TaskStatus string

const (
	TaskOpen      TaskStatus = "open"
	TaskCompleted TaskStatus = "completed"
)

// Task - задача для оператора
type Task struct {
	ID          uuid.UUID  `json:"id"`
	Type        TaskType   `json:"type"`
	ClientID    uuid.UUID  `json:"client_id"`
	PropertyID  uuid.UUID  `json:"property_id"`
	Title       string     `json:"title"`
	Target      string     `json:"target"`
	Notes       string     `json:"notes"`
	DueDate     time.Time  `json:"due_date"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewTask - конструктор открытой задачи со сроком "сегодня"
func NewTask(taskType TaskType, clientID, propertyID uuid.UUID, now time.Time) *Task {
	now = now.UTC()
	return &Task{
		ID:         uuid.New(),
		Type:       taskType,
		ClientID:   clientID,
		PropertyID: propertyID,
		DueDate:    time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		Status:     TaskOpen,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// TaskEvent - событие для уведомлений
type TaskEvent struct {
	Type string `json:"type"`
	Task *Task  `json:"task"`
}

const TaskEventCreated = "TASK_CREATED"
