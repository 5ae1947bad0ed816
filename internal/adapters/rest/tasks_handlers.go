package rest

import (
	"errors"
	"net/http"

	"outreach-service/internal/contextkeys"
	"outreach-service/internal/core/domain"
	"outreach-service/internal/core/port/usecases_port"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type TasksHandler struct {
	listUC     usecases_port.ListTasksPort
	completeUC usecases_port.CompleteTaskPort
}

func NewTasksHandler(listUC usecases_port.ListTasksPort, completeUC usecases_port.CompleteTaskPort) *TasksHandler {
	return &TasksHandler{listUC: listUC, completeUC: completeUC}
}

// ListTasks обрабатывает GET /api/v1/tasks?status=open&limit=50&offset=0
func (h *TasksHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context())

	status := domain.TaskStatus(r.URL.Query().Get("status"))
	switch status {
	case "", domain.TaskOpen, domain.TaskCompleted:
	default:
		WriteJSONError(w, http.StatusBadRequest, "unknown task status")
		return
	}
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	tasks, err := h.listUC.Execute(r.Context(), status, limit, offset)
	if err != nil {
		logger.Error("Failed to list tasks", err, nil)
		WriteJSONError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	RespondWithJSON(w, http.StatusOK, tasks)
}

// CompleteTask обрабатывает POST /api/v1/tasks/{taskID}/complete
func (h *TasksHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context())

	taskID, err := uuid.Parse(chi.URLParam(r, "taskID"))
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	task, err := h.completeUC.Execute(r.Context(), taskID)
	if errors.Is(err, domain.ErrTaskNotFound) {
		WriteJSONError(w, http.StatusNotFound, "task not found")
		return
	}
	if err != nil {
		logger.Error("Failed to complete task", err, nil)
		WriteJSONError(w, http.StatusInternalServerError, "failed to complete task")
		return
	}
	RespondWithJSON(w, http.StatusOK, task)
}
