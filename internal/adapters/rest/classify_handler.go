package rest

import (
	"net/http"

	"outreach-service/internal/core/classifier"
	"outreach-service/internal/core/domain"
)

type OwnerClassifier interface {
	Classify(signals domain.OwnerSignals) classifier.Result
}

// ClassifyHandler - ручная проверка классификатора на произвольных сигналах
type ClassifyHandler struct {
	classifier OwnerClassifier
}

func NewClassifyHandler(c OwnerClassifier) *ClassifyHandler {
	return &ClassifyHandler{classifier: c}
}

// Classify обрабатывает POST /api/v1/classify
func (h *ClassifyHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := decodeBody(r, &req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	RespondWithJSON(w, http.StatusOK, h.classifier.Classify(req.Signals))
}
