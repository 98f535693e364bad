package insights

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/eventpulse/eventpulse/internal/rest"
	"github.com/eventpulse/eventpulse/pkg/event"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type analyzeAttachmentRequest struct {
	FileName string `json:"fileName" validate:"required"`
	FileType string `json:"fileType"`
	Content  string `json:"content" validate:"required"`
	URL      string `json:"url"`
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) GetEventInsights(w http.ResponseWriter, r *http.Request) {
	eventId := mux.Vars(r)["eventId"]
	log.Tracef("Collecting insights for event %s", eventId)

	result, err := h.service.EventInsights(r.Context(), eventId)
	if err != nil {
		rest.WriteError(w, r, mapServiceError(err))
		return
	}
	rest.WriteJSON(w, r, http.StatusOK, result)
}

func (h *Handler) AnalyzeAttachment(w http.ResponseWriter, r *http.Request) {
	eventId := mux.Vars(r)["eventId"]
	log.Tracef("Analyzing attachment for event %s", eventId)

	var req analyzeAttachmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, r, rest.BadRequest("Invalid request body format", nil))
		return
	}
	if err := validate.Struct(req); err != nil {
		rest.WriteError(w, r, rest.BadRequest("Invalid attachment payload", err.Error()))
		return
	}

	aiContext, err := h.service.AnalyzeAttachment(r.Context(), eventId, req.Content, req.FileName, req.FileType, req.URL)
	if err != nil {
		rest.WriteError(w, r, mapServiceError(err))
		return
	}
	rest.WriteJSON(w, r, http.StatusCreated, aiContext)
}

func mapServiceError(err error) error {
	if errors.Is(err, event.ErrEventNotFound) {
		return rest.NotFound(rest.CodeEventNotFound, "event not found")
	}
	return err
}
