package forecast

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/eventpulse/eventpulse/internal/rest"
	"github.com/eventpulse/eventpulse/pkg/event"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// scheduleRequest is the wire shape of the schedule-aware forecast request.
// GatesCrowd elements are pointers so null entries are detectable.
type scheduleRequest struct {
	EventID       string     `json:"eventId" validate:"required"`
	Gates         []string   `json:"gates" validate:"required,min=1"`
	GatesCrowd    []*float64 `json:"gatesCrowd" validate:"required"`
	ScheduleStart string     `json:"scheduleStart" validate:"required"`
	ScheduleEnd   string     `json:"scheduleEnd" validate:"required"`
	ResampleFreq  string     `json:"resampleFreq"`
}

type legacyRequest struct {
	EventID   string         `json:"eventId" validate:"required"`
	InputData map[string]any `json:"inputData"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) GenerateForecast(w http.ResponseWriter, r *http.Request) {
	log.Trace("Generating forecast")

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, r, rest.BadRequest("Invalid request body format", nil))
		return
	}
	if err := validate.Struct(req); err != nil {
		rest.WriteError(w, r, rest.BadRequest("Invalid forecast payload", err.Error()))
		return
	}

	gatesCrowd, err := validateGatesCrowd(req.Gates, req.GatesCrowd)
	if err != nil {
		rest.WriteError(w, r, rest.BadRequest(err.Error(), nil))
		return
	}
	scheduleStart, err := time.Parse(time.RFC3339, req.ScheduleStart)
	if err != nil {
		rest.WriteError(w, r, rest.BadRequest("Invalid scheduleStart format", "dates must be in RFC3339 format"))
		return
	}
	scheduleEnd, err := time.Parse(time.RFC3339, req.ScheduleEnd)
	if err != nil {
		rest.WriteError(w, r, rest.BadRequest("Invalid scheduleEnd format", "dates must be in RFC3339 format"))
		return
	}
	if !scheduleEnd.After(scheduleStart) {
		rest.WriteError(w, r, rest.BadRequest("scheduleEnd must be after scheduleStart", nil))
		return
	}

	result, err := h.service.Generate(r.Context(), ScheduleInput{
		EventID:       req.EventID,
		Gates:         req.Gates,
		GatesCrowd:    gatesCrowd,
		ScheduleStart: scheduleStart,
		ScheduleEnd:   scheduleEnd,
		ResampleFreq:  req.ResampleFreq,
	})
	if err != nil {
		rest.WriteError(w, r, mapServiceError(err))
		return
	}
	rest.WriteJSON(w, r, http.StatusCreated, result)
}

func (h *Handler) GenerateLegacyForecast(w http.ResponseWriter, r *http.Request) {
	log.Trace("Generating legacy forecast")

	var req legacyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, r, rest.BadRequest("Invalid request body format", nil))
		return
	}
	if err := validate.Struct(req); err != nil {
		rest.WriteError(w, r, rest.BadRequest("Invalid forecast payload", err.Error()))
		return
	}

	result, err := h.service.GenerateLegacy(r.Context(), req.EventID, req.InputData)
	if err != nil {
		rest.WriteError(w, r, mapServiceError(err))
		return
	}
	rest.WriteJSON(w, r, http.StatusCreated, result)
}

func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	eventId := mux.Vars(r)["eventId"]

	result, err := h.service.Get(r.Context(), eventId)
	if err != nil {
		rest.WriteError(w, r, mapServiceError(err))
		return
	}
	rest.WriteJSON(w, r, http.StatusOK, result)
}

func (h *Handler) DeleteForecast(w http.ResponseWriter, r *http.Request) {
	eventId := mux.Vars(r)["eventId"]
	log.Tracef("Deleting forecast for event %s", eventId)

	if err := h.service.Delete(r.Context(), eventId); err != nil {
		rest.WriteError(w, r, mapServiceError(err))
		return
	}
	rest.WriteMessage(w, r, http.StatusOK, nil, "forecast deleted")
}

func (h *Handler) RegenerateForecast(w http.ResponseWriter, r *http.Request) {
	eventId := mux.Vars(r)["eventId"]
	log.Tracef("Regenerating forecast for event %s", eventId)

	result, err := h.service.Regenerate(r.Context(), eventId)
	if err != nil {
		rest.WriteError(w, r, mapServiceError(err))
		return
	}
	rest.WriteJSON(w, r, http.StatusCreated, result)
}

func (h *Handler) ModelHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.service.HealthModel(r.Context()); err != nil {
		rest.WriteError(w, r, err)
		return
	}
	rest.WriteJSON(w, r, http.StatusOK, map[string]string{"model": "ok"})
}

func (h *Handler) NewModelHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.service.HealthNewModel(r.Context()); err != nil {
		rest.WriteError(w, r, err)
		return
	}
	rest.WriteJSON(w, r, http.StatusOK, map[string]string{"model": "ok"})
}

// validateGatesCrowd enforces the alignment rules: one entry per gate, no
// missing elements, no NaN, no negatives.
func validateGatesCrowd(gates []string, gatesCrowd []*float64) ([]float64, error) {
	if len(gatesCrowd) != len(gates) {
		return nil, fmt.Errorf("gatesCrowd must have exactly one entry per gate (%d gates, %d entries)",
			len(gates), len(gatesCrowd))
	}
	values := make([]float64, 0, len(gatesCrowd))
	for i, value := range gatesCrowd {
		if value == nil {
			return nil, fmt.Errorf("gatesCrowd[%d] is missing", i)
		}
		if math.IsNaN(*value) {
			return nil, fmt.Errorf("gatesCrowd[%d] is not a number", i)
		}
		if *value < 0 {
			return nil, fmt.Errorf("gatesCrowd[%d] must not be negative", i)
		}
		values = append(values, *value)
	}
	return values, nil
}

func mapServiceError(err error) error {
	switch {
	case errors.Is(err, event.ErrEventNotFound):
		return rest.NotFound(rest.CodeEventNotFound, "event not found")
	case errors.Is(err, ErrForecastNotFound):
		return rest.NotFound(rest.CodeForecastNotFound, "no forecast stored for this event")
	}
	return err
}
