package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/eventpulse/eventpulse/internal/rest"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// EventDTO is the wire representation of an event. Wire field names are
// camelCase; translation to the snake_case storage schema happens only here.
type EventDTO struct {
	EventID          string          `json:"eventId"`
	Name             string          `json:"name"`
	Description      string          `json:"description,omitempty"`
	Venue            string          `json:"venue,omitempty"`
	DateOfEventStart string          `json:"dateOfEventStart"`
	DateOfEventEnd   string          `json:"dateOfEventEnd"`
	Status           string          `json:"status"`
	UserEmail        string          `json:"userEmail"`
	VenueLayout      map[string]any  `json:"venueLayout,omitempty"`
	ForecastResult   map[string]any  `json:"forecastResult,omitempty"`
	Attachments      []AttachmentDTO `json:"attachments,omitempty"`
	CreatedAt        string          `json:"createdAt,omitempty"`
	UpdatedAt        string          `json:"updatedAt,omitempty"`
}

type AttachmentDTO struct {
	URL      string         `json:"url,omitempty"`
	FileName string         `json:"fileName"`
	Context  map[string]any `json:"context,omitempty"`
}

type PagingDTO struct {
	Page            int  `json:"page"`
	Limit           int  `json:"limit"`
	Total           int  `json:"total"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

type EventListDTO struct {
	Events     []EventDTO `json:"events"`
	Pagination PagingDTO  `json:"pagination"`
}

type createEventRequest struct {
	Name             string         `json:"name" validate:"required"`
	Description      string         `json:"description"`
	Venue            string         `json:"venue"`
	DateOfEventStart string         `json:"dateOfEventStart" validate:"required"`
	DateOfEventEnd   string         `json:"dateOfEventEnd" validate:"required"`
	UserEmail        string         `json:"userEmail" validate:"required,email"`
	VenueLayout      map[string]any `json:"venueLayout"`
}

type updateEventRequest struct {
	Name             *string        `json:"name"`
	Description      *string        `json:"description"`
	Venue            *string        `json:"venue"`
	DateOfEventStart *string        `json:"dateOfEventStart"`
	DateOfEventEnd   *string        `json:"dateOfEventEnd"`
	Status           *string        `json:"status"`
	VenueLayout      map[string]any `json:"venueLayout"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	log.Trace("Creating new event")

	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, r, rest.BadRequest("Invalid request body format", nil))
		return
	}
	if err := validate.Struct(req); err != nil {
		rest.WriteError(w, r, rest.BadRequest("Invalid event payload", validationDetails(err)))
		return
	}

	startTime, err := time.Parse(time.RFC3339, req.DateOfEventStart)
	if err != nil {
		rest.WriteError(w, r, rest.BadRequest("Invalid dateOfEventStart format", "dates must be in RFC3339 format"))
		return
	}
	endTime, err := time.Parse(time.RFC3339, req.DateOfEventEnd)
	if err != nil {
		rest.WriteError(w, r, rest.BadRequest("Invalid dateOfEventEnd format", "dates must be in RFC3339 format"))
		return
	}

	created, err := h.service.Create(r.Context(), Event{
		Name:        req.Name,
		Description: req.Description,
		Venue:       req.Venue,
		StartTime:   startTime,
		EndTime:     endTime,
		UserEmail:   req.UserEmail,
		VenueLayout: req.VenueLayout,
	})
	if err != nil {
		rest.WriteError(w, r, mapServiceError(err))
		return
	}

	rest.WriteJSON(w, r, http.StatusCreated, ToDTO(created))
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventId := mux.Vars(r)["eventId"]

	event, err := h.service.GetByID(r.Context(), eventId)
	if err != nil {
		rest.WriteError(w, r, err)
		return
	}
	if event == nil {
		rest.WriteError(w, r, rest.NotFound(rest.CodeEventNotFound, fmt.Sprintf("event %s not found", eventId)))
		return
	}
	rest.WriteJSON(w, r, http.StatusOK, ToDTO(*event))
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	log.Trace("Listing events")

	filter, err := filterFromQuery(r)
	if err != nil {
		rest.WriteError(w, r, rest.BadRequest(err.Error(), nil))
		return
	}
	page, limit := pagingFromQuery(r)

	events, paging, err := h.service.List(r.Context(), filter, page, limit)
	if err != nil {
		rest.WriteError(w, r, err)
		return
	}
	rest.WriteJSON(w, r, http.StatusOK, toListDTO(events, paging))
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventId := mux.Vars(r)["eventId"]
	log.Tracef("Updating event %s", eventId)

	var req updateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, r, rest.BadRequest("Invalid request body format", nil))
		return
	}

	update := Update{
		Name:        req.Name,
		Description: req.Description,
		Venue:       req.Venue,
		VenueLayout: req.VenueLayout,
	}
	if req.DateOfEventStart != nil {
		startTime, err := time.Parse(time.RFC3339, *req.DateOfEventStart)
		if err != nil {
			rest.WriteError(w, r, rest.BadRequest("Invalid dateOfEventStart format", "dates must be in RFC3339 format"))
			return
		}
		update.StartTime = &startTime
	}
	if req.DateOfEventEnd != nil {
		endTime, err := time.Parse(time.RFC3339, *req.DateOfEventEnd)
		if err != nil {
			rest.WriteError(w, r, rest.BadRequest("Invalid dateOfEventEnd format", "dates must be in RFC3339 format"))
			return
		}
		update.EndTime = &endTime
	}
	if req.Status != nil {
		status := Status(*req.Status)
		if !status.Valid() {
			rest.WriteError(w, r, rest.BadRequest(fmt.Sprintf("Invalid status %q", *req.Status), nil))
			return
		}
		update.Status = &status
	}

	updated, err := h.service.Update(r.Context(), eventId, update)
	if err != nil {
		rest.WriteError(w, r, mapServiceError(err))
		return
	}
	rest.WriteJSON(w, r, http.StatusOK, ToDTO(updated))
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventId := mux.Vars(r)["eventId"]
	log.Tracef("Deleting event %s", eventId)

	if err := h.service.Delete(r.Context(), eventId); err != nil {
		rest.WriteError(w, r, mapServiceError(err))
		return
	}
	rest.WriteMessage(w, r, http.StatusOK, nil, "event deleted")
}

func (h *Handler) GetEventsByUser(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["email"]
	page, limit := pagingFromQuery(r)

	events, paging, err := h.service.GetByUser(r.Context(), email, page, limit)
	if err != nil {
		rest.WriteError(w, r, err)
		return
	}
	rest.WriteJSON(w, r, http.StatusOK, toListDTO(events, paging))
}

func filterFromQuery(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	filter := Filter{
		UserEmail: q.Get("userEmail"),
		Search:    q.Get("search"),
		Venue:     q.Get("venue"),
	}

	if timeframe := q.Get("timeframe"); timeframe != "" {
		switch timeframe {
		case "upcoming", "past", "ongoing":
			filter.Timeframe = timeframe
		default:
			return Filter{}, fmt.Errorf("invalid timeframe %q", timeframe)
		}
	}
	if hasForecast := q.Get("hasForecast"); hasForecast != "" {
		value, err := strconv.ParseBool(hasForecast)
		if err != nil {
			return Filter{}, fmt.Errorf("invalid hasForecast %q", hasForecast)
		}
		filter.HasForecast = &value
	}
	if status := q.Get("status"); status != "" {
		s := Status(status)
		if !s.Valid() {
			return Filter{}, fmt.Errorf("invalid status %q", status)
		}
		filter.Status = s
	}
	if from := q.Get("dateFrom"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return Filter{}, fmt.Errorf("invalid dateFrom %q", from)
		}
		filter.From = t
	}
	if to := q.Get("dateTo"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return Filter{}, fmt.Errorf("invalid dateTo %q", to)
		}
		filter.To = t
	}
	return filter, nil
}

func pagingFromQuery(r *http.Request) (page int, limit int) {
	q := r.URL.Query()
	page, _ = strconv.Atoi(q.Get("page"))
	limit, _ = strconv.Atoi(q.Get("limit"))
	return page, limit
}

// mapServiceError translates domain sentinels into API errors; anything else
// passes through and is rendered as a 500.
func mapServiceError(err error) error {
	switch {
	case errors.Is(err, ErrEventNotFound):
		return rest.NotFound(rest.CodeEventNotFound, "event not found")
	case errors.Is(err, ErrDuplicateID):
		return rest.Conflict(rest.CodeDuplicateEventID, "an event with this id already exists")
	case errors.Is(err, ErrEndBeforeStart):
		return rest.BadRequest("dateOfEventEnd must be after dateOfEventStart", nil)
	}
	return err
}

func validationDetails(err error) any {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	details := make(map[string]string, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details[fieldErr.Field()] = fmt.Sprintf("failed %q validation", fieldErr.Tag())
	}
	return details
}

// ToDTO translates a stored event back to its camelCase wire shape.
func ToDTO(event Event) EventDTO {
	attachments := make([]AttachmentDTO, 0, len(event.Attachments))
	for _, a := range event.Attachments {
		attachments = append(attachments, AttachmentDTO{URL: a.URL, FileName: a.FileName, Context: a.Context})
	}
	if len(attachments) == 0 {
		attachments = nil
	}
	return EventDTO{
		EventID:          event.ID,
		Name:             event.Name,
		Description:      event.Description,
		Venue:            event.Venue,
		DateOfEventStart: event.StartTime.UTC().Format(time.RFC3339),
		DateOfEventEnd:   event.EndTime.UTC().Format(time.RFC3339),
		Status:           string(event.Status),
		UserEmail:        event.UserEmail,
		VenueLayout:      event.VenueLayout,
		ForecastResult:   event.ForecastResult,
		Attachments:      attachments,
		CreatedAt:        formatOptionalTime(event.CreatedAt),
		UpdatedAt:        formatOptionalTime(event.UpdatedAt),
	}
}

func toListDTO(events []Event, paging Paging) EventListDTO {
	dtos := make([]EventDTO, 0, len(events))
	for _, e := range events {
		dtos = append(dtos, ToDTO(e))
	}
	return EventListDTO{
		Events: dtos,
		Pagination: PagingDTO{
			Page:            paging.Page,
			Limit:           paging.Limit,
			Total:           paging.Total,
			TotalPages:      paging.TotalPages,
			HasNextPage:     paging.HasNextPage,
			HasPreviousPage: paging.HasPreviousPage,
		},
	}
}

func formatOptionalTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
