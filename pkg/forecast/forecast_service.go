package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eventpulse/eventpulse/internal/utils"
	"github.com/eventpulse/eventpulse/pkg/event"
	log "github.com/sirupsen/logrus"
)

// Recommender produces crowd-management recommendations for a prediction. It
// is fail-soft: implementations return whatever they could produce, never an
// error.
type Recommender interface {
	IncidentActions(ctx context.Context, prediction map[string]any, eventInfo map[string]any) []string
}

type Service interface {
	Generate(ctx context.Context, input ScheduleInput) (Result, error)
	GenerateLegacy(ctx context.Context, eventID string, inputData map[string]any) (Result, error)
	Get(ctx context.Context, eventID string) (map[string]any, error)
	Delete(ctx context.Context, eventID string) error
	Regenerate(ctx context.Context, eventID string) (Result, error)
	HealthModel(ctx context.Context) error
	HealthNewModel(ctx context.Context) error
}

type ServiceImpl struct {
	events      event.Service
	client      ModelClient
	recommender Recommender
	clock       utils.Clock
}

func NewService(events event.Service, client ModelClient, recommender Recommender) *ServiceImpl {
	return &ServiceImpl{events: events, client: client, recommender: recommender, clock: utils.SystemClock{}}
}

// Generate runs the schedule-aware model and persists the result onto the event.
func (s *ServiceImpl) Generate(ctx context.Context, input ScheduleInput) (Result, error) {
	ev, err := s.lookupEvent(ctx, input.EventID)
	if err != nil {
		return Result{}, err
	}

	payload := eventPayload(*ev)
	payload["gates"] = input.Gates
	payload["gates_crowd"] = input.GatesCrowd
	payload["schedule_start"] = input.ScheduleStart.UTC().Format(time.RFC3339)
	payload["schedule_end"] = input.ScheduleEnd.UTC().Format(time.RFC3339)
	if input.ResampleFreq != "" {
		payload["resample_freq"] = input.ResampleFreq
	}

	prediction, err := s.client.PredictSchedule(ctx, payload)
	if err != nil {
		return Result{}, err
	}

	return s.assemble(ctx, *ev, ModelSchedule, prediction)
}

// GenerateLegacy runs the legacy model with a free-form input document.
func (s *ServiceImpl) GenerateLegacy(ctx context.Context, eventID string, inputData map[string]any) (Result, error) {
	ev, err := s.lookupEvent(ctx, eventID)
	if err != nil {
		return Result{}, err
	}

	payload := eventPayload(*ev)
	for key, value := range inputData {
		payload[key] = value
	}

	prediction, err := s.client.Predict(ctx, payload)
	if err != nil {
		return Result{}, err
	}

	return s.assemble(ctx, *ev, ModelLegacy, prediction)
}

func (s *ServiceImpl) Get(ctx context.Context, eventID string) (map[string]any, error) {
	ev, err := s.lookupEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.ForecastResult == nil {
		return nil, ErrForecastNotFound
	}
	return ev.ForecastResult, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, eventID string) error {
	ev, err := s.lookupEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if ev.ForecastResult == nil {
		return ErrForecastNotFound
	}
	_, err = s.events.ClearForecast(ctx, eventID)
	return err
}

// Regenerate re-runs the forecast for an event. When the stored venue layout
// describes gates the schedule-aware model is used, otherwise the legacy one.
func (s *ServiceImpl) Regenerate(ctx context.Context, eventID string) (Result, error) {
	ev, err := s.lookupEvent(ctx, eventID)
	if err != nil {
		return Result{}, err
	}

	if input, ok := scheduleInputFromLayout(*ev); ok {
		return s.Generate(ctx, input)
	}
	return s.GenerateLegacy(ctx, eventID, nil)
}

func (s *ServiceImpl) HealthModel(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *ServiceImpl) HealthNewModel(ctx context.Context) error {
	return s.client.HealthNewModel(ctx)
}

func (s *ServiceImpl) lookupEvent(ctx context.Context, eventID string) (*event.Event, error) {
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, event.ErrEventNotFound
	}
	return ev, nil
}

// assemble wraps the raw prediction with a summary and recommendations and
// writes the result onto the event. The recommender is fail-soft so a degraded
// recommendation never fails the forecast.
func (s *ServiceImpl) assemble(ctx context.Context, ev event.Event, model string, prediction map[string]any) (Result, error) {
	summary := deriveSummary(prediction)
	if s.recommender != nil {
		summary.Recommendations = s.recommender.IncidentActions(ctx, prediction, eventPayload(ev))
	}

	result := Result{
		EventID:     ev.ID,
		Model:       model,
		Prediction:  prediction,
		Summary:     summary,
		GeneratedAt: s.clock.Now().UTC(),
	}

	asMap, err := resultToMap(result)
	if err != nil {
		return Result{}, err
	}
	if _, err := s.events.SetForecast(ctx, ev.ID, asMap); err != nil {
		return Result{}, err
	}
	log.Debugf("stored %s forecast for event %s", model, ev.ID)
	return result, nil
}

// eventPayload flattens the event fields shared by both model schemas.
func eventPayload(ev event.Event) map[string]any {
	payload := map[string]any{
		"event_id":            ev.ID,
		"event_name":          ev.Name,
		"venue":               ev.Venue,
		"date_of_event_start": ev.StartTime.UTC().Format(time.RFC3339),
		"date_of_event_end":   ev.EndTime.UTC().Format(time.RFC3339),
	}
	if ev.VenueLayout != nil {
		payload["venue_layout"] = ev.VenueLayout
	}
	return payload
}

// deriveSummary pulls the well-known figures out of a prediction, tolerating
// both snake_case and camelCase keys and missing values.
func deriveSummary(prediction map[string]any) Summary {
	return Summary{
		TotalAttendance: int(numberFrom(prediction, "total_attendance", "totalAttendance")),
		PeakHours:       stringsFrom(prediction, "peak_hours", "peakHours"),
		RiskZones:       stringsFrom(prediction, "risk_zones", "riskZones"),
		Recommendations: stringsFrom(prediction, "recommendations"),
	}
}

func numberFrom(m map[string]any, keys ...string) float64 {
	for _, key := range keys {
		switch v := m[key].(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f
			}
		}
	}
	return 0
}

func stringsFrom(m map[string]any, keys ...string) []string {
	for _, key := range keys {
		items, ok := m[key].([]any)
		if !ok {
			continue
		}
		result := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	}
	return nil
}

// scheduleInputFromLayout reconstructs a schedule request from a stored venue
// layout, when the layout carries gate information.
func scheduleInputFromLayout(ev event.Event) (ScheduleInput, bool) {
	if ev.VenueLayout == nil {
		return ScheduleInput{}, false
	}
	gates := stringsFrom(ev.VenueLayout, "gates")
	if len(gates) == 0 {
		return ScheduleInput{}, false
	}
	crowd, ok := ev.VenueLayout["gates_crowd"].([]any)
	if !ok || len(crowd) != len(gates) {
		return ScheduleInput{}, false
	}
	gatesCrowd := make([]float64, 0, len(crowd))
	for _, c := range crowd {
		value, ok := c.(float64)
		if !ok || value < 0 {
			return ScheduleInput{}, false
		}
		gatesCrowd = append(gatesCrowd, value)
	}
	return ScheduleInput{
		EventID:       ev.ID,
		Gates:         gates,
		GatesCrowd:    gatesCrowd,
		ScheduleStart: ev.StartTime,
		ScheduleEnd:   ev.EndTime,
	}, true
}

func resultToMap(result Result) (map[string]any, error) {
	encoded, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("could not encode forecast result: %w", err)
	}
	var asMap map[string]any
	if err := json.Unmarshal(encoded, &asMap); err != nil {
		return nil, fmt.Errorf("could not decode forecast result: %w", err)
	}
	return asMap, nil
}
