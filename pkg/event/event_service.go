package event

import (
	"context"
	"fmt"
	"strings"

	"github.com/eventpulse/eventpulse/internal/event_bus"
	"github.com/eventpulse/eventpulse/internal/utils"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Service interface {
	Create(ctx context.Context, event Event) (Event, error)
	GetByID(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context, filter Filter, page, limit int) ([]Event, Paging, error)
	Update(ctx context.Context, id string, update Update) (Event, error)
	Delete(ctx context.Context, id string) error
	GetByUser(ctx context.Context, email string, page, limit int) ([]Event, Paging, error)
	AttachAnalysis(ctx context.Context, id string, attachment Attachment) (Event, error)
	SetForecast(ctx context.Context, id string, result map[string]any) (Event, error)
	ClearForecast(ctx context.Context, id string) (Event, error)
}

type ServiceImpl struct {
	repo  Repository
	bus   *event_bus.EventBus
	clock utils.Clock
}

func NewEventService(repo Repository, bus *event_bus.EventBus) *ServiceImpl {
	return &ServiceImpl{repo: repo, bus: bus, clock: utils.SystemClock{}}
}

func (s *ServiceImpl) Create(ctx context.Context, event Event) (Event, error) {
	if !event.EndTime.After(event.StartTime) {
		return Event{}, ErrEndBeforeStart
	}
	if event.ID == "" {
		event.ID = NewEventID()
	}
	if event.Status == "" {
		event.Status = StatusCreated
	}
	now := s.clock.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now

	stored, err := s.repo.Store(ctx, event)
	if err != nil {
		return Event{}, err
	}

	s.publish(ctx, event_bus.TopicEventCreated, event_bus.EventCreated{
		EventID:   stored.ID,
		Name:      stored.Name,
		UserEmail: stored.UserEmail,
		StartTime: stored.StartTime,
		EndTime:   stored.EndTime,
	})
	return stored, nil
}

func (s *ServiceImpl) GetByID(ctx context.Context, id string) (*Event, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *ServiceImpl) List(ctx context.Context, filter Filter, page, limit int) ([]Event, Paging, error) {
	page, limit = clampPaging(page, limit)
	events, total, err := s.repo.Find(ctx, filter, limit, (page-1)*limit)
	if err != nil {
		return nil, Paging{}, err
	}
	return events, buildPaging(page, limit, total), nil
}

func (s *ServiceImpl) Update(ctx context.Context, id string, update Update) (Event, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if current == nil {
		return Event{}, ErrEventNotFound
	}

	merged := *current
	if update.Name != nil {
		merged.Name = *update.Name
	}
	if update.Description != nil {
		merged.Description = *update.Description
	}
	if update.Venue != nil {
		merged.Venue = *update.Venue
	}
	if update.StartTime != nil {
		merged.StartTime = *update.StartTime
	}
	if update.EndTime != nil {
		merged.EndTime = *update.EndTime
	}
	if update.Status != nil {
		if !update.Status.Valid() {
			return Event{}, fmt.Errorf("invalid status %q", *update.Status)
		}
		merged.Status = *update.Status
	}
	if update.VenueLayout != nil {
		merged.VenueLayout = update.VenueLayout
	}
	// The ordering invariant holds against the merged record, not just the
	// fields present in the request.
	if !merged.EndTime.After(merged.StartTime) {
		return Event{}, ErrEndBeforeStart
	}
	merged.UpdatedAt = s.clock.Now().UTC()

	updated, err := s.repo.Update(ctx, merged)
	if err != nil {
		return Event{}, err
	}
	s.publish(ctx, event_bus.TopicEventUpdated, event_bus.EventUpdated{EventID: id})
	return updated, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, event_bus.TopicEventDeleted, event_bus.EventDeleted{EventID: id})
	return nil
}

func (s *ServiceImpl) GetByUser(ctx context.Context, email string, page, limit int) ([]Event, Paging, error) {
	return s.List(ctx, Filter{UserEmail: email}, page, limit)
}

func (s *ServiceImpl) AttachAnalysis(ctx context.Context, id string, attachment Attachment) (Event, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if current == nil {
		return Event{}, ErrEventNotFound
	}
	current.Attachments = append(current.Attachments, attachment)
	current.UpdatedAt = s.clock.Now().UTC()
	return s.repo.Update(ctx, *current)
}

// SetForecast replaces the forecast document on the event. No history is kept.
func (s *ServiceImpl) SetForecast(ctx context.Context, id string, result map[string]any) (Event, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if current == nil {
		return Event{}, ErrEventNotFound
	}
	current.ForecastResult = result
	current.UpdatedAt = s.clock.Now().UTC()
	updated, err := s.repo.Update(ctx, *current)
	if err != nil {
		return Event{}, err
	}
	s.publish(ctx, event_bus.TopicEventForecastUpdated, event_bus.ForecastUpdated{EventID: id})
	return updated, nil
}

func (s *ServiceImpl) ClearForecast(ctx context.Context, id string) (Event, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if current == nil {
		return Event{}, ErrEventNotFound
	}
	current.ForecastResult = nil
	current.UpdatedAt = s.clock.Now().UTC()
	updated, err := s.repo.Update(ctx, *current)
	if err != nil {
		return Event{}, err
	}
	s.publish(ctx, event_bus.TopicEventForecastUpdated, event_bus.ForecastUpdated{EventID: id, Cleared: true})
	return updated, nil
}

func (s *ServiceImpl) publish(ctx context.Context, topic event_bus.EventType, data any) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(event_bus.NewEvent(ctx, topic, data)); err != nil {
		log.Debugf("event bus publish failed for %s: %v", topic, err)
	}
}

// NewEventID generates an event identifier of the form evt_<uuid>.
func NewEventID() string {
	return "evt_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func clampPaging(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func buildPaging(page, limit, total int) Paging {
	totalPages := (total + limit - 1) / limit
	return Paging{
		Page:            page,
		Limit:           limit,
		Total:           total,
		TotalPages:      totalPages,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}
}
