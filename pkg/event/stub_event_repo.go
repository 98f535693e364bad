package event

import (
	"context"
	"sort"
	"strings"
	"time"
)

// StubRepository is an in-memory Repository used by service and handler tests.
type StubRepository struct {
	Events []Event
}

func (s *StubRepository) Store(ctx context.Context, event Event) (Event, error) {
	for _, existing := range s.Events {
		if existing.ID == event.ID {
			return Event{}, ErrDuplicateID
		}
	}
	s.Events = append(s.Events, event)
	return event, nil
}

func (s *StubRepository) FindByID(ctx context.Context, id string) (*Event, error) {
	for i := range s.Events {
		if s.Events[i].ID == id {
			found := s.Events[i]
			return &found, nil
		}
	}
	return nil, nil
}

func (s *StubRepository) Find(ctx context.Context, filter Filter, limit, offset int) ([]Event, int, error) {
	matching := make([]Event, 0, len(s.Events))
	now := time.Now()
	for _, e := range s.Events {
		if filter.UserEmail != "" && e.UserEmail != filter.UserEmail {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(e.Name), strings.ToLower(filter.Search)) {
			continue
		}
		if filter.Venue != "" && !strings.Contains(strings.ToLower(e.Venue), strings.ToLower(filter.Venue)) {
			continue
		}
		if filter.HasForecast != nil && *filter.HasForecast != (e.ForecastResult != nil) {
			continue
		}
		switch filter.Timeframe {
		case "upcoming":
			if !e.StartTime.After(now) {
				continue
			}
		case "past":
			if !e.EndTime.Before(now) {
				continue
			}
		case "ongoing":
			if e.StartTime.After(now) || e.EndTime.Before(now) {
				continue
			}
		}
		if !filter.From.IsZero() && e.StartTime.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && e.StartTime.After(filter.To) {
			continue
		}
		matching = append(matching, e)
	}
	sort.Slice(matching, func(i, j int) bool {
		return matching[i].StartTime.Before(matching[j].StartTime)
	})

	total := len(matching)
	if offset >= total {
		return []Event{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matching[offset:end], total, nil
}

func (s *StubRepository) Update(ctx context.Context, event Event) (Event, error) {
	for i := range s.Events {
		if s.Events[i].ID == event.ID {
			s.Events[i] = event
			return event, nil
		}
	}
	return Event{}, ErrEventNotFound
}

func (s *StubRepository) Delete(ctx context.Context, id string) error {
	for i := range s.Events {
		if s.Events[i].ID == id {
			s.Events = append(s.Events[:i], s.Events[i+1:]...)
			return nil
		}
	}
	return ErrEventNotFound
}
