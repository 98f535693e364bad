package event_bus

import "time"

// Topics published by the event domain.
const (
	TopicEventCreated         EventType = "event.created"
	TopicEventUpdated         EventType = "event.updated"
	TopicEventDeleted         EventType = "event.deleted"
	TopicEventForecastUpdated EventType = "event.forecast.updated"
)

type EventCreated struct {
	EventID   string
	Name      string
	UserEmail string
	StartTime time.Time
	EndTime   time.Time
}

type EventUpdated struct {
	EventID string
}

type EventDeleted struct {
	EventID string
}

// ForecastUpdated is published both when a forecast result is written onto an
// event and when it is cleared (Cleared true).
type ForecastUpdated struct {
	EventID string
	Cleared bool
}
