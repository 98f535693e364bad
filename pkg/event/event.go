package event

import (
	"fmt"
	"time"
)

var (
	ErrEventNotFound  = fmt.Errorf("event not found")
	ErrDuplicateID    = fmt.Errorf("event id already exists")
	ErrEndBeforeStart = fmt.Errorf("event end date must be after start date")
)

type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Attachment is a file reference enriched with the AI context produced by the
// text-analytics service.
type Attachment struct {
	URL      string         `json:"url"`
	FileName string         `json:"fileName"`
	Context  map[string]any `json:"context,omitempty"`
}

type Event struct {
	ID             string
	Name           string
	Description    string
	Venue          string
	StartTime      time.Time
	EndTime        time.Time
	Status         Status
	UserEmail      string
	VenueLayout    map[string]any
	ForecastResult map[string]any
	Attachments    []Attachment
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Filter narrows a listing. Zero values mean "not filtered".
type Filter struct {
	UserEmail string
	// Timeframe is one of "upcoming", "past", "ongoing".
	Timeframe   string
	HasForecast *bool
	// Search matches event names case-insensitively.
	Search string
	Status Status
	// Venue matches venue names case-insensitively.
	Venue string
	From  time.Time
	To    time.Time
}

// Update carries a partial event update; nil fields are left unchanged.
type Update struct {
	Name        *string
	Description *string
	Venue       *string
	StartTime   *time.Time
	EndTime     *time.Time
	Status      *Status
	VenueLayout map[string]any
}

// Paging describes the page of a listing response.
type Paging struct {
	Page            int
	Limit           int
	Total           int
	TotalPages      int
	HasNextPage     bool
	HasPreviousPage bool
}
