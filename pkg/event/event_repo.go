package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	Store(ctx context.Context, event Event) (Event, error)
	FindByID(ctx context.Context, id string) (*Event, error)
	Find(ctx context.Context, filter Filter, limit, offset int) ([]Event, int, error)
	Update(ctx context.Context, event Event) (Event, error)
	Delete(ctx context.Context, id string) error
}

type RepositoryImpl struct {
	db *pgxpool.Pool
}

func NewEventRepo(db *pgxpool.Pool) *RepositoryImpl {
	return &RepositoryImpl{db: db}
}

const eventColumns = `id, name, description, venue, date_of_event_start, date_of_event_end,
		status, user_email, venue_layout, forecast_result, attachments, created_at, updated_at`

// Store inserts a new event row. A primary key conflict is reported as ErrDuplicateID.
func (r *RepositoryImpl) Store(ctx context.Context, event Event) (Event, error) {
	venueLayout, forecastResult, attachments, err := marshalColumns(event)
	if err != nil {
		log.Error(err)
		return Event{}, err
	}

	query := `INSERT INTO events (id, name, description, venue, date_of_event_start, date_of_event_end,
			status, user_email, venue_layout, forecast_result, attachments, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err = r.db.Exec(ctx, query,
		event.ID, event.Name, event.Description, event.Venue, event.StartTime, event.EndTime,
		string(event.Status), event.UserEmail, venueLayout, forecastResult, attachments,
		event.CreatedAt, event.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Event{}, ErrDuplicateID
		}
		err := fmt.Errorf("could not store event: %w", err)
		log.Error(err)
		return Event{}, err
	}

	return event, nil
}

// FindByID returns the event or nil when no row matches.
func (r *RepositoryImpl) FindByID(ctx context.Context, id string) (*Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE id = $1", eventColumns)
	row := r.db.QueryRow(ctx, query, id)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		err := fmt.Errorf("failed to find event %s: %w", id, err)
		log.Error(err)
		return nil, err
	}
	return &event, nil
}

// Find returns one page of events matching the filter plus the total match count.
func (r *RepositoryImpl) Find(ctx context.Context, filter Filter, limit, offset int) ([]Event, int, error) {
	where, args := buildWhere(filter)

	countQuery := "SELECT count(*) FROM events" + where
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		err := fmt.Errorf("could not count events: %w", err)
		log.Error(err)
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM events%s ORDER BY date_of_event_start, id LIMIT $%d OFFSET $%d",
		eventColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		err := fmt.Errorf("could not list events: %w", err)
		log.Error(err)
		return nil, 0, err
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			err := fmt.Errorf("could not scan event row: %w", err)
			log.Error(err)
			return nil, 0, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

// Update replaces all mutable columns of an existing row.
func (r *RepositoryImpl) Update(ctx context.Context, event Event) (Event, error) {
	venueLayout, forecastResult, attachments, err := marshalColumns(event)
	if err != nil {
		log.Error(err)
		return Event{}, err
	}

	query := `UPDATE events SET name = $2, description = $3, venue = $4, date_of_event_start = $5,
			date_of_event_end = $6, status = $7, user_email = $8, venue_layout = $9,
			forecast_result = $10, attachments = $11, updated_at = $12
		WHERE id = $1`
	tag, err := r.db.Exec(ctx, query,
		event.ID, event.Name, event.Description, event.Venue, event.StartTime, event.EndTime,
		string(event.Status), event.UserEmail, venueLayout, forecastResult, attachments,
		event.UpdatedAt)
	if err != nil {
		err := fmt.Errorf("could not update event %s: %w", event.ID, err)
		log.Error(err)
		return Event{}, err
	}
	if tag.RowsAffected() == 0 {
		return Event{}, ErrEventNotFound
	}

	return event, nil
}

func (r *RepositoryImpl) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM events WHERE id = $1", id)
	if err != nil {
		err := fmt.Errorf("could not delete event %s: %w", id, err)
		log.Error(err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

// buildWhere translates a Filter into a WHERE clause with positional args.
func buildWhere(filter Filter) (string, []any) {
	var conditions []string
	var args []any

	add := func(condition string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.UserEmail != "" {
		add("user_email = $%d", filter.UserEmail)
	}
	switch filter.Timeframe {
	case "upcoming":
		conditions = append(conditions, "date_of_event_start > now()")
	case "past":
		conditions = append(conditions, "date_of_event_end < now()")
	case "ongoing":
		conditions = append(conditions, "date_of_event_start <= now() AND date_of_event_end >= now()")
	}
	if filter.HasForecast != nil {
		if *filter.HasForecast {
			conditions = append(conditions, "forecast_result IS NOT NULL")
		} else {
			conditions = append(conditions, "forecast_result IS NULL")
		}
	}
	if filter.Search != "" {
		add("name ILIKE '%%' || $%d || '%%'", filter.Search)
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.Venue != "" {
		add("venue ILIKE '%%' || $%d || '%%'", filter.Venue)
	}
	if !filter.From.IsZero() {
		add("date_of_event_start >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("date_of_event_start <= $%d", filter.To)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanEvent(row pgx.Row) (Event, error) {
	var event Event
	var status string
	var attachments []byte
	var createdAt, updatedAt time.Time
	err := row.Scan(&event.ID, &event.Name, &event.Description, &event.Venue,
		&event.StartTime, &event.EndTime, &status, &event.UserEmail,
		&event.VenueLayout, &event.ForecastResult, &attachments, &createdAt, &updatedAt)
	if err != nil {
		return Event{}, err
	}
	event.Status = Status(status)
	event.CreatedAt = createdAt
	event.UpdatedAt = updatedAt
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &event.Attachments); err != nil {
			return Event{}, fmt.Errorf("could not decode attachments: %w", err)
		}
	}
	return event, nil
}

func marshalAttachments(attachments []Attachment) ([]byte, error) {
	if attachments == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(attachments)
	if err != nil {
		return nil, fmt.Errorf("could not encode attachments: %w", err)
	}
	return encoded, nil
}

// marshalDocument encodes a JSONB document column. A nil map becomes a nil
// slice so pgx writes SQL NULL rather than the JSON literal null, keeping
// IS NULL filters on the column meaningful.
func marshalDocument(doc map[string]any) ([]byte, error) {
	if doc == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("could not encode document: %w", err)
	}
	return encoded, nil
}

func marshalColumns(event Event) (venueLayout, forecastResult, attachments []byte, err error) {
	if venueLayout, err = marshalDocument(event.VenueLayout); err != nil {
		return nil, nil, nil, err
	}
	if forecastResult, err = marshalDocument(event.ForecastResult); err != nil {
		return nil, nil, nil, err
	}
	if attachments, err = marshalAttachments(event.Attachments); err != nil {
		return nil, nil, nil, err
	}
	return venueLayout, forecastResult, attachments, nil
}
