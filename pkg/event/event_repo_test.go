package event

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/eventpulse/eventpulse/internal/test_utils"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var db *pgxpool.Pool

func TestMain(m *testing.M) {
	if os.Getenv("SKIP_DB_TESTS") != "" {
		os.Exit(m.Run())
	}
	container, openDB := test_utils.TestWithDB()
	db = openDB()
	code := m.Run()
	db.Close()
	_ = container.Terminate(context.Background())
	os.Exit(code)
}

func requireDB(t *testing.T) Repository {
	if db == nil {
		t.Skip("database tests disabled")
	}
	return NewEventRepo(db)
}

func storedEvent(id string) Event {
	start := time.Date(2026, time.June, 1, 18, 0, 0, 0, time.UTC)
	return Event{
		ID:          id,
		Name:        "Summer Festival",
		Description: "Annual open-air festival",
		Venue:       "Main Park",
		StartTime:   start,
		EndTime:     start.Add(5 * time.Hour),
		Status:      StatusCreated,
		UserEmail:   "organizer@example.com",
		VenueLayout: map[string]any{"gates": []any{"A", "B"}},
		CreatedAt:   start.Add(-time.Hour),
		UpdatedAt:   start.Add(-time.Hour),
	}
}

func TestRepositoryStoreAndFind(t *testing.T) {
	repo := requireDB(t)
	ctx := context.Background()

	stored, err := repo.Store(ctx, storedEvent("evt_repo_store"))
	require.NoError(t, err)
	assert.Equal(t, "evt_repo_store", stored.ID)

	found, err := repo.FindByID(ctx, "evt_repo_store")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Summer Festival", found.Name)
	assert.Equal(t, StatusCreated, found.Status)
	assert.NotNil(t, found.VenueLayout["gates"])
	assert.True(t, found.StartTime.Equal(stored.StartTime))
}

func TestRepositoryFindByIDMissing(t *testing.T) {
	repo := requireDB(t)

	found, err := repo.FindByID(context.Background(), "evt_repo_missing")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRepositoryDuplicateID(t *testing.T) {
	repo := requireDB(t)
	ctx := context.Background()

	_, err := repo.Store(ctx, storedEvent("evt_repo_dup"))
	require.NoError(t, err)

	_, err = repo.Store(ctx, storedEvent("evt_repo_dup"))
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestRepositoryFindWithFilter(t *testing.T) {
	repo := requireDB(t)
	ctx := context.Background()

	first := storedEvent("evt_repo_filter_1")
	first.Name = "Filter Jazz Night"
	first.UserEmail = "filter@example.com"
	second := storedEvent("evt_repo_filter_2")
	second.Name = "Filter Rock Night"
	second.UserEmail = "filter@example.com"
	second.StartTime = second.StartTime.Add(24 * time.Hour)
	second.EndTime = second.EndTime.Add(24 * time.Hour)
	second.ForecastResult = map[string]any{"model": "legacy"}

	_, err := repo.Store(ctx, first)
	require.NoError(t, err)
	_, err = repo.Store(ctx, second)
	require.NoError(t, err)

	t.Run("by user email sorted by start date", func(t *testing.T) {
		events, total, err := repo.Find(ctx, Filter{UserEmail: "filter@example.com"}, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, events, 2)
		assert.Equal(t, "evt_repo_filter_1", events[0].ID)
		assert.Equal(t, "evt_repo_filter_2", events[1].ID)
	})

	t.Run("by forecast presence", func(t *testing.T) {
		hasForecast := true
		events, _, err := repo.Find(ctx, Filter{UserEmail: "filter@example.com", HasForecast: &hasForecast}, 10, 0)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "evt_repo_filter_2", events[0].ID)
	})

	t.Run("by forecast absence", func(t *testing.T) {
		hasForecast := false
		events, _, err := repo.Find(ctx, Filter{UserEmail: "filter@example.com", HasForecast: &hasForecast}, 10, 0)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "evt_repo_filter_1", events[0].ID)
	})

	t.Run("clearing a forecast moves the row back to the absent set", func(t *testing.T) {
		second.ForecastResult = nil
		_, err := repo.Update(ctx, second)
		require.NoError(t, err)

		hasForecast := false
		events, _, err := repo.Find(ctx, Filter{UserEmail: "filter@example.com", HasForecast: &hasForecast}, 10, 0)
		require.NoError(t, err)
		assert.Len(t, events, 2)

		second.ForecastResult = map[string]any{"model": "legacy"}
		_, err = repo.Update(ctx, second)
		require.NoError(t, err)
	})

	t.Run("by name search", func(t *testing.T) {
		events, _, err := repo.Find(ctx, Filter{UserEmail: "filter@example.com", Search: "jazz"}, 10, 0)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "evt_repo_filter_1", events[0].ID)
	})

	t.Run("pagination counts the full match set", func(t *testing.T) {
		events, total, err := repo.Find(ctx, Filter{UserEmail: "filter@example.com"}, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, events, 1)
		assert.Equal(t, "evt_repo_filter_2", events[0].ID)
	})
}

func TestMarshalDocument(t *testing.T) {
	t.Run("nil map becomes SQL NULL", func(t *testing.T) {
		encoded, err := marshalDocument(nil)
		require.NoError(t, err)
		assert.Nil(t, encoded)

		plan := pgtype.NewMap().PlanEncode(pgtype.JSONBOID, pgtype.TextFormatCode, encoded)
		require.NotNil(t, plan)
		buf, err := plan.Encode(encoded, nil)
		require.NoError(t, err)
		assert.Nil(t, buf)
	})

	t.Run("documents keep their content", func(t *testing.T) {
		encoded, err := marshalDocument(map[string]any{"model": "schedule"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"model":"schedule"}`, string(encoded))
	})
}

func TestRepositoryUpdate(t *testing.T) {
	repo := requireDB(t)
	ctx := context.Background()

	stored, err := repo.Store(ctx, storedEvent("evt_repo_update"))
	require.NoError(t, err)

	stored.Name = "Renamed Festival"
	stored.Status = StatusActive
	stored.Attachments = []Attachment{{FileName: "gates.csv", Context: map[string]any{"relevanceScore": 0.7}}}
	stored.UpdatedAt = stored.UpdatedAt.Add(time.Hour)

	_, err = repo.Update(ctx, stored)
	require.NoError(t, err)

	found, err := repo.FindByID(ctx, "evt_repo_update")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Renamed Festival", found.Name)
	assert.Equal(t, StatusActive, found.Status)
	require.Len(t, found.Attachments, 1)
	assert.Equal(t, "gates.csv", found.Attachments[0].FileName)
}

func TestRepositoryUpdateMissing(t *testing.T) {
	repo := requireDB(t)

	_, err := repo.Update(context.Background(), storedEvent("evt_repo_update_missing"))
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestRepositoryDelete(t *testing.T) {
	repo := requireDB(t)
	ctx := context.Background()

	_, err := repo.Store(ctx, storedEvent("evt_repo_delete"))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "evt_repo_delete"))

	found, err := repo.FindByID(ctx, "evt_repo_delete")
	require.NoError(t, err)
	assert.Nil(t, found)

	assert.ErrorIs(t, repo.Delete(ctx, "evt_repo_delete"), ErrEventNotFound)
}
