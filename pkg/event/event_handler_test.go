package event

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/eventpulse/eventpulse/internal/rest"
	"github.com/eventpulse/eventpulse/internal/utils"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Error     *rest.Error     `json:"error"`
	Message   string          `json:"message"`
	Timestamp string          `json:"timestamp"`
	RequestID string          `json:"requestId"`
}

func setupHandlerTest() (*Handler, *StubRepository) {
	repo := &StubRepository{}
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	service := &ServiceImpl{repo: repo, clock: &utils.MockClock{FixedNow: now}}
	return NewHandler(service), repo
}

func newRouter(handler *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/events", handler.CreateEvent).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/events", handler.ListEvents).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/events/user/{email}", handler.GetEventsByUser).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/events/{eventId}", handler.GetEvent).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/events/{eventId}", handler.UpdateEvent).Methods(http.MethodPut)
	r.HandleFunc("/api/v1/events/{eventId}", handler.DeleteEvent).Methods(http.MethodDelete)
	return r
}

func doJSON(t *testing.T, router *mux.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(encoded)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(rest.WithRequestID(context.Background(), "test-request-id"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	return env
}

func TestCreateEventEndpoint(t *testing.T) {
	t.Run("creates event and returns the full envelope", func(t *testing.T) {
		handler, _ := setupHandlerTest()
		router := newRouter(handler)

		w := doJSON(t, router, http.MethodPost, "/api/v1/events", map[string]any{
			"name":             "Summer Festival",
			"venue":            "Main Park",
			"dateOfEventStart": "2026-06-01T18:00:00Z",
			"dateOfEventEnd":   "2026-06-01T23:00:00Z",
			"userEmail":        "organizer@example.com",
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		env := decodeEnvelope(t, w)
		assert.True(t, env.Success)
		assert.NotEmpty(t, env.Timestamp)
		assert.Equal(t, "test-request-id", env.RequestID)

		var dto EventDTO
		require.NoError(t, json.Unmarshal(env.Data, &dto))
		assert.True(t, strings.HasPrefix(dto.EventID, "evt_"))
		assert.Equal(t, "Summer Festival", dto.Name)
		assert.Equal(t, "CREATED", dto.Status)
		assert.Equal(t, "2026-06-01T18:00:00Z", dto.DateOfEventStart)
	})

	t.Run("rejects a missing email with field details", func(t *testing.T) {
		handler, _ := setupHandlerTest()
		router := newRouter(handler)

		w := doJSON(t, router, http.MethodPost, "/api/v1/events", map[string]any{
			"name":             "Summer Festival",
			"dateOfEventStart": "2026-06-01T18:00:00Z",
			"dateOfEventEnd":   "2026-06-01T23:00:00Z",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w)
		assert.False(t, env.Success)
		require.NotNil(t, env.Error)
		assert.Equal(t, rest.CodeValidationFailed, env.Error.Code)
		assert.Equal(t, "fail", env.Error.Status)
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		handler, _ := setupHandlerTest()
		router := newRouter(handler)

		w := doJSON(t, router, http.MethodPost, "/api/v1/events", map[string]any{
			"name":             "Summer Festival",
			"dateOfEventStart": "01/06/2026",
			"dateOfEventEnd":   "2026-06-01T23:00:00Z",
			"userEmail":        "organizer@example.com",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects end before start", func(t *testing.T) {
		handler, _ := setupHandlerTest()
		router := newRouter(handler)

		w := doJSON(t, router, http.MethodPost, "/api/v1/events", map[string]any{
			"name":             "Summer Festival",
			"dateOfEventStart": "2026-06-01T23:00:00Z",
			"dateOfEventEnd":   "2026-06-01T18:00:00Z",
			"userEmail":        "organizer@example.com",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeEnvelope(t, w)
		require.NotNil(t, env.Error)
		assert.Equal(t, rest.CodeValidationFailed, env.Error.Code)
	})
}

func TestGetEventEndpoint(t *testing.T) {
	t.Run("returns 404 envelope for an unknown id", func(t *testing.T) {
		handler, _ := setupHandlerTest()
		router := newRouter(handler)

		w := doJSON(t, router, http.MethodGet, "/api/v1/events/evt_missing", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		env := decodeEnvelope(t, w)
		assert.False(t, env.Success)
		require.NotNil(t, env.Error)
		assert.Equal(t, rest.CodeEventNotFound, env.Error.Code)
		assert.Equal(t, "fail", env.Error.Status)
	})

	t.Run("round-trips an event through create and get", func(t *testing.T) {
		handler, _ := setupHandlerTest()
		router := newRouter(handler)

		w := doJSON(t, router, http.MethodPost, "/api/v1/events", map[string]any{
			"name":             "Conference",
			"description":      "Annual meetup",
			"dateOfEventStart": "2026-06-01T18:00:00Z",
			"dateOfEventEnd":   "2026-06-01T23:00:00Z",
			"userEmail":        "organizer@example.com",
			"venueLayout":      map[string]any{"gates": []string{"A", "B"}},
		})
		require.Equal(t, http.StatusCreated, w.Code)
		var created EventDTO
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &created))

		w = doJSON(t, router, http.MethodGet, "/api/v1/events/"+created.EventID, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		var fetched EventDTO
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &fetched))
		assert.Equal(t, created.EventID, fetched.EventID)
		assert.Equal(t, "Annual meetup", fetched.Description)
		assert.NotNil(t, fetched.VenueLayout["gates"])
	})
}

func TestListEventsEndpoint(t *testing.T) {
	seed := func(repo *StubRepository) {
		start := time.Date(2026, time.June, 1, 18, 0, 0, 0, time.UTC)
		repo.Events = []Event{
			{ID: "evt_a", Name: "Jazz Night", Venue: "Blue Hall", StartTime: start, EndTime: start.Add(time.Hour),
				Status: StatusCreated, UserEmail: "a@example.com"},
			{ID: "evt_b", Name: "Rock Night", Venue: "Red Hall", StartTime: start.Add(time.Hour), EndTime: start.Add(2 * time.Hour),
				Status: StatusActive, UserEmail: "b@example.com", ForecastResult: map[string]any{"model": "schedule"}},
		}
	}

	t.Run("lists with pagination metadata", func(t *testing.T) {
		handler, repo := setupHandlerTest()
		seed(repo)
		router := newRouter(handler)

		w := doJSON(t, router, http.MethodGet, "/api/v1/events?page=1&limit=1", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var list EventListDTO
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &list))
		assert.Len(t, list.Events, 1)
		assert.Equal(t, 2, list.Pagination.Total)
		assert.Equal(t, 2, list.Pagination.TotalPages)
		assert.True(t, list.Pagination.HasNextPage)
	})

	t.Run("filters by hasForecast", func(t *testing.T) {
		handler, repo := setupHandlerTest()
		seed(repo)
		router := newRouter(handler)

		w := doJSON(t, router, http.MethodGet, "/api/v1/events?hasForecast=true", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var list EventListDTO
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &list))
		require.Len(t, list.Events, 1)
		assert.Equal(t, "evt_b", list.Events[0].EventID)
	})

	t.Run("rejects an invalid timeframe", func(t *testing.T) {
		handler, _ := setupHandlerTest()
		router := newRouter(handler)

		w := doJSON(t, router, http.MethodGet, "/api/v1/events?timeframe=someday", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("lists by user email path", func(t *testing.T) {
		handler, repo := setupHandlerTest()
		seed(repo)
		router := newRouter(handler)

		w := doJSON(t, router, http.MethodGet, "/api/v1/events/user/a@example.com", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var list EventListDTO
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &list))
		require.Len(t, list.Events, 1)
		assert.Equal(t, "evt_a", list.Events[0].EventID)
	})
}

func TestUpdateEventEndpoint(t *testing.T) {
	t.Run("applies a partial update", func(t *testing.T) {
		handler, repo := setupHandlerTest()
		start := time.Date(2026, time.June, 1, 18, 0, 0, 0, time.UTC)
		repo.Events = []Event{{ID: "evt_a", Name: "Old Name", Venue: "Hall",
			StartTime: start, EndTime: start.Add(time.Hour), Status: StatusCreated, UserEmail: "a@example.com"}}
		router := newRouter(handler)

		w := doJSON(t, router, http.MethodPut, "/api/v1/events/evt_a", map[string]any{
			"name":   "New Name",
			"status": "ACTIVE",
		})
		assert.Equal(t, http.StatusOK, w.Code)

		var dto EventDTO
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &dto))
		assert.Equal(t, "New Name", dto.Name)
		assert.Equal(t, "ACTIVE", dto.Status)
		assert.Equal(t, "Hall", dto.Venue)
	})

	t.Run("rejects an unknown status", func(t *testing.T) {
		handler, repo := setupHandlerTest()
		start := time.Date(2026, time.June, 1, 18, 0, 0, 0, time.UTC)
		repo.Events = []Event{{ID: "evt_a", Name: "x", StartTime: start, EndTime: start.Add(time.Hour)}}
		router := newRouter(handler)

		w := doJSON(t, router, http.MethodPut, "/api/v1/events/evt_a", map[string]any{"status": "PAUSED"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("returns 404 for an unknown event", func(t *testing.T) {
		handler, _ := setupHandlerTest()
		router := newRouter(handler)

		w := doJSON(t, router, http.MethodPut, "/api/v1/events/evt_missing", map[string]any{"name": "x"})
		assert.Equal(t, http.StatusNotFound, w.Code)
		env := decodeEnvelope(t, w)
		require.NotNil(t, env.Error)
		assert.Equal(t, rest.CodeEventNotFound, env.Error.Code)
	})
}

func TestDeleteEventEndpoint(t *testing.T) {
	t.Run("deletes and confirms with a message", func(t *testing.T) {
		handler, repo := setupHandlerTest()
		start := time.Date(2026, time.June, 1, 18, 0, 0, 0, time.UTC)
		repo.Events = []Event{{ID: "evt_a", Name: "x", StartTime: start, EndTime: start.Add(time.Hour)}}
		router := newRouter(handler)

		w := doJSON(t, router, http.MethodDelete, "/api/v1/events/evt_a", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope(t, w)
		assert.True(t, env.Success)
		assert.Equal(t, "event deleted", env.Message)
		assert.Empty(t, repo.Events)
	})

	t.Run("returns 404 when nothing was deleted", func(t *testing.T) {
		handler, _ := setupHandlerTest()
		router := newRouter(handler)

		w := doJSON(t, router, http.MethodDelete, "/api/v1/events/evt_missing", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
