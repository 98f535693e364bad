package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorStatusClass(t *testing.T) {
	assert.Equal(t, StatusFail, NewError(http.StatusBadRequest, CodeValidationFailed, "x").Status)
	assert.Equal(t, StatusFail, NewError(http.StatusConflict, CodeDuplicateEventID, "x").Status)
	assert.Equal(t, StatusError, NewError(http.StatusInternalServerError, CodeInternal, "x").Status)
	assert.Equal(t, StatusError, NewError(http.StatusServiceUnavailable, CodeServiceUnavailable, "x").Status)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyUpstream(t *testing.T) {
	t.Run("context deadline becomes UPSTREAM_TIMEOUT", func(t *testing.T) {
		err := ClassifyUpstream("forecast model", fmt.Errorf("call failed: %w", context.DeadlineExceeded))
		assert.Equal(t, CodeUpstreamTimeout, err.Code)
		assert.Equal(t, http.StatusServiceUnavailable, err.HTTPStatus)
	})

	t.Run("net timeout becomes UPSTREAM_TIMEOUT", func(t *testing.T) {
		var netErr net.Error = timeoutErr{}
		err := ClassifyUpstream("forecast model", fmt.Errorf("call failed: %w", netErr))
		assert.Equal(t, CodeUpstreamTimeout, err.Code)
	})

	t.Run("anything else becomes SERVICE_UNAVAILABLE", func(t *testing.T) {
		err := ClassifyUpstream("forecast model", errors.New("connection refused"))
		assert.Equal(t, CodeServiceUnavailable, err.Code)
	})
}

func TestUpstreamNotFound(t *testing.T) {
	err := UpstreamNotFound("forecast model")
	assert.Equal(t, http.StatusServiceUnavailable, err.HTTPStatus)
	assert.Equal(t, CodeEndpointNotFound, err.Code)
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(WithRequestID(r.Context(), "req-1"))

	WriteJSON(w, r, http.StatusOK, map[string]string{"hello": "world"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var env Envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
	assert.True(t, env.Success)
	assert.Equal(t, "req-1", env.RequestID)
	assert.Nil(t, env.Error)

	parsed, err := time.Parse(time.RFC3339, env.Timestamp)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), parsed, time.Minute)
}

func TestWriteError(t *testing.T) {
	t.Run("renders a rest error as-is", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)

		WriteError(w, r, NotFound(CodeEventNotFound, "event not found"))

		assert.Equal(t, http.StatusNotFound, w.Code)
		var env Envelope
		require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
		assert.False(t, env.Success)
		require.NotNil(t, env.Error)
		assert.Equal(t, CodeEventNotFound, env.Error.Code)
		assert.Equal(t, StatusFail, env.Error.Status)
	})

	t.Run("wraps unknown errors as 500 and hides the message", func(t *testing.T) {
		SetDevMode(false)
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)

		WriteError(w, r, errors.New("pq: column does not exist"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		var env Envelope
		require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
		require.NotNil(t, env.Error)
		assert.Equal(t, CodeInternal, env.Error.Code)
		assert.NotContains(t, env.Error.Message, "pq:")
	})

	t.Run("passes the message through in dev mode", func(t *testing.T) {
		SetDevMode(true)
		defer SetDevMode(false)
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)

		WriteError(w, r, errors.New("pq: column does not exist"))

		var env Envelope
		require.NoError(t, json.NewDecoder(w.Body).Decode(&env))
		require.NotNil(t, env.Error)
		assert.Contains(t, env.Error.Message, "pq:")
	})

	t.Run("a wrapped rest error is still unwrapped", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)

		WriteError(w, r, fmt.Errorf("looking up event: %w", NotFound(CodeEventNotFound, "event not found")))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestID(ctx))
	assert.Equal(t, "req-9", RequestID(WithRequestID(ctx, "req-9")))
}
