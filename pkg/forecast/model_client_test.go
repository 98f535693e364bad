package forecast

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eventpulse/eventpulse/internal/config"
	"github.com/eventpulse/eventpulse/internal/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clientFor(serverURL string, timeoutSeconds int) *HTTPModelClient {
	return NewHTTPModelClient(config.Forecast{
		ModelURL:       serverURL + "/predict",
		NewModelURL:    serverURL + "/predict",
		TimeoutSeconds: timeoutSeconds,
	})
}

func apiError(t *testing.T, err error) *rest.Error {
	t.Helper()
	var apiErr *rest.Error
	require.True(t, errors.As(err, &apiErr))
	return apiErr
}

func TestModelClientPredict(t *testing.T) {
	t.Run("decodes a successful prediction", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/predict", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"total_attendance": 1200}`))
		}))
		defer server.Close()

		prediction, err := clientFor(server.URL, 5).Predict(context.Background(), map[string]any{"event_id": "evt_1"})
		require.NoError(t, err)
		assert.Equal(t, float64(1200), prediction["total_attendance"])
	})

	t.Run("a 404 surfaces as ENDPOINT_NOT_FOUND", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		_, err := clientFor(server.URL, 5).Predict(context.Background(), nil)
		apiErr := apiError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, apiErr.HTTPStatus)
		assert.Equal(t, rest.CodeEndpointNotFound, apiErr.Code)
	})

	t.Run("a refused connection surfaces as SERVICE_UNAVAILABLE", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		_, err := clientFor(server.URL, 5).Predict(context.Background(), nil)
		apiErr := apiError(t, err)
		assert.Equal(t, rest.CodeServiceUnavailable, apiErr.Code)
	})

	t.Run("a slow model surfaces as UPSTREAM_TIMEOUT", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(300 * time.Millisecond)
		}))
		defer server.Close()

		client := &HTTPModelClient{
			legacyURL: server.URL + "/predict",
			client:    &http.Client{Timeout: 50 * time.Millisecond},
		}
		_, err := client.Predict(context.Background(), nil)
		apiErr := apiError(t, err)
		assert.Equal(t, rest.CodeUpstreamTimeout, apiErr.Code)
	})

	t.Run("a 500 surfaces as SERVICE_UNAVAILABLE", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		_, err := clientFor(server.URL, 5).Predict(context.Background(), nil)
		apiErr := apiError(t, err)
		assert.Equal(t, rest.CodeServiceUnavailable, apiErr.Code)
	})

	t.Run("garbage output surfaces as SERVICE_UNAVAILABLE", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}))
		defer server.Close()

		_, err := clientFor(server.URL, 5).Predict(context.Background(), nil)
		apiErr := apiError(t, err)
		assert.Equal(t, rest.CodeServiceUnavailable, apiErr.Code)
	})
}

func TestModelClientHealth(t *testing.T) {
	t.Run("probes the derived health path", func(t *testing.T) {
		var probed string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			probed = r.URL.Path
		}))
		defer server.Close()

		require.NoError(t, clientFor(server.URL, 5).Health(context.Background()))
		assert.Equal(t, "/health", probed)
	})

	t.Run("an unhealthy model reports unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		err := clientFor(server.URL, 5).HealthNewModel(context.Background())
		apiErr := apiError(t, err)
		assert.Equal(t, rest.CodeServiceUnavailable, apiErr.Code)
	})
}

func TestHealthURL(t *testing.T) {
	assert.Equal(t, "http://models:8501/health", healthURL("http://models:8501/predict"))
	assert.Equal(t, "http://models:8501/health", healthURL("http://models:8501"))
}
