package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/eventpulse/eventpulse/internal/config"
	"github.com/eventpulse/eventpulse/internal/rest"
	log "github.com/sirupsen/logrus"
)

// ModelClient talks to the external forecasting endpoints. Failures come back
// as *rest.Error already classified (503 unavailable / timeout / endpoint not
// found) so the service layer can pass them straight through.
type ModelClient interface {
	Predict(ctx context.Context, payload map[string]any) (map[string]any, error)
	PredictSchedule(ctx context.Context, payload map[string]any) (map[string]any, error)
	Health(ctx context.Context) error
	HealthNewModel(ctx context.Context) error
}

type HTTPModelClient struct {
	legacyURL   string
	scheduleURL string
	client      *http.Client
}

func NewHTTPModelClient(cfg config.Forecast) *HTTPModelClient {
	return &HTTPModelClient{
		legacyURL:   cfg.ModelURL,
		scheduleURL: cfg.NewModelURL,
		client:      &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	}
}

func (c *HTTPModelClient) Predict(ctx context.Context, payload map[string]any) (map[string]any, error) {
	return c.post(ctx, c.legacyURL, payload)
}

func (c *HTTPModelClient) PredictSchedule(ctx context.Context, payload map[string]any) (map[string]any, error) {
	return c.post(ctx, c.scheduleURL, payload)
}

func (c *HTTPModelClient) Health(ctx context.Context) error {
	return c.health(ctx, c.legacyURL)
}

func (c *HTTPModelClient) HealthNewModel(ctx context.Context) error {
	return c.health(ctx, c.scheduleURL)
}

func (c *HTTPModelClient) post(ctx context.Context, url string, payload map[string]any) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("could not encode model payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not create model request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		log.Errorf("forecast model call failed: %v", err)
		return nil, rest.ClassifyUpstream("forecast model", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		log.Errorf("forecast model endpoint not found: %s", url)
		return nil, rest.UpstreamNotFound("forecast model")
	}
	if resp.StatusCode != http.StatusOK {
		log.Errorf("forecast model returned status %d", resp.StatusCode)
		return nil, rest.Unavailable(rest.CodeServiceUnavailable,
			fmt.Sprintf("forecast model returned status %d", resp.StatusCode))
	}

	var prediction map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		log.Errorf("failed to decode model response: %v", err)
		return nil, rest.Unavailable(rest.CodeServiceUnavailable, "forecast model returned an unreadable response")
	}
	return prediction, nil
}

func (c *HTTPModelClient) health(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL(url), nil)
	if err != nil {
		return fmt.Errorf("could not create health request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return rest.ClassifyUpstream("forecast model", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return rest.UpstreamNotFound("forecast model")
	}
	if resp.StatusCode != http.StatusOK {
		return rest.Unavailable(rest.CodeServiceUnavailable,
			fmt.Sprintf("forecast model health check returned status %d", resp.StatusCode))
	}
	return nil
}

// healthURL derives the health probe location from a predict endpoint.
func healthURL(predictURL string) string {
	return strings.TrimSuffix(predictURL, "/predict") + "/health"
}
