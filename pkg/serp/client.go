package serp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eventpulse/eventpulse/internal/config"
	log "github.com/sirupsen/logrus"
)

// OrganicResult is a single search hit. RelevanceScore is filled in by the
// service after heuristic scoring.
type OrganicResult struct {
	Title          string  `json:"title"`
	Link           string  `json:"link"`
	Snippet        string  `json:"snippet,omitempty"`
	Source         string  `json:"source,omitempty"`
	RelevanceScore float64 `json:"relevanceScore"`
}

type AIOverview struct {
	PageToken  string      `json:"page_token,omitempty"`
	TextBlocks []TextBlock `json:"text_blocks,omitempty"`
}

type TextBlock struct {
	Type    string `json:"type,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// SearchResponse is the subset of the search API response this service reads.
type SearchResponse struct {
	OrganicResults []OrganicResult `json:"organic_results"`
	AIOverview     *AIOverview     `json:"ai_overview"`
}

// Client talks to the web-search API.
type Client interface {
	Search(ctx context.Context, query string) (*SearchResponse, error)
	// AIOverviewByToken fetches a full AI overview through the page-token
	// indirection the search API uses for overviews not embedded inline.
	AIOverviewByToken(ctx context.Context, pageToken string) (*AIOverview, error)
}

type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPClient(cfg config.Serp) *HTTPClient {
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	}
}

func (c *HTTPClient) Search(ctx context.Context, query string) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)

	var response SearchResponse
	if err := c.get(ctx, params, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *HTTPClient) AIOverviewByToken(ctx context.Context, pageToken string) (*AIOverview, error) {
	params := url.Values{}
	params.Set("engine", "google_ai_overview")
	params.Set("page_token", pageToken)

	var response struct {
		AIOverview *AIOverview `json:"ai_overview"`
	}
	if err := c.get(ctx, params, &response); err != nil {
		return nil, err
	}
	return response.AIOverview, nil
}

func (c *HTTPClient) get(ctx context.Context, params url.Values, target any) error {
	params.Set("api_key", c.apiKey)

	requestURL := c.baseURL
	if !strings.Contains(requestURL, "?") {
		requestURL += "?"
	} else {
		requestURL += "&"
	}
	requestURL += params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("could not create search request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Errorf("search API call failed: %v", err)
		return fmt.Errorf("search API call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("search API returned status %d", resp.StatusCode)
		log.Error(err)
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("could not decode search response: %w", err)
	}
	return nil
}
