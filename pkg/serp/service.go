package serp

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// relevanceThreshold drops weakly related results from the response.
const relevanceThreshold = 0.4

// EventQuery carries the event fields the search queries are derived from.
type EventQuery struct {
	Name  string
	Venue string
	Start time.Time
}

// SearchSummary is the fail-soft result of SearchNearbyEvents: on failure
// Error is set and Results is an empty, non-nil slice.
type SearchSummary struct {
	Results    []OrganicResult `json:"results"`
	AIOverview string          `json:"ai_overview,omitempty"`
	Summary    string          `json:"summary,omitempty"`
	Error      string          `json:"error,omitempty"`
}

type Service struct {
	client Client
}

func NewService(client Client) *Service {
	return &Service{client: client}
}

// SearchNearbyEvents looks up other happenings around the event's venue and
// date. It never returns a Go error; failures are reported in the payload.
func (s *Service) SearchNearbyEvents(ctx context.Context, query EventQuery) SearchSummary {
	primary := fmt.Sprintf("events near %s %s %d", query.Venue, query.Start.Month(), query.Start.Year())

	response, err := s.client.Search(ctx, primary)
	if err != nil {
		log.Warnf("nearby-events search failed: %v", err)
		return SearchSummary{Results: []OrganicResult{}, Error: err.Error()}
	}

	overview := s.resolveOverview(ctx, response)
	if overview == "" {
		// One alternate phrasing before giving up on the overview.
		alternate := fmt.Sprintf("things to do near %s in %s %d", query.Venue, query.Start.Month(), query.Start.Year())
		if altResponse, err := s.client.Search(ctx, alternate); err == nil {
			overview = s.resolveOverview(ctx, altResponse)
			if len(response.OrganicResults) == 0 {
				response = altResponse
			}
		} else {
			log.Debugf("alternate nearby-events search failed: %v", err)
		}
	}

	results := scoreResults(response.OrganicResults, query)
	return SearchSummary{
		Results:    results,
		AIOverview: overview,
		Summary:    fmt.Sprintf("%d nearby results above relevance threshold", len(results)),
	}
}

// resolveOverview returns the overview text, following the page-token
// indirection when the overview is not embedded inline. Overview failures are
// tolerated; the search results still stand on their own.
func (s *Service) resolveOverview(ctx context.Context, response *SearchResponse) string {
	if response.AIOverview == nil {
		return ""
	}
	if text := overviewText(response.AIOverview); text != "" {
		return text
	}
	if response.AIOverview.PageToken == "" {
		return ""
	}
	full, err := s.client.AIOverviewByToken(ctx, response.AIOverview.PageToken)
	if err != nil {
		log.Debugf("AI overview fetch failed: %v", err)
		return ""
	}
	return overviewText(full)
}

func overviewText(overview *AIOverview) string {
	if overview == nil {
		return ""
	}
	parts := make([]string, 0, len(overview.TextBlocks))
	for _, block := range overview.TextBlocks {
		if block.Snippet != "" {
			parts = append(parts, block.Snippet)
		}
	}
	return strings.Join(parts, " ")
}

// scoreResults applies the heuristic relevance score and keeps results at or
// above the threshold, preserving the upstream order.
func scoreResults(results []OrganicResult, query EventQuery) []OrganicResult {
	kept := make([]OrganicResult, 0, len(results))
	for _, result := range results {
		result.RelevanceScore = relevance(result, query)
		if result.RelevanceScore >= relevanceThreshold {
			kept = append(kept, result)
		}
	}
	return kept
}

// relevance is a weighted keyword/venue/date match capped at 1.0.
func relevance(result OrganicResult, query EventQuery) float64 {
	text := strings.ToLower(result.Title + " " + result.Snippet)
	score := 0.0

	words := significantWords(query.Name)
	if len(words) > 0 {
		matched := 0
		for _, word := range words {
			if strings.Contains(text, word) {
				matched++
			}
		}
		score += 0.5 * float64(matched) / float64(len(words))
	}
	if query.Venue != "" && strings.Contains(text, strings.ToLower(query.Venue)) {
		score += 0.3
	}
	month := strings.ToLower(query.Start.Month().String())
	year := fmt.Sprintf("%d", query.Start.Year())
	if strings.Contains(text, month) || strings.Contains(text, year) {
		score += 0.2
	}
	// Generic event vocabulary still counts for something.
	for _, keyword := range []string{"event", "concert", "festival", "show"} {
		if strings.Contains(text, keyword) {
			score += 0.1
			break
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func significantWords(name string) []string {
	var words []string
	for _, word := range strings.Fields(strings.ToLower(name)) {
		if len(word) > 3 {
			words = append(words, word)
		}
	}
	return words
}
