package insights

import (
	"context"

	"github.com/eventpulse/eventpulse/pkg/bedrock"
	"github.com/eventpulse/eventpulse/pkg/comprehend"
	"github.com/eventpulse/eventpulse/pkg/event"
	"github.com/eventpulse/eventpulse/pkg/serp"
)

// PopularityAnalyzer and NearbySearcher are the fail-soft collaborators this
// service composes; both always return a usable structure.
type PopularityAnalyzer interface {
	AnalyzePopularity(ctx context.Context, data map[string]any) bedrock.PopularityAnalysis
}

type NearbySearcher interface {
	SearchNearbyEvents(ctx context.Context, query serp.EventQuery) serp.SearchSummary
}

type FileAnalyzer interface {
	AnalyzeEventFile(ctx context.Context, content, fileName, fileType string) comprehend.AIContext
}

// Insights combines the popularity analysis and nearby-events search for one
// event. Since both collaborators degrade instead of failing, an Insights is
// always fully shaped.
type Insights struct {
	EventID    string                     `json:"eventId"`
	Popularity bedrock.PopularityAnalysis `json:"popularity"`
	Nearby     serp.SearchSummary         `json:"nearby"`
}

type Service struct {
	events     event.Service
	popularity PopularityAnalyzer
	nearby     NearbySearcher
	files      FileAnalyzer
}

func NewService(events event.Service, popularity PopularityAnalyzer, nearby NearbySearcher, files FileAnalyzer) *Service {
	return &Service{events: events, popularity: popularity, nearby: nearby, files: files}
}

func (s *Service) EventInsights(ctx context.Context, eventID string) (Insights, error) {
	ev, err := s.lookupEvent(ctx, eventID)
	if err != nil {
		return Insights{}, err
	}

	data := map[string]any{
		"name":        ev.Name,
		"description": ev.Description,
		"venue":       ev.Venue,
		"start":       ev.StartTime,
		"end":         ev.EndTime,
	}

	return Insights{
		EventID:    ev.ID,
		Popularity: s.popularity.AnalyzePopularity(ctx, data),
		Nearby: s.nearby.SearchNearbyEvents(ctx, serp.EventQuery{
			Name:  ev.Name,
			Venue: ev.Venue,
			Start: ev.StartTime,
		}),
	}, nil
}

// AnalyzeAttachment runs file analysis on the submitted content and stores the
// resulting AI context as an attachment on the event.
func (s *Service) AnalyzeAttachment(ctx context.Context, eventID, content, fileName, fileType, fileURL string) (comprehend.AIContext, error) {
	if _, err := s.lookupEvent(ctx, eventID); err != nil {
		return comprehend.AIContext{}, err
	}

	aiContext := s.files.AnalyzeEventFile(ctx, content, fileName, fileType)
	contextMap, err := aiContext.ToMap()
	if err != nil {
		return comprehend.AIContext{}, err
	}

	if _, err := s.events.AttachAnalysis(ctx, eventID, event.Attachment{
		URL:      fileURL,
		FileName: fileName,
		Context:  contextMap,
	}); err != nil {
		return comprehend.AIContext{}, err
	}
	return aiContext, nil
}

func (s *Service) lookupEvent(ctx context.Context, eventID string) (*event.Event, error) {
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, event.ErrEventNotFound
	}
	return ev, nil
}
