package app

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/eventpulse/eventpulse/internal/config"
	"github.com/eventpulse/eventpulse/internal/event_bus"
	"github.com/eventpulse/eventpulse/pkg/bedrock"
	"github.com/eventpulse/eventpulse/pkg/comprehend"
	"github.com/eventpulse/eventpulse/pkg/event"
	"github.com/eventpulse/eventpulse/pkg/forecast"
	"github.com/eventpulse/eventpulse/pkg/insights"
	"github.com/eventpulse/eventpulse/pkg/serp"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Bus *event_bus.EventBus

	EventRepo    event.Repository
	EventService event.Service
	EventHandler *event.Handler

	BedrockService  *bedrock.Service
	ModelClient     forecast.ModelClient
	ForecastService forecast.Service
	ForecastHandler *forecast.Handler

	ComprehendService *comprehend.Service
	SerpService       *serp.Service
	InsightsService   *insights.Service
	InsightsHandler   *insights.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *pgxpool.Pool, cfg config.Application, bedrockCfg aws.Config, comprehendCfg aws.Config) *Dependencies {
	deps := &Dependencies{}

	deps.Bus = event_bus.NewEventBus()
	registerLifecycleLogging(deps.Bus)

	deps.EventRepo = event.NewEventRepo(db)
	deps.EventService = event.NewEventService(deps.EventRepo, deps.Bus)
	deps.EventHandler = event.NewHandler(deps.EventService)

	deps.BedrockService = bedrock.NewService(bedrock.NewRuntimeInvoker(bedrockCfg, cfg.Bedrock.ModelID))
	deps.ModelClient = forecast.NewHTTPModelClient(cfg.Forecast)
	deps.ForecastService = forecast.NewService(deps.EventService, deps.ModelClient, incidentRecommender{deps.BedrockService})
	deps.ForecastHandler = forecast.NewHandler(deps.ForecastService)

	deps.ComprehendService = comprehend.NewService(
		comprehend.NewAWSComprehend(comprehendCfg),
		time.Duration(cfg.Comprehend.TimeoutSeconds)*time.Second,
	)
	deps.SerpService = serp.NewService(serp.NewHTTPClient(cfg.Serp))
	deps.InsightsService = insights.NewService(deps.EventService, deps.BedrockService, deps.SerpService, deps.ComprehendService)
	deps.InsightsHandler = insights.NewHandler(deps.InsightsService)

	return deps
}

// incidentRecommender adapts the bedrock service to the forecast Recommender
// interface, flattening gate actions into plain strings.
type incidentRecommender struct {
	svc *bedrock.Service
}

func (a incidentRecommender) IncidentActions(ctx context.Context, prediction map[string]any, eventInfo map[string]any) []string {
	recommendation := a.svc.IncidentRecommendation(ctx, prediction, eventInfo)
	actions := append([]string{}, recommendation.Actions...)
	for _, gate := range recommendation.Gates {
		actions = append(actions, fmt.Sprintf("%s: %s", gate.Gate, gate.Action))
	}
	return actions
}

func registerLifecycleLogging(bus *event_bus.EventBus) {
	event_bus.SubscribeTyped[event_bus.EventCreated](bus, event_bus.TopicEventCreated,
		func(e event_bus.EventT[event_bus.EventCreated]) error {
			log.Infof("event created: %s (%s) for %s", e.Data.EventID, e.Data.Name, e.Data.UserEmail)
			return nil
		})
	event_bus.SubscribeTyped[event_bus.EventUpdated](bus, event_bus.TopicEventUpdated,
		func(e event_bus.EventT[event_bus.EventUpdated]) error {
			log.Infof("event updated: %s", e.Data.EventID)
			return nil
		})
	event_bus.SubscribeTyped[event_bus.EventDeleted](bus, event_bus.TopicEventDeleted,
		func(e event_bus.EventT[event_bus.EventDeleted]) error {
			log.Infof("event deleted: %s", e.Data.EventID)
			return nil
		})
	event_bus.SubscribeTyped[event_bus.ForecastUpdated](bus, event_bus.TopicEventForecastUpdated,
		func(e event_bus.EventT[event_bus.ForecastUpdated]) error {
			if e.Data.Cleared {
				log.Infof("forecast cleared for event %s", e.Data.EventID)
			} else {
				log.Infof("forecast stored for event %s", e.Data.EventID)
			}
			return nil
		})
}
