package app

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes wires the /api/v1 surface onto the router.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {
	api := r.PathPrefix("/api/v1").Subrouter()

	// Events
	api.HandleFunc("/events", deps.EventHandler.CreateEvent).Methods(http.MethodPost)
	api.HandleFunc("/events", deps.EventHandler.ListEvents).Methods(http.MethodGet)
	api.HandleFunc("/events/user/{email}", deps.EventHandler.GetEventsByUser).Methods(http.MethodGet)
	api.HandleFunc("/events/{eventId}", deps.EventHandler.GetEvent).Methods(http.MethodGet)
	api.HandleFunc("/events/{eventId}", deps.EventHandler.UpdateEvent).Methods(http.MethodPut)
	api.HandleFunc("/events/{eventId}", deps.EventHandler.DeleteEvent).Methods(http.MethodDelete)

	// Event insights and attachments
	api.HandleFunc("/events/{eventId}/insights", deps.InsightsHandler.GetEventInsights).Methods(http.MethodGet)
	api.HandleFunc("/events/{eventId}/attachments/analyze", deps.InsightsHandler.AnalyzeAttachment).Methods(http.MethodPost)

	// Forecasting
	api.HandleFunc("/forecast", deps.ForecastHandler.GenerateForecast).Methods(http.MethodPost)
	api.HandleFunc("/forecast/legacy", deps.ForecastHandler.GenerateLegacyForecast).Methods(http.MethodPost)
	api.HandleFunc("/forecast/regenerate/{eventId}", deps.ForecastHandler.RegenerateForecast).Methods(http.MethodPost)
	api.HandleFunc("/forecast/health/model", deps.ForecastHandler.ModelHealth).Methods(http.MethodGet)
	api.HandleFunc("/forecast/health/new-model", deps.ForecastHandler.NewModelHealth).Methods(http.MethodGet)
	api.HandleFunc("/forecast/{eventId}", deps.ForecastHandler.GetForecast).Methods(http.MethodGet)
	api.HandleFunc("/forecast/{eventId}", deps.ForecastHandler.DeleteForecast).Methods(http.MethodDelete)
}
