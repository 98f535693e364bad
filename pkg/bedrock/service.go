package bedrock

import (
	"context"
	"encoding/json"
	"regexp"
	"time"

	log "github.com/sirupsen/logrus"
)

const invokeTimeout = 30 * time.Second

// PopularityAnalysis is the shaped answer of AnalyzePopularity. All fields are
// always present; on failure Error is true and the values are safe defaults.
type PopularityAnalysis struct {
	PopularityScore float64  `json:"popularityScore"`
	Confidence      float64  `json:"confidence"`
	Factors         []string `json:"factors"`
	Summary         string   `json:"summary"`
	Error           bool     `json:"error"`
	Note            string   `json:"note,omitempty"`
}

type GateAction struct {
	Gate   string `json:"gate"`
	Action string `json:"action"`
	Reason string `json:"reason,omitempty"`
}

// Recommendation is the shaped answer of IncidentRecommendation, with the same
// fail-soft contract as PopularityAnalysis.
type Recommendation struct {
	Gates    []GateAction `json:"gates"`
	Actions  []string     `json:"actions"`
	Priority string       `json:"priority"`
	Summary  string       `json:"summary"`
	Error    bool         `json:"error"`
	Note     string       `json:"note,omitempty"`
}

// Service prompts the generative model and shapes its free-text answers into
// structured results. Availability is traded for accuracy: neither operation
// returns a Go error, a degraded structure is returned instead.
type Service struct {
	invoker Invoker
}

func NewService(invoker Invoker) *Service {
	return &Service{invoker: invoker}
}

// AnalyzePopularity asks the model to rate expected event popularity.
func (s *Service) AnalyzePopularity(ctx context.Context, data map[string]any) PopularityAnalysis {
	fallback := PopularityAnalysis{
		Factors: []string{},
		Error:   true,
	}

	prompt := buildPrompt(
		"You are an event analyst. Rate the expected popularity of the following event.",
		data,
		`{"popularityScore": <0-100>, "confidence": <0-1>, "factors": [<strings>], "summary": <string>}`,
	)
	raw, err := s.invoke(ctx, prompt)
	if err != nil {
		log.Warnf("popularity analysis failed: %v", err)
		fallback.Note = "analysis unavailable: model invocation failed"
		return fallback
	}

	var analysis PopularityAnalysis
	if err := unmarshalModelJSON(raw, &analysis); err != nil {
		log.Warnf("popularity analysis returned unparseable output: %v", err)
		fallback.Note = "analysis unavailable: model response could not be parsed"
		return fallback
	}
	if analysis.Factors == nil {
		analysis.Factors = []string{}
	}
	return analysis
}

// IncidentRecommendation asks the model for crowd-management actions given a
// forecast result.
func (s *Service) IncidentRecommendation(ctx context.Context, forecast map[string]any, eventInfo map[string]any) Recommendation {
	fallback := Recommendation{
		Gates:    []GateAction{},
		Actions:  []string{},
		Priority: "unknown",
		Error:    true,
	}

	input := map[string]any{
		"forecast": forecast,
		"event":    eventInfo,
	}
	prompt := buildPrompt(
		"You are a crowd-safety advisor. Recommend incident-prevention actions for the following crowd forecast.",
		input,
		`{"gates": [{"gate": <string>, "action": <string>, "reason": <string>}], "actions": [<strings>], "priority": <"low"|"medium"|"high">, "summary": <string>}`,
	)
	raw, err := s.invoke(ctx, prompt)
	if err != nil {
		log.Warnf("incident recommendation failed: %v", err)
		fallback.Note = "recommendation unavailable: model invocation failed"
		return fallback
	}

	var recommendation Recommendation
	if err := unmarshalModelJSON(raw, &recommendation); err != nil {
		log.Warnf("incident recommendation returned unparseable output: %v", err)
		fallback.Note = "recommendation unavailable: model response could not be parsed"
		return fallback
	}
	if recommendation.Gates == nil {
		recommendation.Gates = []GateAction{}
	}
	if recommendation.Actions == nil {
		recommendation.Actions = []string{}
	}
	if recommendation.Priority == "" {
		recommendation.Priority = "unknown"
	}
	return recommendation
}

func (s *Service) invoke(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, invokeTimeout)
	defer cancel()
	return s.invoker.Invoke(ctx, prompt)
}

func buildPrompt(instruction string, data map[string]any, schema string) string {
	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		encoded = []byte("{}")
	}
	return instruction + "\n\nInput:\n" + string(encoded) +
		"\n\nRespond with a single JSON object only, no prose, matching this shape:\n" + schema
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// unmarshalModelJSON extracts a JSON object from free text: first a direct
// parse, then the outermost {...} span.
func unmarshalModelJSON(raw string, target any) error {
	if err := json.Unmarshal([]byte(raw), target); err == nil {
		return nil
	}
	span := jsonObjectPattern.FindString(raw)
	if span == "" {
		return json.Unmarshal([]byte(raw), target)
	}
	return json.Unmarshal([]byte(span), target)
}
