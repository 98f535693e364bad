package forecast

import (
	"fmt"
	"time"
)

var ErrForecastNotFound = fmt.Errorf("no forecast stored for event")

// Summary is derived from the raw model prediction so callers do not need to
// understand the model's output schema.
type Summary struct {
	TotalAttendance int      `json:"totalAttendance"`
	PeakHours       []string `json:"peakHours"`
	RiskZones       []string `json:"riskZones"`
	Recommendations []string `json:"recommendations"`
}

// Result wraps a raw model prediction together with its derived summary. Each
// generation replaces the previous result on the event; no history is kept.
type Result struct {
	EventID     string         `json:"eventId"`
	Model       string         `json:"model"`
	Prediction  map[string]any `json:"prediction"`
	Summary     Summary        `json:"summary"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

const (
	ModelLegacy   = "legacy"
	ModelSchedule = "schedule"
)

// ScheduleInput is the validated input for the schedule-aware model path.
type ScheduleInput struct {
	EventID       string
	Gates         []string
	GatesCrowd    []float64
	ScheduleStart time.Time
	ScheduleEnd   time.Time
	ResampleFreq  string
}
