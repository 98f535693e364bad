package forecast

import "context"

// StubModelClient is an in-memory ModelClient for tests. When Err is set every
// call fails with it; otherwise Prediction is returned.
type StubModelClient struct {
	Prediction map[string]any
	Err        error

	PredictCalls  []map[string]any
	ScheduleCalls []map[string]any
}

func (s *StubModelClient) Predict(ctx context.Context, payload map[string]any) (map[string]any, error) {
	s.PredictCalls = append(s.PredictCalls, payload)
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Prediction, nil
}

func (s *StubModelClient) PredictSchedule(ctx context.Context, payload map[string]any) (map[string]any, error) {
	s.ScheduleCalls = append(s.ScheduleCalls, payload)
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Prediction, nil
}

func (s *StubModelClient) Health(ctx context.Context) error {
	return s.Err
}

func (s *StubModelClient) HealthNewModel(ctx context.Context) error {
	return s.Err
}
