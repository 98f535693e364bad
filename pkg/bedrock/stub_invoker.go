package bedrock

import "context"

// StubInvoker returns a canned response or error; used in tests.
type StubInvoker struct {
	Response string
	Err      error

	Prompts []string
}

func (s *StubInvoker) Invoke(ctx context.Context, prompt string) (string, error) {
	s.Prompts = append(s.Prompts, prompt)
	if s.Err != nil {
		return "", s.Err
	}
	return s.Response, nil
}
