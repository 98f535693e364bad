package serp

import "context"

// StubClient is an in-memory Client for tests.
type StubClient struct {
	Responses map[string]*SearchResponse
	Default   *SearchResponse
	Overview  *AIOverview
	Err       error

	Queries []string
	Tokens  []string
}

func (s *StubClient) Search(ctx context.Context, query string) (*SearchResponse, error) {
	s.Queries = append(s.Queries, query)
	if s.Err != nil {
		return nil, s.Err
	}
	if response, ok := s.Responses[query]; ok {
		return response, nil
	}
	if s.Default != nil {
		return s.Default, nil
	}
	return &SearchResponse{}, nil
}

func (s *StubClient) AIOverviewByToken(ctx context.Context, pageToken string) (*AIOverview, error) {
	s.Tokens = append(s.Tokens, pageToken)
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Overview, nil
}
