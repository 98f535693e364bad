package comprehend

import "context"

// StubAPI is an in-memory API for tests; individual calls can be failed
// independently to exercise the partial-degradation behavior.
type StubAPI struct {
	Sentiment  *Sentiment
	Entities   []Entity
	KeyPhrases []KeyPhrase
	Language   string

	SentimentErr  error
	EntitiesErr   error
	KeyPhrasesErr error
	LanguageErr   error
}

func (s *StubAPI) DetectSentiment(ctx context.Context, text string) (*Sentiment, error) {
	if s.SentimentErr != nil {
		return nil, s.SentimentErr
	}
	return s.Sentiment, nil
}

func (s *StubAPI) DetectEntities(ctx context.Context, text string) ([]Entity, error) {
	if s.EntitiesErr != nil {
		return nil, s.EntitiesErr
	}
	return s.Entities, nil
}

func (s *StubAPI) DetectKeyPhrases(ctx context.Context, text string) ([]KeyPhrase, error) {
	if s.KeyPhrasesErr != nil {
		return nil, s.KeyPhrasesErr
	}
	return s.KeyPhrases, nil
}

func (s *StubAPI) DetectDominantLanguage(ctx context.Context, text string) (string, error) {
	if s.LanguageErr != nil {
		return "", s.LanguageErr
	}
	return s.Language, nil
}
