package comprehend

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscomprehend "github.com/aws/aws-sdk-go-v2/service/comprehend"
	"github.com/aws/aws-sdk-go-v2/service/comprehend/types"
)

type Sentiment struct {
	Overall  string  `json:"overall"`
	Positive float64 `json:"positive"`
	Negative float64 `json:"negative"`
	Neutral  float64 `json:"neutral"`
	Mixed    float64 `json:"mixed"`
}

type Entity struct {
	Text  string  `json:"text"`
	Type  string  `json:"type"`
	Score float64 `json:"score"`
}

type KeyPhrase struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// API is the narrow surface this package needs from the managed NLP service.
type API interface {
	DetectSentiment(ctx context.Context, text string) (*Sentiment, error)
	DetectEntities(ctx context.Context, text string) ([]Entity, error)
	DetectKeyPhrases(ctx context.Context, text string) ([]KeyPhrase, error)
	DetectDominantLanguage(ctx context.Context, text string) (string, error)
}

// AWSComprehend implements API over the Comprehend SDK client. Detection calls
// other than language detection assume English input.
type AWSComprehend struct {
	client *awscomprehend.Client
}

func NewAWSComprehend(awsCfg aws.Config) *AWSComprehend {
	return &AWSComprehend{client: awscomprehend.NewFromConfig(awsCfg)}
}

func (c *AWSComprehend) DetectSentiment(ctx context.Context, text string) (*Sentiment, error) {
	out, err := c.client.DetectSentiment(ctx, &awscomprehend.DetectSentimentInput{
		Text:         aws.String(text),
		LanguageCode: types.LanguageCodeEn,
	})
	if err != nil {
		return nil, fmt.Errorf("detect sentiment failed: %w", err)
	}
	sentiment := &Sentiment{Overall: string(out.Sentiment)}
	if out.SentimentScore != nil {
		sentiment.Positive = score(out.SentimentScore.Positive)
		sentiment.Negative = score(out.SentimentScore.Negative)
		sentiment.Neutral = score(out.SentimentScore.Neutral)
		sentiment.Mixed = score(out.SentimentScore.Mixed)
	}
	return sentiment, nil
}

func (c *AWSComprehend) DetectEntities(ctx context.Context, text string) ([]Entity, error) {
	out, err := c.client.DetectEntities(ctx, &awscomprehend.DetectEntitiesInput{
		Text:         aws.String(text),
		LanguageCode: types.LanguageCodeEn,
	})
	if err != nil {
		return nil, fmt.Errorf("detect entities failed: %w", err)
	}
	entities := make([]Entity, 0, len(out.Entities))
	for _, e := range out.Entities {
		entities = append(entities, Entity{
			Text:  aws.ToString(e.Text),
			Type:  string(e.Type),
			Score: score(e.Score),
		})
	}
	return entities, nil
}

func (c *AWSComprehend) DetectKeyPhrases(ctx context.Context, text string) ([]KeyPhrase, error) {
	out, err := c.client.DetectKeyPhrases(ctx, &awscomprehend.DetectKeyPhrasesInput{
		Text:         aws.String(text),
		LanguageCode: types.LanguageCodeEn,
	})
	if err != nil {
		return nil, fmt.Errorf("detect key phrases failed: %w", err)
	}
	phrases := make([]KeyPhrase, 0, len(out.KeyPhrases))
	for _, p := range out.KeyPhrases {
		phrases = append(phrases, KeyPhrase{
			Text:  aws.ToString(p.Text),
			Score: score(p.Score),
		})
	}
	return phrases, nil
}

func (c *AWSComprehend) DetectDominantLanguage(ctx context.Context, text string) (string, error) {
	out, err := c.client.DetectDominantLanguage(ctx, &awscomprehend.DetectDominantLanguageInput{
		Text: aws.String(text),
	})
	if err != nil {
		return "", fmt.Errorf("detect dominant language failed: %w", err)
	}
	if len(out.Languages) == 0 {
		return "", nil
	}
	return aws.ToString(out.Languages[0].LanguageCode), nil
}

func score(value *float32) float64 {
	if value == nil {
		return 0
	}
	return float64(*value)
}
