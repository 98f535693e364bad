package comprehend

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"
)

// maxTextBytes is the Comprehend per-request text size limit.
const maxTextBytes = 5000

// TextAnalysis gathers the outcome of the four detection calls. A failed call
// leaves its field empty instead of failing the whole analysis.
type TextAnalysis struct {
	Sentiment        *Sentiment  `json:"sentiment"`
	Entities         []Entity    `json:"entities"`
	KeyPhrases       []KeyPhrase `json:"keyPhrases"`
	DetectedLanguage string      `json:"detectedLanguage"`
	Summary          string      `json:"summary"`
}

// AIContext is the structured document attached to an event for an analyzed
// file.
type AIContext struct {
	FileName       string       `json:"fileName"`
	FileType       string       `json:"fileType,omitempty"`
	Dates          []string     `json:"dates,omitempty"`
	Times          []string     `json:"times,omitempty"`
	Emails         []string     `json:"emails,omitempty"`
	URLs           []string     `json:"urls,omitempty"`
	HasTabularData bool         `json:"hasTabularData"`
	RelevanceScore float64      `json:"relevanceScore"`
	ContextSummary string       `json:"contextSummary"`
	Analysis       TextAnalysis `json:"analysis"`
}

// ToMap renders the context as a generic document for storage on the event row.
func (c AIContext) ToMap() (map[string]any, error) {
	encoded, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("could not encode AI context: %w", err)
	}
	var asMap map[string]any
	if err := json.Unmarshal(encoded, &asMap); err != nil {
		return nil, fmt.Errorf("could not decode AI context: %w", err)
	}
	return asMap, nil
}

type Service struct {
	api         API
	callTimeout time.Duration
}

func NewService(api API, callTimeout time.Duration) *Service {
	return &Service{api: api, callTimeout: callTimeout}
}

// AnalyzeText runs the four detection calls concurrently and waits for all of
// them. Each failed call degrades its own field only.
func (s *Service) AnalyzeText(ctx context.Context, text string) TextAnalysis {
	text = truncate(text, maxTextBytes)

	var analysis TextAnalysis
	var sentimentErr, entitiesErr, phrasesErr, languageErr error

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		analysis.Sentiment, sentimentErr = s.detectSentiment(ctx, text)
	}()
	go func() {
		defer wg.Done()
		analysis.Entities, entitiesErr = s.detectEntities(ctx, text)
	}()
	go func() {
		defer wg.Done()
		analysis.KeyPhrases, phrasesErr = s.detectKeyPhrases(ctx, text)
	}()
	go func() {
		defer wg.Done()
		analysis.DetectedLanguage, languageErr = s.detectLanguage(ctx, text)
	}()
	wg.Wait()

	for _, err := range []error{sentimentErr, entitiesErr, phrasesErr, languageErr} {
		if err != nil {
			log.Warnf("text analysis call degraded: %v", err)
		}
	}
	if analysis.Entities == nil {
		analysis.Entities = []Entity{}
	}
	if analysis.KeyPhrases == nil {
		analysis.KeyPhrases = []KeyPhrase{}
	}
	analysis.Summary = summarize(analysis)
	return analysis
}

func (s *Service) detectSentiment(ctx context.Context, text string) (*Sentiment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.api.DetectSentiment(ctx, text)
}

func (s *Service) detectEntities(ctx context.Context, text string) ([]Entity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.api.DetectEntities(ctx, text)
}

func (s *Service) detectKeyPhrases(ctx context.Context, text string) ([]KeyPhrase, error) {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.api.DetectKeyPhrases(ctx, text)
}

func (s *Service) detectLanguage(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.api.DetectDominantLanguage(ctx, text)
}

var (
	datePattern = regexp.MustCompile(`\b(?:\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4}|(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]* \d{1,2},? \d{4})\b`)
	timePattern = regexp.MustCompile(`\b\d{1,2}:\d{2}(?::\d{2})?(?: ?(?:AM|PM|am|pm))?\b`)
	// Simplified address shape; good enough for extraction, not validation.
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	urlPattern   = regexp.MustCompile(`https?://[^\s<>"']+`)
)

// eventKeywords drive the deterministic relevance score: keywords present in
// the input are reflected in the score, nothing is learned.
var eventKeywords = []string{
	"event", "venue", "ticket", "schedule", "gate", "attendee", "concert",
	"conference", "festival", "capacity", "crowd", "session", "registration", "stage",
}

// AnalyzeEventFile combines the remote text analysis with regex-based
// structural extraction and a heuristic event-relevance score.
func (s *Service) AnalyzeEventFile(ctx context.Context, content, fileName, fileType string) AIContext {
	analysis := s.AnalyzeText(ctx, content)

	aiCtx := AIContext{
		FileName:       fileName,
		FileType:       fileType,
		Dates:          dedupe(datePattern.FindAllString(content, -1)),
		Times:          dedupe(timePattern.FindAllString(content, -1)),
		Emails:         dedupe(emailPattern.FindAllString(content, -1)),
		URLs:           dedupe(urlPattern.FindAllString(content, -1)),
		HasTabularData: looksTabular(content),
		Analysis:       analysis,
	}
	aiCtx.RelevanceScore = relevanceScore(content, aiCtx)
	aiCtx.ContextSummary = contextSummary(aiCtx)
	return aiCtx
}

// relevanceScore is a weighted keyword/structure overlap capped at 1.0.
func relevanceScore(content string, aiCtx AIContext) float64 {
	lower := strings.ToLower(content)
	score := 0.0
	for _, keyword := range eventKeywords {
		if strings.Contains(lower, keyword) {
			score += 0.1
		}
	}
	if len(aiCtx.Dates) > 0 {
		score += 0.15
	}
	if len(aiCtx.Times) > 0 {
		score += 0.1
	}
	if aiCtx.HasTabularData {
		score += 0.15
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// looksTabular reports whether the content contains at least three lines that
// look like CSV rows.
func looksTabular(content string) bool {
	csvLines := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.Count(line, ",") >= 2 || strings.Count(line, "\t") >= 2 {
			csvLines++
			if csvLines >= 3 {
				return true
			}
		}
	}
	return false
}

func contextSummary(aiCtx AIContext) string {
	parts := []string{
		fmt.Sprintf("%d dates", len(aiCtx.Dates)),
		fmt.Sprintf("%d times", len(aiCtx.Times)),
		fmt.Sprintf("%d emails", len(aiCtx.Emails)),
		fmt.Sprintf("%d links", len(aiCtx.URLs)),
	}
	if aiCtx.HasTabularData {
		parts = append(parts, "tabular data")
	}
	return fmt.Sprintf("%s: %s; event relevance %.2f",
		aiCtx.FileName, strings.Join(parts, ", "), aiCtx.RelevanceScore)
}

func summarize(analysis TextAnalysis) string {
	parts := make([]string, 0, 4)
	if analysis.Sentiment != nil {
		parts = append(parts, "sentiment "+strings.ToLower(analysis.Sentiment.Overall))
	}
	parts = append(parts,
		fmt.Sprintf("%d entities", len(analysis.Entities)),
		fmt.Sprintf("%d key phrases", len(analysis.KeyPhrases)))
	if analysis.DetectedLanguage != "" {
		parts = append(parts, "language "+analysis.DetectedLanguage)
	}
	return strings.Join(parts, ", ")
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			result = append(result, v)
		}
	}
	return result
}

// truncate cuts the text to the API byte limit without splitting a rune.
// Only bytes of a rune straddling the cut are dropped; invalid bytes earlier
// in the text are kept as-is.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := text[:limit]
	for i := 0; i < utf8.UTFMax-1 && len(cut) > 0; i++ {
		r, size := utf8.DecodeLastRuneInString(cut)
		if r != utf8.RuneError || size > 1 {
			break
		}
		cut = cut[:len(cut)-1]
	}
	return cut
}
