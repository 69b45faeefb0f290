package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/streamwatch/streamwatch/internal/config"
)

const sentimentPrompt = `You are a sentiment analyzer. Analyze the sentiment of the given text and respond with ONLY a JSON object of the form {"polarity": <float from -1.0 to 1.0>}, where -1.0 is extremely negative and 1.0 is extremely positive. No other text.`

// OpenAIAnalyzer scores sentiment through the OpenAI chat completion API.
type OpenAIAnalyzer struct {
	client *openai.Client
	cfg    config.AnalysisConfig
	logger *slog.Logger
}

// NewOpenAIAnalyzer builds an analyzer for the given API key.
func NewOpenAIAnalyzer(apiKey string, cfg config.AnalysisConfig, logger *slog.Logger) *OpenAIAnalyzer {
	return &OpenAIAnalyzer{
		client: openai.NewClient(apiKey),
		cfg:    cfg,
		logger: logger,
	}
}

// Analyze scores one text. On any API or parse failure it falls back to
// the rule-based analyzer rather than failing the batch.
func (a *OpenAIAnalyzer) Analyze(ctx context.Context, text string) (Sentiment, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.cfg.Model,
		Temperature: a.cfg.Temperature,
		MaxTokens:   50,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: sentimentPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		a.logger.Warn("sentiment api call failed, using rule fallback", "error", err)
		return (&RuleAnalyzer{}).Analyze(ctx, text)
	}
	if len(resp.Choices) == 0 {
		return (&RuleAnalyzer{}).Analyze(ctx, text)
	}

	polarity, err := parsePolarity(resp.Choices[0].Message.Content)
	if err != nil {
		a.logger.Warn("unparseable sentiment response, using rule fallback",
			"content", resp.Choices[0].Message.Content)
		return (&RuleAnalyzer{}).Analyze(ctx, text)
	}

	return Sentiment{Polarity: polarity, Label: LabelFor(polarity)}, nil
}

func parsePolarity(content string) (float64, error) {
	content = strings.TrimSpace(content)
	// Models occasionally wrap the JSON in a code fence.
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var out struct {
		Polarity float64 `json:"polarity"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &out); err != nil {
		return 0, fmt.Errorf("decode sentiment: %w", err)
	}
	if out.Polarity < -1 || out.Polarity > 1 {
		return 0, fmt.Errorf("polarity %v out of range", out.Polarity)
	}
	return out.Polarity, nil
}
