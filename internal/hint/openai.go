package hint

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/logger"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gpt-4o-mini"

// Config configures the OpenAI-compatible chat completion endpoint.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
}

// OpenAI generates hints with a chat completion model.
type OpenAI struct {
	client   openai.Client
	model    string
	language string
}

// NewOpenAI builds a generator. Retries are disabled; a failed call falls
// back immediately.
func NewOpenAI(cfg Config) *OpenAI {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		opts = append(opts, option.WithBaseURL(base))
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	language := strings.TrimSpace(cfg.Language)
	if language == "" {
		language = "English"
	}
	return &OpenAI{
		client:   openai.NewClient(opts...),
		model:    model,
		language: language,
	}
}

// GenerateHint implements Generator.
func (g *OpenAI) GenerateHint(ctx context.Context, receiverName string) string {
	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(Prompt(receiverName, g.language)),
		},
		Temperature: openai.Float(0.7),
	})
	if err != nil {
		logger.Warningf("hint: generate for %q: %v", receiverName, err)
		return FallbackError
	}
	if len(completion.Choices) == 0 {
		return FallbackEmpty
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return FallbackEmpty
	}
	return text
}

// Prompt is the instruction sent to the model.
func Prompt(receiverName, language string) string {
	return fmt.Sprintf(
		"Generate a short, festive, rhyming Secret Santa hint for a person named %q.\n"+
			"It should be 2 lines long. Do not mention specific gifts, just a vague, magical holiday blessing.\n"+
			"Language: %s.",
		receiverName, language,
	)
}
