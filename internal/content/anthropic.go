package content

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"quizrush-service/internal/domain"
)

const generatorSystemPrompt = `You are a trivia quiz generator. You respond with a single JSON object and nothing else, matching:
{"description": "one engaging sentence about the quiz", "questions": [{"text": "...", "options": ["...", "..."], "answer": "..."}]}
Each question has exactly four options, and "answer" is copied verbatim from "options".`

// LLM abstracts the model call so tests can run against canned responses.
type LLM interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// AIGenerator builds question sets by prompting a model.
type AIGenerator struct {
	llm LLM
}

func NewAIGenerator(llm LLM) *AIGenerator {
	return &AIGenerator{llm: llm}
}

func (g *AIGenerator) Generate(ctx context.Context, topic string, difficulty domain.Difficulty, category string) ([]domain.Question, string, error) {
	user := fmt.Sprintf(
		"Generate a multiple-choice quiz about %q in the category %q.\nDifficulty: %s. Number of questions: %d.",
		topic, category, difficulty, difficulty.QuestionCount())

	raw, err := g.llm.Complete(ctx, generatorSystemPrompt, user)
	if err != nil {
		return nil, "", fmt.Errorf("generate quiz: %w", err)
	}

	var payload struct {
		Description string            `json:"description"`
		Questions   []domain.Question `json:"questions"`
	}
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &payload); err != nil {
		return nil, "", fmt.Errorf("parse quiz response: %w", err)
	}
	return payload.Questions, payload.Description, nil
}

// AnthropicLLM is the production LLM backed by the Anthropic API.
type AnthropicLLM struct {
	client *anthropic.Client
	model  string
}

func NewAnthropicLLM(apiKey, model string) *AnthropicLLM {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicLLM{client: &client, model: model}
}

func (l *AnthropicLLM) Complete(ctx context.Context, system, user string) (string, error) {
	message, err := l.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(l.model),
		MaxTokens:   8192,
		Temperature: param.NewOpt(0.8),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", err
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in model response")
}

// stripCodeFences tolerates models wrapping the JSON in a markdown block.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
