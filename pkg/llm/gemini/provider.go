package gemini

import (
	"context"
	"fmt"

	"ai-meeting-summary-be/pkg/llm"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type GeminiProvider struct {
	apiKey string
	model  string
}

func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiProvider{
		apiKey: apiKey,
		model:  model,
	}
}

func (p *GeminiProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	// Gemini has no native chat-completions shape here; flatten history into one prompt.
	var prompt string
	for _, msg := range history {
		prompt += fmt.Sprintf("%s: %s\n", msg.Role, msg.Content)
	}
	return p.Generate(ctx, prompt, options...)
}

func (p *GeminiProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("gemini provider is not configured (missing API key)")
	}

	opts := &llm.Options{
		Model:       p.model,
		Temperature: 0.7,
	}
	for _, o := range options {
		o(opts)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	generativeModel := client.GenerativeModel(opts.Model)
	temperature := float32(opts.Temperature)
	generativeModel.Temperature = &temperature
	if opts.MaxTokens > 0 {
		maxTokens := int32(opts.MaxTokens)
		generativeModel.MaxOutputTokens = &maxTokens
	}

	resp, err := generativeModel.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation error: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}

	var output string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			output += string(text)
		}
	}

	return output, nil
}
