package factory

import (
	"fmt"

	"ai-meeting-summary-be/pkg/llm"
	"ai-meeting-summary-be/pkg/llm/gemini"
	"ai-meeting-summary-be/pkg/llm/groq"
)

func NewLLMProvider(providerType, apiKey, modelName string) (llm.LLMProvider, error) {
	switch providerType {
	case "groq":
		if apiKey == "" {
			return nil, fmt.Errorf("groq provider requires an API key")
		}
		return groq.NewGroqProvider(apiKey, "", modelName), nil
	case "gemini":
		if apiKey == "" {
			return nil, fmt.Errorf("gemini provider requires an API key")
		}
		return gemini.NewGeminiProvider(apiKey, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
