package factory

import (
	"fmt"

	"voicetask/pkg/llm"
	"voicetask/pkg/llm/gemini"
	"voicetask/pkg/llm/ollama"
)

type Config struct {
	Provider      string // "gemini" or "ollama"
	Model         string
	GeminiAPIKey  string
	GeminiBaseURL string
	OllamaBaseURL string
}

func NewLLMProvider(cfg Config) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "gemini", "":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini provider requires GOOGLE_GEMINI_API_KEY")
		}
		return gemini.NewGeminiProvider(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.Model), nil
	case "ollama":
		baseURL := cfg.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
