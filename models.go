package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/fake"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// getModelClient builds the langchaingo client for config.LLM.
func getModelClient(config *Config) (llms.Model, error) {
	resolveAPIKey(config)
	llm := config.LLM

	switch llm.Provider {
	case "fake":
		return fake.NewFakeLLM([]string{"This is a canned reply.\nNo provider is configured."}), nil
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(llm.Model)}
		if llm.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(llm.BaseURL))
		}
		return ollama.New(opts...)
	case "openai", "":
		opts := []openai.Option{openai.WithModel(llm.Model)}
		if llm.APIKey != "" {
			opts = append(opts, openai.WithToken(llm.APIKey))
		}
		if llm.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(llm.BaseURL))
		}
		return openai.New(opts...)
	case "anthropic":
		opts := []anthropic.Option{anthropic.WithModel(llm.Model)}
		if llm.APIKey != "" {
			opts = append(opts, anthropic.WithToken(llm.APIKey))
		}
		if llm.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(llm.BaseURL))
		}
		return anthropic.New(opts...)
	case "googleai":
		if llm.APIKey == "" {
			return nil, fmt.Errorf("missing Google AI API key. Set llm.api_key or GEMINI_API_KEY")
		}
		return googleai.New(context.Background(),
			googleai.WithDefaultModel(llm.Model),
			googleai.WithAPIKey(llm.APIKey),
		)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llm.Provider)
	}
}

// modelChoices lists the models offered by /model with the current one
// first when it is not configured, and the index of the current model.
func modelChoices(config *Config) ([]string, int) {
	models := slices.Clone(config.LLM.Models)
	current := slices.Index(models, config.LLM.Model)
	if current < 0 && config.LLM.Model != "" {
		models = append([]string{config.LLM.Model}, models...)
		current = 0
	}
	return models, max(current, 0)
}
