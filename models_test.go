package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	gokeyring "github.com/zalando/go-keyring"
)

func TestGetModelClient(t *testing.T) {
	gokeyring.MockInit()

	t.Run("fake provider answers", func(t *testing.T) {
		config := defaultConfig()
		config.LLM.Provider = "fake"
		llm, err := getModelClient(&config)
		require.NoError(t, err)
		out, err := llms.GenerateFromSinglePrompt(context.Background(), llm, "hi")
		require.NoError(t, err)
		require.Contains(t, out, "canned reply")
	})

	t.Run("ollama needs no key", func(t *testing.T) {
		config := defaultConfig()
		config.LLM.Provider = "ollama"
		config.LLM.Model = "llama3"
		config.LLM.BaseURL = "http://127.0.0.1:11434"
		_, err := getModelClient(&config)
		require.NoError(t, err)
	})

	t.Run("googleai without key", func(t *testing.T) {
		config := defaultConfig()
		config.LLM.Provider = "googleai"
		_, err := getModelClient(&config)
		require.ErrorContains(t, err, "missing Google AI API key")
	})

	t.Run("unsupported provider", func(t *testing.T) {
		config := defaultConfig()
		config.LLM.Provider = "carrier-pigeon"
		_, err := getModelClient(&config)
		require.ErrorContains(t, err, "unsupported LLM provider")
	})
}

func TestModelChoices(t *testing.T) {
	config := defaultConfig()
	config.LLM.Models = []string{"a", "b", "c"}

	config.LLM.Model = "b"
	models, current := modelChoices(&config)
	require.Equal(t, []string{"a", "b", "c"}, models)
	require.Equal(t, 1, current)

	config.LLM.Model = "z"
	models, current = modelChoices(&config)
	require.Equal(t, []string{"z", "a", "b", "c"}, models)
	require.Equal(t, 0, current)
	require.Equal(t, []string{"a", "b", "c"}, config.LLM.Models)
}
