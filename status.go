package main

import (
	"os"
	"path/filepath"
	"strings"
)

// shortProviderNames abbreviates provider names for the status bar
var shortProviderNames = map[string]string{
	"anthropic": "Claude",
	"openai":    "GPT",
	"googleai":  "Gemini",
	"google":    "Gemini",
	"ollama":    "Ollama",
}

// statusModelLabel renders "Provider model" with the provider shortened and
// a redundant provider prefix or date suffix dropped from the model name.
func statusModelLabel(provider, model string) string {
	name, ok := shortProviderNames[strings.ToLower(provider)]
	if !ok {
		name = provider
	}
	m := model
	if lower := strings.ToLower(m); strings.HasPrefix(lower, "claude-") {
		m = m[len("claude-"):]
	}
	if i := strings.LastIndex(m, "-"); i >= 0 && isDateSuffix(m[i+1:]) {
		m = m[:i]
	}
	switch {
	case name == "":
		return m
	case m == "":
		return name
	}
	return name + " " + m
}

func isDateSuffix(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// displayPath abbreviates the home directory as "~".
func displayPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == home {
		return "~"
	}
	if rel, err := filepath.Rel(home, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.Join("~", rel)
	}
	return path
}
