package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Hopesy/Cade/console"
	koanftoml "github.com/knadh/koanf/parsers/toml/v2"
	koanfenv "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
)

const envPrefix = "CADE_"

// Config represents the application configuration structure
type Config struct {
	Storage StorageConfig `koanf:"storage"`
	UI      UIConfig      `koanf:"ui"`
	LLM     LLMConfig     `koanf:"llm"`
	History HistoryConfig `koanf:"history"`
	Update  UpdateConfig  `koanf:"update"`
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	DatabasePath      string `koanf:"database_path"`
	SessionMaxAgeDays int    `koanf:"session_max_age_days"`
}

// UIConfig holds the render engine and poll loop settings
type UIConfig struct {
	MaxInputRows    int    `koanf:"max_input_rows"`
	ScrollCeiling   int    `koanf:"scroll_ceiling"`
	SpinnerMs       int    `koanf:"spinner_ms"`
	PulseMs         int    `koanf:"pulse_ms"`
	PulseDurationMs int    `koanf:"pulse_duration_ms"`
	PollMs          int    `koanf:"poll_ms"`
	Markdown        bool   `koanf:"markdown"`
	MarkdownStyle   string `koanf:"markdown_style"`
}

// LLMConfig holds LLM configuration
type LLMConfig struct {
	Provider      string   `koanf:"provider"`
	Model         string   `koanf:"model"`
	APIKey        string   `koanf:"api_key"`
	BaseURL       string   `koanf:"base_url"`
	MaxTurns      int      `koanf:"max_turns"`
	ShowReasoning bool     `koanf:"show_reasoning"`
	Models        []string `koanf:"models"`
}

// HistoryConfig holds persistent prompt history configuration
type HistoryConfig struct {
	Enabled    bool `koanf:"enabled"`
	MaxEntries int  `koanf:"max_entries"`
}

// UpdateConfig controls the startup release check
type UpdateConfig struct {
	Check bool `koanf:"check"`
}

// defaultConfig returns the configuration populated with sensible defaults.
func defaultConfig() Config {
	homeDir, _ := os.UserHomeDir()
	return Config{
		Storage: StorageConfig{
			DatabasePath:      filepath.Join(homeDir, ".local", "share", "cade", "cade.sqlite"),
			SessionMaxAgeDays: 30,
		},
		UI: UIConfig{
			MaxInputRows:    console.DefaultMaxInputRows,
			ScrollCeiling:   console.DefaultScrollCeiling,
			SpinnerMs:       100,
			PulseMs:         150,
			PulseDurationMs: 2000,
			PollMs:          10,
			Markdown:        true,
			MarkdownStyle:   "dark",
		},
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
			MaxTurns: 20,
			Models:   []string{"gpt-4o-mini", "gpt-4o", "o3-mini"},
		},
		History: HistoryConfig{
			Enabled:    true,
			MaxEntries: 500,
		},
		Update: UpdateConfig{Check: true},
	}
}

func userConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "cade", "conf.toml"), nil
}

func projectConfigPath() string {
	return filepath.Join(".cade", "cade.toml")
}

// envKey maps CADE_UI_MAX_INPUT_ROWS to ui.max_input_rows: the first
// underscore separates the section from the key.
func envKey(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	key = strings.Replace(key, "_", ".", 1)
	return key, value
}

// LoadConfig layers defaults, the user file, the project file and CADE_*
// environment variables, in that order.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if path, err := userConfigPath(); err != nil {
		slog.Warn("failed to get user home directory", "error", err)
	} else if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), koanftoml.Parser()); err != nil {
			slog.Warn("failed to load user config", "path", path, "error", err)
		}
	}

	projectPath := projectConfigPath()
	if _, err := os.Stat(projectPath); err == nil {
		if err := k.Load(file.Provider(projectPath), koanftoml.Parser()); err != nil {
			slog.Warn("failed to load project config", "path", projectPath, "error", err)
		}
	} else if !os.IsNotExist(err) {
		slog.Warn("unable to stat project config", "path", projectPath, "error", err)
	}

	if err := k.Load(koanfenv.Provider(".", koanfenv.Opt{
		Prefix:        envPrefix,
		TransformFunc: envKey,
	}), nil); err != nil {
		slog.Warn("failed to load environment variables", "error", err)
	}

	// standard provider variables fill in a missing key
	if k.String("llm.api_key") == "" {
		var fallback string
		switch k.String("llm.provider") {
		case "openai", "":
			fallback = os.Getenv("OPENAI_API_KEY")
		case "anthropic":
			fallback = os.Getenv("ANTHROPIC_API_KEY")
		case "googleai":
			fallback = os.Getenv("GEMINI_API_KEY")
		}
		if fallback != "" {
			if err := k.Set("llm.api_key", fallback); err != nil {
				slog.Warn("failed to set API key from environment", "error", err)
			}
		}
	}

	config := defaultConfig()
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects values the console would refuse at construction.
func (c *Config) Validate() error {
	ui := c.UI
	if ui.MaxInputRows < 0 || ui.ScrollCeiling < 0 || ui.SpinnerMs < 0 || ui.PulseMs < 0 || ui.PulseDurationMs < 0 {
		return fmt.Errorf("%w: ui values must not be negative", console.ErrInvalidOption)
	}
	if ui.PollMs <= 0 {
		return fmt.Errorf("%w: ui.poll_ms must be positive", console.ErrInvalidOption)
	}
	return nil
}

// PollInterval is the host loop delay between iterations.
func (c UIConfig) PollInterval() time.Duration {
	return time.Duration(c.PollMs) * time.Millisecond
}

// ConsoleOptions translates the ui section into engine options.
func (c UIConfig) ConsoleOptions() console.Options {
	return console.Options{
		MaxInputRows:    c.MaxInputRows,
		ScrollCeiling:   c.ScrollCeiling,
		SpinnerInterval: time.Duration(c.SpinnerMs) * time.Millisecond,
		PulseInterval:   time.Duration(c.PulseMs) * time.Millisecond,
		PulseDuration:   time.Duration(c.PulseDurationMs) * time.Millisecond,
		Markdown:        c.Markdown,
		MarkdownStyle:   c.MarkdownStyle,
	}
}

// SaveConfig writes the model choice and reasoning toggle to the project
// config file, keeping everything else in it.
func SaveConfig(config *Config) error {
	path := projectConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}

	k := koanf.New(".")
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), koanftoml.Parser()); err != nil {
			return fmt.Errorf("failed to load existing project config: %w", err)
		}
	}

	updates := map[string]any{
		"llm.provider":       config.LLM.Provider,
		"llm.model":          config.LLM.Model,
		"llm.show_reasoning": config.LLM.ShowReasoning,
	}
	for key, value := range updates {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("failed to update %s in config: %w", key, err)
		}
	}

	data, err := k.Marshal(koanftoml.Parser())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
