package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Hopesy/Cade/console"
	"github.com/Hopesy/Cade/storage"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// multiHandler wraps multiple handlers and writes to all of them
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

func getLogFilePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	logDir := filepath.Join(homeDir, ".local", "share", "cade")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}
	return filepath.Join(logDir, "cade.log"), nil
}

// newLogger builds the rotating file logger, mirrored to stderr when asked.
// It becomes the slog default.
func newLogger(debug, mirrorStderr bool) (*slog.Logger, error) {
	logPath, err := getLogFilePath()
	if err != nil {
		return nil, err
	}
	logFile := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(logFile, opts)
	if mirrorStderr {
		handler = &multiHandler{handlers: []slog.Handler{handler, slog.NewTextHandler(os.Stderr, opts)}}
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

// ProvideLogger creates and returns a logger instance
func ProvideLogger() (*slog.Logger, error) {
	return newLogger(cli.Debug, false)
}

// ProvideConfig loads and returns the application configuration
func ProvideConfig(logger *slog.Logger) (*Config, error) {
	logger.Info("loading configuration")
	config, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Info("configuration loaded", "provider", config.LLM.Provider, "model", config.LLM.Model)
	return config, nil
}

// StorageParams holds parameters for storage initialization
type StorageParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Config    *Config
	Logger    *slog.Logger
}

// ProvideStorage initializes the SQLite storage database
func ProvideStorage(params StorageParams) (*storage.DB, error) {
	params.Logger.Info("initializing storage", "database_path", params.Config.Storage.DatabasePath)
	db, err := storage.InitDB(params.Config.Storage.DatabasePath)
	if err != nil {
		params.Logger.Error("failed to initialize storage", "error", err)
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	params.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			params.Logger.Info("closing storage")
			if err := db.Close(); err != nil {
				params.Logger.Error("failed to close storage", "error", err)
				return err
			}
			return nil
		},
	})
	return db, nil
}

// ProvideChatStore returns the conversation store after dropping sessions
// older than storage.session_max_age_days.
func ProvideChatStore(db *storage.DB, config *Config, logger *slog.Logger) *storage.ChatStore {
	store := storage.NewChatStore(db)
	if days := config.Storage.SessionMaxAgeDays; days > 0 {
		if err := store.CleanupOldSessions(time.Duration(days) * 24 * time.Hour); err != nil {
			logger.Warn("failed to clean up old sessions", "error", err)
		}
	}
	return store
}

// ProvideHistoryStore returns the prompt history store
func ProvideHistoryStore(db *storage.DB, config *Config) *storage.HistoryStore {
	return storage.NewHistoryStore(db, &storage.HistoryConfig{
		Enabled:    config.History.Enabled,
		MaxEntries: config.History.MaxEntries,
	})
}

// ProvideAgent builds the agent. A provider that cannot be reached leaves
// the agent without a model; the first prompt then reports the error.
func ProvideAgent(config *Config, logger *slog.Logger) *Agent {
	logger.Info("connecting to LLM", "provider", config.LLM.Provider)
	llm, err := getModelClient(config)
	if err != nil {
		logger.Warn("failed to connect to LLM, running without AI capabilities", "error", err)
		llm = nil
	}
	root := currentWorkDir()
	return NewAgent(llm, config.LLM.MaxTurns, root, availableTools(root))
}

// ProvideTerminal opens the controlling terminal in raw mode and restores
// it on stop.
func ProvideTerminal(lc fx.Lifecycle) (*console.TTY, error) {
	tty, err := console.OpenTTY()
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tty.Close()
		},
	})
	return tty, nil
}

// ProvideConsole creates the render engine on the terminal
func ProvideConsole(lc fx.Lifecycle, tty *console.TTY, config *Config) (*console.Console, error) {
	opts := config.UI.ConsoleOptions()
	opts.Commands = NewCommandRegistry().Definitions()
	opts.Banner = console.Banner{
		Title:   "Cade",
		Version: version,
		Hint:    "/help for commands · esc to interrupt · ctrl+d to quit",
	}
	con, err := console.New(tty, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create console: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			con.Close()
			return nil
		},
	})
	return con, nil
}

// HostParams holds parameters for host creation
type HostParams struct {
	fx.In
	Console *console.Console
	Agent   *Agent
	Config  *Config
	Chats   *storage.ChatStore
	Prompts *storage.HistoryStore
}

// ProvideHost creates the poll loop host
func ProvideHost(params HostParams) *Host {
	return NewHost(params.Console, params.Agent, params.Config, params.Chats, params.Prompts, currentWorkDir())
}

// newApp assembles the interactive application. Fx events go to the log
// file, never to the terminal.
func newApp(host **Host) *fx.App {
	return fx.New(
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger}
		}),
		fx.Provide(
			ProvideLogger,
			ProvideConfig,
			ProvideStorage,
			ProvideChatStore,
			ProvideHistoryStore,
			ProvideAgent,
			ProvideTerminal,
			ProvideConsole,
			ProvideHost,
		),
		fx.Populate(host),
	)
}
