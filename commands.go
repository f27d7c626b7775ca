package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Hopesy/Cade/console"
	"github.com/Hopesy/Cade/storage"
)

// Command represents a slash command
type Command struct {
	Name        string
	Description string
	Aliases     []string
	Handler     func(*Host, []string)
}

// CommandRegistry holds all available commands in registration order
type CommandRegistry struct {
	Commands map[string]Command
	aliases  map[string]string
	order    []string
}

// NewCommandRegistry creates the registry of built-in commands
func NewCommandRegistry() CommandRegistry {
	registry := CommandRegistry{
		Commands: make(map[string]Command),
		aliases:  make(map[string]string),
	}

	registry.RegisterCommand("/model", "Switch the AI model", handleModelCommand)
	registry.RegisterCommand("/think", "Toggle the display of model reasoning", handleThinkCommand)
	registry.RegisterCommand("/continue", "Restore the last conversation in this directory", handleContinueCommand)
	registry.RegisterCommand("/clear", "Clear the conversation (usage: /clear [history])", handleClearCommand)
	registry.RegisterCommand("/help", "Show available commands", handleHelpCommand)
	registry.RegisterCommand("/exit", "Quit the application", handleExitCommand, "/quit")

	return registry
}

// RegisterCommand registers a new command
func (cr *CommandRegistry) RegisterCommand(name, description string, handler func(*Host, []string), aliases ...string) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !strings.HasPrefix(name, "/") || len(name) < 2 {
		return
	}
	if _, exists := cr.Commands[name]; !exists {
		cr.order = append(cr.order, name)
	}
	cr.Commands[name] = Command{
		Name:        name,
		Description: description,
		Aliases:     aliases,
		Handler:     handler,
	}
	for _, alias := range aliases {
		cr.aliases[strings.ToLower(alias)] = name
	}
}

// GetCommand gets a command by name or alias
func (cr CommandRegistry) GetCommand(name string) (Command, bool) {
	name = strings.ToLower(name)
	if target, ok := cr.aliases[name]; ok {
		name = target
	}
	cmd, exists := cr.Commands[name]
	return cmd, exists
}

// GetAllCommands returns all registered commands
func (cr CommandRegistry) GetAllCommands() []Command {
	commands := make([]Command, 0, len(cr.order))
	for _, name := range cr.order {
		commands = append(commands, cr.Commands[name])
	}
	return commands
}

// Definitions returns the completion table for the console.
func (cr CommandRegistry) Definitions() []console.CommandDefinition {
	defs := make([]console.CommandDefinition, 0, len(cr.order))
	for _, cmd := range cr.GetAllCommands() {
		defs = append(defs, console.CommandDefinition{
			Name:        cmd.Name,
			Description: cmd.Description,
			Aliases:     cmd.Aliases,
		})
	}
	return defs
}

// Command handlers

func handleHelpCommand(h *Host, args []string) {
	var b strings.Builder
	b.WriteString("Available commands:")
	for _, cmd := range h.commands.GetAllCommands() {
		name := cmd.Name
		if len(cmd.Aliases) > 0 {
			name += ", " + strings.Join(cmd.Aliases, ", ")
		}
		fmt.Fprintf(&b, "\n  %-18s %s", name, cmd.Description)
	}
	b.WriteString("\n\nKeys: esc interrupts a request, tab on an empty line toggles think mode, ctrl+d quits.")
	h.con.ShowLog(b.String())
}

func handleModelCommand(h *Host, args []string) {
	if h.running() {
		h.con.ShowError("cannot switch models while a request is running")
		return
	}
	if len(args) > 0 {
		h.switchModel(args[0])
		return
	}
	models, current := modelChoices(h.config)
	if len(models) == 0 {
		h.con.ShowError("no models configured, set llm.models in the config file")
		return
	}
	h.con.ShowSelectionMenu("Select model", "Provider: "+h.config.LLM.Provider, models, current, func(choice string, ok bool) {
		if ok {
			h.switchModel(choice)
		}
	})
}

// switchModel rebuilds the client for model and persists the choice. The
// previous model stays active when the client cannot be built.
func (h *Host) switchModel(model string) {
	previous := h.config.LLM.Model
	h.config.LLM.Model = model
	llm, err := h.newModel(h.config)
	if err != nil {
		h.config.LLM.Model = previous
		h.con.ShowError(fmt.Sprintf("failed to switch model: %v", err))
		return
	}
	h.agent.SetModel(llm)
	if err := h.saveConfig(h.config); err != nil {
		slog.Warn("failed to save config", "error", err)
	}
	h.con.ShowLog("model switched to " + model)
}

func handleThinkCommand(h *Host, args []string) {
	h.toggleThink()
	state := "off"
	if h.config.LLM.ShowReasoning {
		state = "on"
	}
	h.con.ShowLog("reasoning display " + state)
}

func handleContinueCommand(h *Host, args []string) {
	if h.running() {
		h.con.ShowError("cannot restore a conversation while a request is running")
		return
	}
	n, err := h.replaySession()
	switch {
	case errors.Is(err, storage.ErrSessionNotFound):
		h.con.ShowLog("no previous conversation in this directory")
	case err != nil:
		h.con.ShowError(fmt.Sprintf("failed to restore conversation: %v", err))
	case n == 0:
		h.con.ShowLog("the previous conversation is empty")
	default:
		h.con.ShowLog(fmt.Sprintf("restored %d messages", n))
	}
}

func handleClearCommand(h *Host, args []string) {
	if h.running() {
		h.con.ShowError("cannot clear the conversation while a request is running")
		return
	}
	h.agent.ClearHistory()
	if h.chats != nil {
		if id, err := h.sessionID(h.config.LLM.Provider, h.config.LLM.Model); err != nil {
			slog.Warn("failed to open chat session", "error", err)
		} else if err := h.chats.ClearMessages(id); err != nil {
			h.con.ShowError(fmt.Sprintf("failed to clear stored messages: %v", err))
			return
		}
	}
	if len(args) > 0 && args[0] == "history" {
		if h.prompts != nil {
			if err := h.prompts.ClearPromptHistory(h.workDir); err != nil {
				h.con.ShowError(fmt.Sprintf("failed to clear prompt history: %v", err))
				return
			}
		}
		h.con.LoadHistory(nil)
		h.con.ShowLog("conversation and prompt history cleared")
		return
	}
	h.con.ShowLog("conversation cleared")
}

func handleExitCommand(h *Host, args []string) {
	h.cancelRequest(false)
	h.stop()
}
