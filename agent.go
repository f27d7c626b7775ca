package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Hopesy/Cade/storage"
	"github.com/tmc/langchaingo/llms"
)

const (
	thinkingStart = "<thinking>"
	thinkingEnd   = "</thinking>"
)

// ToolObserver is told about every tool call the agent makes.
type ToolObserver interface {
	ToolStarted(name, args string)
	ToolFinished(name, args, output string, elapsed time.Duration, err error)
}

// Reply is the outcome of one Ask.
type Reply struct {
	Content   string
	Reasoning string
	Turns     int
}

// Agent runs the model/tool loop and keeps the conversation.
type Agent struct {
	mu       sync.Mutex
	llm      llms.Model
	maxTurns int
	toolDefs []llms.Tool
	catalog  map[string]Tool
	messages []llms.MessageContent
	now      func() time.Time
}

// NewAgent creates an agent working in root with the given tools.
func NewAgent(llm llms.Model, maxTurns int, root string, toolset []Tool) *Agent {
	if maxTurns <= 0 {
		maxTurns = 20
	}
	defs, catalog := buildLLMTools(toolset)
	a := &Agent{
		llm:      llm,
		maxTurns: maxTurns,
		toolDefs: defs,
		catalog:  catalog,
		now:      time.Now,
	}
	a.messages = []llms.MessageContent{systemMessage(root)}
	return a
}

func systemMessage(root string) llms.MessageContent {
	prompt := fmt.Sprintf(`You are Cade, a coding assistant running in a terminal.
The working directory is %s. File tools only reach files inside it.
Answer in markdown. Start every answer with a one line summary.
When you reason before answering, wrap that reasoning in %s ... %s.`, root, thinkingStart, thinkingEnd)
	return llms.TextParts(llms.ChatMessageTypeSystem, prompt)
}

// SetModel swaps the model client, keeping the conversation.
func (a *Agent) SetModel(llm llms.Model) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.llm = llm
}

// HasModel reports whether a model client is configured.
func (a *Agent) HasModel() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.llm != nil
}

// ClearHistory forgets the conversation, keeping the system prompt.
func (a *Agent) ClearHistory() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = a.messages[:1]
}

// HistoryLen returns the number of messages after the system prompt.
func (a *Agent) HistoryLen() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.messages) - 1
}

// RestoreHistory replaces the conversation with the user and assistant
// turns of a stored session. Tool calls and reasoning are display-only.
func (a *Agent) RestoreHistory(msgs []storage.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = a.messages[:1]
	for _, m := range msgs {
		switch m.Type {
		case storage.MessageUser:
			a.messages = append(a.messages, llms.TextParts(llms.ChatMessageTypeHuman, m.Content))
		case storage.MessageAssistant:
			a.messages = append(a.messages, llms.TextParts(llms.ChatMessageTypeAI, m.Content))
		}
	}
}

// Ask sends prompt and loops through tool calls until the model answers
// without one or max turns is reached. On error the conversation is rolled
// back to before the prompt.
func (a *Agent) Ask(ctx context.Context, prompt string, obs ToolObserver) (Reply, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.llm == nil {
		return Reply{}, fmt.Errorf("no model configured")
	}

	snapshot := len(a.messages)
	a.messages = append(a.messages, llms.TextParts(llms.ChatMessageTypeHuman, prompt))

	var reasoning []string
	var final string
	for turn := 1; turn <= a.maxTurns; turn++ {
		choice, err := a.generate(ctx)
		if err != nil {
			a.messages = a.messages[:snapshot]
			if ctx.Err() != nil {
				return Reply{}, ctx.Err()
			}
			return Reply{}, err
		}

		thinking, text := extractThinkingContent(choice.Content)
		if thinking != "" {
			reasoning = append(reasoning, thinking)
		}
		if strings.TrimSpace(text) != "" {
			final = text
		}
		a.appendAssistant(choice.Content, choice.ToolCalls)

		if len(choice.ToolCalls) == 0 {
			return Reply{Content: final, Reasoning: strings.Join(reasoning, "\n\n"), Turns: turn}, nil
		}
		if err := a.runTools(ctx, choice.ToolCalls, obs); err != nil {
			a.messages = a.messages[:snapshot]
			return Reply{}, err
		}
	}

	slog.Warn("agent stopped at max turns", "max_turns", a.maxTurns)
	return Reply{
		Content:   fmt.Sprintf("%s\n\nStopped after %d turns.", final, a.maxTurns),
		Reasoning: strings.Join(reasoning, "\n\n"),
		Turns:     a.maxTurns,
	}, nil
}

func (a *Agent) generate(ctx context.Context) (*llms.ContentChoice, error) {
	var opts []llms.CallOption
	if len(a.toolDefs) > 0 {
		opts = append(opts, llms.WithTools(a.toolDefs))
	}
	resp, err := a.llm.GenerateContent(ctx, a.messages, opts...)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response choices")
	}
	return resp.Choices[0], nil
}

func (a *Agent) appendAssistant(content string, calls []llms.ToolCall) {
	var parts []llms.ContentPart
	if strings.TrimSpace(content) != "" {
		parts = append(parts, llms.TextPart(content))
	}
	for _, tc := range calls {
		parts = append(parts, llms.ToolCall{ID: tc.ID, Type: tc.Type, FunctionCall: tc.FunctionCall})
	}
	if len(parts) > 0 {
		a.messages = append(a.messages, llms.MessageContent{Role: llms.ChatMessageTypeAI, Parts: parts})
	}
}

func (a *Agent) runTools(ctx context.Context, calls []llms.ToolCall, obs ToolObserver) error {
	for _, tc := range calls {
		if tc.FunctionCall == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		name, args := tc.FunctionCall.Name, tc.FunctionCall.Arguments

		var out string
		var callErr error
		start := a.now()
		if obs != nil {
			obs.ToolStarted(name, args)
		}
		if tool, ok := a.catalog[name]; ok {
			out, callErr = tool.Call(ctx, args)
		} else {
			callErr = fmt.Errorf("unknown tool %q", name)
		}
		if obs != nil {
			obs.ToolFinished(name, args, out, a.now().Sub(start), callErr)
		}
		slog.Debug("tool called", "tool", name, "args", args, "error", callErr)

		content := out
		if callErr != nil {
			content = "Error: " + callErr.Error()
		}
		a.messages = append(a.messages, llms.MessageContent{
			Role:  llms.ChatMessageTypeTool,
			Parts: []llms.ContentPart{llms.ToolCallResponse{ToolCallID: tc.ID, Name: name, Content: content}},
		})
	}
	return nil
}

// extractThinkingContent splits a <thinking> block out of a reply.
func extractThinkingContent(message string) (thinking, regular string) {
	start := strings.Index(message, thinkingStart)
	if start == -1 {
		return "", message
	}
	end := strings.Index(message[start:], thinkingEnd)
	if end == -1 {
		return "", message
	}
	end += start

	thinking = strings.TrimSpace(message[start+len(thinkingStart) : end])
	before := strings.TrimSpace(message[:start])
	after := strings.TrimSpace(message[end+len(thinkingEnd):])
	switch {
	case before != "" && after != "":
		regular = before + "\n\n" + after
	case before != "":
		regular = before
	default:
		regular = after
	}
	return thinking, regular
}
