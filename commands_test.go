package main

import (
	"errors"
	"testing"

	"github.com/Hopesy/Cade/console"
	"github.com/Hopesy/Cade/storage"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func TestCommandRegistryOrderAndAliases(t *testing.T) {
	registry := NewCommandRegistry()

	var names []string
	for _, cmd := range registry.GetAllCommands() {
		names = append(names, cmd.Name)
	}
	require.Equal(t, []string{"/model", "/think", "/continue", "/clear", "/help", "/exit"}, names)

	tests := []struct {
		input string
		want  string
		found bool
	}{
		{"/model", "/model", true},
		{"/MODEL", "/model", true},
		{"/quit", "/exit", true},
		{"/exit", "/exit", true},
		{"/mod", "", false},
		{"/unknown", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cmd, ok := registry.GetCommand(tt.input)
			require.Equal(t, tt.found, ok)
			require.Equal(t, tt.want, cmd.Name)
		})
	}

	defs := registry.Definitions()
	require.Len(t, defs, 6)
	require.Equal(t, []string{"/quit"}, defs[5].Aliases)
}

func TestRegisterCommandRejectsBadNames(t *testing.T) {
	registry := NewCommandRegistry()
	registry.RegisterCommand("model", "no sigil", handleHelpCommand)
	registry.RegisterCommand("/", "sigil only", handleHelpCommand)
	require.Len(t, registry.GetAllCommands(), 6)
}

func TestDispatchUnknownCommand(t *testing.T) {
	th := newTestHost(t, &scriptedModel{})
	th.dispatch("/frobnicate now")

	errs := th.items(console.HistoryError)
	require.Len(t, errs, 1)
	require.Equal(t, "unknown command: /frobnicate", errs[0].Text)
}

func TestHelpCommandListsCommands(t *testing.T) {
	th := newTestHost(t, &scriptedModel{})
	th.dispatch("/help")

	logs := th.items(console.HistoryLogLine)
	require.Len(t, logs, 1)
	for _, name := range []string{"/model", "/think", "/continue", "/clear", "/help", "/exit, /quit"} {
		require.Contains(t, logs[0].Text, name)
	}
}

func TestExitAndQuit(t *testing.T) {
	for _, line := range []string{"/exit", "/quit"} {
		t.Run(line, func(t *testing.T) {
			th := newTestHost(t, &scriptedModel{})
			th.dispatch(line)
			require.True(t, th.stopped())
		})
	}
}

func TestThinkCommandToggles(t *testing.T) {
	th := newTestHost(t, &scriptedModel{})
	th.config.LLM.ShowReasoning = false

	th.dispatch("/think")
	require.True(t, th.config.LLM.ShowReasoning)
	th.dispatch("/think")
	require.False(t, th.config.LLM.ShowReasoning)
	require.Equal(t, 2, th.saved)

	logs := th.items(console.HistoryLogLine)
	require.Equal(t, "reasoning display on", logs[0].Text)
	require.Equal(t, "reasoning display off", logs[1].Text)
}

func TestModelCommandMenu(t *testing.T) {
	th := newTestHost(t, &scriptedModel{})
	th.config.LLM.Models = []string{"gpt-4o-mini", "gpt-4o", "o3-mini"}
	var built []string
	th.newModel = func(c *Config) (llms.Model, error) {
		built = append(built, c.LLM.Model)
		return th.model, nil
	}

	th.dispatch("/model")
	require.True(t, th.con.MenuActive())

	th.term.push(console.Key{Code: console.KeyDown}, console.Key{Code: console.KeyEnter})
	th.drain(t)

	require.False(t, th.con.MenuActive())
	require.Equal(t, []string{"gpt-4o"}, built)
	require.Equal(t, "gpt-4o", th.config.LLM.Model)
	require.Equal(t, 1, th.saved)
	logs := th.items(console.HistoryLogLine)
	require.Equal(t, "model switched to gpt-4o", logs[len(logs)-1].Text)
}

func TestModelCommandMenuCancel(t *testing.T) {
	th := newTestHost(t, &scriptedModel{})
	th.dispatch("/model")
	require.True(t, th.con.MenuActive())

	th.term.push(console.Key{Code: console.KeyEscape})
	th.drain(t)

	require.False(t, th.con.MenuActive())
	require.Equal(t, "gpt-4o-mini", th.config.LLM.Model)
	require.Equal(t, 0, th.saved)
}

func TestModelCommandKeepsModelOnError(t *testing.T) {
	th := newTestHost(t, &scriptedModel{})
	th.newModel = func(*Config) (llms.Model, error) { return nil, errors.New("missing key") }

	th.dispatch("/model o3-mini")

	require.Equal(t, "gpt-4o-mini", th.config.LLM.Model)
	errs := th.items(console.HistoryError)
	require.Len(t, errs, 1)
	require.Contains(t, errs[0].Text, "missing key")
}

func TestClearCommand(t *testing.T) {
	model := &scriptedModel{choices: []*llms.ContentChoice{textChoice("First answer")}}
	th := newTestHost(t, model)
	th.submit(t.Context(), "question")
	th.waitIdle(t)
	require.Equal(t, 2, th.agent.HistoryLen())

	th.dispatch("/clear")
	require.Equal(t, 0, th.agent.HistoryLen())

	session, err := th.chats.GetSessionByWorkDir(th.workDir)
	require.NoError(t, err)
	msgs, err := th.chats.Messages(session.ID)
	require.NoError(t, err)
	require.Empty(t, msgs)

	// prompt history survives a plain clear
	entries, err := th.prompts.LoadPromptHistory(th.workDir, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	th.dispatch("/clear history")
	entries, err = th.prompts.LoadPromptHistory(th.workDir, 10)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestContinueCommandReplaysSession(t *testing.T) {
	th := newTestHost(t, &scriptedModel{})
	session, err := th.chats.CreateSession(th.workDir, "fake", "gpt-4o-mini")
	require.NoError(t, err)
	add := func(typ storage.MessageType, content, tool string) {
		_, err := th.chats.AddMessage(session.ID, typ, content, "gpt-4o-mini", tool)
		require.NoError(t, err)
	}
	add(storage.MessageUser, "show main.go", "")
	add(storage.MessageToolCall, encodeToolRecord("main.go", "package main", 0), "read_file")
	add(storage.MessageReasoning, "read it first", "")
	add(storage.MessageAssistant, "Entry point\nIt starts the app.", "")
	th.config.LLM.ShowReasoning = true

	th.dispatch("/continue")

	require.Equal(t, 2, th.agent.HistoryLen())
	require.Equal(t, "show main.go", th.items(console.HistoryUser)[0].Text)
	require.Contains(t, th.items(console.HistoryToolCall)[0].Text, "● read_file(main.go)")
	require.Equal(t, "read it first", th.items(console.HistoryReasoning)[0].Text)
	resp := th.items(console.HistoryResponse)[0]
	require.Equal(t, "Entry point", resp.Header)
	require.Equal(t, "It starts the app.", resp.Text)

	logs := th.items(console.HistoryLogLine)
	require.Contains(t, logs[0].Text, "── conversation from ")
	require.Equal(t, "restored 4 messages", logs[len(logs)-1].Text)

	// new messages go to the restored session
	id, err := th.sessionID("fake", "gpt-4o-mini")
	require.NoError(t, err)
	require.Equal(t, session.ID, id)
}

func TestContinueCommandWithoutSession(t *testing.T) {
	th := newTestHost(t, &scriptedModel{})
	th.dispatch("/continue")

	logs := th.items(console.HistoryLogLine)
	require.Len(t, logs, 1)
	require.Equal(t, "no previous conversation in this directory", logs[0].Text)
}

func TestCommandsRefusedWhileRunning(t *testing.T) {
	th := newTestHost(t, &scriptedModel{block: true})
	th.submit(t.Context(), "busy")

	for _, line := range []string{"/model", "/continue", "/clear"} {
		th.dispatch(line)
	}
	require.Len(t, th.items(console.HistoryError), 3)
	require.False(t, th.con.MenuActive())

	th.cancelRequest(false)
	th.waitIdle(t)
}
