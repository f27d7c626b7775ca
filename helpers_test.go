package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Hopesy/Cade/console"
	"github.com/Hopesy/Cade/storage"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// stubTerminal is a console.Terminal that records output and serves keys
// from a queue.
type stubTerminal struct {
	mu   sync.Mutex
	out  strings.Builder
	keys []console.Key
}

func (s *stubTerminal) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Write(p)
}

func (s *stubTerminal) Size() (int, int, error) { return 80, 24, nil }

func (s *stubTerminal) CursorRow() (int, error) { return 23, nil }

func (s *stubTerminal) KeyAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys) > 0
}

func (s *stubTerminal) ReadKey() (console.Key, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.keys) == 0 {
		return console.Key{}, false
	}
	k := s.keys[0]
	s.keys = s.keys[1:]
	return k, true
}

func (s *stubTerminal) push(keys ...console.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, keys...)
}

func (s *stubTerminal) typeText(text string) {
	for _, r := range text {
		s.push(console.RuneKey(r))
	}
}

// scriptedModel replays canned choices, one per GenerateContent call.
type scriptedModel struct {
	mu      sync.Mutex
	choices []*llms.ContentChoice
	err     error
	calls   [][]llms.MessageContent
	block   bool
	// gate, when set, holds every call until it is closed
	gate chan struct{}
}

func (m *scriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, append([]llms.MessageContent(nil), messages...))
	block, gate := m.block, m.gate
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if len(m.choices) == 0 {
		return nil, fmt.Errorf("script exhausted")
	}
	c := m.choices[0]
	m.choices = m.choices[1:]
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{c}}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func (m *scriptedModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func textChoice(content string) *llms.ContentChoice {
	return &llms.ContentChoice{Content: content}
}

func toolChoice(id, name, args string) *llms.ContentChoice {
	return &llms.ContentChoice{
		ToolCalls: []llms.ToolCall{{
			ID:           id,
			Type:         "function",
			FunctionCall: &llms.FunctionCall{Name: name, Arguments: args},
		}},
	}
}

func fixedNow() time.Time {
	return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
}

type testHost struct {
	*Host
	term  *stubTerminal
	model *scriptedModel
	db    *storage.DB
	saved int
}

// newTestHost builds a host on a stub terminal with a temp database.
func newTestHost(t *testing.T, model *scriptedModel) *testHost {
	t.Helper()

	db, err := storage.InitDB(filepath.Join(t.TempDir(), "cade.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	term := &stubTerminal{}
	con, err := console.New(term, console.Options{Commands: NewCommandRegistry().Definitions()})
	require.NoError(t, err)

	config := defaultConfig()
	config.LLM.Provider = "fake"
	config.LLM.Model = "gpt-4o-mini"

	root := t.TempDir()
	agent := NewAgent(model, 5, root, []Tool{GetTimeTool{now: fixedNow}, ReadFileTool{root: root}})

	th := &testHost{term: term, model: model, db: db}
	th.Host = NewHost(con, agent, &config, storage.NewChatStore(db), storage.NewHistoryStore(db, nil), root)
	th.saveConfig = func(*Config) error {
		th.saved++
		return nil
	}
	th.newModel = func(*Config) (llms.Model, error) { return model, nil }
	th.detectRelease = func(string) (*selfupdate.Release, bool, error) { return nil, false, nil }
	return th
}

// drain runs poll iterations until the key queue is empty.
func (th *testHost) drain(t *testing.T) {
	t.Helper()
	for i := 0; i < 1000 && th.term.KeyAvailable(); i++ {
		th.poll(context.Background())
	}
}

func (th *testHost) items(kind console.HistoryKind) []console.HistoryItem {
	var out []console.HistoryItem
	for _, it := range th.con.History() {
		if it.Kind == kind {
			out = append(out, it)
		}
	}
	return out
}

func (th *testHost) waitIdle(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		return !th.running() && !th.con.IsProcessing()
	}, 2*time.Second, 5*time.Millisecond)
}
