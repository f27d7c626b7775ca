package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Hopesy/Cade/console"
	"github.com/Hopesy/Cade/storage"
	"github.com/charmbracelet/x/ansi"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
	"github.com/tidwall/gjson"
	"github.com/tmc/langchaingo/llms"
)

const (
	summaryMaxColumns = 60
	summaryFallback   = "AI reply"
	cancelledText     = "Task cancelled."
	cancelledHeader   = "⚠ cancelled"
)

// request is one in-flight prompt. end guards the single "processing
// ended" transition shared by completion and cancellation. The settings it
// runs with are copied at submit time; the background goroutine never reads
// the shared Config.
type request struct {
	ctx    context.Context
	cancel context.CancelFunc
	end    sync.Once

	provider      string
	model         string
	showReasoning bool

	// guarded by Host.mu
	ended     bool
	cancelled bool
	announce  bool
}

// Host drives the console from a poll loop and runs prompts against the
// agent in the background.
type Host struct {
	con      *console.Console
	agent    *Agent
	config   *Config
	chats    *storage.ChatStore
	prompts  *storage.HistoryStore
	commands CommandRegistry
	workDir  string

	newModel      func(*Config) (llms.Model, error)
	saveConfig    func(*Config) error
	detectRelease releaseDetector

	mu      sync.Mutex
	active  *request
	session string
	quit    bool
}

// NewHost wires the console to the agent and the stores. chats and prompts
// may be nil, in which case nothing is persisted.
func NewHost(con *console.Console, agent *Agent, config *Config, chats *storage.ChatStore, prompts *storage.HistoryStore, workDir string) *Host {
	h := &Host{
		con:        con,
		agent:      agent,
		config:     config,
		chats:      chats,
		prompts:    prompts,
		commands:   NewCommandRegistry(),
		workDir:    workDir,
		newModel:      getModelClient,
		saveConfig:    SaveConfig,
		detectRelease: selfupdate.DetectLatest,
	}
	h.loadPromptHistory()
	return h
}

func (h *Host) loadPromptHistory() {
	if h.prompts == nil {
		return
	}
	entries, err := h.prompts.LoadPromptHistory(h.workDir, h.config.History.MaxEntries)
	if err != nil {
		slog.Warn("failed to load prompt history", "error", err)
		return
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.Content
	}
	h.con.LoadHistory(lines)
}

// Run shows the welcome screen and polls until the user exits or ctx is
// done.
func (h *Host) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h.con.ShowWelcome()
	if h.config.Update.Check && h.detectRelease != nil {
		go h.announceUpdate(ctx)
	}
	ticker := time.NewTicker(h.config.UI.PollInterval())
	defer ticker.Stop()

	for !h.stopped() {
		h.poll(ctx)
		select {
		case <-ctx.Done():
			h.cancelRequest(false)
			return nil
		case <-ticker.C:
		}
	}
	h.cancelRequest(false)
	return nil
}

// announceUpdate posts a notice when a newer release exists. Failures are
// only logged.
func (h *Host) announceUpdate(ctx context.Context) {
	latest, newer, err := checkForUpdates(ctx, version, h.detectRelease)
	if err != nil {
		slog.Debug("update check failed", "error", err)
		return
	}
	if !newer || ctx.Err() != nil {
		return
	}
	slog.Info("update available", "current", version, "latest", latest)
	h.con.ShowLog(updateNotice(latest, version))
}

// poll is one loop iteration: drain keys, refresh the status bar, tick.
func (h *Host) poll(ctx context.Context) {
	for h.con.KeyAvailable() {
		k, ok := h.con.ReadKey()
		if !ok {
			break
		}
		h.handleKey(ctx, k)
	}
	h.con.SetStatus(displayPath(h.workDir), statusModelLabel(h.config.LLM.Provider, h.config.LLM.Model), h.config.LLM.ShowReasoning)
	h.con.Update()
}

func (h *Host) handleKey(ctx context.Context, k console.Key) {
	if h.con.MenuActive() {
		h.con.HandleKeyPress(k)
		return
	}
	switch k.Code {
	case console.KeyEscape:
		if h.cancelRequest(true) {
			return
		}
	case console.KeyCtrlC:
		switch {
		case h.cancelRequest(true):
		case h.con.CurrentInput() != "":
			h.con.ClearInput()
		default:
			h.stop()
		}
		return
	case console.KeyCtrlD:
		if h.con.CurrentInput() == "" {
			h.stop()
			return
		}
	case console.KeyTab:
		if h.con.CurrentInput() == "" {
			h.toggleThink()
			return
		}
	}

	line, submitted := h.con.HandleKeyPress(k)
	if !submitted {
		return
	}
	if strings.HasPrefix(line, "/") {
		h.dispatch(line)
		return
	}
	h.submit(ctx, line)
}

func (h *Host) stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.quit = true
}

func (h *Host) stopped() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.quit
}

func (h *Host) toggleThink() {
	h.config.LLM.ShowReasoning = !h.config.LLM.ShowReasoning
	if err := h.saveConfig(h.config); err != nil {
		slog.Warn("failed to save config", "error", err)
	}
}

func (h *Host) dispatch(line string) {
	fields := strings.Fields(line)
	name := fields[0]
	if def, ok := h.con.LookupCommand(name); ok {
		name = def.Name
	}
	cmd, ok := h.commands.GetCommand(name)
	if !ok {
		h.con.ShowError("unknown command: " + fields[0])
		return
	}
	cmd.Handler(h, fields[1:])
}

// running reports whether a prompt is in flight.
func (h *Host) running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active != nil
}

// submit starts a background request for prompt.
func (h *Host) submit(ctx context.Context, prompt string) {
	if h.running() {
		h.con.ShowError("a request is already running, press esc to interrupt it")
		return
	}
	h.recordPrompt(prompt)

	h.con.SetProcessing(true, "Thinking...")
	reqCtx, cancel := context.WithCancel(ctx)
	req := &request{
		ctx:           reqCtx,
		cancel:        cancel,
		provider:      h.config.LLM.Provider,
		model:         h.config.LLM.Model,
		showReasoning: h.config.LLM.ShowReasoning,
	}
	h.mu.Lock()
	h.active = req
	h.mu.Unlock()

	go h.run(req, prompt)
}

func (h *Host) run(req *request, prompt string) {
	defer req.cancel()
	h.persist(req, storage.MessageUser, prompt, "")

	emit := guardedEmitter{ctx: req.ctx, out: h.con}
	obs := &requestObserver{host: h, req: req}
	reply, err := h.agent.Ask(req.ctx, prompt, obs)
	h.finish(req, func() {
		if err != nil {
			slog.Error("request failed", "error", err)
			emit.ShowError(fmt.Sprintf("request failed: %v", err))
			return
		}
		if reply.Reasoning != "" {
			h.persist(req, storage.MessageReasoning, reply.Reasoning, "")
			if req.showReasoning {
				emit.ShowReasoning(reply.Reasoning)
			}
		}
		h.persist(req, storage.MessageAssistant, reply.Content, "")
		emit.ShowResponse(RemoveFirstLine(reply.Content), ExtractSummary(reply.Content))
	})
}

// finish ends req exactly once: the spinner stops, then either the
// cancelled notice or then runs, and the host is free for the next prompt.
// Cancelled versus completed is decided once, under h.mu.
func (h *Host) finish(req *request, then func()) {
	req.end.Do(func() {
		h.mu.Lock()
		req.ended = true
		cancelled, announce := req.cancelled, req.announce
		h.mu.Unlock()

		h.con.SetProcessing(false, "")
		switch {
		case cancelled && announce:
			h.con.ShowResponse(cancelledText, cancelledHeader)
		case !cancelled && then != nil:
			then()
		}

		h.mu.Lock()
		if h.active == req {
			h.active = nil
		}
		h.mu.Unlock()
	})
}

// cancelRequest interrupts the request in flight, if any. announce prints
// the cancelled notice. A request that already started finishing is left
// alone and reported as not cancelled.
func (h *Host) cancelRequest(announce bool) bool {
	h.mu.Lock()
	req := h.active
	if req == nil || req.ended || req.cancelled {
		h.mu.Unlock()
		return false
	}
	req.cancelled = true
	req.announce = announce
	h.mu.Unlock()

	req.cancel()
	h.finish(req, nil)
	return true
}

// whileLive runs fn only if req has neither finished nor been cancelled,
// holding h.mu so finish cannot interleave. fn must not take h.mu.
func (h *Host) whileLive(req *request, fn func()) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if req.ended || req.cancelled {
		return false
	}
	fn()
	return true
}

func (h *Host) recordPrompt(prompt string) {
	if h.prompts == nil {
		return
	}
	if err := h.prompts.AppendPrompt(h.workDir, prompt); err != nil {
		slog.Warn("failed to save prompt history", "error", err)
	}
}

// sessionID returns the stored session for the working directory,
// creating it on first use.
func (h *Host) sessionID(provider, model string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session != "" {
		return h.session, nil
	}
	s, err := h.chats.GetOrCreateSession(h.workDir, provider, model)
	if err != nil {
		return "", err
	}
	h.session = s.ID
	return s.ID, nil
}

func (h *Host) resetSession(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session = id
}

// persist stores a message of the current request. Messages of a
// cancelled request are dropped.
func (h *Host) persist(req *request, typ storage.MessageType, content, tool string) {
	if h.chats == nil || req.ctx.Err() != nil {
		return
	}
	h.mu.Lock()
	dropped := req.cancelled
	h.mu.Unlock()
	if dropped {
		return
	}
	id, err := h.sessionID(req.provider, req.model)
	if err != nil {
		slog.Warn("failed to open chat session", "error", err)
		return
	}
	if _, err := h.chats.AddMessage(id, typ, content, req.model, tool); err != nil {
		slog.Warn("failed to save message", "type", typ, "error", err)
	}
}

// guardedEmitter drops output once its request is cancelled.
type guardedEmitter struct {
	ctx context.Context
	out console.HistoryEmitter
}

func (g guardedEmitter) live() bool { return g.ctx.Err() == nil }

func (g guardedEmitter) ShowResponse(content, header string) {
	if g.live() {
		g.out.ShowResponse(content, header)
	}
}

func (g guardedEmitter) ShowToolLog(name, args, output string) {
	if g.live() {
		g.out.ShowToolLog(name, args, output)
	}
}

func (g guardedEmitter) ShowToolCall(name, args, output string, elapsed time.Duration) {
	if g.live() {
		g.out.ShowToolCall(name, args, output, elapsed)
	}
}

func (g guardedEmitter) ShowReasoning(text string) {
	if g.live() {
		g.out.ShowReasoning(text)
	}
}

func (g guardedEmitter) ShowError(message string) {
	if g.live() {
		g.out.ShowError(message)
	}
}

func (g guardedEmitter) ShowLog(message string) {
	if g.live() {
		g.out.ShowLog(message)
	}
}

// toolRecord is the stored form of a tool call, replayed by /continue.
type toolRecord struct {
	Args      string `json:"args"`
	Output    string `json:"output"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

func encodeToolRecord(args, output string, elapsed time.Duration) string {
	data, err := json.Marshal(toolRecord{Args: args, Output: output, ElapsedMs: elapsed.Milliseconds()})
	if err != nil {
		return output
	}
	return string(data)
}

// decodeToolRecord reads a stored tool call. Content that is not a record
// is shown as plain output.
func decodeToolRecord(content string) (args, output string, elapsed time.Duration) {
	if !gjson.Valid(content) {
		return "", content, 0
	}
	r := gjson.Parse(content)
	if !r.IsObject() {
		return "", content, 0
	}
	return r.Get("args").String(), r.Get("output").String(), time.Duration(r.Get("elapsed_ms").Int()) * time.Millisecond
}

// requestObserver shows the tool calls of one request. Calls arriving
// after the request finished or was cancelled are ignored.
type requestObserver struct {
	host *Host
	req  *request
}

func (o *requestObserver) ToolStarted(name, args string) {
	label := fmt.Sprintf("● %s(%s)", name, toolArgsSummary(args))
	o.host.whileLive(o.req, func() {
		o.host.con.SetProcessing(true, label)
	})
}

func (o *requestObserver) ToolFinished(name, args, output string, elapsed time.Duration, err error) {
	if err != nil {
		output = "Error: " + err.Error()
	}
	summary := toolArgsSummary(args)
	o.host.persist(o.req, storage.MessageToolCall, encodeToolRecord(summary, output, elapsed), name)
	o.host.whileLive(o.req, func() {
		o.host.con.ShowToolCall(name, summary, output, elapsed)
		o.host.con.SetProcessing(true, "Thinking...")
	})
}

// ExtractSummary turns the first line of a reply into a status-line
// summary: markdown markers removed, capped at 60 columns.
func ExtractSummary(content string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(content), "\n")
	line = strings.TrimSpace(strings.TrimLeft(line, "#"))
	for _, marker := range []string{"**", "__", "`", "*"} {
		line = strings.ReplaceAll(line, marker, "")
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return summaryFallback
	}
	if console.Columns(line) > summaryMaxColumns {
		line = ansi.Truncate(line, summaryMaxColumns, "...")
	}
	return line
}

// RemoveFirstLine drops the summary line of a reply.
func RemoveFirstLine(content string) string {
	_, rest, _ := strings.Cut(strings.TrimSpace(content), "\n")
	return strings.TrimSpace(rest)
}

// replaySession restores the stored session for the working directory into
// the agent and prints it again.
func (h *Host) replaySession() (int, error) {
	if h.chats == nil {
		return 0, storage.ErrSessionNotFound
	}
	s, err := h.chats.GetSessionByWorkDir(h.workDir)
	if err != nil {
		return 0, err
	}
	msgs, err := h.chats.Messages(s.ID)
	if err != nil {
		return 0, err
	}
	h.resetSession(s.ID)
	h.agent.RestoreHistory(msgs)

	started := s.CreatedAt.Local().Format("2006-01-02 15:04")
	h.con.ShowLog(fmt.Sprintf("── conversation from %s ──", started))

	for _, m := range msgs {
		switch m.Type {
		case storage.MessageUser:
			h.con.RenderUserMessage(m.Content)
		case storage.MessageToolCall:
			args, output, elapsed := decodeToolRecord(m.Content)
			h.con.ShowToolCall(m.Tool, args, output, elapsed)
		case storage.MessageReasoning:
			if h.config.LLM.ShowReasoning {
				h.con.ShowReasoning(m.Content)
			}
		case storage.MessageAssistant:
			h.con.ShowResponse(RemoveFirstLine(m.Content), ExtractSummary(m.Content))
		}
	}
	return len(msgs), nil
}

func currentWorkDir() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
