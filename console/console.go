// Package console is a scrollback-preserving terminal front end: a live
// bottom area (status line, input box, completion list or status bar)
// redrawn in place below a growing history of output blocks.
package console

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

var (
	ErrInvalidWidth  = errors.New("terminal width must be positive")
	ErrInvalidOption = errors.New("invalid console option")
)

// DefaultMaxInputRows caps the input box height.
const DefaultMaxInputRows = 5

// Banner is the static header printed by ShowWelcome.
type Banner struct {
	Title   string
	Version string
	Hint    string
}

type Options struct {
	MaxInputRows    int
	ScrollCeiling   int
	SpinnerInterval time.Duration
	PulseInterval   time.Duration
	PulseDuration   time.Duration
	Markdown        bool
	MarkdownStyle   string
	Commands        []CommandDefinition
	Theme           *Theme
	Banner          Banner
	Now             func() time.Time
}

func (o *Options) applyDefaults() error {
	if o.MaxInputRows < 0 || o.ScrollCeiling < 0 || o.SpinnerInterval < 0 || o.PulseInterval < 0 || o.PulseDuration < 0 {
		return ErrInvalidOption
	}
	if o.MaxInputRows == 0 {
		o.MaxInputRows = DefaultMaxInputRows
	}
	if o.ScrollCeiling == 0 {
		o.ScrollCeiling = DefaultScrollCeiling
	}
	if o.SpinnerInterval == 0 {
		o.SpinnerInterval = DefaultSpinnerInterval
	}
	if o.PulseInterval == 0 {
		o.PulseInterval = DefaultPulseInterval
	}
	if o.PulseDuration == 0 {
		o.PulseDuration = DefaultPulseDuration
	}
	if o.MarkdownStyle == "" {
		o.MarkdownStyle = "dark"
	}
	if o.Theme == nil {
		o.Theme = NewTheme()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return nil
}

// HistoryEmitter posts blocks above the bottom area. Background producers
// are handed this instead of the whole Console.
type HistoryEmitter interface {
	ShowResponse(content, header string)
	ShowToolLog(name, args, output string)
	ShowToolCall(name, args, output string, elapsed time.Duration)
	ShowReasoning(text string)
	ShowError(message string)
	ShowLog(message string)
}

// Console owns the terminal. Every screen mutation goes through one mutex
// that is held for the whole clear, emit, redraw sequence.
type Console struct {
	mu sync.Mutex

	term     Terminal
	opts     Options
	theme    *Theme
	now      func() time.Time
	width    int
	welcomed bool

	completion *CompletionIndex
	input      *InputController
	history    HistoryLog
	processing ProcessingState
	clock      *AnimationClock
	renderer   *Renderer
	format     *formatter

	status      StatusBar
	statusPath  string
	statusModel string
	statusThink bool

	menu     *menuModel
	menuDone func(choice string, ok bool)
}

var _ HistoryEmitter = (*Console)(nil)

// New builds a console over t. It fails on invalid options or when the
// terminal reports a non-positive width.
func New(t Terminal, opts Options) (*Console, error) {
	if err := opts.applyDefaults(); err != nil {
		return nil, err
	}
	w, _, err := t.Size()
	if err != nil {
		return nil, fmt.Errorf("failed to read terminal size: %w", err)
	}
	if w <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWidth, w)
	}
	completion := NewCompletionIndex(opts.Commands)
	return &Console{
		term:       t,
		opts:       opts,
		theme:      opts.Theme,
		now:        opts.Now,
		width:      w,
		completion: completion,
		input:      NewInputController(completion),
		clock:      NewAnimationClock(opts.SpinnerInterval, opts.PulseInterval, opts.PulseDuration),
		renderer:   NewRenderer(t, opts.Theme, ScrollGuard{Ceiling: opts.ScrollCeiling}),
		format:     &formatter{theme: opts.Theme, markdown: opts.Markdown, style: opts.MarkdownStyle},
	}, nil
}

func (c *Console) write(s string) {
	if _, err := c.term.Write([]byte(s)); err != nil {
		_, _ = c.term.Write([]byte(ansi.ShowCursor))
		slog.Warn("terminal write failed", "error", err)
	}
}

func (c *Console) layoutInput() LayoutInput {
	in := LayoutInput{
		Width:        c.width,
		MaxInputRows: c.opts.MaxInputRows,
		StatusBar:    c.status,
	}
	in.StatusLine, in.ShowStatusLine = c.clock.StatusLine(c.processing, c.now())
	if c.menu != nil {
		in.Mode = ModeMenu
		in.MenuLines = c.menu.lines()
		return in
	}
	buf := c.input.Buffer()
	in.Runes = buf.Runes()
	in.Cursor = buf.Cursor()
	in.Candidates = c.completion.Candidates()
	in.Selected = c.completion.Selected()
	return in
}

// redrawLocked draws the bottom area, switching to resize recovery when
// the terminal width changed since the last frame.
func (c *Console) redrawLocked(overwrite bool) {
	if w, _, err := c.term.Size(); err == nil && w > 0 && w != c.width {
		c.resizeLocked(w)
		return
	}
	c.renderer.Draw(Plan(c.layoutInput()), overwrite)
}

// resizeLocked clears the screen, replays the banner and every history
// block at the new width, then draws a fresh bottom area.
func (c *Console) resizeLocked(width int) {
	slog.Debug("terminal resized", "from", c.width, "to", width, "history", c.history.Len())
	c.width = width
	c.renderer.Reset()
	var b strings.Builder
	b.WriteString(ansi.EraseEntireScreen)
	b.WriteString(ansi.CursorPosition(1, 1))
	if c.welcomed {
		b.WriteString(c.bannerText())
	}
	for _, item := range c.history.Items() {
		b.WriteString(c.format.format(item, width))
	}
	c.write(rawNewlines(b.String()))
	c.renderer.Draw(Plan(c.layoutInput()), false)
}

// emitLocked is the SafeRender sequence: clear the bottom area, write the
// block into scrollback, draw the bottom area below it.
func (c *Console) emitLocked(item HistoryItem) {
	c.renderer.Clear()
	c.history.Append(item)
	c.write(rawNewlines(c.format.format(item, c.width)))
	c.redrawLocked(false)
}

// SafeRender runs emit between clearing and redrawing the bottom area,
// under the console lock. emit writes raw text; it is not recorded for
// resize replay.
func (c *Console) SafeRender(emit func(w func(string))) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderer.Clear()
	if emit != nil {
		emit(func(s string) { c.write(rawNewlines(s)) })
	}
	c.redrawLocked(false)
}

func (c *Console) bannerText() string {
	bn := c.opts.Banner
	title := c.theme.Banner.Render("✻ " + bn.Title)
	if bn.Version != "" {
		title += c.theme.Dim.Render(" v" + bn.Version)
	}
	body := title
	if bn.Hint != "" {
		body += "\n" + c.theme.Dim.Render(bn.Hint)
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#F4DB53")).
		Padding(0, 1).
		Render(body)
	lines := strings.Split(box, "\n")
	for i, l := range lines {
		lines[i] = ansi.Truncate(l, c.width, "")
	}
	return strings.Join(lines, "\n") + "\n\n"
}

// ShowWelcome clears the screen, prints the banner and the first frame.
func (c *Console) ShowWelcome() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if w, _, err := c.term.Size(); err == nil && w > 0 {
		c.width = w
	}
	c.welcomed = true
	c.renderer.Reset()
	c.write(ansi.EraseEntireScreen + ansi.CursorPosition(1, 1) + rawNewlines(c.bannerText()))
	c.redrawLocked(false)
}

func (c *Console) KeyAvailable() bool {
	return c.term.KeyAvailable()
}

// ReadKey returns the next pending key without blocking.
func (c *Console) ReadKey() (Key, bool) {
	return c.term.ReadKey()
}

// HandleKeyPress applies k and returns the submitted line, if any. A
// submission is echoed into history and redraws the bottom area once.
func (c *Console) HandleKeyPress(k Key) (string, bool) {
	c.mu.Lock()
	if c.menu != nil {
		updated, _ := c.menu.Update(k.teaKey())
		m := updated.(menuModel)
		if !m.finished() {
			c.menu = &m
			c.redrawLocked(true)
			c.mu.Unlock()
			return "", false
		}
		done := c.menuDone
		c.menu, c.menuDone = nil, nil
		c.redrawLocked(true)
		c.mu.Unlock()
		if done != nil {
			done(m.chosen, m.done)
		}
		return "", false
	}
	defer c.mu.Unlock()

	res := c.input.Handle(k)
	switch {
	case res.submitted:
		c.emitLocked(HistoryItem{Kind: HistoryUser, Text: res.line})
		return res.line, true
	case res.changed:
		c.redrawLocked(true)
	}
	return "", false
}

// SetProcessing starts or stops the spinner status line. Each call redraws
// exactly once.
func (c *Console) SetProcessing(active bool, title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if active {
		if title == "" {
			title = "Thinking..."
		}
		if !c.processing.Active {
			c.processing.StartedAt = now
			c.processing.Frame = 0
		}
		c.processing.Active = true
		c.processing.Title = title
		c.clock.StopPulse()
		c.clock.ResetSpinner(now)
	} else {
		c.processing.Active = false
	}
	c.redrawLocked(true)
}

// IsProcessing reports whether the spinner is active.
func (c *Console) IsProcessing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.processing.Active
}

// SetStatus sets the status bar; it redraws only when something changed.
func (c *Console) SetStatus(path, modelID string, showThink bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if path == c.statusPath && modelID == c.statusModel && showThink == c.statusThink {
		return
	}
	c.statusPath, c.statusModel, c.statusThink = path, modelID, showThink
	right := modelID
	if showThink {
		right += " · think"
	}
	c.status = StatusBar{Left: path, Right: right}
	c.redrawLocked(true)
}

// ShowResponse emits a reply. A non-empty header is printed above the
// body and pulses in the status line for a moment.
func (c *Console) ShowResponse(content, header string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if header != "" {
		c.clock.StartPulse(header, c.now())
	}
	c.emitLocked(HistoryItem{Kind: HistoryResponse, Text: content, Header: header})
}

func (c *Console) ShowToolLog(name, args, output string) {
	c.ShowToolCall(name, args, output, 0)
}

// ShowToolCall emits a finished tool call with its duration.
func (c *Console) ShowToolCall(name, args, output string, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emitLocked(HistoryItem{Kind: HistoryToolCall, Text: FormatToolCall(name, args, output, elapsed)})
}

func (c *Console) ShowError(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emitLocked(HistoryItem{Kind: HistoryError, Text: message})
}

func (c *Console) ShowLog(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emitLocked(HistoryItem{Kind: HistoryLogLine, Text: message})
}

// ShowReasoning emits the model's thinking text.
func (c *Console) ShowReasoning(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emitLocked(HistoryItem{Kind: HistoryReasoning, Text: text})
}

// RenderUserMessage echoes a user turn that did not come from the input
// box, e.g. when a stored conversation is replayed.
func (c *Console) RenderUserMessage(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emitLocked(HistoryItem{Kind: HistoryUser, Text: text})
}

// ShowSelectionMenu replaces the input box with a list of options until
// one is chosen or the menu is cancelled. onDone runs without the console
// lock held.
func (c *Console) ShowSelectionMenu(title, description string, options []string, current int, onDone func(choice string, ok bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := newMenuModel(title, description, options, current, c.theme)
	updated, _ := m.Update(teaWindowSize(c.width))
	m = updated.(menuModel)
	c.menu = &m
	c.menuDone = onDone
	c.redrawLocked(true)
}

// MenuActive reports whether a selection menu has the keyboard.
func (c *Console) MenuActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.menu != nil
}

// Update advances animations and detects resizes. The poll loop calls it
// once per iteration.
func (c *Console) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if w, _, err := c.term.Size(); err == nil && w > 0 && w != c.width {
		c.resizeLocked(w)
		return
	}
	if c.clock.Tick(c.now(), &c.processing) {
		c.redrawLocked(true)
	}
}

// CurrentInput returns the text in the input box.
func (c *Console) CurrentInput() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input.Buffer().String()
}

// ClearInput empties the input box.
func (c *Console) ClearInput() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input.Buffer().Clear()
	c.completion.Reset()
	c.redrawLocked(true)
}

// LoadHistory seeds Up/Down prompt recall, oldest first.
func (c *Console) LoadHistory(entries []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input.LoadHistory(entries)
}

// History returns the emitted blocks in order.
func (c *Console) History() []HistoryItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Items()
}

// Commands returns the registered completion commands.
func (c *Console) Commands() []CommandDefinition {
	return c.completion.Commands()
}

// LookupCommand resolves a typed command name or alias.
func (c *Console) LookupCommand(name string) (CommandDefinition, bool) {
	return c.completion.Lookup(name)
}

// Close removes the bottom area and leaves the cursor visible on a fresh
// line.
func (c *Console) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderer.Clear()
	c.write(ansi.ShowCursor)
}
