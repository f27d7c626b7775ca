package console

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type menuKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Choose key.Binding
	Cancel key.Binding
}

var menuKeys = menuKeyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k", "shift+tab"), key.WithHelp("↑/k", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j", "tab"), key.WithHelp("↓/j", "down")),
	Choose: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	Cancel: key.NewBinding(key.WithKeys("esc", "ctrl+c", "q"), key.WithHelp("esc", "cancel")),
}

// menuModel is the selection list shown in place of the input box. It is a
// bubbletea model, but the console feeds it keys itself instead of running
// a tea.Program.
type menuModel struct {
	title       string
	description string
	options     []string
	cursor      int
	width       int

	chosen    string
	done      bool
	cancelled bool
	theme     *Theme
}

func newMenuModel(title, description string, options []string, current int, theme *Theme) menuModel {
	if current < 0 || current >= len(options) {
		current = 0
	}
	return menuModel{
		title:       title,
		description: description,
		options:     options,
		cursor:      current,
		theme:       theme,
	}
}

func (m menuModel) Init() tea.Cmd { return nil }

func (m menuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, menuKeys.Up):
			if len(m.options) > 0 {
				m.cursor = (m.cursor - 1 + len(m.options)) % len(m.options)
			}
		case key.Matches(msg, menuKeys.Down):
			if len(m.options) > 0 {
				m.cursor = (m.cursor + 1) % len(m.options)
			}
		case key.Matches(msg, menuKeys.Choose):
			if len(m.options) == 0 {
				m.cancelled = true
				return m, tea.Quit
			}
			m.chosen = m.options[m.cursor]
			m.done = true
			return m, tea.Quit
		case key.Matches(msg, menuKeys.Cancel):
			m.cancelled = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m menuModel) View() string {
	theme := m.theme
	if theme == nil {
		theme = NewTheme()
	}
	var b strings.Builder
	b.WriteString(theme.MenuTitle.Render(m.title))
	if m.description != "" {
		b.WriteString("\n")
		b.WriteString(theme.Dim.Render(m.description))
	}
	for i, opt := range m.options {
		b.WriteString("\n")
		if i == m.cursor {
			b.WriteString(theme.MenuSelected.Render("▸ " + opt))
		} else {
			b.WriteString(theme.MenuItem.Render("  " + opt))
		}
	}
	b.WriteString("\n")
	b.WriteString(theme.Dim.Render("↑/↓ move · enter select · esc cancel"))
	return b.String()
}

func (m menuModel) lines() []string {
	return strings.Split(m.View(), "\n")
}

func (m menuModel) finished() bool { return m.done || m.cancelled }

func teaWindowSize(width int) tea.WindowSizeMsg {
	return tea.WindowSizeMsg{Width: width}
}
