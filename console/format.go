package console

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
)

const (
	toolOutputMaxLines = 10
	toolOutputMaxChars = 500
	toolOutputBranch   = "╰─ "
)

// FormatToolLog renders a tool execution as a header line followed by at
// most ten lines of output.
func FormatToolLog(name, args, output string) string {
	return FormatToolCall(name, args, output, 0)
}

// FormatToolCall is FormatToolLog with the call duration appended to the
// header. A zero elapsed is omitted.
func FormatToolCall(name, args, output string, elapsed time.Duration) string {
	var b strings.Builder
	b.WriteString("● ")
	b.WriteString(name)
	b.WriteString("(")
	b.WriteString(args)
	b.WriteString(")")
	if elapsed > 0 {
		fmt.Fprintf(&b, " (%.1fs)", elapsed.Seconds())
	}

	output = strings.TrimRight(output, "\n")
	if output == "" {
		return b.String()
	}
	truncated := false
	if r := []rune(output); len(r) > toolOutputMaxChars {
		output = string(r[:toolOutputMaxChars])
		truncated = true
	}
	lines := strings.Split(output, "\n")
	if len(lines) > toolOutputMaxLines {
		lines = lines[:toolOutputMaxLines]
		truncated = true
	}
	if truncated {
		lines = append(lines, "...")
	}
	indent := strings.Repeat(" ", 2+Columns(toolOutputBranch))
	for i, line := range lines {
		b.WriteString("\n")
		if i == 0 {
			b.WriteString("  " + toolOutputBranch)
		} else {
			b.WriteString(indent)
		}
		b.WriteString(line)
	}
	return b.String()
}

// formatter turns history items into terminal text. The same formatter
// serves the original emit and the replay after a resize.
type formatter struct {
	theme    *Theme
	markdown bool
	style    string

	mdWidth int
	md      *glamour.TermRenderer
}

func wrapText(s string, w int) string {
	if w < 1 {
		w = 1
	}
	return wrap.String(wordwrap.String(s, w), w)
}

func (f *formatter) renderMarkdown(text string, width int) string {
	if !f.markdown {
		return wrapText(text, width)
	}
	if f.md == nil || f.mdWidth != width {
		wrapAt := width - 4
		if wrapAt < 10 {
			wrapAt = width
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(f.style),
			glamour.WithWordWrap(wrapAt),
		)
		if err != nil {
			slog.Warn("markdown renderer unavailable", "error", err)
			return wrapText(text, width)
		}
		f.md, f.mdWidth = r, width
	}
	out, err := f.md.Render(text)
	if err != nil {
		slog.Warn("markdown render failed", "error", err)
		return wrapText(text, width)
	}
	return strings.Trim(out, "\n")
}

func styleLines(s string, render func(...string) string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = render(l)
	}
	return strings.Join(lines, "\n")
}

// format returns the block for item at width columns, ending in a newline.
func (f *formatter) format(item HistoryItem, width int) string {
	var out string
	switch item.Kind {
	case HistoryUser:
		body := wrapText(item.Text, width-2)
		lines := strings.Split(body, "\n")
		for i, l := range lines {
			if i == 0 {
				lines[i] = f.theme.User.Render("> " + l)
			} else {
				lines[i] = f.theme.User.Render("  " + l)
			}
		}
		out = strings.Join(lines, "\n") + "\n"
	case HistoryResponse:
		var b strings.Builder
		if item.Header != "" {
			b.WriteString(f.theme.ResponseHeader.Render(ansi.Truncate("● "+item.Header, width, "…")))
			b.WriteString("\n")
		}
		if body := strings.TrimSpace(item.Text); body != "" {
			b.WriteString(f.renderMarkdown(body, width))
			b.WriteString("\n")
		}
		out = b.String() + "\n"
	case HistoryToolCall:
		lines := strings.Split(item.Text, "\n")
		for i, l := range lines {
			l = ansi.Truncate(l, width, "…")
			if i == 0 {
				lines[i] = f.theme.ToolHeader.Render(l)
			} else {
				lines[i] = f.theme.ToolOutput.Render(l)
			}
		}
		out = strings.Join(lines, "\n") + "\n"
	case HistoryError:
		out = styleLines(wrapText("✗ "+item.Text, width), f.theme.Error.Render) + "\n"
	case HistoryLogLine:
		out = styleLines(wrapText(item.Text, width), f.theme.Log.Render) + "\n"
	case HistoryReasoning:
		out = styleLines(wrapText("💭 "+item.Text, width), f.theme.Reasoning.Render) + "\n"
	default:
		out = wrapText(item.Text, width) + "\n"
	}
	return out
}

// rawNewlines converts line feeds for a terminal in raw mode, where LF does
// not return the carriage.
func rawNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "\r\n")
}
