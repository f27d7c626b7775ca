package console

import (
	"log/slog"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Renderer draws RenderPlans at the bottom of the scrollback. It remembers
// where the last frame started so the next one can overwrite it in place.
type Renderer struct {
	term  Terminal
	theme *Theme
	guard ScrollGuard

	topRow    int // -1 until drawn
	lastWidth int
	prevTotal int
	draws     int
}

func NewRenderer(t Terminal, theme *Theme, guard ScrollGuard) *Renderer {
	return &Renderer{term: t, theme: theme, guard: guard, topRow: -1}
}

// TopRow returns the screen row of the current frame, -1 if none is drawn.
func (r *Renderer) TopRow() int { return r.topRow }

func (r *Renderer) LastWidth() int { return r.lastWidth }

// Draws counts successful frames.
func (r *Renderer) Draws() int { return r.draws }

// Reset forgets the drawn frame, e.g. after the screen was cleared.
func (r *Renderer) Reset() {
	r.topRow = -1
	r.prevTotal = 0
}

func (r *Renderer) fail(phase string, err error) {
	_, _ = r.term.Write([]byte(ansi.ShowCursor))
	slog.Warn("terminal draw failed", "phase", phase, "error", err)
}

// scroll pushes the screen up by n lines from the bottom row.
func (r *Renderer) scroll(n, height int) error {
	if n <= 0 {
		return nil
	}
	seq := ansi.CursorPosition(1, height) + strings.Repeat("\n", n)
	_, err := r.term.Write([]byte(seq))
	return err
}

// place decides the frame's top row, scrolling first when it would not
// fit above the bottom edge.
func (r *Renderer) place(p RenderPlan, overwrite bool, height int) (int, error) {
	if overwrite && r.topRow >= 0 {
		if r.topRow+p.TotalRows <= height {
			return r.topRow, nil
		}
		top, blank := r.guard.Reserve(r.topRow, p.TotalRows, height)
		if err := r.scroll(blank, height); err != nil {
			return 0, err
		}
		slog.Debug("frame grew past the bottom", "blank_lines", blank, "top", top)
		return top, nil
	}

	row, err := r.term.CursorRow()
	if err != nil {
		slog.Debug("cursor position unavailable, assuming bottom row", "error", err)
		row = height - 1
	}
	top, blank := r.guard.Reserve(row, p.TotalRows, height)
	if blank == 0 {
		return top, nil
	}
	if err := r.scroll(blank, height); err != nil {
		return 0, err
	}
	if after, err := r.term.CursorRow(); err == nil {
		top = after - (p.TotalRows - 1)
		if top < 0 {
			top = 0
		}
	}
	slog.Debug("scroll guard reserved rows", "blank_lines", blank, "top", top)
	return top, nil
}

// Draw renders p. With overwrite it reuses the last top row; otherwise it
// places a fresh frame at the cursor. Terminal errors are logged and the
// frame is skipped.
func (r *Renderer) Draw(p RenderPlan, overwrite bool) {
	_, height, err := r.term.Size()
	if err != nil {
		r.fail("size", err)
		return
	}
	if height < 1 {
		height = 1
	}
	top, err := r.place(p, overwrite, height)
	if err != nil {
		r.fail("scroll", err)
		return
	}

	var b strings.Builder
	b.WriteString(ansi.HideCursor)
	clearRows := p.TotalRows
	if overwrite && r.prevTotal > clearRows {
		clearRows = r.prevTotal
	}
	for i := 0; i < clearRows && top+i < height; i++ {
		b.WriteString(ansi.CursorPosition(1, top+i+1))
		b.WriteString(ansi.EraseEntireLine)
	}
	for i, line := range r.lines(p) {
		if top+i >= height {
			break
		}
		b.WriteString(ansi.CursorPosition(1, top+i+1))
		b.WriteString(line)
	}
	cursorRow := top + p.CursorRow
	if cursorRow >= height {
		cursorRow = height - 1
	}
	b.WriteString(ansi.CursorPosition(p.CursorCol+1, cursorRow+1))
	if p.CursorVisible {
		b.WriteString(ansi.ShowCursor)
	}
	if _, err := r.term.Write([]byte(b.String())); err != nil {
		r.fail("write", err)
		return
	}
	r.topRow = top
	r.lastWidth = p.Width
	r.prevTotal = p.TotalRows
	r.draws++
}

// Clear blanks the drawn frame and leaves the cursor on its first row, so
// history written next takes the frame's place.
func (r *Renderer) Clear() {
	if r.topRow < 0 {
		return
	}
	_, height, err := r.term.Size()
	if err != nil {
		r.fail("size", err)
		return
	}
	var b strings.Builder
	for i := 0; i < r.prevTotal && r.topRow+i < height; i++ {
		b.WriteString(ansi.CursorPosition(1, r.topRow+i+1))
		b.WriteString(ansi.EraseEntireLine)
	}
	b.WriteString(ansi.CursorPosition(1, r.topRow+1))
	if _, err := r.term.Write([]byte(b.String())); err != nil {
		r.fail("clear", err)
	}
	r.Reset()
}

func (r *Renderer) lines(p RenderPlan) []string {
	w := p.Width
	t := r.theme
	out := make([]string, 0, p.TotalRows)
	if p.HasStatusLine {
		out = append(out, t.StatusLine.Render(ansi.Truncate(p.StatusLine, w, "…")))
	}
	border := t.Border.Render(strings.Repeat("─", w))
	out = append(out, border)
	if p.MenuLines != nil || p.InputRows == nil {
		for _, l := range p.MenuLines {
			out = append(out, ansi.Truncate(l, w, ""))
		}
	} else {
		for _, row := range p.VisibleInputRows() {
			var line string
			if row.Prefix != "" {
				line = t.Prompt.Render(row.Prefix)
			}
			line += t.Input.Render(row.Text)
			out = append(out, ansi.Truncate(line, w, ""))
		}
	}
	out = append(out, border)
	if len(p.CompletionRows) > 0 {
		out = append(out, renderCompletion(p.CompletionRows, w, t)...)
	} else if p.StatusBar != nil {
		out = append(out, renderStatusBar(*p.StatusBar, w, t))
	}
	return out
}

func renderCompletion(rows []CompletionRow, w int, t *Theme) []string {
	labelWidth := 0
	for _, r := range rows {
		if n := Columns(r.Label); n > labelWidth {
			labelWidth = n
		}
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		label := r.Label + strings.Repeat(" ", labelWidth-Columns(r.Label))
		var line string
		if r.Selected {
			line = t.CompletionSelected.Render("▸ " + label)
		} else {
			line = t.Completion.Render("  " + label)
		}
		if r.Description != "" {
			line += "  " + t.CompletionDesc.Render(r.Description)
		}
		out = append(out, ansi.Truncate(line, w, "…"))
	}
	return out
}

// renderStatusBar puts Left and Right at the edges. Right wins when space
// runs out; Left keeps its tail, since paths end in the interesting part.
func renderStatusBar(bar StatusBar, w int, t *Theme) string {
	right := bar.Right
	if ansi.StringWidth(right) > w {
		right = ansi.Truncate(right, w, "…")
	}
	rw := ansi.StringWidth(right)
	left := bar.Left
	maxLeft := w - rw - 1
	if maxLeft <= 0 {
		left = ""
	} else if Columns(left) > maxLeft {
		rs := []rune(left)
		for len(rs) > 0 && runeColumns(rs)+1 > maxLeft {
			rs = rs[1:]
		}
		left = "…" + string(rs)
	}
	spacing := w - Columns(left) - rw
	if spacing < 0 {
		spacing = 0
	}
	return t.StatusBarLeft.Render(left) + strings.Repeat(" ", spacing) + t.StatusBarRight.Render(right)
}
