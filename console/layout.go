package console

// PromptPrefix leads the first input row.
const PromptPrefix = ">> "

// Mode selects what the bottom area shows between the borders.
type Mode int

const (
	ModeInput Mode = iota
	ModeMenu
)

// InputRow is one wrapped segment of the input line.
type InputRow struct {
	Prefix  string
	Text    string
	Columns int
}

type CompletionRow struct {
	Label       string
	Description string
	Selected    bool
}

type StatusBar struct {
	Left  string
	Right string
}

// LayoutInput is everything Plan reads. Callers fill it from the live
// buffer, completion index and animation state.
type LayoutInput struct {
	Runes          []rune
	Cursor         int
	Candidates     []CommandDefinition
	Selected       int
	StatusLine     string
	ShowStatusLine bool
	StatusBar      StatusBar
	Width          int
	MaxInputRows   int
	Mode           Mode
	MenuLines      []string
}

// RenderPlan is the row-by-row shape of one bottom-area frame. Rows are
// numbered from the plan's top.
type RenderPlan struct {
	Width          int
	StatusLine     string
	HasStatusLine  bool
	InputRows      []InputRow
	InputOffset    int
	InputRowCount  int
	CompletionRows []CompletionRow
	StatusBar      *StatusBar
	MenuLines      []string
	CursorRow      int
	CursorCol      int
	CursorVisible  bool
	TotalRows      int
}

// VisibleInputRows returns the rows the input box actually shows.
func (p RenderPlan) VisibleInputRows() []InputRow {
	end := p.InputOffset + p.InputRowCount
	if end > len(p.InputRows) {
		end = len(p.InputRows)
	}
	if p.InputOffset >= end {
		return nil
	}
	return p.InputRows[p.InputOffset:end]
}

// wrapRunes lays runes out in rows of w cells, the first row starting at
// column start. A rune that does not fit in the remaining cells moves to the
// next row. It returns the rows, their widths and the cursor cell.
func wrapRunes(runes []rune, cursor, start, w int) (rows [][]rune, widths []int, curRow, curCol int) {
	row, col := 0, start
	rows = [][]rune{nil}
	widths = []int{start}
	placed := false
	for i, r := range runes {
		rw := RuneWidth(r)
		if col+rw > w && col > 0 {
			row++
			col = 0
			rows = append(rows, nil)
			widths = append(widths, 0)
		}
		if i == cursor {
			curRow, curCol, placed = row, col, true
		}
		rows[row] = append(rows[row], r)
		col += rw
		widths[row] = col
	}
	if !placed {
		curRow, curCol = row, col
		if col >= w {
			curRow, curCol = row+1, 0
		}
	}
	return rows, widths, curRow, curCol
}

// Plan maps the layout input to a RenderPlan. It has no side effects.
func Plan(in LayoutInput) RenderPlan {
	w := in.Width
	if w < 1 {
		w = 1
	}
	p := RenderPlan{Width: w, CursorVisible: in.Mode == ModeInput}

	row := 0
	if in.ShowStatusLine {
		p.StatusLine = in.StatusLine
		p.HasStatusLine = true
		row++
	}
	row++ // top border

	if in.Mode == ModeMenu {
		p.MenuLines = append([]string(nil), in.MenuLines...)
		row += len(p.MenuLines)
		p.CursorRow = row
		row++ // bottom border
		p.TotalRows = row
		return p
	}

	cursor := in.Cursor
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(in.Runes) {
		cursor = len(in.Runes)
	}
	prefixWidth := Columns(PromptPrefix)
	rows, widths, curRow, curCol := wrapRunes(in.Runes, cursor, prefixWidth, w)
	for len(rows) < curRow+1 {
		rows = append(rows, nil)
		widths = append(widths, 0)
	}
	for i, r := range rows {
		ir := InputRow{Text: string(r), Columns: widths[i]}
		if i == 0 {
			ir.Prefix = PromptPrefix
		}
		p.InputRows = append(p.InputRows, ir)
	}

	visible := len(p.InputRows)
	if in.MaxInputRows > 0 && visible > in.MaxInputRows {
		visible = in.MaxInputRows
	}
	offset := 0
	if curRow >= visible {
		offset = curRow - visible + 1
	}
	if offset > len(p.InputRows)-visible {
		offset = len(p.InputRows) - visible
	}
	p.InputOffset = offset
	p.InputRowCount = visible

	if curCol >= w {
		curCol = w - 1
	}
	p.CursorRow = row + curRow - offset
	p.CursorCol = curCol
	row += visible
	row++ // bottom border

	if len(in.Candidates) > 0 {
		for i, c := range in.Candidates {
			p.CompletionRows = append(p.CompletionRows, CompletionRow{
				Label:       c.Name,
				Description: c.Description,
				Selected:    i == in.Selected,
			})
		}
		row += len(p.CompletionRows)
	} else {
		bar := in.StatusBar
		p.StatusBar = &bar
		row++
	}
	p.TotalRows = row
	return p
}
