package console

import (
	"strconv"
	"strings"
	"sync"
)

// fakeTerminal is an in-memory screen that understands the handful of
// sequences the renderer emits: CUP, EL, ED, cursor visibility and SGR.
// LF at the bottom row scrolls the screen up.
type fakeTerminal struct {
	mu sync.Mutex

	width, height int
	cells         [][]rune
	row, col      int
	cursorVisible bool
	scrolled      int
	raw           strings.Builder

	keys []Key

	sizeErr  error
	writeErr error
	cprErr   error
	cprCalls int
}

func newFakeTerminal(width, height int) *fakeTerminal {
	ft := &fakeTerminal{width: width, height: height, cursorVisible: true}
	ft.cells = make([][]rune, height)
	for i := range ft.cells {
		ft.cells[i] = ft.blankRow()
	}
	return ft
}

func (ft *fakeTerminal) blankRow() []rune {
	r := make([]rune, ft.width)
	for i := range r {
		r[i] = ' '
	}
	return r
}

func (ft *fakeTerminal) resize(width int) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.width = width
	for i := range ft.cells {
		row := ft.blankRow()
		copy(row, ft.cells[i])
		ft.cells[i] = row
	}
	if ft.col >= width {
		ft.col = width - 1
	}
}

func (ft *fakeTerminal) Size() (int, int, error) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.width, ft.height, ft.sizeErr
}

func (ft *fakeTerminal) CursorRow() (int, error) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.cprCalls++
	if ft.cprErr != nil {
		return 0, ft.cprErr
	}
	return ft.row, nil
}

func (ft *fakeTerminal) KeyAvailable() bool {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return len(ft.keys) > 0
}

func (ft *fakeTerminal) ReadKey() (Key, bool) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if len(ft.keys) == 0 {
		return Key{}, false
	}
	k := ft.keys[0]
	ft.keys = ft.keys[1:]
	return k, true
}

func (ft *fakeTerminal) lineFeed() {
	if ft.row == ft.height-1 {
		copy(ft.cells, ft.cells[1:])
		ft.cells[ft.height-1] = ft.blankRow()
		ft.scrolled++
		return
	}
	ft.row++
}

func (ft *fakeTerminal) put(r rune) {
	w := RuneWidth(r)
	if w == 0 {
		return
	}
	if ft.col+w > ft.width {
		ft.col = 0
		ft.lineFeed()
	}
	ft.cells[ft.row][ft.col] = r
	if w == 2 && ft.col+1 < ft.width {
		ft.cells[ft.row][ft.col+1] = 0
	}
	ft.col += w
}

func (ft *fakeTerminal) csi(params string, final byte) {
	nums := func() []int {
		var out []int
		for _, p := range strings.Split(strings.TrimPrefix(params, "?"), ";") {
			n, err := strconv.Atoi(p)
			if err != nil {
				n = 0
			}
			out = append(out, n)
		}
		return out
	}
	switch final {
	case 'H':
		n := nums()
		row, col := 1, 1
		if len(n) > 0 && n[0] > 0 {
			row = n[0]
		}
		if len(n) > 1 && n[1] > 0 {
			col = n[1]
		}
		ft.row = min(row-1, ft.height-1)
		ft.col = min(col-1, ft.width-1)
	case 'K':
		switch params {
		case "2":
			ft.cells[ft.row] = ft.blankRow()
		case "", "0":
			for i := ft.col; i < ft.width; i++ {
				ft.cells[ft.row][i] = ' '
			}
		}
	case 'J':
		if params == "2" {
			for i := range ft.cells {
				ft.cells[i] = ft.blankRow()
			}
		}
	case 'h', 'l':
		if params == "?25" {
			ft.cursorVisible = final == 'h'
		}
	}
}

func (ft *fakeTerminal) Write(p []byte) (int, error) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if ft.writeErr != nil {
		return 0, ft.writeErr
	}
	ft.raw.Write(p)
	s := []rune(string(p))
	for i := 0; i < len(s); i++ {
		r := s[i]
		switch {
		case r == 0x1b && i+1 < len(s) && s[i+1] == '[':
			j := i + 2
			for j < len(s) && (s[j] < 0x40 || s[j] > 0x7e) {
				j++
			}
			if j < len(s) {
				ft.csi(string(s[i+2:j]), byte(s[j]))
			}
			i = j
		case r == 0x1b:
			i++
		case r == '\r':
			ft.col = 0
		case r == '\n':
			ft.lineFeed()
		default:
			ft.put(r)
		}
	}
	return len(p), nil
}

func (ft *fakeTerminal) line(i int) string {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	var b strings.Builder
	for _, r := range ft.cells[i] {
		if r != 0 {
			b.WriteRune(r)
		}
	}
	return strings.TrimRight(b.String(), " ")
}

func (ft *fakeTerminal) lines() []string {
	out := make([]string, ft.height)
	for i := range out {
		out[i] = ft.line(i)
	}
	return out
}

// findRow returns the first screen row containing s, or -1.
func (ft *fakeTerminal) findRow(s string) int {
	for i, l := range ft.lines() {
		if strings.Contains(l, s) {
			return i
		}
	}
	return -1
}

func (ft *fakeTerminal) cursor() (int, int) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.row, ft.col
}

func (ft *fakeTerminal) rawOutput() string {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.raw.String()
}
