package console

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/x/ansi"
	"golang.org/x/term"
)

// requestCursorPosition asks the terminal for a CPR (ESC [ row ; col R).
const requestCursorPosition = "\x1b[6n"

// cursorReportTimeout bounds how long CursorRow waits for the report.
const cursorReportTimeout = 200 * time.Millisecond

var (
	ErrNoTerminal     = errors.New("not a terminal")
	ErrNoCursorReport = errors.New("terminal did not report cursor position")
	errTerminalClosed = errors.New("terminal closed")
)

// Terminal is the screen and keyboard the engine draws on. Rows returned
// by CursorRow are 0-based.
type Terminal interface {
	io.Writer
	Size() (width, height int, err error)
	CursorRow() (int, error)
	KeyAvailable() bool
	ReadKey() (Key, bool)
}

// TTY is a Terminal over a real tty in raw mode. A reader goroutine decodes
// input into keys and routes cursor position reports to CursorRow.
type TTY struct {
	in    *os.File
	out   *os.File
	state *term.State

	keys    chan Key
	reports chan [2]int
	done    chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// OpenTTY puts stdin in raw mode and starts reading keys.
func OpenTTY() (*TTY, error) {
	return NewTTY(os.Stdin, os.Stdout)
}

// NewTTY wraps in and out. in must be a terminal.
func NewTTY(in, out *os.File) (*TTY, error) {
	if !term.IsTerminal(int(in.Fd())) {
		return nil, ErrNoTerminal
	}
	state, err := term.MakeRaw(int(in.Fd()))
	if err != nil {
		return nil, fmt.Errorf("failed to enter raw mode: %w", err)
	}
	t := &TTY{
		in:      in,
		out:     out,
		state:   state,
		keys:    make(chan Key, 256),
		reports: make(chan [2]int, 4),
		done:    make(chan struct{}),
	}
	go t.readLoop()
	return t, nil
}

func (t *TTY) readLoop() {
	var dec keyDecoder
	buf := make([]byte, 512)
	for {
		n, err := t.in.Read(buf)
		if n > 0 {
			keys, reports := dec.feed(buf[:n])
			for _, rep := range reports {
				select {
				case t.reports <- rep:
				default:
				}
			}
			for _, k := range keys {
				select {
				case t.keys <- k:
				case <-t.done:
					return
				}
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Debug("terminal read stopped", "error", err)
			}
			return
		}
	}
}

func (t *TTY) Write(p []byte) (int, error) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.out.Write(p)
}

func (t *TTY) Size() (int, int, error) {
	return term.GetSize(int(t.out.Fd()))
}

// CursorRow queries the terminal with DSR and waits for the report.
func (t *TTY) CursorRow() (int, error) {
drain:
	for {
		select {
		case <-t.reports:
		default:
			break drain
		}
	}
	if _, err := t.Write([]byte(requestCursorPosition)); err != nil {
		return 0, err
	}
	select {
	case rep := <-t.reports:
		return rep[0] - 1, nil
	case <-t.done:
		return 0, errTerminalClosed
	case <-time.After(cursorReportTimeout):
		return 0, ErrNoCursorReport
	}
}

func (t *TTY) KeyAvailable() bool {
	return len(t.keys) > 0
}

func (t *TTY) ReadKey() (Key, bool) {
	select {
	case k := <-t.keys:
		return k, true
	default:
		return Key{}, false
	}
}

// Close shows the cursor and restores the terminal mode.
func (t *TTY) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		_, _ = t.Write([]byte(ansi.ShowCursor))
		err = term.Restore(int(t.in.Fd()), t.state)
	})
	return err
}
