package console

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/stretchr/testify/require"
)

func openTestTTY(t *testing.T) (*os.File, *TTY) {
	t.Helper()
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	t.Cleanup(func() {
		ptmx.Close()
		tty.Close()
	})
	require.NoError(t, pty.Setsize(ptmx, &pty.Winsize{Rows: 24, Cols: 100}))
	term, err := NewTTY(tty, tty)
	require.NoError(t, err)
	t.Cleanup(func() { term.Close() })
	return ptmx, term
}

func TestNewTTYRejectsPipes(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()
	_, err = NewTTY(r, w)
	require.ErrorIs(t, err, ErrNoTerminal)
}

func TestTTYSize(t *testing.T) {
	_, term := openTestTTY(t)
	w, h, err := term.Size()
	require.NoError(t, err)
	require.Equal(t, 100, w)
	require.Equal(t, 24, h)
}

func TestTTYCursorRow(t *testing.T) {
	ptmx, term := openTestTTY(t)
	go func() {
		buf := make([]byte, 64)
		n, _ := ptmx.Read(buf)
		if bytes.Contains(buf[:n], []byte(requestCursorPosition)) {
			ptmx.Write([]byte("\x1b[7;1R"))
		}
	}()
	row, err := term.CursorRow()
	require.NoError(t, err)
	require.Equal(t, 6, row)
}

func TestTTYCursorRowTimesOut(t *testing.T) {
	ptmx, term := openTestTTY(t)
	go func() {
		buf := make([]byte, 64)
		ptmx.Read(buf)
	}()
	_, err := term.CursorRow()
	require.ErrorIs(t, err, ErrNoCursorReport)
}

func TestTTYReadsKeys(t *testing.T) {
	ptmx, term := openTestTTY(t)
	_, err := ptmx.Write([]byte("hi\x1b[A\x7f"))
	require.NoError(t, err)

	var got []string
	require.Eventually(t, func() bool {
		for term.KeyAvailable() {
			k, ok := term.ReadKey()
			if ok {
				got = append(got, k.String())
			}
		}
		return len(got) >= 4
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, []string{"h", "i", "up", "backspace"}, got)

	_, ok := term.ReadKey()
	require.False(t, ok)
}
