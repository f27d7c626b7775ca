package console

import (
	"strconv"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
)

// KeyCode identifies a decoded key press.
type KeyCode int

const (
	KeyRune KeyCode = iota
	KeyEnter
	KeyTab
	KeyShiftTab
	KeyBackspace
	KeyDelete
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyHome
	KeyEnd
	KeyEscape
	KeyCtrlA
	KeyCtrlC
	KeyCtrlD
	KeyCtrlE
	KeyCtrlU
	KeyUnknown
)

var keyNames = map[KeyCode]string{
	KeyEnter:     "enter",
	KeyTab:       "tab",
	KeyShiftTab:  "shift+tab",
	KeyBackspace: "backspace",
	KeyDelete:    "delete",
	KeyLeft:      "left",
	KeyRight:     "right",
	KeyUp:        "up",
	KeyDown:      "down",
	KeyHome:      "home",
	KeyEnd:       "end",
	KeyEscape:    "esc",
	KeyCtrlA:     "ctrl+a",
	KeyCtrlC:     "ctrl+c",
	KeyCtrlD:     "ctrl+d",
	KeyCtrlE:     "ctrl+e",
	KeyCtrlU:     "ctrl+u",
	KeyUnknown:   "unknown",
}

// Key is one key press read from the terminal.
type Key struct {
	Code KeyCode
	Rune rune
	Alt  bool
}

// RuneKey builds the key for a typed character.
func RuneKey(r rune) Key { return Key{Code: KeyRune, Rune: r} }

// String names the key the way key bindings spell it, e.g. "enter",
// "ctrl+c", "alt+x" or the character itself.
func (k Key) String() string {
	var s string
	if k.Code == KeyRune {
		s = string(k.Rune)
	} else {
		s = keyNames[k.Code]
	}
	if k.Alt {
		return "alt+" + s
	}
	return s
}

// teaKey converts k for the bubbletea selection menu.
func (k Key) teaKey() tea.KeyMsg {
	var msg tea.KeyMsg
	switch k.Code {
	case KeyRune:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{k.Rune}}
	case KeyEnter:
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case KeyTab:
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case KeyShiftTab:
		msg = tea.KeyMsg{Type: tea.KeyShiftTab}
	case KeyBackspace:
		msg = tea.KeyMsg{Type: tea.KeyBackspace}
	case KeyDelete:
		msg = tea.KeyMsg{Type: tea.KeyDelete}
	case KeyLeft:
		msg = tea.KeyMsg{Type: tea.KeyLeft}
	case KeyRight:
		msg = tea.KeyMsg{Type: tea.KeyRight}
	case KeyUp:
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case KeyDown:
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case KeyHome:
		msg = tea.KeyMsg{Type: tea.KeyHome}
	case KeyEnd:
		msg = tea.KeyMsg{Type: tea.KeyEnd}
	case KeyEscape:
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case KeyCtrlC:
		msg = tea.KeyMsg{Type: tea.KeyCtrlC}
	case KeyCtrlD:
		msg = tea.KeyMsg{Type: tea.KeyCtrlD}
	default:
		msg = tea.KeyMsg{Type: tea.KeyNull}
	}
	msg.Alt = k.Alt
	return msg
}

// keyDecoder turns raw terminal input into keys and cursor position
// reports. Bytes of an incomplete escape sequence are held until the next
// chunk arrives.
type keyDecoder struct {
	pending []byte
}

// feed decodes chunk. A lone ESC at the end of a chunk is the Escape key.
func (d *keyDecoder) feed(chunk []byte) (keys []Key, reports [][2]int) {
	buf := append(d.pending, chunk...)
	d.pending = nil
	i := 0
	for i < len(buf) {
		b := buf[i]
		switch {
		case b == 0x1b:
			if i+1 >= len(buf) {
				keys = append(keys, Key{Code: KeyEscape})
				i++
				continue
			}
			n, k, rep, ok, complete := decodeEscape(buf[i:])
			if !complete {
				d.pending = append([]byte(nil), buf[i:]...)
				return keys, reports
			}
			if rep != nil {
				reports = append(reports, *rep)
			} else if ok {
				keys = append(keys, k)
			}
			i += n
		case b == '\r' || b == '\n':
			keys = append(keys, Key{Code: KeyEnter})
			i++
			if b == '\r' && i < len(buf) && buf[i] == '\n' {
				i++
			}
		case b == '\t':
			keys = append(keys, Key{Code: KeyTab})
			i++
		case b == 0x7f || b == 0x08:
			keys = append(keys, Key{Code: KeyBackspace})
			i++
		case b == 0x01:
			keys = append(keys, Key{Code: KeyCtrlA})
			i++
		case b == 0x03:
			keys = append(keys, Key{Code: KeyCtrlC})
			i++
		case b == 0x04:
			keys = append(keys, Key{Code: KeyCtrlD})
			i++
		case b == 0x05:
			keys = append(keys, Key{Code: KeyCtrlE})
			i++
		case b == 0x15:
			keys = append(keys, Key{Code: KeyCtrlU})
			i++
		case b < 0x20:
			keys = append(keys, Key{Code: KeyUnknown})
			i++
		default:
			if !utf8.FullRune(buf[i:]) {
				d.pending = append([]byte(nil), buf[i:]...)
				return keys, reports
			}
			r, size := utf8.DecodeRune(buf[i:])
			keys = append(keys, RuneKey(r))
			i += size
		}
	}
	return keys, reports
}

// decodeEscape decodes the sequence at the start of b (b[0] is ESC).
// complete is false when more bytes are needed.
func decodeEscape(b []byte) (n int, k Key, report *[2]int, ok, complete bool) {
	switch b[1] {
	case '[':
		return decodeCSI(b)
	case 'O':
		if len(b) < 3 {
			return 0, Key{}, nil, false, false
		}
		switch b[2] {
		case 'A':
			return 3, Key{Code: KeyUp}, nil, true, true
		case 'B':
			return 3, Key{Code: KeyDown}, nil, true, true
		case 'C':
			return 3, Key{Code: KeyRight}, nil, true, true
		case 'D':
			return 3, Key{Code: KeyLeft}, nil, true, true
		case 'H':
			return 3, Key{Code: KeyHome}, nil, true, true
		case 'F':
			return 3, Key{Code: KeyEnd}, nil, true, true
		}
		return 3, Key{Code: KeyUnknown}, nil, true, true
	case 0x1b:
		return 1, Key{Code: KeyEscape}, nil, true, true
	}
	if !utf8.FullRune(b[1:]) {
		return 0, Key{}, nil, false, false
	}
	r, size := utf8.DecodeRune(b[1:])
	if r < 0x20 || r == 0x7f {
		return 1, Key{Code: KeyEscape}, nil, true, true
	}
	return 1 + size, Key{Code: KeyRune, Rune: r, Alt: true}, nil, true, true
}

func decodeCSI(b []byte) (n int, k Key, report *[2]int, ok, complete bool) {
	// parameters and intermediates run until a final byte in 0x40..0x7e
	end := -1
	for j := 2; j < len(b); j++ {
		if b[j] >= 0x40 && b[j] <= 0x7e {
			end = j
			break
		}
	}
	if end < 0 {
		return 0, Key{}, nil, false, false
	}
	params := string(b[2:end])
	n = end + 1
	switch b[end] {
	case 'A':
		return n, Key{Code: KeyUp}, nil, true, true
	case 'B':
		return n, Key{Code: KeyDown}, nil, true, true
	case 'C':
		return n, Key{Code: KeyRight}, nil, true, true
	case 'D':
		return n, Key{Code: KeyLeft}, nil, true, true
	case 'H':
		return n, Key{Code: KeyHome}, nil, true, true
	case 'F':
		return n, Key{Code: KeyEnd}, nil, true, true
	case 'Z':
		return n, Key{Code: KeyShiftTab}, nil, true, true
	case 'R':
		if row, col, parsed := parsePair(params); parsed {
			return n, Key{}, &[2]int{row, col}, false, true
		}
	case '~':
		switch params {
		case "1", "7":
			return n, Key{Code: KeyHome}, nil, true, true
		case "4", "8":
			return n, Key{Code: KeyEnd}, nil, true, true
		case "3":
			return n, Key{Code: KeyDelete}, nil, true, true
		}
	}
	return n, Key{Code: KeyUnknown}, nil, true, true
}

func parsePair(s string) (a, b int, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != ';' {
			continue
		}
		x, err1 := strconv.Atoi(s[:i])
		y, err2 := strconv.Atoi(s[i+1:])
		if err1 != nil || err2 != nil {
			return 0, 0, false
		}
		return x, y, true
	}
	return 0, 0, false
}
