package console

import (
	"strings"
	"unicode"
)

// keyResult tells the console what a key did to the input state.
type keyResult struct {
	handled   bool
	changed   bool
	submitted bool
	line      string
}

// InputController maps key presses to buffer and completion edits. It
// never performs I/O; a submitted line is handed back to the caller.
type InputController struct {
	buf        InputBuffer
	completion *CompletionIndex

	history        []string
	historyCursor  int
	historySaved   bool
	historyPending string
}

func NewInputController(completion *CompletionIndex) *InputController {
	return &InputController{completion: completion}
}

func (ic *InputController) Buffer() *InputBuffer { return &ic.buf }

func (ic *InputController) refreshCompletion() {
	ic.completion.Update(ic.buf.String())
}

// Handle applies k. Keys the controller does not own, such as Escape and
// Ctrl+C, come back with handled false.
func (ic *InputController) Handle(k Key) keyResult {
	switch k.Code {
	case KeyRune:
		if k.Alt || unicode.IsControl(k.Rune) {
			return keyResult{}
		}
		ic.buf.Insert(k.Rune)
		ic.refreshCompletion()
	case KeyBackspace:
		ic.buf.DeleteBefore(ic.buf.Cursor())
		ic.refreshCompletion()
	case KeyDelete:
		ic.buf.DeleteAt(ic.buf.Cursor())
		ic.refreshCompletion()
	case KeyLeft:
		ic.buf.MoveTo(ic.buf.Cursor() - 1)
	case KeyRight:
		ic.buf.MoveTo(ic.buf.Cursor() + 1)
	case KeyHome, KeyCtrlA:
		ic.buf.MoveTo(0)
	case KeyEnd, KeyCtrlE:
		ic.buf.MoveTo(ic.buf.Len())
	case KeyCtrlU:
		ic.buf.Clear()
		ic.completion.Reset()
	case KeyUp, KeyDown:
		delta := -1
		if k.Code == KeyDown {
			delta = 1
		}
		if ic.completion.Active() {
			ic.completion.Move(delta)
		} else if !ic.navigateHistory(delta) {
			return keyResult{handled: true}
		}
	case KeyTab:
		cur, ok := ic.completion.Current()
		if !ok {
			return keyResult{}
		}
		ic.buf.Set(cur.Name)
		ic.refreshCompletion()
	case KeyEnter:
		line := ic.buf.String()
		if cur, ok := ic.completion.Current(); ok {
			line = cur.Name
		}
		if strings.TrimSpace(line) == "" {
			return keyResult{handled: true}
		}
		ic.addToHistory(line)
		ic.buf.Clear()
		ic.completion.Reset()
		return keyResult{handled: true, changed: true, submitted: true, line: line}
	default:
		return keyResult{}
	}
	return keyResult{handled: true, changed: true}
}

// LoadHistory seeds prompt history, oldest first.
func (ic *InputController) LoadHistory(entries []string) {
	ic.history = append([]string(nil), entries...)
	ic.historyCursor = len(ic.history)
	ic.historySaved = false
}

func (ic *InputController) addToHistory(line string) {
	ic.historySaved = false
	if n := len(ic.history); n == 0 || ic.history[n-1] != line {
		ic.history = append(ic.history, line)
	}
	ic.historyCursor = len(ic.history)
}

// navigateHistory walks submitted lines; -1 is older. Walking past the
// newest entry restores the line that was being typed.
func (ic *InputController) navigateHistory(direction int) bool {
	if len(ic.history) == 0 {
		return false
	}
	if direction < 0 {
		if !ic.historySaved {
			ic.historyPending = ic.buf.String()
			ic.historySaved = true
		}
		if ic.historyCursor > 0 {
			ic.historyCursor--
		}
		ic.buf.Set(ic.history[ic.historyCursor])
		return true
	}
	if !ic.historySaved {
		return false
	}
	if ic.historyCursor < len(ic.history)-1 {
		ic.historyCursor++
		ic.buf.Set(ic.history[ic.historyCursor])
		return true
	}
	ic.historyCursor = len(ic.history)
	ic.buf.Set(ic.historyPending)
	ic.historySaved = false
	return true
}
