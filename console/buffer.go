package console

// InputBuffer is the editable line behind the input box. Every mutation
// clamps the cursor into [0, len] instead of failing.
type InputBuffer struct {
	runes  []rune
	cursor int
}

func (b *InputBuffer) clamp(i int) int {
	if i < 0 {
		return 0
	}
	if i > len(b.runes) {
		return len(b.runes)
	}
	return i
}

// InsertAt inserts r at index i and leaves the cursor just after it.
func (b *InputBuffer) InsertAt(i int, r rune) {
	i = b.clamp(i)
	b.runes = append(b.runes, 0)
	copy(b.runes[i+1:], b.runes[i:])
	b.runes[i] = r
	b.cursor = i + 1
}

// Insert inserts r at the cursor.
func (b *InputBuffer) Insert(r rune) {
	b.InsertAt(b.cursor, r)
}

// DeleteBefore removes the rune before index i (backspace). No-op at 0.
func (b *InputBuffer) DeleteBefore(i int) {
	i = b.clamp(i)
	if i == 0 {
		b.cursor = 0
		return
	}
	b.runes = append(b.runes[:i-1], b.runes[i:]...)
	b.cursor = i - 1
}

// DeleteAt removes the rune at index i (delete). No-op at the end.
func (b *InputBuffer) DeleteAt(i int) {
	i = b.clamp(i)
	b.cursor = i
	if i == len(b.runes) {
		return
	}
	b.runes = append(b.runes[:i], b.runes[i+1:]...)
}

// MoveTo places the cursor at i, clamped.
func (b *InputBuffer) MoveTo(i int) {
	b.cursor = b.clamp(i)
}

// Clear empties the buffer and resets the cursor.
func (b *InputBuffer) Clear() {
	b.runes = nil
	b.cursor = 0
}

// Set replaces the content and moves the cursor to the end.
func (b *InputBuffer) Set(s string) {
	b.runes = []rune(s)
	b.cursor = len(b.runes)
}

func (b *InputBuffer) Cursor() int { return b.cursor }

func (b *InputBuffer) Len() int { return len(b.runes) }

func (b *InputBuffer) String() string { return string(b.runes) }

// Runes returns a copy of the buffer content.
func (b *InputBuffer) Runes() []rune {
	out := make([]rune, len(b.runes))
	copy(out, b.runes)
	return out
}

// CursorColumns is the display width of the text left of the cursor.
func (b *InputBuffer) CursorColumns() int {
	return runeColumns(b.runes[:b.cursor])
}
