package console

// DefaultScrollCeiling bounds the blank lines one reservation may emit.
const DefaultScrollCeiling = 20

// ScrollGuard decides how far the screen must scroll so a frame of
// totalRows fits above the bottom edge.
type ScrollGuard struct {
	Ceiling int
}

// Reserve returns the top row for a frame drawn from cursorRow and the
// number of blank lines to emit first. It never writes to the screen.
func (g ScrollGuard) Reserve(cursorRow, totalRows, height int) (topRow, blankLines int) {
	if cursorRow < 0 {
		cursorRow = 0
	}
	if cursorRow+totalRows <= height {
		return cursorRow, 0
	}
	ceiling := g.Ceiling
	if ceiling <= 0 {
		ceiling = DefaultScrollCeiling
	}
	blankLines = cursorRow + totalRows - height
	if blankLines > ceiling {
		blankLines = ceiling
	}
	topRow = height - totalRows
	if topRow < 0 {
		topRow = 0
	}
	return topRow, blankLines
}
