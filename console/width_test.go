package console

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRuneWidth(t *testing.T) {
	tests := []struct {
		name string
		r    rune
		want int
	}{
		{"ascii", 'a', 1},
		{"latin accent", 'é', 1},
		{"cjk ideograph", '你', 2},
		{"hangul syllable", '한', 2},
		{"hiragana", 'か', 2},
		{"katakana", 'カ', 2},
		{"cjk punctuation", '。', 2},
		{"fullwidth latin", 'Ａ', 2},
		{"halfwidth katakana", 'ｶ', 1},
		{"box drawing", '─', 1},
		{"control", '\x07', 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, RuneWidth(tt.r))
		})
	}
}

func TestColumns(t *testing.T) {
	require.Equal(t, 0, Columns(""))
	require.Equal(t, 5, Columns("hello"))
	require.Equal(t, 4, Columns("你好"))
	require.Equal(t, 7, Columns(PromptPrefix+"你好"))
	require.Equal(t, 6, Columns("a한b글"))
}

func TestCursorColumnsIncrementalMatchesScratch(t *testing.T) {
	inputs := []string{"", "abc", "你好 world", "mixed한글カナ and ascii", "ＡＢＣ123"}
	for _, in := range inputs {
		var b InputBuffer
		running := 0
		for _, r := range in {
			b.Insert(r)
			running += RuneWidth(r)
			require.Equal(t, running, b.CursorColumns(), "input %q", in)
		}
		runes := []rune(in)
		for c := 0; c <= len(runes); c++ {
			b.MoveTo(c)
			require.Equal(t, Columns(string(runes[:c])), b.CursorColumns(), "input %q cursor %d", in, c)
		}
	}
}
