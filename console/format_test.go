package console

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormatToolLog(t *testing.T) {
	tests := []struct {
		name   string
		args   string
		output string
		want   string
	}{
		{
			name: "no output",
			args: "main.go",
			want: "● read_file(main.go)",
		},
		{
			name:   "short output",
			args:   "a, b",
			output: "line one\nline two\n",
			want:   "● grep(a, b)\n  ╰─ line one\n     line two",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := "read_file"
			if tt.output != "" {
				name = "grep"
			}
			require.Equal(t, tt.want, FormatToolLog(name, tt.args, tt.output))
		})
	}
}

func TestFormatToolLogTruncates(t *testing.T) {
	var lines []string
	for i := 0; i < 30; i++ {
		lines = append(lines, fmt.Sprintf("l%d", i))
	}
	out := strings.Split(FormatToolLog("ls", "", strings.Join(lines, "\n")), "\n")
	// header + 10 lines + ellipsis
	require.Len(t, out, 12)
	require.Equal(t, "     ...", out[11])

	long := FormatToolLog("cat", "x", strings.Repeat("z", 900))
	require.True(t, strings.HasSuffix(long, "\n     ..."))
	require.Equal(t, 500, strings.Count(long, "z"))
}

func TestFormatToolCallElapsed(t *testing.T) {
	require.Equal(t, "● get_time() (1.5s)", FormatToolCall("get_time", "", "", 1500*time.Millisecond))
	require.Equal(t, "● get_time()", FormatToolCall("get_time", "", "", 0))
}

func TestFormatterBlocks(t *testing.T) {
	f := &formatter{theme: NewTheme()}

	user := f.format(HistoryItem{Kind: HistoryUser, Text: "hello there"}, 40)
	require.Equal(t, "> hello there\n", user)

	resp := f.format(HistoryItem{Kind: HistoryResponse, Text: "body text", Header: "Summary"}, 40)
	require.Equal(t, "● Summary\nbody text\n\n", resp)

	bare := f.format(HistoryItem{Kind: HistoryResponse, Text: "only body"}, 40)
	require.Equal(t, "only body\n\n", bare)

	errBlock := f.format(HistoryItem{Kind: HistoryError, Text: "boom"}, 40)
	require.Equal(t, "✗ boom\n", errBlock)

	reasoning := f.format(HistoryItem{Kind: HistoryReasoning, Text: "pondering"}, 40)
	require.Equal(t, "💭 pondering\n", reasoning)

	wrapped := f.format(HistoryItem{Kind: HistoryLogLine, Text: strings.Repeat("w", 25)}, 10)
	for _, l := range strings.Split(strings.TrimSuffix(wrapped, "\n"), "\n") {
		require.LessOrEqual(t, Columns(l), 10)
	}
}

func TestFormatterMarkdown(t *testing.T) {
	f := &formatter{theme: NewTheme(), markdown: true, style: "notty"}
	out := f.format(HistoryItem{Kind: HistoryResponse, Text: "# Title\n\nsome **bold** text"}, 60)
	require.Contains(t, out, "Title")
	require.Contains(t, out, "bold")
	require.True(t, strings.HasSuffix(out, "\n\n"))
}

func TestRawNewlines(t *testing.T) {
	require.Equal(t, "a\r\nb\r\nc", rawNewlines("a\nb\r\nc"))
}
