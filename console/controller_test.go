package console

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func typeString(ic *InputController, s string) {
	for _, r := range s {
		ic.Handle(RuneKey(r))
	}
}

func TestInputControllerEditing(t *testing.T) {
	ic := NewInputController(NewCompletionIndex(testCommands))
	typeString(ic, "helo")
	ic.Handle(Key{Code: KeyLeft})
	ic.Handle(RuneKey('l'))
	require.Equal(t, "hello", ic.Buffer().String())
	require.Equal(t, 4, ic.Buffer().Cursor())

	ic.Handle(Key{Code: KeyHome})
	ic.Handle(Key{Code: KeyDelete})
	require.Equal(t, "ello", ic.Buffer().String())

	ic.Handle(Key{Code: KeyEnd})
	ic.Handle(Key{Code: KeyBackspace})
	require.Equal(t, "ell", ic.Buffer().String())

	ic.Handle(Key{Code: KeyRight})
	require.Equal(t, 3, ic.Buffer().Cursor())

	ic.Handle(Key{Code: KeyCtrlU})
	require.Equal(t, "", ic.Buffer().String())
}

func TestInputControllerFiltersControlRunes(t *testing.T) {
	ic := NewInputController(NewCompletionIndex(nil))
	res := ic.Handle(RuneKey('\x07'))
	require.False(t, res.handled)
	res = ic.Handle(Key{Code: KeyRune, Rune: 'x', Alt: true})
	require.False(t, res.handled)
	require.Equal(t, 0, ic.Buffer().Len())
}

func TestInputControllerCompletionFlow(t *testing.T) {
	ci := NewCompletionIndex(testCommands)
	ic := NewInputController(ci)
	typeString(ic, "/mo")
	require.Len(t, ci.Candidates(), 2)
	require.Equal(t, 0, ci.Selected())

	ic.Handle(Key{Code: KeyDown})
	require.Equal(t, 1, ci.Selected())

	ic.Handle(Key{Code: KeyTab})
	require.Equal(t, "/move", ic.Buffer().String())
	require.Equal(t, 5, ic.Buffer().Cursor())
}

func TestInputControllerEnterSubstitutesCandidate(t *testing.T) {
	ic := NewInputController(NewCompletionIndex(testCommands))
	typeString(ic, "/mo")
	ic.Handle(Key{Code: KeyUp})
	res := ic.Handle(Key{Code: KeyEnter})
	require.True(t, res.submitted)
	require.Equal(t, "/move", res.line)
	require.Equal(t, 0, ic.Buffer().Len())
}

func TestInputControllerEnter(t *testing.T) {
	ic := NewInputController(NewCompletionIndex(testCommands))
	res := ic.Handle(Key{Code: KeyEnter})
	require.False(t, res.submitted)
	require.False(t, res.changed)

	typeString(ic, "/model gpt-4o")
	res = ic.Handle(Key{Code: KeyEnter})
	require.True(t, res.submitted)
	require.Equal(t, "/model gpt-4o", res.line)
}

func TestInputControllerTabWithoutCompletionIsUnhandled(t *testing.T) {
	ic := NewInputController(NewCompletionIndex(testCommands))
	res := ic.Handle(Key{Code: KeyTab})
	require.False(t, res.handled)
	res = ic.Handle(Key{Code: KeyEscape})
	require.False(t, res.handled)
}

func TestInputControllerHistoryNavigation(t *testing.T) {
	ic := NewInputController(NewCompletionIndex(testCommands))
	ic.LoadHistory([]string{"first", "second"})
	typeString(ic, "draft")

	ic.Handle(Key{Code: KeyUp})
	require.Equal(t, "second", ic.Buffer().String())
	ic.Handle(Key{Code: KeyUp})
	require.Equal(t, "first", ic.Buffer().String())
	ic.Handle(Key{Code: KeyUp})
	require.Equal(t, "first", ic.Buffer().String())
	ic.Handle(Key{Code: KeyDown})
	require.Equal(t, "second", ic.Buffer().String())
	ic.Handle(Key{Code: KeyDown})
	require.Equal(t, "draft", ic.Buffer().String())

	res := ic.Handle(Key{Code: KeyDown})
	require.False(t, res.changed)

	ic.Buffer().Clear()
	typeString(ic, "third")
	ic.Handle(Key{Code: KeyEnter})
	ic.Handle(Key{Code: KeyUp})
	require.Equal(t, "third", ic.Buffer().String())
}
