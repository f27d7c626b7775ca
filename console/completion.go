package console

import "strings"

// CommandSigil starts every command line.
const CommandSigil = "/"

// CommandDefinition describes a slash command offered for completion.
type CommandDefinition struct {
	Name        string
	Description string
	Aliases     []string
}

func normalizeCommand(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s != "" && !strings.HasPrefix(s, CommandSigil) {
		s = CommandSigil + s
	}
	return s
}

// Match reports whether input is a prefix of the command name or one of its
// aliases. A lone sigil matches nothing.
func (c CommandDefinition) Match(input string) bool {
	return c.matchName(input) || c.matchAlias(input)
}

func (c CommandDefinition) matchName(input string) bool {
	in := strings.ToLower(input)
	if !strings.HasPrefix(in, CommandSigil) || len(in) < 2 {
		return false
	}
	return strings.HasPrefix(normalizeCommand(c.Name), in)
}

func (c CommandDefinition) matchAlias(input string) bool {
	in := strings.ToLower(input)
	if !strings.HasPrefix(in, CommandSigil) || len(in) < 2 {
		return false
	}
	for _, a := range c.Aliases {
		if strings.HasPrefix(normalizeCommand(a), in) {
			return true
		}
	}
	return false
}

// ExactMatch reports whether input names this command or an alias.
func (c CommandDefinition) ExactMatch(input string) bool {
	in := normalizeCommand(input)
	if in == normalizeCommand(c.Name) {
		return true
	}
	for _, a := range c.Aliases {
		if in == normalizeCommand(a) {
			return true
		}
	}
	return false
}

// CompletionIndex ranks the registered commands against the current input
// and tracks the highlighted candidate.
type CompletionIndex struct {
	commands   []CommandDefinition
	candidates []CommandDefinition
	selected   int
}

func NewCompletionIndex(commands []CommandDefinition) *CompletionIndex {
	return &CompletionIndex{commands: commands, selected: -1}
}

// Update recomputes candidates for text. Name-prefix matches come first in
// registration order, then alias-only matches. Text containing whitespace
// is an argument list and offers no candidates.
func (ci *CompletionIndex) Update(text string) {
	ci.candidates = nil
	ci.selected = -1
	if !strings.HasPrefix(text, CommandSigil) || strings.ContainsAny(text, " \t") {
		return
	}
	for _, c := range ci.commands {
		if c.matchName(text) {
			ci.candidates = append(ci.candidates, c)
		}
	}
	for _, c := range ci.commands {
		if !c.matchName(text) && c.matchAlias(text) {
			ci.candidates = append(ci.candidates, c)
		}
	}
	if len(ci.candidates) > 0 {
		ci.selected = 0
	}
}

// Reset drops all candidates.
func (ci *CompletionIndex) Reset() {
	ci.candidates = nil
	ci.selected = -1
}

func (ci *CompletionIndex) Active() bool { return len(ci.candidates) > 0 }

func (ci *CompletionIndex) Selected() int { return ci.selected }

// Candidates returns a copy of the ranked candidates.
func (ci *CompletionIndex) Candidates() []CommandDefinition {
	out := make([]CommandDefinition, len(ci.candidates))
	copy(out, ci.candidates)
	return out
}

// Move shifts the selection by delta with wraparound.
func (ci *CompletionIndex) Move(delta int) {
	n := len(ci.candidates)
	if n == 0 {
		return
	}
	if ci.selected < 0 {
		ci.selected = 0
	}
	ci.selected = ((ci.selected+delta)%n + n) % n
}

// Current returns the selected candidate, or the first one when nothing is
// selected.
func (ci *CompletionIndex) Current() (CommandDefinition, bool) {
	if len(ci.candidates) == 0 {
		return CommandDefinition{}, false
	}
	if ci.selected < 0 || ci.selected >= len(ci.candidates) {
		return ci.candidates[0], true
	}
	return ci.candidates[ci.selected], true
}

// Lookup resolves a typed command name or alias.
func (ci *CompletionIndex) Lookup(name string) (CommandDefinition, bool) {
	for _, c := range ci.commands {
		if c.ExactMatch(name) {
			return c, true
		}
	}
	return CommandDefinition{}, false
}

// Commands returns the registered commands in registration order.
func (ci *CompletionIndex) Commands() []CommandDefinition {
	out := make([]CommandDefinition, len(ci.commands))
	copy(out, ci.commands)
	return out
}
