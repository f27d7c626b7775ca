package console

// HistoryKind tags a HistoryItem.
type HistoryKind int

const (
	HistoryUser HistoryKind = iota
	HistoryResponse
	HistoryToolCall
	HistoryError
	HistoryLogLine
	HistoryReasoning
)

func (k HistoryKind) String() string {
	switch k {
	case HistoryUser:
		return "user"
	case HistoryResponse:
		return "response"
	case HistoryToolCall:
		return "tool_call"
	case HistoryError:
		return "error"
	case HistoryLogLine:
		return "log"
	case HistoryReasoning:
		return "reasoning"
	}
	return "unknown"
}

// HistoryItem is one block emitted above the bottom area. Header is only
// used by responses.
type HistoryItem struct {
	Kind   HistoryKind
	Text   string
	Header string
}

// HistoryLog records emitted blocks in order so they can be replayed after
// a resize. It is unbounded.
type HistoryLog struct {
	items []HistoryItem
}

func (h *HistoryLog) Append(item HistoryItem) {
	h.items = append(h.items, item)
}

func (h *HistoryLog) Len() int { return len(h.items) }

// Items returns a copy of the log.
func (h *HistoryLog) Items() []HistoryItem {
	out := make([]HistoryItem, len(h.items))
	copy(out, h.items)
	return out
}

func (h *HistoryLog) Reset() { h.items = nil }
