package storage

import "time"

// SchemaVersion is bumped whenever Schema changes shape.
const SchemaVersion = 1

// MessageType tags a stored conversation entry.
type MessageType string

const (
	MessageUser      MessageType = "user"
	MessageAssistant MessageType = "assistant"
	MessageToolCall  MessageType = "tool_call"
	MessageReasoning MessageType = "reasoning"
)

// Valid reports whether t is one of the known message types.
func (t MessageType) Valid() bool {
	switch t {
	case MessageUser, MessageAssistant, MessageToolCall, MessageReasoning:
		return true
	}
	return false
}

// HistoryConfig holds persistent prompt history configuration
type HistoryConfig struct {
	Enabled    bool
	MaxEntries int
}

// Session is the stored conversation for one working directory
type Session struct {
	ID          string    `db:"id"`
	WorkDir     string    `db:"work_dir"`
	CreatedAt   time.Time `db:"created_at"`
	LastUpdated time.Time `db:"last_updated"`
	Provider    string    `db:"provider"`
	Model       string    `db:"model"`
}

// Message is a single entry of a session, in sequence order
type Message struct {
	ID        string      `db:"id"`
	SessionID string      `db:"session_id"`
	Sequence  int         `db:"sequence"`
	Type      MessageType `db:"type"`
	Content   string      `db:"content"`
	Model     string      `db:"model"` // assistant and reasoning turns
	Tool      string      `db:"tool"`  // tool_call only
	CreatedAt time.Time   `db:"created_at"`
}

// HistoryEntry represents a single submitted prompt
type HistoryEntry struct {
	Content   string
	Timestamp time.Time
}

// Schema is the SQL DDL for creating all tables
const Schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    work_dir TEXT NOT NULL UNIQUE,
    created_at INTEGER NOT NULL,
    last_updated INTEGER NOT NULL,
    provider TEXT NOT NULL,
    model TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(last_updated DESC);

CREATE TABLE IF NOT EXISTS messages (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    sequence INTEGER NOT NULL,
    type TEXT NOT NULL,
    content TEXT NOT NULL,
    model TEXT NOT NULL DEFAULT '',
    tool TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, sequence);

CREATE TABLE IF NOT EXISTS prompt_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    work_dir TEXT NOT NULL,
    prompt TEXT NOT NULL,
    timestamp INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_prompt_history_dir ON prompt_history(work_dir, id);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);

INSERT OR IGNORE INTO schema_version (version, applied_at) VALUES (1, unixepoch());
`
