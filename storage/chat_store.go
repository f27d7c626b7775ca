package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when a session id or working directory has no stored session.
var ErrSessionNotFound = errors.New("session not found")

// ChatStore persists one conversation per working directory.
type ChatStore struct {
	db  *DB
	now func() time.Time
}

// NewChatStore creates a new chat store
func NewChatStore(db *DB) *ChatStore {
	return &ChatStore{db: db, now: time.Now}
}

// CreateSession starts a fresh session for workDir, replacing any previous one.
func (s *ChatStore) CreateSession(workDir, provider, model string) (*Session, error) {
	now := s.now()
	session := &Session{
		ID:          uuid.NewString(),
		WorkDir:     workDir,
		CreatedAt:   now,
		LastUpdated: now,
		Provider:    provider,
		Model:       model,
	}

	tx, err := s.db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM sessions WHERE work_dir = ?", workDir); err != nil {
		return nil, fmt.Errorf("failed to replace session: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO sessions (id, work_dir, created_at, last_updated, provider, model)
		VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID, workDir, now.Unix(), now.Unix(), provider, model,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Debug("Session created", "id", session.ID, "work_dir", workDir)
	return session, nil
}

// GetSessionByWorkDir returns the stored session for workDir or ErrSessionNotFound.
func (s *ChatStore) GetSessionByWorkDir(workDir string) (*Session, error) {
	var session Session
	var createdAt, lastUpdated int64
	err := s.db.conn.QueryRow(`
		SELECT id, work_dir, created_at, last_updated, provider, model
		FROM sessions WHERE work_dir = ?`,
		workDir,
	).Scan(&session.ID, &session.WorkDir, &createdAt, &lastUpdated, &session.Provider, &session.Model)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, workDir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	session.CreatedAt = time.Unix(createdAt, 0)
	session.LastUpdated = time.Unix(lastUpdated, 0)
	return &session, nil
}

// GetOrCreateSession returns the session for workDir, creating one when none exists.
func (s *ChatStore) GetOrCreateSession(workDir, provider, model string) (*Session, error) {
	session, err := s.GetSessionByWorkDir(workDir)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}
	return s.CreateSession(workDir, provider, model)
}

// AddMessage appends a message to the session and bumps its last_updated time.
func (s *ChatStore) AddMessage(sessionID string, typ MessageType, content, model, tool string) (*Message, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("invalid message type %q", typ)
	}

	tx, err := s.db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// touch the session first so a missing one is reported before the
	// insert trips the foreign key
	now := s.now()
	res, err := tx.Exec("UPDATE sessions SET last_updated = ? WHERE id = ?", now.Unix(), sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to touch session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	var seq int
	if err := tx.QueryRow(
		"SELECT COALESCE(MAX(sequence) + 1, 0) FROM messages WHERE session_id = ?", sessionID,
	).Scan(&seq); err != nil {
		return nil, fmt.Errorf("failed to read message sequence: %w", err)
	}

	msg := &Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Sequence:  seq,
		Type:      typ,
		Content:   content,
		Model:     model,
		Tool:      tool,
		CreatedAt: now,
	}
	_, err = tx.Exec(`
		INSERT INTO messages (id, session_id, sequence, type, content, model, tool, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, sessionID, seq, string(typ), content, model, tool, now.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return msg, nil
}

// Messages returns the session's messages in sequence order.
func (s *ChatStore) Messages(sessionID string) ([]Message, error) {
	rows, err := s.db.conn.Query(`
		SELECT id, session_id, sequence, type, content, model, tool, created_at
		FROM messages
		WHERE session_id = ?
		ORDER BY sequence`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		var typ string
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Sequence, &typ, &m.Content, &m.Model, &m.Tool, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Type = MessageType(typ)
		m.CreatedAt = time.Unix(createdAt, 0)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return msgs, nil
}

// ClearMessages removes all messages of a session, keeping the session itself.
func (s *ChatStore) ClearMessages(sessionID string) error {
	if _, err := s.db.conn.Exec("DELETE FROM messages WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	return nil
}

// DeleteSession deletes a session and all its messages
func (s *ChatStore) DeleteSession(sessionID string) error {
	result, err := s.db.conn.Exec("DELETE FROM sessions WHERE id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return nil
}

// CleanupOldSessions deletes sessions not touched within maxAge.
func (s *ChatStore) CleanupOldSessions(maxAge time.Duration) error {
	if maxAge <= 0 {
		return nil
	}
	cutoff := s.now().Add(-maxAge).Unix()
	result, err := s.db.conn.Exec("DELETE FROM sessions WHERE last_updated < ?", cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete old sessions: %w", err)
	}
	if deleted, _ := result.RowsAffected(); deleted > 0 {
		slog.Info("Deleted old sessions", "count", deleted, "max_age", maxAge)
	}
	return nil
}
