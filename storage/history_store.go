package storage

import (
	"fmt"
	"time"
)

// HistoryStore persists submitted prompts per working directory
type HistoryStore struct {
	db  *DB
	cfg *HistoryConfig
	now func() time.Time
}

// NewHistoryStore creates a new history store
func NewHistoryStore(db *DB, cfg *HistoryConfig) *HistoryStore {
	return &HistoryStore{db: db, cfg: cfg, now: time.Now}
}

func (h *HistoryStore) enabled() bool {
	return h.cfg == nil || h.cfg.Enabled
}

// AppendPrompt records prompt for workDir and trims the directory's history to MaxEntries.
func (h *HistoryStore) AppendPrompt(workDir, prompt string) error {
	if !h.enabled() {
		return nil
	}
	_, err := h.db.conn.Exec(`
		INSERT INTO prompt_history (work_dir, prompt, timestamp)
		VALUES (?, ?, ?)`,
		workDir, prompt, h.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to append prompt: %w", err)
	}

	if h.cfg != nil && h.cfg.MaxEntries > 0 {
		_, err = h.db.conn.Exec(`
			DELETE FROM prompt_history
			WHERE work_dir = ?
			AND id NOT IN (
				SELECT id FROM prompt_history
				WHERE work_dir = ?
				ORDER BY id DESC
				LIMIT ?
			)`,
			workDir, workDir, h.cfg.MaxEntries,
		)
		if err != nil {
			return fmt.Errorf("failed to apply prompt history limit: %w", err)
		}
	}
	return nil
}

// LoadPromptHistory returns the most recent prompts for workDir, oldest first.
// A limit of zero or less returns everything.
func (h *HistoryStore) LoadPromptHistory(workDir string, limit int) ([]HistoryEntry, error) {
	if !h.enabled() {
		return nil, nil
	}
	query := `
		SELECT prompt, timestamp FROM (
			SELECT id, prompt, timestamp
			FROM prompt_history
			WHERE work_dir = ?
			ORDER BY id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	query += `) ORDER BY id ASC`

	rows, err := h.db.conn.Query(query, workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var prompt string
		var timestamp int64
		if err := rows.Scan(&prompt, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan prompt: %w", err)
		}
		entries = append(entries, HistoryEntry{Content: prompt, Timestamp: time.Unix(timestamp, 0)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prompts: %w", err)
	}
	return entries, nil
}

// ClearPromptHistory removes the prompt history of workDir
func (h *HistoryStore) ClearPromptHistory(workDir string) error {
	if _, err := h.db.conn.Exec("DELETE FROM prompt_history WHERE work_dir = ?", workDir); err != nil {
		return fmt.Errorf("failed to clear prompt history: %w", err)
	}
	return nil
}
