// Package progress implements a persistent FIFO task queue that
// survives across sessions. Items carry an importance level; anything
// above zero is sticky and never returned by Pop, so it stays in the
// queue until completed explicitly.
package progress

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Sentinel errors for queue operations.
var (
	ErrEmpty            = errors.New("progress: queue empty")
	ErrNotFound         = errors.New("progress: item not found")
	ErrAlreadyCompleted = errors.New("progress: item already completed")
)

// Item is one queue entry.
type Item struct {
	ID          int64    `json:"id"`
	Content     string   `json:"content"`
	Importance  int      `json:"importance"`
	Tags        []string `json:"tags"`
	CreatedAt   string   `json:"created_at"`
	CompletedAt string   `json:"completed_at,omitempty"`
}

// PushReceipt reports where a pushed item landed.
type PushReceipt struct {
	ID        int64 `json:"id"`
	Position  int   `json:"position"`
	QueueSize int   `json:"queue_size"`
}

// Listing is the result of List.
type Listing struct {
	Items       []Item `json:"items"`
	Total       int    `json:"total"`
	StickyCount int    `json:"sticky_count"`
}

// ListParams filters List output.
type ListParams struct {
	Limit            int
	IncludeCompleted bool
	TagFilter        string
}

// Queue is the SQLite-backed progress queue.
type Queue struct {
	db *sql.DB
}

// New opens (or creates) the queue database under dataDir.
func New(dataDir string) (*Queue, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("progress: create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, "progress.db"))
	if err != nil {
		return nil, fmt.Errorf("progress: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("progress: pragma %q: %w", p, err)
		}
	}

	q := &Queue{db: db}
	if err := q.migrate(); err != nil {
		return nil, fmt.Errorf("progress: migration: %w", err)
	}
	return q, nil
}

// Close closes the underlying database connection.
func (q *Queue) Close() error { return q.db.Close() }

func (q *Queue) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS progress_queue (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			content      TEXT NOT NULL,
			importance   INTEGER DEFAULT 0,
			tags         TEXT DEFAULT '[]',
			created_at   TEXT NOT NULL,
			completed_at TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_progress_open ON progress_queue(completed_at, importance);
	`
	_, err := q.db.Exec(schema)
	return err
}

// Push appends an item to the queue. Importance 0 is a normal item,
// anything greater is sticky. Returns the new item's id, its position
// among incomplete items, and the incomplete queue size.
func (q *Queue) Push(content string, importance int, tags []string) (*PushReceipt, error) {
	tagsJSON, err := json.Marshal(emptyIfNil(tags))
	if err != nil {
		return nil, fmt.Errorf("progress: marshal tags: %w", err)
	}

	res, err := q.db.Exec(
		`INSERT INTO progress_queue (content, importance, tags, created_at) VALUES (?, ?, ?, ?)`,
		content, importance, string(tagsJSON), nowISO(),
	)
	if err != nil {
		return nil, fmt.Errorf("progress: push: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("progress: push id: %w", err)
	}

	var position, size int
	if err := q.db.QueryRow(
		`SELECT COUNT(*) FROM progress_queue WHERE completed_at IS NULL AND id < ?`, id,
	).Scan(&position); err != nil {
		return nil, fmt.Errorf("progress: position: %w", err)
	}
	if err := q.db.QueryRow(
		`SELECT COUNT(*) FROM progress_queue WHERE completed_at IS NULL`,
	).Scan(&size); err != nil {
		return nil, fmt.Errorf("progress: queue size: %w", err)
	}

	return &PushReceipt{ID: id, Position: position, QueueSize: size}, nil
}

// Pop removes and returns the oldest non-sticky incomplete item,
// marking it completed. Sticky items (importance > 0) are never popped.
// Returns ErrEmpty when nothing is poppable.
func (q *Queue) Pop() (*Item, error) {
	row := q.db.QueryRow(`
		SELECT id, content, importance, tags, created_at
		FROM progress_queue
		WHERE completed_at IS NULL AND importance = 0
		ORDER BY id
		LIMIT 1`)

	var item Item
	var tagsJSON string
	if err := row.Scan(&item.ID, &item.Content, &item.Importance, &tagsJSON, &item.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("progress: pop: %w", err)
	}
	item.Tags = unmarshalTags(tagsJSON)

	completedAt := nowISO()
	if _, err := q.db.Exec(
		`UPDATE progress_queue SET completed_at = ? WHERE id = ?`, completedAt, item.ID,
	); err != nil {
		return nil, fmt.Errorf("progress: complete popped item: %w", err)
	}
	item.CompletedAt = completedAt
	return &item, nil
}

// List returns queue items. Incomplete items sort before completed
// ones, then by importance descending, then insertion order.
func (q *Queue) List(p ListParams) (*Listing, error) {
	if p.Limit <= 0 {
		p.Limit = 10
	}

	where := "1=1"
	var args []any
	if !p.IncludeCompleted {
		where = "completed_at IS NULL"
	}
	if p.TagFilter != "" {
		where += " AND tags LIKE ?"
		args = append(args, `%"`+p.TagFilter+`"%`)
	}

	query := fmt.Sprintf(`
		SELECT id, content, importance, tags, created_at, completed_at
		FROM progress_queue
		WHERE %s
		ORDER BY
			CASE WHEN completed_at IS NULL THEN 0 ELSE 1 END,
			importance DESC,
			id
		LIMIT ?`, where)

	rows, err := q.db.Query(query, append(args, p.Limit)...)
	if err != nil {
		return nil, fmt.Errorf("progress: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	listing := &Listing{Items: []Item{}}
	for rows.Next() {
		var item Item
		var tagsJSON string
		var completedAt sql.NullString
		if err := rows.Scan(&item.ID, &item.Content, &item.Importance, &tagsJSON, &item.CreatedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("progress: scan item: %w", err)
		}
		item.Tags = unmarshalTags(tagsJSON)
		item.CompletedAt = completedAt.String
		listing.Items = append(listing.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM progress_queue WHERE %s`, where)
	if err := q.db.QueryRow(countQuery, args...).Scan(&listing.Total); err != nil {
		return nil, fmt.Errorf("progress: total: %w", err)
	}
	if err := q.db.QueryRow(
		`SELECT COUNT(*) FROM progress_queue WHERE completed_at IS NULL AND importance > 0`,
	).Scan(&listing.StickyCount); err != nil {
		return nil, fmt.Errorf("progress: sticky count: %w", err)
	}
	return listing, nil
}

// Complete marks a specific item as completed. Returns ErrNotFound for
// unknown ids and ErrAlreadyCompleted for items completed earlier.
func (q *Queue) Complete(id int64) (string, error) {
	var completedAt sql.NullString
	err := q.db.QueryRow(`SELECT completed_at FROM progress_queue WHERE id = ?`, id).Scan(&completedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("progress: complete lookup: %w", err)
	}
	if completedAt.Valid {
		return "", ErrAlreadyCompleted
	}

	now := nowISO()
	if _, err := q.db.Exec(`UPDATE progress_queue SET completed_at = ? WHERE id = ?`, now, id); err != nil {
		return "", fmt.Errorf("progress: complete: %w", err)
	}
	return now, nil
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func unmarshalTags(data string) []string {
	var tags []string
	if err := json.Unmarshal([]byte(data), &tags); err != nil || tags == nil {
		return []string{}
	}
	return tags
}

func emptyIfNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
