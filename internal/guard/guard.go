// Package guard implements a duplicate-call guard for tool
// invocations. A call is identified by a hash over the tool name and
// its canonicalized parameters; repeats within a TTL window are flagged
// unsafe. It also enforces the safe-write rule: a file must be
// registered as read before a write_file call targeting it passes.
package guard

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Verdict is the outcome of a duplicate check.
type Verdict struct {
	Safe       bool   `json:"safe"`
	Reason     string `json:"reason"`
	LastCalled string `json:"last_called,omitempty"`
}

// ClearStats reports the effect of ClearOlderThan.
type ClearStats struct {
	Deleted   int `json:"deleted"`
	Remaining int `json:"remaining"`
}

// Guard is the SQLite-backed duplicate-call guard.
type Guard struct {
	db *sql.DB
}

// New opens (or creates) the guard database under dataDir.
func New(dataDir string) (*Guard, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("guard: create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, "dedup.db"))
	if err != nil {
		return nil, fmt.Errorf("guard: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("guard: pragma %q: %w", p, err)
		}
	}

	g := &Guard{db: db}
	if err := g.migrate(); err != nil {
		return nil, fmt.Errorf("guard: migration: %w", err)
	}
	return g, nil
}

// Close closes the underlying database connection.
func (g *Guard) Close() error { return g.db.Close() }

func (g *Guard) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS dedup_log (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			tool_name   TEXT NOT NULL,
			params_hash TEXT NOT NULL,
			params_json TEXT NOT NULL,
			timestamp   TEXT NOT NULL,
			session_id  TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_dedup_lookup ON dedup_log(tool_name, params_hash, timestamp);

		CREATE TABLE IF NOT EXISTS write_safety (
			file_path  TEXT PRIMARY KEY,
			last_read  TEXT NOT NULL,
			last_write TEXT
		);
	`
	_, err := g.db.Exec(schema)
	return err
}

// CallHash computes the dedup key for a tool invocation. Parameter maps
// are canonicalized by encoding/json, which emits map keys in sorted
// order, so logically identical calls hash identically.
func CallHash(toolName string, params map[string]any) (string, error) {
	canonical, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("guard: canonicalize params: %w", err)
	}
	sum := sha256.Sum256([]byte(toolName + ":" + string(canonical)))
	return hex.EncodeToString(sum[:]), nil
}

// Check decides whether a tool call is safe to execute. A duplicate of
// the same tool and parameters within ttl is unsafe; a write_file call
// against a path never registered as read is unsafe. Safe calls are
// logged so they count as duplicates next time.
func (g *Guard) Check(toolName string, params map[string]any, sessionID string, ttl time.Duration) (*Verdict, error) {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	hash, err := CallHash(toolName, params)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().Add(-ttl).Format(time.RFC3339)
	row := g.db.QueryRow(`
		SELECT timestamp FROM dedup_log
		WHERE tool_name = ? AND params_hash = ? AND timestamp > ?
		ORDER BY timestamp DESC
		LIMIT 1`, toolName, hash, cutoff)

	var lastCalled string
	switch err := row.Scan(&lastCalled); {
	case err == nil:
		return &Verdict{
			Safe:       false,
			Reason:     fmt.Sprintf("Duplicate call detected (last called: %s)", lastCalled),
			LastCalled: lastCalled,
		}, nil
	case err != sql.ErrNoRows:
		return nil, fmt.Errorf("guard: duplicate lookup: %w", err)
	}

	if toolName == "write_file" {
		if path, ok := params["file_path"].(string); ok {
			var lastRead string
			err := g.db.QueryRow(`SELECT last_read FROM write_safety WHERE file_path = ?`, path).Scan(&lastRead)
			if err == sql.ErrNoRows {
				return &Verdict{
					Safe:   false,
					Reason: "Safe-write rule violation: file must be read before writing",
				}, nil
			}
			if err != nil {
				return nil, fmt.Errorf("guard: safe-write lookup: %w", err)
			}
		}
	}

	canonical, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("guard: log params: %w", err)
	}
	if _, err := g.db.Exec(
		`INSERT INTO dedup_log (tool_name, params_hash, params_json, timestamp, session_id)
		 VALUES (?, ?, ?, ?, ?)`,
		toolName, hash, string(canonical), time.Now().UTC().Format(time.RFC3339), nullable(sessionID),
	); err != nil {
		return nil, fmt.Errorf("guard: log call: %w", err)
	}

	return &Verdict{Safe: true, Reason: "No duplicate detected"}, nil
}

// RegisterRead records that a file was read, satisfying the safe-write
// rule for subsequent write_file calls on the same path.
func (g *Guard) RegisterRead(filePath string) (string, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339)
	_, err := g.db.Exec(
		`INSERT OR REPLACE INTO write_safety (file_path, last_read) VALUES (?, ?)`,
		filePath, timestamp,
	)
	if err != nil {
		return "", fmt.Errorf("guard: register read: %w", err)
	}
	return timestamp, nil
}

// ClearOlderThan deletes dedup log entries older than age and reports
// how many were removed and how many remain.
func (g *Guard) ClearOlderThan(age time.Duration) (*ClearStats, error) {
	cutoff := time.Now().UTC().Add(-age).Format(time.RFC3339)

	res, err := g.db.Exec(`DELETE FROM dedup_log WHERE timestamp < ?`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("guard: clear: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("guard: clear count: %w", err)
	}

	var remaining int
	if err := g.db.QueryRow(`SELECT COUNT(*) FROM dedup_log`).Scan(&remaining); err != nil {
		return nil, fmt.Errorf("guard: remaining count: %w", err)
	}
	return &ClearStats{Deleted: int(deleted), Remaining: remaining}, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
