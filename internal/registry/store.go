// Package registry implements the persistent prompt registry.
//
// It manages two prompt populations: the curated builtin library
// (embedded in the binary) and custom prompts saved by the user,
// persisted in SQLite. References are resolved with the prefix syntax
// "builtin:<name>", "custom:<name>", "file:<path>", or a bare name
// (builtin catalog first, then custom prompts).
package registry

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/shippopotamus/promptops/internal/compose"
)

// Source kinds for resolved text blocks.
const (
	TypeBuiltin = "builtin"
	TypeCustom  = "custom"
	TypeFile    = "file"
)

// Config holds registry store configuration.
type Config struct {
	DataDir    string
	TokenRatio float64
}

// DefaultConfig returns the default registry configuration.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:    filepath.Join(home, ".promptops"),
		TokenRatio: compose.DefaultTokenRatio,
	}
}

// Store is the prompt registry backed by SQLite.
type Store struct {
	db  *sql.DB
	cfg Config
}

// New creates a Store with the given configuration. It creates the data
// directory if needed, opens SQLite with WAL mode, and runs migrations.
func New(cfg Config) (*Store, error) {
	if cfg.TokenRatio <= 0 {
		cfg.TokenRatio = compose.DefaultTokenRatio
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("registry: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "prompts.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("registry: open database: %w", err)
	}

	// SQLite performance pragmas
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("registry: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("registry: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying database handle. The embeddings index stores
// its vectors in the same database file.
func (s *Store) DB() *sql.DB { return s.db }

// TokenRatio returns the configured character-to-token ratio.
func (s *Store) TokenRatio() float64 { return s.cfg.TokenRatio }

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS custom_prompts (
			id             TEXT PRIMARY KEY,
			name           TEXT UNIQUE NOT NULL,
			content        TEXT,
			file_path      TEXT,
			tags           TEXT NOT NULL DEFAULT '[]',
			parent_prompts TEXT NOT NULL DEFAULT '[]',
			created_at     TEXT NOT NULL,
			updated_at     TEXT NOT NULL,
			usage_count    INTEGER NOT NULL DEFAULT 0,
			tokens         INTEGER,
			hash           TEXT
		);

		CREATE TABLE IF NOT EXISTS usage_log (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			prompt_name TEXT NOT NULL,
			prompt_type TEXT NOT NULL,
			used_at     TEXT NOT NULL,
			tokens      INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_usage_name ON usage_log(prompt_name);
		CREATE INDEX IF NOT EXISTS idx_custom_updated ON custom_prompts(updated_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ─── Save / Get ──────────────────────────────────────────────────────────────

// SaveParams holds the input for saving a custom prompt. Exactly one of
// Content and FilePath must be set: content-backed prompts store their
// text directly, file-backed prompts re-read the file on every load.
type SaveParams struct {
	Name          string
	Content       string
	FilePath      string
	Tags          []string
	ParentPrompts []string
}

// SavedPrompt reports the outcome of a save.
type SavedPrompt struct {
	Name          string   `json:"name"`
	Type          string   `json:"type"` // "content" or "file_reference"
	Tokens        int      `json:"tokens"`
	Tags          []string `json:"tags"`
	ParentPrompts []string `json:"parent_prompts"`
}

// Save stores a custom prompt under a unique name.
func (s *Store) Save(p SaveParams) (*SavedPrompt, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("registry: prompt name is required")
	}
	if p.Content == "" && p.FilePath == "" {
		return nil, fmt.Errorf("registry: must provide either content or file_path")
	}
	if p.Content != "" && p.FilePath != "" {
		return nil, fmt.Errorf("registry: cannot provide both content and file_path")
	}

	var tokens sql.NullInt64
	var hash sql.NullString
	if p.Content != "" {
		tokens = sql.NullInt64{Int64: int64(compose.EstimateTokens(p.Content, s.cfg.TokenRatio)), Valid: true}
		hash = sql.NullString{String: ContentHash(p.Content), Valid: true}
	}

	now := nowISO()
	_, err := s.db.Exec(
		`INSERT INTO custom_prompts
		 (id, name, content, file_path, tags, parent_prompts, created_at, updated_at, tokens, hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		slugify(p.Name), p.Name,
		nullableString(p.Content), nullableString(p.FilePath),
		marshalStrings(p.Tags), marshalStrings(p.ParentPrompts),
		now, now, tokens, hash,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("registry: prompt with name %q already exists", p.Name)
		}
		return nil, fmt.Errorf("registry: save prompt: %w", err)
	}

	kind := "content"
	if p.FilePath != "" {
		kind = "file_reference"
	}
	return &SavedPrompt{
		Name:          p.Name,
		Type:          kind,
		Tokens:        int(tokens.Int64),
		Tags:          emptyIfNil(p.Tags),
		ParentPrompts: emptyIfNil(p.ParentPrompts),
	}, nil
}

// Builtin loads a prompt from the embedded library.
func (s *Store) Builtin(name string) (compose.TextBlock, error) {
	content, ok := builtinContent(name)
	if !ok {
		return compose.TextBlock{}, fmt.Errorf("builtin prompt %q not found", name)
	}
	return compose.TextBlock{
		Ref:     name,
		Name:    name,
		Content: content,
		Type:    TypeBuiltin,
		Path:    builtinCatalog[name].file,
		Tokens:  compose.EstimateTokens(content, s.cfg.TokenRatio),
	}, nil
}

// Custom loads a user-saved prompt by name. File-backed prompts read
// their file at load time and derive tokens from the current content.
func (s *Store) Custom(name string) (compose.TextBlock, error) {
	row := s.db.QueryRow(
		`SELECT name, content, file_path, tokens FROM custom_prompts WHERE name = ?`, name,
	)
	var (
		storedName string
		content    sql.NullString
		filePath   sql.NullString
		tokens     sql.NullInt64
	)
	if err := row.Scan(&storedName, &content, &filePath, &tokens); err != nil {
		if err == sql.ErrNoRows {
			return compose.TextBlock{}, fmt.Errorf("prompt %q not found in registry", name)
		}
		return compose.TextBlock{}, fmt.Errorf("registry: load prompt %q: %w", name, err)
	}

	block := compose.TextBlock{
		Ref:    name,
		Name:   storedName,
		Type:   TypeCustom,
		Tokens: int(tokens.Int64),
	}
	if content.Valid && content.String != "" {
		block.Content = content.String
		return block, nil
	}
	if !filePath.Valid || filePath.String == "" {
		return block, nil // empty content prompt, nothing to read
	}

	data, err := os.ReadFile(filePath.String)
	if err != nil {
		return compose.TextBlock{}, fmt.Errorf("failed to load file %q: %w", filePath.String, err)
	}
	block.Content = string(data)
	block.Path = filePath.String
	block.Tokens = compose.EstimateTokens(block.Content, s.cfg.TokenRatio)
	return block, nil
}

// Get loads a prompt by bare name: builtin catalog first, then custom
// prompts. Usage is logged on success.
func (s *Store) Get(name string) (compose.TextBlock, error) {
	if block, err := s.Builtin(name); err == nil {
		s.logUsage(name, TypeBuiltin, block.Tokens)
		return block, nil
	}
	block, err := s.Custom(name)
	if err != nil {
		return compose.TextBlock{}, err
	}
	s.logUsage(name, TypeCustom, block.Tokens)
	return block, nil
}

// ─── Reference resolution ────────────────────────────────────────────────────

// Resolve implements compose.Resolver. Recognized reference forms:
//
//	file:<path>       load from the filesystem
//	builtin:<name>    explicitly load from the builtin library
//	custom:<name>     explicitly load a user-saved prompt
//	<name>            builtin catalog first, then custom prompts
func (s *Store) Resolve(ref string) (compose.TextBlock, error) {
	switch {
	case strings.HasPrefix(ref, "file:"):
		path := strings.TrimPrefix(ref, "file:")
		data, err := os.ReadFile(path)
		if err != nil {
			return compose.TextBlock{}, fmt.Errorf("failed to read %q: %w", path, err)
		}
		content := string(data)
		tokens := compose.EstimateTokens(content, s.cfg.TokenRatio)
		s.logUsage(path, TypeFile, tokens)
		return compose.TextBlock{
			Ref:     ref,
			Name:    filepath.Base(path),
			Content: content,
			Type:    TypeFile,
			Path:    path,
			Tokens:  tokens,
		}, nil

	case strings.HasPrefix(ref, "builtin:"):
		name := strings.TrimPrefix(ref, "builtin:")
		block, err := s.Builtin(name)
		if err != nil {
			return compose.TextBlock{}, err
		}
		block.Ref = ref
		s.logUsage(name, TypeBuiltin, block.Tokens)
		return block, nil

	case strings.HasPrefix(ref, "custom:"):
		name := strings.TrimPrefix(ref, "custom:")
		block, err := s.Custom(name)
		if err != nil {
			return compose.TextBlock{}, err
		}
		block.Ref = ref
		s.logUsage(name, TypeCustom, block.Tokens)
		return block, nil

	default:
		return s.Get(ref)
	}
}

// ─── Listing ─────────────────────────────────────────────────────────────────

// CustomInfo is a listing entry for a user-saved prompt.
type CustomInfo struct {
	Name       string   `json:"name"`
	Tags       []string `json:"tags"`
	CreatedAt  string   `json:"created_at"`
	UpdatedAt  string   `json:"updated_at"`
	UsageCount int      `json:"usage_count"`
	Tokens     int      `json:"tokens"`
}

// ListCustom returns custom prompt metadata, most-used first. When tags
// are given, prompts matching any tag are returned.
func (s *Store) ListCustom(tags []string) ([]CustomInfo, error) {
	query := `SELECT name, tags, created_at, updated_at, usage_count, tokens FROM custom_prompts`
	var args []any

	if len(tags) > 0 {
		var conds []string
		for _, tag := range tags {
			conds = append(conds, "tags LIKE ?")
			args = append(args, `%"`+tag+`"%`)
		}
		query += " WHERE " + strings.Join(conds, " OR ")
	}
	query += " ORDER BY usage_count DESC, updated_at DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("registry: list custom prompts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []CustomInfo
	for rows.Next() {
		var (
			info     CustomInfo
			tagsJSON string
			tokens   sql.NullInt64
		)
		if err := rows.Scan(&info.Name, &tagsJSON, &info.CreatedAt, &info.UpdatedAt, &info.UsageCount, &tokens); err != nil {
			return nil, err
		}
		info.Tags = unmarshalStrings(tagsJSON)
		info.Tokens = int(tokens.Int64)
		results = append(results, info)
	}
	return results, rows.Err()
}

// CustomEntry pairs a custom prompt name with its resolvable content.
// Used by the embeddings index during auto-indexing.
type CustomEntry struct {
	Name    string
	Content string
}

// CustomContents returns the name and content of every custom prompt.
// File-backed prompts that cannot be read are returned with empty
// content; the caller decides how to treat them.
func (s *Store) CustomContents() ([]CustomEntry, error) {
	rows, err := s.db.Query(`SELECT name, content, file_path FROM custom_prompts`)
	if err != nil {
		return nil, fmt.Errorf("registry: scan custom prompts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []CustomEntry
	for rows.Next() {
		var name string
		var content, filePath sql.NullString
		if err := rows.Scan(&name, &content, &filePath); err != nil {
			return nil, err
		}
		entry := CustomEntry{Name: name, Content: content.String}
		if entry.Content == "" && filePath.Valid && filePath.String != "" {
			if data, err := os.ReadFile(filePath.String); err == nil {
				entry.Content = string(data)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// ─── Usage logging ───────────────────────────────────────────────────────────

// logUsage records a prompt load for analytics and bumps the usage
// counter for custom prompts. Best-effort: a logging failure never
// fails the load.
func (s *Store) logUsage(name, promptType string, tokens int) {
	_, _ = s.db.Exec(
		`INSERT INTO usage_log (prompt_name, prompt_type, used_at, tokens) VALUES (?, ?, ?, ?)`,
		name, promptType, nowISO(), tokens,
	)
	if promptType == TypeCustom {
		_, _ = s.db.Exec(
			`UPDATE custom_prompts SET usage_count = usage_count + 1 WHERE name = ?`, name,
		)
	}
}

// UsageEntry is one row of the most-used summary.
type UsageEntry struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// UsageStats returns the most-loaded prompts, busiest first, capped at
// limit entries.
func (s *Store) UsageStats(limit int) ([]UsageEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(
		`SELECT prompt_name, prompt_type, COUNT(*) AS n
		 FROM usage_log
		 GROUP BY prompt_name, prompt_type
		 ORDER BY n DESC, prompt_name
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("registry: usage stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []UsageEntry
	for rows.Next() {
		var e UsageEntry
		if err := rows.Scan(&e.Name, &e.Type, &e.Count); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// ContentHash returns the truncated sha256 hash used for staleness
// detection on stored prompts and embeddings.
func ContentHash(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])[:16]
}

func slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func marshalStrings(values []string) string {
	data, err := json.Marshal(emptyIfNil(values))
	if err != nil {
		return "[]"
	}
	return string(data)
}

func unmarshalStrings(data string) []string {
	var values []string
	if err := json.Unmarshal([]byte(data), &values); err != nil || values == nil {
		return []string{}
	}
	return values
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
