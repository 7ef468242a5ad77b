// Package loader loads prompt files from a prompts directory, keyed by
// the id declared in each file's header comment. Every load is tracked
// on an explicit per-server Session, which also enforces the echo-emoji
// contract: loaded prompts carry an emoji the consumer is expected to
// echo back as proof the prompt actually entered context.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shippopotamus/promptops/internal/compose"
)

// DefaultEmoji is assigned to prompts whose header omits an emoji.
const DefaultEmoji = "📄"

// DefaultIndexMaxKB caps the index file size. A fat index defeats the
// point of loading prompts on demand.
const DefaultIndexMaxKB = 2.0

var (
	headerRe = regexp.MustCompile(`<!-- id:(\w+) emoji:(.+?) -->`)
	idOnlyRe = regexp.MustCompile(`<!-- id:(\w+)`)
	emojiRe  = regexp.MustCompile(`emoji:(.+?) -->`)
)

// ParseHeader extracts the id and emoji from a prompt file's header
// comment. Either part may be absent; both empty means no header.
func ParseHeader(content string) (id, emoji string) {
	if m := headerRe.FindStringSubmatch(content); m != nil {
		return m[1], m[2]
	}
	if m := idOnlyRe.FindStringSubmatch(content); m != nil {
		id = m[1]
	}
	if m := emojiRe.FindStringSubmatch(content); m != nil {
		emoji = m[1]
	}
	return id, emoji
}

// LoadedPrompt is a prompt file resolved through the session.
type LoadedPrompt struct {
	ID           string  `json:"id"`
	Emoji        string  `json:"emoji"`
	Content      string  `json:"content"`
	Tokens       int     `json:"tokens"`
	SizeKB       float64 `json:"size_kb"`
	Path         string  `json:"path"`
	LoadedAt     string  `json:"loaded_at"`
	EchoRequired bool    `json:"echo_required"`
	FromCache    bool    `json:"from_cache"`
}

// PromptInfo is catalog metadata for one prompt file.
type PromptInfo struct {
	ID       string  `json:"id"`
	Emoji    string  `json:"emoji"`
	Path     string  `json:"path"`
	Category string  `json:"category"`
	SizeKB   float64 `json:"size_kb"`
	Tokens   int     `json:"tokens"`
}

// CategoryStats aggregates per-category counts for listings.
type CategoryStats struct {
	Count  int `json:"count"`
	Tokens int `json:"tokens"`
}

// Listing is the result of ListPrompts.
type Listing struct {
	Prompts     []PromptInfo             `json:"prompts"`
	Total       int                      `json:"total"`
	TotalTokens int                      `json:"total_tokens"`
	Categories  map[string]CategoryStats `json:"categories"`
}

// Issue is one validation finding.
type Issue struct {
	File     string `json:"file"`
	Issue    string `json:"issue"`
	Severity string `json:"severity,omitempty"`
}

// ValidationStats summarizes a validation pass.
type ValidationStats struct {
	TotalFiles     int `json:"total_files"`
	ValidHeaders   int `json:"valid_headers"`
	MissingEmoji   int `json:"missing_emoji"`
	MissingID      int `json:"missing_id"`
	OversizedFiles int `json:"oversized_files"`
}

// ValidationReport is the result of Validate.
type ValidationReport struct {
	Valid  bool            `json:"valid"`
	Issues []Issue         `json:"issues"`
	Stats  ValidationStats `json:"stats"`
}

// LoadRecord is one entry in the session's load history.
type LoadRecord struct {
	PromptID  string `json:"prompt_id"`
	Tokens    int    `json:"tokens"`
	Timestamp string `json:"timestamp"`
	FromCache bool   `json:"from_cache"`
}

// Stats reports the session's loading activity.
type Stats struct {
	SessionID    string       `json:"session_id"`
	Loaded       []LoadedInfo `json:"loaded_prompts"`
	TotalLoaded  int          `json:"total_loaded"`
	TotalTokens  int          `json:"total_tokens"`
	History      []LoadRecord `json:"load_history"`
	CacheHits    int          `json:"cache_hits"`
	SessionStart string       `json:"session_start,omitempty"`
}

// LoadedInfo is summary metadata for one cached prompt.
type LoadedInfo struct {
	ID       string  `json:"id"`
	Emoji    string  `json:"emoji"`
	Tokens   int     `json:"tokens"`
	SizeKB   float64 `json:"size_kb"`
	LoadedAt string  `json:"loaded_at"`
}

// Config configures a Session.
type Config struct {
	PromptsDir string
	TokenRatio float64
	IndexMaxKB float64
}

// Session tracks prompt loads for one server instance. All state is
// held here rather than in package globals, so two sessions never
// observe each other's cache.
type Session struct {
	id      string
	cfg     Config
	cache   map[string]LoadedPrompt
	history []LoadRecord
}

// NewSession creates a Session with a fresh uuid identity.
func NewSession(cfg Config) *Session {
	if cfg.TokenRatio <= 0 {
		cfg.TokenRatio = compose.DefaultTokenRatio
	}
	if cfg.IndexMaxKB <= 0 {
		cfg.IndexMaxKB = DefaultIndexMaxKB
	}
	return &Session{
		id:    uuid.NewString(),
		cfg:   cfg,
		cache: make(map[string]LoadedPrompt),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// LoadPrompt resolves a prompt by header id. Repeat loads are served
// from the session cache unless forceReload is set; cache hits are
// still recorded in the load history.
func (s *Session) LoadPrompt(promptID string, forceReload bool) (*LoadedPrompt, error) {
	if cached, ok := s.cache[promptID]; ok && !forceReload {
		cached.FromCache = true
		s.record(promptID, cached.Tokens, true)
		return &cached, nil
	}

	path, content, err := s.findByID(promptID)
	if err != nil {
		return nil, err
	}

	_, emoji := ParseHeader(content)
	if emoji == "" {
		emoji = DefaultEmoji
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("loader: stat %s: %w", path, err)
	}

	prompt := LoadedPrompt{
		ID:           promptID,
		Emoji:        emoji,
		Content:      content,
		Tokens:       compose.EstimateTokens(content, s.cfg.TokenRatio),
		SizeKB:       float64(info.Size()) / 1024,
		Path:         path,
		LoadedAt:     time.Now().UTC().Format(time.RFC3339),
		EchoRequired: true,
	}

	s.cache[promptID] = prompt
	s.record(promptID, prompt.Tokens, false)
	return &prompt, nil
}

func (s *Session) record(promptID string, tokens int, fromCache bool) {
	s.history = append(s.history, LoadRecord{
		PromptID:  promptID,
		Tokens:    tokens,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		FromCache: fromCache,
	})
}

// findByID scans the prompts directory for the first markdown file
// whose header declares the requested id. README files are skipped.
func (s *Session) findByID(promptID string) (path, content string, err error) {
	found := errors.New("found")
	walkErr := filepath.WalkDir(s.cfg.PromptsDir, func(p string, d fs.DirEntry, werr error) error {
		if werr != nil || d.IsDir() || !strings.HasSuffix(p, ".md") || d.Name() == "README.md" {
			return nil
		}
		data, rerr := os.ReadFile(p)
		if rerr != nil {
			return nil // unreadable files never abort the scan
		}
		if id, _ := ParseHeader(string(data)); id == promptID {
			path, content = p, string(data)
			return found
		}
		return nil
	})
	if walkErr != nil && walkErr != found {
		return "", "", fmt.Errorf("loader: scan %s: %w", s.cfg.PromptsDir, walkErr)
	}
	if path == "" {
		return "", "", fmt.Errorf("loader: prompt with id %q not found in %s", promptID, s.cfg.PromptsDir)
	}
	return path, content, nil
}

// ListPrompts catalogs every headered prompt file, optionally filtered
// by category. Category is the first directory component under the
// prompts dir, or "root" for top-level files.
func (s *Session) ListPrompts(category string) (*Listing, error) {
	listing := &Listing{
		Prompts:    []PromptInfo{},
		Categories: map[string]CategoryStats{},
	}

	err := filepath.WalkDir(s.cfg.PromptsDir, func(p string, d fs.DirEntry, werr error) error {
		if werr != nil || d.IsDir() || !strings.HasSuffix(p, ".md") || d.Name() == "README.md" {
			return nil
		}
		data, rerr := os.ReadFile(p)
		if rerr != nil {
			return nil
		}
		id, emoji := ParseHeader(string(data))
		if id == "" {
			return nil
		}
		if emoji == "" {
			emoji = DefaultEmoji
		}

		rel, rerr := filepath.Rel(s.cfg.PromptsDir, p)
		if rerr != nil {
			return nil
		}
		fileCategory := "root"
		if dir := filepath.Dir(rel); dir != "." {
			fileCategory = strings.Split(dir, string(filepath.Separator))[0]
		}
		if category != "" && fileCategory != category {
			return nil
		}

		info, serr := d.Info()
		if serr != nil {
			return nil
		}

		pi := PromptInfo{
			ID:       id,
			Emoji:    emoji,
			Path:     p,
			Category: fileCategory,
			SizeKB:   roundKB(float64(info.Size()) / 1024),
			Tokens:   compose.EstimateTokens(string(data), s.cfg.TokenRatio),
		}
		listing.Prompts = append(listing.Prompts, pi)

		cs := listing.Categories[fileCategory]
		cs.Count++
		cs.Tokens += pi.Tokens
		listing.Categories[fileCategory] = cs
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loader: list %s: %w", s.cfg.PromptsDir, err)
	}

	sort.Slice(listing.Prompts, func(i, j int) bool {
		if listing.Prompts[i].Category != listing.Prompts[j].Category {
			return listing.Prompts[i].Category < listing.Prompts[j].Category
		}
		return listing.Prompts[i].ID < listing.Prompts[j].ID
	})
	listing.Total = len(listing.Prompts)
	for _, p := range listing.Prompts {
		listing.TotalTokens += p.Tokens
	}
	return listing, nil
}

// Validate checks every prompt file for header completeness and size.
// Files over 10KB are flagged as splitting candidates; an index file
// over the configured cap is a high-severity issue listed first.
func (s *Session) Validate() (*ValidationReport, error) {
	report := &ValidationReport{Issues: []Issue{}}

	err := filepath.WalkDir(s.cfg.PromptsDir, func(p string, d fs.DirEntry, werr error) error {
		if werr != nil || d.IsDir() || !strings.HasSuffix(p, ".md") || d.Name() == "README.md" {
			return nil
		}
		data, rerr := os.ReadFile(p)
		if rerr != nil {
			return nil
		}
		report.Stats.TotalFiles++

		id, emoji := ParseHeader(string(data))
		if id == "" {
			report.Issues = append(report.Issues, Issue{File: p, Issue: "Missing id in header"})
			report.Stats.MissingID++
		}
		if emoji == "" {
			report.Issues = append(report.Issues, Issue{File: p, Issue: "Missing emoji in header"})
			report.Stats.MissingEmoji++
		}
		if id != "" && emoji != "" {
			report.Stats.ValidHeaders++
		}

		info, serr := d.Info()
		if serr != nil {
			return nil
		}
		if sizeKB := float64(info.Size()) / 1024; sizeKB > 10 {
			report.Issues = append(report.Issues, Issue{
				File:  p,
				Issue: fmt.Sprintf("Large file (%.1fKB) - consider splitting", sizeKB),
			})
			report.Stats.OversizedFiles++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loader: validate %s: %w", s.cfg.PromptsDir, err)
	}

	indexPath := filepath.Join(s.cfg.PromptsDir, "00_INDEX.md")
	if info, err := os.Stat(indexPath); err == nil {
		if sizeKB := float64(info.Size()) / 1024; sizeKB > s.cfg.IndexMaxKB {
			report.Issues = append([]Issue{{
				File:     indexPath,
				Issue:    fmt.Sprintf("Index exceeds %.0fKB limit (%.2fKB)", s.cfg.IndexMaxKB, sizeKB),
				Severity: "high",
			}}, report.Issues...)
		}
	}

	report.Valid = len(report.Issues) == 0
	return report, nil
}

// IndexFile is the loaded prompt index with its size verdict.
type IndexFile struct {
	Content      string  `json:"content"`
	SizeKB       float64 `json:"size_kb"`
	MaxKB        float64 `json:"max_kb"`
	Tokens       int     `json:"tokens"`
	WithinLimit  bool    `json:"within_limit"`
	Warning      string  `json:"warning,omitempty"`
	Emoji        string  `json:"emoji,omitempty"`
	EchoRequired bool    `json:"echo_required,omitempty"`
}

// LoadIndex reads the prompt index file (00_INDEX.md) and reports
// whether it fits the configured size cap. An oversized index is still
// returned, with a warning attached. A missing index wraps fs.ErrNotExist.
func (s *Session) LoadIndex() (*IndexFile, error) {
	indexPath := filepath.Join(s.cfg.PromptsDir, "00_INDEX.md")
	data, err := os.ReadFile(indexPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loader: index file not found at %s: %w", indexPath, err)
		}
		return nil, fmt.Errorf("loader: read index %s: %w", indexPath, err)
	}

	content := string(data)
	sizeKB := float64(len(data)) / 1024
	index := &IndexFile{
		Content:     content,
		SizeKB:      roundKB(sizeKB),
		MaxKB:       s.cfg.IndexMaxKB,
		Tokens:      compose.EstimateTokens(content, s.cfg.TokenRatio),
		WithinLimit: sizeKB <= s.cfg.IndexMaxKB,
	}
	if !index.WithinLimit {
		index.Warning = fmt.Sprintf("Index file exceeds %gKB limit! Consider pruning.", s.cfg.IndexMaxKB)
	}
	if _, emoji := ParseHeader(content); emoji != "" {
		index.Emoji = emoji
		index.EchoRequired = true
	}
	return index, nil
}

// Stats summarizes the session's loading activity. History is capped at
// the last ten entries.
func (s *Session) Stats() *Stats {
	stats := &Stats{
		SessionID: s.id,
		Loaded:    []LoadedInfo{},
		History:   []LoadRecord{},
	}

	var ids []string
	for id := range s.cache {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		p := s.cache[id]
		stats.Loaded = append(stats.Loaded, LoadedInfo{
			ID:       p.ID,
			Emoji:    p.Emoji,
			Tokens:   p.Tokens,
			SizeKB:   p.SizeKB,
			LoadedAt: p.LoadedAt,
		})
		stats.TotalTokens += p.Tokens
	}
	stats.TotalLoaded = len(stats.Loaded)

	history := s.history
	if len(history) > 10 {
		history = history[len(history)-10:]
	}
	stats.History = append(stats.History, history...)

	for _, h := range s.history {
		if h.FromCache {
			stats.CacheHits++
		}
	}
	if len(s.history) > 0 {
		stats.SessionStart = s.history[0].Timestamp
	}
	return stats
}

func roundKB(v float64) float64 {
	return math.Round(v*100) / 100
}
