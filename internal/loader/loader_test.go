package loader

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePrompt(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestSession(t *testing.T, dir string) *Session {
	t.Helper()
	return NewSession(Config{PromptsDir: dir})
}

// ─── Header parsing ──────────────────────────────────────────────────

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name    string
		content string
		id      string
		emoji   string
	}{
		{"full header", "<!-- id:CORE emoji:🎯 -->\n# Core", "CORE", "🎯"},
		{"id only", "<!-- id:CORE -->\ntext", "CORE", ""},
		{"emoji only", "something emoji:🎯 -->\ntext", "", "🎯"},
		{"no header", "# Just markdown", "", ""},
		{"header mid-file", "intro\n\n<!-- id:LATER emoji:⚡ -->", "LATER", "⚡"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, emoji := ParseHeader(tt.content)
			if id != tt.id || emoji != tt.emoji {
				t.Fatalf("ParseHeader = (%q, %q), want (%q, %q)", id, emoji, tt.id, tt.emoji)
			}
		})
	}
}

// ─── LoadPrompt ──────────────────────────────────────────────────────

func TestLoadPromptByHeaderID(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "core.md", "<!-- id:CORE emoji:🎯 -->\n# Core methodology\n")
	s := newTestSession(t, dir)

	p, err := s.LoadPrompt("CORE", false)
	if err != nil {
		t.Fatalf("LoadPrompt: %v", err)
	}
	if p.ID != "CORE" || p.Emoji != "🎯" {
		t.Fatalf("loaded %q/%q", p.ID, p.Emoji)
	}
	if !p.EchoRequired {
		t.Fatal("echo contract not set")
	}
	if p.FromCache {
		t.Fatal("first load reported as cache hit")
	}
	if !strings.Contains(p.Content, "Core methodology") {
		t.Fatalf("content = %q", p.Content)
	}
	if p.Tokens != len(p.Content)/4 {
		t.Fatalf("tokens = %d, want quarter of %d chars", p.Tokens, len(p.Content))
	}
}

func TestLoadPromptDefaultEmoji(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "plain.md", "<!-- id:PLAIN -->\ncontent")
	s := newTestSession(t, dir)

	p, err := s.LoadPrompt("PLAIN", false)
	if err != nil {
		t.Fatal(err)
	}
	if p.Emoji != DefaultEmoji {
		t.Fatalf("emoji = %q, want default", p.Emoji)
	}
}

func TestLoadPromptCache(t *testing.T) {
	dir := t.TempDir()
	path := writePrompt(t, dir, "core.md", "<!-- id:CORE emoji:🎯 -->\noriginal")
	s := newTestSession(t, dir)

	if _, err := s.LoadPrompt("CORE", false); err != nil {
		t.Fatal(err)
	}

	// A changed file is invisible to cached loads.
	if err := os.WriteFile(path, []byte("<!-- id:CORE emoji:🎯 -->\nupdated"), 0644); err != nil {
		t.Fatal(err)
	}
	p, err := s.LoadPrompt("CORE", false)
	if err != nil {
		t.Fatal(err)
	}
	if !p.FromCache {
		t.Fatal("second load not served from cache")
	}
	if !strings.Contains(p.Content, "original") {
		t.Fatal("cache returned fresh content")
	}

	p, err = s.LoadPrompt("CORE", true)
	if err != nil {
		t.Fatal(err)
	}
	if p.FromCache {
		t.Fatal("force reload served from cache")
	}
	if !strings.Contains(p.Content, "updated") {
		t.Fatal("force reload did not re-read the file")
	}
}

func TestLoadPromptNotFound(t *testing.T) {
	s := newTestSession(t, t.TempDir())
	if _, err := s.LoadPrompt("MISSING", false); err == nil {
		t.Fatal("expected error for unknown prompt id")
	}
}

func TestLoadPromptSkipsReadme(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "README.md", "<!-- id:DOCS emoji:📚 -->\nreadme")
	s := newTestSession(t, dir)

	if _, err := s.LoadPrompt("DOCS", false); err == nil {
		t.Fatal("README.md should be excluded from the prompt scan")
	}
}

func TestLoadPromptSearchesSubdirectories(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, filepath.Join("axioms", "quality.md"), "<!-- id:QUALITY emoji:💎 -->\nq")
	s := newTestSession(t, dir)

	p, err := s.LoadPrompt("QUALITY", false)
	if err != nil {
		t.Fatal(err)
	}
	if p.ID != "QUALITY" {
		t.Fatalf("loaded %q", p.ID)
	}
}

// ─── ListPrompts ─────────────────────────────────────────────────────

func TestListPrompts(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "index.md", "<!-- id:INDEX emoji:🗂️ -->\ni")
	writePrompt(t, dir, filepath.Join("axioms", "quality.md"), "<!-- id:QUALITY emoji:💎 -->\nq")
	writePrompt(t, dir, filepath.Join("axioms", "core.md"), "<!-- id:CORE emoji:🎯 -->\nc")
	writePrompt(t, dir, "headerless.md", "no header here")
	s := newTestSession(t, dir)

	listing, err := s.ListPrompts("")
	if err != nil {
		t.Fatalf("ListPrompts: %v", err)
	}
	if listing.Total != 3 {
		t.Fatalf("total = %d, want 3 (headerless excluded)", listing.Total)
	}
	// Sorted by category then id: axioms/CORE, axioms/QUALITY, root/INDEX.
	wantOrder := []string{"CORE", "QUALITY", "INDEX"}
	for i, want := range wantOrder {
		if listing.Prompts[i].ID != want {
			t.Fatalf("order[%d] = %q, want %q", i, listing.Prompts[i].ID, want)
		}
	}
	if listing.Categories["axioms"].Count != 2 || listing.Categories["root"].Count != 1 {
		t.Fatalf("categories = %+v", listing.Categories)
	}
}

func TestListPromptsCategoryFilter(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "root.md", "<!-- id:ROOT emoji:🏠 -->\nr")
	writePrompt(t, dir, filepath.Join("meta", "patterns.md"), "<!-- id:PATTERNS emoji:🧩 -->\np")
	s := newTestSession(t, dir)

	listing, err := s.ListPrompts("meta")
	if err != nil {
		t.Fatal(err)
	}
	if listing.Total != 1 || listing.Prompts[0].ID != "PATTERNS" {
		t.Fatalf("filtered listing = %+v", listing.Prompts)
	}
}

// ─── Validate ────────────────────────────────────────────────────────

func TestValidateFindsHeaderIssues(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "good.md", "<!-- id:GOOD emoji:✅ -->\nok")
	writePrompt(t, dir, "noemoji.md", "<!-- id:BARE -->\nno emoji")
	writePrompt(t, dir, "headerless.md", "nothing")
	s := newTestSession(t, dir)

	report, err := s.Validate()
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if report.Valid {
		t.Fatal("report valid despite header issues")
	}
	if report.Stats.TotalFiles != 3 || report.Stats.ValidHeaders != 1 {
		t.Fatalf("stats = %+v", report.Stats)
	}
	if report.Stats.MissingID != 1 || report.Stats.MissingEmoji != 2 {
		t.Fatalf("stats = %+v", report.Stats)
	}
}

func TestValidateOversizedFile(t *testing.T) {
	dir := t.TempDir()
	big := "<!-- id:BIG emoji:🐘 -->\n" + strings.Repeat("x", 11*1024)
	writePrompt(t, dir, "big.md", big)
	s := newTestSession(t, dir)

	report, err := s.Validate()
	if err != nil {
		t.Fatal(err)
	}
	if report.Stats.OversizedFiles != 1 {
		t.Fatalf("oversized = %d, want 1", report.Stats.OversizedFiles)
	}
}

func TestValidateIndexCap(t *testing.T) {
	dir := t.TempDir()
	fat := "<!-- id:INDEX emoji:🗂️ -->\n" + strings.Repeat("x", 3*1024)
	writePrompt(t, dir, "00_INDEX.md", fat)
	s := newTestSession(t, dir)

	report, err := s.Validate()
	if err != nil {
		t.Fatal(err)
	}
	if report.Valid {
		t.Fatal("oversized index passed validation")
	}
	first := report.Issues[0]
	if first.Severity != "high" || !strings.Contains(first.Issue, "Index exceeds") {
		t.Fatalf("first issue = %+v, want high-severity index cap", first)
	}
}

func TestValidateCleanTree(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "a.md", "<!-- id:A emoji:🅰️ -->\na")
	s := newTestSession(t, dir)

	report, err := s.Validate()
	if err != nil {
		t.Fatal(err)
	}
	if !report.Valid || len(report.Issues) != 0 {
		t.Fatalf("report = %+v, want clean", report)
	}
}

// ─── Session stats ───────────────────────────────────────────────────

func TestSessionStats(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "a.md", "<!-- id:A emoji:🅰️ -->\naaaa")
	writePrompt(t, dir, "b.md", "<!-- id:B emoji:🅱️ -->\nbbbb")
	s := newTestSession(t, dir)

	if s.ID() == "" {
		t.Fatal("session has no id")
	}

	if _, err := s.LoadPrompt("A", false); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadPrompt("B", false); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadPrompt("A", false); err != nil { // cache hit
		t.Fatal(err)
	}

	stats := s.Stats()
	if stats.TotalLoaded != 2 {
		t.Fatalf("total loaded = %d, want 2", stats.TotalLoaded)
	}
	if stats.CacheHits != 1 {
		t.Fatalf("cache hits = %d, want 1", stats.CacheHits)
	}
	if len(stats.History) != 3 {
		t.Fatalf("history = %d entries, want 3", len(stats.History))
	}
	if stats.SessionStart == "" {
		t.Fatal("session start not recorded")
	}
}

func TestSessionIsolation(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "a.md", "<!-- id:A emoji:🅰️ -->\na")

	first := newTestSession(t, dir)
	second := newTestSession(t, dir)
	if first.ID() == second.ID() {
		t.Fatal("sessions share an id")
	}

	if _, err := first.LoadPrompt("A", false); err != nil {
		t.Fatal(err)
	}
	if second.Stats().TotalLoaded != 0 {
		t.Fatal("load in one session leaked into another")
	}
}

func TestRoundKB(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{1.234567, 1.23},
		{9.999, 10.0},
		{1e15, 1e15},
	}
	for _, tc := range cases {
		if got := roundKB(tc.in); got != tc.want {
			t.Errorf("roundKB(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

// ─── Index loading ───────────────────────────────────────────────────

func TestLoadIndex_WithinLimit(t *testing.T) {
	dir := t.TempDir()
	content := "<!-- id:INDEX emoji:🗂️ -->\n# Index\n- CORE: planning basics\n"
	writePrompt(t, dir, "00_INDEX.md", content)

	index, err := newTestSession(t, dir).LoadIndex()
	if err != nil {
		t.Fatalf("LoadIndex() error: %v", err)
	}
	if !index.WithinLimit || index.Warning != "" {
		t.Errorf("index = %+v, want within limit without warning", index)
	}
	if index.Content != content {
		t.Error("index content does not round-trip")
	}
	if index.Tokens != len(content)/4 {
		t.Errorf("tokens = %d, want %d", index.Tokens, len(content)/4)
	}
	if index.Emoji != "🗂️" || !index.EchoRequired {
		t.Errorf("emoji = %q echo = %v, want header emoji with echo", index.Emoji, index.EchoRequired)
	}
}

func TestLoadIndex_OverLimit(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "00_INDEX.md", strings.Repeat("x", 3*1024))

	index, err := newTestSession(t, dir).LoadIndex()
	if err != nil {
		t.Fatalf("LoadIndex() error: %v", err)
	}
	if index.WithinLimit {
		t.Error("3KB index reported within a 2KB limit")
	}
	if !strings.Contains(index.Warning, "exceeds 2KB limit") {
		t.Errorf("warning = %q", index.Warning)
	}
	// Headerless index carries no echo contract.
	if index.Emoji != "" || index.EchoRequired {
		t.Errorf("emoji = %q echo = %v, want neither", index.Emoji, index.EchoRequired)
	}
}

func TestLoadIndex_Missing(t *testing.T) {
	_, err := newTestSession(t, t.TempDir()).LoadIndex()
	if err == nil {
		t.Fatal("expected error for missing index file")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error = %v, want fs.ErrNotExist wrap", err)
	}
}
