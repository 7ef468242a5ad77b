package embeddings

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shippopotamus/promptops/internal/registry"
)

// Index persists prompt embeddings and answers similarity queries.
// Vectors live in the registry's database, keyed by (prompt_id,
// prompt_type) with last-write-wins upserts.
type Index struct {
	db       *sql.DB
	reg      *registry.Store
	provider Provider
	fallback *HashProvider

	autoIndexed bool
}

// Match is one ranked similarity result.
type Match struct {
	PromptID   string  `json:"prompt_id"`
	PromptType string  `json:"prompt_type"`
	Similarity float64 `json:"similarity"`
}

// Diagnostic records a single item that failed during auto-indexing.
// Failures never abort the batch; they are collected so the caller can
// log or report them.
type Diagnostic struct {
	Ref  string `json:"ref"`
	Kind string `json:"kind"`
	Err  string `json:"error"`
}

// NewIndex creates an Index over the registry's database. The provider
// is the preferred embedding source; per-call failures fall back to the
// deterministic hash provider, which never fails.
func NewIndex(reg *registry.Store, provider Provider) (*Index, error) {
	fallback := NewHashProvider(DefaultDimensions)
	if provider == nil {
		provider = fallback
	}

	idx := &Index{
		db:       reg.DB(),
		reg:      reg,
		provider: provider,
		fallback: fallback,
	}
	if err := idx.migrate(); err != nil {
		return nil, fmt.Errorf("embeddings: migration: %w", err)
	}
	return idx, nil
}

func (x *Index) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS prompt_embeddings (
			prompt_id      TEXT NOT NULL,
			prompt_type    TEXT NOT NULL,
			embedding_json TEXT NOT NULL,
			content_hash   TEXT NOT NULL,
			model_name     TEXT NOT NULL,
			created_at     TEXT NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (prompt_id, prompt_type)
		);

		CREATE INDEX IF NOT EXISTS idx_embeddings_type ON prompt_embeddings(prompt_type);
	`
	_, err := x.db.Exec(schema)
	return err
}

// Model returns the identifier of the active embedding provider.
func (x *Index) Model() string { return x.provider.Model() }

// Embed generates a vector for text, preferring the configured provider
// and silently falling back to the hash provider on failure. The second
// return value names the provider that produced the vector.
func (x *Index) Embed(ctx context.Context, text string) ([]float64, string) {
	vec, err := x.provider.Embed(ctx, text)
	if err == nil {
		return vec, x.provider.Model()
	}
	// Model unavailability is never surfaced to the caller.
	vec, _ = x.fallback.Embed(ctx, text)
	return vec, x.fallback.Model()
}

// StoreEmbedding upserts a vector keyed by (promptID, promptType).
func (x *Index) StoreEmbedding(promptID, promptType string, vec []float64, contentHash, model string) error {
	data, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("embeddings: marshal vector: %w", err)
	}
	_, err = x.db.Exec(
		`INSERT OR REPLACE INTO prompt_embeddings
		 (prompt_id, prompt_type, embedding_json, content_hash, model_name)
		 VALUES (?, ?, ?, ?, ?)`,
		promptID, promptType, string(data), contentHash, model,
	)
	if err != nil {
		return fmt.Errorf("embeddings: store %s/%s: %w", promptType, promptID, err)
	}
	return nil
}

// GetEmbedding retrieves a stored vector, or nil if absent.
func (x *Index) GetEmbedding(promptID, promptType string) ([]float64, error) {
	row := x.db.QueryRow(
		`SELECT embedding_json FROM prompt_embeddings WHERE prompt_id = ? AND prompt_type = ?`,
		promptID, promptType,
	)
	var data string
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("embeddings: get %s/%s: %w", promptType, promptID, err)
	}
	var vec []float64
	if err := json.Unmarshal([]byte(data), &vec); err != nil {
		return nil, fmt.Errorf("embeddings: decode %s/%s: %w", promptType, promptID, err)
	}
	return vec, nil
}

// FindSimilar ranks stored vectors against the query vector. Results
// are filtered by minSimilarity, sorted descending (stable for ties),
// and capped at topK.
//
// On the first search against an empty store, every builtin and custom
// prompt is embedded and stored before answering. Per-item indexing
// failures are returned as diagnostics and never abort the search.
func (x *Index) FindSimilar(ctx context.Context, queryVec []float64, topK int, minSimilarity float64) ([]Match, []Diagnostic, error) {
	diags, err := x.ensureIndexed(ctx)
	if err != nil {
		return nil, diags, err
	}

	rows, err := x.db.Query(`SELECT prompt_id, prompt_type, embedding_json FROM prompt_embeddings`)
	if err != nil {
		return nil, diags, fmt.Errorf("embeddings: scan: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []Match
	for rows.Next() {
		var id, typ, data string
		if err := rows.Scan(&id, &typ, &data); err != nil {
			return nil, diags, err
		}
		var vec []float64
		if err := json.Unmarshal([]byte(data), &vec); err != nil {
			continue // a corrupt row never fails the whole search
		}
		if sim := CosineSimilarity(queryVec, vec); sim >= minSimilarity {
			matches = append(matches, Match{PromptID: id, PromptType: typ, Similarity: sim})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, diags, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, diags, nil
}

// ensureIndexed triggers a one-time full indexing pass when the store
// is empty. Two concurrent first searches would both index; harmless,
// since stores are idempotent upserts keyed by reference.
func (x *Index) ensureIndexed(ctx context.Context) ([]Diagnostic, error) {
	if x.autoIndexed {
		return nil, nil
	}

	var count int
	if err := x.db.QueryRow(`SELECT COUNT(*) FROM prompt_embeddings`).Scan(&count); err != nil {
		return nil, fmt.Errorf("embeddings: count: %w", err)
	}

	var diags []Diagnostic
	if count == 0 {
		diags = x.indexAll(ctx)
	}
	x.autoIndexed = true
	return diags, nil
}

// indexAll embeds and stores every known builtin and custom prompt.
// Each item fails independently; nothing here aborts the batch.
func (x *Index) indexAll(ctx context.Context) []Diagnostic {
	var diags []Diagnostic

	for _, name := range registry.BuiltinNames() {
		block, err := x.reg.Builtin(name)
		if err != nil {
			diags = append(diags, Diagnostic{Ref: name, Kind: registry.TypeBuiltin, Err: err.Error()})
			continue
		}
		vec, model := x.Embed(ctx, block.Content)
		if err := x.StoreEmbedding(name, registry.TypeBuiltin, vec, registry.ContentHash(block.Content), model); err != nil {
			diags = append(diags, Diagnostic{Ref: name, Kind: registry.TypeBuiltin, Err: err.Error()})
		}
	}

	entries, err := x.reg.CustomContents()
	if err != nil {
		diags = append(diags, Diagnostic{Ref: "*", Kind: registry.TypeCustom, Err: err.Error()})
		return diags
	}
	for _, entry := range entries {
		if entry.Content == "" {
			diags = append(diags, Diagnostic{Ref: entry.Name, Kind: registry.TypeCustom, Err: "no readable content"})
			continue
		}
		vec, model := x.Embed(ctx, entry.Content)
		if err := x.StoreEmbedding(entry.Name, registry.TypeCustom, vec, registry.ContentHash(entry.Content), model); err != nil {
			diags = append(diags, Diagnostic{Ref: entry.Name, Kind: registry.TypeCustom, Err: err.Error()})
		}
	}
	return diags
}
