package embeddings

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/shippopotamus/promptops/internal/registry"
)

func newTestIndex(t *testing.T, provider Provider) (*Index, *registry.Store) {
	t.Helper()
	reg, err := registry.New(registry.Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	t.Cleanup(func() { _ = reg.Close() })

	idx, err := NewIndex(reg, provider)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	return idx, reg
}

// failingProvider always errors, forcing the hash fallback path.
type failingProvider struct{}

func (failingProvider) Embed(context.Context, string) ([]float64, error) {
	return nil, errors.New("model unavailable")
}
func (failingProvider) Model() string   { return "broken" }
func (failingProvider) Dimensions() int { return DefaultDimensions }

// ─── Hash provider ───────────────────────────────────────────────────

func TestHashProviderDeterministic(t *testing.T) {
	p := NewHashProvider(DefaultDimensions)
	a, err := p.Embed(context.Background(), "some prompt text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	b, _ := p.Embed(context.Background(), "some prompt text")
	if len(a) != DefaultDimensions {
		t.Fatalf("dimensions = %d, want %d", len(a), DefaultDimensions)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vector not deterministic at dim %d: %v != %v", i, a[i], b[i])
		}
	}
}

func TestHashProviderRange(t *testing.T) {
	p := NewHashProvider(DefaultDimensions)
	vec, _ := p.Embed(context.Background(), "range check")
	for i, v := range vec {
		if v < -0.5 || v > 0.5 {
			t.Fatalf("dim %d = %v, want within [-0.5, 0.5]", i, v)
		}
	}
	// sha256 yields 32 byte pairs; the rest is zero padding.
	for i := 32; i < len(vec); i++ {
		if vec[i] != 0 {
			t.Fatalf("padding dim %d = %v, want 0", i, vec[i])
		}
	}
}

func TestHashProviderDistinctTexts(t *testing.T) {
	p := NewHashProvider(DefaultDimensions)
	a, _ := p.Embed(context.Background(), "alpha")
	b, _ := p.Embed(context.Background(), "beta")
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different texts produced identical vectors")
	}
}

// ─── Cosine similarity ───────────────────────────────────────────────

func TestCosineSimilarityProperties(t *testing.T) {
	approx := func(got, want float64) {
		t.Helper()
		if math.Abs(got-want) > 1e-3 {
			t.Fatalf("similarity = %v, want %v", got, want)
		}
	}

	a := []float64{1, 2, 3}
	approx(CosineSimilarity(a, a), 1)
	approx(CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 0)
	approx(CosineSimilarity([]float64{1, 2}, []float64{-1, -2}), -1)
}

func TestCosineSimilarityDegenerate(t *testing.T) {
	if got := CosineSimilarity([]float64{0, 0}, []float64{1, 1}); got != 0 {
		t.Fatalf("zero vector similarity = %v, want 0", got)
	}
	if got := CosineSimilarity([]float64{1, 2}, []float64{1, 2, 3}); got != 0 {
		t.Fatalf("length mismatch similarity = %v, want 0", got)
	}
	if got := CosineSimilarity(nil, nil); got != 0 {
		t.Fatalf("empty vectors similarity = %v, want 0", got)
	}
}

// ─── Index ───────────────────────────────────────────────────────────

func TestStoreAndGetEmbedding(t *testing.T) {
	idx, _ := newTestIndex(t, nil)

	vec := []float64{0.1, -0.2, 0.3}
	if err := idx.StoreEmbedding("p1", registry.TypeCustom, vec, "hash1", "hash-fallback"); err != nil {
		t.Fatalf("StoreEmbedding: %v", err)
	}
	got, err := idx.GetEmbedding("p1", registry.TypeCustom)
	if err != nil {
		t.Fatalf("GetEmbedding: %v", err)
	}
	if len(got) != 3 || got[0] != 0.1 || got[1] != -0.2 || got[2] != 0.3 {
		t.Fatalf("round-trip vector = %v", got)
	}
}

func TestGetEmbeddingAbsent(t *testing.T) {
	idx, _ := newTestIndex(t, nil)
	got, err := idx.GetEmbedding("nope", registry.TypeBuiltin)
	if err != nil {
		t.Fatalf("GetEmbedding: %v", err)
	}
	if got != nil {
		t.Fatalf("absent embedding = %v, want nil", got)
	}
}

func TestStoreEmbeddingUpsert(t *testing.T) {
	idx, _ := newTestIndex(t, nil)

	if err := idx.StoreEmbedding("p1", registry.TypeCustom, []float64{1}, "h1", "m"); err != nil {
		t.Fatal(err)
	}
	if err := idx.StoreEmbedding("p1", registry.TypeCustom, []float64{2}, "h2", "m"); err != nil {
		t.Fatal(err)
	}
	got, err := idx.GetEmbedding("p1", registry.TypeCustom)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("after upsert got %v, want [2]", got)
	}
}

func TestFindSimilarRanking(t *testing.T) {
	idx, _ := newTestIndex(t, nil)

	// Pre-populate so auto-indexing of builtins stays out of the way.
	store := func(id string, vec []float64) {
		t.Helper()
		if err := idx.StoreEmbedding(id, registry.TypeCustom, vec, "h", "m"); err != nil {
			t.Fatal(err)
		}
	}
	store("exact", []float64{1, 0, 0})
	store("close", []float64{0.9, 0.1, 0})
	store("orthogonal", []float64{0, 1, 0})
	store("opposite", []float64{-1, 0, 0})

	matches, diags, err := idx.FindSimilar(context.Background(), []float64{1, 0, 0}, 10, 0.5)
	if err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2 above threshold", len(matches))
	}
	if matches[0].PromptID != "exact" || matches[1].PromptID != "close" {
		t.Fatalf("ranking = [%s, %s], want [exact, close]", matches[0].PromptID, matches[1].PromptID)
	}
	if matches[0].Similarity < matches[1].Similarity {
		t.Fatal("results not sorted by descending similarity")
	}
}

func TestFindSimilarTopK(t *testing.T) {
	idx, _ := newTestIndex(t, nil)

	vecs := [][]float64{{1, 0}, {0.9, 0.1}, {0.8, 0.2}, {0.7, 0.3}}
	for i, v := range vecs {
		if err := idx.StoreEmbedding(string(rune('a'+i)), registry.TypeCustom, v, "h", "m"); err != nil {
			t.Fatal(err)
		}
	}
	matches, _, err := idx.FindSimilar(context.Background(), []float64{1, 0}, 2, -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %d, want topK = 2", len(matches))
	}
}

func TestFindSimilarAutoIndexesBuiltins(t *testing.T) {
	idx, reg := newTestIndex(t, nil)

	query, _ := NewHashProvider(DefaultDimensions).Embed(context.Background(), "plan before acting")
	matches, diags, err := idx.FindSimilar(context.Background(), query, 50, -1)
	if err != nil {
		t.Fatalf("FindSimilar: %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if len(matches) != len(registry.BuiltinNames()) {
		t.Fatalf("auto-index produced %d matches, want %d builtins", len(matches), len(registry.BuiltinNames()))
	}

	// A stored vector for every builtin.
	for _, name := range registry.BuiltinNames() {
		vec, err := idx.GetEmbedding(name, registry.TypeBuiltin)
		if err != nil {
			t.Fatal(err)
		}
		if vec == nil {
			t.Fatalf("builtin %q not indexed", name)
		}
	}
	_ = reg
}

func TestFindSimilarAutoIndexIncludesCustom(t *testing.T) {
	idx, reg := newTestIndex(t, nil)

	if _, err := reg.Save(registry.SaveParams{Name: "my_rules", Content: "always write tests"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	query, _ := NewHashProvider(DefaultDimensions).Embed(context.Background(), "tests")
	matches, _, err := idx.FindSimilar(context.Background(), query, 100, -1)
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, m := range matches {
		if m.PromptID == "my_rules" && m.PromptType == registry.TypeCustom {
			found = true
		}
	}
	if !found {
		t.Fatal("custom prompt missing from auto-indexed results")
	}
}

func TestFindSimilarAutoIndexOnce(t *testing.T) {
	idx, _ := newTestIndex(t, nil)

	query := make([]float64, DefaultDimensions)
	query[0] = 1
	first, _, err := idx.FindSimilar(context.Background(), query, 1000, -1)
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := idx.FindSimilar(context.Background(), query, 1000, -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(second) {
		t.Fatalf("repeat search changed result count: %d then %d", len(first), len(second))
	}
}

// ─── Provider fallback ───────────────────────────────────────────────

func TestEmbedFallsBackOnProviderError(t *testing.T) {
	idx, _ := newTestIndex(t, failingProvider{})

	vec, model := idx.Embed(context.Background(), "hello")
	if model != "hash-fallback" {
		t.Fatalf("model = %q, want hash-fallback", model)
	}
	want, _ := NewHashProvider(DefaultDimensions).Embed(context.Background(), "hello")
	if len(vec) != len(want) {
		t.Fatalf("fallback dims = %d, want %d", len(vec), len(want))
	}
	for i := range vec {
		if vec[i] != want[i] {
			t.Fatalf("fallback vector differs at dim %d", i)
		}
	}
}

func TestEmbedUsesPrimaryWhenHealthy(t *testing.T) {
	idx, _ := newTestIndex(t, NewHashProvider(16))

	vec, model := idx.Embed(context.Background(), "hello")
	if model != "hash-fallback" {
		t.Fatalf("model = %q", model)
	}
	if len(vec) != 16 {
		t.Fatalf("dims = %d, want primary provider's 16", len(vec))
	}
}
