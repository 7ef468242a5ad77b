package compose

import (
	"fmt"
	"strings"
)

// DefaultSeparator joins composed prompts when the caller does not
// supply one.
const DefaultSeparator = "\n\n---\n\n"

// TextBlock is a resolved unit of prompt content. Immutable once loaded;
// Tokens is derived from Content.
type TextBlock struct {
	Ref     string `json:"ref"`
	Name    string `json:"name"`
	Content string `json:"content"`
	Type    string `json:"type"` // "builtin", "custom", or "file"
	Path    string `json:"path,omitempty"`
	Tokens  int    `json:"tokens"`
}

// Resolver looks up a prompt reference and returns its content.
// Implemented by the registry; injected so composition stays a pure
// computation over its inputs.
type Resolver interface {
	Resolve(ref string) (TextBlock, error)
}

// RefError records a reference that failed to resolve.
type RefError struct {
	Ref   string `json:"ref"`
	Error string `json:"error"`
}

// EmptyResultError is returned when zero references resolve: there is
// nothing to compose. Per-reference failures are carried along so the
// caller can still report them.
type EmptyResultError struct {
	Errors []RefError
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("no prompts could be loaded (%d reference errors)", len(e.Errors))
}

// Source describes one resolved input in the result metadata.
type Source struct {
	Ref    string `json:"ref"`
	Type   string `json:"type"`
	Tokens int    `json:"tokens"`
}

// Metadata carries per-composition bookkeeping.
type Metadata struct {
	Sources             []Source   `json:"sources"`
	TotalOriginalTokens int        `json:"total_original_tokens"`
	RemovedDuplicates   []string   `json:"removed_duplicates"`
	Trimmed             *TrimStats `json:"trimmed,omitempty"`
}

// Result is the output of a composition. Created fresh per call.
type Result struct {
	Content  string      `json:"content"`
	Tokens   int         `json:"tokens"`
	Metadata Metadata    `json:"metadata"`
	Sources  []TextBlock `json:"sources"`
	Errors   []RefError  `json:"errors"`
}

// Request describes one composition call. Not persisted.
type Request struct {
	Refs        []string
	Deduplicate bool
	MaxTokens   int // 0 means no budget
	Separator   string
}

// Composer orchestrates resolution, deduplication, and budget trimming.
type Composer struct {
	resolver Resolver
	ratio    float64
}

// NewComposer creates a Composer. A non-positive ratio falls back to
// DefaultTokenRatio.
func NewComposer(resolver Resolver, ratio float64) *Composer {
	if ratio <= 0 {
		ratio = DefaultTokenRatio
	}
	return &Composer{resolver: resolver, ratio: ratio}
}

// Ratio returns the configured character-to-token ratio.
func (c *Composer) Ratio() float64 { return c.ratio }

// Estimate applies the configured ratio to text.
func (c *Composer) Estimate(text string) int {
	return EstimateTokens(text, c.ratio)
}

// Compose resolves the requested references and combines them into a
// single prompt. A bad reference produces an entry in the result's error
// list rather than aborting the batch; only zero resolved references
// escalate to an EmptyResultError.
//
// When a token budget is supplied and the composed text exceeds it, the
// already-produced text is discarded and the raw resolved contents are
// re-joined through TrimToBudget. Trimming therefore supersedes
// deduplication output; this matches the historical behavior and is kept
// deliberately (duplicates can reappear in a budget-trimmed result even
// when Deduplicate was requested).
func (c *Composer) Compose(req Request) (*Result, error) {
	separator := req.Separator
	if separator == "" {
		separator = DefaultSeparator
	}

	var (
		loaded   []TextBlock
		refErrs  []RefError
		contents []string
	)
	for _, ref := range req.Refs {
		block, err := c.resolver.Resolve(ref)
		if err != nil {
			refErrs = append(refErrs, RefError{Ref: ref, Error: err.Error()})
			continue
		}
		loaded = append(loaded, block)
		contents = append(contents, block.Content)
	}

	if len(loaded) == 0 {
		return nil, &EmptyResultError{Errors: refErrs}
	}

	meta := Metadata{RemovedDuplicates: []string{}}
	for _, block := range loaded {
		meta.Sources = append(meta.Sources, Source{Ref: block.Ref, Type: block.Type, Tokens: block.Tokens})
		meta.TotalOriginalTokens += block.Tokens
	}

	var content string
	if req.Deduplicate {
		content, meta.RemovedDuplicates = DeduplicateParagraphs(contents, separator)
		if meta.RemovedDuplicates == nil {
			meta.RemovedDuplicates = []string{}
		}
	} else {
		content = strings.Join(contents, separator)
	}

	tokens := c.Estimate(content)
	if req.MaxTokens > 0 && tokens > req.MaxTokens {
		var stats TrimStats
		content, stats = TrimToBudget(contents, req.MaxTokens, separator, c.ratio)
		meta.Trimmed = &stats
		tokens = c.Estimate(content)
	}

	// Empty slices, not nil: clients see [] rather than null.
	if refErrs == nil {
		refErrs = []RefError{}
	}

	return &Result{
		Content:  content,
		Tokens:   tokens,
		Metadata: meta,
		Sources:  loaded,
		Errors:   refErrs,
	}, nil
}
