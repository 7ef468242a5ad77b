package registry

import (
	"embed"
	"sort"
)

//go:embed builtin/*.md
var builtinFS embed.FS

// BuiltinPrompt describes one entry in the curated prompt library.
type BuiltinPrompt struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	file        string
}

// builtinCatalog maps prompt names to their embedded library files.
// Categories mirror the library layout: methodologies, patterns, meta.
var builtinCatalog = map[string]BuiltinPrompt{
	"ask_plan_act":          {Name: "ask_plan_act", Category: "methodologies", Description: "Core Ask→Plan→Act methodology", file: "builtin/ask_plan_act.md"},
	"quality_axioms":        {Name: "quality_axioms", Category: "methodologies", Description: "Quality and best practices", file: "builtin/quality_axioms.md"},
	"patterns":              {Name: "patterns", Category: "methodologies", Description: "Meta-patterns for prompt design", file: "builtin/patterns.md"},
	"safe_coding":           {Name: "safe_coding", Category: "patterns", Description: "Safe coding practices", file: "builtin/safe_coding.md"},
	"context_economy":       {Name: "context_economy", Category: "patterns", Description: "Context-aware prompt loading", file: "builtin/context_economy.md"},
	"echo_emoji":            {Name: "echo_emoji", Category: "patterns", Description: "Echo-emoji contract pattern", file: "builtin/echo_emoji.md"},
	"debugging_methodology": {Name: "debugging_methodology", Category: "patterns", Description: "Systematic debugging approach", file: "builtin/debugging_methodology.md"},
	"code_review":           {Name: "code_review", Category: "patterns", Description: "Comprehensive code review checklist", file: "builtin/code_review.md"},
	"documentation":         {Name: "documentation", Category: "patterns", Description: "Documentation best practices", file: "builtin/documentation.md"},
	"testing_strategy":      {Name: "testing_strategy", Category: "patterns", Description: "Test-driven development guide", file: "builtin/testing_strategy.md"},
	"implementation_guide":  {Name: "implementation_guide", Category: "meta", Description: "Implementation planning", file: "builtin/implementation_guide.md"},
	"design_rationale":      {Name: "design_rationale", Category: "meta", Description: "Design decisions and rationale", file: "builtin/design_rationale.md"},
}

// BuiltinNames returns all builtin prompt names, sorted for deterministic
// iteration (auto-indexing and listing depend on a stable order).
func BuiltinNames() []string {
	names := make([]string, 0, len(builtinCatalog))
	for name := range builtinCatalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuiltinCatalog returns the catalog entries grouped by category, each
// group sorted by name.
func BuiltinCatalog() map[string][]BuiltinPrompt {
	grouped := make(map[string][]BuiltinPrompt)
	for _, name := range BuiltinNames() {
		p := builtinCatalog[name]
		grouped[p.Category] = append(grouped[p.Category], p)
	}
	return grouped
}

// builtinContent reads a builtin prompt's content from the embedded
// library. Returns false if the name is not in the catalog.
func builtinContent(name string) (string, bool) {
	p, ok := builtinCatalog[name]
	if !ok {
		return "", false
	}
	data, err := builtinFS.ReadFile(p.file)
	if err != nil {
		return "", false
	}
	return string(data), true
}
