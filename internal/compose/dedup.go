package compose

import (
	"regexp"
	"strings"
)

// paragraphSplit matches one or more blank lines (possibly containing
// whitespace) separating paragraphs.
var paragraphSplit = regexp.MustCompile(`\n\s*\n`)

// duplicatePreviewLen is how many characters of a removed duplicate
// paragraph are kept in the preview list.
const duplicatePreviewLen = 50

// DeduplicateParagraphs removes duplicate paragraphs across all content
// blocks while preserving first-seen order and original formatting.
//
// Deduplication is global: a paragraph seen in the first block suppresses
// an identical paragraph in any later block. Paragraph identity is the
// whitespace-normalized text (internal runs collapsed to single spaces,
// ends trimmed), but the retained text is the first occurrence as
// originally formatted. Retained paragraphs are joined with a blank line.
//
// The second return value lists previews of the removed duplicates.
func DeduplicateParagraphs(contents []string, separator string) (string, []string) {
	seen := make(map[string]bool)
	var kept []string
	var duplicates []string

	for _, content := range contents {
		for _, para := range splitParagraphs(content) {
			key := strings.Join(strings.Fields(para), " ")
			if seen[key] {
				duplicates = append(duplicates, previewParagraph(para))
				continue
			}
			seen[key] = true
			kept = append(kept, para)
		}
	}

	return strings.Join(kept, "\n\n"), duplicates
}

// splitParagraphs breaks content on blank-line boundaries, trimming each
// paragraph and discarding whitespace-only ones.
func splitParagraphs(content string) []string {
	var paras []string
	for _, p := range paragraphSplit.Split(content, -1) {
		p = strings.TrimSpace(p)
		if p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

func previewParagraph(para string) string {
	if len(para) <= duplicatePreviewLen {
		return para + "..."
	}
	return para[:duplicatePreviewLen] + "..."
}
