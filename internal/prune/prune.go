// Package prune trims the oldest lines from the memory bank's progress
// file, optionally archiving them under a dated file so nothing is
// silently lost.
package prune

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Result reports the effect of a prune run.
type Result struct {
	Pruned     int    `json:"pruned"`
	Remaining  int    `json:"remaining"`
	ArchivedTo string `json:"archived_to,omitempty"`
}

// Params configures a prune run.
type Params struct {
	// Count is the number of oldest lines to remove. Defaults to 10.
	Count int
	// Archive appends pruned lines to an archive file when true.
	Archive bool
	// ArchivePath overrides the default dated archive location.
	ArchivePath string
}

// Pruner operates on a memory bank directory containing progress.md.
type Pruner struct {
	baseDir string
}

// New creates a Pruner rooted at the given memory bank directory.
func New(baseDir string) *Pruner {
	return &Pruner{baseDir: baseDir}
}

// Prune removes the oldest lines from progress.md. A missing file is
// created empty and reported as a zero prune. When archiving, pruned
// lines are appended under a dated header, to either the configured
// path or memory-bank/archive/YYYY-MM-DD.md.
func (p *Pruner) Prune(params Params) (*Result, error) {
	if params.Count == 0 {
		params.Count = 10
	}

	memoryFile := filepath.Join(p.baseDir, "progress.md")
	if err := os.MkdirAll(p.baseDir, 0755); err != nil {
		return nil, fmt.Errorf("prune: create memory dir: %w", err)
	}

	data, err := os.ReadFile(memoryFile)
	if os.IsNotExist(err) {
		if err := os.WriteFile(memoryFile, nil, 0644); err != nil {
			return nil, fmt.Errorf("prune: initialize memory file: %w", err)
		}
		return &Result{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("prune: read memory file: %w", err)
	}

	lines := splitKeepEnds(string(data))
	if len(lines) == 0 || params.Count < 0 {
		return &Result{Remaining: len(lines)}, nil
	}

	cut := params.Count
	if cut > len(lines) {
		cut = len(lines)
	}
	pruned, remaining := lines[:cut], lines[cut:]

	result := &Result{Pruned: len(pruned), Remaining: len(remaining)}
	if params.Archive && len(pruned) > 0 {
		archivedTo, err := p.appendArchive(pruned, params.ArchivePath)
		if err != nil {
			return nil, err
		}
		result.ArchivedTo = archivedTo
	}

	if err := os.WriteFile(memoryFile, []byte(strings.Join(remaining, "")), 0644); err != nil {
		return nil, fmt.Errorf("prune: write memory file: %w", err)
	}
	return result, nil
}

func (p *Pruner) appendArchive(lines []string, archivePath string) (string, error) {
	if archivePath == "" {
		archiveDir := filepath.Join(p.baseDir, "archive")
		if err := os.MkdirAll(archiveDir, 0755); err != nil {
			return "", fmt.Errorf("prune: create archive dir: %w", err)
		}
		archivePath = filepath.Join(archiveDir, time.Now().Format("2006-01-02")+".md")
	}

	f, err := os.OpenFile(archivePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return "", fmt.Errorf("prune: open archive: %w", err)
	}
	defer func() { _ = f.Close() }()

	header := fmt.Sprintf("\n---\n# Pruned on %s\n", time.Now().Format(time.RFC3339))
	if _, err := f.WriteString(header + strings.Join(lines, "")); err != nil {
		return "", fmt.Errorf("prune: write archive: %w", err)
	}
	return archivePath, nil
}

// splitKeepEnds splits text into lines keeping the trailing newline on
// each, so joining the pieces reproduces the input byte for byte.
func splitKeepEnds(text string) []string {
	if text == "" {
		return nil
	}
	var lines []string
	for {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			lines = append(lines, text)
			break
		}
		lines = append(lines, text[:i+1])
		text = text[i+1:]
		if text == "" {
			break
		}
	}
	return lines
}
