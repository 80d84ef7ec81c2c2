package model

import (
	"fmt"
	"strings"
)

// LogEntry is one raw input line before parsing. Entries are created
// transiently by line-oriented parsers and never persisted.
type LogEntry struct {
	Text       string
	LineNumber int // 1-based
	SourceFile string
}

func (e LogEntry) String() string {
	text := e.Text
	if len(text) > 50 {
		text = text[:50] + "..."
	}
	return fmt.Sprintf("LogEntry(line=%d, text=%s)", e.LineNumber, text)
}

// SplitEntries converts raw log text into LogEntry values: one per
// non-blank line, trimmed, with 1-based line numbers preserved from the
// original text.
func SplitEntries(text, sourceFile string) []LogEntry {
	var entries []LogEntry
	for i, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		entries = append(entries, LogEntry{
			Text:       trimmed,
			LineNumber: i + 1,
			SourceFile: sourceFile,
		})
	}
	return entries
}
