package parser

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/apisift/apisift-go/internal/model"
)

// Extractor auto-detects the log format and dispatches to the matching
// parser. The parser order is a deliberate priority: JSON is the least
// ambiguous signal, HTTP dumps the next most structured, and free text is
// tried last because its patterns would also match structured logs.
//
// Extractors hold no mutable state after construction, so a single
// instance may be shared across goroutines.
type Extractor struct {
	parsers []Parser
}

// NewExtractor creates an extractor with the default parser priority:
// JSON, HTTP dump, free text.
func NewExtractor() *Extractor {
	return &Extractor{
		parsers: []Parser{
			NewJSONParser(),
			NewHTTPParser(),
			NewTextParser(),
		},
	}
}

// NewExtractorWith creates an extractor with a custom parser list, tried
// in the given order.
func NewExtractorWith(parsers ...Parser) *Extractor {
	return &Extractor{parsers: parsers}
}

// Extract recovers API calls from raw log text.
//
// Empty or whitespace-only input yields an empty result and no error.
// The first parser whose CanParse matches is invoked; a non-empty result
// is returned immediately. A matching parser that yields nothing (or
// fails structurally) cedes to the next matching parser. When nothing
// matches or every match comes back empty, ErrNoAPICalls is returned.
func (e *Extractor) Extract(text, sourceFile string) ([]model.ApiCall, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	for _, p := range e.parsers {
		if !p.CanParse(text) {
			continue
		}
		calls, err := p.Parse(text, sourceFile)
		if err != nil {
			// This parser failed mid-scan; let the next format try.
			continue
		}
		if len(calls) > 0 {
			return calls, nil
		}
	}

	return nil, ErrNoAPICalls
}

// ExtractFromFile reads a UTF-8 log file and extracts API calls from it,
// tagging records with the file path. Missing files and read failures are
// distinct error kinds, both distinct from ErrNoAPICalls.
func (e *Extractor) ExtractFromFile(path string) ([]model.ApiCall, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to read log file %s: %w", path, err)
	}

	if !utf8.Valid(data) {
		return nil, fmt.Errorf("log file %s is not valid UTF-8", path)
	}

	return e.Extract(string(data), path)
}

// DetectFormat returns the name of the first parser whose CanParse
// matches, or the empty string when no format is recognized. Detection is
// independent of whether extraction would actually yield calls.
func (e *Extractor) DetectFormat(text string) string {
	for _, p := range e.parsers {
		if p.CanParse(text) {
			return p.Name()
		}
	}
	return ""
}
