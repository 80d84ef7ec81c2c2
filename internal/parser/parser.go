// Package parser recovers structured API calls from raw log text.
//
// Three format parsers cover the input shapes seen in the wild: structured
// JSON (single object, array, or JSON-Lines), raw HTTP request dumps, and
// unstructured free text. Each parser implements the same two-method
// contract so the extractor can sniff the format and dispatch.
package parser

import (
	"errors"

	"github.com/apisift/apisift-go/internal/model"
)

// Parser is the capability contract every format parser implements.
type Parser interface {
	// Name identifies the parser for format-detection diagnostics.
	Name() string

	// CanParse is a cheap, non-throwing format heuristic. It must not
	// attempt full extraction; it exists purely for dispatch.
	CanParse(text string) bool

	// Parse extracts API calls from text. An empty result with a nil
	// error means the format matched but nothing was recoverable; an
	// error is reserved for structural failures mid-scan.
	Parse(text, sourceFile string) ([]model.ApiCall, error)
}

var (
	// ErrNoAPICalls is returned when no parser recognized the input
	// format, or every matching parser came back empty.
	ErrNoAPICalls = errors.New("no API calls recoverable from log input")

	// ErrFileNotFound distinguishes a missing log file from a read
	// failure on an existing one.
	ErrFileNotFound = errors.New("log file not found")
)
