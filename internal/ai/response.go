package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/apisift/apisift-go/internal/model"
	"github.com/apisift/apisift-go/internal/parser"
)

// Maximum allowed JSON response size (1MB) to prevent memory exhaustion
const maxJSONResponseSize = 1024 * 1024

// llmSource tags records recovered from an LLM response rather than
// directly from the log text.
const llmSource = "llm"

var (
	codeBlockPattern     = regexp.MustCompile("```(?:json)?\\s*(\\[[\\s\\S]*?\\]|\\{[\\s\\S]*?\\})\\s*```")
	trailingCommaPattern = regexp.MustCompile(`,(\s*[}\]])`)
)

// ParseCalls extracts API calls from an LLM response. The model is asked
// for a bare JSON array but in practice wraps it in prose or code fences,
// truncates it mid-array, leaves trailing commas, or invents escape
// sequences; all of that is repaired here before decoding. Individual
// array items that fail to convert are skipped.
//
// A response with no locatable JSON yields an empty result, not an error:
// the model may legitimately answer that the log contains no calls.
func ParseCalls(response string) ([]model.ApiCall, error) {
	jsonText := extractResponseJSON(response)
	if jsonText == "" {
		return nil, nil
	}

	if len(jsonText) > maxJSONResponseSize {
		return nil, fmt.Errorf("JSON response too large: %d bytes (max: %d)", len(jsonText), maxJSONResponseSize)
	}

	jsonText = sanitizeJSONEscapes(jsonText)

	var doc any
	if err := json.Unmarshal([]byte(jsonText), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	items, ok := doc.([]any)
	if !ok {
		// A single object response is wrapped as a one-element batch.
		items = []any{doc}
	}

	var calls []model.ApiCall
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if call, ok := parser.CallFromObject(obj, llmSource); ok {
			calls = append(calls, call)
		}
	}

	return calls, nil
}

// extractResponseJSON locates the JSON payload inside free-form model
// output: a fenced code block first, then a bare array, then a bare
// object. Trailing commas are stripped and truncated arrays are re-closed
// at the last complete element.
func extractResponseJSON(text string) string {
	if m := codeBlockPattern.FindStringSubmatch(text); m != nil {
		return trailingCommaPattern.ReplaceAllString(m[1], "$1")
	}

	if arr := extractBalanced(text, '[', ']'); arr != "" {
		return trailingCommaPattern.ReplaceAllString(arr, "$1")
	}

	if obj := extractBalanced(text, '{', '}'); obj != "" {
		return trailingCommaPattern.ReplaceAllString(obj, "$1")
	}

	return ""
}

// extractBalanced returns the first balanced open..closer span in text,
// tracking string literals and escapes so braces inside values don't
// count. A span that never closes (a truncated response) is repaired by
// cutting at the last complete '}' and appending the closer.
func extractBalanced(text string, open, closer byte) string {
	startIdx := strings.IndexByte(text, open)
	if startIdx == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := startIdx; i < len(text); i++ {
		char := text[i]

		if escaped {
			escaped = false
			continue
		}
		if char == '\\' && inString {
			escaped = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		if char == open {
			depth++
		} else if char == closer {
			depth--
			if depth == 0 {
				return text[startIdx : i+1]
			}
		}
	}

	// Never closed: the response was cut off mid-stream. Salvage the
	// complete elements.
	if open == '[' {
		truncated := text[startIdx:]
		if last := strings.LastIndexByte(truncated, '}'); last > 0 {
			return truncated[:last+1] + "]"
		}
	}

	return ""
}

// sanitizeJSONEscapes fixes invalid JSON escape sequences in LLM responses.
// JSON only allows: \" \\ \/ \b \f \n \r \t \uXXXX
// LLMs sometimes produce invalid sequences like \. \( \) \- etc.
func sanitizeJSONEscapes(s string) string {
	var result strings.Builder
	result.Grow(len(s))

	i := 0
	for i < len(s) {
		if s[i] == '\\' && i+1 < len(s) {
			next := s[i+1]
			// Valid JSON escapes: " \ / b f n r t u
			if next == '"' || next == '\\' || next == '/' ||
				next == 'b' || next == 'f' || next == 'n' ||
				next == 'r' || next == 't' || next == 'u' {
				result.WriteByte(s[i])
				result.WriteByte(next)
				i += 2
				continue
			}
			// Invalid escape - skip the backslash, keep the character
			result.WriteByte(next)
			i += 2
			continue
		}
		result.WriteByte(s[i])
		i++
	}
	return result.String()
}
