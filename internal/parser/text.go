package parser

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/apisift/apisift-go/internal/model"
)

// The four call patterns, in priority order. The first match on a line
// wins; at most one call is produced per line.
var textPatterns = []*regexp.Regexp{
	// "GET /users/123" or "get http://host/path?x=1"
	regexp.MustCompile(`(?i)\b(` + model.MethodNames() + `)\s+([/\w.:-]+(?:\?[\w=&.-]+)?)`),
	// "method: GET /users", "Request: POST /x", "API call: DELETE /y"
	regexp.MustCompile(`(?i)(?:method|request|api[\s_]?call):\s*(` + model.MethodNames() + `)\s+([/\w.:-]+(?:\?[\w=&.-]+)?)`),
	// "HTTP/1.1 GET /users"
	regexp.MustCompile(`(?i)HTTP/[\d.]+\s+(` + model.MethodNames() + `)\s+([/\w.:-]+(?:\?[\w=&.-]+)?)`),
	// "curl -X POST https://host/path"
	regexp.MustCompile(`(?i)curl\s+(?:-X\s+)?(` + model.MethodNames() + `)\s+(https?://[\w./:?=&-]+)`),
}

// Auxiliary patterns fill in extra fields from the same line. Each is
// independent and entirely optional.
var (
	textBodyPattern = regexp.MustCompile(
		`(?i)(?:with\s+)?(?:body|data|payload)[\s:=]+['"]?({[^}]+}|\[[^\]]+\])`)
	textHeaderPattern = regexp.MustCompile(
		`(?i)(?:header|headers)[\s:=]+['"]?([^'"]+)`)
	textStatusPattern = regexp.MustCompile(
		`(?i)(?:status|response)[\s:=]+(\d{3})`)
	textTimestampPattern = regexp.MustCompile(
		`\[?(\d{4}-\d{2}-\d{2}[T\s]\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:\d{2})?)\]?`)
)

// TextParser extracts API calls from unstructured free-text logs via
// ordered regex patterns. It works strictly line by line, unlike the
// block-based HTTP parser.
type TextParser struct{}

// NewTextParser creates a free-text log parser.
func NewTextParser() *TextParser { return &TextParser{} }

// Name implements Parser.
func (p *TextParser) Name() string { return "text" }

// CanParse reports whether any of the call patterns matches anywhere in
// the text.
func (p *TextParser) CanParse(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	for _, pattern := range textPatterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// Parse implements Parser. Lines matching no pattern yield no record and
// no error.
func (p *TextParser) Parse(text, sourceFile string) ([]model.ApiCall, error) {
	var calls []model.ApiCall
	for _, entry := range model.SplitEntries(text, sourceFile) {
		if call, ok := parseTextLine(entry); ok {
			calls = append(calls, call)
		}
	}
	return calls, nil
}

func parseTextLine(entry model.LogEntry) (model.ApiCall, bool) {
	for _, pattern := range textPatterns {
		m := pattern.FindStringSubmatch(entry.Text)
		if m == nil {
			continue
		}

		method, ok := model.ParseMethod(m[1])
		if !ok {
			continue
		}

		baseURL, path, queryParams := model.SplitURL(m[2])

		headers := extractLineHeaders(entry.Text)

		return model.ApiCall{
			Method:      method,
			Path:        path,
			BaseURL:     baseURL,
			QueryParams: queryParams,
			Headers:     headers,
			Body:        extractLineBody(entry.Text),
			StatusCode:  extractLineStatus(entry.Text),
			Timestamp:   extractLineTimestamp(entry.Text),
			Source:      lineSource(entry.SourceFile, entry.LineNumber),
			RawLog:      entry.Text,
		}, true
	}

	return model.ApiCall{}, false
}

// extractLineBody pulls a body fragment like `body: {...}` off the line.
// JSON-parseable fragments become decoded values, the rest stay raw.
func extractLineBody(line string) any {
	m := textBodyPattern.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	var decoded any
	if err := json.Unmarshal([]byte(m[1]), &decoded); err == nil {
		return decoded
	}
	return m[1]
}

// extractLineHeaders parses a `headers: k: v, k: v` fragment, splitting
// on commas then on the first colon of each piece.
func extractLineHeaders(line string) map[string]string {
	m := textHeaderPattern.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	headers := make(map[string]string)
	for _, piece := range strings.Split(m[1], ",") {
		if k, v, found := strings.Cut(piece, ":"); found {
			headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}

func extractLineStatus(line string) int {
	m := textStatusPattern.FindStringSubmatch(line)
	if m == nil {
		return 0
	}
	code, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return code
}

func extractLineTimestamp(line string) string {
	m := textTimestampPattern.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return m[1]
}
