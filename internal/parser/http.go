package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/apisift/apisift-go/internal/model"
)

var (
	// requestLinePattern matches "METHOD target HTTP/version".
	requestLinePattern = regexp.MustCompile(
		`(?i)^(` + model.MethodNames() + `)\s+(\S+)\s+HTTP/[\d.]+`)

	// headerLinePattern matches "Key: Value".
	headerLinePattern = regexp.MustCompile(`^([A-Za-z-]+):\s*(.+)$`)
)

// HTTPParser extracts API calls from raw HTTP request dumps: a request
// line, header lines until the first blank line, then an optional body.
// Concatenated multi-request blobs are split wherever a new request line
// appears.
type HTTPParser struct{}

// NewHTTPParser creates an HTTP request dump parser.
func NewHTTPParser() *HTTPParser { return &HTTPParser{} }

// Name implements Parser.
func (p *HTTPParser) Name() string { return "http" }

// CanParse reports whether the first non-empty line is a valid HTTP
// request line.
func (p *HTTPParser) CanParse(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	firstLine := strings.TrimSpace(strings.SplitN(text, "\n", 2)[0])
	return requestLinePattern.MatchString(firstLine)
}

// Parse implements Parser.
func (p *HTTPParser) Parse(text, sourceFile string) ([]model.ApiCall, error) {
	blocks := splitRequests(text)

	var calls []model.ApiCall
	for i, block := range blocks {
		source := sourceFile
		if len(blocks) > 1 {
			source = requestSource(sourceFile, i+1)
		}
		if call, ok := parseRequestBlock(block, source); ok {
			calls = append(calls, call)
		}
	}

	return calls, nil
}

// splitRequests cuts a dump into per-request blocks. A new block starts at
// every line that matches the request-line pattern; leading noise before
// the first request line is discarded.
func splitRequests(text string) []string {
	var blocks []string
	var current []string

	for _, line := range strings.Split(text, "\n") {
		if requestLinePattern.MatchString(strings.TrimSpace(line)) {
			if len(current) > 0 {
				blocks = append(blocks, strings.Join(current, "\n"))
			}
			current = []string{line}
			continue
		}
		if len(current) > 0 {
			current = append(current, line)
		}
	}
	if len(current) > 0 {
		blocks = append(blocks, strings.Join(current, "\n"))
	}

	return blocks
}

func requestSource(sourceFile string, n int) string {
	if sourceFile != "" {
		return fmt.Sprintf("%s:request-%d", sourceFile, n)
	}
	return fmt.Sprintf("request %d", n)
}

func parseRequestBlock(block, source string) (model.ApiCall, bool) {
	lines := strings.Split(strings.TrimSpace(block), "\n")
	if len(lines) == 0 {
		return model.ApiCall{}, false
	}

	m := requestLinePattern.FindStringSubmatch(strings.TrimSpace(lines[0]))
	if m == nil {
		return model.ApiCall{}, false
	}
	method, ok := model.ParseMethod(m[1])
	if !ok {
		return model.ApiCall{}, false
	}
	target := m[2]

	baseURL, path, queryParams := model.SplitURL(target)

	// Headers run until the first blank line; everything after is body.
	headers := make(map[string]string)
	bodyStart := -1
	for i, line := range lines[1:] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			bodyStart = i + 2
			break
		}
		if hm := headerLinePattern.FindStringSubmatch(trimmed); hm != nil {
			headers[hm[1]] = strings.TrimSpace(hm[2])
		}
	}

	// A relative target with a Host header gets a synthesized base URL.
	// HTTPS is assumed unless the target or X-Forwarded-Proto says plain
	// HTTP.
	if baseURL == "" {
		if host, ok := headers["Host"]; ok {
			scheme := "https"
			if strings.Contains(target, "http://") ||
				strings.EqualFold(headers["X-Forwarded-Proto"], "http") {
				scheme = "http"
			}
			baseURL = scheme + "://" + host
		}
	}

	var body any
	if bodyStart > 0 && bodyStart < len(lines) {
		bodyText := strings.TrimSpace(strings.Join(lines[bodyStart:], "\n"))
		if bodyText != "" {
			body = parseBody(bodyText, headers["Content-Type"])
		}
	}

	if len(headers) == 0 {
		headers = nil
	}

	return model.ApiCall{
		Method:      method,
		Path:        path,
		BaseURL:     baseURL,
		QueryParams: queryParams,
		Headers:     headers,
		Body:        body,
		Source:      source,
		RawLog:      block,
	}, true
}

// parseBody interprets the body candidate according to Content-Type:
// JSON (with raw-string fallback on decode failure), form-urlencoded
// key=value pairs, or the raw string for everything else.
func parseBody(bodyText, contentType string) any {
	switch {
	case strings.Contains(contentType, "application/json"):
		var decoded any
		if err := json.Unmarshal([]byte(bodyText), &decoded); err == nil {
			return decoded
		}
		return bodyText
	case strings.Contains(contentType, "application/x-www-form-urlencoded"):
		form := make(map[string]string)
		for _, pair := range strings.Split(bodyText, "&") {
			if k, v, found := strings.Cut(pair, "="); found {
				form[k] = v
			}
		}
		return form
	default:
		return bodyText
	}
}
