package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/apisift/apisift-go/internal/model"
)

// Field alias tables, in priority order. The first key that matches
// (case-insensitively) wins; later aliases are ignored.
var (
	methodFields    = []string{"method", "http_method", "request_method", "verb"}
	pathFields      = []string{"path", "url", "endpoint", "uri", "request_path", "request_url"}
	headersFields   = []string{"headers", "request_headers", "http_headers"}
	bodyFields      = []string{"body", "request_body", "data", "payload"}
	queryFields     = []string{"query", "query_params", "query_string", "params"}
	statusFields    = []string{"status", "status_code", "response_status", "http_status"}
	responseFields  = []string{"response", "response_body", "response_data"}
	timestampFields = []string{"timestamp", "time", "datetime", "created_at", "@timestamp"}
)

// JSONParser extracts API calls from JSON-shaped logs: a single object,
// an array of objects, or JSON-Lines with one object per line.
//
// The whole document is always tried first; the per-line scan only runs
// when the document as a whole does not parse. This fixes the otherwise
// ambiguous ordering between the two modes.
type JSONParser struct{}

// NewJSONParser creates a JSON log parser.
func NewJSONParser() *JSONParser { return &JSONParser{} }

// Name implements Parser.
func (p *JSONParser) Name() string { return "json" }

// CanParse reports whether the text looks like JSON: the trimmed document
// parses as a JSON object or array, or the first line alone parses as a
// JSON object (the JSON-Lines signal).
func (p *JSONParser) CanParse(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		if json.Valid([]byte(text)) {
			return true
		}
	}

	firstLine := strings.TrimSpace(strings.SplitN(text, "\n", 2)[0])
	if strings.HasPrefix(firstLine, "{") {
		var obj map[string]any
		if err := json.Unmarshal([]byte(firstLine), &obj); err == nil {
			return true
		}
	}

	return false
}

// Parse implements Parser. Lines or array elements that are not JSON
// objects are skipped silently; a candidate object missing method or path
// is dropped, not an error.
func (p *JSONParser) Parse(text, sourceFile string) ([]model.ApiCall, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	var calls []model.ApiCall

	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		var doc any
		if err := json.Unmarshal([]byte(text), &doc); err == nil {
			switch d := doc.(type) {
			case map[string]any:
				if call, ok := CallFromObject(d, lineSource(sourceFile, 0)); ok {
					calls = append(calls, call)
				}
				return calls, nil
			case []any:
				for i, item := range d {
					obj, ok := item.(map[string]any)
					if !ok {
						continue
					}
					if call, ok := CallFromObject(obj, lineSource(sourceFile, i+1)); ok {
						calls = append(calls, call)
					}
				}
				return calls, nil
			}
			// A bare scalar document carries no call data.
			return nil, nil
		}
		// Whole-document parse failed; fall through to JSON-Lines.
	}

	for _, entry := range model.SplitEntries(text, sourceFile) {
		if !strings.HasPrefix(entry.Text, "{") {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(entry.Text), &obj); err != nil {
			// Malformed line: skip and keep scanning.
			continue
		}
		if call, ok := CallFromObject(obj, lineSource(sourceFile, entry.LineNumber)); ok {
			calls = append(calls, call)
		}
	}

	return calls, nil
}

// lineSource builds the provenance string for a record: "<file>:<line>",
// "line <n>" without a file, or just the file when no line applies.
func lineSource(sourceFile string, lineNumber int) string {
	switch {
	case lineNumber > 0 && sourceFile != "":
		return fmt.Sprintf("%s:%d", sourceFile, lineNumber)
	case lineNumber > 0:
		return fmt.Sprintf("line %d", lineNumber)
	default:
		return sourceFile
	}
}

// CallFromObject builds an ApiCall from a decoded JSON object using the
// alias tables. Returns false when method or path cannot be resolved or
// the method is not a recognized HTTP method. The same construction path
// is used for parsed log objects and for objects recovered from LLM
// responses.
func CallFromObject(data map[string]any, source string) (model.ApiCall, bool) {
	methodRaw, ok := findField(data, methodFields).(string)
	if !ok {
		return model.ApiCall{}, false
	}
	method, ok := model.ParseMethod(methodRaw)
	if !ok {
		return model.ApiCall{}, false
	}

	pathRaw, ok := findField(data, pathFields).(string)
	if !ok || pathRaw == "" {
		return model.ApiCall{}, false
	}

	baseURL, path, queryParams := model.SplitURL(pathRaw)

	if queryParams == nil {
		if q, ok := findField(data, queryFields).(map[string]any); ok {
			queryParams = toStringMap(q)
		}
	}

	var headers map[string]string
	if h, ok := findField(data, headersFields).(map[string]any); ok {
		headers = toStringMap(h)
	}

	call := model.ApiCall{
		Method:       method,
		Path:         path,
		BaseURL:      baseURL,
		QueryParams:  queryParams,
		Headers:      headers,
		Body:         findField(data, bodyFields),
		StatusCode:   toStatusCode(findField(data, statusFields)),
		ResponseBody: findField(data, responseFields),
		Timestamp:    toTimestamp(findField(data, timestampFields)),
		Source:       source,
	}

	if raw, err := json.Marshal(data); err == nil {
		call.RawLog = string(raw)
	}

	return call, true
}

// findField returns the value of the first alias that matches a key in
// data, comparing case-insensitively. Nil when no alias matches.
func findField(data map[string]any, aliases []string) any {
	for _, alias := range aliases {
		for key, value := range data {
			if strings.EqualFold(key, alias) {
				return value
			}
		}
	}
	return nil
}

func toStringMap(m map[string]any) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
		} else {
			out[k] = fmt.Sprintf("%v", v)
		}
	}
	return out
}

// toStatusCode coerces a status value from JSON. Numbers arrive as
// float64; some logs carry the code as a string. Anything non-coercible
// counts as absent.
func toStatusCode(v any) int {
	switch s := v.(type) {
	case float64:
		return int(s)
	case int:
		return s
	case string:
		if code, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return code
		}
	}
	return 0
}

func toTimestamp(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
