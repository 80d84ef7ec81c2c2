// Package model defines the canonical representation of an HTTP API call
// recovered from log input, along with the raw log line unit shared by
// the parsers.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Method is an HTTP request method.
type Method string

// Supported HTTP methods. Candidates carrying any other method string are
// discarded during extraction, never defaulted.
const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodPatch   Method = "PATCH"
	MethodDelete  Method = "DELETE"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
)

var knownMethods = map[string]Method{
	"GET":     MethodGet,
	"POST":    MethodPost,
	"PUT":     MethodPut,
	"PATCH":   MethodPatch,
	"DELETE":  MethodDelete,
	"HEAD":    MethodHead,
	"OPTIONS": MethodOptions,
}

// ParseMethod normalizes and validates an HTTP method string.
// Returns false for anything outside the known method set.
func ParseMethod(s string) (Method, bool) {
	m, ok := knownMethods[strings.ToUpper(strings.TrimSpace(s))]
	return m, ok
}

// MethodNames returns the known method names joined for regex alternation,
// e.g. "GET|POST|PUT|PATCH|DELETE|HEAD|OPTIONS".
func MethodNames() string {
	return "GET|POST|PUT|PATCH|DELETE|HEAD|OPTIONS"
}

// ApiCall is one HTTP request (plus optional response data) recovered from
// a log. Method and Path are always set on a constructed record; everything
// else is best-effort.
type ApiCall struct {
	Method Method `json:"method"`
	Path   string `json:"path"`

	// BaseURL carries scheme and host only, without a trailing slash
	// (e.g. "https://api.example.com"). Empty when the log only exposed
	// a relative path.
	BaseURL     string            `json:"base_url,omitempty"`
	QueryParams map[string]string `json:"query_params,omitempty"`

	Headers map[string]string `json:"headers,omitempty"`

	// Body holds the first successful interpretation of the request body:
	// a decoded JSON value, a form map[string]string, or the raw string.
	Body any `json:"body,omitempty"`

	// StatusCode is 0 when no response status was recovered.
	StatusCode   int    `json:"status_code,omitempty"`
	ResponseBody any    `json:"response_body,omitempty"`

	// Timestamp is kept as the opaque string seen in the log. Downstream
	// consumers decide how to interpret it.
	Timestamp string `json:"timestamp,omitempty"`

	// Source records provenance: a file path, "file:line", or "request N".
	Source string `json:"source,omitempty"`

	// RawLog is the original text slice this record was built from.
	RawLog string `json:"raw_log,omitempty"`
}

// FullURL reconstructs the complete URL from BaseURL, Path and QueryParams.
// Query values are appended verbatim in map-iteration order; callers that
// need a stable order must sort the keys themselves.
func (c *ApiCall) FullURL() string {
	url := c.Path
	if c.BaseURL != "" {
		url = strings.TrimSuffix(c.BaseURL, "/") + "/" + strings.TrimPrefix(c.Path, "/")
	}

	if len(c.QueryParams) > 0 {
		pairs := make([]string, 0, len(c.QueryParams))
		for k, v := range c.QueryParams {
			pairs = append(pairs, k+"="+v)
		}
		url = url + "?" + strings.Join(pairs, "&")
	}

	return url
}

// Summary returns the one-line "METHOD /path" form of the call.
func (c *ApiCall) Summary() string {
	return fmt.Sprintf("%s %s", c.Method, c.Path)
}

// ToCurl renders the call as a curl command. JSON-like bodies are serialized
// compactly, anything else is stringified. This is pure formatting and cannot
// fail.
func (c *ApiCall) ToCurl() string {
	parts := []string{"curl", "-X", string(c.Method)}

	for k, v := range c.Headers {
		parts = append(parts, "-H", fmt.Sprintf("%q", k+": "+v))
	}

	if c.Body != nil {
		parts = append(parts, "-d", "'"+BodyString(c.Body)+"'")
	}

	parts = append(parts, fmt.Sprintf("%q", c.FullURL()))

	return strings.Join(parts, " ")
}

// BodyString serializes a recovered body for display. Maps, slices and other
// JSON-representable values are rendered as compact JSON; plain strings pass
// through; anything unmarshalable falls back to fmt formatting.
func BodyString(body any) string {
	switch b := body.(type) {
	case nil:
		return ""
	case string:
		return b
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Sprintf("%v", b)
		}
		return string(data)
	}
}
