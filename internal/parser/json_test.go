package parser

import (
	"strings"
	"testing"

	"github.com/apisift/apisift-go/internal/model"
)

func TestJSONParser_CanParse(t *testing.T) {
	p := NewJSONParser()

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"single object", `{"method": "GET", "path": "/users"}`, true},
		{"array", `[{"method": "GET", "path": "/a"}]`, true},
		{"jsonl first line", "{\"method\": \"GET\", \"path\": \"/a\"}\nnot json here", true},
		{"plain text", "GET /api/users", false},
		{"http dump", "GET /api/users HTTP/1.1\nHost: x", false},
		{"empty", "", false},
		{"whitespace", "   \n  ", false},
		{"broken json", `{"method": "GET",`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.CanParse(tt.text); got != tt.want {
				t.Errorf("CanParse(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestJSONParser_SingleObject(t *testing.T) {
	p := NewJSONParser()

	calls, err := p.Parse(`{"method": "GET", "path": "/users/123", "status": 200}`, "api.log")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}

	call := calls[0]
	if call.Method != model.MethodGet {
		t.Errorf("method = %q, want GET", call.Method)
	}
	if call.Path != "/users/123" {
		t.Errorf("path = %q, want /users/123", call.Path)
	}
	if call.StatusCode != 200 {
		t.Errorf("status = %d, want 200", call.StatusCode)
	}
	if call.Source != "api.log" {
		t.Errorf("source = %q, want api.log", call.Source)
	}
	if !strings.Contains(call.RawLog, `"method"`) {
		t.Errorf("raw log not preserved: %q", call.RawLog)
	}
}

func TestJSONParser_AliasResolution(t *testing.T) {
	p := NewJSONParser()

	tests := []struct {
		name string
		text string
	}{
		{"canonical", `{"method": "POST", "path": "/orders"}`},
		{"http_method + url", `{"http_method": "POST", "url": "/orders"}`},
		{"verb + endpoint", `{"verb": "POST", "endpoint": "/orders"}`},
		{"request_method + uri", `{"request_method": "POST", "uri": "/orders"}`},
		{"uppercase keys", `{"METHOD": "POST", "PATH": "/orders"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls, err := p.Parse(tt.text, "")
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if len(calls) != 1 {
				t.Fatalf("got %d calls, want 1", len(calls))
			}
			if calls[0].Method != model.MethodPost || calls[0].Path != "/orders" {
				t.Errorf("got %s %s, want POST /orders", calls[0].Method, calls[0].Path)
			}
		})
	}
}

func TestJSONParser_AliasPriority(t *testing.T) {
	p := NewJSONParser()

	// "path" outranks "url" when both are present.
	calls, err := p.Parse(`{"method": "GET", "path": "/primary", "url": "/secondary"}`, "")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(calls) != 1 || calls[0].Path != "/primary" {
		t.Errorf("alias priority violated: %+v", calls)
	}
}

func TestJSONParser_FullURLField(t *testing.T) {
	p := NewJSONParser()

	calls, err := p.Parse(`{"method": "GET", "url": "https://api.example.com/users?page=1"}`, "")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}

	call := calls[0]
	if call.BaseURL != "https://api.example.com" {
		t.Errorf("base URL = %q", call.BaseURL)
	}
	if call.Path != "/users" {
		t.Errorf("path = %q", call.Path)
	}
	if call.QueryParams["page"] != "1" {
		t.Errorf("query params = %v", call.QueryParams)
	}
}

func TestJSONParser_Array(t *testing.T) {
	p := NewJSONParser()

	text := `[
		{"method": "GET", "path": "/a"},
		{"note": "no call here"},
		"just a string",
		{"method": "DELETE", "path": "/b"},
		{"method": "BOGUS", "path": "/c"}
	]`

	calls, err := p.Parse(text, "batch.json")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(calls))
	}
	if calls[0].Path != "/a" || calls[1].Path != "/b" {
		t.Errorf("array order not preserved: %+v", calls)
	}
}

func TestJSONParser_JSONLines(t *testing.T) {
	p := NewJSONParser()

	text := `{"method": "GET", "path": "/first"}
this line is not JSON at all
{"method": "POST", "path": "/second", "body": {"k": "v"}}
{"broken json
{"level": "info", "msg": "no api call"}`

	calls, err := p.Parse(text, "app.jsonl")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("got %d calls, want 2 (bad lines must not abort the scan)", len(calls))
	}
	if calls[0].Source != "app.jsonl:1" {
		t.Errorf("source = %q, want app.jsonl:1", calls[0].Source)
	}
	if calls[1].Source != "app.jsonl:3" {
		t.Errorf("source = %q, want app.jsonl:3", calls[1].Source)
	}
	body, ok := calls[1].Body.(map[string]any)
	if !ok || body["k"] != "v" {
		t.Errorf("body = %v", calls[1].Body)
	}
}

func TestJSONParser_HeadersAndQuery(t *testing.T) {
	p := NewJSONParser()

	text := `{
		"method": "PUT",
		"path": "/items/1",
		"headers": {"Authorization": "Bearer abc", "X-Trace": "t1"},
		"query_params": {"force": "true"},
		"timestamp": "2024-01-01T10:00:00Z",
		"response_body": {"ok": true}
	}`

	calls, err := p.Parse(text, "")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}

	call := calls[0]
	if call.Headers["Authorization"] != "Bearer abc" {
		t.Errorf("headers = %v", call.Headers)
	}
	if call.QueryParams["force"] != "true" {
		t.Errorf("query = %v", call.QueryParams)
	}
	if call.Timestamp != "2024-01-01T10:00:00Z" {
		t.Errorf("timestamp = %q", call.Timestamp)
	}
	if call.ResponseBody == nil {
		t.Error("response body dropped")
	}
}

func TestJSONParser_MissingRequiredFields(t *testing.T) {
	p := NewJSONParser()

	tests := []struct {
		name string
		text string
	}{
		{"no method", `{"path": "/users"}`},
		{"no path", `{"method": "GET"}`},
		{"unknown method", `{"method": "FETCH", "path": "/users"}`},
		{"numeric method", `{"method": 42, "path": "/users"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls, err := p.Parse(tt.text, "")
			if err != nil {
				t.Fatalf("rejection must be silent, got error: %v", err)
			}
			if len(calls) != 0 {
				t.Errorf("got %d calls, want 0", len(calls))
			}
		})
	}
}

func TestJSONParser_StringStatusCode(t *testing.T) {
	p := NewJSONParser()

	calls, err := p.Parse(`{"method": "GET", "path": "/x", "status_code": "404"}`, "")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(calls) != 1 || calls[0].StatusCode != 404 {
		t.Errorf("string status not coerced: %+v", calls)
	}
}
