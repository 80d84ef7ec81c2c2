package ai

import (
	"strings"
	"testing"
)

func TestParseCallsFencedArray(t *testing.T) {
	response := "Here are the calls I found:\n```json\n[{\"method\": \"GET\", \"path\": \"/api/users\", \"status_code\": 200}]\n```\nLet me know if you need more."

	calls, err := ParseCalls(response)
	if err != nil {
		t.Fatalf("ParseCalls() error = %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Method != "GET" {
		t.Errorf("Method = %q, want GET", calls[0].Method)
	}
	if calls[0].Path != "/api/users" {
		t.Errorf("Path = %q, want /api/users", calls[0].Path)
	}
	if calls[0].StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", calls[0].StatusCode)
	}
	if calls[0].Source != "llm" {
		t.Errorf("Source = %q, want llm", calls[0].Source)
	}
}

func TestParseCallsBareArrayWithProse(t *testing.T) {
	response := `The log contains two API calls.

[
  {"method": "POST", "path": "/api/orders", "body": {"item": "widget"}},
  {"method": "DELETE", "path": "/api/orders/42"}
]

Both calls succeeded.`

	calls, err := ParseCalls(response)
	if err != nil {
		t.Fatalf("ParseCalls() error = %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	if calls[0].Method != "POST" || calls[1].Method != "DELETE" {
		t.Errorf("methods = %q, %q", calls[0].Method, calls[1].Method)
	}
	body, ok := calls[0].Body.(map[string]any)
	if !ok {
		t.Fatalf("body type = %T, want map", calls[0].Body)
	}
	if body["item"] != "widget" {
		t.Errorf("body item = %v, want widget", body["item"])
	}
}

func TestParseCallsTrailingCommas(t *testing.T) {
	response := `[{"method": "GET", "path": "/health",},]`

	calls, err := ParseCalls(response)
	if err != nil {
		t.Fatalf("ParseCalls() error = %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Path != "/health" {
		t.Errorf("Path = %q", calls[0].Path)
	}
}

func TestParseCallsTruncatedArray(t *testing.T) {
	// Response cut off mid-stream after the second element
	response := `[{"method": "GET", "path": "/a"}, {"method": "POST", "path": "/b"}, {"method": "PU`

	calls, err := ParseCalls(response)
	if err != nil {
		t.Fatalf("ParseCalls() error = %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("expected 2 salvaged calls, got %d", len(calls))
	}
	if calls[0].Path != "/a" || calls[1].Path != "/b" {
		t.Errorf("paths = %q, %q", calls[0].Path, calls[1].Path)
	}
}

func TestParseCallsInvalidEscapes(t *testing.T) {
	response := `[{"method": "GET", "path": "/api/v1/files/report\.pdf"}]`

	calls, err := ParseCalls(response)
	if err != nil {
		t.Fatalf("ParseCalls() error = %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Path != "/api/v1/files/report.pdf" {
		t.Errorf("Path = %q", calls[0].Path)
	}
}

func TestParseCallsSingleObject(t *testing.T) {
	response := `{"method": "PUT", "path": "/api/config"}`

	calls, err := ParseCalls(response)
	if err != nil {
		t.Fatalf("ParseCalls() error = %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Method != "PUT" {
		t.Errorf("Method = %q, want PUT", calls[0].Method)
	}
}

func TestParseCallsNoJSON(t *testing.T) {
	for _, response := range []string{
		"",
		"The log contains no API calls.",
		"Nothing to report here.",
	} {
		calls, err := ParseCalls(response)
		if err != nil {
			t.Errorf("ParseCalls(%q) error = %v", response, err)
		}
		if len(calls) != 0 {
			t.Errorf("ParseCalls(%q) = %d calls, want 0", response, len(calls))
		}
	}
}

func TestParseCallsSkipsInvalidItems(t *testing.T) {
	// Second item has an unrecognized method, third is not an object
	response := `[{"method": "GET", "path": "/ok"}, {"method": "FETCH", "path": "/bad"}, "noise"]`

	calls, err := ParseCalls(response)
	if err != nil {
		t.Fatalf("ParseCalls() error = %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Path != "/ok" {
		t.Errorf("Path = %q", calls[0].Path)
	}
}

func TestParseCallsOversizedResponse(t *testing.T) {
	huge := "[" + strings.Repeat(`{"method": "GET", "path": "/x"},`, 40000)
	huge = strings.TrimSuffix(huge, ",") + "]"
	if len(huge) <= maxJSONResponseSize {
		t.Skip("fixture smaller than the size limit")
	}

	if _, err := ParseCalls(huge); err == nil {
		t.Error("expected error for oversized response")
	}
}

func TestExtractBalancedNestedBraces(t *testing.T) {
	text := `prefix {"a": {"b": "c}"}, "d": "e"} suffix`
	got := extractBalanced(text, '{', '}')
	want := `{"a": {"b": "c}"}, "d": "e"}`
	if got != want {
		t.Errorf("extractBalanced() = %q, want %q", got, want)
	}
}

func TestSanitizeJSONEscapes(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`{"path": "\/api\/users"}`, `{"path": "\/api\/users"}`},
		{`{"re": "\d+\.\d+"}`, `{"re": "d+.d+"}`},
		{`{"text": "line\nbreak"}`, `{"text": "line\nbreak"}`},
		{`{"u": "é"}`, `{"u": "é"}`},
	}

	for _, tt := range tests {
		if got := sanitizeJSONEscapes(tt.input); got != tt.want {
			t.Errorf("sanitizeJSONEscapes(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
