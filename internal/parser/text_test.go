package parser

import (
	"testing"

	"github.com/apisift/apisift-go/internal/model"
)

func TestTextParser_CanParse(t *testing.T) {
	p := NewTextParser()

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"bare method path", "GET /api/users", true},
		{"request prefix", "Request: POST /api/orders", true},
		{"http version first", "HTTP/1.1 GET /users", true},
		{"curl", "curl -X DELETE https://api.example.com/users/1", true},
		{"mixed prose", "2024-01-01 10:00:00 INFO handled GET /health in 2ms", true},
		{"no call", "something went wrong, retrying", false},
		{"unknown method", "FETCH /api/users", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.CanParse(tt.text); got != tt.want {
				t.Errorf("CanParse(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestTextParser_MixedLines(t *testing.T) {
	p := NewTextParser()

	text := "GET /api/users\n" +
		`POST /api/users with body {"name": "John"}` + "\n" +
		"DELETE /api/users/123 - status: 204"

	calls, err := p.Parse(text, "app.log")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(calls) != 3 {
		t.Fatalf("got %d calls, want 3", len(calls))
	}

	if calls[0].Method != model.MethodGet || calls[0].Path != "/api/users" {
		t.Errorf("call 0 = %s %s", calls[0].Method, calls[0].Path)
	}
	if calls[0].Body != nil {
		t.Errorf("call 0 body = %v, want none", calls[0].Body)
	}

	if calls[1].Method != model.MethodPost {
		t.Errorf("call 1 method = %s", calls[1].Method)
	}
	body, ok := calls[1].Body.(map[string]any)
	if !ok || body["name"] != "John" {
		t.Errorf("call 1 body = %v, want decoded JSON", calls[1].Body)
	}

	if calls[2].Method != model.MethodDelete || calls[2].StatusCode != 204 {
		t.Errorf("call 2 = %s status %d", calls[2].Method, calls[2].StatusCode)
	}

	for i, want := range []string{"app.log:1", "app.log:2", "app.log:3"} {
		if calls[i].Source != want {
			t.Errorf("source[%d] = %q, want %q", i, calls[i].Source, want)
		}
	}
}

func TestTextParser_OnePerLine(t *testing.T) {
	p := NewTextParser()

	// Both pattern 1 and pattern 2 could match; only one call may come out.
	calls, err := p.Parse("Request: GET /users", "")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(calls) != 1 {
		t.Errorf("got %d calls, want exactly 1 per line", len(calls))
	}
}

func TestTextParser_CurlLine(t *testing.T) {
	p := NewTextParser()

	calls, err := p.Parse("curl -X POST https://api.example.com/v1/items?dry=1", "")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}

	call := calls[0]
	if call.Method != model.MethodPost {
		t.Errorf("method = %s", call.Method)
	}
	if call.BaseURL != "https://api.example.com" || call.Path != "/v1/items" {
		t.Errorf("url split = %q + %q", call.BaseURL, call.Path)
	}
	if call.QueryParams["dry"] != "1" {
		t.Errorf("query = %v", call.QueryParams)
	}
}

func TestTextParser_Timestamp(t *testing.T) {
	p := NewTextParser()

	calls, err := p.Parse("[2024-03-05T14:22:31Z] GET /health - status: 200", "")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}
	if calls[0].Timestamp != "2024-03-05T14:22:31Z" {
		t.Errorf("timestamp = %q", calls[0].Timestamp)
	}
	if calls[0].StatusCode != 200 {
		t.Errorf("status = %d", calls[0].StatusCode)
	}
}

func TestTextParser_HeadersFragment(t *testing.T) {
	p := NewTextParser()

	calls, err := p.Parse(`GET /secure headers: Authorization: Bearer tok, Accept: application/json`, "")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}
	headers := calls[0].Headers
	if headers["Authorization"] != "Bearer tok" {
		t.Errorf("headers = %v", headers)
	}
	if headers["Accept"] != "application/json" {
		t.Errorf("headers = %v", headers)
	}
}

func TestTextParser_NoiseLinesSkipped(t *testing.T) {
	p := NewTextParser()

	text := "starting worker pool\nGET /jobs\nworker 3 crashed\nconnection reset"

	calls, err := p.Parse(text, "")
	if err != nil {
		t.Fatalf("noise lines must not error: %v", err)
	}
	if len(calls) != 1 {
		t.Errorf("got %d calls, want 1", len(calls))
	}
}
