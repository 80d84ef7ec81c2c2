package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/apisift/apisift-go/internal/ai"
	"github.com/apisift/apisift-go/internal/model"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

func TestPrintCalls(t *testing.T) {
	calls := []model.ApiCall{
		{
			Method:     model.MethodGet,
			Path:       "/api/users",
			BaseURL:    "https://api.example.com",
			StatusCode: 200,
			Source:     "app.log:1",
		},
		{
			Method: model.MethodDelete,
			Path:   "/api/users/42",
		},
	}

	var buf bytes.Buffer
	PrintCalls(&buf, calls)
	out := buf.String()

	if !strings.Contains(out, "[1] GET") {
		t.Errorf("missing first entry: %q", out)
	}
	if !strings.Contains(out, "https://api.example.com/api/users") {
		t.Errorf("missing URL: %q", out)
	}
	if !strings.Contains(out, "200") {
		t.Errorf("missing status: %q", out)
	}
	if !strings.Contains(out, "(app.log:1)") {
		t.Errorf("missing source: %q", out)
	}
	if !strings.Contains(out, "[2] DELETE") {
		t.Errorf("missing second entry: %q", out)
	}
}

func TestPrintCallsEmpty(t *testing.T) {
	var buf bytes.Buffer
	PrintCalls(&buf, nil)
	if !strings.Contains(buf.String(), "No API calls found") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestPrintCallDetail(t *testing.T) {
	call := model.ApiCall{
		Method:       model.MethodPost,
		Path:         "/api/orders",
		BaseURL:      "https://api.example.com",
		Headers:      map[string]string{"Content-Type": "application/json"},
		Body:         map[string]any{"item": "widget"},
		ResponseBody: map[string]any{"id": float64(7)},
		StatusCode:   201,
		Timestamp:    "2024-01-15T09:00:00Z",
	}

	var buf bytes.Buffer
	PrintCallDetail(&buf, call)
	out := buf.String()

	for _, want := range []string{
		"POST https://api.example.com/api/orders",
		"Time: 2024-01-15T09:00:00Z",
		"Status: 201",
		"Content-Type: application/json",
		`"item": "widget"`,
		"Response:",
		`"id": 7`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintCallDetailNoResponseBody(t *testing.T) {
	call := model.ApiCall{
		Method: model.MethodGet,
		Path:   "/health",
	}

	var buf bytes.Buffer
	PrintCallDetail(&buf, call)

	if strings.Contains(buf.String(), "Response:") {
		t.Errorf("Response section printed for call without response body:\n%s", buf.String())
	}
}

func TestSanitizeOutput(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain text", "plain text"},
		{"line\nbreak\ttab", "line\nbreak\ttab"},
		{"esc\x1b[31mred", "esc\\x1b[31mred"},
		{"bell\x07", "bell\\x07"},
		{"del\x7f", "del\\x7f"},
	}

	for _, tt := range tests {
		if got := sanitizeOutput(tt.input); got != tt.want {
			t.Errorf("sanitizeOutput(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestPrintStats(t *testing.T) {
	stats := &ai.Stats{
		Provider:        "Anthropic",
		Model:           "claude-sonnet-4-20250514",
		InputTokens:     1200,
		OutputTokens:    300,
		CostUSD:         0.0081,
		DurationSeconds: 2.4,
	}

	var buf bytes.Buffer
	PrintStats(&buf, stats)
	out := buf.String()

	if !strings.Contains(out, "Anthropic") {
		t.Errorf("missing provider: %q", out)
	}
	if !strings.Contains(out, "1200 in / 300 out") {
		t.Errorf("missing tokens: %q", out)
	}
	if !strings.Contains(out, "$0.0081") {
		t.Errorf("missing cost: %q", out)
	}

	// nil stats prints nothing
	buf.Reset()
	PrintStats(&buf, nil)
	if buf.Len() != 0 {
		t.Errorf("nil stats output = %q", buf.String())
	}
}
