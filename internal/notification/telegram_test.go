package notification

import (
	"strings"
	"testing"
	"time"

	"github.com/apisift/apisift-go/internal/storage"
)

func TestFormatMessage(t *testing.T) {
	client := &TelegramClient{
		hostname: "test-server",
	}

	run := &storage.Run{
		ID:              "run-1",
		Timestamp:       time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC),
		Source:          "/var/log/app.log",
		DetectedFormat:  "json",
		CallCount:       12,
		DurationSeconds: 0.37,
		LLMUsed:         true,
		LLMProvider:     "Anthropic",
		InputTokens:     1500,
		OutputTokens:    420,
		CostUSD:         0.0108,
	}

	message := client.formatMessage(run)

	for _, want := range []string{
		"Extraction Report",
		"test\\-server",
		"API Calls Found\\: 12",
		"Anthropic",
		"1500 in / 420 out",
	} {
		if !strings.Contains(message, want) {
			t.Errorf("message missing %q:\n%s", want, message)
		}
	}

	// MarkdownV2 special characters in values must be escaped
	if strings.Contains(message, "/var/log/app.log") && !strings.Contains(message, "app\\.log") {
		t.Error("path dots should be escaped for MarkdownV2")
	}
}

func TestFormatMessageEmptyRun(t *testing.T) {
	client := &TelegramClient{hostname: "test-server"}

	run := &storage.Run{
		Timestamp:      time.Now(),
		Source:         "empty.log",
		DetectedFormat: "text",
		CallCount:      0,
	}

	message := client.formatMessage(run)
	if !strings.Contains(message, "No API calls recovered") {
		t.Errorf("empty run should carry a warning:\n%s", message)
	}
	if strings.Contains(message, "LLM Fallback") {
		t.Errorf("no LLM section expected:\n%s", message)
	}
}

func TestSplitMessage(t *testing.T) {
	client := &TelegramClient{}

	short := "a short message"
	if got := client.splitMessage(short); len(got) != 1 || got[0] != short {
		t.Errorf("splitMessage(short) = %v", got)
	}

	long := strings.Repeat("line of report text\n", 400)
	parts := client.splitMessage(long)
	if len(parts) < 2 {
		t.Fatalf("expected multiple parts, got %d", len(parts))
	}
	for i, part := range parts {
		if len(part) > maxMessageLength {
			t.Errorf("part %d exceeds limit: %d", i, len(part))
		}
	}
}

func TestEscapeMarkdown(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain", "plain"},
		{"dots...", "dots\\.\\.\\."},
		{"a-b_c", "a\\-b\\_c"},
		{"x: y", "x\\: y"},
	}

	for _, tt := range tests {
		if got := escapeMarkdown(tt.input); got != tt.want {
			t.Errorf("escapeMarkdown(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestExtractRetryAfter(t *testing.T) {
	tests := []struct {
		name string
		err  string
		want int
	}{
		{"explicit value", "Too Many Requests: retry after 30", 30},
		{"different value", "too many requests: retry after 7", 7},
		{"no value", "Too Many Requests", 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractRetryAfter(errString(tt.err)); got != tt.want {
				t.Errorf("extractRetryAfter() = %d, want %d", got, tt.want)
			}
		})
	}
}

type errString string

func (e errString) Error() string { return string(e) }
