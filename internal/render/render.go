// Package render prints extracted API calls to a terminal with color.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"

	"github.com/fatih/color"

	"github.com/apisift/apisift-go/internal/ai"
	"github.com/apisift/apisift-go/internal/model"
)

// sanitizeOutput removes or escapes control characters that could
// manipulate terminal display. Extracted calls carry raw log text, which
// is untrusted.
func sanitizeOutput(s string) string {
	var result strings.Builder
	result.Grow(len(s))

	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			result.WriteRune(r)
		case r == '\x1b':
			result.WriteString("\\x1b")
		case unicode.IsControl(r) && r < 0x20:
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		case r == 0x7F:
			result.WriteString("\\x7f")
		default:
			result.WriteRune(r)
		}
	}

	return result.String()
}

var (
	successColor   = color.New(color.FgGreen, color.Bold)
	errorColor     = color.New(color.FgRed, color.Bold)
	redirectColor  = color.New(color.FgYellow, color.Bold)
	serverErrColor = color.New(color.FgRed, color.Bold, color.BgWhite)
	headerKeyColor = color.New(color.FgCyan)
	methodColor    = color.New(color.FgMagenta, color.Bold)
	urlColor       = color.New(color.FgBlue)
	dimColor       = color.New(color.Faint)
)

func statusColor(code int) *color.Color {
	switch {
	case code >= 200 && code < 300:
		return successColor
	case code >= 300 && code < 400:
		return redirectColor
	case code >= 400 && code < 500:
		return errorColor
	default:
		return serverErrColor
	}
}

// PrintCalls prints a compact one-line-per-call listing
func PrintCalls(w io.Writer, calls []model.ApiCall) {
	if len(calls) == 0 {
		dimColor.Fprintln(w, "No API calls found")
		return
	}

	for i, call := range calls {
		dimColor.Fprintf(w, "[%d] ", i+1)
		methodColor.Fprintf(w, "%-7s ", call.Method)

		url := call.FullURL()
		if len(url) > 60 {
			url = url[:57] + "..."
		}
		urlColor.Fprintf(w, "%-60s ", sanitizeOutput(url))

		if call.StatusCode != 0 {
			statusColor(call.StatusCode).Fprintf(w, "%d ", call.StatusCode)
		}
		if call.Source != "" {
			dimColor.Fprintf(w, "(%s)", sanitizeOutput(call.Source))
		}
		fmt.Fprintln(w)
	}
}

// PrintCallDetail prints the full record for one call
func PrintCallDetail(w io.Writer, call model.ApiCall) {
	methodColor.Fprintf(w, "%s ", call.Method)
	urlColor.Fprintln(w, sanitizeOutput(call.FullURL()))

	if call.Timestamp != "" {
		dimColor.Fprintf(w, "  Time: %s\n", sanitizeOutput(call.Timestamp))
	}
	if call.Source != "" {
		dimColor.Fprintf(w, "  Source: %s\n", sanitizeOutput(call.Source))
	}
	if call.StatusCode != 0 {
		fmt.Fprint(w, "  Status: ")
		statusColor(call.StatusCode).Fprintf(w, "%d\n", call.StatusCode)
	}

	printHeaders(w, call.Headers)

	if call.Body != nil {
		fmt.Fprintln(w, "Body:")
		fmt.Fprintln(w, sanitizeOutput(prettyJSON(model.BodyString(call.Body))))
	}

	if call.ResponseBody != nil {
		fmt.Fprintln(w, "Response:")
		fmt.Fprintln(w, sanitizeOutput(prettyJSON(model.BodyString(call.ResponseBody))))
	}
}

func printHeaders(w io.Writer, headers map[string]string) {
	if len(headers) == 0 {
		return
	}

	fmt.Fprintln(w, "Headers:")

	// Sort headers for consistent output
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		headerKeyColor.Fprintf(w, "  %s: ", sanitizeOutput(key))
		fmt.Fprintln(w, sanitizeOutput(headers[key]))
	}
}

func prettyJSON(s string) string {
	var out bytes.Buffer
	if err := json.Indent(&out, []byte(s), "", "  "); err != nil {
		// Not valid JSON, return as-is
		return s
	}
	return out.String()
}

// PrintStats prints LLM usage statistics for a fallback extraction
func PrintStats(w io.Writer, stats *ai.Stats) {
	if stats == nil {
		return
	}

	dimColor.Fprintf(w, "Provider: %s (%s)\n", stats.Provider, stats.Model)
	dimColor.Fprintf(w, "Tokens: %d in / %d out\n", stats.InputTokens, stats.OutputTokens)
	if stats.CostUSD > 0 {
		dimColor.Fprintf(w, "Cost: $%.4f\n", stats.CostUSD)
	}
	dimColor.Fprintf(w, "Duration: %.1fs\n", stats.DurationSeconds)
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, msg string) {
	successColor.Fprintf(w, "✓ %s\n", msg)
}

// PrintError prints an error message
func PrintError(w io.Writer, msg string) {
	errorColor.Fprintf(w, "✗ %s\n", msg)
}
