package ai

import (
	"regexp"
	"strings"
	"unicode"
)

// GetSystemPrompt returns the system prompt for API-call extraction
func GetSystemPrompt() string {
	return `You are an expert in analyzing application and network logs and extracting HTTP API call information.

For each API call found in the log, extract:
1. HTTP method (GET, POST, PUT, PATCH, DELETE, HEAD, OPTIONS)
2. Path or full URL
3. Headers (if available)
4. Request body (if available)
5. Query parameters (if available)
6. Response status code (if available)
7. Timestamp (if available, keep the original string)

**Output Requirements:**

You MUST respond with a valid JSON array (and ONLY JSON) in this exact format:

[
  {
    "method": "GET",
    "path": "/api/users",
    "headers": {},
    "body": null,
    "query_params": {},
    "status_code": 200,
    "timestamp": null
  }
]

**Extraction Principles:**
- Only report calls that are actually present in the log text
- Never invent methods, paths, or field values
- Omit fields you cannot recover rather than guessing
- An empty array is the correct answer when the log contains no API calls`
}

// GetUserPrompt constructs the user prompt with the log content
func GetUserPrompt(logContent string) string {
	var prompt strings.Builder

	prompt.WriteString("LOG TEXT:\n")
	prompt.WriteString(SanitizeLogContent(logContent))
	prompt.WriteString("\n\n")
	prompt.WriteString("Extract every API call from the log text above and return them as a JSON array as specified.")

	return prompt.String()
}

// promptInjectionPatterns contains regex patterns for common prompt injection attempts
var promptInjectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)forget\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+a`),
	regexp.MustCompile(`(?i)new\s+instructions?:`),
	regexp.MustCompile(`(?i)system\s*prompt\s*:`),
	regexp.MustCompile(`(?i)\bASSISTANT\s*:`),
	regexp.MustCompile(`(?i)\bHUMAN\s*:`),
	regexp.MustCompile(`(?i)\bSYSTEM\s*:`),
}

// SanitizeLogContent sanitizes log content before it is embedded in a
// prompt. Log files are untrusted input, so this removes:
// - Non-printable characters (except newlines, tabs, carriage returns)
// - Common prompt injection patterns
// - Excessive whitespace
func SanitizeLogContent(content string) string {
	// Remove non-printable characters except newlines, tabs, and carriage returns
	var sanitized strings.Builder
	sanitized.Grow(len(content))

	for _, r := range content {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' || r == '\r' {
			sanitized.WriteRune(r)
		}
	}

	result := sanitized.String()

	// Remove common prompt injection patterns
	for _, pattern := range promptInjectionPatterns {
		result = pattern.ReplaceAllString(result, "[FILTERED]")
	}

	// Normalize excessive newlines (more than 3 consecutive)
	excessiveNewlines := regexp.MustCompile(`\n{4,}`)
	result = excessiveNewlines.ReplaceAllString(result, "\n\n\n")

	return result
}
