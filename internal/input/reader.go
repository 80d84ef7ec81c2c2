// Package input reads and validates log files before extraction.
package input

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// Reader handles reading and validating log files
type Reader struct {
	maxSizeMB int
	maxTokens int
}

// NewReader creates a new log file reader
func NewReader(maxSizeMB, maxTokens int) *Reader {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	if maxTokens <= 0 {
		maxTokens = 150000
	}
	return &Reader{
		maxSizeMB: maxSizeMB,
		maxTokens: maxTokens,
	}
}

// Read reads a log file and returns its content
func (r *Reader) Read(path string) (string, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("log file not found: %s", path)
		}
		return "", fmt.Errorf("failed to stat log file: %w", err)
	}

	if fileInfo.IsDir() {
		return "", fmt.Errorf("log path is a directory: %s", path)
	}

	if fileInfo.Mode().Perm()&0400 == 0 {
		return "", fmt.Errorf("log file is not readable: %s", path)
	}

	maxBytes := int64(r.maxSizeMB) * 1024 * 1024
	if fileInfo.Size() > maxBytes {
		return "", fmt.Errorf("log file exceeds maximum size of %dMB (size: %.2fMB)",
			r.maxSizeMB, float64(fileInfo.Size())/1024/1024)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read log file: %w", err)
	}

	if !utf8.Valid(content) {
		return "", fmt.Errorf("log file is not valid UTF-8: %s", path)
	}

	return string(content), nil
}

// EstimateTokens estimates the number of tokens in the content.
// Uses the algorithm: max(chars/4, words/0.75)
func EstimateTokens(content string) int {
	chars := len(content)
	words := len(strings.Fields(content))

	charsEstimate := chars / 4
	wordsEstimate := int(float64(words) / 0.75)

	if charsEstimate > wordsEstimate {
		return charsEstimate
	}
	return wordsEstimate
}

// ClipForPrompt trims content that exceeds the reader's token budget so
// it fits in an LLM context window. The head and tail of the log are
// kept, since calls cluster at both ends of rotated files, with a marker
// noting the elision.
func (r *Reader) ClipForPrompt(content string) string {
	if EstimateTokens(content) <= r.maxTokens {
		return content
	}

	// Roughly 4 chars per token, split evenly between head and tail
	half := r.maxTokens * 4 / 2

	lines := strings.Split(content, "\n")

	var head []string
	used := 0
	for _, line := range lines {
		if used+len(line)+1 > half {
			break
		}
		head = append(head, line)
		used += len(line) + 1
	}

	var tail []string
	used = 0
	for i := len(lines) - 1; i >= len(head); i-- {
		if used+len(lines[i])+1 > half {
			break
		}
		tail = append(tail, lines[i])
		used += len(lines[i]) + 1
	}
	for i, j := 0, len(tail)-1; i < j; i, j = i+1, j-1 {
		tail[i], tail[j] = tail[j], tail[i]
	}

	if len(head) == 0 && len(tail) == 0 {
		// A single line longer than the whole budget
		return content[:half] + "\n... [log truncated] ...\n" + content[len(content)-half:]
	}

	return strings.Join(head, "\n") + "\n... [log truncated] ...\n" + strings.Join(tail, "\n")
}
