// Package logging provides secure logging utilities with credential sanitization.
//
// Log excerpts, extracted headers, and URLs flow into log events as field
// values; all of that text is untrusted and may carry live credentials, so
// every string that enters an event passes through the sanitizer.
package logging

import (
	"github.com/rs/zerolog"

	internalerrors "github.com/apisift/apisift-go/internal/errors"
	"github.com/apisift/apisift-go/pkg/logger"
)

// SecureLogger wraps a logger.Logger and sanitizes all string values
// before they reach the log output.
type SecureLogger struct {
	log *logger.Logger
}

// NewSecure creates a new SecureLogger wrapper around the provided logger.
func NewSecure(log *logger.Logger) *SecureLogger {
	return &SecureLogger{log: log}
}

// SecureEvent wraps a zerolog Event to provide sanitizing field methods.
type SecureEvent struct {
	event *zerolog.Event
}

// Info starts a new info-level log event.
func (s *SecureLogger) Info() *SecureEvent {
	return &SecureEvent{event: s.log.Info()}
}

// Debug starts a new debug-level log event.
func (s *SecureLogger) Debug() *SecureEvent {
	return &SecureEvent{event: s.log.Debug()}
}

// Warn starts a new warn-level log event.
func (s *SecureLogger) Warn() *SecureEvent {
	return &SecureEvent{event: s.log.Warn()}
}

// Error starts a new error-level log event.
func (s *SecureLogger) Error() *SecureEvent {
	return &SecureEvent{event: s.log.Error()}
}

// Close closes the underlying logger.
func (s *SecureLogger) Close() error {
	return s.log.Close()
}

// Str adds a string field with credentials redacted.
func (e *SecureEvent) Str(key, val string) *SecureEvent {
	e.event.Str(key, internalerrors.SanitizeString(val))
	return e
}

// Int adds an integer field to the log event.
func (e *SecureEvent) Int(key string, val int) *SecureEvent {
	e.event.Int(key, val)
	return e
}

// Int64 adds an int64 field to the log event.
func (e *SecureEvent) Int64(key string, val int64) *SecureEvent {
	e.event.Int64(key, val)
	return e
}

// Float64 adds a float64 field to the log event.
func (e *SecureEvent) Float64(key string, val float64) *SecureEvent {
	e.event.Float64(key, val)
	return e
}

// Bool adds a boolean field to the log event.
func (e *SecureEvent) Bool(key string, val bool) *SecureEvent {
	e.event.Bool(key, val)
	return e
}

// Err adds an error field with credentials in the message redacted.
func (e *SecureEvent) Err(err error) *SecureEvent {
	if err != nil {
		e.event.Err(internalerrors.SanitizeError(err))
	}
	return e
}

// Msg sends the log event with a sanitized message.
func (e *SecureEvent) Msg(msg string) {
	e.event.Msg(internalerrors.SanitizeString(msg))
}

// Msgf sends a formatted log event. String, error, and []string arguments
// are sanitized; other types pass through unchanged.
func (e *SecureEvent) Msgf(format string, v ...interface{}) {
	sanitizedArgs := make([]interface{}, len(v))
	for i, arg := range v {
		sanitizedArgs[i] = sanitizeArg(arg)
	}
	e.event.Msgf(format, sanitizedArgs...)
}

// Interface adds an arbitrary field. String-shaped values are sanitized;
// anything else is the caller's responsibility.
func (e *SecureEvent) Interface(key string, val interface{}) *SecureEvent {
	if s, ok := val.(string); ok {
		e.event.Str(key, internalerrors.SanitizeString(s))
		return e
	}
	e.event.Interface(key, sanitizeArg(val))
	return e
}

func sanitizeArg(arg interface{}) interface{} {
	switch v := arg.(type) {
	case string:
		return internalerrors.SanitizeString(v)
	case error:
		return internalerrors.SanitizeError(v)
	case []string:
		out := make([]string, len(v))
		for i, s := range v {
			out[i] = internalerrors.SanitizeString(s)
		}
		return out
	default:
		return arg
	}
}
