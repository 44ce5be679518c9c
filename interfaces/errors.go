package interfaces

import "fmt"

// StreamError represents a recoverable XMPP stream-level protocol error.
// It is always serialized as a <stream:error> element and sent to the peer
// before being surfaced to the caller.
type StreamError struct {
	// Condition is the RFC 6120 §4.9.3 defined-condition element name,
	// e.g. "bad-format", "host-unknown", "unsupported-version".
	Condition string
	// Text is an optional human-readable description (<text/> child).
	Text string
}

func (e *StreamError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("stream error: %s", e.Condition)
	}
	return fmt.Sprintf("stream error: %s (%s)", e.Condition, e.Text)
}

// FatalStreamError wraps a StreamError that is unrecoverable: after the
// stream error is sent, the stream must be aborted.
type FatalStreamError struct {
	StreamError
}

func (e *FatalStreamError) Error() string {
	return "fatal " + e.StreamError.Error()
}

func (e *FatalStreamError) Unwrap() error { return &e.StreamError }

// NewFatalStreamError builds a FatalStreamError for the given condition.
func NewFatalStreamError(condition, text string) *FatalStreamError {
	return &FatalStreamError{StreamError{Condition: condition, Text: text}}
}

// NewStreamError builds a recoverable StreamError for the given condition.
func NewStreamError(condition, text string) *StreamError {
	return &StreamError{Condition: condition, Text: text}
}

// StreamParseError signals an XML well-formedness failure on the incoming
// stream. It always corresponds to the "not-well-formed" stream error
// condition.
type StreamParseError struct {
	Description string
}

func (e *StreamParseError) Error() string {
	return fmt.Sprintf("stream parse error: %s", e.Description)
}

// ConfigurationError signals a missing or invalid setup requirement, such
// as Cache.request_object being called with no registered fetcher_factory,
// or a feature handler returning an unrecognized result variant.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// ValidationError signals a constructor invariant violation, such as a
// CacheItem built with freshness_time > expire_time > purge_time out of
// order.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Reason)
}

// JIDError is propagated from JID construction/validation. In certificate
// and `to`/`from` validation paths it is logged and the offending value is
// skipped rather than treated as fatal.
type JIDError struct {
	Input  string
	Reason string
}

func (e *JIDError) Error() string {
	return fmt.Sprintf("invalid JID %q: %s", e.Input, e.Reason)
}
