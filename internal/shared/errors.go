// Package shared provides common utilities used across the codebase.
//
//nolint:revive // "shared" is an intentional package name for cross-cutting helpers.
package shared

import (
	"errors"
	"fmt"
)

// ConfigurationError reports a missing or empty identity or capability
// token. It fails fast: no network action is attempted when one is raised.
type ConfigurationError struct {
	Field string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s is empty", e.Field)
}

// ConnectionError reports a handshake or transport failure on the channel.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ProtocolError reports a malformed or unexpected server event. Protocol
// errors are logged and skipped, never fatal to the event loop.
type ProtocolError struct {
	FrameType string
	Err       error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("protocol error in %q frame: %v", e.FrameType, e.Err)
	}
	return fmt.Sprintf("protocol error: unexpected %q frame", e.FrameType)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// IsConfigurationError checks whether err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsConnectionError checks whether err is a ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// IsProtocolError checks whether err is a ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
