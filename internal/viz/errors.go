// SPDX-License-Identifier: MIT

// Package viz runs the capture-analyze-publish pipeline and holds the
// latest visualization snapshot.
package viz

import "fmt"

// ErrorCode classifies pipeline failures by how the engine reacts to
// them.
type ErrorCode int

const (
	// CodeDeviceUnavailable marks a recoverable capture failure. The
	// engine keeps running on silence and retries the device.
	CodeDeviceUnavailable ErrorCode = iota
	// CodeInvalidConfig marks a configuration value that was clamped
	// or substituted rather than rejected.
	CodeInvalidConfig
	// CodeTransformFailure marks a broken internal contract in the
	// analysis stage. Not recoverable.
	CodeTransformFailure
)

func (c ErrorCode) String() string {
	switch c {
	case CodeDeviceUnavailable:
		return "device_unavailable"
	case CodeInvalidConfig:
		return "invalid_config"
	case CodeTransformFailure:
		return "transform_failure"
	default:
		return "unknown"
	}
}

// Error is a classified pipeline error.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Code, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Recoverable reports whether the engine can keep running past this
// error.
func (e *Error) Recoverable() bool {
	return e.Code != CodeTransformFailure
}

func newError(code ErrorCode, op, message string, cause error) *Error {
	return &Error{Code: code, Op: op, Message: message, Cause: cause}
}
