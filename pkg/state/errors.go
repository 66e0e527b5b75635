package state

import (
	"errors"
	"fmt"
)

// Category classifies how an [AuraError] can be resolved.
type Category string

const (
	// CategoryRecoverable means the user can fix the problem immediately
	// (bad path, unsupported format, permission denied). Always paired with
	// a recovery hint.
	CategoryRecoverable Category = "recoverable"

	// CategoryTransient means a retry may succeed without any user action
	// (device busy, device temporarily unavailable).
	CategoryTransient Category = "transient"

	// CategoryBlocking means the session cannot proceed without external
	// change (disk full, no input devices, internal failure).
	CategoryBlocking Category = "blocking"
)

// IsValid reports whether c is a recognised category.
func (c Category) IsValid() bool {
	switch c {
	case CategoryRecoverable, CategoryTransient, CategoryBlocking:
		return true
	}
	return false
}

// Error codes for failures surfaced by the engine and its collaborators.
// Collaborator failures are translated into these codes at the boundary;
// raw platform error values never cross into the engine.
const (
	CodeDeviceUnavailable = "device_unavailable"
	CodeDeviceDisconnect  = "device_disconnected"
	CodeNoInputDevices    = "no_input_devices"
	CodePermissionDenied  = "permission_denied"
	CodeUnsupportedFormat = "unsupported_format"
	CodeFileNotFound      = "file_not_found"
	CodeDiskFull          = "disk_full"
	CodeExportFailed      = "export_failed"
	CodeInternal          = "internal"
)

// AuraError is the error type that crosses the boundary between the engine
// and its UI collaborator. It carries a machine-readable code, a
// user-presentable message, and a category that tells the UI how to react.
type AuraError struct {
	// Code identifies the failure class (one of the Code* constants).
	Code string

	// Message is a short, user-presentable description.
	Message string

	// Detail carries optional technical context for logs. Never shown to
	// the user directly.
	Detail string

	// RecoveryHint suggests the action that resolves a recoverable error.
	// Empty for transient and blocking errors.
	RecoveryHint string

	// Category classifies the resolution path.
	Category Category

	// Err is the wrapped underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *AuraError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause for use with [errors.Is] and [errors.As].
func (e *AuraError) Unwrap() error {
	return e.Err
}

// Recoverable creates a user-fixable error with a recovery hint.
func Recoverable(code, message, hint string, cause error) *AuraError {
	return &AuraError{
		Code:         code,
		Message:      message,
		RecoveryHint: hint,
		Category:     CategoryRecoverable,
		Err:          cause,
	}
}

// Transient creates an error that may resolve on retry.
func Transient(code, message string, cause error) *AuraError {
	return &AuraError{
		Code:     code,
		Message:  message,
		Category: CategoryTransient,
		Err:      cause,
	}
}

// Blocking creates an error that requires external change to resolve.
func Blocking(code, message string, cause error) *AuraError {
	return &AuraError{
		Code:     code,
		Message:  message,
		Category: CategoryBlocking,
		Err:      cause,
	}
}

// Translate wraps an arbitrary collaborator error into an [AuraError]. If
// err already is (or wraps) an AuraError it is returned unchanged; anything
// else becomes a blocking internal error so that no raw platform error
// reaches the UI untagged.
func Translate(err error) *AuraError {
	if err == nil {
		return nil
	}
	var ae *AuraError
	if errors.As(err, &ae) {
		return ae
	}
	return &AuraError{
		Code:     CodeInternal,
		Message:  "an internal error occurred",
		Detail:   err.Error(),
		Category: CategoryBlocking,
		Err:      err,
	}
}
