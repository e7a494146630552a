package errors

import (
	stderrors "errors"
	"fmt"
)

// DocwatchError is the structured error type for docwatch.
// It carries enough context to decide whether the watch loop can continue
// and to render a useful message on the command line.
type DocwatchError struct {
	// Code is the unique error code (e.g., "ERR_201_FS_ACCESS").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Validation, Internal).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *DocwatchError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *DocwatchError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DocwatchError with the same code.
func (e *DocwatchError) Is(target error) bool {
	if t, ok := target.(*DocwatchError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *DocwatchError) WithDetail(key, value string) *DocwatchError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *DocwatchError) WithSuggestion(suggestion string) *DocwatchError {
	e.Suggestion = suggestion
	return e
}

// New creates a new DocwatchError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *DocwatchError {
	return &DocwatchError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a DocwatchError from an existing error.
// The error's message becomes the DocwatchError message.
func Wrap(code string, err error) *DocwatchError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Sentinels usable with errors.Is to test an error's kind.
var (
	ErrConfig      = &DocwatchError{Code: ErrCodeConfig}
	ErrIndexOpen   = &DocwatchError{Code: ErrCodeIndexOpen}
	ErrIndexLocked = &DocwatchError{Code: ErrCodeIndexLocked}
	ErrNotifier    = &DocwatchError{Code: ErrCodeNotifier}
	ErrFSAccess    = &DocwatchError{Code: ErrCodeFSAccess}
	ErrExtraction  = &DocwatchError{Code: ErrCodeExtraction}
	ErrIndexWrite  = &DocwatchError{Code: ErrCodeIndexWrite}
	ErrInvalidPath = &DocwatchError{Code: ErrCodeInvalidPath}
)

// ConfigError creates a configuration error. Fatal at startup.
func ConfigError(message string, cause error) *DocwatchError {
	return New(ErrCodeConfig, message, cause)
}

// IndexOpenError reports an index store that cannot be opened.
func IndexOpenError(path string, cause error) *DocwatchError {
	return New(ErrCodeIndexOpen, "cannot open index at "+path, cause).
		WithDetail("index_path", path)
}

// IndexLockedError reports an index held by another docwatch process.
func IndexLockedError(path string) *DocwatchError {
	return New(ErrCodeIndexLocked, "index is in use by another docwatch process", nil).
		WithDetail("index_path", path).
		WithSuggestion("stop the running watcher before running administrative commands")
}

// NotifierError reports that the event-notification service is unavailable.
func NotifierError(cause error) *DocwatchError {
	return New(ErrCodeNotifier, "filesystem event notification unavailable", cause).
		WithSuggestion("set watch.mode to poll in the config file")
}

// FSAccessError reports a path that cannot be read or watched.
func FSAccessError(path string, cause error) *DocwatchError {
	return New(ErrCodeFSAccess, "cannot access "+path, cause).WithDetail("path", path)
}

// ExtractionError reports a file whose content cannot be extracted.
func ExtractionError(path string, cause error) *DocwatchError {
	return New(ErrCodeExtraction, "cannot extract content from "+path, cause).WithDetail("path", path)
}

// IndexWriteError reports a failed index mutation or commit.
func IndexWriteError(message string, cause error) *DocwatchError {
	return New(ErrCodeIndexWrite, message, cause)
}

// InvalidPathError reports a path argument that is not usable.
func InvalidPathError(path, reason string) *DocwatchError {
	return New(ErrCodeInvalidPath, fmt.Sprintf("invalid path %q: %s", path, reason), nil).
		WithDetail("path", path)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *DocwatchError {
	return New(ErrCodeInternal, message, cause)
}

// IsFatal reports whether any DocwatchError in err's chain has fatal severity.
func IsFatal(err error) bool {
	var de *DocwatchError
	if stderrors.As(err, &de) {
		return de.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from the first DocwatchError in err's chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var de *DocwatchError
	if stderrors.As(err, &de) {
		return de.Code
	}
	return ""
}

// GetCategory extracts the category from the first DocwatchError in err's chain.
func GetCategory(err error) Category {
	var de *DocwatchError
	if stderrors.As(err, &de) {
		return de.Category
	}
	return ""
}
