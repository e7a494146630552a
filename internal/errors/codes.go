// Package errors provides structured error handling for docwatch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Startup resource errors (config, index store, notifier)
//   - 2XX: Per-file and per-batch errors (filesystem, extraction, index writes)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration and startup resource errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates filesystem and index I/O errors.
	CategoryIO Category = "IO"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates the process cannot continue.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates the current operation failed but the process continues.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates one item was skipped.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Startup errors (100-199)
	ErrCodeConfig      = "ERR_101_CONFIG"
	ErrCodeIndexOpen   = "ERR_102_INDEX_OPEN"
	ErrCodeIndexLocked = "ERR_103_INDEX_LOCKED"
	ErrCodeNotifier    = "ERR_104_NOTIFIER"

	// Per-item errors (200-299)
	ErrCodeFSAccess   = "ERR_201_FS_ACCESS"
	ErrCodeExtraction = "ERR_202_EXTRACTION"
	ErrCodeIndexWrite = "ERR_203_INDEX_WRITE"

	// Validation errors (400-499)
	ErrCodeInvalidInput = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidPath  = "ERR_402_INVALID_PATH"
	ErrCodeInvalidQuery = "ERR_403_INVALID_QUERY"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "101" from "ERR_101_CONFIG")
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	// Startup resources the process cannot run without
	if categoryFromCode(code) == CategoryConfig {
		return SeverityFatal
	}

	switch code {
	case ErrCodeFSAccess, ErrCodeExtraction:
		return SeverityWarning
	default:
		return SeverityError
	}
}
