package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// FormatForCLI formats an error for CLI output.
// Uses a concise format suitable for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	var de *DocwatchError
	if !stderrors.As(err, &de) {
		de = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Error: %s\n", de.Message))
	if de.Cause != nil && de.Cause.Error() != de.Message {
		sb.WriteString(fmt.Sprintf("  Cause: %s\n", de.Cause))
	}
	if de.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", de.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", de.Code))

	return sb.String()
}

// LogAttrs formats an error as slog attributes.
// The result is meant to be spread into a logging call:
//
//	slog.Warn("skipping file", errors.LogAttrs(err)...)
func LogAttrs(err error) []any {
	if err == nil {
		return nil
	}

	var de *DocwatchError
	if !stderrors.As(err, &de) {
		return []any{slog.String("error", err.Error())}
	}

	attrs := []any{
		slog.String("error_code", de.Code),
		slog.String("error", de.Message),
		slog.String("severity", string(de.Severity)),
	}
	if de.Cause != nil {
		attrs = append(attrs, slog.String("cause", de.Cause.Error()))
	}

	// Stable order for log diffing
	keys := make([]string, 0, len(de.Details))
	for k := range de.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.String("detail_"+k, de.Details[k]))
	}

	return attrs
}
