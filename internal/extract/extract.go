// Package extract converts files on disk into indexable text.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	dwerrors "github.com/Aman-CERP/docwatch/internal/errors"
)

// DefaultMaxFileSize is used when a TextExtractor has no explicit limit.
const DefaultMaxFileSize int64 = 32 * 1024 * 1024

// sniffLen is how much of a file is inspected for NUL bytes.
const sniffLen = 8 * 1024

// Extractor turns the file at path into plain text.
// Failures are reported as ExtractionError or FSAccessError.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, path string) (string, error)

// Extract calls f(ctx, path).
func (f ExtractorFunc) Extract(ctx context.Context, path string) (string, error) {
	return f(ctx, path)
}

// TextExtractor reads plain-text files.
// UTF-16 files with a byte order mark are decoded, a UTF-8 BOM is dropped,
// and invalid UTF-8 sequences are replaced with U+FFFD.
type TextExtractor struct {
	MaxFileSize int64
}

// NewTextExtractor creates a TextExtractor. maxFileSize <= 0 uses the default.
func NewTextExtractor(maxFileSize int64) *TextExtractor {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &TextExtractor{MaxFileSize: maxFileSize}
}

// Extract reads and decodes the file at path.
func (e *TextExtractor) Extract(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", dwerrors.FSAccessError(path, err)
	}
	if !info.Mode().IsRegular() {
		return "", dwerrors.ExtractionError(path, fmt.Errorf("not a regular file"))
	}
	limit := e.MaxFileSize
	if limit <= 0 {
		limit = DefaultMaxFileSize
	}
	if info.Size() > limit {
		return "", dwerrors.ExtractionError(path, fmt.Errorf("file size %d exceeds limit %d", info.Size(), limit)).
			WithDetail("size", fmt.Sprint(info.Size()))
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", dwerrors.FSAccessError(path, err)
	}

	text, err := Decode(raw)
	if err != nil {
		return "", dwerrors.ExtractionError(path, err)
	}
	return text, nil
}

// Decode converts raw file bytes to valid UTF-8 text.
// Content without a UTF-16 BOM that has a NUL byte in its first 8 KiB is
// treated as binary and rejected.
func Decode(raw []byte) (string, error) {
	utf16 := hasUTF16BOM(raw)
	if !utf16 && bytes.IndexByte(raw[:min(len(raw), sniffLen)], 0) >= 0 {
		return "", fmt.Errorf("binary content")
	}

	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(raw), decoder))
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}

	if !utf8.Valid(out) {
		return strings.ToValidUTF8(string(out), "�"), nil
	}
	return string(out), nil
}

func hasUTF16BOM(raw []byte) bool {
	if len(raw) < 2 {
		return false
	}
	return (raw[0] == 0xFF && raw[1] == 0xFE) || (raw[0] == 0xFE && raw[1] == 0xFF)
}
