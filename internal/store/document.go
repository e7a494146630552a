package store

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/Aman-CERP/docwatch/internal/router"
)

// Document kinds, stored in FieldKind.
const (
	KindFile = "file"
	KindRoot = "root"
)

// Field names shared by the mapping, the queries and the search package.
const (
	FieldKind     = "kind"
	FieldPath     = "path"
	FieldName     = "name"
	FieldLanguage = "language"
	FieldBucket   = "bucket"
	FieldContent  = "content"
)

// TypeRoot is the bleve document type of root markers.
const TypeRoot = "root"

// FileType returns the bleve document type for files in bucket.
// Each type maps the content field with the bucket's analyzer.
func FileType(bucket string) string {
	return "file_" + bucket
}

// FileID returns the document ID of the file at path.
func FileID(path string) string {
	return "file:" + path
}

// RootID returns the document ID of the marker for root.
func RootID(path string) string {
	return "root:" + path
}

// FileDoc is the indexed form of one regular file.
type FileDoc struct {
	Kind     string `json:"kind"`
	Path     string `json:"path"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Bucket   string `json:"bucket"`
	Content  string `json:"content"`
}

// BleveType selects the document mapping, and with it the content analyzer.
func (d FileDoc) BleveType() string {
	return FileType(d.Bucket)
}

// newFileDoc builds the document for path with content in lang.
func newFileDoc(path, lang, content string) FileDoc {
	return FileDoc{
		Kind:     KindFile,
		Path:     path,
		Name:     filepath.Base(path),
		Language: lang,
		Bucket:   router.Bucket(lang),
		Content:  content,
	}
}

// rootDoc marks a watched root. The set of markers is the registry.
type rootDoc struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
}

func (rootDoc) BleveType() string {
	return TypeRoot
}

// TreeResult reports the outcome of indexing a subtree.
type TreeResult struct {
	Indexed int
	Skipped int
}

// Add accumulates other into r.
func (r *TreeResult) Add(other TreeResult) {
	r.Indexed += other.Indexed
	r.Skipped += other.Skipped
}

// Classifier picks the language of extracted text.
type Classifier interface {
	Classify(text string) string
}

// Index is the mutation facade and read side used by the registry,
// the synchronizer and the admin commands.
type Index interface {
	// WithSession runs fn inside one mutation session. Mutations are
	// committed when fn returns nil and discarded otherwise.
	WithSession(ctx context.Context, fn func(*Session) error) error

	// Roots returns the registered root paths, sorted.
	Roots(ctx context.Context) ([]string, error)

	// CountByPrefix counts file documents at or under prefix.
	CountByPrefix(ctx context.Context, prefix string) (int, error)

	// Has reports whether a file document exists for path.
	Has(ctx context.Context, path string) (bool, error)

	// DocCount returns the total number of documents, markers included.
	DocCount() (uint64, error)
}

// underPrefix reports whether path is prefix or lies below it.
// "/docs" covers "/docs" and "/docs/a.txt" but not "/docs2".
func underPrefix(path, prefix string) bool {
	if path == prefix {
		return true
	}
	if prefix == string(filepath.Separator) {
		return strings.HasPrefix(path, prefix)
	}
	return strings.HasPrefix(path, prefix+string(filepath.Separator))
}
