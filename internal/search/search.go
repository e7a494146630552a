// Package search runs one-shot queries against the file documents of the
// index. Each language bucket indexes content with its own analyzer, so
// the query text is analyzed once per bucket and the per-bucket queries
// are combined.
package search

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/highlight/highlighter/ansi"
	htmlhl "github.com/blevesearch/bleve/v2/search/highlight/highlighter/html"
	"github.com/blevesearch/bleve/v2/search/query"

	dwerrors "github.com/Aman-CERP/docwatch/internal/errors"
	"github.com/Aman-CERP/docwatch/internal/router"
	"github.com/Aman-CERP/docwatch/internal/store"
)

// Mode selects how the query text is matched.
type Mode string

const (
	// ModeTerm matches documents containing any of the analyzed terms.
	ModeTerm Mode = "term"
	// ModePhrase matches the analyzed terms in order.
	ModePhrase Mode = "phrase"
	// ModeFuzzy matches terms within FuzzyDistance edits.
	ModeFuzzy Mode = "fuzzy"
)

// FuzzyDistance is the edit distance used by ModeFuzzy.
const FuzzyDistance = 2

// DefaultLimit is the number of hits returned when Options.Limit is unset.
const DefaultLimit = 10

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(s)); m {
	case ModeTerm, ModePhrase, ModeFuzzy:
		return m, nil
	case "":
		return ModeTerm, nil
	default:
		return "", dwerrors.New(dwerrors.ErrCodeInvalidInput, fmt.Sprintf("unknown search mode %q", s), nil).
			WithSuggestion("use term, phrase or fuzzy")
	}
}

// Options configures one query.
type Options struct {
	Mode Mode
	// Language restricts hits to documents detected as this language.
	Language string
	// Limit caps the hits returned. Zero means DefaultLimit, negative
	// means all hits.
	Limit int
	// Highlight requests content fragments with the matches marked.
	Highlight bool
	// Color marks matches with ANSI escapes instead of MarkStart/MarkEnd.
	Color bool
}

// Plain-text match markers used when Color is off.
const (
	MarkStart = "**"
	MarkEnd   = "**"
)

// Hit is one matching file.
type Hit struct {
	Path      string   `json:"path"`
	Name      string   `json:"name"`
	Language  string   `json:"language"`
	Score     float64  `json:"score"`
	Fragments []string `json:"fragments,omitempty"`
}

// Result is the outcome of a query.
type Result struct {
	// Total counts all matching files, not only the returned hits.
	Total uint64 `json:"total"`
	Hits  []Hit  `json:"hits"`
}

// Searcher queries an index.
type Searcher struct {
	index bleve.Index
}

// New creates a Searcher over index.
func New(index bleve.Index) *Searcher {
	return &Searcher{index: index}
}

// Search runs text against the indexed file contents.
func (s *Searcher) Search(ctx context.Context, text string, opts Options) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, dwerrors.New(dwerrors.ErrCodeInvalidQuery, "search query is empty", nil)
	}
	if opts.Mode == "" {
		opts.Mode = ModeTerm
	}

	q := buildQuery(text, opts)

	size := opts.Limit
	if size == 0 {
		size = DefaultLimit
	}
	if size < 0 {
		total, err := s.count(ctx, q)
		if err != nil {
			return nil, err
		}
		size = int(total)
	}

	req := bleve.NewSearchRequestOptions(q, size, 0, false)
	req.Fields = []string{store.FieldPath, store.FieldName, store.FieldLanguage}
	if opts.Highlight {
		style := htmlhl.Name
		if opts.Color {
			style = ansi.Name
		}
		req.Highlight = bleve.NewHighlightWithStyle(style)
		req.Highlight.AddField(store.FieldContent)
	}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, dwerrors.InternalError("search failed", err)
	}

	out := &Result{Total: res.Total, Hits: make([]Hit, 0, len(res.Hits))}
	for _, h := range res.Hits {
		hit := Hit{
			Path:     stringField(h.Fields, store.FieldPath),
			Name:     stringField(h.Fields, store.FieldName),
			Language: stringField(h.Fields, store.FieldLanguage),
			Score:    h.Score,
		}
		for _, frag := range h.Fragments[store.FieldContent] {
			if !opts.Color {
				frag = plainFragment(frag)
			}
			hit.Fragments = append(hit.Fragments, frag)
		}
		out.Hits = append(out.Hits, hit)
	}
	return out, nil
}

func (s *Searcher) count(ctx context.Context, q query.Query) (uint64, error) {
	res, err := s.index.SearchInContext(ctx, bleve.NewSearchRequestOptions(q, 0, 0, false))
	if err != nil {
		return 0, dwerrors.InternalError("search failed", err)
	}
	return res.Total, nil
}

// buildQuery combines one content query per bucket, each analyzed with
// the bucket's analyzer and restricted to the bucket's documents.
func buildQuery(text string, opts Options) query.Query {
	if opts.Language != "" {
		bucket := router.Bucket(opts.Language)
		return query.NewConjunctionQuery([]query.Query{
			keyword(store.FieldLanguage, strings.ToLower(opts.Language)),
			bucketQuery(text, opts.Mode, bucket),
		})
	}

	buckets := router.Buckets()
	parts := make([]query.Query, 0, len(buckets))
	for _, b := range buckets {
		parts = append(parts, bucketQuery(text, opts.Mode, b))
	}
	return query.NewDisjunctionQuery(parts)
}

func bucketQuery(text string, mode Mode, bucket string) query.Query {
	return query.NewConjunctionQuery([]query.Query{
		keyword(store.FieldBucket, bucket),
		contentQuery(text, mode, store.AnalyzerFor(bucket)),
	})
}

func contentQuery(text string, mode Mode, analyzer string) query.Query {
	switch mode {
	case ModePhrase:
		q := query.NewMatchPhraseQuery(text)
		q.SetField(store.FieldContent)
		q.Analyzer = analyzer
		return q
	case ModeFuzzy:
		q := query.NewMatchQuery(text)
		q.SetField(store.FieldContent)
		q.Analyzer = analyzer
		q.SetFuzziness(FuzzyDistance)
		return q
	default:
		q := query.NewMatchQuery(text)
		q.SetField(store.FieldContent)
		q.Analyzer = analyzer
		return q
	}
}

func keyword(field, value string) query.Query {
	q := query.NewTermQuery(value)
	q.SetField(field)
	return q
}

func stringField(fields map[string]interface{}, name string) string {
	s, _ := fields[name].(string)
	return s
}

// plainFragment turns an html-highlighted fragment back into text with
// MarkStart/MarkEnd around matches.
func plainFragment(frag string) string {
	frag = strings.ReplaceAll(frag, "<mark>", MarkStart)
	frag = strings.ReplaceAll(frag, "</mark>", MarkEnd)
	return html.UnescapeString(frag)
}
