// Package router classifies extracted text by language and maps languages
// to the analyzer buckets the index knows about.
package router

import (
	"crypto/sha256"
	"log/slog"
	"strings"

	"github.com/abadojack/whatlanggo"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of classification results kept.
const DefaultCacheSize = 4096

// sampleLen bounds how much text is handed to the detector.
const sampleLen = 16 * 1024

// StandardBucket is the bucket for languages without a dedicated analyzer.
const StandardBucket = "standard"

// buckets maps ISO 639-1 tags to analyzer buckets.
var buckets = map[string]string{
	"en": "en",
	"de": "de",
	"fr": "fr",
	"es": "es",
	"it": "it",
	"pt": "pt",
	"nl": "nl",
	"ru": "ru",
	"pl": "pl",
	"zh": "cjk",
	"ja": "cjk",
	"ko": "cjk",
}

// Buckets returns every bucket name, StandardBucket included.
func Buckets() []string {
	seen := map[string]bool{StandardBucket: true}
	out := []string{StandardBucket}
	for _, b := range buckets {
		if !seen[b] {
			seen[b] = true
			out = append(out, b)
		}
	}
	return out
}

// Bucket maps a language tag to its analyzer bucket.
func Bucket(lang string) string {
	if b, ok := buckets[strings.ToLower(lang)]; ok {
		return b
	}
	return StandardBucket
}

// Detector identifies the language of a text sample.
type Detector interface {
	// Detect returns an ISO 639-1 tag and whether the result is reliable.
	// An empty tag means the language is unknown.
	Detect(text string) (lang string, reliable bool)
}

// WhatlangDetector detects languages with whatlanggo.
type WhatlangDetector struct{}

// Detect implements Detector.
func (WhatlangDetector) Detect(text string) (string, bool) {
	info := whatlanggo.Detect(text)
	return info.Lang.Iso6391(), info.IsReliable()
}

// Config configures a Router.
type Config struct {
	// Default is returned when detection fails or is not supported.
	Default string
	// Supported limits results; empty allows any detected language.
	Supported []string
	// CacheSize bounds the classification cache.
	CacheSize int
}

// Router classifies text, failing soft to the default language.
// Safe for concurrent use.
type Router struct {
	detector  Detector
	def       string
	supported map[string]bool
	cache     *lru.Cache[[sha256.Size]byte, string]
}

// New creates a Router. A nil detector uses whatlanggo.
func New(cfg Config, detector Detector) *Router {
	if detector == nil {
		detector = WhatlangDetector{}
	}
	def := strings.ToLower(cfg.Default)
	if def == "" {
		def = "en"
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[[sha256.Size]byte, string](size)
	if err != nil {
		// Classification still works, every call goes to the detector
		slog.Warn("classification_cache_disabled",
			slog.Int("size", size),
			slog.String("error", err.Error()))
		cache = nil
	}

	var supported map[string]bool
	if len(cfg.Supported) > 0 {
		supported = make(map[string]bool, len(cfg.Supported))
		for _, l := range cfg.Supported {
			supported[strings.ToLower(l)] = true
		}
	}

	return &Router{
		detector:  detector,
		def:       def,
		supported: supported,
		cache:     cache,
	}
}

// Default returns the fallback language.
func (r *Router) Default() string {
	return r.def
}

// Classify returns the language tag for text.
func (r *Router) Classify(text string) string {
	sample := text
	if len(sample) > sampleLen {
		sample = sample[:sampleLen]
	}
	if strings.TrimSpace(sample) == "" {
		return r.def
	}

	if r.cache == nil {
		return r.detect(sample)
	}

	key := sha256.Sum256([]byte(sample))
	if lang, ok := r.cache.Get(key); ok {
		return lang
	}

	lang := r.detect(sample)
	r.cache.Add(key, lang)
	return lang
}

func (r *Router) detect(sample string) string {
	lang, reliable := r.detector.Detect(sample)
	lang = strings.ToLower(lang)
	switch {
	case lang == "" || !reliable:
		slog.Debug("language_fallback",
			slog.String("detected", lang),
			slog.Bool("reliable", reliable),
			slog.String("default", r.def))
		return r.def
	case r.supported != nil && !r.supported[lang]:
		slog.Debug("language_unsupported",
			slog.String("detected", lang),
			slog.String("default", r.def))
		return r.def
	}
	return lang
}
