package store

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	// Language analyzers used by the content buckets
	_ "github.com/blevesearch/bleve/v2/analysis/lang/cjk"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/de"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/en"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/es"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/fr"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/it"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/nl"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/pl"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/pt"
	_ "github.com/blevesearch/bleve/v2/analysis/lang/ru"

	"github.com/Aman-CERP/docwatch/internal/router"
)

// AnalyzerFor returns the bleve analyzer name for a bucket.
// Language buckets are named after their analyzers.
func AnalyzerFor(bucket string) string {
	if bucket == router.StandardBucket || bucket == "" {
		return standard.Name
	}
	return bucket
}

// newIndexMapping builds one document mapping per content bucket plus the
// root marker mapping.
func newIndexMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	// Unknown types are stored but not indexed
	im.DefaultMapping = bleve.NewDocumentDisabledMapping()

	im.AddDocumentMapping(TypeRoot, rootMapping())
	for _, bucket := range router.Buckets() {
		im.AddDocumentMapping(FileType(bucket), fileMapping(AnalyzerFor(bucket)))
	}
	return im
}

func keywordField() *mapping.FieldMapping {
	fm := bleve.NewKeywordFieldMapping()
	fm.Analyzer = keyword.Name
	fm.Store = true
	fm.IncludeInAll = false
	return fm
}

func rootMapping() *mapping.DocumentMapping {
	dm := bleve.NewDocumentStaticMapping()
	dm.AddFieldMappingsAt(FieldKind, keywordField())
	dm.AddFieldMappingsAt(FieldPath, keywordField())
	return dm
}

func fileMapping(analyzer string) *mapping.DocumentMapping {
	dm := bleve.NewDocumentStaticMapping()
	dm.AddFieldMappingsAt(FieldKind, keywordField())
	dm.AddFieldMappingsAt(FieldPath, keywordField())
	dm.AddFieldMappingsAt(FieldName, keywordField())
	dm.AddFieldMappingsAt(FieldLanguage, keywordField())
	dm.AddFieldMappingsAt(FieldBucket, keywordField())

	content := bleve.NewTextFieldMapping()
	content.Analyzer = analyzer
	content.Store = true
	content.IncludeTermVectors = true
	dm.AddFieldMappingsAt(FieldContent, content)
	return dm
}
