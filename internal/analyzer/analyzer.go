// Package analyzer registers the tokenization pipeline used for every
// non-keyword field in the index: unicode lowercasing, then splitting on
// any non-alphanumeric rune. No stemming, no stop words, no camel-case
// splitting — the pipeline is intentionally the simplest thing that
// produces a stable wire format, since changing it changes what a
// published index means to a peer.
package analyzer

import (
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	_ "github.com/blevesearch/bleve/v2/config"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"

	"github.com/nxindex/core/internal/field"
)

// TokenizerName and AnalyzerName identify the registered pipeline
// components.
const (
	TokenizerName = "nexus_alnum"
	AnalyzerName  = "nexus"
)

func init() {
	_ = registry.RegisterTokenizer(TokenizerName, alnumTokenizerConstructor)
}

// Register installs the analyzer on m as the default analyzer for the
// mapping, then builds a document mapping that assigns bleve's built-in
// "keyword" analyzer to every field fields marks Keyword: true, so an
// EXACT query against g_kw/a_kw/v_kw/UINFO/classifier/packaging/
// extension/sha1/md5/classnames_kw matches the stored value verbatim
// instead of the alnum-split, lowercased terms the nexus analyzer would
// otherwise produce for it. Every other field keeps falling through to
// m.DefaultAnalyzer (the nexus tokenizer), since a bleve DocumentMapping
// with no per-field mapping and no DefaultAnalysis inherits the index's
// default analyzer.
func Register(m *mapping.IndexMappingImpl, fields []field.IndexerField) error {
	if err := m.AddCustomAnalyzer(AnalyzerName, map[string]interface{}{
		"type":      "custom",
		"tokenizer": TokenizerName,
		"token_filters": []string{
			lowercase.Name,
		},
	}); err != nil {
		return err
	}
	m.DefaultAnalyzer = AnalyzerName

	doc := bleve.NewDocumentMapping()
	for _, f := range fields {
		if !f.Keyword {
			continue
		}
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keywordAnalyzerName
		fm.Store = f.Stored
		fm.Index = f.Indexed
		fm.IncludeInAll = false
		doc.AddFieldMappingsAt(f.StorageKey, fm)
	}
	m.DefaultMapping = doc

	return nil
}

// keywordAnalyzerName is bleve's built-in untokenized analyzer, registered
// in bleve's own analyzer registry by the top-level bleve package's blank
// imports — no analyzer of that name is defined in this package.
const keywordAnalyzerName = "keyword"

// NewIndexMapping builds a bleve index mapping with the nexus analyzer
// registered as default and every keyword field in fields mapped to
// bleve's "keyword" analyzer.
func NewIndexMapping(fields []field.IndexerField) (*mapping.IndexMappingImpl, error) {
	m := bleve.NewIndexMapping()
	if err := Register(m, fields); err != nil {
		return nil, err
	}
	return m, nil
}

// alnumTokenizerConstructor builds the tokenizer that splits on any rune
// that is not a unicode letter or digit.
func alnumTokenizerConstructor(_ map[string]interface{}, _ *registry.Cache) (analysis.Tokenizer, error) {
	return &alnumTokenizer{}, nil
}

// alnumTokenizer implements analysis.Tokenizer. Tokenize splits the input
// into maximal runs of unicode letters and digits; every other rune is a
// separator and is dropped.
type alnumTokenizer struct{}

func (t *alnumTokenizer) Tokenize(input []byte) analysis.TokenStream {
	runes := []rune(string(input))
	var stream analysis.TokenStream

	pos := 1
	start := -1
	byteOffset := 0
	runStart := -1

	flush := func(end int) {
		if start == -1 {
			return
		}
		term := string(runes[runStart:end])
		stream = append(stream, &analysis.Token{
			Term:     []byte(term),
			Start:    start,
			End:      byteOffset,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		start = -1
	}

	offset := 0
	for i, r := range runes {
		size := len(string(r))
		if isAlnum(r) {
			if start == -1 {
				start = offset
				runStart = i
			}
		} else {
			flush(i)
		}
		offset += size
		byteOffset = offset
	}
	flush(len(runes))

	return stream
}

// isAlnum reports whether r should be treated as part of a token.
func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
