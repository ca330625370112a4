// Package vspace builds the term-document vector space for a corpus.
package vspace

import (
	"errors"
	"maps"
	"strings"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrEmptyCorpus is returned when Build is given no documents.
	ErrEmptyCorpus = errors.New("vspace: empty corpus")
	// ErrEmptyVocabulary is returned when no document contributes a term.
	ErrEmptyVocabulary = errors.New("vspace: no terms left after tokenization")
)

// Space is a term-document matrix (one row per document, one column per
// term) together with the term index that names its columns.
type Space struct {
	index  map[string]int
	terms  []string
	matrix *mat.Dense
}

// Build tokenizes docs and counts term occurrences per document.
// The vocabulary comes from tokenizing the whole corpus once; columns are
// assigned in first-seen order. A nil tokenizer means NewTokenizer().
func Build(docs []string, tok Tokenizer) (*Space, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyCorpus
	}
	if tok == nil {
		tok = NewTokenizer()
	}

	vocabulary := tok.Tokenize(strings.Join(docs, " "))
	index := make(map[string]int, len(vocabulary))
	terms := make([]string, 0, len(vocabulary))
	for _, term := range vocabulary {
		if _, ok := index[term]; ok {
			continue
		}
		index[term] = len(terms)
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		return nil, ErrEmptyVocabulary
	}

	m := mat.NewDense(len(docs), len(terms), nil)
	for row, doc := range docs {
		for _, term := range tok.Tokenize(doc) {
			col, ok := index[term]
			if !ok {
				continue
			}
			m.Set(row, col, m.At(row, col)+1)
		}
	}

	return &Space{index: index, terms: terms, matrix: m}, nil
}

// Matrix returns the docs x terms matrix. It is shared, not copied: the
// semantic indexer rewrites it in place.
func (s *Space) Matrix() *mat.Dense { return s.matrix }

// Docs returns the number of document rows.
func (s *Space) Docs() int {
	r, _ := s.matrix.Dims()
	return r
}

// TermCount returns the number of term columns.
func (s *Space) TermCount() int { return len(s.terms) }

// Term returns the term at column i.
func (s *Space) Term(i int) string { return s.terms[i] }

// Terms returns a copy of the vocabulary in column order.
func (s *Space) Terms() []string {
	out := make([]string, len(s.terms))
	copy(out, s.terms)
	return out
}

// Index returns a copy of the term index.
func (s *Space) Index() map[string]int { return maps.Clone(s.index) }

// Lookup returns the column index of term.
func (s *Space) Lookup(term string) (int, bool) {
	i, ok := s.index[term]
	return i, ok
}
