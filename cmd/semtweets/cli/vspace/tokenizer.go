package vspace

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMinLength is the shortest term the default tokenizer keeps.
const DefaultMinLength = 2

//go:embed stopwords.txt
var defaultStopwords string

// Tokenizer turns a piece of text into normalized terms.
type Tokenizer interface {
	Tokenize(text string) []string
}

// TextTokenizer lowercases, strips punctuation and URLs, and removes
// stop-words. Duplicates are collapsed within one call unless the tokenizer
// was built with WithDuplicates(true).
type TextTokenizer struct {
	stopwords      map[string]bool
	minLength      int
	keepDuplicates bool
}

// TokenizerOption configures a TextTokenizer.
type TokenizerOption func(*TextTokenizer)

// WithStopwords replaces the embedded English stop-word list.
func WithStopwords(words []string) TokenizerOption {
	return func(t *TextTokenizer) {
		t.stopwords = make(map[string]bool, len(words))
		for _, w := range words {
			t.stopwords[normalize(w)] = true
		}
	}
}

// WithMinLength drops terms shorter than n runes.
func WithMinLength(n int) TokenizerOption {
	return func(t *TextTokenizer) { t.minLength = n }
}

// WithDuplicates keeps repeated terms so callers can count occurrences.
func WithDuplicates(keep bool) TokenizerOption {
	return func(t *TextTokenizer) { t.keepDuplicates = keep }
}

// NewTokenizer returns a tokenizer using the embedded stop-word list.
func NewTokenizer(opts ...TokenizerOption) *TextTokenizer {
	t := &TextTokenizer{minLength: DefaultMinLength}
	WithStopwords(strings.Fields(defaultStopwords))(t)
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// LoadStopwords reads a whitespace-separated stop-word file.
func LoadStopwords(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stop-words: %w", err)
	}
	return strings.Fields(string(data)), nil
}

// Tokenize implements Tokenizer. Terms are returned in first-seen order.
func (t *TextTokenizer) Tokenize(text string) []string {
	var terms []string
	seen := make(map[string]bool)

	emit := func(word string) {
		word = strings.TrimRight(word, "'")
		if word == "" || word == "#" || word == "@" {
			return
		}
		if utf8.RuneCountInString(word) < t.minLength || t.stopwords[word] {
			return
		}
		if !t.keepDuplicates {
			if seen[word] {
				return
			}
			seen[word] = true
		}
		terms = append(terms, word)
	}

	for _, field := range strings.Fields(normalize(text)) {
		if isURL(field) {
			continue
		}
		var current strings.Builder
		for _, r := range field {
			switch {
			case unicode.IsLetter(r) || unicode.IsDigit(r):
				current.WriteRune(r)
			case (r == '#' || r == '@') && current.Len() == 0:
				current.WriteRune(r)
			case r == '\'' && current.Len() > 0:
				current.WriteRune(r)
			default:
				emit(current.String())
				current.Reset()
			}
		}
		emit(current.String())
	}
	return terms
}

func normalize(s string) string {
	s = strings.ToLower(s)
	return strings.NewReplacer("’", "'", "‘", "'").Replace(s)
}

func isURL(field string) bool {
	return strings.HasPrefix(field, "http://") ||
		strings.HasPrefix(field, "https://") ||
		strings.HasPrefix(field, "www.")
}
