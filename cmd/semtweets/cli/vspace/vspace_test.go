package vspace

import (
	"errors"
	"testing"
)

func TestBuild_EmptyCorpus(t *testing.T) {
	t.Parallel()
	_, err := Build(nil, nil)
	if !errors.Is(err, ErrEmptyCorpus) {
		t.Fatalf("expected ErrEmptyCorpus, got %v", err)
	}
}

func TestBuild_EmptyVocabulary(t *testing.T) {
	t.Parallel()
	_, err := Build([]string{"the and of", "is it"}, nil)
	if !errors.Is(err, ErrEmptyVocabulary) {
		t.Fatalf("expected ErrEmptyVocabulary, got %v", err)
	}
}

func TestBuild_Shape(t *testing.T) {
	t.Parallel()
	docs := []string{
		"coffee beans roasted",
		"green tea leaves",
		"coffee and tea",
		"the",
	}
	s, err := Build(docs, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	rows, cols := s.Matrix().Dims()
	if rows != len(docs) {
		t.Errorf("rows: got %d, want %d", rows, len(docs))
	}
	// coffee beans roasted green tea leaves
	if cols != 6 || s.TermCount() != 6 {
		t.Errorf("cols: got %d (TermCount %d), want 6", cols, s.TermCount())
	}
	if s.Docs() != len(docs) {
		t.Errorf("Docs: got %d", s.Docs())
	}
}

func TestBuild_FirstSeenOrder(t *testing.T) {
	t.Parallel()
	s, err := Build([]string{"zebra apple", "mango zebra"}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []string{"zebra", "apple", "mango"}
	for i, term := range want {
		if s.Term(i) != term {
			t.Errorf("Term(%d): got %q, want %q", i, s.Term(i), term)
		}
		col, ok := s.Lookup(term)
		if !ok || col != i {
			t.Errorf("Lookup(%q): got %d,%v", term, col, ok)
		}
	}
	if _, ok := s.Lookup("banana"); ok {
		t.Error("banana should not be in the index")
	}
}

func TestBuild_Counts(t *testing.T) {
	t.Parallel()
	docs := []string{"coffee coffee tea", "tea"}

	s, err := Build(docs, NewTokenizer(WithDuplicates(true)))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	coffee, _ := s.Lookup("coffee")
	tea, _ := s.Lookup("tea")
	m := s.Matrix()
	if got := m.At(0, coffee); got != 2 {
		t.Errorf("coffee count in doc 0: got %v, want 2", got)
	}
	if got := m.At(1, tea); got != 1 {
		t.Errorf("tea count in doc 1: got %v, want 1", got)
	}
	if got := m.At(1, coffee); got != 0 {
		t.Errorf("coffee count in doc 1: got %v, want 0", got)
	}

	// The default tokenizer collapses duplicates, so counts are 0 or 1.
	s, err = Build(docs, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	coffee, _ = s.Lookup("coffee")
	if got := s.Matrix().At(0, coffee); got != 1 {
		t.Errorf("collapsed coffee count: got %v, want 1", got)
	}
}

func TestBuild_ZeroRow(t *testing.T) {
	t.Parallel()
	s, err := Build([]string{"coffee", "!!! ...", "tea"}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for c := 0; c < s.TermCount(); c++ {
		if v := s.Matrix().At(1, c); v != 0 {
			t.Errorf("row 1 col %d: got %v, want 0", c, v)
		}
	}
}

func TestTerms_ReturnsCopy(t *testing.T) {
	t.Parallel()
	s, err := Build([]string{"coffee tea"}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	terms := s.Terms()
	terms[0] = "mutated"
	if s.Term(0) != "coffee" {
		t.Error("Terms should return a copy")
	}
}

func TestIndex_MatchesLookup(t *testing.T) {
	t.Parallel()
	s, err := Build([]string{"coffee tea", "tea milk"}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	index := s.Index()
	if len(index) != s.TermCount() {
		t.Fatalf("index has %d terms, want %d", len(index), s.TermCount())
	}
	for term, i := range index {
		if j, ok := s.Lookup(term); !ok || j != i {
			t.Errorf("Lookup(%q) = %d, %v; index says %d", term, j, ok, i)
		}
		if s.Term(i) != term {
			t.Errorf("Term(%d) = %q, want %q", i, s.Term(i), term)
		}
	}
	index["coffee"] = 99
	if i, _ := s.Lookup("coffee"); i != 0 {
		t.Error("Index should return a copy")
	}
}
