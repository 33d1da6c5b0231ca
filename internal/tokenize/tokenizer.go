// Package tokenize turns raw text into normalized terms or character n-grams.
package tokenize

import (
	"strings"
	"unicode"
)

// Boundary is the marker inserted at word boundaries when producing n-grams,
// so that term edges contribute signal to the hashed representation.
const Boundary = ' '

// Tokenizer normalizes text into terms, filtering a fixed stopword set.
// The zero value tokenizes with no stopwords. Tokenizers are immutable
// after construction and safe for concurrent use.
type Tokenizer struct {
	stopwords map[string]struct{}
}

// NewTokenizer creates a tokenizer that drops the given stopwords.
// Stopwords are matched after normalization (lowercased).
func NewTokenizer(stopwords []string) *Tokenizer {
	set := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		set[strings.ToLower(w)] = struct{}{}
	}
	return &Tokenizer{stopwords: set}
}

// Terms returns the normalized term sequence for text: lowercased, split on
// any non-letter/non-digit rune, stopwords removed. Deterministic; empty or
// all-stopword input yields nil.
func (t *Tokenizer) Terms(text string) []string {
	var terms []string
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		term := b.String()
		b.Reset()
		if _, stop := t.stopwords[term]; stop {
			return
		}
		terms = append(terms, term)
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()
	return terms
}

// NGrams returns every character n-gram of each requested size over the
// normalized text. The string is framed and word-joined with the Boundary
// marker, so "go fmt" yields grams spanning the boundary such as "o f".
// Stopwords are not removed; the dense hashing scheme wants the full surface.
func (t *Tokenizer) NGrams(text string, sizes []int) []string {
	runes := normalizeRunes(text)
	if len(runes) == 0 {
		return nil
	}
	var grams []string
	for _, n := range sizes {
		if n <= 0 || n > len(runes) {
			continue
		}
		for i := 0; i+n <= len(runes); i++ {
			grams = append(grams, string(runes[i:i+n]))
		}
	}
	return grams
}

// normalizeRunes lowercases text, strips punctuation, collapses whitespace
// runs to a single Boundary, and frames the result with Boundary markers.
func normalizeRunes(text string) []rune {
	var runes []rune
	inWord := false
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if !inWord {
				runes = append(runes, Boundary)
			}
			runes = append(runes, unicode.ToLower(r))
			inWord = true
		case unicode.IsSpace(r):
			inWord = false
		default:
			// punctuation and symbols are dropped without breaking the word
			// ("key-based" -> "keybased")
		}
	}
	if len(runes) == 0 {
		return nil
	}
	return append(runes, Boundary)
}

// CountTerms folds a term sequence into per-term occurrence counts.
func CountTerms(terms []string) map[string]int {
	if len(terms) == 0 {
		return map[string]int{}
	}
	counts := make(map[string]int, len(terms))
	for _, t := range terms {
		counts[t]++
	}
	return counts
}
