package tokenize

import "strings"

// Bundled stopword lists by ISO 639-1 language code. Deliberately small:
// only high-frequency function words that carry no retrieval signal.
var stopwordLists = map[string][]string{
	"en": {
		"a", "an", "and", "are", "as", "at", "be", "but", "by", "for",
		"from", "had", "has", "have", "he", "her", "his", "i", "if", "in",
		"is", "it", "its", "my", "no", "not", "of", "on", "or", "our",
		"she", "so", "that", "the", "their", "them", "then", "there",
		"they", "this", "to", "was", "we", "were", "what", "when", "where",
		"which", "who", "will", "with", "you", "your",
	},
	"es": {
		"de", "el", "en", "es", "la", "las", "lo", "los", "no", "para",
		"pero", "por", "que", "se", "su", "un", "una", "y",
	},
	"de": {
		"aber", "auf", "das", "dass", "dem", "den", "der", "des", "die",
		"ein", "eine", "ist", "mit", "nicht", "sich", "sie", "und", "von",
		"zu",
	},
	"fr": {
		"au", "aux", "ce", "dans", "des", "du", "elle", "est", "et", "il",
		"la", "le", "les", "ne", "pas", "pour", "qui", "sur", "un", "une",
	},
}

// StopwordLanguages returns the language codes with a bundled stopword list.
func StopwordLanguages() []string {
	return []string{"en", "es", "de", "fr"}
}

// Stopwords returns the merged stopword set for the given language codes
// plus any extra words. Unknown codes are ignored. With no arguments the
// result is empty (the tokenizer then keeps every term).
func Stopwords(languages []string, extra ...string) []string {
	var words []string
	for _, lang := range languages {
		words = append(words, stopwordLists[strings.ToLower(lang)]...)
	}
	return append(words, extra...)
}
