package vectorize

import (
	"math"

	"github.com/hyperjump/kioku/internal/tokenize"
)

// TFIDF weighs units by log-dampened term frequency times smoothed inverse
// document frequency. Only raw term counts are persisted; weights are always
// derived from live corpus statistics, so incremental updates can never leave
// stale weights behind.
type TFIDF struct {
	tok *tokenize.Tokenizer
}

// NewTFIDF creates a TF-IDF strategy using the given tokenizer.
func NewTFIDF(tok *tokenize.Tokenizer) *TFIDF {
	return &TFIDF{tok: tok}
}

// Name returns the mode identifier.
func (v *TFIDF) Name() string { return ModeTFIDF }

// Encode tokenizes text and returns its raw term counts.
func (v *TFIDF) Encode(text string) *Encoding {
	return &Encoding{TermCounts: tokenize.CountTerms(v.tok.Terms(text))}
}

// Weigh derives the L2-normalized TF-IDF vector for stored term counts from
// the current corpus statistics:
//
//	tf(t)  = 1 + ln(count)
//	idf(t) = ln((N+1)/(df(t)+1)) + 1
//
// The idf smoothing keeps unseen terms (df = 0) finite, so query terms
// absent from the corpus never fault.
func (v *TFIDF) Weigh(enc *Encoding, stats *CorpusStats) Vector {
	vec := make(Sparse, len(enc.TermCounts))
	for term, count := range enc.TermCounts {
		if count <= 0 {
			continue
		}
		tf := 1 + math.Log(float64(count))
		df := 0
		if stats != nil {
			df = stats.DocFreq[term]
		}
		n := 0
		if stats != nil {
			n = stats.TotalUnits
		}
		idf := math.Log(float64(n+1)/float64(df+1)) + 1
		vec[term] = tf * idf
	}
	vec.normalize()
	return vec
}
