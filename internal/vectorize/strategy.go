package vectorize

import (
	"fmt"

	"github.com/hyperjump/kioku/internal/tokenize"
)

// Strategy modes.
const (
	ModeTFIDF  = "tfidf"
	ModeHashed = "hashed"
)

// CorpusStats is the corpus-wide state TF-IDF weighting depends on. It is
// owned by the store and passed into every weighting call; units never cache
// a copy, so weights can never go stale.
type CorpusStats struct {
	// DocFreq maps a term to the number of units containing it at least once.
	DocFreq map[string]int
	// TotalUnits is the number of persisted units.
	TotalUnits int
}

// Encoding is the persisted form of one unit's vector data: raw term counts
// in TF-IDF mode, dense components in hashed mode. Exactly one field is set.
type Encoding struct {
	TermCounts map[string]int
	Components []float32
}

// Strategy converts text into vectors. Implementations are chosen at
// construction time, one per deployment.
type Strategy interface {
	// Name returns the mode identifier recorded in the store's metadata.
	Name() string
	// Encode produces the persistable representation of text.
	Encode(text string) *Encoding
	// Weigh derives the comparable vector from a stored encoding using the
	// current corpus statistics. Hashed encodings ignore stats.
	Weigh(enc *Encoding, stats *CorpusStats) Vector
}

// Vectorize is Weigh(Encode(text), stats): the full path used for queries
// and for freshly indexed units.
func Vectorize(s Strategy, text string, stats *CorpusStats) Vector {
	return s.Weigh(s.Encode(text), stats)
}

// New returns the strategy for the given mode name.
func New(mode string, tok *tokenize.Tokenizer, dimensions int, ngramSizes []int) (Strategy, error) {
	switch mode {
	case ModeTFIDF:
		return NewTFIDF(tok), nil
	case ModeHashed:
		return NewHashed(tok, dimensions, ngramSizes)
	default:
		return nil, fmt.Errorf("unknown vectorizer mode: %q", mode)
	}
}
