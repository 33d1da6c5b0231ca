package vectorize

import (
	"fmt"
	"hash/fnv"

	"github.com/hyperjump/kioku/internal/tokenize"
	"github.com/hyperjump/kioku/pkg/utils"
)

// Hashed strategy defaults.
const (
	DefaultDimensions = 128
)

// DefaultNGramSizes are the character n-gram lengths hashed by default.
var DefaultNGramSizes = []int{2, 3, 4}

// Hashed maps character n-grams into a fixed number of buckets with FNV-1a.
// The hash's top bit selects the sign of each contribution, which cancels
// part of the collision bias. Indexing a unit never depends on other units,
// so this mode needs no corpus statistics and is immune to incremental drift.
type Hashed struct {
	tok        *tokenize.Tokenizer
	dimensions int
	ngramSizes []int
}

// NewHashed creates a hashed n-gram strategy. dimensions must be positive;
// ngramSizes defaults to {2, 3, 4} when empty.
func NewHashed(tok *tokenize.Tokenizer, dimensions int, ngramSizes []int) (*Hashed, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}
	if len(ngramSizes) == 0 {
		ngramSizes = DefaultNGramSizes
	}
	sizes := make([]int, len(ngramSizes))
	copy(sizes, ngramSizes)
	return &Hashed{tok: tok, dimensions: dimensions, ngramSizes: sizes}, nil
}

// Name returns the mode identifier.
func (v *Hashed) Name() string { return ModeHashed }

// Dimensions returns the configured vector dimension.
func (v *Hashed) Dimensions() int { return v.dimensions }

// Encode hashes the text's n-grams into an L2-normalized dense vector.
func (v *Hashed) Encode(text string) *Encoding {
	components := make([]float32, v.dimensions)
	for _, gram := range v.tok.NGrams(text, v.ngramSizes) {
		h := fnv.New64a()
		h.Write([]byte(gram))
		sum := h.Sum64()
		bucket := int(sum % uint64(v.dimensions))
		if sum>>63 == 0 {
			components[bucket]++
		} else {
			components[bucket]--
		}
	}
	utils.NormalizeL2(components)
	return &Encoding{Components: components}
}

// Weigh returns the stored components unchanged; hashed vectors are already
// normalized and independent of corpus statistics.
func (v *Hashed) Weigh(enc *Encoding, _ *CorpusStats) Vector {
	return Dense(enc.Components)
}
