package vectorize

import (
	"math"
	"reflect"
	"testing"

	"github.com/hyperjump/kioku/internal/tokenize"
)

func TestSparseDotAndNorm(t *testing.T) {
	a := Sparse{"x": 3, "y": 4}
	b := Sparse{"y": 2, "z": 5}
	if got := a.Dot(b); got != 8 {
		t.Errorf("dot = %v, want 8", got)
	}
	if got := a.Norm(); got != 5 {
		t.Errorf("norm = %v, want 5", got)
	}
	if got := (Sparse{}).Norm(); got != 0 {
		t.Errorf("empty norm = %v, want 0", got)
	}
	// Mismatched implementations score zero.
	if got := a.Dot(Dense{1, 2}); got != 0 {
		t.Errorf("cross-impl dot = %v, want 0", got)
	}
}

func TestDenseDotAndNorm(t *testing.T) {
	a := Dense{3, 4}
	b := Dense{1, 0}
	if got := a.Dot(b); got != 3 {
		t.Errorf("dot = %v, want 3", got)
	}
	if got := a.Norm(); got != 5 {
		t.Errorf("norm = %v, want 5", got)
	}
	if got := a.Dot(Dense{1}); got != 0 {
		t.Errorf("dimension mismatch dot = %v, want 0", got)
	}
}

func TestTFIDFEncode(t *testing.T) {
	tok := tokenize.NewTokenizer(nil)
	v := NewTFIDF(tok)
	enc := v.Encode("go go gadget")
	want := map[string]int{"go": 2, "gadget": 1}
	if !reflect.DeepEqual(enc.TermCounts, want) {
		t.Errorf("term counts = %v, want %v", enc.TermCounts, want)
	}
}

func TestTFIDFWeigh(t *testing.T) {
	tok := tokenize.NewTokenizer(nil)
	v := NewTFIDF(tok)
	stats := &CorpusStats{
		DocFreq:    map[string]int{"common": 9, "rare": 1},
		TotalUnits: 10,
	}
	vec := v.Weigh(&Encoding{TermCounts: map[string]int{"common": 1, "rare": 1}}, stats).(Sparse)

	if vec["rare"] <= vec["common"] {
		t.Errorf("rare term should outweigh common term: rare=%v common=%v", vec["rare"], vec["common"])
	}
	if norm := vec.Norm(); math.Abs(norm-1) > 1e-9 {
		t.Errorf("vector not L2-normalized: norm=%v", norm)
	}
}

func TestTFIDFWeighUnknownTerm(t *testing.T) {
	tok := tokenize.NewTokenizer(nil)
	v := NewTFIDF(tok)
	// A term absent from the corpus (df=0) must produce a finite weight.
	vec := v.Weigh(&Encoding{TermCounts: map[string]int{"novel": 1}},
		&CorpusStats{DocFreq: map[string]int{}, TotalUnits: 0}).(Sparse)
	if w := vec["novel"]; math.IsInf(w, 0) || math.IsNaN(w) || w <= 0 {
		t.Errorf("expected finite positive weight, got %v", w)
	}
	// Nil stats must not fault either.
	vec = v.Weigh(&Encoding{TermCounts: map[string]int{"x": 2}}, nil).(Sparse)
	if w := vec["x"]; math.IsNaN(w) || w <= 0 {
		t.Errorf("nil stats weight = %v", w)
	}
}

func TestTFIDFLiveWeights(t *testing.T) {
	tok := tokenize.NewTokenizer(nil)
	v := NewTFIDF(tok)
	enc := v.Encode("alpha beta")

	sparse := &CorpusStats{DocFreq: map[string]int{"alpha": 1, "beta": 1}, TotalUnits: 2}
	skewed := &CorpusStats{DocFreq: map[string]int{"alpha": 90, "beta": 1}, TotalUnits: 100}

	even := v.Weigh(enc, sparse).(Sparse)
	uneven := v.Weigh(enc, skewed).(Sparse)
	if even["alpha"] != even["beta"] {
		t.Errorf("equal df should weigh equally: %v", even)
	}
	if uneven["alpha"] >= uneven["beta"] {
		t.Errorf("stored counts must follow live stats: alpha=%v beta=%v", uneven["alpha"], uneven["beta"])
	}
}

func TestHashedEncode(t *testing.T) {
	tok := tokenize.NewTokenizer(nil)
	v, err := NewHashed(tok, 64, nil)
	if err != nil {
		t.Fatal(err)
	}
	enc := v.Encode("the quick brown fox")
	if len(enc.Components) != 64 {
		t.Fatalf("dimension = %d, want 64", len(enc.Components))
	}
	var norm float64
	for _, c := range enc.Components {
		norm += float64(c) * float64(c)
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-6 {
		t.Errorf("vector not L2-normalized: norm=%v", math.Sqrt(norm))
	}
}

func TestHashedDeterministic(t *testing.T) {
	tok := tokenize.NewTokenizer(nil)
	v, err := NewHashed(tok, DefaultDimensions, DefaultNGramSizes)
	if err != nil {
		t.Fatal(err)
	}
	first := v.Encode("determinism matters")
	for i := 0; i < 5; i++ {
		if !reflect.DeepEqual(v.Encode("determinism matters"), first) {
			t.Fatal("hashed encoding is not deterministic")
		}
	}
}

func TestHashedEmptyInput(t *testing.T) {
	tok := tokenize.NewTokenizer(nil)
	v, err := NewHashed(tok, 32, nil)
	if err != nil {
		t.Fatal(err)
	}
	enc := v.Encode("")
	if len(enc.Components) != 32 {
		t.Fatalf("dimension = %d", len(enc.Components))
	}
	vec := v.Weigh(enc, nil)
	if vec.Norm() != 0 {
		t.Errorf("empty input should yield a zero vector, norm=%v", vec.Norm())
	}
}

func TestHashedIgnoresStats(t *testing.T) {
	tok := tokenize.NewTokenizer(nil)
	v, err := NewHashed(tok, 32, nil)
	if err != nil {
		t.Fatal(err)
	}
	enc := v.Encode("stats free")
	a := v.Weigh(enc, nil)
	b := v.Weigh(enc, &CorpusStats{DocFreq: map[string]int{"stats": 99}, TotalUnits: 100})
	if !reflect.DeepEqual(a, b) {
		t.Error("hashed weighting must not depend on corpus stats")
	}
}

func TestHashedInvalidDimensions(t *testing.T) {
	tok := tokenize.NewTokenizer(nil)
	if _, err := NewHashed(tok, 0, nil); err == nil {
		t.Error("expected error for zero dimensions")
	}
}

func TestNew(t *testing.T) {
	tok := tokenize.NewTokenizer(nil)
	s, err := New(ModeTFIDF, tok, 0, nil)
	if err != nil || s.Name() != ModeTFIDF {
		t.Errorf("tfidf: %v %v", s, err)
	}
	s, err = New(ModeHashed, tok, 128, nil)
	if err != nil || s.Name() != ModeHashed {
		t.Errorf("hashed: %v %v", s, err)
	}
	if _, err := New("neural", tok, 0, nil); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestVectorize(t *testing.T) {
	tok := tokenize.NewTokenizer(nil)
	v := NewTFIDF(tok)
	stats := &CorpusStats{DocFreq: map[string]int{"hello": 1}, TotalUnits: 1}
	vec := Vectorize(v, "hello world", stats)
	if vec.Norm() == 0 {
		t.Error("expected non-zero vector")
	}
}
