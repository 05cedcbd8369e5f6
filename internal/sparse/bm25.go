// Package sparse implements a BM25 sparse encoder whose vocabulary and
// corpus statistics are built incrementally and can be persisted into the
// vector store's collection metadata.
package sparse

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
)

var foldCase = cases.Fold()

// Posting is one (term index, score) pair in a sparse vector.
type Posting struct {
	Index uint32
	Score float64
}

const (
	defaultK1 = 1.5
	defaultB  = 0.75
)

// Encoder is a BM25 sparse encoder. Updates (UpdateIDF) take the writer
// side of the internal RWMutex; encodes take the reader side, per spec
// §5's reader-writer gate.
type Encoder struct {
	mu sync.RWMutex

	k1, b float64

	vocab   map[string]uint32
	nextIdx uint32
	df      map[uint32]uint32 // term index -> document frequency

	docCount int64
	totalLen int64 // running sum of document lengths, for avgdl
}

// New returns an empty Encoder with the default k1=1.5, b=0.75 tunables.
func New() *Encoder {
	return &Encoder{
		k1:    defaultK1,
		b:     defaultB,
		vocab: make(map[string]uint32),
		df:    make(map[uint32]uint32),
	}
}

// Tokenize splits text on any rune that is not a letter, digit, or
// underscore, drops tokens shorter than two characters, and case-folds
// what remains with golang.org/x/text/cases for locale-independent
// Unicode case folding (plain ToLower mishandles forms like German ß or
// Turkish dotless I).
func Tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			if t := cur.String(); utf8Len(t) >= 2 {
				tokens = append(tokens, foldCase.String(t))
			}
			cur.Reset()
		}
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

func utf8Len(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

// UpdateIDF folds text's vocabulary into the encoder's corpus statistics:
// each unique term gets (or reuses) an index and has its document
// frequency incremented once, the document count increments, and the
// rolling average document length is updated.
func (e *Encoder) UpdateIDF(text string) {
	terms := Tokenize(text)
	unique := make(map[string]bool, len(terms))
	for _, t := range terms {
		unique[t] = true
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for t := range unique {
		idx, ok := e.vocab[t]
		if !ok {
			idx = e.nextIdx
			e.vocab[t] = idx
			e.nextIdx++
		}
		e.df[idx]++
	}
	e.docCount++
	e.totalLen += int64(len(terms))
}

func (e *Encoder) avgdlLocked() float64 {
	if e.docCount == 0 {
		return 0
	}
	return float64(e.totalLen) / float64(e.docCount)
}

func (e *Encoder) idfLocked(df uint32) float64 {
	n := float64(e.docCount)
	return math.Log((n-float64(df)+0.5)/(float64(df)+0.5) + 1)
}

// Encode tokenizes text and emits (index, BM25 score) postings, dropping
// zero/negative scores. It uses the corpus avgdl/idf as observed through
// the most recent UpdateIDF call, per spec §4.6.
func (e *Encoder) Encode(text string) []Posting {
	terms := Tokenize(text)
	tf := termFrequencies(terms)
	docLen := float64(len(terms))

	e.mu.RLock()
	defer e.mu.RUnlock()

	avgdl := e.avgdlLocked()
	var out []Posting
	for term, freq := range tf {
		idx, ok := e.vocab[term]
		if !ok {
			continue
		}
		df := e.df[idx]
		idf := e.idfLocked(df)
		denom := float64(freq) + e.k1*(1-e.b+e.b*docLen/nonZero(avgdl))
		score := idf * float64(freq) * (e.k1 + 1) / denom
		if score > 0 {
			out = append(out, Posting{Index: idx, Score: score})
		}
	}
	sortPostings(out)
	return out
}

// EncodeQuery is like Encode but skips unknown terms and uses the
// simplified query-side denominator tf+k1 (no length normalization).
func (e *Encoder) EncodeQuery(text string) []Posting {
	terms := Tokenize(text)
	tf := termFrequencies(terms)

	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []Posting
	for term, freq := range tf {
		idx, ok := e.vocab[term]
		if !ok {
			continue
		}
		df := e.df[idx]
		idf := e.idfLocked(df)
		score := idf * float64(freq) * (e.k1 + 1) / (float64(freq) + e.k1)
		if score > 0 {
			out = append(out, Posting{Index: idx, Score: score})
		}
	}
	sortPostings(out)
	return out
}

func nonZero(f float64) float64 {
	if f == 0 {
		return 1
	}
	return f
}

func termFrequencies(terms []string) map[string]int {
	tf := make(map[string]int, len(terms))
	for _, t := range terms {
		tf[t]++
	}
	return tf
}

func sortPostings(p []Posting) {
	sort.Slice(p, func(i, j int) bool { return p[i].Index < p[j].Index })
}

// DotProduct computes the sparse dot product of a and b. It builds a map
// from the longer vector and probes it once per entry of the shorter one,
// so it runs in O(len(a)+len(b)), not O(min(len(a), len(b))).
func DotProduct(a, b []Posting) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	bm := make(map[uint32]float64, len(b))
	for _, p := range b {
		bm[p.Index] = p.Score
	}
	var sum float64
	for _, p := range a {
		sum += p.Score * bm[p.Index]
	}
	return sum
}

// persistedState is the JSON-serializable snapshot of an Encoder.
type persistedState struct {
	K1       float64           `json:"k1"`
	B        float64           `json:"b"`
	Vocab    map[string]uint32 `json:"vocab"`
	DF       map[uint32]uint32 `json:"df"`
	DocCount int64             `json:"doc_count"`
	TotalLen int64             `json:"total_len"`
}

// MarshalJSON serializes the encoder's full state for persistence into
// the vector store's collection metadata.
func (e *Encoder) MarshalJSON() ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return json.Marshal(persistedState{
		K1: e.k1, B: e.b, Vocab: e.vocab, DF: e.df,
		DocCount: e.docCount, TotalLen: e.totalLen,
	})
}

// UnmarshalJSON restores an encoder's state, replacing whatever it held.
func (e *Encoder) UnmarshalJSON(data []byte) error {
	var ps persistedState
	if err := json.Unmarshal(data, &ps); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.k1, e.b = ps.K1, ps.B
	e.vocab = ps.Vocab
	if e.vocab == nil {
		e.vocab = make(map[string]uint32)
	}
	e.df = ps.DF
	if e.df == nil {
		e.df = make(map[uint32]uint32)
	}
	e.docCount, e.totalLen = ps.DocCount, ps.TotalLen
	for _, idx := range e.vocab {
		if idx >= e.nextIdx {
			e.nextIdx = idx + 1
		}
	}
	return nil
}
