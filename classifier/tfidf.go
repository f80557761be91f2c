package classifier

import (
	"math"
	"sort"

	"car-ads/utils"
)

// Vector is a sparse term-weight vector keyed by vocabulary index.
type Vector map[int]float64

// Dot returns the inner product of two sparse vectors. Terms are summed in
// index order so the result does not depend on map iteration.
func (v Vector) Dot(o Vector) float64 {
	if len(o) < len(v) {
		v, o = o, v
	}
	var sum float64
	for _, i := range v.indices() {
		if w, ok := o[i]; ok {
			sum += v[i] * w
		}
	}
	return sum
}

// indices returns the vocabulary indices of v in ascending order.
func (v Vector) indices() []int {
	idx := make([]int, 0, len(v))
	for i := range v {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// Vectorizer turns text into L2-normalized TF-IDF vectors over the vocabulary
// seen at fit time. Unknown terms are ignored.
type Vectorizer struct {
	vocab map[string]int
	idf   []float64
}

// FitVectorizer learns the vocabulary and smoothed idf weights
// (ln((1+n)/(1+df)) + 1) from docs.
func FitVectorizer(docs []string) *Vectorizer {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{})
		for _, tok := range utils.Tokens(doc) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	v := &Vectorizer{
		vocab: make(map[string]int, len(terms)),
		idf:   make([]float64, len(terms)),
	}
	n := float64(len(docs))
	for i, term := range terms {
		v.vocab[term] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return v
}

// Size returns the vocabulary size.
func (v *Vectorizer) Size() int { return len(v.idf) }

// Transform vectorizes one text.
func (v *Vectorizer) Transform(text string) Vector {
	vec := make(Vector)
	for _, tok := range utils.Tokens(text) {
		if i, ok := v.vocab[tok]; ok {
			vec[i]++
		}
	}

	var norm float64
	for _, i := range vec.indices() {
		w := vec[i] * v.idf[i]
		vec[i] = w
		norm += w * w
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}
