package corpus

import (
	"math"
	"sort"
	"strings"

	"github.com/hyperjump/licita/internal/vector"
)

// VectorizerOptions controls TF-IDF fitting.
type VectorizerOptions struct {
	// NgramMax is the largest n-gram length; 1 means unigrams only.
	NgramMax int
	// MinDF drops terms that appear in fewer than MinDF documents.
	MinDF int
	// MaxDF drops terms that appear in more than MaxDF (a fraction) of documents.
	MaxDF float64
}

// DefaultVectorizerOptions returns unigrams and bigrams with no document-frequency pruning.
func DefaultVectorizerOptions() VectorizerOptions {
	return VectorizerOptions{NgramMax: 2, MinDF: 1, MaxDF: 1.0}
}

func (o *VectorizerOptions) applyDefaults() {
	if o.NgramMax <= 0 {
		o.NgramMax = 2
	}
	if o.MinDF <= 0 {
		o.MinDF = 1
	}
	if o.MaxDF <= 0 || o.MaxDF > 1 {
		o.MaxDF = 1.0
	}
}

// Vectorizer is a fitted TF-IDF model. Vocabulary columns follow sorted term order, so the
// same set of documents always yields the same columns regardless of input order.
type Vectorizer struct {
	ngramMax int
	vocab    map[string]int
	terms    []string
	idf      []float64
}

// FitVectorizer fits a TF-IDF model on tokenized documents. idf uses the smoothed form
// ln((1+n)/(1+df)) + 1.
func FitVectorizer(docs [][]string, opts VectorizerOptions) *Vectorizer {
	opts.applyDefaults()
	df := make(map[string]int)
	for _, tokens := range docs {
		seen := make(map[string]struct{})
		for _, term := range ngrams(tokens, opts.NgramMax) {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	n := len(docs)
	maxDocs := opts.MaxDF * float64(n)
	terms := make([]string, 0, len(df))
	for term, count := range df {
		if count < opts.MinDF || float64(count) > maxDocs {
			continue
		}
		terms = append(terms, term)
	}
	sort.Strings(terms)

	v := &Vectorizer{
		ngramMax: opts.NgramMax,
		vocab:    make(map[string]int, len(terms)),
		terms:    terms,
		idf:      make([]float64, len(terms)),
	}
	for i, term := range terms {
		v.vocab[term] = i
		v.idf[i] = math.Log(float64(1+n)/float64(1+df[term])) + 1
	}
	return v
}

// Transform maps tokens to an L2-normalised sparse TF-IDF vector. Terms outside the
// vocabulary are ignored; no known terms yields an empty vector.
func (v *Vectorizer) Transform(tokens []string) vector.Sparse {
	out := make(vector.Sparse)
	for _, term := range ngrams(tokens, v.ngramMax) {
		if col, ok := v.vocab[term]; ok {
			out[col]++
		}
	}
	var sum float64
	for col, tf := range out {
		w := tf * v.idf[col]
		out[col] = w
		sum += w * w
	}
	if sum > 0 {
		norm := math.Sqrt(sum)
		for col := range out {
			out[col] /= norm
		}
	}
	return out
}

// VocabularySize returns the number of terms in the fitted vocabulary.
func (v *Vectorizer) VocabularySize() int {
	return len(v.terms)
}

func ngrams(tokens []string, max int) []string {
	if len(tokens) == 0 {
		return nil
	}
	out := make([]string, 0, len(tokens)*max)
	for n := 1; n <= max; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}
