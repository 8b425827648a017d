package corpus

import (
	"math"
	"reflect"
	"testing"
)

func TestFitVectorizer_OrderIndependent(t *testing.T) {
	docs := [][]string{
		{"computadores", "servidores"},
		{"limpeza", "predial"},
		{"computadores", "notebooks"},
	}
	reversed := [][]string{docs[2], docs[1], docs[0]}

	a := FitVectorizer(docs, DefaultVectorizerOptions())
	b := FitVectorizer(reversed, DefaultVectorizerOptions())
	if !reflect.DeepEqual(a.terms, b.terms) {
		t.Errorf("vocabulary depends on order: %v vs %v", a.terms, b.terms)
	}
	if !reflect.DeepEqual(a.idf, b.idf) {
		t.Errorf("idf depends on order")
	}
	// 5 unigrams + 3 bigrams
	if a.VocabularySize() != 8 {
		t.Errorf("VocabularySize = %d, want 8: %v", a.VocabularySize(), a.terms)
	}
	if a.terms[0] != "computadores" {
		t.Errorf("first term = %q", a.terms[0])
	}
}

func TestFitVectorizer_SmoothedIDF(t *testing.T) {
	docs := [][]string{{"a1", "b1"}, {"a1"}}
	v := FitVectorizer(docs, VectorizerOptions{NgramMax: 1})
	if got, want := idfOf(v, "a1"), 1.0; math.Abs(got-want) > 1e-12 {
		t.Errorf("idf(a1) = %v, want %v", got, want)
	}
	if got, want := idfOf(v, "b1"), math.Log(3.0/2.0)+1; math.Abs(got-want) > 1e-12 {
		t.Errorf("idf(b1) = %v, want %v", got, want)
	}
	if idfOf(v, "missing") != 0 {
		t.Error("unknown term should have idf 0")
	}
}

func TestFitVectorizer_DocumentFrequencyPruning(t *testing.T) {
	docs := [][]string{{"comum", "raro"}, {"comum"}, {"comum", "medio"}, {"medio"}}
	v := FitVectorizer(docs, VectorizerOptions{NgramMax: 1, MinDF: 2, MaxDF: 0.5})
	if idfOf(v, "raro") != 0 {
		t.Error("raro should be pruned by min_df")
	}
	if idfOf(v, "comum") != 0 {
		t.Error("comum should be pruned by max_df")
	}
	if idfOf(v, "medio") == 0 {
		t.Error("medio should be kept")
	}
}

func TestVectorizer_Transform(t *testing.T) {
	v := FitVectorizer([][]string{{"computadores", "servidores"}, {"jardinagem"}}, DefaultVectorizerOptions())
	vec := v.Transform([]string{"computadores", "servidores", "desconhecido"})
	if len(vec) != 3 { // two unigrams + one bigram
		t.Fatalf("expected 3 non-zero columns, got %v", vec)
	}
	if n := vec.Norm(); math.Abs(n-1) > 1e-9 {
		t.Errorf("norm = %v, want 1", n)
	}
	if len(v.Transform([]string{"nada"})) != 0 {
		t.Error("out-of-vocabulary text should give empty vector")
	}
	if len(v.Transform(nil)) != 0 {
		t.Error("nil tokens should give empty vector")
	}
}

func TestFitVectorizer_Empty(t *testing.T) {
	v := FitVectorizer(nil, DefaultVectorizerOptions())
	if v.VocabularySize() != 0 {
		t.Error("expected empty vocabulary")
	}
	if len(v.Transform([]string{"x"})) != 0 {
		t.Error("empty vectorizer should produce empty vectors")
	}
}

func idfOf(v *Vectorizer, term string) float64 {
	if col, ok := v.vocab[term]; ok {
		return v.idf[col]
	}
	return 0
}
