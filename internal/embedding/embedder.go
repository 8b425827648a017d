// Package embedding produces dense sentence embeddings for tender and supplier text.
package embedding

import "context"

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Options configures an ONNX embedder.
type Options struct {
	ModelPath     string
	TokenizerPath string
	Dimensions    int
	MaxTokens     int
	CacheSize     int
	// OutputName is the model output to read, e.g. "sentence_embedding" or "last_hidden_state".
	OutputName string
	// MeanPooling averages a [1, tokens, dims] output over the attention mask.
	MeanPooling     bool
	UseTokenTypeIDs bool
}

func (o *Options) applyDefaults() {
	if o.Dimensions <= 0 {
		o.Dimensions = 512
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 128
	}
	if o.CacheSize <= 0 {
		o.CacheSize = 10000
	}
	if o.OutputName == "" {
		o.OutputName = "sentence_embedding"
	}
}

// NewTokenizer returns a Hugging Face tokenizer when path is set, otherwise the hash-based
// SimpleTokenizer.
func NewTokenizer(path string) (Tokenizer, error) {
	if path == "" {
		return &SimpleTokenizer{}, nil
	}
	return NewHFTokenizer(path)
}

// meanPool averages token embeddings (row-major [tokens][dims]) over positions where mask is 1.
func meanPool(hidden []float32, mask []int64, dims int) []float32 {
	out := make([]float32, dims)
	var count float32
	for t, m := range mask {
		if m == 0 || (t+1)*dims > len(hidden) {
			continue
		}
		row := hidden[t*dims : (t+1)*dims]
		for d, v := range row {
			out[d] += v
		}
		count++
	}
	if count > 0 {
		for d := range out {
			out[d] /= count
		}
	}
	return out
}
