//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/licita/pkg/utils"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXEmbedder runs a sentence-embedding model (e.g. distiluse-base-multilingual-cased) through
// ONNX Runtime. It requires CGO and the onnxruntime shared library.
type ONNXEmbedder struct {
	opts      Options
	session   *ort.AdvancedSession
	cache     *EmbeddingCache
	tokenizer Tokenizer
	// Pre-allocated tensors for Run(); we update input data and read output.
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
	mu                  sync.Mutex
}

// NewONNXEmbedder creates an ONNX embedder. InitializeEnvironment is called if not already done.
func NewONNXEmbedder(opts Options) (*ONNXEmbedder, error) {
	opts.applyDefaults()
	if opts.ModelPath == "" {
		return nil, fmt.Errorf("embedding model path is empty")
	}
	tokenizer, err := NewTokenizer(opts.TokenizerPath)
	if err != nil {
		return nil, err
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}

	e := &ONNXEmbedder{
		opts:      opts,
		cache:     NewEmbeddingCache(opts.CacheSize),
		tokenizer: tokenizer,
	}
	if err := e.createSession(); err != nil {
		_ = e.Close()
		return nil, err
	}
	return e, nil
}

func (e *ONNXEmbedder) createSession() error {
	seq := int64(e.opts.MaxTokens)
	inputIDs, attentionMask, tokenTypeIDs := e.tokenizer.Tokenize("", e.opts.MaxTokens)

	var err error
	if e.inputIDsTensor, err = ort.NewTensor(ort.NewShape(1, seq), inputIDs); err != nil {
		return fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	if e.attentionMaskTensor, err = ort.NewTensor(ort.NewShape(1, seq), attentionMask); err != nil {
		return fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}

	inputNames := []string{"input_ids", "attention_mask"}
	inputs := []ort.ArbitraryTensor{e.inputIDsTensor, e.attentionMaskTensor}
	if e.opts.UseTokenTypeIDs {
		if e.tokenTypeIDsTensor, err = ort.NewTensor(ort.NewShape(1, seq), tokenTypeIDs); err != nil {
			return fmt.Errorf("failed to create token_type_ids tensor: %w", err)
		}
		inputNames = append(inputNames, "token_type_ids")
		inputs = append(inputs, e.tokenTypeIDsTensor)
	}

	dims := int64(e.opts.Dimensions)
	outShape := ort.NewShape(1, dims)
	if e.opts.MeanPooling {
		outShape = ort.NewShape(1, seq, dims)
	}
	if e.outputTensor, err = ort.NewEmptyTensor[float32](outShape); err != nil {
		return fmt.Errorf("failed to create output tensor: %w", err)
	}

	e.session, err = ort.NewAdvancedSession(
		e.opts.ModelPath,
		inputNames,
		[]string{e.opts.OutputName},
		inputs,
		[]ort.ArbitraryTensor{e.outputTensor},
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return nil
}

// Embed returns the unit-length embedding for text, using cache when available.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	inputIDs, attentionMask, tokenTypeIDs := e.tokenizer.Tokenize(text, e.opts.MaxTokens)
	copy(e.inputIDsTensor.GetData(), inputIDs)
	copy(e.attentionMaskTensor.GetData(), attentionMask)
	if e.tokenTypeIDsTensor != nil {
		copy(e.tokenTypeIDsTensor.GetData(), tokenTypeIDs)
	}

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	outputData := e.outputTensor.GetData()
	var embedding []float32
	if e.opts.MeanPooling {
		embedding = meanPool(outputData, attentionMask, e.opts.Dimensions)
	} else {
		embedding = make([]float32, e.opts.Dimensions)
		copy(embedding, outputData[:e.opts.Dimensions])
	}

	utils.NormalizeL2(embedding)
	e.cache.Set(text, embedding)
	return embedding, nil
}

// EmbedBatch calls Embed for each text.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.opts.Dimensions
}

// Close destroys the session and tensors.
func (e *ONNXEmbedder) Close() error {
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	if e.inputIDsTensor != nil {
		_ = e.inputIDsTensor.Destroy()
		e.inputIDsTensor = nil
	}
	if e.attentionMaskTensor != nil {
		_ = e.attentionMaskTensor.Destroy()
		e.attentionMaskTensor = nil
	}
	if e.tokenTypeIDsTensor != nil {
		_ = e.tokenTypeIDsTensor.Destroy()
		e.tokenTypeIDsTensor = nil
	}
	if e.outputTensor != nil {
		_ = e.outputTensor.Destroy()
		e.outputTensor = nil
	}
	return err
}
