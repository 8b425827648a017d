package embedding

import (
	"context"
	"testing"

	"github.com/hyperjump/licita/internal/vector"
)

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, types := tok.Tokenize("computadores servidores", 10)
	if len(ids) != 10 || len(attn) != 10 || len(types) != 10 {
		t.Fatalf("unexpected lengths %d/%d/%d", len(ids), len(attn), len(types))
	}
	if ids[0] != 101 {
		t.Errorf("expected CLS 101, got %d", ids[0])
	}
	if ids[3] != 102 {
		t.Errorf("expected SEP 102 at position 3, got %d", ids[3])
	}
	if attn[4] != 0 {
		t.Error("padding should have attention 0")
	}

	long, _, _ := tok.Tokenize("a b c d e f g h i j k l", 5)
	if len(long) != 5 {
		t.Errorf("truncated length %d", len(long))
	}
}

func TestNewTokenizer_DefaultsToSimple(t *testing.T) {
	tok, err := NewTokenizer("")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tok.(*SimpleTokenizer); !ok {
		t.Errorf("expected SimpleTokenizer, got %T", tok)
	}
	if _, err := NewTokenizer("/nonexistent/tokenizer.json"); err == nil {
		t.Error("expected error for missing tokenizer file")
	}
}

func TestSplitWords(t *testing.T) {
	words := SplitWords("  a  b\tc\n ")
	if len(words) != 3 {
		t.Errorf("expected 3 words, got %v", words)
	}
	if SplitWords("") != nil {
		t.Error("empty string should return nil")
	}
}

func TestHashString(t *testing.T) {
	if HashString("abc") == 0 {
		t.Error("hash should be non-zero")
	}
	if HashString("abc") != HashString("abc") {
		t.Error("hash should be deterministic")
	}
}

func TestMockEmbedder(t *testing.T) {
	ctx := context.Background()
	e := NewMockEmbedder(64)
	a, _ := e.Embed(ctx, "computadores servidores rede")
	b, _ := e.Embed(ctx, "computadores notebooks servidores")
	c, _ := e.Embed(ctx, "jardinagem paisagismo")
	again, _ := e.Embed(ctx, "computadores servidores rede")

	if vector.CosineDense(a, again) < 0.9999 {
		t.Error("embedding should be deterministic")
	}
	if vector.CosineDense(a, b) <= vector.CosineDense(a, c) {
		t.Errorf("shared words should be closer: ab=%v ac=%v", vector.CosineDense(a, b), vector.CosineDense(a, c))
	}
	empty, _ := e.Embed(ctx, "")
	if vector.L2Norm(empty) != 0 {
		t.Error("empty text should embed to zero vector")
	}
	if e.Calls() != 5 || e.Dimensions() != 64 {
		t.Errorf("calls=%d dims=%d", e.Calls(), e.Dimensions())
	}

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := e.Embed(cctx, "x"); err == nil {
		t.Error("expected error on cancelled context")
	}
}

func TestMeanPool(t *testing.T) {
	hidden := []float32{1, 2, 3, 4, 100, 100}
	got := meanPool(hidden, []int64{1, 1, 0}, 2)
	if got[0] != 2 || got[1] != 3 {
		t.Errorf("meanPool = %v", got)
	}
}
