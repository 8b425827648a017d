package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
	if got := Truncate("licitação", 7); got != "licitaç..." {
		t.Errorf("multibyte truncation: got %s", got)
	}
}

func TestRoundToAndClamp(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{12.34, 12.3},
		{12.35, 12.4},
		{99.96, 100},
		{0, 0},
	}
	for _, tt := range tests {
		if got := RoundTo(tt.in, 1); got != tt.want {
			t.Errorf("RoundTo(%v, 1) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if Clamp(120, 0, 100) != 100 || Clamp(-5, 0, 100) != 0 || Clamp(42, 0, 100) != 42 {
		t.Error("Clamp out of range")
	}
}

func TestNormalizeL2(t *testing.T) {
	x := []float32{3, 4}
	NormalizeL2(x)
	if x[0] < 0.599 || x[0] > 0.601 || x[1] < 0.799 || x[1] > 0.801 {
		t.Errorf("NormalizeL2 = %v", x)
	}
	zero := []float32{0, 0}
	NormalizeL2(zero)
	if zero[0] != 0 || zero[1] != 0 {
		t.Error("zero vector should be unchanged")
	}
}
