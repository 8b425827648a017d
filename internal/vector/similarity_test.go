package vector

import (
	"math"
	"testing"
)

func TestCosineDense(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"scaled", []float32{1, 0}, []float32{5, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite clipped", []float32{1, 0}, []float32{-1, 0}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineDense(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineDense = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineSparse(t *testing.T) {
	a := Sparse{0: 1, 3: 1}
	b := Sparse{3: 1, 7: 1}
	got := CosineSparse(a, b)
	if math.Abs(got-0.5) > 1e-9 {
		t.Errorf("CosineSparse = %v, want 0.5", got)
	}
	if CosineSparse(a, Sparse{}) != 0 {
		t.Error("empty sparse vector should give 0")
	}
	if CosineSparse(Sparse{1: 0}, a) != 0 {
		t.Error("zero-magnitude sparse vector should give 0")
	}
	if math.IsNaN(CosineSparse(nil, nil)) {
		t.Error("NaN for nil vectors")
	}
	if CosineSparse(a, b) != CosineSparse(b, a) {
		t.Error("cosine should be symmetric")
	}
}
