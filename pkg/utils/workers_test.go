package utils

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestParallelFor(t *testing.T) {
	out := make([]int, 100)
	err := ParallelFor(context.Background(), len(out), 4, func(i int) error {
		out[i] = i * i
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range out {
		if v != i*i {
			t.Fatalf("out[%d] = %d", i, v)
		}
	}
}

func TestParallelFor_Error(t *testing.T) {
	boom := errors.New("boom")
	var calls atomic.Int64
	err := ParallelFor(context.Background(), 1000, 2, func(i int) error {
		calls.Add(1)
		if i == 3 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls.Load() == 1000 {
		t.Error("expected early stop after error")
	}
}

func TestParallelFor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ParallelFor(ctx, 10, 2, func(int) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if err := ParallelFor(context.Background(), 0, 2, nil); err != nil {
		t.Errorf("n=0: %v", err)
	}
}
