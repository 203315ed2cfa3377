package embedding

import (
	"context"
	"math"
	"testing"
)

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder(8)

	a, err := e.Embed(context.Background(), "peat extraction")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	b, err := e.Embed(context.Background(), "peat extraction")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(a) != 8 {
		t.Fatalf("Embed() returned %d values, want 8", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Embed() not deterministic at %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestMockEmbedder_UnitNorm(t *testing.T) {
	e := NewMockEmbedder(32)
	vec, err := e.Embed(context.Background(), "soil carbon stock change")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if norm := L2Norm(vec); math.Abs(norm-1) > 1e-4 {
		t.Errorf("L2Norm() = %v, want 1", norm)
	}
}

func TestMockEmbedder_DefaultDimensions(t *testing.T) {
	if got := NewMockEmbedder(0).Dimensions(); got != 1536 {
		t.Errorf("Dimensions() = %d, want 1536", got)
	}
}

func TestMockEmbedder_DistinctTexts(t *testing.T) {
	e := NewMockEmbedder(16)
	a, _ := e.Embed(context.Background(), "cattle")
	b, _ := e.Embed(context.Background(), "cement")
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("distinct texts produced identical vectors")
	}
}

func TestL2Norm(t *testing.T) {
	tests := []struct {
		name string
		vec  []float32
		want float64
	}{
		{"empty", nil, 0},
		{"zeros", []float32{0, 0, 0}, 0},
		{"pythagorean", []float32{3, 4}, 5},
		{"unit", []float32{1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := L2Norm(tt.vec); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("L2Norm(%v) = %v, want %v", tt.vec, got, tt.want)
			}
		})
	}
}
