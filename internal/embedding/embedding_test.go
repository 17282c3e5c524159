package embedding

import (
	"context"
	"math"
	"testing"
)

func TestDeterministicBackend_Deterministic(t *testing.T) {
	b := NewDeterministicBackend(32, true, 7)
	ctx := context.Background()

	v1, err := b.EmbedBatch(ctx, []string{"plomberie urgente à Lyon"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v2, err := b.EmbedBatch(ctx, []string{"plomberie urgente à Lyon"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v1) != 1 || len(v2) != 1 {
		t.Fatalf("expected one vector per input")
	}
	for i := range v1[0] {
		if v1[0][i] != v2[0][i] {
			t.Fatalf("embedding of identical text must be identical, diverged at %d", i)
		}
	}
}

func TestDeterministicBackend_DifferentTextsDiffer(t *testing.T) {
	b := NewDeterministicBackend(32, true, 0)
	ctx := context.Background()
	vecs, err := b.EmbedBatch(ctx, []string{"garde d'enfant à Paris", "plomberie urgente à Marseille"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if CosineSimilarity(vecs[0], vecs[1]) >= 0.999 {
		t.Fatal("expected distinct texts to yield distinct vectors")
	}
}

func TestDeterministicBackend_Normalized(t *testing.T) {
	b := NewDeterministicBackend(16, true, 1)
	vecs, err := b.EmbedBatch(context.Background(), []string{"une phrase suffisamment longue"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sum float64
	for _, x := range vecs[0] {
		sum += float64(x) * float64(x)
	}
	if math.Abs(sum-1.0) > 1e-6 {
		t.Fatalf("expected unit-norm vector, got squared norm %v", sum)
	}
}

func TestDeterministicBackend_EmptyString(t *testing.T) {
	b := NewDeterministicBackend(8, true, 0)
	vecs, err := b.EmbedBatch(context.Background(), []string{""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, x := range vecs[0] {
		if x != 0 {
			t.Fatal("expected an all-zero vector for empty input")
		}
	}
}

func TestDeterministicBackend_DefaultDimension(t *testing.T) {
	b := NewDeterministicBackend(0, false, 0)
	if b.Dimension() != 64 {
		t.Fatalf("expected default dimension 64, got %d", b.Dimension())
	}
}

func TestCosineSimilarity_IdenticalVectorsAreOne(t *testing.T) {
	v := []float32{1, 2, 3}
	if got := CosineSimilarity(v, v); math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("expected cosine similarity 1.0, got %v", got)
	}
}

func TestCosineSimilarity_OrthogonalIsZero(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	if got := CosineSimilarity(a, b); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestCosineSimilarity_MismatchedLengthIsZero(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 2}, []float32{1}); got != 0 {
		t.Fatalf("expected 0 for mismatched lengths, got %v", got)
	}
}

func TestCosineSimilarity_ZeroVectorIsZero(t *testing.T) {
	if got := CosineSimilarity([]float32{0, 0}, []float32{1, 1}); got != 0 {
		t.Fatalf("expected 0 for a zero-magnitude vector, got %v", got)
	}
}
