// Package embedding turns catalog and request text surfaces into dense
// vectors. Backend is deliberately small so the scoring pipeline never has
// to know whether vectors come from a local deterministic hash or a remote
// model server.
package embedding

import (
	"context"
	"hash/fnv"
	"math"
)

// Backend converts text into embedding vectors.
type Backend interface {
	// EmbedBatch returns one vector per input text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Name identifies the backend, e.g. a model name.
	Name() string
	// Dimension reports the vector size, or 0 if it varies.
	Dimension() int
}

// DeterministicBackend hashes byte trigrams into a fixed-size vector. It
// never calls out to a network and is suitable for tests and offline
// catalog indexing where an exact embedding model is not available.
type DeterministicBackend struct {
	dim       int
	normalize bool
	seed      uint64
}

// NewDeterministicBackend constructs a DeterministicBackend. dim defaults to
// 64 when non-positive. seed perturbs the hash so two backends with
// different seeds produce unrelated vector spaces.
func NewDeterministicBackend(dim int, normalize bool, seed uint64) *DeterministicBackend {
	if dim <= 0 {
		dim = 64
	}
	return &DeterministicBackend{dim: dim, normalize: normalize, seed: seed}
}

func (d *DeterministicBackend) Name() string   { return "deterministic" }
func (d *DeterministicBackend) Dimension() int { return d.dim }

func (d *DeterministicBackend) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = d.embedOne(t)
	}
	return out, nil
}

func (d *DeterministicBackend) embedOne(s string) []float32 {
	v := make([]float32, d.dim)
	if len(s) == 0 {
		return v
	}
	b := []byte(s)
	if len(b) < 3 {
		hashInto(d.seed, b, v)
	} else {
		for i := 0; i <= len(b)-3; i++ {
			hashInto(d.seed, b[i:i+3], v)
		}
	}
	if d.normalize {
		l2Normalize(v)
	}
	return v
}

func hashInto(seed uint64, gram []byte, v []float32) {
	h := fnv.New64a()
	if seed != 0 {
		var tmp [8]byte
		for i := 0; i < 8; i++ {
			tmp[i] = byte(seed >> (8 * i))
		}
		_, _ = h.Write(tmp[:])
	}
	_, _ = h.Write(gram)
	hv := h.Sum64()
	idx := int(hv % uint64(len(v)))
	w := float32(int32(hv>>32)) / float32(1<<31)
	v[idx] += w
}

func l2Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}

// CosineSimilarity returns the cosine similarity of a and b, or 0 if either
// vector has zero magnitude or they differ in length.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
