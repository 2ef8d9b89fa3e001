package vsa

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"

	"nerdkernel/internal/logging"
)

// Reference is the in-process hypervector ranker used when the VSA
// ranker is enabled with no remote backend configured. A hypervector
// ranker's vectors are generated deterministically from the canonical
// serialization itself: the same serialized term always maps to the same
// bipolar hypervector, with no network round trip and no learned weights
// - embeddings never serve as a correctness primitive. Similarity is
// cosine over {-1,+1} components.
type Reference struct {
	dims int
}

// NewReference builds a Reference engine of the given dimensionality.
func NewReference(dims int) *Reference {
	return &Reference{dims: dims}
}

func (r *Reference) Dimensions() int { return r.dims }
func (r *Reference) Name() string    { return "vsa-reference" }

// Embed deterministically derives a bipolar hypervector from the
// serialized term: each component's sign comes from a FNV-1a hash of
// the serialization's seed and the component's index, passed through a
// 64-bit finalizer mix, so distinct inputs are (with overwhelming
// probability) nearly orthogonal, the property a VSA ranker depends on.
func (r *Reference) Embed(_ context.Context, serialized string) ([]float32, error) {
	out := make([]float32, r.dims)
	base := fnv.New64a()
	base.Write([]byte(serialized))
	seed := base.Sum64()

	var buf [8]byte
	for i := range out {
		h := fnv.New64a()
		binary.LittleEndian.PutUint64(buf[:], seed)
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(i))
		h.Write(buf[:])
		x := h.Sum64()
		x ^= x >> 33
		x *= 0xff51afd7ed558ccd
		x ^= x >> 33
		if x&1 == 0 {
			out[i] = 1
		} else {
			out[i] = -1
		}
	}
	return out, nil
}

func (r *Reference) EmbedBatch(ctx context.Context, serialized []string) ([][]float32, error) {
	out := make([][]float32, len(serialized))
	for i, s := range serialized {
		v, err := r.Embed(ctx, s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

var _ Engine = (*Reference)(nil)

// Bundle superposes a set of hypervectors into one by majority vote per
// component (the VSA "bundling" operator), breaking ties toward +1. Used
// to build a single representative vector for a scope or predicate from
// its member facts' vectors.
func Bundle(vectors [][]float32, dims int) []float32 {
	out := make([]float32, dims)
	for _, v := range vectors {
		for i := 0; i < dims && i < len(v); i++ {
			out[i] += v[i]
		}
	}
	for i := range out {
		switch {
		case out[i] > 0:
			out[i] = 1
		case out[i] < 0:
			out[i] = -1
		default:
			out[i] = 1
		}
	}
	return out
}

// Bind combines two hypervectors component-wise (the VSA "binding"
// operator, multiplication for bipolar vectors) into a new vector
// associating them - e.g. a predicate vector bound with an argument
// vector to form a role-filler pair.
func Bind(a, b []float32) []float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = a[i] * b[i]
	}
	return out
}

// norm returns the Euclidean norm of v, used defensively when a caller
// needs normalized vectors for downstream scoring beyond cosine
// similarity (which already normalizes internally).
func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func init() {
	logging.VSADebug("vsa reference engine registered")
}
