package vsa

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoopEngineEmitsZeroVectors(t *testing.T) {
	e := NewNoopEngine(8)
	v, err := e.Embed(context.Background(), "anything")
	require.NoError(t, err)
	require.Len(t, v, 8)
	for _, x := range v {
		require.Equal(t, float32(0), x)
	}
}

func TestNewEngineDisabledReturnsNoop(t *testing.T) {
	e, err := NewEngine(Config{Enabled: false, Dimensions: 64})
	require.NoError(t, err)
	require.Equal(t, "noop", e.Name())
}

func TestNewEngineEnabledReturnsReference(t *testing.T) {
	e, err := NewEngine(Config{Enabled: true, Dimensions: 64})
	require.NoError(t, err)
	require.Equal(t, "vsa-reference", e.Name())
	require.Equal(t, 64, e.Dimensions())
}

func TestCosineSimilarityIdenticalVectorsIsOne(t *testing.T) {
	v := []float32{1, -1, 1, 1}
	sim, err := CosineSimilarity(v, v)
	require.NoError(t, err)
	require.InDelta(t, 1.0, sim, 1e-9)
}

func TestCosineSimilarityDimensionMismatchErrors(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 2}, []float32{1})
	require.Error(t, err)
}

func TestCosineSimilarityZeroVectorIsZero(t *testing.T) {
	sim, err := CosineSimilarity([]float32{0, 0}, []float32{1, 1})
	require.NoError(t, err)
	require.Equal(t, 0.0, sim)
}

func TestTopKOrdersDescendingAndRespectsThreshold(t *testing.T) {
	query := []float32{1, 0}
	corpus := [][]float32{
		{1, 0},   // similarity 1.0
		{0, 1},   // similarity 0.0
		{0.9, 0.1}, // similarity high but not max
	}
	results, err := TopK(query, corpus, 2, 0.5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, 0, results[0].Index)
	require.Greater(t, results[0].Similarity, results[1].Similarity)
}

func TestReferenceEmbedIsDeterministic(t *testing.T) {
	r := NewReference(32)
	a, err := r.Embed(context.Background(), "fact:holds(P)")
	require.NoError(t, err)
	b, err := r.Embed(context.Background(), "fact:holds(P)")
	require.NoError(t, err)
	require.Equal(t, a, b)

	c, err := r.Embed(context.Background(), "fact:holds(Q)")
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestReferenceEmbedProducesBipolarComponents(t *testing.T) {
	r := NewReference(16)
	v, err := r.Embed(context.Background(), "x")
	require.NoError(t, err)
	for _, x := range v {
		require.True(t, x == 1 || x == -1)
	}
}

func TestBundleMajorityVote(t *testing.T) {
	vectors := [][]float32{
		{1, 1, -1},
		{1, -1, -1},
		{1, 1, -1},
	}
	out := Bundle(vectors, 3)
	require.Equal(t, []float32{1, 1, -1}, out)
}

func TestBindComponentwiseMultiply(t *testing.T) {
	out := Bind([]float32{1, -1, 1}, []float32{1, 1, -1})
	require.Equal(t, []float32{1, -1, -1}, out)
}
