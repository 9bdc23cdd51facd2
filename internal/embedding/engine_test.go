package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewEngineDefaultsToStub(t *testing.T) {
	e, err := NewEngine(DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, "stub", e.Name())
	require.Equal(t, 384, e.Dimensions())
}

func TestNewEngineUnsupportedProvider(t *testing.T) {
	_, err := NewEngine(Config{Provider: "carrier-pigeon"})
	require.Error(t, err)
}

func TestStubEngineIsDeterministic(t *testing.T) {
	e := NewStubEngine(32)
	ctx := context.Background()

	v1, err := e.Embed(ctx, "fireball")
	require.NoError(t, err)
	v2, err := e.Embed(ctx, "fireball")
	require.NoError(t, err)
	require.Equal(t, v1, v2)

	v3, err := e.Embed(ctx, "magic missile")
	require.NoError(t, err)
	require.NotEqual(t, v1, v3)
}

func TestStubEngineVectorsAreUnitLength(t *testing.T) {
	e := NewStubEngine(16)
	v, err := e.Embed(context.Background(), "cure wounds")
	require.NoError(t, err)

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	require.InDelta(t, 1.0, norm, 0.01)
}

func TestStubEngineEmbedBatch(t *testing.T) {
	e := NewStubEngine(8)
	out, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, out, 3)
}

func TestCosineSimilarityIdentical(t *testing.T) {
	sim, err := CosineSimilarity([]float32{1, 0, 0}, []float32{1, 0, 0})
	require.NoError(t, err)
	require.InDelta(t, 1.0, sim, 0.0001)
}

func TestCosineSimilarityDimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0})
	require.Error(t, err)
}

func TestFindTopK(t *testing.T) {
	query := []float32{1, 0}
	corpus := [][]float32{{1, 0}, {0, 1}, {0.9, 0.1}}
	results, err := FindTopK(query, corpus, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, 0, results[0].Index)
}
