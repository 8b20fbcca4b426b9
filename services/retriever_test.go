package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/formulai/formulai/models"
	"github.com/formulai/formulai/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder returns fixed vectors per text so distance ordering in tests
// is fully controlled.
type stubEmbedder struct {
	vectors map[string][]float32
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, ok := e.vectors[text]
	if !ok {
		return nil, &EmbeddingError{Err: fmt.Errorf("no stub vector for %q", text)}
	}
	return vec, nil
}

func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (e *stubEmbedder) Dimensions() int   { return 2 }
func (e *stubEmbedder) ModelName() string { return "stub" }

func scenarioStore(t *testing.T) *storage.ChunkStore {
	t.Helper()
	store, err := storage.NewChunkStore([]models.FormulaChunk{
		{Text: "A", Metadata: models.ChunkMetadata{ProductType: "shampoo", SkinType: "dry", KeyIngredients: []string{"Aqua"}}},
		{Text: "B", Metadata: models.ChunkMetadata{ProductType: "shampoo", SkinType: "oily", KeyIngredients: []string{"Aqua"}}},
		{Text: "C", Metadata: models.ChunkMetadata{ProductType: "serum", SkinType: "dry", KeyIngredients: []string{"Niacinamide"}}},
	})
	require.NoError(t, err)
	return store
}

func scenarioEmbedder() *stubEmbedder {
	return &stubEmbedder{vectors: map[string][]float32{
		"shampoo for dry hair": {0, 0},
		"A":                    {1, 0}, // dist 1
		"B":                    {2, 0}, // dist 4
		"C":                    {0, 1}, // dist 1, but filtered out by product type
	}}
}

func TestRetrieve(t *testing.T) {
	ctx := context.Background()
	store := scenarioStore(t)

	t.Run("Filtered retrieval excludes non-matching chunks", func(t *testing.T) {
		r := NewRetriever(store, scenarioEmbedder())

		results, err := r.Retrieve(ctx, "shampoo for dry hair", 5, models.FilterConstraints{ProductType: "shampoo"})
		require.NoError(t, err)
		require.Len(t, results, 2)

		// only A and B, ranked by distance; C never appears despite being close
		assert.Equal(t, "A", results[0].Chunk.Text)
		assert.Equal(t, "B", results[1].Chunk.Text)
		assert.Less(t, results[0].Distance, results[1].Distance)
	})

	t.Run("Both constraints narrow to a single chunk", func(t *testing.T) {
		r := NewRetriever(store, scenarioEmbedder())

		results, err := r.Retrieve(ctx, "shampoo for dry hair", 5, models.FilterConstraints{ProductType: "shampoo", SkinType: "dry"})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "A", results[0].Chunk.Text)
	})

	t.Run("Results round-trip to the store by index", func(t *testing.T) {
		r := NewRetriever(store, scenarioEmbedder())

		results, err := r.Retrieve(ctx, "shampoo for dry hair", 5, models.FilterConstraints{})
		require.NoError(t, err)

		for _, result := range results {
			stored, err := store.Get(result.Index)
			require.NoError(t, err)
			assert.Equal(t, stored, result.Chunk)
		}
	})

	t.Run("Empty match short-circuits without fallback", func(t *testing.T) {
		// an embedder with no stub vectors would fail any embed call, so a
		// non-empty result or a fallback to the unfiltered corpus would error
		r := NewRetriever(store, &stubEmbedder{vectors: map[string][]float32{}})

		results, err := r.Retrieve(ctx, "anything", 5, models.FilterConstraints{ProductType: "nonexistent-value"})
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("topK larger than candidate set is clamped", func(t *testing.T) {
		r := NewRetriever(store, scenarioEmbedder())

		results, err := r.Retrieve(ctx, "shampoo for dry hair", 50, models.FilterConstraints{ProductType: "shampoo"})
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("topK must be positive", func(t *testing.T) {
		r := NewRetriever(store, scenarioEmbedder())

		_, err := r.Retrieve(ctx, "shampoo for dry hair", 0, models.FilterConstraints{})
		assert.Error(t, err)
		_, err = r.Retrieve(ctx, "shampoo for dry hair", -3, models.FilterConstraints{})
		assert.Error(t, err)
	})

	t.Run("Embedding failure surfaces", func(t *testing.T) {
		r := NewRetriever(store, &stubEmbedder{vectors: map[string][]float32{}})

		_, err := r.Retrieve(ctx, "unknown query", 5, models.FilterConstraints{})
		var embErr *EmbeddingError
		require.ErrorAs(t, err, &embErr)
	})

	t.Run("Dimension mismatch surfaces", func(t *testing.T) {
		r := NewRetriever(store, &stubEmbedder{vectors: map[string][]float32{
			"q": {0, 0, 0},
			"A": {1, 0},
			"B": {2, 0},
			"C": {0, 1},
		}})

		_, err := r.Retrieve(ctx, "q", 5, models.FilterConstraints{})
		var dimErr *DimensionMismatchError
		require.ErrorAs(t, err, &dimErr)
	})
}

func TestRetrieveWithPrecomputedEmbeddings(t *testing.T) {
	ctx := context.Background()
	store := scenarioStore(t)

	t.Run("Cached and recomputed retrieval agree", func(t *testing.T) {
		baseline := NewRetriever(store, scenarioEmbedder())
		cached := NewRetriever(store, scenarioEmbedder())
		require.NoError(t, cached.PrecomputeEmbeddings(ctx))

		for _, constraints := range []models.FilterConstraints{
			{},
			{ProductType: "shampoo"},
			{ProductType: "shampoo", SkinType: "dry"},
			{SkinType: "dry"},
		} {
			want, err := baseline.Retrieve(ctx, "shampoo for dry hair", 5, constraints)
			require.NoError(t, err)
			got, err := cached.Retrieve(ctx, "shampoo for dry hair", 5, constraints)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("Simple embedder end to end", func(t *testing.T) {
		r := NewRetriever(store, NewSimpleEmbedder())
		require.NoError(t, r.PrecomputeEmbeddings(ctx))

		results, err := r.Retrieve(ctx, "shampoo for dry hair", 5, models.FilterConstraints{ProductType: "shampoo"})
		require.NoError(t, err)
		require.Len(t, results, 2)
		for _, result := range results {
			assert.Equal(t, "shampoo", result.Chunk.Metadata.ProductType)
		}
	})
}
