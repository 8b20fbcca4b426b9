package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/formulai/formulai/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCorpusFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCorpus(t *testing.T) {
	t.Run("Valid corpus", func(t *testing.T) {
		path := writeCorpusFile(t, `[
			{"text": "Formula: Hydrating Serum\nPhase A:\n- Aqua (Water): 80%", "metadata": {"product_type": "serum", "skin_type": "dry", "key_ingredients": ["Aqua"]}},
			{"text": "Formula: Clarifying Shampoo\nPhase A:\n- Aqua (Water): 70%", "metadata": {"product_type": "shampoo", "skin_type": "oily", "key_ingredients": ["Aqua"]}}
		]`)

		store, err := LoadCorpus(path)
		require.NoError(t, err)
		assert.Equal(t, 2, store.Len())

		chunk, err := store.Get(0)
		require.NoError(t, err)
		assert.Equal(t, "serum", chunk.Metadata.ProductType)
		assert.Equal(t, []string{"Aqua"}, chunk.Metadata.KeyIngredients)
	})

	t.Run("Load order is the index space", func(t *testing.T) {
		path := writeCorpusFile(t, `[
			{"text": "first", "metadata": {"product_type": "serum", "skin_type": "all", "key_ingredients": []}},
			{"text": "second", "metadata": {"product_type": "lotion", "skin_type": "all", "key_ingredients": []}}
		]`)

		store, err := LoadCorpus(path)
		require.NoError(t, err)

		first, err := store.Get(0)
		require.NoError(t, err)
		second, err := store.Get(1)
		require.NoError(t, err)
		assert.Equal(t, "first", first.Text)
		assert.Equal(t, "second", second.Text)
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := LoadCorpus(filepath.Join(t.TempDir(), "missing.json"))
		var loadErr *CorpusLoadError
		require.ErrorAs(t, err, &loadErr)
	})

	t.Run("Malformed JSON fails the whole load", func(t *testing.T) {
		path := writeCorpusFile(t, `[{"text": "ok"}, {`)
		_, err := LoadCorpus(path)
		var loadErr *CorpusLoadError
		require.ErrorAs(t, err, &loadErr)
	})

	t.Run("Empty corpus is an error", func(t *testing.T) {
		path := writeCorpusFile(t, `[]`)
		_, err := LoadCorpus(path)
		var loadErr *CorpusLoadError
		require.ErrorAs(t, err, &loadErr)
	})

	t.Run("Chunk with empty text fails the load", func(t *testing.T) {
		path := writeCorpusFile(t, `[
			{"text": "ok", "metadata": {"product_type": "serum", "skin_type": "all", "key_ingredients": []}},
			{"text": "", "metadata": {"product_type": "serum", "skin_type": "all", "key_ingredients": []}}
		]`)
		_, err := LoadCorpus(path)
		var loadErr *CorpusLoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Contains(t, loadErr.Error(), "chunk 1")
	})
}

func TestChunkStoreGet(t *testing.T) {
	store, err := NewChunkStore([]models.FormulaChunk{
		{Text: "only", Metadata: models.ChunkMetadata{ProductType: "serum", SkinType: "all"}},
	})
	require.NoError(t, err)

	t.Run("In range", func(t *testing.T) {
		chunk, err := store.Get(0)
		require.NoError(t, err)
		assert.Equal(t, "only", chunk.Text)
	})

	t.Run("Out of range", func(t *testing.T) {
		_, err := store.Get(1)
		assert.Error(t, err)
		_, err = store.Get(-1)
		assert.Error(t, err)
	})
}

func TestNewChunkStoreEmpty(t *testing.T) {
	_, err := NewChunkStore(nil)
	var loadErr *CorpusLoadError
	require.True(t, errors.As(err, &loadErr))
}
