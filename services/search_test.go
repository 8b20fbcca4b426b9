package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNearestNeighbors(t *testing.T) {
	query := []float32{0, 0}

	t.Run("Ascending distance order", func(t *testing.T) {
		candidates := [][]float32{
			{3, 0}, // dist 9
			{1, 0}, // dist 1
			{2, 0}, // dist 4
		}

		neighbors, err := NearestNeighbors(query, candidates, 3)
		require.NoError(t, err)
		require.Len(t, neighbors, 3)

		assert.Equal(t, 1, neighbors[0].Position)
		assert.Equal(t, 2, neighbors[1].Position)
		assert.Equal(t, 0, neighbors[2].Position)
		assert.Equal(t, 1.0, neighbors[0].Distance)
		assert.Equal(t, 4.0, neighbors[1].Distance)
		assert.Equal(t, 9.0, neighbors[2].Distance)
	})

	t.Run("Ties broken by lower position", func(t *testing.T) {
		candidates := [][]float32{
			{0, 2},  // dist 4
			{1, 0},  // dist 1
			{0, -2}, // dist 4, ties with position 0
			{-1, 0}, // dist 1, ties with position 1
		}

		neighbors, err := NearestNeighbors(query, candidates, 4)
		require.NoError(t, err)
		require.Len(t, neighbors, 4)

		assert.Equal(t, []int{1, 3, 0, 2}, []int{
			neighbors[0].Position, neighbors[1].Position,
			neighbors[2].Position, neighbors[3].Position,
		})
	})

	t.Run("Result size is min(k, candidates)", func(t *testing.T) {
		candidates := [][]float32{{1, 0}, {2, 0}}

		neighbors, err := NearestNeighbors(query, candidates, 5)
		require.NoError(t, err)
		assert.Len(t, neighbors, 2)

		neighbors, err = NearestNeighbors(query, candidates, 1)
		require.NoError(t, err)
		assert.Len(t, neighbors, 1)
	})

	t.Run("Empty candidate set is a valid input", func(t *testing.T) {
		neighbors, err := NearestNeighbors(query, nil, 5)
		require.NoError(t, err)
		assert.Empty(t, neighbors)

		neighbors, err = NearestNeighbors(query, [][]float32{}, 5)
		require.NoError(t, err)
		assert.Empty(t, neighbors)
	})

	t.Run("Dimension mismatch fails the call", func(t *testing.T) {
		candidates := [][]float32{
			{1, 0},
			{1, 0, 0},
		}

		_, err := NearestNeighbors(query, candidates, 2)
		var dimErr *DimensionMismatchError
		require.ErrorAs(t, err, &dimErr)
		assert.Equal(t, 2, dimErr.Want)
		assert.Equal(t, 3, dimErr.Got)
		assert.Equal(t, 1, dimErr.Position)
	})

	t.Run("Determinism", func(t *testing.T) {
		candidates := [][]float32{{0.5, 0.1}, {0.3, 0.9}, {0.2, 0.2}}

		first, err := NearestNeighbors(query, candidates, 3)
		require.NoError(t, err)
		second, err := NearestNeighbors(query, candidates, 3)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}
