package services

import (
	"strings"
	"testing"

	"github.com/formulai/formulai/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrompt(t *testing.T) {
	chunks := []models.FormulaChunk{
		{Text: "Formula: Serum One\nPhase A:\n- Aqua (Water): 80%"},
		{Text: "Formula: Serum Two\nPhase A:\n- Glycerin (Glycerin): 5%"},
	}

	t.Run("Deterministic", func(t *testing.T) {
		a := BuildPrompt("hydrating serum", chunks)
		b := BuildPrompt("hydrating serum", chunks)
		assert.Equal(t, a, b)
	})

	t.Run("Query appears verbatim", func(t *testing.T) {
		prompt := BuildPrompt("gentle shampoo for dry scalp with aloe vera", nil)
		assert.Contains(t, prompt, "**User Brief:** gentle shampoo for dry scalp with aloe vera")
	})

	t.Run("Chunks appear in ranked order separated by a blank line", func(t *testing.T) {
		prompt := BuildPrompt("hydrating serum", chunks)

		assert.Contains(t, prompt, chunks[0].Text+"\n\n"+chunks[1].Text)

		first := strings.Index(prompt, "Serum One")
		second := strings.Index(prompt, "Serum Two")
		require.GreaterOrEqual(t, first, 0)
		require.GreaterOrEqual(t, second, 0)
		assert.Less(t, first, second)
	})

	t.Run("Zero results still yields a well-formed prompt", func(t *testing.T) {
		prompt := BuildPrompt("hydrating serum", nil)

		assert.Contains(t, prompt, "### Reference Formulas:")
		assert.Contains(t, prompt, "### Output Format:")
		assert.Contains(t, prompt, "### Begin:")
		assert.Equal(t, BuildPrompt("hydrating serum", []models.FormulaChunk{}), prompt)
	})

	t.Run("Instructional contract is present", func(t *testing.T) {
		prompt := BuildPrompt("anything", chunks)

		assert.Contains(t, prompt, "grouped by formulation phase")
		assert.Contains(t, prompt, "total close to 100%")
		assert.Contains(t, prompt, "INCI names")
	})
}
