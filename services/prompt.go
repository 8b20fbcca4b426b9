package services

import (
	"strings"

	"github.com/formulai/formulai/models"
)

// BuildPrompt renders the grounding prompt for the generation model: the
// retrieved chunk texts in ranked order as the reference section, the user
// brief verbatim, and the fixed output-format instructions. It is a pure
// function; identical inputs produce byte-identical output, including the
// zero-result case (empty reference section, instructions intact).
func BuildPrompt(query string, chunks []models.FormulaChunk) string {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	context := strings.Join(texts, "\n\n")

	var sb strings.Builder

	sb.WriteString("You are a senior cosmetic formulator at a top-tier laboratory.\n\n")

	sb.WriteString("### Task\n")
	sb.WriteString("Formulate a cosmetic product based on the following user brief.\n\n")
	sb.WriteString("**User Brief:** ")
	sb.WriteString(query)
	sb.WriteString("\n\n")

	sb.WriteString("### Constraints:\n")
	sb.WriteString("- Use realistic, commonly accepted cosmetic ingredients\n")
	sb.WriteString("- Show all ingredients grouped by formulation phase (A, B, etc.)\n")
	sb.WriteString("- Output should total close to 100% (e.g. 99-100%)\n")
	sb.WriteString("- Use INCI names and optionally trade/common names\n")
	sb.WriteString("- Ensure safe usage levels, skin compatibility, and functional balance\n\n")

	sb.WriteString("### Reference Formulas:\n")
	sb.WriteString(context)
	sb.WriteString("\n\n")

	sb.WriteString("### Output Format:\n")
	sb.WriteString("Phase A:\n")
	sb.WriteString("- INCI Name (Trade Name): %w/w\n")
	sb.WriteString("...\n\n")
	sb.WriteString("Phase B:\n")
	sb.WriteString("...\n\n")

	sb.WriteString("### Begin:")

	return sb.String()
}
