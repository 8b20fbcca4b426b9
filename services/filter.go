package services

import "github.com/formulai/formulai/models"

// Candidate is a chunk that passed the metadata filter, carrying its
// original position in the chunk store so search hits can be mapped back.
type Candidate struct {
	Index int
	Chunk models.FormulaChunk
}

// FilterChunks narrows the corpus to chunks matching the constraints.
// An empty constraint field matches everything on that dimension; a present
// field must equal the chunk's metadata value exactly (case-sensitive, no
// normalization). Both constraints combine with AND.
//
// No match is a valid outcome, not an error: the result is simply empty.
func FilterChunks(chunks []models.FormulaChunk, constraints models.FilterConstraints) []Candidate {
	candidates := make([]Candidate, 0, len(chunks))

	for i, chunk := range chunks {
		if constraints.ProductType != "" && chunk.Metadata.ProductType != constraints.ProductType {
			continue
		}
		if constraints.SkinType != "" && chunk.Metadata.SkinType != constraints.SkinType {
			continue
		}
		candidates = append(candidates, Candidate{Index: i, Chunk: chunk})
	}

	return candidates
}
