package services

import (
	"context"
	"fmt"
	"log"

	"github.com/formulai/formulai/models"
	"github.com/formulai/formulai/storage"
)

// Retriever composes the retrieval pipeline: metadata filter -> embed ->
// nearest-neighbor search -> map hits back to full chunk records.
type Retriever struct {
	store    *storage.ChunkStore
	embedder Embedder

	// vectors[i] is the cached embedding of chunk i, aligned with the
	// store's index space. Nil means candidates are re-embedded per request.
	vectors [][]float32
}

func NewRetriever(store *storage.ChunkStore, embedder Embedder) *Retriever {
	return &Retriever{
		store:    store,
		embedder: embedder,
	}
}

// PrecomputeEmbeddings embeds the whole corpus once so retrieval can select
// cached vectors by filtered index instead of re-embedding candidates on
// every request. Must complete before the retriever serves requests; the
// cache is read-only afterwards. Search semantics are unchanged.
func (r *Retriever) PrecomputeEmbeddings(ctx context.Context) error {
	texts := make([]string, r.store.Len())
	for i, chunk := range r.store.All() {
		texts[i] = chunk.Text
	}

	vectors, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to precompute corpus embeddings: %w", err)
	}

	r.vectors = vectors
	log.Printf("Precomputed %d corpus embeddings (model: %s)", len(vectors), r.embedder.ModelName())
	return nil
}

// Retrieve returns the topK chunks nearest to the query among those matching
// the constraints, in ascending distance order. An empty filtered set
// short-circuits to an empty result; there is no fallback to the unfiltered
// corpus. topK larger than the candidate set is clamped silently.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, constraints models.FilterConstraints) ([]models.SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be a positive integer, got %d", topK)
	}

	candidates := FilterChunks(r.store.All(), constraints)
	if len(candidates) == 0 {
		return []models.SearchResult{}, nil
	}

	queryVector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	candidateVectors, err := r.candidateVectors(ctx, candidates)
	if err != nil {
		return nil, err
	}

	neighbors, err := NearestNeighbors(queryVector, candidateVectors, topK)
	if err != nil {
		// a dimension mismatch here means the corpus and query were embedded
		// by different models; this is a configuration bug, not a bad request
		log.Printf("ERROR: similarity search failed: %v", err)
		return nil, err
	}

	results := make([]models.SearchResult, len(neighbors))
	for i, n := range neighbors {
		candidate := candidates[n.Position]
		results[i] = models.SearchResult{
			Index:    candidate.Index,
			Chunk:    candidate.Chunk,
			Distance: n.Distance,
		}
	}

	return results, nil
}

func (r *Retriever) candidateVectors(ctx context.Context, candidates []Candidate) ([][]float32, error) {
	if r.vectors != nil {
		vectors := make([][]float32, len(candidates))
		for i, c := range candidates {
			vectors[i] = r.vectors[c.Index]
		}
		return vectors, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Chunk.Text
	}

	vectors, err := r.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed candidates: %w", err)
	}
	return vectors, nil
}
