package storage

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/formulai/formulai/models"
)

// CorpusLoadError means the corpus source was malformed or empty. It is
// fatal at startup: the process cannot serve requests without a corpus.
type CorpusLoadError struct {
	Source string
	Err    error
}

func (e *CorpusLoadError) Error() string {
	return fmt.Sprintf("loading corpus from %s: %v", e.Source, e.Err)
}

func (e *CorpusLoadError) Unwrap() error { return e.Err }

// ChunkStore holds the formula corpus in memory. It is loaded once at
// process start and read-only afterwards, so concurrent reads from multiple
// requests need no locking. Load order is the canonical index space.
type ChunkStore struct {
	chunks []models.FormulaChunk
}

// NewChunkStore wraps an already-loaded chunk slice. Fails on an empty
// corpus, same as loading from a source would.
func NewChunkStore(chunks []models.FormulaChunk) (*ChunkStore, error) {
	if len(chunks) == 0 {
		return nil, &CorpusLoadError{Source: "memory", Err: fmt.Errorf("corpus is empty")}
	}
	return &ChunkStore{chunks: chunks}, nil
}

// LoadCorpus reads a JSON corpus file: an array of {text, metadata} records.
// A malformed record fails the entire load; there is no partial load.
func LoadCorpus(path string) (*ChunkStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &CorpusLoadError{Source: path, Err: err}
	}

	var chunks []models.FormulaChunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, &CorpusLoadError{Source: path, Err: fmt.Errorf("invalid corpus JSON: %w", err)}
	}

	if len(chunks) == 0 {
		return nil, &CorpusLoadError{Source: path, Err: fmt.Errorf("corpus is empty")}
	}

	for i, chunk := range chunks {
		if chunk.Text == "" {
			return nil, &CorpusLoadError{Source: path, Err: fmt.Errorf("chunk %d has empty text", i)}
		}
	}

	log.Printf("Loaded corpus: %d chunks from %s", len(chunks), path)
	return &ChunkStore{chunks: chunks}, nil
}

// Get returns the chunk at the given index.
func (s *ChunkStore) Get(index int) (models.FormulaChunk, error) {
	if index < 0 || index >= len(s.chunks) {
		return models.FormulaChunk{}, fmt.Errorf("chunk index %d out of range [0,%d)", index, len(s.chunks))
	}
	return s.chunks[index], nil
}

func (s *ChunkStore) Len() int {
	return len(s.chunks)
}

// All returns the backing chunk slice. Callers must treat it as read-only.
func (s *ChunkStore) All() []models.FormulaChunk {
	return s.chunks
}
