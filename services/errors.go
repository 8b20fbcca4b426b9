package services

import "fmt"

// EmbeddingError means a single request's embedding step failed. The request
// fails; the underlying cause is preserved for the caller.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// DimensionMismatchError means vectors of different lengths met in one
// search. That indicates a configuration bug (mismatched embedder between
// index build and query time), not a bad request, so it is logged loudly and
// surfaced rather than recovered.
type DimensionMismatchError struct {
	Want     int
	Got      int
	Position int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("candidate %d has dimension %d, query has %d", e.Position, e.Got, e.Want)
}

// GenerationError wraps a failure of the external generation service
// (timeout, connection failure, malformed or empty response). An empty or
// truncated formula is user-visible, so this is always surfaced.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
