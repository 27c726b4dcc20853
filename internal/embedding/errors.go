package embedding

import (
	"fmt"

	"episodedb/internal/services"
)

// EmbeddingError reports a failed batch: either the provider call failed or
// it returned a different number of vectors than texts submitted.
type EmbeddingError struct {
	Batch    int // zero-based batch number, -1 before any batch ran
	Expected int
	Got      int
	Err      error
}

func (e *EmbeddingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("embedding batch %d: %v", e.Batch, e.Err)
	}
	return fmt.Sprintf("embedding batch %d: expected %d vectors, got %d", e.Batch, e.Expected, e.Got)
}

// Unwrap exposes the provider failure, or ErrExternalTool for a malformed
// provider response.
func (e *EmbeddingError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return services.ErrExternalTool
}
