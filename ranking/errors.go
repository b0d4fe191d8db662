package ranking

import "errors"

var (
	// ErrMissingBoundingBox means a garment without a bounding box reached the
	// ranker. Callers must drop such garments before searching.
	ErrMissingBoundingBox = errors.New("garment has no bounding box")

	// ErrEmbeddingService wraps failures of the embedding collaborator.
	ErrEmbeddingService = errors.New("embedding service failed")

	// ErrStoreQuery wraps failures of the vector store collaborator.
	ErrStoreQuery = errors.New("vector store query failed")

	// ErrDetection wraps failures of the attribute extractor.
	ErrDetection = errors.New("garment detection failed")
)
