package vector

import "errors"

var (
	// ErrNotFound is returned when an entry or collection is not found in the vector store.
	ErrNotFound = errors.New("entry not found")

	// ErrEmbedding is returned when embedding generation fails.
	ErrEmbedding = errors.New("embedding failed")

	// ErrConnection is returned when the vector store connection fails.
	ErrConnection = errors.New("vector store connection failed")

	// ErrDimensions is returned when an embedding does not match the index dimensions.
	ErrDimensions = errors.New("embedding dimensions mismatch")
)
