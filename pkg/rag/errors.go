package rag

import "errors"

var (
	// ErrValidation is returned for unusable input: blank text or questions,
	// invalid chunking configuration, unsupported uploads.
	ErrValidation = errors.New("validation error")

	// ErrIndexing is returned when embedding or storing a document's chunks
	// fails. Nothing is retried internally.
	ErrIndexing = errors.New("indexing failed")

	// ErrGeneration is returned when the language model fails to produce an
	// answer. It is never confused with the no-information answer.
	ErrGeneration = errors.New("generation failed")
)
