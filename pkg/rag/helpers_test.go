package rag_test

import (
	"github.com/papercomputeco/docrag/pkg/chunker"
	"github.com/papercomputeco/docrag/pkg/vector"
)

func hit(filename string, index int, text string, score float32) vector.Result {
	return vector.Result{
		Entry: vector.Entry{
			ID: filename + "-" + text,
			Chunk: chunker.Chunk{
				Text:       text,
				DocumentID: "doc-" + filename,
				Filename:   filename,
				Index:      index,
				Total:      10,
			},
		},
		Score: score,
	}
}
