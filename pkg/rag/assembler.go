package rag

import (
	"fmt"
	"strings"
	"unicode"
)

// Assemble renders retrieval results as the context block of the grounding
// prompt, one labelled section per result in the given order:
//
//	Source: <filename>, Chunk: <index>
//	<text>
//
// Results without a chunk index use their position instead.
func Assemble(results RetrievalResult) string {
	var b strings.Builder
	for i, r := range results {
		index := r.Chunk.Index
		if index < 0 {
			index = i
		}
		fmt.Fprintf(&b, "Source: %s, Chunk: %d\n%s\n\n", r.Chunk.Filename, index, r.Chunk.Text)
	}
	return strings.TrimRightFunc(b.String(), unicode.IsSpace)
}

// Sources returns the distinct filenames of results in first-appearance
// order. It never returns nil.
func Sources(results RetrievalResult) []string {
	sources := []string{}
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		if _, ok := seen[r.Chunk.Filename]; ok {
			continue
		}
		seen[r.Chunk.Filename] = struct{}{}
		sources = append(sources, r.Chunk.Filename)
	}
	return sources
}
