// Package chunker splits extracted document text into overlapping windows.
package chunker

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

const (
	// DefaultWindowSize is the default window length in characters.
	DefaultWindowSize = 500

	// DefaultOverlap is the default number of characters shared by consecutive windows.
	DefaultOverlap = 50
)

// ErrInvalidConfig is returned when the window or overlap configuration cannot
// produce chunks.
var ErrInvalidConfig = errors.New("invalid chunker configuration")

// Chunk is a bounded, overlap-aware window of a document's extracted text.
type Chunk struct {
	// Text is the trimmed window content.
	Text string `json:"text"`

	// DocumentID identifies the source document.
	DocumentID string `json:"document_id"`

	// Filename is the source document's filename, used for attribution.
	Filename string `json:"filename"`

	// Index is the 0-based emission order of this chunk within its document.
	Index int `json:"chunk_index"`

	// Total is the number of chunks emitted for the document.
	Total int `json:"total_chunks"`
}

// Config holds the windowing parameters.
type Config struct {
	// WindowSize is the maximum window length in characters.
	WindowSize int

	// Overlap is how many characters the next window steps back from the
	// previous window's end.
	Overlap int
}

// DefaultConfig returns the default windowing parameters.
func DefaultConfig() Config {
	return Config{
		WindowSize: DefaultWindowSize,
		Overlap:    DefaultOverlap,
	}
}

// Validate reports whether the configuration satisfies windowSize > overlap >= 0.
func (c Config) Validate() error {
	if c.WindowSize <= 0 {
		return fmt.Errorf("%w: window size must be positive, got %d", ErrInvalidConfig, c.WindowSize)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidConfig, c.Overlap)
	}
	if c.Overlap >= c.WindowSize {
		return fmt.Errorf("%w: overlap (%d) must be smaller than window size (%d)", ErrInvalidConfig, c.Overlap, c.WindowSize)
	}
	return nil
}

// Chunker produces document chunks with a fixed configuration.
type Chunker struct {
	config Config
}

// New creates a Chunker after validating the configuration.
func New(c Config) (*Chunker, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{config: c}, nil
}

// Config returns the chunker's windowing parameters.
func (c *Chunker) Config() Config {
	return c.config
}

// Chunk splits text and stamps every chunk with the document's identity.
func (c *Chunker) Chunk(documentID, filename, text string) []Chunk {
	windows := split(text, c.config.WindowSize, c.config.Overlap)

	chunks := make([]Chunk, len(windows))
	for i, w := range windows {
		chunks[i] = Chunk{
			Text:       w,
			DocumentID: documentID,
			Filename:   filename,
			Index:      i,
			Total:      len(windows),
		}
	}
	return chunks
}

// Split splits text into overlapping windows without document identity.
// Index and Total are stamped; DocumentID and Filename are left empty.
func Split(text string, windowSize, overlap int) ([]Chunk, error) {
	c, err := New(Config{WindowSize: windowSize, Overlap: overlap})
	if err != nil {
		return nil, err
	}
	return c.Chunk("", "", text), nil
}

// split returns the trimmed window texts in emission order. Windows are
// measured in runes so multi-byte characters are never cut in half.
func split(text string, windowSize, overlap int) []string {
	runes := []rune(text)
	n := len(runes)

	var windows []string
	start := 0
	prevStart := -1

	for start < n {
		if start == prevStart {
			break
		}
		prevStart = start

		end := min(start+windowSize, n)
		if end < n {
			if ws := lastSpace(runes, start, end); ws > start {
				end = ws
			}
		}

		if w := strings.TrimSpace(string(runes[start:end])); w != "" {
			windows = append(windows, w)
		}

		// The window reached the end of the text; stepping back by the
		// overlap would only re-emit its tail.
		if end == n {
			break
		}

		start = max(end-overlap, start+1)
	}

	return windows
}

// lastSpace returns the position of the nearest whitespace rune at or before
// end, searching no further back than start. It returns -1 when none exists.
func lastSpace(runes []rune, start, end int) int {
	for i := end; i >= start; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}
