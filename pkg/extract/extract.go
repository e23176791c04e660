// Package extract pulls plain text out of uploaded documents.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

var (
	// ErrUnsupportedType is returned for file extensions with no extractor.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrEmptyText is returned when a document yields no text.
	ErrEmptyText = errors.New("no text could be extracted")

	// ErrTooLarge is returned when a document exceeds the size limit.
	ErrTooLarge = errors.New("file exceeds maximum size")
)

// DefaultMaxBytes is the default upload size limit, 10 MiB.
const DefaultMaxBytes int64 = 10 * 1024 * 1024

type extractFunc func(data []byte) (string, error)

var extractors = map[string]extractFunc{
	"pdf":      pdfText,
	"docx":     docxText,
	"pptx":     pptxText,
	"xlsx":     xlsxText,
	"md":       markdownText,
	"markdown": markdownText,
	"txt":      plainText,
}

// FileType returns the lower-cased extension of filename without the dot.
func FileType(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// Supported reports whether filename has an extension with an extractor.
func Supported(filename string) bool {
	_, ok := extractors[FileType(filename)]
	return ok
}

// SupportedTypes lists the supported extensions in sorted order.
func SupportedTypes() []string {
	types := make([]string, 0, len(extractors))
	for t := range extractors {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// Text extracts the trimmed plain text of a document. The extractor is picked
// from the filename extension.
func Text(filename string, data []byte) (string, error) {
	fileType := FileType(filename)
	fn, ok := extractors[fileType]
	if !ok {
		return "", fmt.Errorf("%w: %q (supported: %s)",
			ErrUnsupportedType, fileType, strings.Join(SupportedTypes(), ", "))
	}

	text, err := fn(data)
	if err != nil {
		return "", fmt.Errorf("extracting %s: %w", filename, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyText, filename)
	}
	return text, nil
}

// Validate checks a document before extraction: it must be non-empty, at
// most maxBytes long (0 means DefaultMaxBytes) and of a supported type.
func Validate(filename string, size, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if size <= 0 {
		return fmt.Errorf("%w: %s is empty", ErrEmptyText, filename)
	}
	if size > maxBytes {
		return fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrTooLarge, filename, size, maxBytes)
	}
	if !Supported(filename) {
		return fmt.Errorf("%w: %q (supported: %s)",
			ErrUnsupportedType, FileType(filename), strings.Join(SupportedTypes(), ", "))
	}
	return nil
}

func plainText(data []byte) (string, error) {
	return strings.ToValidUTF8(string(data), ""), nil
}
