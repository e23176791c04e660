package ingest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/papercomputeco/docrag/pkg/extract"
)

// Collect expands paths into the supported files to ingest. Directories are
// walked recursively; hidden files and directories are skipped. Files named
// directly must be supported. The result is sorted and free of duplicates.
func Collect(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}

		if !info.IsDir() {
			if !extract.Supported(p) {
				return nil, fmt.Errorf("%w: %s", extract.ErrUnsupportedType, p)
			}
			files = append(files, filepath.Clean(p))
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != p && Hidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() && extract.Supported(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", p, err)
		}
	}

	slices.Sort(files)
	return slices.Compact(files), nil
}

// Hidden reports whether the base name of path starts with a dot.
func Hidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
