// Package scan enumerates candidate source files in a directory.
package scan

import (
	"errors"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// readBatch bounds how many directory entries are held in memory at once.
const readBatch = 256

// Files yields the absolute path of every non-directory entry directly in
// root whose extension is exactly "."+ext (case-sensitive). Leading dots do
// not start an extension, so a dotfile named ".pdf" has none. Subdirectories
// are not descended into. A root that is missing or is not a directory
// yields nothing; read errors end the sequence early. Both are logged, never
// returned. Order follows the filesystem and must not be relied upon.
//
// The sequence reads the directory lazily and can be ranged over once.
func Files(root, ext string, logger *slog.Logger) iter.Seq[string] {
	if logger == nil {
		logger = slog.Default()
	}
	want := "." + ext

	return func(yield func(string) bool) {
		abs, err := filepath.Abs(root)
		if err != nil {
			logger.Warn("scan: resolve root", "root", root, "err", err)
			return
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			logger.Warn("scan: root is not a directory", "root", abs, "err", err)
			return
		}

		dir, err := os.Open(abs)
		if err != nil {
			logger.Warn("scan: open root", "root", abs, "err", err)
			return
		}
		defer dir.Close()

		for {
			entries, err := dir.ReadDir(readBatch)
			for _, e := range entries {
				if e.IsDir() || extOf(e.Name()) != want {
					continue
				}
				if !yield(filepath.Join(abs, e.Name())) {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				logger.Warn("scan: read directory", "root", abs, "err", err)
				return
			}
		}
	}
}

// Extensions counts the file extensions present directly in root. Only
// extensions of three to five characters including the dot are reported,
// which filters out dotfiles and unusual suffixes.
func Extensions(root string) (map[string]int, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := extOf(e.Name())
		if len(ext) < 3 || len(ext) > 5 {
			continue
		}
		counts[ext]++
	}
	return counts, nil
}

// extOf returns the extension of name, ignoring leading dots.
func extOf(name string) string {
	trimmed := strings.TrimLeft(name, ".")
	if trimmed == "" {
		return ""
	}
	return filepath.Ext(trimmed)
}

// SortedExtensions returns the keys of counts in lexical order.
func SortedExtensions(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
