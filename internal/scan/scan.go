// Package scan turns command line arguments into the list of files to convert.
package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rohit/sheetconv/internal/service/convert/parsers"
)

// DefaultPattern matches every supported input below a directory
var DefaultPattern = PatternFor(parsers.SupportedExtensions)

// PatternFor returns a glob matching files with any of exts at any depth
func PatternFor(exts []string) string {
	names := make([]string, 0, len(exts))
	for _, ext := range exts {
		names = append(names, strings.TrimPrefix(ext, "."))
	}
	return "**/*.{" + strings.Join(names, ",") + "}"
}

// Expand resolves inputs into a sorted list of unique file paths. Directories
// are searched with pattern; files are kept as given even when their
// extension is not supported, so the caller can report them. Hidden files
// and directories found while searching are skipped.
func Expand(inputs []string, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}

	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		path = filepath.Clean(path)
		if seen[path] {
			return
		}
		seen[path] = true
		files = append(files, path)
	}

	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil {
			// Reported per file by the converter
			add(input)
			continue
		}
		if !info.IsDir() {
			add(input)
			continue
		}

		matches, err := doublestar.Glob(os.DirFS(input), pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("failed to search %s: %w", input, err)
		}
		for _, rel := range matches {
			if isHidden(rel) {
				continue
			}
			add(filepath.Join(input, filepath.FromSlash(rel)))
		}
	}

	sort.Strings(files)
	return files, nil
}

func isHidden(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if len(part) > 0 && part[0] == '.' {
			return true
		}
	}
	return false
}
