// Package launcher opens converted workbooks with the desktop's default
// application.
package launcher

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/browser"
	"github.com/rs/zerolog"
)

// openFile is swapped out in tests
var openFile = browser.OpenFile

// Open hands the file at path to the operating system
func Open(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("cannot open %s: %w", path, err)
	}
	if err := openFile(abs); err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	return nil
}

// OpenAll opens every path, logging failures instead of stopping. It returns
// the number of files opened.
func OpenAll(paths []string, logger zerolog.Logger) int {
	opened := 0
	for _, p := range paths {
		if err := Open(p); err != nil {
			logger.Warn().Err(err).Str("file", p).Msg("Could not open workbook")
			continue
		}
		opened++
	}
	return opened
}
