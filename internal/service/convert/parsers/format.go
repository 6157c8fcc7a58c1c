package parsers

import (
	"path/filepath"
	"strings"
)

// FileFormat represents the kind of delimited text file being converted
type FileFormat string

const (
	FormatCSV     FileFormat = "csv"
	FormatTSV     FileFormat = "tsv"
	FormatPSV     FileFormat = "psv"
	FormatText    FileFormat = "text"
	FormatUnknown FileFormat = "unknown"
)

// SupportedExtensions lists the extensions accepted for conversion
var SupportedExtensions = []string{".csv", ".tsv", ".txt", ".psv", ".dat"}

// DetectFormat determines the file format from the filename extension
func DetectFormat(filename string) FileFormat {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".csv":
		return FormatCSV
	case ".tsv":
		return FormatTSV
	case ".psv":
		return FormatPSV
	case ".txt", ".dat":
		return FormatText
	default:
		return FormatUnknown
	}
}

// IsSupported returns true if files of this format can be converted
func (f FileFormat) IsSupported() bool {
	return f != FormatUnknown && f != ""
}

// OutputName returns the workbook file name for a source file
func OutputName(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".xlsx"
}
