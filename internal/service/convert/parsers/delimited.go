package parsers

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"unicode"
	"unicode/utf8"
)

// ValidDelimiter reports whether r can be used as the field separator of an
// encoding/csv reader.
func ValidDelimiter(r rune) bool {
	return r != 0 && r != '"' && r != '\r' && r != '\n' &&
		utf8.ValidRune(r) && r != utf8.RuneError && !unicode.Is(unicode.Cs, r)
}

// ParseDelimiter turns a user supplied delimiter into a rune. Besides single
// characters it accepts the names tab, comma, semicolon, pipe and colon, and
// the escape \t.
func ParseDelimiter(s string) (rune, bool) {
	switch s {
	case "tab", `\t`:
		return '\t', true
	case "comma":
		return ',', true
	case "semicolon":
		return ';', true
	case "pipe":
		return '|', true
	case "colon":
		return ':', true
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(s)
	if !ValidDelimiter(r) {
		return 0, false
	}
	return r, true
}

// DelimitedReader streams records from delimited text with a known separator
type DelimitedReader struct {
	reader     *csv.Reader
	lineNumber int
	skipped    int
}

// NewDelimitedReader creates a reader splitting fields on delim
func NewDelimitedReader(r io.Reader, delim rune) (*DelimitedReader, error) {
	if !ValidDelimiter(delim) {
		return nil, errors.New("invalid field delimiter")
	}

	// Wrap in buffered reader for efficiency
	br := bufio.NewReaderSize(r, 64*1024)
	csvReader := csv.NewReader(br)
	csvReader.Comma = delim
	csvReader.FieldsPerRecord = -1 // Allow variable number of fields
	// Strict quoting: a stray quote fails only its own line, where lazy
	// quoting would fold every following line into one field.
	csvReader.LazyQuotes = false

	return &DelimitedReader{reader: csvReader}, nil
}

// ReadAll calls callback for every record. Malformed records are counted as
// skipped and do not stop the read.
func (p *DelimitedReader) ReadAll(callback func(row int, record []string) error) error {
	for {
		record, err := p.reader.Read()
		if err == io.EOF {
			return nil
		}
		p.lineNumber++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				p.skipped++
				continue
			}
			return err
		}

		if err := callback(p.lineNumber, record); err != nil {
			return err
		}
	}
}

// Rows returns how many records have been read, including skipped ones
func (p *DelimitedReader) Rows() int {
	return p.lineNumber
}

// Skipped returns how many malformed records were dropped
func (p *DelimitedReader) Skipped() int {
	return p.skipped
}
