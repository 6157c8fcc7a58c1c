package parsers

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

const (
	// CharsetUTF8 is reported for input that needs no transcoding
	CharsetUTF8 = "UTF-8"

	detectWindow = 4096
	readerSize   = 64 * 1024
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Single byte encodings we know how to transcode, keyed by the lower-cased
// charset name chardet reports.
var decoders = map[string]encoding.Encoding{
	"iso-8859-1":   charmap.ISO8859_1,
	"iso-8859-2":   charmap.ISO8859_2,
	"iso-8859-5":   charmap.ISO8859_5,
	"iso-8859-9":   charmap.ISO8859_9,
	"iso-8859-15":  charmap.ISO8859_15,
	"windows-1250": charmap.Windows1250,
	"windows-1251": charmap.Windows1251,
	"windows-1252": charmap.Windows1252,
	"windows-1254": charmap.Windows1254,
	"koi8-r":       charmap.KOI8R,
}

// NewDecodingReader peeks at the start of r, detects its character set and
// returns a reader producing UTF-8 together with the detected charset name.
// A leading UTF-8 byte order mark is dropped. Charsets without a known
// decoder are passed through untouched.
func NewDecodingReader(r io.Reader) (io.Reader, string, error) {
	br := bufio.NewReaderSize(r, readerSize)

	peek, err := br.Peek(detectWindow)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, "", fmt.Errorf("failed to read file header: %w", err)
	}
	if len(peek) == 0 {
		return br, CharsetUTF8, nil
	}

	if bytes.HasPrefix(peek, utf8BOM) {
		if _, err := br.Discard(len(utf8BOM)); err != nil {
			return nil, "", fmt.Errorf("failed to skip byte order mark: %w", err)
		}
		return br, CharsetUTF8, nil
	}

	if validUTF8Prefix(peek, len(peek) == detectWindow) {
		return br, CharsetUTF8, nil
	}

	charset := CharsetUTF8
	if det, err := chardet.NewTextDetector().DetectBest(peek); err == nil && det != nil {
		charset = det.Charset
	}

	enc, ok := decoders[strings.ToLower(charset)]
	if !ok {
		return br, charset, nil
	}
	return transform.NewReader(br, enc.NewDecoder()), charset, nil
}

// validUTF8Prefix reports whether b is valid UTF-8. When b was cut from a
// longer stream a trailing incomplete rune is tolerated.
func validUTF8Prefix(b []byte, truncated bool) bool {
	if utf8.Valid(b) {
		return true
	}
	if !truncated {
		return false
	}
	for i := 1; i < utf8.UTFMax && i < len(b); i++ {
		tail := b[len(b)-i:]
		if !utf8.FullRune(tail) && utf8.Valid(b[:len(b)-i]) {
			return true
		}
	}
	return false
}
