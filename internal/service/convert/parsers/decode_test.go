package parsers

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

func TestNewDecodingReader_UTF8(t *testing.T) {
	input := "name;city\nZoë;Zürich\n"

	r, charset, err := NewDecodingReader(strings.NewReader(input))
	if err != nil {
		t.Fatalf("NewDecodingReader() error: %v", err)
	}
	if charset != CharsetUTF8 {
		t.Errorf("charset = %q, want %q", charset, CharsetUTF8)
	}

	out, _ := io.ReadAll(r)
	if string(out) != input {
		t.Errorf("output = %q, want %q", out, input)
	}
}

func TestNewDecodingReader_StripsBOM(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("a,b\n1,2\n")...)

	r, charset, err := NewDecodingReader(bytes.NewReader(input))
	if err != nil {
		t.Fatalf("NewDecodingReader() error: %v", err)
	}
	if charset != CharsetUTF8 {
		t.Errorf("charset = %q, want %q", charset, CharsetUTF8)
	}

	out, _ := io.ReadAll(r)
	if string(out) != "a,b\n1,2\n" {
		t.Errorf("output = %q, BOM not stripped", out)
	}
}

func TestNewDecodingReader_Latin1(t *testing.T) {
	text := strings.Repeat("prénom;société;adresse;remarque\nJérôme;Crédit Agricole;Rue de la Paix;déjà réglé\n", 20)
	encoded, err := charmap.ISO8859_1.NewEncoder().String(text)
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	if utf8.ValidString(encoded) {
		t.Fatal("fixture should not be valid UTF-8")
	}

	r, charset, err := NewDecodingReader(strings.NewReader(encoded))
	if err != nil {
		t.Fatalf("NewDecodingReader() error: %v", err)
	}
	if charset == CharsetUTF8 {
		t.Fatalf("charset = %q, expected a single byte charset", charset)
	}

	out, _ := io.ReadAll(r)
	if _, ok := decoders[strings.ToLower(charset)]; ok {
		if !utf8.Valid(out) {
			t.Errorf("decoded output is not UTF-8 (charset %s)", charset)
		}
		if !strings.Contains(string(out), "prénom") {
			t.Errorf("decoded output %q does not contain the original text (charset %s)", out[:40], charset)
		}
	}
}

func TestNewDecodingReader_Empty(t *testing.T) {
	r, charset, err := NewDecodingReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("NewDecodingReader() error: %v", err)
	}
	if charset != CharsetUTF8 {
		t.Errorf("charset = %q", charset)
	}
	out, _ := io.ReadAll(r)
	if len(out) != 0 {
		t.Errorf("output = %q, want empty", out)
	}
}

func TestValidUTF8Prefix(t *testing.T) {
	euro := []byte("€") // 3 bytes
	cut := append([]byte("abc"), euro[:2]...)

	if !validUTF8Prefix(cut, true) {
		t.Error("truncated rune at the end of a window should be tolerated")
	}
	if validUTF8Prefix(cut, false) {
		t.Error("truncated rune at end of input is invalid")
	}
	if validUTF8Prefix([]byte{'a', 0xE9, 'b'}, true) {
		t.Error("latin1 byte in the middle must be invalid")
	}
}
