package parsers

import (
	"errors"
	"strings"
	"testing"
)

func TestDelimitedReader_ReadAll(t *testing.T) {
	tests := []struct {
		name  string
		input string
		delim rune
		want  [][]string
	}{
		{
			name:  "semicolon",
			input: "id;name\n1;Alice\n2;Bob\n",
			delim: ';',
			want:  [][]string{{"id", "name"}, {"1", "Alice"}, {"2", "Bob"}},
		},
		{
			name:  "quoted comma",
			input: "\"a,b\",c\n\"1,2\",3",
			delim: ',',
			want:  [][]string{{"a,b", "c"}, {"1,2", "3"}},
		},
		{
			name:  "tab with ragged rows",
			input: "a\tb\tc\n1\t2\n",
			delim: '\t',
			want:  [][]string{{"a", "b", "c"}, {"1", "2"}},
		},
		{
			name:  "quoted field across lines",
			input: "\"a\nb\",c\nd,e\n",
			delim: ',',
			want:  [][]string{{"a\nb", "c"}, {"d", "e"}},
		},
		{
			name:  "pipe with crlf",
			input: "x|y\r\n1|2\r\n",
			delim: '|',
			want:  [][]string{{"x", "y"}, {"1", "2"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewDelimitedReader(strings.NewReader(tt.input), tt.delim)
			if err != nil {
				t.Fatalf("NewDelimitedReader() error: %v", err)
			}

			var got [][]string
			err = p.ReadAll(func(row int, record []string) error {
				got = append(got, append([]string(nil), record...))
				return nil
			})
			if err != nil {
				t.Fatalf("ReadAll() error: %v", err)
			}

			if len(got) != len(tt.want) {
				t.Fatalf("ReadAll() got %d rows, want %d: %q", len(got), len(tt.want), got)
			}
			for i := range tt.want {
				if strings.Join(got[i], "\x00") != strings.Join(tt.want[i], "\x00") {
					t.Errorf("row %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
			if p.Rows() != len(tt.want) {
				t.Errorf("Rows() = %d, want %d", p.Rows(), len(tt.want))
			}
		})
	}
}

func TestDelimitedReader_SkipsMalformedLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  [][]string
	}{
		{
			name:  "text after closing quote",
			input: "a,b\nc,d\ne,\"f\"g\nh,i\n",
			want:  [][]string{{"a", "b"}, {"c", "d"}, {"h", "i"}},
		},
		{
			name:  "bare quote in unquoted field",
			input: "a,b\nc\"d,e\nf,g\n",
			want:  [][]string{{"a", "b"}, {"f", "g"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewDelimitedReader(strings.NewReader(tt.input), ',')
			if err != nil {
				t.Fatalf("NewDelimitedReader() error: %v", err)
			}

			var got [][]string
			err = p.ReadAll(func(row int, record []string) error {
				got = append(got, append([]string(nil), record...))
				return nil
			})
			if err != nil {
				t.Fatalf("ReadAll() error: %v", err)
			}

			if len(got) != len(tt.want) {
				t.Fatalf("ReadAll() got %d rows, want %d: %q", len(got), len(tt.want), got)
			}
			for i := range tt.want {
				if strings.Join(got[i], "\x00") != strings.Join(tt.want[i], "\x00") {
					t.Errorf("row %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
			if p.Skipped() != 1 {
				t.Errorf("Skipped() = %d, want 1", p.Skipped())
			}
		})
	}
}

func TestDelimitedReader_CallbackErrorStops(t *testing.T) {
	p, err := NewDelimitedReader(strings.NewReader("a,b\n1,2\n3,4\n"), ',')
	if err != nil {
		t.Fatalf("NewDelimitedReader() error: %v", err)
	}

	stop := errors.New("stop")
	calls := 0
	err = p.ReadAll(func(row int, record []string) error {
		calls++
		if row == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Errorf("ReadAll() error = %v, want stop", err)
	}
	if calls != 2 {
		t.Errorf("callback called %d times, want 2", calls)
	}
}

func TestNewDelimitedReader_InvalidDelimiter(t *testing.T) {
	for _, d := range []rune{'\n', '\r', '"', 0} {
		if _, err := NewDelimitedReader(strings.NewReader("x"), d); err == nil {
			t.Errorf("NewDelimitedReader(%q) expected error", d)
		}
	}
}

func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		input  string
		want   rune
		wantOK bool
	}{
		{",", ',', true},
		{";", ';', true},
		{"tab", '\t', true},
		{`\t`, '\t', true},
		{"pipe", '|', true},
		{"§", '§', true},
		{"", 0, false},
		{",,", 0, false},
		{"\n", 0, false},
		{"\"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDelimiter(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseDelimiter(%q) = %q, %v, want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
