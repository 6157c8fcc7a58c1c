package sniff

import (
	"strings"
	"sync"
	"testing"
	"unicode/utf8"
)

func TestInferDelimiter(t *testing.T) {
	tests := []struct {
		name      string
		sample    string
		want      rune
		wantFound bool
	}{
		{"comma", "a,b,c\n1,2,3", ',', true},
		{"semicolon", "a;b;c\n1;2;3", ';', true},
		{"commas inside quotes", "\"a,b\",c\n\"1,2\",3", ',', true},
		{"only letters digits and spaces", "abc123 def456", 0, false},
		{"pipe beats tab", "a|b|c\td|e|f", '|', true},
		{"tab separated", "name\tage\nbob\t42\n", '\t', true},
		{"empty sample", "", 0, false},
		{"single line", "x;y;z", ';', true},
		{"quoted semicolons ignored", "\"x;y;z\",a", ',', true},
		{"everything quoted", "\"a,b;c|d\"", 0, false},
		{"unterminated quote swallows the rest", "a,b,\"c;d;e;f", ',', true},
		{"doubled quote toggles twice", "\"a\"\",b\"", 0, false},
		{"doubled quote reopens span", "\"a\"\"b\";c", ';', true},
		{"non ascii letters are candidates", "α§β§γ", '§', true},
		{"accented letter outnumbers the separator", "café;crème\nthé;brûlé\n", 'é', true},
		{"spaces never count", "a b c d e,f", ',', true},
		{"newline is a candidate", "name\nbob\n", '\n', true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := InferDelimiter(tt.sample)
			if found != tt.wantFound {
				t.Fatalf("InferDelimiter(%q) found = %v, want %v", tt.sample, found, tt.wantFound)
			}
			if got != tt.want {
				t.Errorf("InferDelimiter(%q) = %q, want %q", tt.sample, got, tt.want)
			}
		})
	}
}

func TestInferDelimiter_TieBreak(t *testing.T) {
	tests := []struct {
		sample string
		want   rune
	}{
		{"a|b\tc", '|'},
		{"a\tb|c", '\t'},
		{";a,b;c,d", ';'},
		{",a;b,c;d", ','},
	}

	for _, tt := range tests {
		t.Run(tt.sample, func(t *testing.T) {
			got, found := InferDelimiter(tt.sample)
			if !found {
				t.Fatalf("InferDelimiter(%q) found nothing", tt.sample)
			}
			if got != tt.want {
				t.Errorf("InferDelimiter(%q) = %q, want %q", tt.sample, got, tt.want)
			}
		})
	}
}

func TestInferDelimiter_InvalidUTF8(t *testing.T) {
	got, found := InferDelimiter("\xff,\xff")
	if !found {
		t.Fatal("expected a candidate for invalid UTF-8 input")
	}
	if got != utf8.RuneError {
		t.Errorf("InferDelimiter = %q, want RuneError", got)
	}
}

func TestInferDelimiter_ExcludedOnly(t *testing.T) {
	var b strings.Builder
	for r := '0'; r <= '9'; r++ {
		b.WriteRune(r)
	}
	for r := 'A'; r <= 'Z'; r++ {
		b.WriteRune(r)
	}
	for r := 'a'; r <= 'z'; r++ {
		b.WriteRune(r)
	}
	b.WriteString("     ")

	if got, found := InferDelimiter(b.String()); found {
		t.Errorf("InferDelimiter(alphanumerics) = %q, want not found", got)
	}
}

func TestInferDelimiter_SingleCandidate(t *testing.T) {
	for r := rune(0x21); r < 0x7f; r++ {
		if Excluded(r) || r == Quote {
			continue
		}
		sample := "abc" + string(r) + "123 xyz"
		got, found := InferDelimiter(sample)
		if !found || got != r {
			t.Errorf("InferDelimiter(%q) = %q, %v, want %q", sample, got, found, r)
		}
	}
}

func TestCandidates(t *testing.T) {
	got := Candidates("\"x,y\",a;b\n1;2")

	want := []Candidate{
		{Char: ',', Count: 1, First: 5},
		{Char: ';', Count: 2, First: 7},
		{Char: '\n', Count: 1, First: 9},
	}
	if len(got) != len(want) {
		t.Fatalf("Candidates() returned %d entries, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Candidates()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestCandidates_QuotedContentNeverCounted(t *testing.T) {
	samples := []string{
		"\",;|\t:\"",
		"a\"!!!\"b",
		"\"#\"\"#\"",
	}
	for _, s := range samples {
		for _, c := range Candidates(s) {
			t.Errorf("Candidates(%q) counted quoted rune %q", s, c.Char)
		}
	}
}

func TestBest(t *testing.T) {
	if _, ok := Best(nil); ok {
		t.Error("Best(nil) should report not found")
	}

	got, ok := Best([]Candidate{
		{Char: ';', Count: 3, First: 0},
		{Char: ',', Count: 3, First: 4},
		{Char: '|', Count: 1, First: 9},
	})
	if !ok || got.Char != ';' {
		t.Errorf("Best() = %+v, %v, want ';'", got, ok)
	}
}

func TestSniff(t *testing.T) {
	res := Sniff("id|name\n1|bob")
	if !res.Found || res.Delimiter != '|' {
		t.Errorf("Sniff() = %q, %v, want '|'", res.Delimiter, res.Found)
	}
	if len(res.Candidates) != 2 {
		t.Errorf("Sniff() candidates = %+v, want 2 entries", res.Candidates)
	}

	empty := Sniff("plain words only")
	if empty.Found {
		t.Errorf("Sniff() on plain text found %q", empty.Delimiter)
	}
}

func TestInferDelimiter_Idempotent(t *testing.T) {
	sample := "a;b,c|d\n\"e;f\",g;h"
	first, ok1 := InferDelimiter(sample)
	second, ok2 := InferDelimiter(sample)
	if first != second || ok1 != ok2 {
		t.Errorf("InferDelimiter not idempotent: %q/%v then %q/%v", first, ok1, second, ok2)
	}
}

func TestInferDelimiter_Concurrent(t *testing.T) {
	samples := map[string]rune{
		"a,b,c\n1,2,3": ',',
		"a;b;c\n1;2;3": ';',
		"a|b|c\n1|2|3": '|',
		"a\tb\tc":      '\t',
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		for sample, want := range samples {
			wg.Add(1)
			go func(sample string, want rune) {
				defer wg.Done()
				if got, _ := InferDelimiter(sample); got != want {
					t.Errorf("InferDelimiter(%q) = %q, want %q", sample, got, want)
				}
			}(sample, want)
		}
	}
	wg.Wait()
}

func TestExcluded(t *testing.T) {
	tests := []struct {
		r    rune
		want bool
	}{
		{'a', true},
		{'Z', true},
		{'5', true},
		{' ', true},
		{',', false},
		{'\t', false},
		{'\n', false},
		{'é', false},
		{'_', false},
	}
	for _, tt := range tests {
		if got := Excluded(tt.r); got != tt.want {
			t.Errorf("Excluded(%q) = %v, want %v", tt.r, got, tt.want)
		}
	}
}

func TestName(t *testing.T) {
	tests := []struct {
		r    rune
		want string
	}{
		{',', "comma"},
		{';', "semicolon"},
		{'\t', "tab"},
		{'|', "pipe"},
		{'#', "#"},
	}
	for _, tt := range tests {
		if got := Name(tt.r); got != tt.want {
			t.Errorf("Name(%q) = %q, want %q", tt.r, got, tt.want)
		}
	}
}
