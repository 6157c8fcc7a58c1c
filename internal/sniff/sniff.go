// Package sniff infers the field separator of delimited text from a short
// sample of its content.
//
// Every rune outside a quoted span that is not an ASCII letter, an ASCII
// digit or a space is a candidate. The candidate seen most often wins; ties
// go to the candidate that appeared first in the sample.
//
// Quoting is deliberately simple: every '"' toggles the quoted state. There
// is no escape mechanism, so a doubled quote ("") inside a quoted field
// closes and reopens the span rather than producing a literal quote.
package sniff

// Quote is the only rune that changes the quoting state.
const Quote = '"'

type quoteState int

const (
	unquoted quoteState = iota
	quoted
)

// Candidate is a rune observed outside quoted spans along with how often it
// occurred and the rune offset of its first occurrence in the sample.
type Candidate struct {
	Char  rune
	Count int
	First int
}

// Result bundles the outcome of a single pass over a sample.
type Result struct {
	Delimiter  rune
	Found      bool
	Candidates []Candidate
}

// Excluded reports whether r can never be a delimiter.
func Excluded(r rune) bool {
	switch {
	case r == ' ':
		return true
	case r >= '0' && r <= '9':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= 'a' && r <= 'z':
		return true
	}
	return false
}

// Candidates counts the candidate runes of sample in first-occurrence order.
func Candidates(sample string) []Candidate {
	var (
		state  = unquoted
		counts []Candidate
		index  = make(map[rune]int)
		pos    int
	)

	for _, r := range sample {
		offset := pos
		pos++

		if r == Quote {
			if state == unquoted {
				state = quoted
			} else {
				state = unquoted
			}
			continue
		}
		if state == quoted || Excluded(r) {
			continue
		}

		if i, ok := index[r]; ok {
			counts[i].Count++
			continue
		}
		index[r] = len(counts)
		counts = append(counts, Candidate{Char: r, Count: 1, First: offset})
	}

	return counts
}

// Best picks the candidate with the highest count. Candidates must be in
// first-occurrence order, as returned by Candidates; the earliest of several
// equally frequent candidates wins.
func Best(candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Count > best.Count {
			best = c
		}
	}
	return best, true
}

// InferDelimiter returns the most likely field separator of sample. The
// second return value is false when no candidate rune occurs outside quoted
// spans.
func InferDelimiter(sample string) (rune, bool) {
	best, ok := Best(Candidates(sample))
	if !ok {
		return 0, false
	}
	return best.Char, true
}

// Sniff runs a single pass over sample and reports both the chosen
// delimiter and the full candidate table.
func Sniff(sample string) Result {
	candidates := Candidates(sample)
	best, ok := Best(candidates)
	return Result{
		Delimiter:  best.Char,
		Found:      ok,
		Candidates: candidates,
	}
}

// Name returns a human readable label for common delimiters, falling back to
// the rune itself.
func Name(r rune) string {
	switch r {
	case ',':
		return "comma"
	case ';':
		return "semicolon"
	case '\t':
		return "tab"
	case '|':
		return "pipe"
	case ':':
		return "colon"
	case '\n':
		return "newline"
	case '\r':
		return "carriage-return"
	}
	return string(r)
}
