package parsers

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultSampleLines is how many leading lines are used to sniff a delimiter
const DefaultSampleLines = 2

// ErrEmptySample is returned when there is nothing to sniff
var ErrEmptySample = errors.New("sample is empty")

// ReadSample reads up to n lines from br, keeping line terminators, and
// returns them concatenated. The lines are consumed from br; use
// io.MultiReader(strings.NewReader(sample), br) to replay the whole input.
func ReadSample(br *bufio.Reader, n int) (string, error) {
	if n < 1 {
		n = DefaultSampleLines
	}

	var sb strings.Builder
	for i := 0; i < n; i++ {
		line, err := br.ReadString('\n')
		sb.WriteString(line)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read sample: %w", err)
		}
	}

	if sb.Len() == 0 {
		return "", ErrEmptySample
	}
	return sb.String(), nil
}
