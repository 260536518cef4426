// Package chunking splits extracted document text into overlapping windows
// for embedding and retrieval.
package chunking

import (
	"errors"
	"fmt"
	"log/slog"
)

const (
	DefaultChunkSize    = 10000
	DefaultChunkOverlap = 1000
)

// ErrInvalidParams is returned when size and overlap cannot produce progress.
var ErrInvalidParams = errors.New("invalid chunk parameters")

// separators are tried in order when looking for a natural cut point.
var separators = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(" "),
}

// Splitter cuts text into windows of at most Size runes where each window
// shares exactly Overlap runes with the next one.
type Splitter struct {
	Size    int
	Overlap int
	logger  *slog.Logger
}

// NewSplitter creates a Splitter. A nil logger uses slog.Default().
func NewSplitter(size, overlap int, logger *slog.Logger) *Splitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Splitter{Size: size, Overlap: overlap, logger: logger}
}

// SplitText never fails: when the parameters are unusable it logs and falls
// back to fixed-width slicing without overlap.
func (s *Splitter) SplitText(text string) []string {
	chunks, err := Split(text, s.Size, s.Overlap)
	if err == nil {
		return chunks
	}

	s.logger.Warn("splitter failed, using fixed-width fallback",
		"size", s.Size,
		"overlap", s.Overlap,
		"error", err)

	width := s.Size
	if width <= 0 {
		width = DefaultChunkSize
	}
	return FixedWidth(text, width)
}

// Split returns ordered windows covering every rune of text. When text is
// longer than size, the last overlap runes of chunk i equal the first
// overlap runes of chunk i+1. Cuts prefer paragraph, line and word
// boundaries in the second half of a window.
func Split(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size %d must be positive", ErrInvalidParams, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidParams, overlap, size)
	}

	r := []rune(text)
	n := len(r)
	if n == 0 {
		return nil, nil
	}
	if n <= size {
		return []string{text}, nil
	}

	var chunks []string
	start := 0
	for {
		end := start + size
		if end >= n {
			chunks = append(chunks, string(r[start:n]))
			break
		}

		// cut must stay above start+overlap so the next window advances
		lo := max(start+overlap+1, start+size/2)
		cut := lastBoundary(r, lo, end)
		if cut < 0 {
			cut = end
		}

		chunks = append(chunks, string(r[start:cut]))
		start = cut - overlap
	}

	return chunks, nil
}

// lastBoundary returns the largest p in [lo, hi] such that r[:p] ends with a
// separator, trying separators in priority order, or -1.
func lastBoundary(r []rune, lo, hi int) int {
	for _, sep := range separators {
		for p := hi; p >= lo && p >= len(sep); p-- {
			if hasSuffixAt(r, p, sep) {
				return p
			}
		}
	}
	return -1
}

func hasSuffixAt(r []rune, p int, sep []rune) bool {
	for i := range sep {
		if r[p-len(sep)+i] != sep[i] {
			return false
		}
	}
	return true
}

// FixedWidth slices text into consecutive width-rune pieces with no overlap.
func FixedWidth(text string, width int) []string {
	r := []rune(text)
	if len(r) == 0 {
		return nil
	}
	if width <= 0 {
		return []string{text}
	}

	chunks := make([]string, 0, len(r)/width+1)
	for i := 0; i < len(r); i += width {
		chunks = append(chunks, string(r[i:min(i+width, len(r))]))
	}
	return chunks
}
