// Package splitter cuts documents into overlapping chunks sized for embedding.
package splitter

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/eora/pkg/domain"
	"github.com/google/uuid"
)

// DefaultSeparators are tried in order: paragraphs, lines, words, characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter is a recursive character text splitter. Sizes are measured in runes.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithSeparators overrides DefaultSeparators.
func WithSeparators(seps ...string) Option {
	return func(s *Splitter) {
		s.separators = seps
	}
}

// New creates a splitter. The overlap must be smaller than the chunk size.
func New(chunkSize, chunkOverlap int, opts ...Option) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrConfiguration, chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: chunk overlap %d must be in [0, %d)", domain.ErrConfiguration, chunkOverlap, chunkSize)
	}
	s := &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   DefaultSeparators,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SplitText returns the chunks of text in order.
func (s *Splitter) SplitText(text string) []string {
	return s.split(text, s.separators)
}

// SplitDocuments splits every document. Each chunk gets a copy of the source
// metadata plus a fresh chunk id.
func (s *Splitter) SplitDocuments(docs []domain.Document) []domain.Document {
	var out []domain.Document
	for _, d := range docs {
		for _, chunk := range s.SplitText(d.Content) {
			c := domain.NewDocument(chunk, d.Metadata)
			c.ID = uuid.NewString()
			c.Metadata[domain.MetaChunk] = c.ID
			out = append(out, c)
		}
	}
	return out
}

func (s *Splitter) split(text string, separators []string) []string {
	separator := ""
	var rest []string
	if len(separators) > 0 {
		separator = separators[len(separators)-1]
	}
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var chunks, good []string
	for _, piece := range splitOn(text, separator) {
		if length(piece) < s.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			chunks = append(chunks, s.merge(good, separator)...)
			good = nil
		}
		if len(rest) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		chunks = append(chunks, s.merge(good, separator)...)
	}
	return chunks
}

// merge packs pieces into chunks no longer than chunkSize, carrying up to
// chunkOverlap runes from the end of one chunk into the next.
func (s *Splitter) merge(pieces []string, separator string) []string {
	sepLen := length(separator)
	var (
		chunks  []string
		current []string
		total   int
	)
	joinLen := func() int {
		if len(current) > 0 {
			return sepLen
		}
		return 0
	}
	for _, p := range pieces {
		n := length(p)
		if total+n+joinLen() > s.chunkSize && len(current) > 0 {
			if chunk := strings.TrimSpace(strings.Join(current, separator)); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > s.chunkOverlap || (total > 0 && total+n+joinLen() > s.chunkSize) {
				drop := length(current[0])
				if len(current) > 1 {
					drop += sepLen
				}
				total -= drop
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
		if len(current) > 1 {
			total += sepLen
		}
	}
	if chunk := strings.TrimSpace(strings.Join(current, separator)); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func splitOn(text, separator string) []string {
	var parts []string
	if separator == "" {
		parts = make([]string, 0, len(text))
		for _, r := range text {
			parts = append(parts, string(r))
		}
		return parts
	}
	for _, p := range strings.Split(text, separator) {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}
