package domain

import (
	"fmt"
	"strings"
)

// ComplexityLevel selects how an answer cites its sources.
type ComplexityLevel string

const (
	LevelEasy   ComplexityLevel = "easy"   // Plain answer, no citations
	LevelMedium ComplexityLevel = "medium" // Answer followed by a list of sources
	LevelHard   ComplexityLevel = "hard"   // Inline [n] references
)

// Levels lists the valid complexity levels in display order.
func Levels() []ComplexityLevel {
	return []ComplexityLevel{LevelEasy, LevelMedium, LevelHard}
}

// Label returns the human readable name of the level.
func (l ComplexityLevel) Label() string {
	switch l {
	case LevelEasy:
		return "Простой"
	case LevelMedium:
		return "Со списком источников"
	case LevelHard:
		return "С inline ссылками"
	}
	return string(l)
}

// Valid reports whether l is one of the known levels.
func (l ComplexityLevel) Valid() bool {
	switch l {
	case LevelEasy, LevelMedium, LevelHard:
		return true
	}
	return false
}

// ParseComplexity converts a string into a level. The empty string means easy.
func ParseComplexity(s string) (ComplexityLevel, error) {
	if s == "" {
		return LevelEasy, nil
	}
	l := ComplexityLevel(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", Invalid(fmt.Sprintf("invalid complexity level %q, allowed: %v", s, Levels()))
	}
	return l, nil
}

// Answer is the result of a retrieval-augmented generation.
type Answer struct {
	Answer          string          `json:"answer"`
	Sources         []Metadata      `json:"sources"`
	ComplexityLevel ComplexityLevel `json:"complexity_level"`
}

// NoInformationAnswer is returned when retrieval finds nothing relevant.
const NoInformationAnswer = "Извините, я не нашел релевантной информации для ответа на ваш вопрос."

// Reply is what a chat turn produces for the caller.
type Reply struct {
	SessionID string  `json:"session_id"`
	Answer    Answer  `json:"answer"`
	Formatted string  `json:"formatted"`
	Message   Message `json:"message"`
}

// Stats summarizes a session and the process for display.
type Stats struct {
	Messages  int     `json:"messages"`
	Documents int     `json:"documents"`
	MemoryMB  float64 `json:"memory_mb"`
}
