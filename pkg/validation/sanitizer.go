package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// QuestionByteLimit bounds a raw question before it is decoded: MaxQueryLength
// characters of at most utf8.UTFMax bytes each. The character limit itself is
// enforced by ValidateQuery.
const QuestionByteLimit = MaxQueryLength * utf8.UTFMax

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// ansiSequence matches CSI and OSC terminal escape sequences.
var ansiSequence = regexp.MustCompile(`\x1b(?:\[[0-9;?]*[ -/]*[@-~]|\][^\x07\x1b]*(?:\x07|\x1b\\))`)

// SanitizeInput prepares a question received from a transport. Oversized or
// non UTF-8 input is rejected, never truncated, so a question is not silently
// changed; terminal escape sequences and control characters other than line
// breaks and tabs are removed.
func SanitizeInput(input string) (string, error) {
	if len(input) > QuestionByteLimit {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrInputTooLarge, len(input), QuestionByteLimit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}
	return StripControls(input), nil
}

// StripControls removes terminal escape sequences and control characters
// except newline, carriage return and tab. Model answers go through it before
// they reach a terminal or the history.
func StripControls(s string) string {
	if strings.IndexFunc(s, isUnsafeControl) < 0 {
		return s
	}
	s = ansiSequence.ReplaceAllString(s, "")
	return strings.Map(func(r rune) rune {
		if isUnsafeControl(r) {
			return -1
		}
		return r
	}, s)
}

func isUnsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}
