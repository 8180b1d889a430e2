package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeInput_ByteLimit(t *testing.T) {
	// A question of MaxQueryLength Cyrillic letters fits; the limit is on bytes.
	longest := strings.Repeat("ж", MaxQueryLength)
	got, err := SanitizeInput(longest)
	require.NoError(t, err)
	assert.Equal(t, longest, got)

	_, err = SanitizeInput(strings.Repeat("a", QuestionByteLimit))
	assert.NoError(t, err)

	_, err = SanitizeInput(strings.Repeat("a", QuestionByteLimit+1))
	assert.ErrorIs(t, err, ErrInputTooLarge)
}

func TestSanitizeInput_Controls(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Расскажите про HR-бота", "Расскажите про HR-бота"},
		{"line breaks and tabs", "Строка 1\r\nСтрока 2\tс табом", "Строка 1\r\nСтрока 2\tс табом"},
		{"color codes", "\x1b[31mКрасный\x1b[0m текст", "Красный текст"},
		{"terminal title", "\x1b]0;pwned\x07Что такое EORA?", "Что такое EORA?"},
		{"null byte", "Null\x00Byte", "NullByte"},
		{"bell", "Ding\x07", "Ding"},
		{"lone escape", "a\x1bb", "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeInput(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeInput_InvalidUTF8(t *testing.T) {
	_, err := SanitizeInput("\xbd\xb2\x3d\xbc\x20\xe2\x8c\x98")
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestStripControls_Answer(t *testing.T) {
	answer := "EORA сделала бота для Магнита [1].\x1b[2J\n\nИсточники: [1]"
	assert.Equal(t, "EORA сделала бота для Магнита [1].\n\nИсточники: [1]", StripControls(answer))
}
