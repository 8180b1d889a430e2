package tui

import (
	"bytes"
	"testing"

	"github.com/aretw0/eora/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "0.1.0\n")
	assert.Contains(t, buf.String(), "v0.1.0")
	assert.Contains(t, buf.String(), "|_____")
}

func TestFormatReply(t *testing.T) {
	reply := &domain.Reply{
		Formatted: "Бот для Магнита\n\nИсточники: [1], [2]",
		Answer: domain.Answer{
			ComplexityLevel: domain.LevelMedium,
			Sources: []domain.Metadata{
				{domain.MetaSourceFile: "magnit.pdf"},
				{domain.MetaURL: "https://eora.ru/cases/dodo"},
			},
		},
	}
	out := FormatReply(reply)
	assert.Contains(t, out, "1. magnit.pdf")
	assert.Contains(t, out, "2. https://eora.ru/cases/dodo")

	reply.Answer.ComplexityLevel = domain.LevelEasy
	assert.Equal(t, reply.Formatted, FormatReply(reply))

	failed := &domain.Reply{Formatted: "Ошибка LLM: quota", Message: domain.Message{IsError: true}}
	assert.Equal(t, "> **Ошибка LLM: quota**", FormatReply(failed))
}

func TestRenderers(t *testing.T) {
	out, err := PlainRenderer("**EORA**")
	require.NoError(t, err)
	assert.Equal(t, "**EORA**\n", out)

	out, err = NewRenderer(60)("# EORA")
	require.NoError(t, err)
	assert.Contains(t, out, "EORA")
}
