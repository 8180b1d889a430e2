package validation

import (
	"strings"
	"testing"

	"github.com/aretw0/eora/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr string
	}{
		{"Valid", "Что вы можете сделать для ритейлеров?", ""},
		{"Empty", "", "must not be empty"},
		{"Blank", "   ", "must not be empty"},
		{"Too short", "Hi", "too short"},
		{"Short cyrillic counts runes", "Да!", ""},
		{"Too long", strings.Repeat("a", 1001), "too long"},
		{"Script tag", "<script>alert('xss')</script>", "forbidden"},
		{"Javascript URL", "javascript:alert('xss')", "forbidden"},
		{"Event handler", "onclick=alert('xss')", "forbidden"},
		{"Eval", "eval(malicious_code)", "forbidden"},
		{"Exec", "EXEC (dangerous_code)", "forbidden"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuery(tt.query)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateComplexity(t *testing.T) {
	for _, l := range domain.Levels() {
		assert.NoError(t, ValidateComplexity(l))
	}
	assert.ErrorIs(t, ValidateComplexity("invalid"), domain.ErrInvalidInput)
}

func TestSanitizeQuery(t *testing.T) {
	got := SanitizeQuery("  Что   вы   можете<script>   сделать?  ")
	assert.Equal(t, "Что вы можетеscript сделать?", got)
	assert.NotContains(t, SanitizeQuery(`say "hi" it's <b>`), `"`)
	assert.NotContains(t, SanitizeQuery(`say "hi" it's <b>`), "'")
}

func TestValidateAnswer(t *testing.T) {
	ok := &domain.Answer{
		Answer:          "Тестовый ответ",
		Sources:         []domain.Metadata{{domain.MetaSourceFile: "test.txt"}},
		ComplexityLevel: domain.LevelEasy,
	}
	assert.NoError(t, ValidateAnswer(ok))
	assert.Error(t, ValidateAnswer(nil))
	assert.Error(t, ValidateAnswer(&domain.Answer{Answer: "x", ComplexityLevel: domain.LevelEasy}))
	assert.Error(t, ValidateAnswer(&domain.Answer{Answer: "x", Sources: []domain.Metadata{}}))
}

func TestValidateSources(t *testing.T) {
	assert.NoError(t, ValidateSources([]domain.Metadata{
		{domain.MetaSourceFile: "test.txt"},
		{domain.MetaURL: "https://eora.ru"},
		{domain.MetaTitle: "EORA"},
	}))
	assert.Error(t, ValidateSources([]domain.Metadata{{"invalid": "x"}}))
	assert.Error(t, ValidateSources([]domain.Metadata{nil}))
}

func TestValidDocumentContent(t *testing.T) {
	assert.True(t, ValidDocumentContent("Это достаточно длинный текст"))
	assert.False(t, ValidDocumentContent(""))
	assert.False(t, ValidDocumentContent("   "))
	assert.False(t, ValidDocumentContent("short"))
	assert.False(t, ValidDocumentContent(strings.Repeat("a", 100001)))
}

func TestValidateMetadata(t *testing.T) {
	assert.NoError(t, ValidateMetadata(domain.Metadata{domain.MetaSourceFile: "a.txt"}))
	assert.NoError(t, ValidateMetadata(domain.Metadata{domain.MetaURL: "https://eora.ru"}))
	assert.Error(t, ValidateMetadata(domain.Metadata{domain.MetaTitle: "x"}))
	assert.Error(t, ValidateMetadata(nil))
}
