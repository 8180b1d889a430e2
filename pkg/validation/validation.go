// Package validation checks user queries, generated answers and indexed documents.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/eora/pkg/domain"
)

// Query length bounds, in characters.
const (
	MinQueryLength = 3
	MaxQueryLength = 1000
)

// Document content bounds, in characters.
const (
	MinDocumentLength = 10
	MaxDocumentLength = 100000
)

var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<script.*?>.*?</script>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`(?i)eval\s*\(`),
	regexp.MustCompile(`(?i)exec\s*\(`),
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	markupChars   = strings.NewReplacer("<", "", ">", "", `"`, "", "'", "")
)

// ValidateQuery rejects empty, too short, too long and script-like queries.
func ValidateQuery(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return domain.Invalid("query must not be empty")
	}
	if utf8.RuneCountInString(trimmed) < MinQueryLength {
		return domain.Invalid(fmt.Sprintf("query is too short (minimum %d characters)", MinQueryLength))
	}
	if utf8.RuneCountInString(query) > MaxQueryLength {
		return domain.Invalid(fmt.Sprintf("query is too long (maximum %d characters)", MaxQueryLength))
	}
	for _, p := range dangerousPatterns {
		if p.MatchString(query) {
			return domain.Invalid("query contains forbidden content")
		}
	}
	return nil
}

// ValidateComplexity rejects unknown complexity levels.
func ValidateComplexity(level domain.ComplexityLevel) error {
	if !level.Valid() {
		return domain.Invalid(fmt.Sprintf("invalid complexity level %q, allowed: %v", level, domain.Levels()))
	}
	return nil
}

// SanitizeQuery trims the query, collapses whitespace runs and drops markup characters.
func SanitizeQuery(query string) string {
	q := whitespaceRun.ReplaceAllString(strings.TrimSpace(query), " ")
	return markupChars.Replace(q)
}

// ValidateAnswer checks the structure of a generated answer.
func ValidateAnswer(a *domain.Answer) error {
	if a == nil {
		return domain.Invalid("answer is missing")
	}
	if a.Sources == nil {
		return domain.Invalid("answer sources must be a list")
	}
	if a.ComplexityLevel == "" {
		return domain.Invalid("answer complexity level is missing")
	}
	return nil
}

// ValidateSources requires every source to carry an identifier.
func ValidateSources(sources []domain.Metadata) error {
	for i, s := range sources {
		if s == nil {
			return domain.Invalid(fmt.Sprintf("source %d is empty", i))
		}
		if s.String(domain.MetaSourceFile) == "" && s.String(domain.MetaURL) == "" && s.String(domain.MetaTitle) == "" {
			return domain.Invalid(fmt.Sprintf("source %d has no identifier", i))
		}
	}
	return nil
}

// ValidDocumentContent reports whether content is worth indexing.
func ValidDocumentContent(content string) bool {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return false
	}
	if utf8.RuneCountInString(trimmed) < MinDocumentLength {
		return false
	}
	return utf8.RuneCountInString(content) <= MaxDocumentLength
}

// ValidateMetadata requires a file name or URL.
func ValidateMetadata(meta domain.Metadata) error {
	if meta == nil {
		return domain.Invalid("metadata must be a map")
	}
	if meta.String(domain.MetaSourceFile) == "" && meta.String(domain.MetaURL) == "" {
		return domain.Invalid("metadata must contain source_file or url")
	}
	return nil
}
