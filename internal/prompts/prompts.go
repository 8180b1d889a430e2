// Package prompts holds the answer templates and example questions.
package prompts

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/aretw0/eora/pkg/domain"
	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var defaultYAML []byte

// Set is a parsed prompt file.
type Set struct {
	Templates map[domain.ComplexityLevel]string `yaml:"templates"`
	Examples  []string                          `yaml:"examples"`
}

// Default returns the built-in prompt set.
func Default() *Set {
	s, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("prompts: embedded prompts.yaml is invalid: %v", err))
	}
	return s
}

// Parse decodes a prompt set. Every complexity level needs a template with
// {context} and {question} placeholders.
func Parse(data []byte) (*Set, error) {
	var s Set
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompts: %v", domain.ErrConfiguration, err)
	}
	for _, l := range domain.Levels() {
		tmpl, ok := s.Templates[l]
		if !ok {
			return nil, fmt.Errorf("%w: missing prompt template for level %q", domain.ErrConfiguration, l)
		}
		if !strings.Contains(tmpl, "{context}") || !strings.Contains(tmpl, "{question}") {
			return nil, fmt.Errorf("%w: prompt template %q needs {context} and {question}", domain.ErrConfiguration, l)
		}
	}
	return &s, nil
}

// Render fills the template of level.
func (s *Set) Render(level domain.ComplexityLevel, context, question string) (string, error) {
	tmpl, ok := s.Templates[level]
	if !ok {
		return "", domain.Invalid(fmt.Sprintf("no prompt for level %q", level))
	}
	return strings.NewReplacer("{context}", context, "{question}", question).Replace(tmpl), nil
}

// ExampleQuestions returns a copy of the example questions.
func (s *Set) ExampleQuestions() []string {
	return append([]string(nil), s.Examples...)
}
