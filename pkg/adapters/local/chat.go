package local

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/aretw0/eora/pkg/ports"
)

const (
	contextMarker  = "Контекст:\n"
	questionMarker = "\n\nВопрос:"
)

var sentenceEnd = regexp.MustCompile(`[.!?]\s+|\n+`)

// ExtractiveModel answers by quoting the context sentences that share the most
// words with the question. It needs no network and is used for offline runs.
type ExtractiveModel struct {
	sentences int
}

// NewExtractiveModel creates a model that quotes up to n sentences (2 if n <= 0).
func NewExtractiveModel(n int) *ExtractiveModel {
	if n <= 0 {
		n = 2
	}
	return &ExtractiveModel{sentences: n}
}

// Complete implements ports.ChatModel. The last user message is expected to
// carry the rendered prompt.
func (m *ExtractiveModel) Complete(ctx context.Context, messages []ports.ChatMessage) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var prompt string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == ports.RoleUser {
			prompt = messages[i].Content
			break
		}
	}
	contextText, question := splitPrompt(prompt)
	if strings.TrimSpace(contextText) == "" {
		return "", nil
	}

	want := map[string]bool{}
	for _, t := range Tokens(question) {
		want[t] = true
	}

	type scored struct {
		pos   int
		score int
		text  string
	}
	var candidates []scored
	for i, s := range sentenceEnd.Split(contextText, -1) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		score := 0
		for _, t := range Tokens(s) {
			if want[t] {
				score++
			}
		}
		candidates = append(candidates, scored{pos: i, score: score, text: s})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > m.sentences {
		candidates = candidates[:m.sentences]
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].pos < candidates[j].pos
	})

	parts := make([]string, len(candidates))
	for i, c := range candidates {
		parts[i] = strings.TrimRight(c.text, ".!?") + "."
	}
	return strings.Join(parts, " "), nil
}

func splitPrompt(prompt string) (contextText, question string) {
	start := strings.Index(prompt, contextMarker)
	if start < 0 {
		return prompt, prompt
	}
	rest := prompt[start+len(contextMarker):]
	end := strings.Index(rest, questionMarker)
	if end < 0 {
		return rest, rest
	}
	question = rest[end+len(questionMarker):]
	if i := strings.Index(question, "\n"); i >= 0 {
		question = question[:i]
	}
	return rest[:end], question
}
