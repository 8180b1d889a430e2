// Package loam reads the markdown knowledge base through a Loam repository.
//
// Each note is a markdown file whose frontmatter may carry a title, the page
// URL it was written from and tags:
//
//	---
//	title: HR-бот для Магнита
//	url: https://eora.ru/cases/magnit
//	tags: [hr, retail]
//	---
//	Текст заметки...
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/eora/pkg/domain"
	"github.com/aretw0/eora/pkg/ports"
	"github.com/aretw0/loam"
)

// Frontmatter is the metadata header of a knowledge note.
type Frontmatter struct {
	Title string   `json:"title" mapstructure:"title"`
	URL   string   `json:"url" mapstructure:"url"`
	Tags  []string `json:"tags" mapstructure:"tags"`
}

// KnowledgeBase is a document source backed by a Loam repository.
type KnowledgeBase struct {
	Repo *loam.TypedRepository[Frontmatter]
}

var (
	_ ports.DocumentSource = (*KnowledgeBase)(nil)
	_ ports.Watchable      = (*KnowledgeBase)(nil)
)

// New wraps an existing typed repository.
func New(repo *loam.TypedRepository[Frontmatter]) *KnowledgeBase {
	return &KnowledgeBase{Repo: repo}
}

// Open initializes a read-only repository rooted at dir.
func Open(dir string) (*KnowledgeBase, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid knowledge path: %w", err)
	}
	repo, err := loam.Init(abs,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[Frontmatter](repo)), nil
}

// Name implements ports.DocumentSource.
func (k *KnowledgeBase) Name() string { return "knowledge" }

// Documents returns every non-empty note. Notes are cited by file name.
func (k *KnowledgeBase) Documents(ctx context.Context) ([]domain.Document, error) {
	notes, err := k.Repo.List(ctx)
	if err != nil {
		return nil, domain.Wrap(domain.ErrDocumentLoad, "knowledge_list", err)
	}

	// List only carries frontmatter; bodies come from Get.
	docs := make([]domain.Document, 0, len(notes))
	for _, listed := range notes {
		n, err := k.Repo.Get(ctx, listed.ID)
		if err != nil {
			return nil, domain.Wrap(domain.ErrDocumentLoad, "knowledge_get", fmt.Errorf("note %s: %w", listed.ID, err))
		}
		content := strings.TrimSpace(n.Content)
		if content == "" {
			continue
		}
		id := filepath.ToSlash(listed.ID)
		name := filepath.Base(id)
		if filepath.Ext(name) == "" {
			name += ".md"
		}
		meta := domain.Metadata{
			domain.MetaSourceFile: name,
			domain.MetaFilePath:   id,
			domain.MetaSource:     k.Name(),
		}
		if n.Data.Title != "" {
			meta[domain.MetaTitle] = n.Data.Title
		}
		if n.Data.URL != "" {
			meta[domain.MetaURL] = n.Data.URL
		}
		if len(n.Data.Tags) > 0 {
			meta["tags"] = strings.Join(n.Data.Tags, ", ")
		}
		docs = append(docs, domain.NewDocument(content, meta))
	}
	return docs, nil
}

// Watch implements ports.Watchable. It emits the ID of every changed note.
func (k *KnowledgeBase) Watch(ctx context.Context) (<-chan string, error) {
	events, err := k.Repo.Watch(ctx, "**/*.md")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- evt.ID:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}
