// Package loader reads local files into chunked documents.
package loader

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/eora/internal/logging"
	"github.com/aretw0/eora/pkg/domain"
	"github.com/aretw0/eora/pkg/htmltext"
	"github.com/aretw0/eora/pkg/splitter"
)

// SupportedExtensions are picked up by LoadDirectory. Legacy .doc files are
// listed so they are reported, but LoadFile rejects them.
var SupportedExtensions = []string{".pdf", ".docx", ".doc", ".html", ".htm", ".txt"}

// Loader converts files into chunks.
type Loader struct {
	splitter *splitter.Splitter
	logger   *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger used to report skipped files.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// New creates a loader that splits with sp.
func New(sp *splitter.Splitter, opts ...Option) *Loader {
	l := &Loader{
		splitter: sp,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFile reads a single file and returns its chunks. Every chunk carries the
// base name as source_file and the path as file_path.
func (l *Loader) LoadFile(ctx context.Context, path string) ([]domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		docs []domain.Document
		err  error
	)
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		docs, err = readPDF(path)
	case ".docx":
		docs, err = readDOCX(path)
	case ".html", ".htm":
		docs, err = readHTML(path)
	case ".txt":
		docs, err = readText(path)
	default:
		return nil, &domain.Error{Kind: domain.ErrUnsupportedFormat, Op: "load_file", Err: fmt.Errorf("%q", ext)}
	}
	if err != nil {
		return nil, domain.Wrap(domain.ErrDocumentLoad, "load_file", fmt.Errorf("%s: %w", path, err))
	}

	base := filepath.Base(path)
	for i := range docs {
		docs[i].Metadata[domain.MetaSourceFile] = base
		docs[i].Metadata[domain.MetaFilePath] = path
	}
	return l.splitter.SplitDocuments(docs), nil
}

// LoadDirectory walks dir recursively and loads every supported file.
// Files that fail to load and subdirectories that cannot be read are logged
// and skipped.
func (l *Loader) LoadDirectory(ctx context.Context, dir string) ([]domain.Document, error) {
	var all []domain.Document
	if err := filepath.WalkDir(dir, l.visit(ctx, dir, &all)); err != nil {
		return nil, domain.Wrap(domain.ErrDocumentLoad, "load_directory", err)
	}
	return all, nil
}

func (l *Loader) visit(ctx context.Context, root string, all *[]domain.Document) fs.WalkDirFunc {
	return func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			l.logger.Warn("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !Supported(path) {
			return nil
		}
		chunks, err := l.LoadFile(ctx, path)
		if err != nil {
			l.logger.Warn("skipping file", "path", path, "error", err)
			return nil
		}
		l.logger.Debug("file loaded", "path", path, "chunks", len(chunks))
		*all = append(*all, chunks...)
		return nil
	}
}

// Supported reports whether path has one of SupportedExtensions.
func Supported(path string) bool {
	return slices.Contains(SupportedExtensions, strings.ToLower(filepath.Ext(path)))
}

func readText(path string) ([]domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("file is not valid UTF-8")
	}
	return []domain.Document{domain.NewDocument(string(data), nil)}, nil
}

func readHTML(path string) ([]domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	page, err := htmltext.Parse(f)
	if err != nil {
		return nil, err
	}
	meta := domain.Metadata{}
	if title := page.Title(); title != "" {
		meta[domain.MetaTitle] = title
	}
	return []domain.Document{domain.NewDocument(page.Text(), meta)}, nil
}
