package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Metadata keys shared by loaders, the crawler and the answer formatter.
const (
	MetaSourceFile = "source_file"
	MetaFilePath   = "file_path"
	MetaURL        = "url"
	MetaTitle      = "title"
	MetaSource     = "source"
	MetaPage       = "page"
	MetaChunk      = "chunk_id"
)

// Metadata is the free-form description attached to a document.
type Metadata map[string]any

// Clone returns a shallow copy of the metadata.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// String returns the value of key as a string, or "" if absent.
func (m Metadata) String(key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Source decodes the metadata into its typed form.
func (m Metadata) Source() (Source, error) {
	var src Source
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &src,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return src, err
	}
	if err := dec.Decode(map[string]any(m)); err != nil {
		return src, fmt.Errorf("failed to decode source metadata: %w", err)
	}
	return src, nil
}

// Source is the typed view of the metadata used to cite a document.
type Source struct {
	SourceFile string `json:"source_file,omitempty" mapstructure:"source_file"`
	FilePath   string `json:"file_path,omitempty" mapstructure:"file_path"`
	URL        string `json:"url,omitempty" mapstructure:"url"`
	Title      string `json:"title,omitempty" mapstructure:"title"`
	Kind       string `json:"source,omitempty" mapstructure:"source"`
	Page       int    `json:"page,omitempty" mapstructure:"page"`
}

// Name returns the display name of the i-th (1-based) source:
// the file name, then the URL, then a numbered placeholder.
func (s Source) Name(i int) string {
	if s.SourceFile != "" {
		return s.SourceFile
	}
	if s.URL != "" {
		return s.URL
	}
	return fmt.Sprintf("Источник %d", i)
}

// SourceName is a shorthand for decoding metadata and returning its display name.
// Undecodable metadata falls back to the raw keys.
func SourceName(m Metadata, i int) string {
	src, err := m.Source()
	if err != nil {
		src = Source{SourceFile: m.String(MetaSourceFile), URL: m.String(MetaURL)}
	}
	return src.Name(i)
}

// Document is a unit of retrievable text.
type Document struct {
	ID       string   `json:"id,omitempty"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// NewDocument creates a document with a copy of the given metadata.
func NewDocument(content string, meta Metadata) Document {
	if meta == nil {
		meta = Metadata{}
	}
	return Document{Content: content, Metadata: meta.Clone()}
}
