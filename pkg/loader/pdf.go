package loader

import (
	"strings"

	"github.com/aretw0/eora/pkg/domain"
	"github.com/ledongthuc/pdf"
)

// readPDF returns one document per page that has text. Pages are numbered from 1.
func readPDF(path string) ([]domain.Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var docs []domain.Document
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, domain.NewDocument(text, domain.Metadata{domain.MetaPage: i}))
	}
	return docs, nil
}
