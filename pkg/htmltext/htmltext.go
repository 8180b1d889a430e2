// Package htmltext extracts readable text, titles and links from HTML.
package htmltext

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Page is a parsed HTML document.
type Page struct {
	root *html.Node
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Page, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return &Page{root: root}, nil
}

// Title returns the trimmed contents of the first <title> element.
func (p *Page) Title() string {
	n := find(p.root, atom.Title)
	if n == nil {
		return ""
	}
	var b strings.Builder
	collect(n, &b)
	return strings.TrimSpace(b.String())
}

// RawText concatenates all text nodes outside <script> and <style>.
func (p *Page) RawText() string {
	var b strings.Builder
	collect(p.root, &b)
	return b.String()
}

// Text returns RawText normalized by Clean.
func (p *Page) Text() string {
	return Clean(p.RawText())
}

// Links returns the href targets of <a> elements resolved against base, in
// document order. Fragments are dropped and duplicates removed.
func (p *Page) Links(base *url.URL) []string {
	var (
		out  []string
		seen = map[string]bool{}
	)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			for _, a := range n.Attr {
				if a.Key != "href" {
					continue
				}
				href := strings.TrimSpace(a.Val)
				if href == "" {
					continue
				}
				ref, err := url.Parse(href)
				if err != nil {
					continue
				}
				abs := ref
				if base != nil {
					abs = base.ResolveReference(ref)
				}
				abs.Fragment = ""
				s := abs.String()
				if !seen[s] {
					seen[s] = true
					out = append(out, s)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(p.root)
	return out
}

// Clean trims every line, splits lines into phrases on double spaces and
// joins the non-empty phrases with single spaces.
func Clean(text string) string {
	var phrases []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		for _, phrase := range strings.Split(line, "  ") {
			if phrase = strings.TrimSpace(phrase); phrase != "" {
				phrases = append(phrases, phrase)
			}
		}
	}
	return strings.Join(phrases, " ")
}

func collect(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
		return
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collect(c, b)
	}
}

func find(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, a); found != nil {
			return found
		}
	}
	return nil
}
