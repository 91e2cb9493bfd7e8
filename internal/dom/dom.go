// Package dom wraps goquery so both extraction strategies query pages the same way.
package dom

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/Adda-Baaj/khobor-rss/pkg/urls"
	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// ParseError wraps a failure to build a document tree.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse html: %v", e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// Node is anything a selector can be evaluated against: a whole document or one element.
type Node interface {
	selection() *goquery.Selection
}

// Document is a parsed page plus the URL relative links resolve against.
type Document struct {
	doc     *goquery.Document
	baseURL string
}

// Parse builds a Document from raw markup. The HTML parser is lenient, so errors
// only surface for unreadable input.
func Parse(body []byte, baseURL string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	d := &Document{doc: doc, baseURL: strings.TrimSpace(baseURL)}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if resolved := urls.Resolve(d.baseURL, href); urls.IsValid(resolved) {
			d.baseURL = resolved
		}
	}
	return d, nil
}

func (d *Document) selection() *goquery.Selection { return d.doc.Selection }

// Title returns the trimmed text of the first <title> element.
func (d *Document) Title() string {
	return normalizeSpace(d.doc.Find("title").First().Text())
}

// ResolveURL joins ref against the page base URL; magnet URIs pass through unchanged.
func (d *Document) ResolveURL(ref string) string {
	return urls.Resolve(d.baseURL, ref)
}

// Element is a single DOM element.
type Element struct {
	sel *goquery.Selection
}

func (e Element) selection() *goquery.Selection { return e.sel }

// IsZero reports whether e refers to no element.
func (e Element) IsZero() bool { return e.sel == nil || e.sel.Length() == 0 }

// Same reports whether e and other refer to the same underlying node.
func (e Element) Same(other Element) bool {
	if e.IsZero() || other.IsZero() {
		return false
	}
	return e.sel.Get(0) == other.sel.Get(0)
}

// Parent returns the immediate parent element, if any.
func (e Element) Parent() (Element, bool) {
	if e.IsZero() {
		return Element{}, false
	}
	p := e.sel.Parent()
	if p.Length() == 0 {
		return Element{}, false
	}
	return Element{sel: p}, true
}

// SelectAll returns every descendant of root matching selector, in document order.
// An invalid selector matches nothing.
func SelectAll(root Node, selector string) []Element {
	if root == nil || strings.TrimSpace(selector) == "" {
		return nil
	}
	sel := root.selection()
	if sel == nil {
		return nil
	}
	found := sel.Find(selector)
	out := make([]Element, 0, found.Length())
	found.Each(func(_ int, s *goquery.Selection) {
		out = append(out, Element{sel: s})
	})
	return out
}

// SelectOne returns the first descendant of root matching selector.
func SelectOne(root Node, selector string) (Element, bool) {
	if root == nil || strings.TrimSpace(selector) == "" {
		return Element{}, false
	}
	sel := root.selection()
	if sel == nil {
		return Element{}, false
	}
	first := sel.Find(selector).First()
	if first.Length() == 0 {
		return Element{}, false
	}
	return Element{sel: first}, true
}

// Attr returns the named attribute of e.
func Attr(e Element, name string) (string, bool) {
	if e.IsZero() {
		return "", false
	}
	return e.sel.Attr(name)
}

// Text returns the visible text of e with runs of whitespace collapsed and the ends trimmed.
func Text(e Element) string {
	if e.IsZero() {
		return ""
	}
	return normalizeSpace(e.sel.Text())
}

// ValidateSelector reports whether selector is a parseable CSS selector group.
func ValidateSelector(selector string) error {
	if strings.TrimSpace(selector) == "" {
		return nil
	}
	if _, err := cascadia.ParseGroup(selector); err != nil {
		return fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	return nil
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
