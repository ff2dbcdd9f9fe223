package csl

import (
	"bytes"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/roach88/citesync/internal/citation"
)

// DOIResolver is the base URL DOIs are linked through.
const DOIResolver = "https://doi.org/"

// DOILink returns the resolver URL for doi with the DOI percent-encoded as a
// single path segment, e.g. "10.1234/567" -> "https://doi.org/10.1234%2F567".
func DOILink(doi string) string {
	return DOIResolver + url.PathEscape(doi)
}

func element(a atom.Atom, class string, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	if class != "" {
		n.Attr = []html.Attribute{{Key: "class", Val: class}}
	}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func textNode(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func link(href, label string) *html.Node {
	a := element(atom.A, "", textNode(label))
	a.Attr = []html.Attribute{{Key: "href", Val: href}}
	return a
}

func render(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// segment is one sentence of an entry. Each segment ends with a period and
// segments are separated by a single space.
type segment []*html.Node

func terminate(s string) string {
	if strings.HasSuffix(s, ".") {
		return s
	}
	return s + "."
}

// renderEntry renders one bibliography entry. Numeric styles get a label
// column; author-date styles print the year after the authors.
func (p *Processor) renderEntry(number int, item citation.LibraryItem) (string, error) {
	numeric := p.style.Citation.Layout == LayoutNumeric
	var segments []segment

	if authors := p.formatAuthors(item.Author); authors != "" {
		segments = append(segments, segment{textNode(terminate(authors))})
	}
	if !numeric {
		segments = append(segments, segment{textNode("(" + yearLabel(item) + ").")})
	}
	if item.Title != "" {
		title := p.formatTitle(item.Title)
		var node *html.Node
		switch {
		case item.DOI != "":
			node = link(DOILink(item.DOI), strings.TrimSuffix(title, "."))
		case item.URL != "":
			node = link(item.URL, strings.TrimSuffix(title, "."))
		default:
			node = textNode(strings.TrimSuffix(title, "."))
		}
		segments = append(segments, segment{node, textNode(".")})
	}

	details := p.details(item, numeric)
	switch {
	case item.ContainerTitle != "" && details != "" && !numeric:
		segments = append(segments, segment{element(atom.I, "", textNode(item.ContainerTitle)), textNode(", " + terminate(details))})
	case item.ContainerTitle != "":
		segments = append(segments, segment{element(atom.I, "", textNode(item.ContainerTitle)), textNode(".")})
		if details != "" {
			segments = append(segments, segment{textNode(terminate(details))})
		}
	case item.Publisher != "":
		segments = append(segments, segment{textNode(terminate(item.Publisher))})
		if details != "" {
			segments = append(segments, segment{textNode(terminate(details))})
		}
	case details != "":
		segments = append(segments, segment{textNode(terminate(details))})
	}

	entry := element(atom.Div, "csl-entry")
	body := entry
	if numeric {
		entry.AppendChild(element(atom.Div, "csl-left-margin", textNode("["+strconv.Itoa(number)+"]")))
		body = element(atom.Div, "csl-right-inline")
		entry.AppendChild(body)
	}
	for i, seg := range segments {
		if i > 0 {
			body.AppendChild(textNode(" "))
		}
		for _, n := range seg {
			body.AppendChild(n)
		}
	}
	return render(entry)
}

// details renders volume, issue and pages: "2020;3(2):1-9" for numeric
// styles and "3(2), 1-9" for author-date styles.
func (p *Processor) details(item citation.LibraryItem, numeric bool) string {
	var vol string
	if item.Volume != "" {
		vol = item.Volume
		if item.Issue != "" {
			vol += "(" + item.Issue + ")"
		}
	}
	if numeric {
		var b strings.Builder
		if y := item.Issued.Year(); y > 0 {
			b.WriteString(strconv.Itoa(y))
		}
		if vol != "" {
			if b.Len() > 0 {
				b.WriteString(";")
			}
			b.WriteString(vol)
		}
		if item.Page != "" {
			if b.Len() > 0 {
				b.WriteString(":")
			}
			b.WriteString(item.Page)
		}
		return b.String()
	}
	var parts []string
	if vol != "" {
		parts = append(parts, vol)
	}
	if item.Page != "" {
		parts = append(parts, item.Page)
	}
	return strings.Join(parts, ", ")
}

// BibliographyContents wraps rendered entries in the bibliography body
// container stored on a bibliography element.
func BibliographyContents(id string, entries []string) (string, error) {
	body := element(atom.Div, "csl-bib-body")
	body.Attr = append(body.Attr, html.Attribute{Key: "id", Val: id})

	context := &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}
	for i, entry := range entries {
		nodes, err := html.ParseFragment(strings.NewReader(entry), context)
		if err != nil {
			return "", fmt.Errorf("parse entry %d: %w", i, err)
		}
		for _, n := range nodes {
			body.AppendChild(n)
		}
	}
	return render(body)
}

// EntryText strips markup from a rendered fragment.
func EntryText(fragment string) string {
	nodes, err := parseFragment(fragment)
	if err != nil {
		return fragment
	}
	var b strings.Builder
	for _, n := range nodes {
		writeText(&b, n)
	}
	return strings.TrimSpace(b.String())
}

// BodyEntries returns the plain text of every csl-entry inside a
// bibliography body, in order.
func BodyEntries(body string) []string {
	nodes, err := parseFragment(body)
	if err != nil {
		return nil
	}
	var out []string
	var find func(*html.Node)
	find = func(n *html.Node) {
		if n.DataAtom == atom.Div && hasClass(n, "csl-entry") {
			var b strings.Builder
			writeText(&b, n)
			out = append(out, strings.TrimSpace(b.String()))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	for _, n := range nodes {
		find(n)
	}
	return out
}

func parseFragment(s string) ([]*html.Node, error) {
	context := &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}
	return html.ParseFragment(strings.NewReader(s), context)
}

// writeText appends the text under n, separating block divs by a space.
func writeText(b *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	if n.DataAtom == atom.Div && b.Len() > 0 && !strings.HasSuffix(b.String(), " ") {
		b.WriteString(" ")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" && slices.Contains(strings.Fields(a.Val), class) {
			return true
		}
	}
	return false
}
