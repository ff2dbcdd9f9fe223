// Package markdown imports Markdown manuscripts into document trees.
//
// Headings open sections, paragraphs become paragraph nodes (list items and
// blockquotes are flattened into paragraphs), and bracketed
// clusters such as [see @smith2020, p. 4; @doe2019] become citation nodes
// backed by citation models. A heading named References or Bibliography
// becomes the bibliography section; its body is generated, so any text
// under it is dropped.
package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/roach88/citesync/internal/citation"
	"github.com/roach88/citesync/internal/doc"
	"github.com/roach88/citesync/internal/ids"
)

// Result is an imported manuscript.
type Result struct {
	Doc *doc.Node
	// Citations holds one model per citation node, in document order.
	Citations []*citation.Citation
	// Title is the text of the first level-1 heading.
	Title string
}

// Option configures Import.
type Option func(*importer)

// WithIDGenerator sets the generator for citation model ids.
// Default: ids.UUIDv7Generator.
func WithIDGenerator(g ids.Generator) Option {
	return func(im *importer) { im.ids = g }
}

// WithBibliography appends a References section when the manuscript cites
// something but has no bibliography heading.
func WithBibliography(enabled bool) Option {
	return func(im *importer) { im.ensureBibliography = enabled }
}

type importer struct {
	src                []byte
	ids                ids.Generator
	ensureBibliography bool
	citations          []*citation.Citation
}

// stackEntry is an open section at a heading level.
type stackEntry struct {
	node  *doc.Node
	level int
}

// Import parses src and builds the document tree.
func Import(src []byte, opts ...Option) (*Result, error) {
	im := &importer{src: src, ids: ids.UUIDv7Generator{}}
	for _, opt := range opts {
		opt(im)
	}

	root := goldmark.New().Parser().Parse(text.NewReader(src))

	// Level 0 is the document; every heading nests under a lower level.
	top := doc.NewNode(doc.TypeDoc, nil)
	stack := []stackEntry{{node: top, level: 0}}
	inBibliography := false
	hasBibliography := false
	title := ""

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			heading := inlineText(node, src)
			for len(stack) > 1 && stack[len(stack)-1].level >= node.Level {
				stack = stack[:len(stack)-1]
			}
			if title == "" && node.Level == 1 {
				title = heading
			}

			if isBibliographyHeading(heading) {
				// Bibliography sections never nest.
				stack = stack[:1]
				top.Content = append(top.Content, bibliographySection(heading))
				inBibliography, hasBibliography = true, true
				continue
			}
			inBibliography = false

			section := doc.NewNode(doc.TypeSection, nil,
				doc.NewNode(doc.TypeSectionTitle, nil, im.inline(heading)...),
			)
			parent := stack[len(stack)-1].node
			parent.Content = append(parent.Content, section)
			stack = append(stack, stackEntry{node: section, level: node.Level})

		default:
			if inBibliography {
				continue
			}
			parent := stack[len(stack)-1].node
			parent.Content = append(parent.Content, im.blocks(n)...)
		}
	}

	if im.ensureBibliography && !hasBibliography && len(im.citations) > 0 {
		top.Content = append(top.Content, bibliographySection("References"))
	}

	return &Result{Doc: top, Citations: im.citations, Title: title}, nil
}

// blocks converts a body block into paragraphs. Lists and blockquotes are
// flattened, one paragraph per text block; code is dropped.
func (im *importer) blocks(n ast.Node) []*doc.Node {
	switch n.(type) {
	case *ast.Paragraph, *ast.TextBlock, *ast.Heading:
		t := inlineText(n, im.src)
		if t == "" {
			return nil
		}
		return []*doc.Node{doc.NewNode(doc.TypeParagraph, nil, im.inline(t)...)}
	case *ast.List, *ast.ListItem, *ast.Blockquote:
		var out []*doc.Node
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			out = append(out, im.blocks(c)...)
		}
		return out
	}
	return nil
}

// inline splits s into text and citation nodes. Brackets that do not parse
// as a cluster stay literal.
func (im *importer) inline(s string) []*doc.Node {
	var out []*doc.Node
	last := 0
	for _, m := range clusterPattern.FindAllStringSubmatchIndex(s, -1) {
		refs, err := ParseCluster(s[m[2]:m[3]])
		if err != nil {
			continue
		}
		if m[0] > last {
			out = append(out, doc.NewText(s[last:m[0]]))
		}
		c := &citation.Citation{ID: im.ids.Generate(ids.TypeCitation)}
		c.Items = refs
		im.citations = append(im.citations, c)
		out = append(out, doc.NewNode(doc.TypeCitation, doc.Attrs{citation.RidAttr: c.ID}))
		last = m[1]
	}
	if last < len(s) {
		out = append(out, doc.NewText(s[last:]))
	}
	return out
}

func bibliographySection(heading string) *doc.Node {
	return doc.NewNode(doc.TypeBibliographySection, nil,
		doc.NewNode(doc.TypeSectionTitle, nil, doc.NewText(heading)),
		doc.NewNode(doc.TypeBibliographyElement, nil),
	)
}

func isBibliographyHeading(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "references", "bibliography", "works cited":
		return true
	}
	return false
}

// inlineText flattens the inline children of a block. Soft line breaks
// become spaces.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	writeInline(&buf, n, src)
	return strings.TrimSpace(buf.String())
}

func writeInline(buf *bytes.Buffer, n ast.Node, src []byte) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		default:
			writeInline(buf, c, src)
		}
	}
}
