package markdown

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/roach88/citesync/internal/citation"
)

// clusterPattern finds bracketed spans that mention at least one @key.
var clusterPattern = regexp.MustCompile(`\[([^\[\]]*@[^\[\]]*)\]`)

// clusterGrammar is the participle grammar for citation clusters.
// Examples: "@smith2020", "see @a, p. 4; @b", "@a, pp. 3, 5"
type clusterGrammar struct {
	Refs []*refGrammar `parser:"@@ ( \";\" @@ )*"`
}

type refGrammar struct {
	Prefix  string   `parser:"@Text?"`
	Key     string   `parser:"@Key"`
	Locator []string `parser:"( \",\" @( Text | \",\" )* )?"`
}

// clusterLexer keeps whitespace inside Text tokens so prefixes and locators
// survive verbatim.
var clusterLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Key", Pattern: `@[A-Za-z0-9_][A-Za-z0-9_:.\-/]*`},
	{Name: "Semi", Pattern: `;`},
	{Name: "Comma", Pattern: `,`},
	{Name: "Text", Pattern: `[^@;,]+`},
})

var clusterParser = participle.MustBuild[clusterGrammar](
	participle.Lexer(clusterLexer),
)

// ParseCluster parses the inside of a bracketed citation cluster into item
// references, in order.
func ParseCluster(s string) ([]citation.ItemRef, error) {
	parsed, err := clusterParser.ParseString("", s)
	if err != nil {
		return nil, fmt.Errorf("parse cluster %q: %w", s, err)
	}
	refs := make([]citation.ItemRef, 0, len(parsed.Refs))
	for _, r := range parsed.Refs {
		refs = append(refs, citation.ItemRef{
			BibliographyItem: strings.TrimSuffix(strings.TrimPrefix(r.Key, "@"), "."),
			Prefix:           strings.TrimSpace(r.Prefix),
			Locator:          strings.TrimSpace(strings.Join(r.Locator, "")),
		})
	}
	return refs, nil
}
