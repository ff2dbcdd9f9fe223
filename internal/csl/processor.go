package csl

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/citesync/internal/citation"
)

// NoPrintedForm is what a processor returns for a citation it cannot render.
const NoPrintedForm = "[NO_PRINTED_FORM]"

// RenderedCitation is one entry of RebuildState's output, index-aligned
// with the input citations.
type RenderedCitation struct {
	ID        string `json:"id"`
	NoteIndex int    `json:"noteIndex"`
	Text      string `json:"text"`
}

// BibliographyMeta reports how bibliography generation went.
type BibliographyMeta struct {
	Errors   []string `json:"bibliography_errors"`
	EntryIDs []string `json:"entry_ids"`
}

// Bibliography is the output of MakeBibliography. Entries are HTML
// fragments, one per item.
type Bibliography struct {
	Meta    BibliographyMeta
	Entries []string
}

// Option configures a Processor.
type Option func(*Processor)

// WithLocale sets the BCP 47 locale used for title casing.
func WithLocale(tag string) Option {
	return func(p *Processor) {
		if t, err := language.Parse(tag); err == nil {
			p.locale = t
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// Processor is the built-in style engine. It keeps the item registry built
// by the last RebuildState call, which MakeBibliography then renders.
//
// Thread-safety: Processor is NOT safe for concurrent use. Callers serialize
// access.
type Processor struct {
	style   *Style
	items   citation.Lookups
	locale  language.Tag
	logger  *slog.Logger
	order   []string
	numbers map[string]int
}

// NewProcessor creates a processor for style resolving items through
// getItem.
func NewProcessor(style *Style, getItem citation.GetLibraryItem, opts ...Option) *Processor {
	p := &Processor{
		style:   style,
		items:   citation.Lookups{LibraryItem: getItem},
		locale:  language.English,
		logger:  slog.Default(),
		numbers: make(map[string]int),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Style returns the style the processor renders with.
func (p *Processor) Style() *Style { return p.style }

// RebuildState resets the registry to the given citations (numbering items
// by first appearance) and renders every citation.
func (p *Processor) RebuildState(cits []citation.Normalized) ([]RenderedCitation, error) {
	p.order = p.order[:0]
	p.numbers = make(map[string]int)

	out := make([]RenderedCitation, len(cits))
	for i, c := range cits {
		for _, it := range c.Items {
			if _, ok := p.items.FindLibraryItem(it.ID); !ok {
				continue
			}
			if _, seen := p.numbers[it.ID]; !seen {
				p.order = append(p.order, it.ID)
				p.numbers[it.ID] = len(p.order)
			}
		}
		out[i] = RenderedCitation{
			ID:        c.CitationID,
			NoteIndex: c.NoteIndex(),
			Text:      p.renderCitation(c),
		}
	}

	p.logger.Debug("processor state rebuilt",
		"style", p.style.Name,
		"citations", len(cits),
		"items", len(p.order),
	)
	return out, nil
}

func (p *Processor) renderCitation(c citation.Normalized) string {
	var resolved []citation.NormalizedItem
	for _, it := range c.Items {
		if _, ok := p.items.FindLibraryItem(it.ID); ok {
			resolved = append(resolved, it)
		}
	}
	if len(resolved) == 0 {
		return NoPrintedForm
	}

	f := p.style.Citation
	var body string
	if f.Layout == LayoutNumeric && f.Collapse && plainItems(resolved) {
		nums := make([]int, 0, len(resolved))
		for _, it := range resolved {
			nums = append(nums, p.numbers[it.ID])
		}
		body = collapseNumbers(nums, f.Delimiter)
	} else {
		parts := make([]string, len(resolved))
		for i, it := range resolved {
			parts[i] = p.renderItemLabel(it)
		}
		body = strings.Join(parts, f.Delimiter)
	}
	return f.Prefix + body + f.Suffix
}

func (p *Processor) renderItemLabel(it citation.NormalizedItem) string {
	var label string
	if p.style.Citation.Layout == LayoutNumeric {
		label = strconv.Itoa(p.numbers[it.ID])
	} else {
		item, _ := p.items.FindLibraryItem(it.ID)
		label = authorLabel(item) + " " + yearLabel(item)
	}
	if it.Locator != "" {
		label += ", " + it.Locator
	}
	if it.Prefix != "" {
		label = it.Prefix + " " + label
	}
	if it.Suffix != "" {
		label += " " + it.Suffix
	}
	return label
}

func plainItems(items []citation.NormalizedItem) bool {
	for _, it := range items {
		if it.Locator != "" || it.Prefix != "" || it.Suffix != "" {
			return false
		}
	}
	return true
}

// collapseNumbers sorts nums and renders runs of three or more as ranges,
// e.g. [3 1 2 5] -> "1–3,5".
func collapseNumbers(nums []int, delim string) string {
	nums = slices.Clone(nums)
	slices.Sort(nums)
	nums = slices.Compact(nums)

	var parts []string
	for i := 0; i < len(nums); {
		j := i
		for j+1 < len(nums) && nums[j+1] == nums[j]+1 {
			j++
		}
		switch {
		case j-i >= 2:
			parts = append(parts, fmt.Sprintf("%d–%d", nums[i], nums[j]))
		case j > i:
			parts = append(parts, strconv.Itoa(nums[i]), strconv.Itoa(nums[j]))
		default:
			parts = append(parts, strconv.Itoa(nums[i]))
		}
		i = j + 1
	}
	return strings.Join(parts, delim)
}

func authorLabel(item citation.LibraryItem) string {
	switch len(item.Author) {
	case 0:
		if item.Title != "" {
			return item.Title
		}
		return item.ID
	case 1:
		return item.Author[0].Display()
	case 2:
		return item.Author[0].Display() + " & " + item.Author[1].Display()
	default:
		return item.Author[0].Display() + " et al."
	}
}

func yearLabel(item citation.LibraryItem) string {
	if y := item.Issued.Year(); y > 0 {
		return strconv.Itoa(y)
	}
	return "n.d."
}

// MakeBibliography renders one entry per registered item. Items with neither
// a title nor an author are reported in Meta.Errors and left out.
func (p *Processor) MakeBibliography() (*Bibliography, error) {
	ids := slices.Clone(p.order)
	if p.style.Bibliography.Sort == SortAuthor {
		slices.SortStableFunc(ids, func(a, b string) int {
			ia, _ := p.items.FindLibraryItem(a)
			ib, _ := p.items.FindLibraryItem(b)
			if c := cmp.Compare(strings.ToLower(authorLabel(ia)), strings.ToLower(authorLabel(ib))); c != 0 {
				return c
			}
			return cmp.Compare(ia.Issued.Year(), ib.Issued.Year())
		})
	}

	bib := &Bibliography{Meta: BibliographyMeta{Errors: []string{}, EntryIDs: []string{}}}
	for _, id := range ids {
		item, ok := p.items.FindLibraryItem(id)
		if !ok {
			continue
		}
		if item.Title == "" && len(item.Author) == 0 {
			bib.Meta.Errors = append(bib.Meta.Errors, fmt.Sprintf("%s: reference has no title or author", id))
			continue
		}
		entry, err := p.renderEntry(p.numbers[id], item)
		if err != nil {
			return nil, fmt.Errorf("render entry %s: %w", id, err)
		}
		bib.Entries = append(bib.Entries, entry)
		bib.Meta.EntryIDs = append(bib.Meta.EntryIDs, id)
	}
	return bib, nil
}

func (p *Processor) formatTitle(title string) string {
	if !p.style.Bibliography.TitleCase {
		return title
	}
	return cases.Title(p.locale, cases.NoLower).String(title)
}

func (p *Processor) formatAuthors(authors []citation.Name) string {
	limit := p.style.Bibliography.MaxAuthors
	truncated := limit > 0 && len(authors) > limit
	if truncated {
		authors = authors[:limit]
	}
	names := make([]string, len(authors))
	for i, a := range authors {
		names[i] = a.Display()
		if initials := a.Initials(); initials != "" {
			names[i] += ", " + initials
		}
	}
	out := strings.Join(names, ", ")
	if truncated {
		out += ", et al."
	}
	return out
}
