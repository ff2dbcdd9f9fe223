package bibliography

import "github.com/roach88/citesync/internal/csl"

// BibliographyResult is the outcome of MakeBibliography. Exactly one of OK
// and Err is set.
type BibliographyResult struct {
	OK  *csl.Bibliography
	Err *RegenError
}

// Succeeded reports whether the bibliography can be written.
func (r BibliographyResult) Succeeded() bool { return r.OK != nil && r.Err == nil }

// classifyBibliography turns a MakeBibliography return value into a result.
func classifyBibliography(bib *csl.Bibliography) BibliographyResult {
	switch {
	case bib == nil:
		return BibliographyResult{Err: &RegenError{Kind: ErrKindNoBibliography}}
	case len(bib.Meta.Errors) > 0:
		return BibliographyResult{Err: &RegenError{
			Kind:     ErrKindFormattingErrors,
			Messages: append([]string(nil), bib.Meta.Errors...),
		}}
	default:
		return BibliographyResult{OK: bib}
	}
}

// EngineOutput is everything Augment needs from one regeneration.
type EngineOutput struct {
	// Citations is index-aligned with DerivedState.Occurrences, sentinels
	// already mapped.
	Citations []string

	Bibliography BibliographyResult

	// ElementIDs maps the position of each bibliography element lacking an
	// id to the id it should receive.
	ElementIDs map[int]string
}
