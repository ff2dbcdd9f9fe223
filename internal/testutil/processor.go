package testutil

import (
	"fmt"
	"strings"
	"sync"

	"github.com/roach88/citesync/internal/citation"
	"github.com/roach88/citesync/internal/csl"
)

// Processor is a scriptable style engine.
//
// By default a citation renders as its item ids in brackets, e.g. "[a,b]",
// an empty citation as csl.NoPrintedForm, and the bibliography holds one
// entry per distinct item in first-use order. The exported fields switch on
// failure modes; set them before the processor is shared.
//
// Thread-safety: calls are safe for concurrent use; field changes are not.
type Processor struct {
	// RebuildErr is returned by RebuildState when set.
	RebuildErr error
	// RebuildPanic makes RebuildState panic with this value when non-nil.
	RebuildPanic any
	// Short drops the last rendering so the output is misaligned.
	Short bool
	// BibErr is returned by MakeBibliography when set.
	BibErr error
	// BibPanic makes MakeBibliography panic with this value when non-nil.
	BibPanic any
	// NilBibliography makes MakeBibliography return nil, nil.
	NilBibliography bool
	// FormattingErrors are reported in the bibliography meta.
	FormattingErrors []string

	mu       sync.Mutex
	order    []string
	rebuilds int
	bibs     int
	last     []citation.Normalized
}

// RebuildState implements the processor contract.
func (p *Processor) RebuildState(cits []citation.Normalized) ([]csl.RenderedCitation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.rebuilds++
	if p.RebuildPanic != nil {
		panic(p.RebuildPanic)
	}
	if p.RebuildErr != nil {
		return nil, p.RebuildErr
	}

	p.last = cits
	p.order = p.order[:0]
	seen := map[string]bool{}
	out := make([]csl.RenderedCitation, 0, len(cits))
	for _, c := range cits {
		ids := c.ItemIDs()
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				p.order = append(p.order, id)
			}
		}
		text := csl.NoPrintedForm
		if len(ids) > 0 {
			text = "[" + strings.Join(ids, ",") + "]"
		}
		out = append(out, csl.RenderedCitation{ID: c.CitationID, NoteIndex: c.NoteIndex(), Text: text})
	}
	if p.Short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

// MakeBibliography implements the processor contract.
func (p *Processor) MakeBibliography() (*csl.Bibliography, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.bibs++
	if p.BibPanic != nil {
		panic(p.BibPanic)
	}
	if p.BibErr != nil {
		return nil, p.BibErr
	}
	if p.NilBibliography {
		return nil, nil
	}

	bib := &csl.Bibliography{Meta: csl.BibliographyMeta{
		Errors:   append([]string{}, p.FormattingErrors...),
		EntryIDs: append([]string{}, p.order...),
	}}
	for _, id := range p.order {
		bib.Entries = append(bib.Entries, fmt.Sprintf(`<div class="csl-entry">%s</div>`, id))
	}
	return bib, nil
}

// Rebuilds returns how many times RebuildState was called.
func (p *Processor) Rebuilds() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rebuilds
}

// Bibliographies returns how many times MakeBibliography was called.
func (p *Processor) Bibliographies() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bibs
}

// LastCitations returns the input of the last successful RebuildState.
func (p *Processor) LastCitations() []citation.Normalized {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// ManualSpawner queues spawned work until the test runs it.
type ManualSpawner struct {
	mu   sync.Mutex
	jobs []func()
}

// Spawn records fn. Its signature matches bibliography.Spawner.
func (s *ManualSpawner) Spawn(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, fn)
}

// Len returns the number of queued jobs.
func (s *ManualSpawner) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// RunAll runs every queued job in order and returns how many ran.
func (s *ManualSpawner) RunAll() int {
	s.mu.Lock()
	jobs := s.jobs
	s.jobs = nil
	s.mu.Unlock()

	for _, fn := range jobs {
		fn()
	}
	return len(jobs)
}

// RunLast runs only the most recent job and drops the rest.
func (s *ManualSpawner) RunLast() bool {
	s.mu.Lock()
	jobs := s.jobs
	s.jobs = nil
	s.mu.Unlock()

	if len(jobs) == 0 {
		return false
	}
	jobs[len(jobs)-1]()
	return true
}
