package bibliography

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/citesync/internal/citation"
	"github.com/roach88/citesync/internal/csl"
	"github.com/roach88/citesync/internal/doc"
	"github.com/roach88/citesync/internal/editor"
	"github.com/roach88/citesync/internal/ids"
)

// Node attributes the coordinator writes.
const (
	ContentsAttr = "contents"
	IDAttr       = "id"
)

// MetaBibliographyInserted forces regeneration even when citations did not
// change, e.g. after a bibliography section was inserted.
const MetaBibliographyInserted = "bibliographyInserted"

// metaFollowUp marks transactions built by a deferred regeneration.
const metaFollowUp = "bibliographyFollowUp"

// Processor is the style engine contract. RebuildState replaces the
// engine's citation registry and returns one rendering per input citation;
// MakeBibliography renders the registry built by the last RebuildState.
type Processor interface {
	RebuildState(citations []citation.Normalized) ([]csl.RenderedCitation, error)
	MakeBibliography() (*csl.Bibliography, error)
}

// ProcessorSource returns the processor to use, or nil while none is
// available. It is called on every CHECK.
type ProcessorSource func() Processor

// StaticProcessor returns a source that always yields p.
func StaticProcessor(p Processor) ProcessorSource {
	return func() Processor { return p }
}

// Poster accepts follow-up commands for the editor's command loop.
// *editor.Editor implements it.
type Poster interface {
	Post(c editor.Command) bool
}

// Spawner runs fn off the editing goroutine.
type Spawner func(fn func())

// Mode selects when the engine runs.
type Mode int

const (
	// ModeSync runs the engine inside the dispatch of the triggering edit.
	ModeSync Mode = iota
	// ModeDeferred runs the engine through a Spawner and applies its result
	// as a follow-up transaction.
	ModeDeferred
)

func (m Mode) String() string {
	if m == ModeDeferred {
		return "deferred"
	}
	return "sync"
}

// Phase is the terminal state of one CHECK.
type Phase string

const (
	PhaseSkip       Phase = "SKIP"
	PhaseRegenerate Phase = "REGENERATE"
	PhaseScheduled  Phase = "SCHEDULED"
	PhaseDiscarded  Phase = "DISCARDED"
	PhaseFailed     Phase = "FAILED"
)

// Outcome records what the coordinator did last.
type Outcome struct {
	Phase      Phase
	Reason     string
	Generation int64
	Mutations  int
	Err        error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithMode selects sync or deferred regeneration. Default: ModeSync.
func WithMode(m Mode) Option {
	return func(c *Coordinator) { c.mode = m }
}

// WithPoster sets where deferred follow-ups are posted.
func WithPoster(p Poster) Option {
	return func(c *Coordinator) { c.poster = p }
}

// WithSpawner replaces the goroutine spawner used in deferred mode.
func WithSpawner(s Spawner) Option {
	return func(c *Coordinator) { c.spawn = s }
}

// WithSentinels replaces the sentinel table. Default: DefaultSentinels().
func WithSentinels(t SentinelTable) Option {
	return func(c *Coordinator) { c.sentinels = t.Clone() }
}

// WithIDGenerator sets the generator for bibliography element ids.
// Default: ids.UUIDv7Generator.
func WithIDGenerator(g ids.Generator) Option {
	return func(c *Coordinator) { c.ids = g }
}

// Coordinator runs the CHECK/REGENERATE state machine.
//
// Run is called on the editor goroutine. In deferred mode the engine call
// runs elsewhere; engine calls are serialized by engineMu.
type Coordinator struct {
	cache     *Cache
	source    ProcessorSource
	ids       ids.Generator
	sentinels SentinelTable
	logger    *slog.Logger
	mode      Mode
	spawn     Spawner
	clock     *editor.Clock

	engineMu sync.Mutex

	mu      sync.Mutex
	poster  Poster
	latest  int64
	pending bool
	last    Outcome
}

// NewCoordinator creates a coordinator reading derived state from cache.
func NewCoordinator(cache *Cache, source ProcessorSource, opts ...Option) *Coordinator {
	c := &Coordinator{
		cache:     cache,
		source:    source,
		ids:       ids.UUIDv7Generator{},
		sentinels: DefaultSentinels(),
		logger:    slog.Default(),
		spawn:     func(fn func()) { go fn() },
		clock:     editor.NewClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetPoster sets the follow-up target after construction, for hosts that
// create the editor after its plugins.
func (c *Coordinator) SetPoster(p Poster) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.poster = p
}

// Mode returns the configured mode.
func (c *Coordinator) Mode() Mode { return c.mode }

// LastOutcome returns the outcome of the most recent CHECK or follow-up.
func (c *Coordinator) LastOutcome() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func (c *Coordinator) record(o Outcome) {
	c.mu.Lock()
	c.last = o
	c.mu.Unlock()
}

// MarkInserted requests regeneration for tr regardless of citation changes.
func MarkInserted(tr *doc.Transaction) {
	tr.SetMeta(MetaBibliographyInserted, true)
}

func inserted(tr *doc.Transaction) bool {
	v, _ := tr.Meta(MetaBibliographyInserted).(bool)
	return v
}

// RefreshTransaction returns a history-neutral transaction that forces a full
// regeneration, for the initial render of a loaded document.
func RefreshTransaction(st editor.State) *doc.Transaction {
	tr := st.Tr()
	MarkInserted(tr)
	tr.SetMeta(editor.MetaAddToHistory, false)
	return tr
}

func (c *Coordinator) processor() Processor {
	if c.source == nil {
		return nil
	}
	return c.source()
}

// Run performs one CHECK for tr. prior is the derived state before tr,
// current the state after it. It returns the mutations to apply to tr; in
// deferred mode that is always nil and the result arrives as a follow-up.
//
// ERROR HANDLING: engine errors and panics are logged and yield no
// mutations; the edit itself proceeds.
func (c *Coordinator) Run(tr *doc.Transaction, prior, current *DerivedState) []doc.Mutation {
	if current == nil {
		return nil
	}
	if _, ok := tr.Meta(metaFollowUp).(int64); ok {
		c.logger.Debug("bibliography check skipped", "reason", "follow-up")
		return nil
	}

	forced := inserted(tr)

	c.mu.Lock()
	poster := c.poster
	c.mu.Unlock()
	deferred := c.mode == ModeDeferred && poster != nil

	proc := c.processor()
	if proc == nil {
		var gen int64
		if deferred {
			gen = c.supersede(forced, prior, current)
		}
		c.skip("processor unavailable", gen)
		return nil
	}

	if deferred {
		c.schedule(proc, poster, forced, prior, current)
		return nil
	}

	if !forced && prior != nil && CitationsEqual(prior.Citations, current.Citations) {
		c.skip("citations unchanged", 0)
		return nil
	}

	out, err := c.regenerate(proc, current)
	if err != nil {
		c.fail(err, 0)
		return nil
	}
	if out.Bibliography.Succeeded() {
		out.ElementIDs = c.elementIDs(current.Doc)
	}

	muts := Augment(tr, current, out)
	c.logger.Info("bibliography regenerated",
		"citations", len(current.Citations),
		"mutations", len(muts),
		"forced", forced,
	)
	c.record(Outcome{Phase: PhaseRegenerate, Mutations: len(muts), Err: bibErr(out)})
	return muts
}

func (c *Coordinator) skip(reason string, gen int64) {
	c.logger.Debug("bibliography check skipped", "reason", reason, "generation", gen)
	c.record(Outcome{Phase: PhaseSkip, Reason: reason, Generation: gen})
}

func (c *Coordinator) fail(err error, gen int64) {
	c.logger.Error("bibliography regeneration failed", "error", err, "generation", gen)
	c.record(Outcome{Phase: PhaseFailed, Generation: gen, Err: err})
}

func bibErr(out EngineOutput) error {
	if out.Bibliography.Err != nil {
		return out.Bibliography.Err
	}
	return nil
}

// regenerate calls the engine for state. The returned output has no
// ElementIDs; those depend on the document the output is applied to.
func (c *Coordinator) regenerate(proc Processor, state *DerivedState) (EngineOutput, error) {
	c.engineMu.Lock()
	defer c.engineMu.Unlock()

	rendered, err := rebuildState(proc, state.Citations)
	if err != nil {
		return EngineOutput{}, &RegenError{Kind: ErrKindEngineFailure, Err: err}
	}
	if len(rendered) != len(state.Citations) {
		return EngineOutput{}, &RegenError{
			Kind: ErrKindEngineFailure,
			Err:  fmt.Errorf("processor rendered %d citations, want %d", len(rendered), len(state.Citations)),
		}
	}
	texts := make([]string, len(rendered))
	for i, r := range rendered {
		texts[i] = c.sentinels.Map(r.Text)
	}

	bib, err := makeBibliography(proc)
	if err != nil {
		return EngineOutput{}, &RegenError{Kind: ErrKindEngineFailure, Err: err}
	}
	result := classifyBibliography(bib)
	if result.Err != nil {
		c.logger.Warn("bibliography not updated",
			"kind", string(result.Err.Kind),
			"messages", result.Err.Messages,
		)
	}
	return EngineOutput{Citations: texts, Bibliography: result}, nil
}

func rebuildState(p Processor, cits []citation.Normalized) (out []csl.RenderedCitation, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Op: "RebuildState", Value: r}
		}
	}()
	return p.RebuildState(cits)
}

func makeBibliography(p Processor) (bib *csl.Bibliography, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Op: "MakeBibliography", Value: r}
		}
	}()
	return p.MakeBibliography()
}

// elementIDs assigns fresh ids to bibliography elements that have none.
func (c *Coordinator) elementIDs(root *doc.Node) map[int]string {
	out := make(map[int]string)
	for _, pos := range doc.FindNodes(root, doc.TypeBibliographyElement) {
		if root.NodeAt(pos).Attrs.String(IDAttr) == "" {
			out[pos] = c.ids.Generate(ids.TypeBibliographyElement)
		}
	}
	return out
}

// schedule stamps a generation and hands the engine call to the spawner.
// A pending request forces rescheduling so the newest generation covers
// every change since the last applied result.
func (c *Coordinator) schedule(proc Processor, poster Poster, forced bool, prior, current *DerivedState) {
	gen := c.clock.Next()

	c.mu.Lock()
	c.latest = gen
	unchanged := !forced && !c.pending && prior != nil && CitationsEqual(prior.Citations, current.Citations)
	if !unchanged {
		c.pending = true
	}
	c.mu.Unlock()

	if unchanged {
		c.skip("citations unchanged", gen)
		return
	}

	c.logger.Debug("bibliography regeneration scheduled", "generation", gen)
	c.record(Outcome{Phase: PhaseScheduled, Generation: gen})

	state := current
	c.spawn(func() {
		out, err := c.regenerate(proc, state)
		if !poster.Post(c.followUp(gen, out, err)) {
			c.logger.Warn("bibliography follow-up dropped: editor stopped", "generation", gen)
		}
	})
}

// supersede advances the generation without scheduling, so results already
// in flight are discarded. Citation changes stay pending for the next CHECK
// that reaches the engine.
func (c *Coordinator) supersede(forced bool, prior, current *DerivedState) int64 {
	gen := c.clock.Next()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest = gen
	if forced || prior == nil || !CitationsEqual(prior.Citations, current.Citations) {
		c.pending = true
	}
	return gen
}

// settle clears the pending request if gen is still the latest generation.
func (c *Coordinator) settle(gen int64) {
	c.mu.Lock()
	if c.latest == gen {
		c.pending = false
	}
	c.mu.Unlock()
}

// followUp returns the command that applies a deferred result, provided no
// newer CHECK happened in the meantime.
func (c *Coordinator) followUp(gen int64, out EngineOutput, err error) editor.Command {
	return func(st editor.State) *doc.Transaction {
		c.mu.Lock()
		latest := c.latest
		c.mu.Unlock()

		if gen != latest {
			c.logger.Debug("bibliography result discarded",
				"generation", gen,
				"latest", latest,
			)
			c.record(Outcome{Phase: PhaseDiscarded, Reason: "superseded", Generation: gen})
			return nil
		}
		if err != nil {
			c.settle(gen)
			c.fail(err, gen)
			return nil
		}

		// A mismatch leaves the request pending so the next CHECK reschedules.
		state := c.cache.Current()
		if state == nil || state.Doc != st.Doc || len(state.Occurrences) != len(out.Citations) {
			c.logger.Warn("bibliography result does not match document", "generation", gen)
			c.record(Outcome{Phase: PhaseDiscarded, Reason: "document mismatch", Generation: gen})
			return nil
		}
		c.settle(gen)
		if out.Bibliography.Succeeded() {
			out.ElementIDs = c.elementIDs(state.Doc)
		}

		tr := st.Tr()
		tr.SetMeta(editor.MetaAppended, true)
		tr.SetMeta(metaFollowUp, gen)

		muts := Augment(tr, state, out)
		applied := 0
		for _, m := range muts {
			if err := tr.Apply(m); err != nil {
				c.logger.Warn("bibliography mutation failed", "generation", gen, "error", err)
				continue
			}
			applied++
		}
		c.logger.Info("bibliography regenerated",
			"citations", len(state.Citations),
			"mutations", applied,
			"generation", gen,
		)
		c.record(Outcome{Phase: PhaseRegenerate, Generation: gen, Mutations: applied, Err: bibErr(out)})
		if applied == 0 {
			return nil
		}
		return tr
	}
}

// Augment turns engine output into mutations for tr. state must describe
// tr's current document. Unchanged contents produce no mutation; if tr's
// selection is a node selection it is re-established after the rewrite.
func Augment(tr *doc.Transaction, state *DerivedState, out EngineOutput) []doc.Mutation {
	var muts []doc.Mutation

	for i, occ := range state.Occurrences {
		if i >= len(out.Citations) {
			break
		}
		text := out.Citations[i]
		if occ.Node.Attrs.String(ContentsAttr) == text {
			continue
		}
		muts = append(muts, doc.SetAttrs{Pos: occ.Pos, Attrs: occ.Node.Attrs.With(ContentsAttr, text)})
	}

	if out.Bibliography.Succeeded() {
		entries := out.Bibliography.OK.Entries
		for _, pos := range doc.FindNodes(state.Doc, doc.TypeBibliographyElement) {
			node := state.Doc.NodeAt(pos)
			id := node.Attrs.String(IDAttr)
			if id == "" {
				id = out.ElementIDs[pos]
			}
			contents, err := csl.BibliographyContents(id, entries)
			if err != nil {
				continue
			}
			attrs := node.Attrs.With(IDAttr, id).With(ContentsAttr, contents)
			if attrs.Equal(node.Attrs) {
				continue
			}
			muts = append(muts, doc.SetAttrs{Pos: pos, Attrs: attrs})
		}
	}

	if len(muts) > 0 {
		if sel, ok := tr.Selection().(doc.NodeSelection); ok {
			muts = append(muts, doc.ReselectNode{Pos: sel.From()})
		}
	}
	return muts
}
