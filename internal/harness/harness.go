package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/citesync/internal/bibliography"
	"github.com/roach88/citesync/internal/citation"
	"github.com/roach88/citesync/internal/csl"
	"github.com/roach88/citesync/internal/doc"
	"github.com/roach88/citesync/internal/editor"
	"github.com/roach88/citesync/internal/ids"
	"github.com/roach88/citesync/internal/markdown"
	"github.com/roach88/citesync/internal/store"
	"github.com/roach88/citesync/internal/testutil"
)

// Harness is the scenario execution environment.
// It runs scenarios with a deterministic clock and id generators.
type Harness struct {
	store   *store.Store
	library *citation.Library
	editor  *editor.Editor
	plugin  *bibliography.Plugin
	clock   *editor.Clock
	spawner *testutil.ManualSpawner
	ids     ids.Generator
	logger  *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database and store the library
// 2. Import the manuscript and store its citation models
// 3. Build an editor with the bibliography plugin on a store snapshot
// 4. Execute steps, recording a trace event after each
// 5. Evaluate assertions against the trace and final document
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with engine logs sent to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(store.InMemory)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h, err := setup(ctx, scenario, st, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up scenario: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.execute(ctx, step); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Action, err)
		}
		result.Trace = append(result.Trace, h.traceEvent(step.Action))
	}
	result.Final = h.finalState()

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}
	return result, nil
}

func setup(ctx context.Context, scenario *Scenario, st *store.Store, logger *slog.Logger) (*Harness, error) {
	if _, err := st.PutLibraryItems(ctx, scenario.Library); err != nil {
		return nil, err
	}

	citationIDs := ids.NewSequential()
	imported, err := markdown.Import([]byte(scenario.Manuscript), markdown.WithIDGenerator(citationIDs))
	if err != nil {
		return nil, fmt.Errorf("import manuscript: %w", err)
	}
	for _, c := range imported.Citations {
		if err := st.PutCitation(ctx, c); err != nil {
			return nil, err
		}
	}

	lib, err := st.Snapshot(ctx, "")
	if err != nil {
		return nil, err
	}

	proc, err := newProcessor(scenario, lib, logger)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		store:   st,
		library: lib,
		clock:   editor.NewClock(),
		spawner: &testutil.ManualSpawner{},
		ids:     citationIDs,
		logger:  logger,
	}

	opts := []bibliography.Option{
		bibliography.WithLogger(logger),
		bibliography.WithIDGenerator(testutil.NewFixedIDGenerator("")),
	}
	if scenario.Mode == "deferred" {
		opts = append(opts,
			bibliography.WithMode(bibliography.ModeDeferred),
			bibliography.WithSpawner(h.spawner.Spawn),
		)
	}
	h.plugin = bibliography.New(lib.Lookups(), bibliography.StaticProcessor(proc), opts...)
	h.editor = editor.New(imported.Doc, []editor.Plugin{h.plugin},
		editor.WithLogger(logger),
		editor.WithClock(h.clock),
	)
	h.plugin.Coordinator().SetPoster(h.editor)
	return h, nil
}

func newProcessor(scenario *Scenario, lib *citation.Library, logger *slog.Logger) (bibliography.Processor, error) {
	if scenario.Processor == "ids" {
		return &testutil.Processor{}, nil
	}

	var (
		style *csl.Style
		err   error
	)
	switch {
	case scenario.Style == "":
		style, err = csl.Builtin("numeric")
	case strings.HasSuffix(scenario.Style, ".cue"):
		style, err = csl.LoadStyleFile(scenario.stylePath())
	default:
		style, err = csl.Builtin(scenario.Style)
	}
	if err != nil {
		return nil, fmt.Errorf("load style: %w", err)
	}
	return csl.NewProcessor(style, lib.Item, csl.WithLogger(logger)), nil
}

func (h *Harness) execute(ctx context.Context, step Step) error {
	switch step.Action {
	case StepRefresh:
		return h.refresh()

	case StepInsertText:
		_, err := h.editor.Update(func(tr *doc.Transaction) error {
			pos, ok := doc.FindText(tr.Doc(), step.AtText)
			if !ok {
				return fmt.Errorf("text %q not found", step.AtText)
			}
			return tr.InsertText(pos, step.Text)
		})
		return err

	case StepInsertCitation:
		c := &citation.Citation{ID: h.ids.Generate(ids.TypeCitation)}
		for _, id := range step.Items {
			c.Items = append(c.Items, citation.ItemRef{BibliographyItem: id})
		}
		if err := h.store.PutCitation(ctx, c); err != nil {
			return err
		}
		h.library.AddModel(c)
		_, err := h.editor.Update(func(tr *doc.Transaction) error {
			pos, ok := doc.FindText(tr.Doc(), step.AtText)
			if !ok {
				return fmt.Errorf("text %q not found", step.AtText)
			}
			return tr.Insert(pos, doc.NewNode(doc.TypeCitation, doc.Attrs{citation.RidAttr: c.ID}))
		})
		return err

	case StepDeleteCitation:
		_, err := h.editor.Update(func(tr *doc.Transaction) error {
			positions := doc.FindNodes(tr.Doc(), doc.TypeCitation)
			if step.Index >= len(positions) {
				return fmt.Errorf("citation %d not found (document has %d)", step.Index, len(positions))
			}
			pos := positions[step.Index]
			return tr.Delete(pos, pos+1)
		})
		return err

	case StepAddLibraryItem:
		if _, err := h.store.PutLibraryItem(ctx, *step.Item); err != nil {
			return err
		}
		h.library.AddItem(*step.Item)
		return h.refreshLibrary()

	case StepRemoveLibraryItem:
		if err := h.store.DeleteLibraryItem(ctx, step.ID); err != nil {
			return err
		}
		h.library.RemoveItem(step.ID)
		return h.refreshLibrary()

	case StepUndo:
		if !h.editor.Undo() {
			return fmt.Errorf("nothing to undo")
		}
		return nil

	case StepRedo:
		if !h.editor.Redo() {
			return fmt.Errorf("nothing to redo")
		}
		return nil

	case StepSettle:
		// Loop until no engine work or follow-up is left.
		for h.spawner.Len() > 0 || h.editor.Pending() > 0 {
			h.spawner.RunAll()
			h.editor.RunPending()
		}
		return nil
	}
	return fmt.Errorf("unknown action %q", step.Action)
}

func (h *Harness) refresh() error {
	_, err := h.editor.Dispatch(bibliography.RefreshTransaction(h.editor.State()))
	return err
}

// refreshLibrary re-derives citations after a library change, which leaves
// the document itself untouched.
func (h *Harness) refreshLibrary() error {
	h.plugin.Cache().Refresh()
	return h.refresh()
}

func (h *Harness) traceEvent(action string) TraceEvent {
	out := h.plugin.Coordinator().LastOutcome()
	return TraceEvent{
		Seq:       h.clock.Current(),
		Step:      action,
		Phase:     string(out.Phase),
		Reason:    out.Reason,
		Mutations: out.Mutations,
		Citations: citationContents(h.editor.State().Doc),
	}
}

func (h *Harness) finalState() FinalState {
	root := h.editor.State().Doc
	final := FinalState{
		Citations:   citationContents(root),
		Decorations: []string{},
	}
	if elems := doc.FindNodes(root, doc.TypeBibliographyElement); len(elems) > 0 {
		final.Bibliography = root.NodeAt(elems[0]).Attrs.String(bibliography.ContentsAttr)
	}
	for _, d := range h.editor.Decorations() {
		final.Decorations = append(final.Decorations, formatDecoration(d))
	}
	return final
}

func citationContents(root *doc.Node) []string {
	out := []string{}
	for _, pos := range doc.FindNodes(root, doc.TypeCitation) {
		out = append(out, root.NodeAt(pos).Attrs.String(bibliography.ContentsAttr))
	}
	return out
}

// formatDecoration renders a decoration as "<kind> <from>-<to> <class>".
func formatDecoration(d editor.Decoration) string {
	return strings.TrimSpace(fmt.Sprintf("%s %d-%d %s", d.Kind, d.From, d.To, d.Class))
}
