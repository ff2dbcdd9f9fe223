package bibliography

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/citesync/internal/csl"
	"github.com/roach88/citesync/internal/doc"
	"github.com/roach88/citesync/internal/editor"
	"github.com/roach88/citesync/internal/ids"
	"github.com/roach88/citesync/internal/testutil"
)

const entryA = `<div class="csl-entry"><div class="csl-left-margin">[1]</div><div class="csl-right-inline">` +
	`Smith, J. <a href="https://doi.org/10.1%2Fx">Alpha results</a>. <i>Journal of Tests</i>. 2020;3:1-9.</div></div>`

const fixedElementID = "MPBibliographyElement:test-id"

func TestPlugin_ConcreteScenario(t *testing.T) {
	f := newFixture(t, numeric)
	f.refresh(t)

	assert.Equal(t, "[1]", f.contents(posC1))
	assert.Equal(t, "", f.contents(posC2), "unresolved citation renders empty")

	elem := f.ed.State().Doc.NodeAt(posBibElem)
	assert.Equal(t, fixedElementID, elem.Attrs.String(IDAttr))
	assert.Equal(t,
		`<div class="csl-bib-body" id="`+fixedElementID+`">`+entryA+`</div>`,
		elem.Attrs.String(ContentsAttr))

	decos := f.ed.Decorations()
	require.Len(t, decos, 3)
	assert.Equal(t, ClassCitationMissing, decos[0].Class)
	assert.Equal(t, posC2, decos[0].From)
	assert.Equal(t, "B", decos[0].Spec["item"])
	assert.Equal(t, true, decos[1].Spec["missing"])
	require.NotNil(t, decos[2].Widget)
	assert.Equal(t, MissingBibliographyText, decos[2].Widget.Text)
}

func TestPlugin_Idempotence(t *testing.T) {
	f := newFixture(t, numeric)
	f.refresh(t)
	first := f.ed.State().Doc

	// An unchanged document skips at CHECK.
	_, err := f.ed.Dispatch(f.ed.State().Tr())
	require.NoError(t, err)
	assert.Equal(t, PhaseSkip, f.outcome().Phase)
	assert.Equal(t, "citations unchanged", f.outcome().Reason)

	// A text edit leaves citations alone and skips too.
	f.update(t, insertText(2, "x"))
	assert.Equal(t, PhaseSkip, f.outcome().Phase)

	// Forcing regeneration again rewrites nothing.
	f.refresh(t)
	assert.Equal(t, PhaseRegenerate, f.outcome().Phase)
	assert.Equal(t, 0, f.outcome().Mutations)
	assert.Equal(t, first.NodeAt(posC1).Attrs, f.ed.State().Doc.NodeAt(posC1+1).Attrs)
	assert.Equal(t, first.NodeAt(posBibElem).Attrs, f.ed.State().Doc.NodeAt(posBibElem+1).Attrs)
}

func TestPlugin_OrderPreservation(t *testing.T) {
	f := newFixture(t, numeric)
	f.lib.AddItem(itemB())
	f.refresh(t)
	require.Equal(t, "[1]", f.contents(posC1))
	require.Equal(t, "[2]", f.contents(posC2))

	// c0 cites B before everything else: B becomes [1].
	f.update(t, insertCitation(posPara, "c0"))

	assert.Equal(t, PhaseRegenerate, f.outcome().Phase)
	assert.Equal(t, "[1]", f.contents(posPara))
	assert.Equal(t, "[2]", f.contents(posC1+1))
	assert.Equal(t, "[1]", f.contents(posC2+1))

	state := f.plugin.Cache().Current()
	require.Len(t, state.Occurrences, 3)
	for i := 1; i < len(state.Occurrences); i++ {
		assert.Less(t, state.Occurrences[i-1].Pos, state.Occurrences[i].Pos)
	}
	assert.Equal(t, []string{"B"}, state.Citations[0].ItemIDs())
	assert.Equal(t, []string{"A"}, state.Citations[1].ItemIDs())
}

func TestPlugin_MissingReferenceRoundTrip(t *testing.T) {
	f := newFixture(t, numeric)
	f.refresh(t)
	require.Equal(t, ClassCitationMissing, f.ed.Decorations()[0].Class)

	f.lib.AddItem(itemB())
	f.update(t, insertText(2, "x"))

	assert.Equal(t, PhaseRegenerate, f.outcome().Phase)
	assert.Equal(t, "[2]", f.contents(posC2+1))
	assert.Empty(t, f.ed.Decorations())
	contents := f.ed.State().Doc.NodeAt(posBibElem+1).Attrs.String(ContentsAttr)
	assert.Contains(t, contents, "Beta methods")
}

func TestPlugin_EmptyCitation(t *testing.T) {
	f := newFixture(t, numeric)
	f.refresh(t)

	f.update(t, insertCitation(posPara, "c3"))

	assert.Equal(t, "", f.contents(posPara))
	state := f.plugin.Cache().Current()
	require.Len(t, state.Citations, 3)
	assert.Empty(t, state.Citations[0].Items)

	var empty int
	for _, d := range f.ed.Decorations() {
		if d.Class == ClassCitationEmpty {
			empty++
			assert.Equal(t, posPara, d.From)
		}
	}
	assert.Equal(t, 1, empty)
}

func TestPlugin_ConfigurableSentinels(t *testing.T) {
	f := newFixture(t, numeric, WithSentinels(SentinelTable{csl.NoPrintedForm: "[?]"}))
	f.refresh(t)

	assert.Equal(t, "[1]", f.contents(posC1))
	assert.Equal(t, "[?]", f.contents(posC2))
}

func TestPlugin_SelectionIntegrity(t *testing.T) {
	f := newFixture(t, numeric)
	f.lib.AddItem(itemB())
	f.refresh(t)

	sel, err := doc.SelectNode(f.ed.State().Doc, posC1)
	require.NoError(t, err)
	tr := f.ed.State().Tr()
	tr.SetSelection(sel)
	_, err = f.ed.Dispatch(tr)
	require.NoError(t, err)

	// Relabels c1 from [1] to [2] while it is selected.
	f.update(t, insertCitation(posPara, "c0"))
	require.Equal(t, "[2]", f.contents(posC1+1))

	assert.Equal(t, doc.NodeSelection{Pos: posC1 + 1, Size: 1}, f.ed.State().Selection)
}

func TestPlugin_UndoRevertsEditAndRewrite(t *testing.T) {
	f := newFixture(t, numeric)
	f.lib.AddItem(itemB())
	f.refresh(t)
	require.False(t, f.ed.CanUndo(), "refresh stays out of history")
	before := f.ed.State().Doc

	f.update(t, insertCitation(posPara, "c0"))
	require.Equal(t, "[2]", f.contents(posC1+1))

	require.True(t, f.ed.Undo())
	assert.Equal(t, before.String(), f.ed.State().Doc.String())
	assert.Equal(t, "[1]", f.contents(posC1))
	assert.False(t, f.ed.CanUndo(), "edit and rewrite were one step")
}

func TestPlugin_ProcessorUnavailable(t *testing.T) {
	lib := testLibrary()
	p := New(lib.Lookups(), func() Processor { return nil })
	ed := editor.New(sampleDoc(), []editor.Plugin{p})

	_, err := ed.Dispatch(RefreshTransaction(ed.State()))
	require.NoError(t, err)

	assert.Equal(t, PhaseSkip, p.Coordinator().LastOutcome().Phase)
	assert.Equal(t, "processor unavailable", p.Coordinator().LastOutcome().Reason)
	assert.Equal(t, "", ed.State().Doc.NodeAt(posC1).Attrs.String(ContentsAttr))

	nilSource := New(lib.Lookups(), nil)
	ed = editor.New(sampleDoc(), []editor.Plugin{nilSource})
	_, err = ed.Dispatch(RefreshTransaction(ed.State()))
	require.NoError(t, err)
	assert.Equal(t, PhaseSkip, nilSource.Coordinator().LastOutcome().Phase)
}

func TestPlugin_EngineFailureLeavesDocumentAlone(t *testing.T) {
	tests := []struct {
		name      string
		breakProc func(p *testutil.Processor)
		log       string
	}{
		{"bibliography panics", func(p *testutil.Processor) { p.BibPanic = "kaboom" }, "MakeBibliography panicked: kaboom"},
		{"bibliography errors", func(p *testutil.Processor) { p.BibErr = errors.New("engine down") }, "engine down"},
		{"rebuild panics", func(p *testutil.Processor) { p.RebuildPanic = "kaboom" }, "RebuildState panicked: kaboom"},
		{"rebuild errors", func(p *testutil.Processor) { p.RebuildErr = errors.New("bad state") }, "bad state"},
		{"misaligned output", func(p *testutil.Processor) { p.Short = true }, "processor rendered 1 citations, want 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &testutil.Processor{}
			f := newFixture(t, fake(proc))
			f.refresh(t)
			require.Equal(t, "[A]", f.contents(posC1))
			bibBefore := f.ed.State().Doc.NodeAt(posBibElem).Attrs

			tt.breakProc(proc)
			f.lib.AddItem(itemB())
			f.update(t, insertText(2, "x"))

			assert.Equal(t, "xIntro", f.ed.State().Doc.Content[0].Content[0].TextContent(), "edit proceeds")
			assert.Equal(t, "[A]", f.contents(posC1+1))
			assert.Equal(t, "", f.contents(posC2+1))
			assert.Equal(t, bibBefore, f.ed.State().Doc.NodeAt(posBibElem+1).Attrs)

			out := f.outcome()
			assert.Equal(t, PhaseFailed, out.Phase)
			assert.True(t, IsEngineFailure(out.Err))
			assert.Contains(t, f.logs.String(), "bibliography regeneration failed")
			assert.Contains(t, f.logs.String(), tt.log)
		})
	}
}

func TestPlugin_FormattingErrorsKeepCitationRewrites(t *testing.T) {
	proc := &testutil.Processor{FormattingErrors: []string{"A: bad date"}}
	f := newFixture(t, fake(proc))
	f.refresh(t)

	assert.Equal(t, "[A]", f.contents(posC1))
	elem := f.ed.State().Doc.NodeAt(posBibElem)
	assert.Equal(t, "", elem.Attrs.String(ContentsAttr))
	assert.Equal(t, "", elem.Attrs.String(IDAttr))

	out := f.outcome()
	assert.Equal(t, PhaseRegenerate, out.Phase)
	assert.True(t, IsFormattingError(out.Err))
	assert.Contains(t, f.logs.String(), "bibliography not updated")
}

func TestPlugin_NoBibliography(t *testing.T) {
	f := newFixture(t, fake(&testutil.Processor{NilBibliography: true}))
	f.refresh(t)

	assert.Equal(t, "[A]", f.contents(posC1))
	assert.Equal(t, "", f.contents(posBibElem))

	var re *RegenError
	require.ErrorAs(t, f.outcome().Err, &re)
	assert.Equal(t, ErrKindNoBibliography, re.Kind)
}

func TestPlugin_ExistingElementIDIsKept(t *testing.T) {
	f := newFixture(t, fake(&testutil.Processor{}))
	f.update(t, func(tr *doc.Transaction) error {
		return tr.SetNodeAttrs(posBibElem, doc.Attrs{IDAttr: "MPBibliographyElement:mine"})
	})
	f.refresh(t)

	elem := f.ed.State().Doc.NodeAt(posBibElem)
	assert.Equal(t, "MPBibliographyElement:mine", elem.Attrs.String(IDAttr))
	assert.Equal(t,
		`<div class="csl-bib-body" id="MPBibliographyElement:mine"><div class="csl-entry">A</div></div>`,
		elem.Attrs.String(ContentsAttr))
}

func TestPlugin_MultipleBibliographyElements(t *testing.T) {
	root := doc.NewNode(doc.TypeDoc, nil,
		doc.NewNode(doc.TypeParagraph, nil,
			doc.NewText("See "),
			citeNode("c1"),
			doc.NewText(" and "),
			citeNode("c2"),
		),
		doc.NewNode(doc.TypeBibliographySection, nil,
			doc.NewNode(doc.TypeBibliographyElement, nil),
		),
		doc.NewNode(doc.TypeBibliographySection, nil,
			doc.NewNode(doc.TypeBibliographyElement, nil),
		),
	)
	lib := testLibrary()
	p := New(lib.Lookups(), StaticProcessor(numeric(lib)), WithIDGenerator(ids.NewSequential()))
	ed := editor.New(root, []editor.Plugin{p})

	_, err := ed.Dispatch(RefreshTransaction(ed.State()))
	require.NoError(t, err)

	elems := doc.FindNodes(ed.State().Doc, doc.TypeBibliographyElement)
	require.Len(t, elems, 2)
	first := ed.State().Doc.NodeAt(elems[0]).Attrs
	second := ed.State().Doc.NodeAt(elems[1]).Attrs

	assert.Equal(t, "MPBibliographyElement:1", first.String(IDAttr))
	assert.Equal(t, "MPBibliographyElement:2", second.String(IDAttr))
	for _, attrs := range []doc.Attrs{first, second} {
		id := attrs.String(IDAttr)
		assert.Equal(t, `<div class="csl-bib-body" id="`+id+`">`+entryA+`</div>`, attrs.String(ContentsAttr))
	}

	// B is missing: one citation marker plus a node marker and a banner per element.
	decos := ed.Decorations()
	require.Len(t, decos, 5)
	assert.Equal(t, ClassCitationMissing, decos[0].Class)
	var markers, banners []int
	for _, d := range decos[1:] {
		switch d.Kind {
		case editor.DecorationNode:
			assert.Equal(t, true, d.Spec["missing"])
			markers = append(markers, d.From)
		case editor.DecorationWidget:
			require.NotNil(t, d.Widget)
			assert.Equal(t, MissingBibliographyText, d.Widget.Text)
			banners = append(banners, d.From)
		}
	}
	assert.Equal(t, elems, markers)
	assert.Equal(t, elems, banners)

	// Ids are assigned once and survive later generations.
	_, err = ed.Dispatch(RefreshTransaction(ed.State()))
	require.NoError(t, err)
	assert.Equal(t, "MPBibliographyElement:1", ed.State().Doc.NodeAt(elems[0]).Attrs.String(IDAttr))
	assert.Equal(t, "MPBibliographyElement:2", ed.State().Doc.NodeAt(elems[1]).Attrs.String(IDAttr))
}
