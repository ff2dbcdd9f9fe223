package editor

import "github.com/roach88/citesync/internal/doc"

// State is an immutable editor state.
type State struct {
	Doc       *doc.Node
	Selection doc.Selection
}

// NewState creates a state with a cursor at the start of root.
func NewState(root *doc.Node) State {
	return State{Doc: root, Selection: doc.Cursor(0)}
}

// Tr starts a transaction from s.
func (s State) Tr() *doc.Transaction {
	return doc.NewTransaction(s.Doc, s.Selection)
}

// apply returns the state tr produces.
func (s State) apply(tr *doc.Transaction) State {
	return State{Doc: tr.Doc(), Selection: tr.Selection()}
}

// Plugin observes and augments transactions.
//
// For every dispatched transaction, plugins are called in registration
// order: Apply with the resulting state, then Augment. Mutations returned by
// Augment are applied to the same transaction, after which Apply runs again
// for every plugin. Augment is called at most once per plugin per dispatch.
type Plugin interface {
	// Key names the plugin in logs.
	Key() string
	// Init is called once with the initial state.
	Init(st State)
	// Apply observes a transaction and the state it produced. It must not
	// modify tr.
	Apply(tr *doc.Transaction, old, next State)
	// Augment returns follow-up mutations for tr, or nil.
	Augment(tr *doc.Transaction, old, next State) []doc.Mutation
	// Decorations returns view decorations for st.
	Decorations(st State) []Decoration
}

// DecorationKind distinguishes node decorations from widgets.
type DecorationKind string

const (
	// DecorationNode annotates the node spanning [From, To).
	DecorationNode DecorationKind = "node"
	// DecorationWidget inserts non-document content at From.
	DecorationWidget DecorationKind = "widget"
)

// Decoration is view-only annotation. It never changes the document.
type Decoration struct {
	Kind  DecorationKind `json:"kind"`
	From  int            `json:"from"`
	To    int            `json:"to"`
	Class string         `json:"class,omitempty"`
	// Spec carries plugin-specific data, e.g. {"missing": true}.
	Spec   map[string]any `json:"spec,omitempty"`
	Widget *Widget        `json:"widget,omitempty"`
}

// Widget is the inline content of a widget decoration.
type Widget struct {
	Class       string `json:"class"`
	Text        string `json:"text"`
	Interactive bool   `json:"interactive"`
}
