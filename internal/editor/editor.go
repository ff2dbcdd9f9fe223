package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/citesync/internal/doc"
)

// Transaction metadata keys understood by the editor.
const (
	// MetaAddToHistory set to false keeps a transaction out of undo history.
	MetaAddToHistory = "addToHistory"
	// MetaAppended set to true merges a transaction into the latest history
	// entry, so undoing that entry reverts both.
	MetaAppended = "appendedTransaction"
	// MetaSeq is stamped by Dispatch with the editor's logical clock.
	MetaSeq = "seq"
	// MetaHistory is "undo" or "redo" on history transactions.
	MetaHistory = "history"
)

// ErrStaleTransaction is returned when a transaction was not built from the
// current document.
var ErrStaleTransaction = errors.New("transaction does not start from the current document")

// DefaultHistoryLimit bounds the undo stack.
const DefaultHistoryLimit = 100

type historyEntry struct {
	doc       *doc.Node
	selection doc.Selection
}

// Editor owns a document state and runs transactions through its plugins.
type Editor struct {
	state        State
	plugins      []Plugin
	queue        *commandQueue
	clock        *Clock
	logger       *slog.Logger
	undo         []historyEntry
	redo         []historyEntry
	historyLimit int
}

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) { e.logger = l }
}

// WithHistoryLimit bounds the undo stack. Default: DefaultHistoryLimit.
func WithHistoryLimit(n int) Option {
	return func(e *Editor) { e.historyLimit = n }
}

// WithClock sets the clock used to stamp transactions.
func WithClock(c *Clock) Option {
	return func(e *Editor) { e.clock = c }
}

// New creates an editor on root and initializes every plugin.
//
// The plugins slice is copied; registration order is the order plugins are
// called in for every transaction.
func New(root *doc.Node, plugins []Plugin, opts ...Option) *Editor {
	e := &Editor{
		state:        NewState(root),
		plugins:      append([]Plugin(nil), plugins...),
		queue:        newCommandQueue(),
		clock:        NewClock(),
		logger:       slog.Default(),
		historyLimit: DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	for _, p := range e.plugins {
		p.Init(e.state)
	}
	return e
}

// State returns the current state.
func (e *Editor) State() State { return e.state }

// Update builds a transaction from the current state, lets fn edit it and
// dispatches it. When fn fails nothing is dispatched.
func (e *Editor) Update(fn func(tr *doc.Transaction) error) (State, error) {
	tr := e.state.Tr()
	if err := fn(tr); err != nil {
		return e.state, err
	}
	return e.Dispatch(tr)
}

// Dispatch applies tr and every plugin augmentation, then records history.
//
// ERROR HANDLING: a plugin mutation that fails to apply is logged and
// skipped; the user's edit is never rolled back because of a plugin.
func (e *Editor) Dispatch(tr *doc.Transaction) (State, error) {
	if tr.Before() != e.state.Doc {
		return e.state, ErrStaleTransaction
	}

	old := e.state
	seq := e.clock.Next()
	tr.SetMeta(MetaSeq, seq)

	next := old.apply(tr)
	e.notify(tr, old, next)

	for _, p := range e.plugins {
		muts := p.Augment(tr, old, next)
		if len(muts) == 0 {
			continue
		}
		applied := 0
		for _, m := range muts {
			if err := tr.Apply(m); err != nil {
				e.logger.Warn("plugin mutation failed",
					"plugin", p.Key(),
					"seq", seq,
					"mutation", fmt.Sprint(m),
					"error", err,
				)
				continue
			}
			applied++
		}
		if applied > 0 {
			next = old.apply(tr)
			e.notify(tr, old, next)
		}
		e.logger.Debug("transaction augmented",
			"plugin", p.Key(),
			"seq", seq,
			"mutations", applied,
		)
	}

	e.record(tr, old)
	e.state = next
	return next, nil
}

func (e *Editor) notify(tr *doc.Transaction, old, next State) {
	for _, p := range e.plugins {
		p.Apply(tr, old, next)
	}
}

func (e *Editor) record(tr *doc.Transaction, old State) {
	if !tr.DocChanged() {
		return
	}
	if add, ok := tr.Meta(MetaAddToHistory).(bool); ok && !add {
		return
	}
	if appended, _ := tr.Meta(MetaAppended).(bool); appended {
		return
	}
	e.undo = append(e.undo, historyEntry{doc: old.Doc, selection: old.Selection})
	if len(e.undo) > e.historyLimit {
		e.undo = e.undo[len(e.undo)-e.historyLimit:]
	}
	e.redo = nil
}

// CanUndo reports whether there is an edit to undo.
func (e *Editor) CanUndo() bool { return len(e.undo) > 0 }

// Undo reverts the most recent history entry. Returns false when there is
// nothing to undo.
func (e *Editor) Undo() bool {
	if len(e.undo) == 0 {
		return false
	}
	entry := e.undo[len(e.undo)-1]
	e.undo = e.undo[:len(e.undo)-1]
	current := historyEntry{doc: e.state.Doc, selection: e.state.Selection}
	if !e.restore(entry, "undo") {
		e.undo = append(e.undo, entry)
		return false
	}
	e.redo = append(e.redo, current)
	return true
}

// Redo re-applies the most recently undone entry.
func (e *Editor) Redo() bool {
	if len(e.redo) == 0 {
		return false
	}
	entry := e.redo[len(e.redo)-1]
	e.redo = e.redo[:len(e.redo)-1]
	current := historyEntry{doc: e.state.Doc, selection: e.state.Selection}
	if !e.restore(entry, "redo") {
		e.redo = append(e.redo, entry)
		return false
	}
	e.undo = append(e.undo, current)
	return true
}

func (e *Editor) restore(entry historyEntry, kind string) bool {
	tr := e.state.Tr()
	tr.ReplaceDoc(entry.doc)
	tr.SetSelection(entry.selection)
	tr.SetMeta(MetaAddToHistory, false)
	tr.SetMeta(MetaHistory, kind)
	if _, err := e.Dispatch(tr); err != nil {
		e.logger.Error("history restore failed", "history", kind, "error", err)
		return false
	}
	return true
}

// Decorations collects decorations from every plugin for the current state.
func (e *Editor) Decorations() []Decoration {
	var out []Decoration
	for _, p := range e.plugins {
		out = append(out, p.Decorations(e.state)...)
	}
	return out
}

// Enqueue submits a command for the Run loop.
// Thread-safe: may be called from any goroutine.
//
// Returns false if the editor has been stopped.
func (e *Editor) Enqueue(c Command) bool {
	return e.queue.Enqueue(c)
}

// Post is Enqueue under the name deferred workers look for.
func (e *Editor) Post(c Command) bool {
	return e.Enqueue(c)
}

// Pending returns the number of queued commands.
func (e *Editor) Pending() int { return e.queue.Len() }

// RunPending runs every queued command on the calling goroutine and returns
// how many ran. Commands queued while draining also run.
func (e *Editor) RunPending() int {
	n := 0
	for {
		c, ok := e.queue.TryDequeue()
		if !ok {
			return n
		}
		e.runCommand(c)
		n++
	}
}

// Run starts the single-writer command loop. Blocks until ctx is cancelled
// or Stop is called.
//
// CRITICAL: Must be called from exactly ONE goroutine, which then owns the
// editor.
//
// ERROR HANDLING: a failing command is logged and the loop continues.
func (e *Editor) Run(ctx context.Context) error {
	e.logger.Info("editor loop starting")

	for {
		if c, ok := e.queue.TryDequeue(); ok {
			e.runCommand(c)
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("editor loop stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case _, ok := <-e.queue.Wait():
			// A closed signal channel means Stop was called; drain first.
			if !ok && e.queue.Len() == 0 {
				e.logger.Info("editor loop stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the command queue; Run returns once it is drained.
func (e *Editor) Stop() {
	e.queue.Close()
}

func (e *Editor) runCommand(c Command) {
	tr := c(e.state)
	if tr == nil {
		return
	}
	if _, err := e.Dispatch(tr); err != nil {
		e.logger.Error("command dispatch failed", "error", err)
	}
}
