// Package editor implements the reference editing session: the current
// document state, the plugin pipeline every transaction runs through, single
// step undo, and a single-writer command loop.
//
// ARCHITECTURE:
//
// Dispatch pipeline:
//  1. The caller builds a doc.Transaction from the current State
//  2. Dispatch applies it and calls every plugin's Apply with the new state
//  3. Each plugin's Augment may return follow-up mutations; they are applied
//     to the same transaction so the edit and its follow-ups form one undo step
//  4. After each augmentation every plugin's Apply runs again on the result
//
// Single-Writer Command Loop:
// Work that completes off the editing goroutine (for example, a style engine
// call made in deferred mode) is posted as a Command with Enqueue. Run drains
// the queue in FIFO order on one goroutine, so state is only ever touched by
// one writer.
//
// Dispatch, Undo and Redo are not safe for concurrent use. Call them from the
// goroutine that owns the editor, which is the Run goroutine once Run starts.
package editor
