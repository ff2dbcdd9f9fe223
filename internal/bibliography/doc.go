// Package bibliography keeps inline citation labels and the generated
// bibliography consistent with the document as it is edited.
//
// ARCHITECTURE:
//
// On every state transition the Cache rebuilds the derived citation state
// (occurrences in document order plus their normalized form). The
// Coordinator compares it with the prior derived state and, when citations
// changed or regeneration was requested explicitly, calls the style
// processor and returns follow-up mutations for the in-flight transaction:
//
//	CHECK → SKIP                     (no processor, or nothing changed)
//	CHECK → REGENERATE → Augment     (rewrite citation and bibliography contents)
//
// Augment is pure: given the transaction, the derived state and the engine
// output it returns doc mutations, which the editor applies in the same
// transaction so the user edit and its rewrite form one undo step.
//
// ERROR CONTAINMENT:
//
// Nothing here aborts a user edit. Unresolved citation data is surfaced as
// decorations (see BuildDecorations). Engine failures are recovered at the
// call boundary and logged; formatting errors keep the citation rewrites but
// leave the bibliography untouched.
//
// In ModeDeferred the engine call runs off the editing goroutine and its
// result comes back as an editor.Command; results superseded by a newer
// CHECK are discarded.
package bibliography
