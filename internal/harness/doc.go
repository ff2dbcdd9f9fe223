// Package harness runs editing scenarios against the bibliography plugin.
//
// A scenario imports a Markdown manuscript, loads a library, applies a list
// of editing steps through a real editor and checks the resulting document.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	style: numeric            # builtin name or .cue path; optional
//	processor: csl            # csl (default) or ids
//	mode: sync                # sync (default) or deferred
//	library:
//	  - id: A
//	    title: Alpha
//	manuscript: |
//	  # Intro
//	  See [@A].
//	  ## References
//	steps:
//	  - action: refresh
//	  - action: insert_text
//	    at_text: "See "
//	    text: "also "
//	assertions:
//	  - type: citation_text
//	    index: 0
//	    expect: "[1]"
//
// # Step Actions
//
//   - refresh: forced regeneration without a document change
//   - insert_text: insert text after the first occurrence of at_text
//   - insert_citation: insert a citation of items after at_text
//   - delete_citation: delete the citation at index
//   - add_library_item, remove_library_item: change the library, then refresh
//   - undo, redo: walk the editor history
//   - settle: run deferred engine work and the follow-ups it posted
//
// # Assertion Types
//
//   - citation_text: contents of the citation at index
//   - bibliography_contains: substring of the bibliography contents
//   - bibliography_entries: number of bibliography entries
//   - decoration_count: number of decorations with class
//   - outcome: coordinator phase after step (default: the last step)
//   - referencing: number of stored citations referencing item
//
// # Deterministic Testing
//
// Citation ids are sequential, bibliography element ids fixed and every
// scenario gets a fresh in-memory store, so traces are identical across
// runs and can be compared against golden files.
package harness
