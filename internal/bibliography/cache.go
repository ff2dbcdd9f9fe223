package bibliography

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/citesync/internal/citation"
	"github.com/roach88/citesync/internal/doc"
	"github.com/roach88/citesync/internal/ir"
)

// DerivedState is the citation view of one document. It is replaced on
// every recompute and never mutated.
type DerivedState struct {
	Doc         *doc.Node
	Occurrences []citation.Occurrence
	Citations   []citation.Normalized

	// Fingerprint is the canonical hash of Citations.
	Fingerprint string
}

// Cache holds the derived state of the current and the previous document.
//
// Thread-safety: Cache is safe for concurrent use. In deferred mode the
// follow-up command reads Current from the editor goroutine while a worker
// may hold the derived state it was scheduled with.
type Cache struct {
	lookups citation.Lookups
	logger  *slog.Logger

	mu       sync.RWMutex
	current  *DerivedState
	previous *DerivedState
}

// NewCache creates an empty cache resolving through lookups.
func NewCache(lookups citation.Lookups, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{lookups: lookups, logger: logger}
}

// Lookups returns the getters the cache resolves through.
func (c *Cache) Lookups() citation.Lookups { return c.lookups }

// Derive builds the derived state for root without touching the cache.
func (c *Cache) Derive(root *doc.Node) *DerivedState {
	occs := citation.BuildOccurrences(root, c.lookups.Model)
	cits := citation.BuildCitations(occs, c.lookups.LibraryItem, c.lookups.Manuscript)

	fp, err := ir.Fingerprint(ir.DomainCitations, cits)
	if err != nil {
		// Normalized citations hold only strings and integers.
		c.logger.Error("citation fingerprint failed", "error", err)
	}
	return &DerivedState{Doc: root, Occurrences: occs, Citations: cits, Fingerprint: fp}
}

// Recompute derives the state for root and makes it current; the old current
// state becomes previous. Recomputing the current document is a no-op.
func (c *Cache) Recompute(root *doc.Node) *DerivedState {
	c.mu.RLock()
	cur := c.current
	c.mu.RUnlock()
	if cur != nil && cur.Doc == root {
		return cur
	}

	next := c.Derive(root)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.previous = c.current
	c.current = next
	return next
}

// Refresh re-derives the current document, for when the library changed
// under an unchanged tree. The old current state becomes previous.
func (c *Cache) Refresh() *DerivedState {
	c.mu.RLock()
	cur := c.current
	c.mu.RUnlock()
	if cur == nil {
		return nil
	}

	next := c.Derive(cur.Doc)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.previous = c.current
	c.current = next
	return next
}

// Current returns the latest derived state, or nil before the first
// Recompute.
func (c *Cache) Current() *DerivedState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Previous returns the derived state before the current one, or nil.
func (c *Cache) Previous() *DerivedState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.previous
}

// CitationsEqual compares normalized citations structurally. Occurrence and
// node identity play no part.
func CitationsEqual(a, b []citation.Normalized) bool {
	return slices.EqualFunc(a, b, func(x, y citation.Normalized) bool {
		return x.CitationID == y.CitationID &&
			x.NoteIndex() == y.NoteIndex() &&
			slices.Equal(x.Items, y.Items)
	})
}
