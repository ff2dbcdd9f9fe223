package citation

import (
	"cmp"
	"slices"
	"sync"
)

// Library is an in-memory set of library items, models and the manuscript
// context. Its getters serve as Lookups.
//
// Thread-safety: Library is safe for concurrent use; a style engine running
// in the background may read items while the editor adds more.
type Library struct {
	mu         sync.RWMutex
	items      map[string]LibraryItem
	models     map[string]Model
	manuscript Manuscript
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{
		items:  make(map[string]LibraryItem),
		models: make(map[string]Model),
	}
}

// AddItem stores or replaces a library item.
func (l *Library) AddItem(it LibraryItem) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items[it.ID] = it
}

// RemoveItem deletes a library item. Citations referencing it become
// unresolved.
func (l *Library) RemoveItem(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.items, id)
}

// AddModel stores or replaces a model.
func (l *Library) AddModel(m Model) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.models[m.ModelID()] = m
}

// RemoveModel deletes a model.
func (l *Library) RemoveModel(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.models, id)
}

// SetManuscript replaces the manuscript context.
func (l *Library) SetManuscript(m Manuscript) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.manuscript = m
}

// Item implements GetLibraryItem.
func (l *Library) Item(id string) (LibraryItem, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	it, ok := l.items[id]
	return it, ok
}

// Model implements GetModel.
func (l *Library) Model(id string) (Model, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.models[id]
	return m, ok
}

// Manuscript implements GetManuscript.
func (l *Library) Manuscript() Manuscript {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.manuscript
}

// Items returns every item, sorted by id.
func (l *Library) Items() []LibraryItem {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]LibraryItem, 0, len(l.items))
	for _, it := range l.items {
		out = append(out, it)
	}
	slices.SortFunc(out, func(a, b LibraryItem) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Lookups returns the library's getters.
func (l *Library) Lookups() Lookups {
	return Lookups{Model: l.Model, LibraryItem: l.Item, Manuscript: l.Manuscript}
}
