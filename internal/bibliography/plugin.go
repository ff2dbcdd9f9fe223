package bibliography

import (
	"github.com/roach88/citesync/internal/citation"
	"github.com/roach88/citesync/internal/doc"
	"github.com/roach88/citesync/internal/editor"
)

// PluginKey names the bibliography plugin in logs.
const PluginKey = "bibliography"

// Plugin connects the cache, the coordinator and the decoration builder to
// an editor.
type Plugin struct {
	cache *Cache
	coord *Coordinator
}

var _ editor.Plugin = (*Plugin)(nil)

// New builds a plugin with its own cache and coordinator.
func New(lookups citation.Lookups, source ProcessorSource, opts ...Option) *Plugin {
	coord := NewCoordinator(nil, source, opts...)
	coord.cache = NewCache(lookups, coord.logger)
	return NewPlugin(coord)
}

// NewPlugin wraps an existing coordinator.
func NewPlugin(coord *Coordinator) *Plugin {
	return &Plugin{cache: coord.cache, coord: coord}
}

// Cache returns the plugin's derived-state cache.
func (p *Plugin) Cache() *Cache { return p.cache }

// Coordinator returns the plugin's coordinator.
func (p *Plugin) Coordinator() *Coordinator { return p.coord }

func (p *Plugin) Key() string { return PluginKey }

func (p *Plugin) Init(st editor.State) {
	p.cache.Recompute(st.Doc)
}

func (p *Plugin) Apply(_ *doc.Transaction, _, next editor.State) {
	p.cache.Recompute(next.Doc)
}

// Augment runs a CHECK comparing the derived state of old with the current
// one. A transaction that left the document alone compares equal.
func (p *Plugin) Augment(tr *doc.Transaction, old, _ editor.State) []doc.Mutation {
	current := p.cache.Current()
	prior := p.cache.Previous()
	if current != nil && current.Doc == old.Doc {
		prior = current
	}
	return p.coord.Run(tr, prior, current)
}

// Decorations derives decorations for st without disturbing the cache.
func (p *Plugin) Decorations(st editor.State) []editor.Decoration {
	state := p.cache.Current()
	if state == nil || state.Doc != st.Doc {
		state = p.cache.Derive(st.Doc)
	}
	return BuildDecorations(st.Doc, state.Occurrences, p.cache.Lookups().LibraryItem)
}
