// Package ids generates object identifiers of the form "<Type>:<token>",
// e.g. "MPBibliographyElement:0192F0A4-...".
package ids

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Object type prefixes.
const (
	TypeCitation            = "MPCitation"
	TypeBibliographyElement = "MPBibliographyElement"
	TypeBibliographyItem    = "MPBibliographyItem"
	TypeManuscript          = "MPManuscript"
)

// Generator creates a fresh identifier for an object type.
// Implemented by UUIDv7Generator (production) and Sequential (tests).
type Generator interface {
	Generate(objectType string) string
}

// UUIDv7Generator produces time-sortable identifiers.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns "<objectType>:<UPPERCASE UUIDv7>".
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate(objectType string) string {
	return objectType + ":" + strings.ToUpper(uuid.Must(uuid.NewV7()).String())
}

// Sequential returns "<objectType>:<n>" with a counter per object type.
// Useful wherever output must be reproducible.
//
// Thread-safety: Sequential is safe for concurrent use via internal mutex.
type Sequential struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewSequential creates a generator whose counters start at 1.
func NewSequential() *Sequential {
	return &Sequential{counts: make(map[string]int)}
}

func (g *Sequential) Generate(objectType string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counts[objectType]++
	return fmt.Sprintf("%s:%d", objectType, g.counts[objectType])
}

// ObjectType returns the prefix of id, or "" when id has none.
func ObjectType(id string) string {
	prefix, _, ok := strings.Cut(id, ":")
	if !ok {
		return ""
	}
	return prefix
}
