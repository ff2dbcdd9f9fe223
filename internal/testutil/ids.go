package testutil

import "fmt"

// FixedIDGenerator generates the same id for every object of a type.
//
// This enables golden snapshot comparison: bibliography element ids no
// longer depend on time or randomness.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	token string
}

// NewFixedIDGenerator creates a generator returning "<objectType>:<token>".
//
// If token is empty, "test-id" is used.
func NewFixedIDGenerator(token string) *FixedIDGenerator {
	if token == "" {
		token = "test-id"
	}
	return &FixedIDGenerator{token: token}
}

// Generate implements ids.Generator.
func (g *FixedIDGenerator) Generate(objectType string) string {
	return fmt.Sprintf("%s:%s", objectType, g.token)
}
