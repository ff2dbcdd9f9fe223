// Package testutil provides deterministic stand-ins for tests: a fixed id
// generator, a scriptable style processor and a manual spawner for deferred
// regeneration.
package testutil
