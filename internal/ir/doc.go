// Package ir provides the canonical encoding used for fingerprints and
// snapshots.
//
// ir imports nothing internal. Every other package may depend on it.
//
// Key design constraints:
//   - Canonical JSON follows RFC 8785 (sorted keys, NFC strings, no HTML escaping)
//   - Numbers are integers only
//   - Fingerprints are domain-separated SHA-256 over canonical JSON
package ir
