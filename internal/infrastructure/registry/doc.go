// Package registry holds the signer's token, key, certificate and
// certificate request records.
//
// Records live in flat maps keyed by ID and reference their parent by ID.
// Readers take an immutable Snapshot; writers run inside Update, which works
// on a private copy of the state, persists the changed records through a
// Store and only then publishes the copy. A failed Update leaves the
// previous snapshot in place.
package registry
