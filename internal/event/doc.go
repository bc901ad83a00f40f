// Package event defines the in-memory data model the analyses run on:
// collisions with their reconstructed tracks, pre-built heavy-flavour
// candidates, and generator-level Monte-Carlo particles.
//
// Everything here is read-only once decoded. A Collision owns its Tracks
// for one processing pass; candidates hold copies of the daughter records
// they need, so the selector never has to resolve indices.
//
// Input is newline-delimited JSON, one record per line. Table storage and
// upstream event selection are not this package's concern.
package event
