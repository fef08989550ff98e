// Package nodestore persists a Wiretap-style node tree in SQLite.
//
// The Store is addressed by slash paths and implements wiretap.PathBackend, so
// it serves both the local CLI backend and the wiretapd gateway. It models the
// service rules the client depends on: a node created under a volume becomes a
// project below /projects hosted by that volume, a new workspace receives its
// library lists, and display names are unique among siblings.
//
// Schema changes bump the version in schema.go; databases created with another
// version are rejected on open.
package nodestore
