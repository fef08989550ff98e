// Package gateway runs wiretapd: it owns the node database and serves it to
// CLI clients over JSON-RPC.
//
// A gofrs/flock lock on the configured lock file keeps a single gateway per
// database. Start acquires the lock, verifies the database directory, opens
// the node store, and begins serving; Stop reverses those steps.
package gateway
