// Package ipc exposes a node tree over JSON-RPC and ships the matching client
// used by the CLI.
//
// The wiretapd gateway serves the NodeTree service on TCP or a Unix socket
// (address "unix:<path>"). A client opens a session with Hello, announcing its
// client library version and a session ID; the gateway rejects versions it
// does not support and refuses calls from sessions it has not seen. Errors the
// node store reports travel back verbatim so the CLI can show the remote
// message. The client decorates calls with context timeouts so commands fail
// fast when the gateway is offline.
//
// NewBinding wraps the client in a wiretap.PathBinding, which is how the CLI's
// session handler reaches a remote host.
package ipc
