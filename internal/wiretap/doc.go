// Package wiretap manages project and user hierarchies on a Wiretap node-tree
// service.
//
// The Handler owns a single session against one host for its lifetime. It
// translates high-level administration requests (create a project, create or
// delete a user, list volumes) into node-tree walks and node creations issued
// through a Binding, the narrow transport interface the rest of the package
// depends on. Production code binds it to the gateway client or the local node
// store through NewPathBinding; tests bind it to the in-memory tree in
// wiretaptest.
//
// The Handler is not safe for concurrent use. One CLI invocation owns one
// Handler and must Close it exactly once; Close is idempotent so it can be
// deferred on every exit path.
package wiretap
