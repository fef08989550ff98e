// Package main hosts the wiretap CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into Handler calls
// that create projects, create and delete users, and inspect a Wiretap host.
// It centralizes configuration resolution, backend selection, and logging
// setup so subcommands only deal with arguments and output.
//
// Keep this package lean: node tree behavior belongs in internal/wiretap and
// transport details in internal/ipc and internal/nodestore.
package main
