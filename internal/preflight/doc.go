// Package preflight provides readiness checks for the gateway and the
// filesystem paths the node store depends on.
//
// These checks run in two contexts:
//   - wiretapd calls GatewayChecks before opening the node store and refuses
//     to start when the database directory is not writable.
//   - The CLI "wiretap status" command calls RunAll to display whether the
//     configured backend is usable.
package preflight
