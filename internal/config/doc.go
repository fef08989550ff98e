// Package config loads, normalizes, and validates wiretap configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// WIRETAP_VERSION and WIRETAP_SERVER. The Config type centralizes the knobs
// the CLI and the wiretapd gateway need: which host and backend to talk to,
// the client library version, where the node database lives, and the project
// defaults create-project applies.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
