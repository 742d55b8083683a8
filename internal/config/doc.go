// Package config loads, normalizes, and validates mediasort configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks for the input
// and output directories. The Config value is constructed once at process start
// and handed by pointer to every component constructor; nothing in the module
// reads configuration from package state.
//
// The catalog schema itself (table DDL and the ordered column statements) is
// configuration data too, so existing databases can be migrated by editing the
// config rather than rebuilding the binary.
package config
