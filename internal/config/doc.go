// Package config loads, normalizes, and validates the TOML configuration that
// drives the easel daemon and CLI.
package config
