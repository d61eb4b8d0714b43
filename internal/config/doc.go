// Package config loads, normalizes, and validates entrain's TOML
// configuration.
//
// Configuration is resolved once at startup (explicit --config path, then
// ~/.config/entrain/config.toml, then ./entrain.toml), merged over built-in
// defaults, and returned as an immutable snapshot: components receive the
// loaded Config and never mutate it. Analysis parameters derived from it
// travel as value types so a run's inputs are fixed at entry.
package config
