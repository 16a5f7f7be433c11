// Package config loads, validates, and normalizes retell's TOML
// configuration.
//
// Load resolves the config path (explicit flag, then
// ~/.config/retell/config.toml, then ./retell.toml), applies defaults for
// every absent value, expands ~ in path fields, and pulls API credentials
// from the environment when the file omits them. Downstream packages receive
// a fully-resolved Config and never consult the environment themselves.
package config
