// Package config loads, normalizes, and validates cartridge CLI configuration.
//
// Settings come from a TOML file (by default ~/.config/cartridge/config.toml,
// falling back to ./cartridge.toml) layered over repository defaults. Unknown
// keys are rejected so that a misspelt option fails loudly instead of being
// silently ignored. The Config type translates into the library's
// cartridge.Config and the verifier's policy set.
package config
