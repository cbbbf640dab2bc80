// Package main hosts the cartridge CLI entrypoint and command graph.
//
// The Cobra-based command tree builds archives from JSON plan files, audits
// them (integrity plus content policies), lists their entries and prints
// individual files. Configuration resolution and logger setup live in the
// command context so subcommands only deal with their own flags.
package main
