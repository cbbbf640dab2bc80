// Package logging assembles the slog loggers used by the cartridge CLI.
//
// Console output is meant for people at a terminal; JSON output is meant for
// CI logs and collectors. The "auto" format picks between them by checking
// whether the destination is a terminal. The library itself never constructs
// a logger: it takes whatever *slog.Logger the caller passes in Config.
package logging
