// Package logging wires the execution core's structured logger. It mirrors
// the teacher's turbo/debug and turbo/logging pattern of building one root
// log.Logger at process start and threading it into every component via
// constructor injection rather than a package-level global.
package logging

import (
	"os"

	"github.com/erigontech/erigon-lib/log/v3"
)

// Config controls root logger construction.
type Config struct {
	// Verbosity is a log/v3 Lvl (log.LvlError .. log.LvlTrace).
	Verbosity log.Lvl
	// JSON selects structured JSON output instead of the terminal format.
	JSON bool
}

// New builds the root logger for the process. Every long-lived component
// (Engine, StateStore, RpcDispatcher) takes a log.Logger produced from
// this root via With(...), never the global default logger.
func New(cfg Config) log.Logger {
	var handler log.Handler
	if cfg.JSON {
		handler = log.StreamHandler(os.Stderr, log.JsonFormat())
	} else {
		handler = log.StreamHandler(os.Stderr, log.TerminalFormat(true))
	}
	logger := log.New()
	logger.SetHandler(log.LvlFilterHandler(cfg.Verbosity, handler))
	return logger
}
