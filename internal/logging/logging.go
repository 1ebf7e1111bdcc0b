// Package logging centralizes the pipeline's structured logging through
// github.com/tliron/commonlog, the library the teacher wires up for its
// language server (cmd/kanso-lsp/main.go's commonlog.Configure(1, nil)
// call), generalized here to the whole CheckDP pipeline instead of one
// LSP process. Get returns one named logger per package, mirroring
// original_source/checkdp/*.py's per-module logging.getLogger(__name__)
// convention.
package logging

import (
	"github.com/tliron/commonlog"
)

// Configure sets the global verbosity (0 = critical only ... 3 = debug)
// and, when path is non-empty, adds a file logger for the duration of
// one CLI invocation — the Go analogue of __main__.py's
// logging.FileHandler(output_folder / 'run.log').
func Configure(verbosity int, path string) {
	var logPath *string
	if path != "" {
		logPath = &path
	}
	commonlog.Configure(verbosity, logPath)
}

// Get returns the named logger for one pipeline stage, e.g.
// "checkdp.preprocess", "checkdp.transform", "checkdp.cegis".
func Get(name string) commonlog.Logger {
	return commonlog.GetLogger(name)
}

// VerbosityFromLevel maps the CLI's --loglevel string (spec.md §6) onto
// commonlog's integer verbosity scale.
func VerbosityFromLevel(level string) int {
	switch level {
	case "error":
		return 0
	case "warning":
		return 1
	case "info":
		return 2
	case "debug":
		return 3
	default:
		return 2
	}
}
