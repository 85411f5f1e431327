// Package logging sets up the process log sinks: structured JSONL on
// stderr when ADAPTER_LOG is on, and the plain stdout echo writer for
// ADAPTER_ECHO.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns the root logger. Disabled logging yields a no-op logger
// so callers never need to nil-check.
func New(enabled bool) zerolog.Logger {
	if !enabled {
		return zerolog.Nop()
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.ErrorFieldName = "err"
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// EchoWriter returns the sink for datagram echo output. Echo lines are
// raw KEY=VALUE text, deliberately not log records, so the adapter's
// stdout can be piped the same way the monitored service's would be.
func EchoWriter(enabled bool) io.Writer {
	if !enabled {
		return nil
	}
	return os.Stdout
}
