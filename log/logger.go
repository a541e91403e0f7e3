// Package log wraps op/go-logging behind a small leveled interface so engine
// packages can log without binding to the backend wiring.
package log

import (
	"io"
	"os"

	"github.com/op/go-logging"
)

// Level selects the minimum severity that reaches the sink.
type Level logging.Level

const (
	Debug Level = iota
	Info
	Notice
	Warning
	Error
)

// Millisecond timestamps so per-frame work is visible between consecutive
// lines.
var format = logging.MustStringFormatter(
	`%{color}%{time:15:04:05.000} %{module} %{level:.4s}%{color:reset} %{message}`,
)

var backend logging.LeveledBackend

// Logger is the leveled logging surface handed to engine packages.
type Logger interface {
	Debug(v ...any)
	Debugf(format string, v ...any)

	Info(v ...any)
	Infof(format string, v ...any)

	Notice(v ...any)
	Noticef(format string, v ...any)

	Warning(v ...any)
	Warningf(format string, v ...any)

	Error(v ...any)
	Errorf(format string, v ...any)
}

// New returns a logger whose lines are tagged with the given subsystem name.
func New(name string) Logger {
	return logging.MustGetLogger(name)
}

// SetSink redirects all loggers to the given writer.
func SetSink(sink io.Writer) {
	raw := logging.NewLogBackend(sink, "", 0)
	backend = logging.AddModuleLevel(logging.NewBackendFormatter(raw, format))
	backend.SetLevel(logging.INFO, "")
	logging.SetBackend(backend)
}

// SetLevel sets the minimum severity emitted by all loggers.
func SetLevel(level Level) {
	backend.SetLevel(backendLevel(level), "")
}

func backendLevel(level Level) logging.Level {
	switch level {
	case Debug:
		return logging.DEBUG
	case Notice:
		return logging.NOTICE
	case Warning:
		return logging.WARNING
	case Error:
		return logging.ERROR
	default:
		return logging.INFO
	}
}

// Frame statistics go out at Info, so that is the default floor.
func init() {
	SetSink(os.Stdout)
	SetLevel(Info)
}
