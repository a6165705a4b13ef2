// Package enginelog is the shared Logger capability used by every engine
// component. It is a leaf package (no dependency on the engine root) so that
// coords, voxel, editoverlay, lod, meshing, chunkmanager, collision, and
// renderer can all depend on it without an import cycle back through the
// root package, which re-exports these names for embedders.
package enginelog

import (
	"fmt"
	"log"
	"os"
	"sync"
)

// Logger is the logging capability every engine component accepts. Levels
// correspond to the taxonomy in the error-handling design: Verbose maps to
// Debugf, Log to Infof, Warning to Warnf, Error to Errorf.
type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// DefaultLogger writes to stdout/stderr via the standard library's log
// package, prefixed with a component name.
type DefaultLogger struct {
	mu     sync.Mutex
	debug  bool
	prefix string
	out    *log.Logger
	err    *log.Logger
}

// NewDefaultLogger builds a DefaultLogger tagged with prefix. Debugf is a
// no-op until debug is true or SetDebug(true) is called.
func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	flags := log.LstdFlags | log.Lmicroseconds
	return &DefaultLogger{
		debug:  debug,
		prefix: prefix,
		out:    log.New(os.Stdout, "", flags),
		err:    log.New(os.Stderr, "", flags),
	}
}

func (l *DefaultLogger) DebugEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debug
}

func (l *DefaultLogger) SetDebug(enabled bool) {
	l.mu.Lock()
	l.debug = enabled
	l.mu.Unlock()
}

func (l *DefaultLogger) prefixf(level string, format string, args ...any) string {
	if l.prefix != "" {
		return fmt.Sprintf("[%s] %s: %s", l.prefix, level, fmt.Sprintf(format, args...))
	}
	return fmt.Sprintf("%s: %s", level, fmt.Sprintf(format, args...))
}

func (l *DefaultLogger) Debugf(format string, args ...any) {
	l.mu.Lock()
	dbg := l.debug
	l.mu.Unlock()
	if !dbg {
		return
	}
	l.out.Print(l.prefixf("VERBOSE", format, args...))
}

func (l *DefaultLogger) Infof(format string, args ...any) {
	l.out.Print(l.prefixf("LOG", format, args...))
}

func (l *DefaultLogger) Warnf(format string, args ...any) {
	l.err.Print(l.prefixf("WARN", format, args...))
}

func (l *DefaultLogger) Errorf(format string, args ...any) {
	l.err.Print(l.prefixf("ERROR", format, args...))
}

// nopLogger discards everything. Used as the default when an embedder
// doesn't supply a Logger, so wiring logging is never mandatory.
type nopLogger struct{}

// NewNopLogger returns a Logger that discards all output.
func NewNopLogger() Logger { return &nopLogger{} }

func (n *nopLogger) DebugEnabled() bool                { return false }
func (n *nopLogger) SetDebug(enabled bool)             {}
func (n *nopLogger) Debugf(format string, args ...any) {}
func (n *nopLogger) Infof(format string, args ...any)  {}
func (n *nopLogger) Warnf(format string, args ...any)  {}
func (n *nopLogger) Errorf(format string, args ...any) {}

// OrNop returns l if non-nil, otherwise the shared no-op logger. Every
// package-level component constructor should route its Logger parameter
// through this so a nil Logger never panics a call site.
func OrNop(l Logger) Logger {
	if l == nil {
		return NewNopLogger()
	}
	return l
}
