package logs

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu      sync.RWMutex
	base    = zerolog.Nop()
	verbose bool
)

// Init routes every logger to w. Verbose enables debug-level output, including LogV.
func Init(w io.Writer, isVerbose bool) {
	if w == nil {
		w = io.Discard
	}
	level := zerolog.InfoLevel
	if isVerbose {
		level = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	mu.Lock()
	base = zerolog.New(w).Level(level).With().Timestamp().Str("app", "asciiplay").Logger()
	verbose = isVerbose
	mu.Unlock()
}

// Verbose reports whether debug logging is on.
func Verbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// Base returns the root logger.
func Base() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// For returns a child logger tagged with the component name.
func For(component string) zerolog.Logger {
	l := Base()
	return l.With().Str("component", component).Logger()
}

// LogV prints a formatted log message only when verbose logging is enabled.
func LogV(format string, args ...interface{}) {
	if !Verbose() {
		return
	}
	l := Base()
	l.Debug().Msg(fmt.Sprintf(format, args...))
}
