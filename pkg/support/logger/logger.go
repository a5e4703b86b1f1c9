// Package logger is the leveled logging facade of the heliomorph pipeline.
// Output goes through a single standard-library logger so destinations can be
// swapped in tests.
package logger

import (
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// Level orders log severities from most to least verbose.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

// String returns the upper-case name of the level.
func (l Level) String() string {
	if l < LevelDebug || l > LevelFatal {
		return "INFO"
	}
	return levelNames[l]
}

var (
	current atomic.Int32
	std     = log.New(os.Stderr, "", log.LstdFlags)
)

func init() {
	current.Store(int32(LevelInfo))
}

// ParseLevel maps a case-insensitive level name to a Level. Unknown names
// report false and map to INFO.
func ParseLevel(name string) (Level, bool) {
	for i, n := range levelNames {
		if strings.EqualFold(name, n) {
			return Level(i), true
		}
	}
	return LevelInfo, false
}

// SetLogLevel sets the global threshold from a level name. An unknown name
// falls back to INFO and says so on the log output.
func SetLogLevel(name string) {
	level, ok := ParseLevel(name)
	current.Store(int32(level))
	if !ok {
		std.Printf("[WARN] Unknown log level '%s', using INFO.", name)
	}
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

func logf(level Level, format string, v ...interface{}) {
	if int32(level) < current.Load() {
		return
	}
	std.Printf("["+level.String()+"] "+format, v...)
}

// Debugf logs at DEBUG level.
func Debugf(format string, v ...interface{}) { logf(LevelDebug, format, v...) }

// Infof logs at INFO level.
func Infof(format string, v ...interface{}) { logf(LevelInfo, format, v...) }

// Warnf logs at WARN level.
func Warnf(format string, v ...interface{}) { logf(LevelWarn, format, v...) }

// Errorf logs at ERROR level.
func Errorf(format string, v ...interface{}) { logf(LevelError, format, v...) }

// Fatalf logs at FATAL level and exits with status 1.
func Fatalf(format string, v ...interface{}) {
	std.Printf("[FATAL] "+format, v...)
	os.Exit(1)
}
