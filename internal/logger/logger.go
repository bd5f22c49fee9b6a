// Package logger is a small leveled wrapper around the standard log package.
package logger

import (
	"log"
	"strings"
	"sync/atomic"
)

// Level orders log severities; lower values are more verbose.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var current atomic.Int32

func init() {
	current.Store(int32(LevelInfo))
}

// SetLevel sets the global level from its name ("DEBUG", "INFO", "WARN", "ERROR").
// Unknown names fall back to INFO.
func SetLevel(name string) {
	current.Store(int32(ParseLevel(name)))
}

// ParseLevel converts a level name into a Level, defaulting to LevelInfo.
func ParseLevel(name string) Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// Enabled reports whether messages at lvl are currently written.
func Enabled(lvl Level) bool {
	return Level(current.Load()) <= lvl
}

func Debugf(format string, v ...any) {
	if Enabled(LevelDebug) {
		log.Printf("DEBUG: "+format, v...)
	}
}

func Infof(format string, v ...any) {
	if Enabled(LevelInfo) {
		log.Printf("INFO: "+format, v...)
	}
}

func Warnf(format string, v ...any) {
	if Enabled(LevelWarn) {
		log.Printf("WARN: "+format, v...)
	}
}

func Errorf(format string, v ...any) {
	if Enabled(LevelError) {
		log.Printf("ERROR: "+format, v...)
	}
}

// Fatalf logs and exits the process.
func Fatalf(format string, v ...any) {
	log.Fatalf("FATAL: "+format, v...)
}
