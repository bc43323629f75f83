package logging

import (
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/godbus/dbus/v5"
)

var debugEnabled atomic.Bool

// EnableDebug turns on verbose debug logging for the application lifecycle.
func EnableDebug() {
	debugEnabled.Store(true)
	log.Printf("[DEBUG] debug logging enabled")
}

// DebugEnabled reports whether debug logging is active.
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// Debugf emits a formatted debug log message when debugging is enabled.
func Debugf(format string, args ...interface{}) {
	if !DebugEnabled() {
		return
	}
	log.Printf("[DEBUG] "+format, args...)
}

// Logger prefixes every message with a component name, e.g. "mirror: ".
type Logger struct {
	prefix string
}

// Scope returns a Logger for the named component.
func Scope(component string) Logger {
	return Logger{prefix: component + ": "}
}

// Printf logs an operator-facing message.
func (l Logger) Printf(format string, args ...interface{}) {
	log.Printf(l.prefix+format, args...)
}

// Debugf logs a diagnostic message when debugging is enabled.
func (l Logger) Debugf(format string, args ...interface{}) {
	Debugf(l.prefix+format, args...)
}

// LogCall emits an outbound D-Bus method call when debugging is enabled.
func LogCall(dest string, path dbus.ObjectPath, method string, args ...interface{}) {
	if !DebugEnabled() {
		return
	}
	log.Printf("[DEBUG] dbus call %s %s %s(%s)", dest, path, method, formatArgs(args))
}

// LogSignal emits an outbound D-Bus signal when debugging is enabled.
func LogSignal(path dbus.ObjectPath, name string, args ...interface{}) {
	if !DebugEnabled() {
		return
	}
	log.Printf("[DEBUG] dbus signal %s %s(%s)", path, name, formatArgs(args))
}

func formatArgs(args []interface{}) string {
	var b strings.Builder
	for idx, arg := range args {
		if idx > 0 {
			b.WriteString(", ")
		}
		switch v := arg.(type) {
		case string:
			b.WriteString(fmt.Sprintf("%q", truncate(v, 64)))
		case dbus.Variant:
			b.WriteString(v.String())
		default:
			b.WriteString(fmt.Sprintf("%v", v))
		}
	}
	return b.String()
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max-3] + "..."
}
