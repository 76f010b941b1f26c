// Package console renders the build tool's output: a leveled log channel
// shared across command invocations, and terminal progress indicators.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Level controls which messages a Channel emits.
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

// ParseLevel maps a verbosity name to a Level. Unknown names default to
// info.
func ParseLevel(name string) Level {
	switch strings.ToLower(name) {
	case "error", "quiet":
		return LevelError
	case "warn", "warning":
		return LevelWarn
	case "debug":
		return LevelDebug
	case "trace":
		return LevelTrace
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARNING"
	case LevelDebug:
		return "DEBUG"
	case LevelTrace:
		return "TRACE"
	default:
		return "INFO"
	}
}

// Channel is the log output surface. It is the one deliberately shared
// handle in the system: sequential command invocations write to the same
// channel, and its lifetime spans the whole program, not one invocation.
type Channel struct {
	mu     sync.Mutex
	w      io.Writer
	colors *Colors
	level  Level
}

// NewChannel returns a channel writing to w, filtered at level.
func NewChannel(w io.Writer, colors *Colors, level Level) *Channel {
	if colors == nil {
		colors = NewColors(false)
	}
	return &Channel{w: w, colors: colors, level: level}
}

// SetLevel changes the verbosity filter.
func (c *Channel) SetLevel(level Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.level = level
}

// Trace logs at trace level.
func (c *Channel) Trace(format string, args ...interface{}) {
	c.emit(LevelTrace, format, args...)
}

// Debug logs at debug level.
func (c *Channel) Debug(format string, args ...interface{}) {
	c.emit(LevelDebug, format, args...)
}

// Info logs at info level.
func (c *Channel) Info(format string, args ...interface{}) {
	c.emit(LevelInfo, format, args...)
}

// Warn logs at warning level.
func (c *Channel) Warn(format string, args ...interface{}) {
	c.emit(LevelWarn, format, args...)
}

// Error logs at error level.
func (c *Channel) Error(format string, args ...interface{}) {
	c.emit(LevelError, format, args...)
}

// Record emits a structured log entry from the build tool, prefixed with
// its level tag and emitter id.
func (c *Channel) Record(level Level, tag string, emitter string, message string) {
	if emitter != "" {
		c.emitTagged(level, tag, "%s: %s", emitter, message)
		return
	}
	c.emitTagged(level, tag, "%s", message)
}

// AppendLine forwards a raw passthrough line verbatim, at info level.
func (c *Channel) AppendLine(raw string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.level < LevelInfo {
		return
	}
	fmt.Fprintln(c.w, raw)
}

// Clear marks a boundary between invocations. A terminal cannot take back
// what it already printed, so this only emits a separator when running
// verbose enough to make the boundary visible.
func (c *Channel) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.level >= LevelDebug {
		fmt.Fprintln(c.w, c.colors.Gray(strings.Repeat("─", 40)))
	}
}

// Show is a no-op on a terminal; the channel is already visible. Kept so
// callers can treat the console like an editor output pane.
func (c *Channel) Show() {}

func (c *Channel) emit(level Level, format string, args ...interface{}) {
	c.emitTagged(level, level.String(), format, args...)
}

func (c *Channel) emitTagged(level Level, tag string, format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if level > c.level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintf(c.w, "%s %s\n", c.colors.LevelColor(tag, fmt.Sprintf("[%-8s]", tag)), msg)
}
