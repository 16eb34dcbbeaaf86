// Package debug provides category-gated debug logging for xsr.
//
// Two orthogonal controls:
//   - Categories (WHAT to debug): XSR_DEBUG env or debug.categories in config
//   - Levels (HOW MUCH detail): XSR_LOG_LEVEL env or debug.level in config
//
// Usage:
//
//	debug.Log("request", "dispatch", "id", id, "url", url)
//	if debug.Enabled("transport") { /* expensive formatting */ }
//
// Categories: request, registry, transport, transform, validate, storage, config, all.
// Levels: ERROR, WARN, INFO, DEBUG, TRACE.
package debug

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync/atomic"
	"unicode/utf8"
)

const (
	// EnvCategories names the environment variable listing enabled categories.
	EnvCategories = "XSR_DEBUG"
	// EnvLevel names the environment variable holding the log level.
	EnvLevel = "XSR_LOG_LEVEL"
)

// LevelTrace is below slog.LevelDebug. At TRACE, full callback scripts
// and payloads are logged.
const LevelTrace = slog.LevelDebug - 4

// categories holds the enabled category set. Swapped atomically so Init
// may run while requests are in flight.
var categories atomic.Pointer[map[string]bool]

func init() {
	setCategories(parseCategories(os.Getenv(EnvCategories)))
}

func setCategories(m map[string]bool) {
	categories.Store(&m)
}

// Init configures categories and the default slog logger. Environment
// values take precedence over the arguments. format is "text" or "json".
func Init(configCategories, configLevel, format string) *slog.Logger {
	return InitWriter(os.Stderr, configCategories, configLevel, format)
}

// InitWriter is Init with an explicit output.
func InitWriter(w io.Writer, configCategories, configLevel, format string) *slog.Logger {
	cats := os.Getenv(EnvCategories)
	if cats == "" {
		cats = configCategories
	}
	setCategories(parseCategories(cats))

	level := os.Getenv(EnvLevel)
	if level == "" {
		level = configLevel
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

// Enabled reports whether debug output is active for the given category.
func Enabled(category string) bool {
	m := *categories.Load()
	return m["all"] || m[category]
}

// Log emits a debug message for the given category. No-op when the
// category is disabled.
func Log(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Debug(msg, append([]any{"debug", category}, args...)...)
}

// Trace emits a trace-level message for the given category.
func Trace(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Log(context.Background(), LevelTrace, msg, append([]any{"debug", category}, args...)...)
}

// TraceIsEnabled reports whether TRACE level is active for the given category.
func TraceIsEnabled(category string) bool {
	if !Enabled(category) {
		return false
	}
	return slog.Default().Enabled(context.Background(), LevelTrace)
}

// Raw writes plain text to stderr without slog formatting. Only emitted
// when the category is enabled and the level is TRACE.
func Raw(category string, text string) {
	if !TraceIsEnabled(category) {
		return
	}
	fmt.Fprintln(os.Stderr, text)
}

// ParseLevel converts a level string to a slog.Level.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Categories returns the enabled categories in sorted order.
func Categories() []string {
	m := *categories.Load()
	result := make([]string, 0, len(m))
	for k := range m {
		result = append(result, k)
	}
	sort.Strings(result)
	return result
}

// Truncate shortens s to at most maxLen bytes without splitting a UTF-8
// sequence, appending "..." if anything was cut.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	for _, cat := range strings.Split(s, ",") {
		cat = strings.TrimSpace(strings.ToLower(cat))
		if cat != "" {
			m[cat] = true
		}
	}
	return m
}
