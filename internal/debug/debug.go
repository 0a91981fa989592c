package debug

import (
	"io"
	"log"
	"os"
	"sync"
)

// Debug levels
const (
	LevelOff     = 0 // No output
	LevelInfo    = 1 // Important info (connection state, errors)
	LevelLive    = 2 // Live info (attempts, shots, settings written)
	LevelVerbose = 3 // Verbose (connect stages, widget lookups)
	LevelTrace   = 4 // Trace (library calls, gphoto2 command lines, GPIO)
)

const prefix = "[camctl] "

var (
	mu     sync.RWMutex
	level  int
	out    io.Writer = os.Stdout
	logger *log.Logger
)

// Init initializes the debug system with a level (0-4).
// 0 = no output
// 1 = important info (connected, disconnected, failures)
// 2 = live info (retry attempts, captures, values written)
// 3 = verbose (connect stages, config lookups, timings)
// 4 = trace (library primitives, exec command lines, GPIO)
func Init(debugLevel int) {
	mu.Lock()
	defer mu.Unlock()
	level = debugLevel
	logger = nil
	if level > LevelOff {
		logger = log.New(out, prefix, log.LstdFlags|log.Lmicroseconds)
	}
}

// SetOutput redirects messages to w. Used by tests and the interactive shell.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	if logger != nil {
		logger.SetOutput(w)
	}
}

// Level returns the current debug level.
func Level() int {
	mu.RLock()
	defer mu.RUnlock()
	return level
}

// IsEnabled returns true if debug level is >= the requested level.
func IsEnabled(minLevel int) bool {
	return Level() >= minLevel
}

func logf(minLevel int, format string, args ...interface{}) {
	mu.RLock()
	l := logger
	ok := level >= minLevel
	mu.RUnlock()
	if ok && l != nil {
		l.Printf(format, args...)
	}
}

// --- Level 1 functions (Info): important info ---

// Info prints a level 1 message (important info).
func Info(format string, args ...interface{}) {
	logf(LevelInfo, "[INFO] "+format, args...)
}

// Summary prints an important summary (level 1).
func Summary(title string) {
	logf(LevelInfo, "═══════════════════════════════════════")
	logf(LevelInfo, "  %s", title)
	logf(LevelInfo, "═══════════════════════════════════════")
}

// State prints a connection state change (level 1).
func State(from, to string) {
	logf(LevelInfo, "[INFO] Camera state: %s -> %s", from, to)
}

// --- Level 2 functions (Live): real-time info ---

// Live prints a level 2 message (live info).
func Live(format string, args ...interface{}) {
	logf(LevelLive, "[LIVE] "+format, args...)
}

// Attempt prints a connection attempt (level 2).
func Attempt(n int, model, port string) {
	if model == "" && port == "" {
		logf(LevelLive, "[LIVE] Connection attempt %d (auto-detect)", n)
		return
	}
	logf(LevelLive, "[LIVE] Connection attempt %d (model=%q, port=%q)", n, model, port)
}

// Shot prints a capture (level 2).
func Shot(index int, location string, size int) {
	logf(LevelLive, "[LIVE] Photo %d taken: %s (%d bytes)", index, location, size)
}

// --- Level 3 functions (Verbose): everything ---

// Verbose prints a level 3 message (verbose).
func Verbose(format string, args ...interface{}) {
	logf(LevelVerbose, "[VERBOSE] "+format, args...)
}

// PrintStruct prints a struct in formatted form (level 3).
func PrintStruct(name string, v interface{}) {
	logf(LevelVerbose, "[VERBOSE] %s: %+v", name, v)
}

// Section prints a section separator (level 3).
func Section(name string) {
	logf(LevelVerbose, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	logf(LevelVerbose, "  %s", name)
	logf(LevelVerbose, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
}

// Step prints a numbered step (level 3).
func Step(num int, description string) {
	logf(LevelVerbose, "[VERBOSE] Step %d: %s", num, description)
}

// Value prints a named value in formatted form (level 1).
func Value(name string, value interface{}) {
	logf(LevelInfo, "[INFO]   %s = %v", name, value)
}

// --- Level 4 functions (Trace): very low level ---

// Trace prints a level 4 message (trace).
func Trace(format string, args ...interface{}) {
	logf(LevelTrace, "[TRACE] "+format, args...)
}

// Call prints a device-library primitive and its result code (level 4).
func Call(op string, code int) {
	logf(LevelTrace, "[CALL] %s -> %d", op, code)
}

// GPIO prints a GPIO operation (level 4).
func GPIO(operation string, pin int, value interface{}) {
	logf(LevelTrace, "[GPIO] %s pin=%d value=%v", operation, pin, value)
}

// --- General functions ---

// Error prints a debug error (level 1+).
func Error(err error) {
	logf(LevelInfo, "[ERROR] %v", err)
}

// Errorf prints a formatted error message (level 1+).
func Errorf(format string, args ...interface{}) {
	logf(LevelInfo, "[ERROR] "+format, args...)
}
