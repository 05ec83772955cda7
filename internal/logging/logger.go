package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const (
	defaultBufferSize = 1000
	defaultIdentifier = "reaper"
)

// Logger is a duck-typed interface satisfied by *slog.Logger.
// Use this interface instead of *slog.Logger to decouple from the concrete type.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var (
	moduleLoggers   = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	globalConfig    Config
	globalLevelVar  = &slog.LevelVar{}
	isInitialized   bool
	mutex           sync.RWMutex
	logBuffer       *RingBuffer
	logCallback     LogCallback
)

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`

	// Identifier is the journal SYSLOG_IDENTIFIER. Defaults to "reaper".
	Identifier string `toml:"-"`

	// Output receives text or JSON records. Defaults to os.Stdout; one-shot
	// commands pass os.Stderr so their own output stays machine-readable.
	Output io.Writer `toml:"-"`

	// BufferSize is the number of entries kept for the log stream.
	BufferSize int `toml:"-"`
}

// Initialize sets up the logging system. Loggers handed out earlier keep
// working and pick up the new handlers and levels.
func Initialize(config Config) {
	mutex.Lock()
	defer mutex.Unlock()

	if config.Identifier == "" {
		config.Identifier = defaultIdentifier
	}
	if config.BufferSize <= 0 {
		config.BufferSize = defaultBufferSize
	}
	globalConfig = config
	isInitialized = true

	logBuffer = NewRingBuffer(config.BufferSize)
	globalLevelVar.Set(levelOrDefault(config.Level, slog.LevelInfo))

	// Handlers built before Initialize lack the configured sinks
	for module, levelVar := range moduleLevelVars {
		levelVar.Set(moduleLevelLocked(module))
		moduleLoggers[module] = slog.New(createHandler(config, levelVar)).With("module", module)
	}

	slog.SetDefault(slog.New(createHandler(config, globalLevelVar)))
}

// SetLevels applies the levels of config to every module logger without
// rebuilding handlers. Used when the configuration file is reloaded.
func SetLevels(config Config) {
	mutex.Lock()
	defer mutex.Unlock()

	globalConfig.Level = config.Level
	globalConfig.Modules = config.Modules
	globalLevelVar.Set(levelOrDefault(config.Level, slog.LevelInfo))

	for module, levelVar := range moduleLevelVars {
		levelVar.Set(moduleLevelLocked(module))
	}
}

// ModuleLevel reports the level currently in effect for module.
func ModuleLevel(module string) slog.Level {
	mutex.RLock()
	defer mutex.RUnlock()
	if levelVar, ok := moduleLevelVars[module]; ok {
		return levelVar.Level()
	}
	return moduleLevelLocked(module)
}

// GetBuffer returns the log ring buffer for reading historical logs.
func GetBuffer() *RingBuffer {
	mutex.RLock()
	defer mutex.RUnlock()
	return logBuffer
}

// SetLogCallback sets a callback to be called for each new log entry.
// Used for publishing log events to SSE clients.
func SetLogCallback(callback LogCallback) {
	mutex.Lock()
	defer mutex.Unlock()
	logCallback = callback
}

// GetLogger returns a logger for the specified module, creating it if needed.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	if logger, exists := moduleLoggers[module]; exists {
		mutex.RUnlock()
		return logger
	}
	mutex.RUnlock()

	mutex.Lock()
	defer mutex.Unlock()

	if logger, exists := moduleLoggers[module]; exists {
		return logger
	}

	// A LevelVar per module lets SetLevels retune it at runtime
	levelVar := &slog.LevelVar{}
	levelVar.Set(moduleLevelLocked(module))

	config := globalConfig
	if !isInitialized {
		config = Config{Format: "text", Identifier: defaultIdentifier}
	}

	logger := slog.New(createHandler(config, levelVar)).With("module", module)
	moduleLoggers[module] = logger
	moduleLevelVars[module] = levelVar
	return logger
}

// moduleLevelLocked resolves the level of module: its override, else the
// global level, else info. Callers hold mutex.
func moduleLevelLocked(module string) slog.Level {
	if !isInitialized {
		return slog.LevelInfo
	}
	level := levelOrDefault(globalConfig.Level, slog.LevelInfo)
	if override, ok := globalConfig.Modules[module]; ok {
		level = levelOrDefault(override, level)
	}
	return level
}

// createHandler builds the handler chain for config: the text or JSON
// writer, the journal when present, and the ring buffer that feeds the
// application log stream.
func createHandler(config Config, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	out := config.Output
	if out == nil {
		out = os.Stdout
	}

	var writerHandler slog.Handler
	if config.Format == "json" {
		writerHandler = slog.NewJSONHandler(out, opts)
	} else {
		writerHandler = slog.NewTextHandler(out, opts)
	}

	var handlers []slog.Handler
	if writerAvailable(out) {
		handlers = append(handlers, writerHandler)
	}
	if IsJournalAvailable() {
		identifier := config.Identifier
		if identifier == "" {
			identifier = defaultIdentifier
		}
		handlers = append(handlers, NewJournalHandler(identifier, level))
	}
	// The buffer handler drops records until Initialize creates the buffer
	handlers = append(handlers, NewBufferHandler(level))

	if len(handlers) == 1 {
		return handlers[0]
	}
	return NewMultiHandler(handlers...)
}

// writerAvailable reports whether out can take records. Files that cannot
// be stat'ed, such as a closed stdout under some service managers, are
// skipped; any other writer is used as is.
func writerAvailable(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok {
		return true
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return (mode&os.ModeCharDevice) != 0 || (mode&os.ModeNamedPipe) != 0 || (mode&os.ModeSocket) != 0 || mode.IsRegular()
}

// parseLevel converts a level name to slog.Level.
func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return 0, false
	}
}

func levelOrDefault(level string, fallback slog.Level) slog.Level {
	if parsed, ok := parseLevel(level); ok {
		return parsed
	}
	return fallback
}
