package log

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

// Options configures the global logger.
type Options struct {
	Level  Level
	Format string // "console" or "json"
	Output string // "stdout", "stderr" or a file path
}

var (
	mu       sync.RWMutex
	sugar    *zap.SugaredLogger
	logFile  *os.File // open log file of the current logger, if any
	atom     = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	initOnce sync.Once
)

// initLogger installs the default logger: console encoding to stderr.
func initLogger() {
	initOnce.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		if sugar == nil {
			sugar, _ = build(Options{Format: "console", Output: "stderr"})
		}
	})
}

// Configure replaces the global logger. Safe to call more than once; a log
// file opened by the previous logger is closed.
func Configure(opts Options) {
	initOnce.Do(func() {})
	if opts.Level != "" {
		SetLevel(opts.Level)
	}
	l, f := build(opts)

	mu.Lock()
	old, oldFile := sugar, logFile
	sugar, logFile = l, f
	mu.Unlock()

	if old != nil {
		_ = old.Sync()
	}
	if oldFile != nil {
		_ = oldFile.Close()
	}
}

// ParseLevel maps "debug", "info" and "error" (any case) to a Level.
// Anything else is LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func SetLevel(l Level) {
	switch l {
	case LevelDebug:
		atom.SetLevel(zapcore.DebugLevel)
	case LevelError:
		atom.SetLevel(zapcore.ErrorLevel)
	default:
		atom.SetLevel(zapcore.InfoLevel)
	}
}

// Sync flushes buffered entries.
func Sync() {
	if l := current(); l != nil {
		_ = l.Sync()
	}
}

func Debug(msg string, kv ...any) {
	current().Debugw(msg, kv...)
}

func Info(msg string, kv ...any) {
	current().Infow(msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	current().Errorw(msg, extended...)
}

func current() *zap.SugaredLogger {
	initLogger()
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// build returns the logger for opts and the file it writes to, if any.
func build(opts Options) (*zap.SugaredLogger, *os.File) {
	encCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		MessageKey:     "msg",
		CallerKey:      "caller",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var enc zapcore.Encoder
	if opts.Format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	ws, f := writer(opts.Output)
	core := zapcore.NewCore(enc, ws, atom)
	// Skip this package's wrappers so callers show up as the log site.
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar(), f
}

func writer(output string) (zapcore.WriteSyncer, *os.File) {
	switch strings.ToLower(output) {
	case "", "stderr":
		return zapcore.AddSync(os.Stderr), nil
	case "stdout":
		return zapcore.AddSync(os.Stdout), nil
	default:
		f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			// Fall back to stderr if the file cannot be opened.
			return zapcore.AddSync(os.Stderr), nil
		}
		return zapcore.AddSync(f), f
	}
}
