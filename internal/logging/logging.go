// Package logging provides categorized structured logging for faustpilot.
// Every subsystem logs through a named zap logger; categories can be toggled
// individually so a debugging session only shows the subsystem under study.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies a logging subsystem.
type Category string

const (
	CategoryBoot      Category = "boot"      // startup, config loading
	CategoryBible     Category = "bible"     // doc parsing, lookup table
	CategoryLexer     Category = "lexer"     // tokenization
	CategoryValidate  Category = "validate"  // pre-compile checks
	CategoryCatalog   Category = "catalog"   // compiler error translation
	CategoryLLM       Category = "llm"       // provider API calls
	CategoryAssist    Category = "assist"    // generate/validate/retry loop
	CategoryEmbedding Category = "embedding" // embedding engine
	CategoryRetrieval Category = "retrieval" // doc retrieval
	CategoryStore     Category = "store"     // sqlite store
)

// Config controls logger construction.
type Config struct {
	// Level: debug, info, warn, error. Empty means info.
	Level string

	// Categories maps category name to enabled. Empty map enables all.
	Categories map[string]bool

	// File is an optional log file path. Empty logs to stderr.
	File string

	// Console switches to the human-readable console encoder.
	Console bool
}

var (
	mu         sync.RWMutex
	base       = zap.NewNop()
	categories map[string]bool
)

// Init builds the process-wide logger. Safe to call more than once; the last
// call wins. Before Init, all loggers are no-ops.
func Init(cfg Config) error {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if cfg.Console {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	sink := zapcore.Lock(os.Stderr)
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		sink = zapcore.Lock(f)
	}

	logger := zap.New(zapcore.NewCore(enc, sink, level))

	mu.Lock()
	defer mu.Unlock()
	base = logger
	categories = cfg.Categories
	return nil
}

// For returns the logger for a category. Disabled categories get a no-op
// logger so call sites never need to guard.
func For(cat Category) *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	if !enabled(cat) {
		return zap.NewNop().Sugar()
	}
	return base.Named(string(cat)).Sugar()
}

// Sync flushes buffered log entries. Call on shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = base.Sync()
}

// SetLogger replaces the base logger. Used by tests and by the CLI when the
// cobra layer has already built a zap logger from its flags.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	base = l
}

func enabled(cat Category) bool {
	if len(categories) == 0 {
		return true
	}
	on, found := categories[string(cat)]
	return !found || on
}

func parseLevel(s string) (zapcore.Level, error) {
	switch s {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}
