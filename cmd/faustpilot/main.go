// faustpilot is a FAUST coding assistant: it validates DSP source before
// the compiler runs, translates compiler errors into fixes, and drives an
// LLM generate/validate/retry loop grounded in the stdlib documentation.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"faustpilot/internal/bible"
	"faustpilot/internal/config"
	"faustpilot/internal/logging"
	"faustpilot/internal/store"
)

var (
	// Global flags
	verbose   bool
	workspace string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "faustpilot",
	Short: "faustpilot - FAUST coding assistant",
	Long: `faustpilot helps you write FAUST (Functional AUdio STream) DSP code.

It validates source against the stdlib lookup table before the compiler
runs, translates cryptic compiler errors into actionable fixes, and can
generate programs with a local or remote LLM, validating each attempt and
feeding errors back until the code passes.

Start with 'faustpilot bible build' to build the stdlib lookup table from
the faustlibraries documentation.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(workspace)
		if err != nil {
			return err
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		if err := logging.Init(logging.Config{
			Level:      level,
			Categories: cfg.Logging.Categories,
			File:       cfg.Logging.File,
			Console:    cfg.Logging.Console,
		}); err != nil {
			return fmt.Errorf("initialize logging: %w", err)
		}
		if !verbose {
			// Keep the terminal clean; info and below go to the log file
			// only when one is configured.
			quietConsole()
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

// quietConsole raises the console threshold to warn so command output is
// not interleaved with info logs.
func quietConsole() {
	if cfg.Logging.File != "" {
		return
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	logging.SetLogger(zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		zapcore.WarnLevel,
	)))
}

// loadBible reads the persisted lookup table, with a pointed error when it
// has not been built yet.
func loadBible() (*bible.Bible, error) {
	b, err := bible.Load(cfg.Store.BiblePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no bible at %s; run 'faustpilot bible build <docs-dir>' first", cfg.Store.BiblePath)
		}
		return nil, err
	}
	return b, nil
}

func openStore() (*store.LocalStore, error) {
	return store.Open(cfg.Store.DatabasePath)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", ".", "Workspace directory")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(bibleCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
