package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"faustpilot/internal/logging"
	"faustpilot/internal/validate"
)

var watchMode bool

var validateCmd = &cobra.Command{
	Use:   "validate [file.dsp]",
	Short: "Check FAUST source before the compiler runs",
	Long: `Validates a FAUST source file against the stdlib lookup table:
unknown functions, wrong argument counts, missing imports, unbalanced
delimiters, missing process definition.

With --watch, re-validates whenever the file changes.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&watchMode, "watch", false, "Re-validate on file change")
}

var (
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	styleWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleInfo    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleHint    = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Italic(true)
	styleOK      = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
)

func runValidate(cmd *cobra.Command, args []string) error {
	path := args[0]

	b, err := loadBible()
	if err != nil {
		return err
	}
	checker := validate.NewChecker(b, cfg.Validate)

	if !watchMode {
		report, err := checkFile(checker, path)
		if err != nil {
			return err
		}
		printReport(path, report)
		if !report.Valid() {
			os.Exit(1)
		}
		return nil
	}
	return watchFile(checker, path)
}

func checkFile(checker *validate.Checker, path string) (*validate.Report, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	return checker.Check(string(src)), nil
}

func printReport(path string, report *validate.Report) {
	errs, warns, infos := report.Count()
	if len(report.Diagnostics) == 0 {
		fmt.Println(styleOK.Render("✓ " + path + ": no problems found"))
		return
	}

	for _, d := range report.Diagnostics {
		var style lipgloss.Style
		switch d.Severity {
		case validate.SeverityError:
			style = styleError
		case validate.SeverityWarning:
			style = styleWarning
		default:
			style = styleInfo
		}
		pos := ""
		if d.Line > 0 {
			pos = fmt.Sprintf("%d:%d: ", d.Line, d.Col)
		}
		fmt.Printf("%s%s %s [%s]\n", pos, style.Render(d.Severity.String()+":"), d.Message, d.Code)
		if d.Hint != "" {
			fmt.Println("  " + styleHint.Render("hint: "+d.Hint))
		}
	}

	summary := fmt.Sprintf("%s: %d error(s), %d warning(s), %d info", path, errs, warns, infos)
	if errs == 0 {
		fmt.Println(styleOK.Render("✓ " + summary))
	} else {
		fmt.Println(styleError.Render("✗ " + summary))
	}
}

// watchFile re-validates on every write to the file. Editors that rename
// on save drop the watch, so the parent directory is watched instead.
func watchFile(checker *validate.Checker, path string) error {
	log := logging.For(logging.CategoryValidate)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	validateOnce := func() {
		report, err := checkFile(checker, path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return
		}
		fmt.Printf("\n--- %s ---\n", time.Now().Format("15:04:05"))
		printReport(path, report)
	}

	validateOnce()
	fmt.Println(styleInfo.Render("watching " + path + " (ctrl-c to stop)"))

	// Editors fire bursts of events per save; debounce them.
	var timer *time.Timer
	target := filepath.Clean(path)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(100*time.Millisecond, validateOnce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnw("watcher error", "error", err)
		}
	}
}
