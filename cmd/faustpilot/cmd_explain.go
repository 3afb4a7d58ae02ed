package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"faustpilot/internal/catalog"
)

var catalogPath string

var explainCmd = &cobra.Command{
	Use:   "explain [compiler-output|file|-]",
	Short: "Translate FAUST compiler errors into fixes",
	Long: `Matches compiler output against the error catalog and prints what
went wrong and how to fix it.

The argument is the error text itself, a file containing it, or '-' to
read from stdin (pipe the compiler into it):

  faust broken.dsp 2>&1 | faustpilot explain -`,
	Args: cobra.ExactArgs(1),
	RunE: runExplain,
}

func init() {
	explainCmd.Flags().StringVar(&catalogPath, "catalog", "", "Extra error catalog JSON (patterns override the built-ins)")
}

func runExplain(cmd *cobra.Command, args []string) error {
	output, err := readErrorInput(args[0])
	if err != nil {
		return err
	}
	if strings.TrimSpace(output) == "" {
		return fmt.Errorf("no compiler output to explain")
	}

	var cat *catalog.Catalog
	if catalogPath != "" {
		cat, err = catalog.Load(catalogPath)
	} else {
		cat, err = catalog.Default()
	}
	if err != nil {
		return err
	}

	translations := cat.Translate(output)
	if len(translations) == 0 {
		fmt.Println("No errors recognized in the output.")
		return nil
	}

	for _, tr := range translations {
		if tr.Code == catalog.CodeUnrecognized {
			fmt.Println(styleWarning.Render("? " + tr.Raw))
			fmt.Println("  " + styleInfo.Render("(not in the catalog)"))
			continue
		}
		fmt.Println(styleError.Render("✗ " + tr.Summary))
		if tr.Fix != "" {
			fmt.Println("  " + styleHint.Render("fix: "+tr.Fix))
		}
	}
	return nil
}

// readErrorInput resolves the explain argument: stdin for "-", file
// contents when the argument names a readable file, the literal text
// otherwise.
func readErrorInput(arg string) (string, error) {
	if arg == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		data, err := os.ReadFile(arg)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return arg, nil
}
