package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"faustpilot/internal/bible"
	"faustpilot/internal/logging"
)

var bibleCmd = &cobra.Command{
	Use:   "bible",
	Short: "Build and query the stdlib lookup table",
}

var bibleBuildCmd = &cobra.Command{
	Use:   "build [docs-dir]",
	Short: "Parse faustlibraries markdown docs into the lookup table",
	Long: `Parses the faustlibraries documentation (one markdown file per
library, e.g. oscillators.md) into the lookup table the validator uses,
and writes it to the workspace as faust_bible.json.`,
	Args: cobra.ExactArgs(1),
	RunE: runBibleBuild,
}

var bibleLookupCmd = &cobra.Command{
	Use:   "lookup [name]",
	Short: "Show a stdlib function's documentation",
	Long: `Looks up a function by qualified name (os.osc) or bare name
(osc). Bare names that exist in several libraries list every match.`,
	Args: cobra.ExactArgs(1),
	RunE: runBibleLookup,
}

var bibleStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the lookup table",
	RunE:  runBibleStats,
}

func init() {
	bibleCmd.AddCommand(bibleBuildCmd)
	bibleCmd.AddCommand(bibleLookupCmd)
	bibleCmd.AddCommand(bibleStatsCmd)
}

func runBibleBuild(cmd *cobra.Command, args []string) error {
	log := logging.For(logging.CategoryBible)

	b, warnings, err := bible.Build(args[0])
	if err != nil {
		return err
	}
	for _, w := range warnings {
		log.Warnw("doc parse warning", "warning", w)
	}

	if err := b.Save(cfg.Store.BiblePath); err != nil {
		return err
	}

	stats := b.Summary()
	fmt.Printf("Built %s: %d functions across %d libraries", cfg.Store.BiblePath, stats.Entries, stats.Libraries)
	if len(warnings) > 0 {
		fmt.Printf(" (%d warnings, run with -v for details)", len(warnings))
	}
	fmt.Println()
	return nil
}

func runBibleLookup(cmd *cobra.Command, args []string) error {
	b, err := loadBible()
	if err != nil {
		return err
	}

	name := args[0]
	var entries []bible.Entry
	if entry, ok := b.Lookup(name); ok {
		entries = []bible.Entry{entry}
	} else {
		entries = b.Candidates(name)
	}

	if len(entries) == 0 {
		suggestions := b.Suggest(name, cfg.Validate.MaxSuggestions)
		if len(suggestions) > 0 {
			return fmt.Errorf("no entry for %q; did you mean %s?", name, strings.Join(suggestions, ", "))
		}
		return fmt.Errorf("no entry for %q", name)
	}

	var md strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&md, "# (%s.)%s\n\n*%s*\n\n", e.Prefix, e.Name, e.Library)
		if e.Description != "" {
			md.WriteString(e.Description + "\n\n")
		}
		fmt.Fprintf(&md, "## Usage\n\n```\n%s\n```\n\n", e.Signature)
		if len(e.Params) > 0 {
			md.WriteString("Where:\n\n")
			for _, p := range e.Params {
				fmt.Fprintf(&md, "* `%s`: %s\n", p.Name, p.Doc)
			}
			md.WriteString("\n")
		}
		if e.Reference != "" {
			fmt.Fprintf(&md, "Reference: <%s>\n\n", e.Reference)
		}
	}

	out, err := glamour.Render(md.String(), "dark")
	if err != nil {
		// Fall back to plain markdown when the terminal renderer fails.
		fmt.Print(md.String())
		return nil
	}
	fmt.Print(out)
	return nil
}

func runBibleStats(cmd *cobra.Command, args []string) error {
	b, err := loadBible()
	if err != nil {
		return err
	}

	stats := b.Summary()
	fmt.Printf("Functions: %d\n", stats.Entries)
	fmt.Printf("Libraries: %d\n", stats.Libraries)

	prefixes := make([]string, 0, len(stats.PerPrefix))
	for p := range stats.PerPrefix {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	for _, p := range prefixes {
		fmt.Printf("  %-6s %d\n", p+".", stats.PerPrefix[p])
	}
	return nil
}
