package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"faustpilot/internal/assist"
	"faustpilot/internal/catalog"
	"faustpilot/internal/embedding"
	"faustpilot/internal/llm"
	"faustpilot/internal/retrieval"
	"faustpilot/internal/validate"
)

var (
	generateOut         string
	generateMaxAttempts int
	generateNoRAG       bool
)

var generateCmd = &cobra.Command{
	Use:   "generate [request]",
	Short: "Generate a validated FAUST program from a description",
	Long: `Asks the configured LLM for a FAUST program, validates every
attempt against the stdlib lookup table, and feeds diagnostics back
until the code passes or attempts run out.

When the doc index has been built ('faustpilot index'), relevant stdlib
documentation is retrieved and added to the prompt.

Example:
  faustpilot generate "a 440 Hz sine with an ADSR envelope" --out synth.dsp`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateOut, "out", "o", "", "Write the program to a file instead of stdout")
	generateCmd.Flags().IntVar(&generateMaxAttempts, "max-attempts", 0, "Override the configured attempt limit")
	generateCmd.Flags().BoolVar(&generateNoRAG, "no-rag", false, "Skip doc retrieval")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	request := strings.Join(args, " ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := loadBible()
	if err != nil {
		return err
	}

	client, err := llm.New(cfg.LLM)
	if err != nil {
		return err
	}

	cat, err := catalog.Default()
	if err != nil {
		return err
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	var retriever *retrieval.DocRetriever
	if !generateNoRAG {
		engine, err := embedding.New(cfg.Embedding)
		if err != nil {
			return err
		}
		retriever = retrieval.NewDocRetriever(s, engine)
	}

	genCfg := cfg.Generator
	if generateMaxAttempts > 0 {
		genCfg.MaxAttempts = generateMaxAttempts
	}

	checker := validate.NewChecker(b, cfg.Validate)
	gen := assist.NewGenerator(client, checker, cat, retriever, s, genCfg)

	fmt.Fprintf(os.Stderr, "Generating with %s (up to %d attempts)...\n", client.Name(), genCfg.MaxAttempts)

	result, err := gen.Generate(ctx, request)
	switch {
	case errors.Is(err, assist.ErrMaxAttemptsExceeded):
		fmt.Fprintln(os.Stderr, styleError.Render(fmt.Sprintf(
			"✗ no valid program after %d attempts; best effort follows", len(result.Attempts))))
		printAttemptSummaries(result)
	case err != nil:
		return err
	default:
		fmt.Fprintln(os.Stderr, styleOK.Render(fmt.Sprintf(
			"✓ valid program on attempt %d/%d", len(result.Attempts), genCfg.MaxAttempts)))
	}

	if result.Code == "" {
		return fmt.Errorf("the model produced no code")
	}

	if generateOut != "" {
		if err := os.WriteFile(generateOut, []byte(result.Code+"\n"), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", generateOut, err)
		}
		fmt.Fprintln(os.Stderr, "wrote", generateOut)
		return nil
	}
	fmt.Println(result.Code)
	return nil
}

func printAttemptSummaries(result *assist.Result) {
	for _, a := range result.Attempts {
		errs := len(a.Report.Errors())
		fmt.Fprintf(os.Stderr, "  attempt %d: %d error(s) in %v\n", a.Seq, errs, a.Duration.Round(10*time.Millisecond))
	}
}
