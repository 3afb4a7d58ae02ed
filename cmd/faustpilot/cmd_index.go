package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"faustpilot/internal/embedding"
	"faustpilot/internal/retrieval"
)

var indexNoEmbed bool

var indexCmd = &cobra.Command{
	Use:   "index [docs-dir]",
	Short: "Index library docs for retrieval",
	Long: `Chunks the faustlibraries markdown documentation and stores it in
the workspace database. With an embedding provider configured, each chunk
is embedded so 'generate' can retrieve sections semantically; without one
(--no-embed or embedding.provider: none), retrieval falls back to keyword
matching.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexNoEmbed, "no-embed", false, "Index without embeddings (keyword retrieval only)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	var engine embedding.Engine
	if !indexNoEmbed {
		engine, err = embedding.New(cfg.Embedding)
		if err != nil {
			return err
		}
	}

	retriever := retrieval.NewDocRetriever(s, engine)
	n, err := retriever.IndexDir(ctx, args[0])
	if err != nil {
		return err
	}

	mode := "keyword-only"
	if engine != nil {
		mode = engine.Name()
	}
	fmt.Printf("Indexed %d chunks (%s)\n", n, mode)
	return nil
}
