package retrieval

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"faustpilot/internal/embedding"
	"faustpilot/internal/logging"
	"faustpilot/internal/store"
)

// DocRetriever indexes library docs into the store and recalls relevant
// sections. With an embedding engine it does semantic search; without one
// it degrades to keyword matching.
type DocRetriever struct {
	store  *store.LocalStore
	engine embedding.Engine
}

// NewDocRetriever wires a retriever. engine may be nil.
func NewDocRetriever(s *store.LocalStore, engine embedding.Engine) *DocRetriever {
	return &DocRetriever{store: s, engine: engine}
}

// IndexDir chunks and indexes every *.md file under dir. Existing chunks
// for each library are replaced. Returns the number of chunks stored.
func (r *DocRetriever) IndexDir(ctx context.Context, dir string) (int, error) {
	log := logging.For(logging.CategoryRetrieval)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read doc dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		files = append(files, entry.Name())
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("no markdown files in %s", dir)
	}

	total := 0
	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return total, fmt.Errorf("read %s: %w", name, err)
		}
		library := strings.TrimSuffix(name, ".md") + ".lib"

		if err := r.store.ClearLibrary(ctx, library); err != nil {
			return total, fmt.Errorf("clear %s: %w", library, err)
		}

		chunks := ChunkMarkdown(string(data))
		n, err := r.indexChunks(ctx, library, chunks)
		total += n
		if err != nil {
			return total, fmt.Errorf("index %s: %w", library, err)
		}
		log.Infow("indexed library", "library", library, "chunks", n)
	}
	return total, nil
}

// indexChunks embeds (when an engine is available) and stores the chunks.
// Embedding runs with bounded parallelism; storing is sequential.
func (r *DocRetriever) indexChunks(ctx context.Context, library string, chunks []Chunk) (int, error) {
	vectors := make([][]float32, len(chunks))

	if r.engine != nil {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(4)
		for i, chunk := range chunks {
			g.Go(func() error {
				vec, err := r.engine.Embed(gctx, embedText(library, chunk))
				if err != nil {
					return fmt.Errorf("embed %q: %w", chunk.Heading, err)
				}
				vectors[i] = vec
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return 0, err
		}
	}

	stored := 0
	for i, chunk := range chunks {
		_, err := r.store.StoreChunk(ctx, store.DocChunk{
			Library:   library,
			Heading:   chunk.Heading,
			Content:   chunk.Content,
			Embedding: vectors[i],
		})
		if err != nil {
			return stored, err
		}
		stored++
	}
	return stored, nil
}

// Retrieve returns the k doc sections most relevant to the query.
func (r *DocRetriever) Retrieve(ctx context.Context, query string, k int) ([]store.ScoredChunk, error) {
	log := logging.For(logging.CategoryRetrieval)

	if r.engine != nil {
		vec, err := r.engine.Embed(ctx, query)
		if err != nil {
			log.Warnw("embedding failed, falling back to keyword recall", "error", err)
		} else {
			return r.store.SemanticRecall(ctx, vec, k)
		}
	}
	return r.store.KeywordRecall(ctx, queryTerms(query), k)
}

// embedText is what gets embedded for a chunk. Prefixing the library and
// heading sharpens recall for queries that name a function.
func embedText(library string, chunk Chunk) string {
	return library + " " + chunk.Heading + "\n" + chunk.Content
}

// queryTerms picks the keyword-recall terms: words of 3+ characters, minus
// high-frequency filler.
func queryTerms(query string) []string {
	stop := map[string]bool{
		"the": true, "and": true, "with": true, "for": true, "that": true,
		"make": true, "create": true, "generate": true, "using": true,
	}
	var terms []string
	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, ".,;:!?\"'()")
		if len(word) < 3 || stop[word] {
			continue
		}
		terms = append(terms, word)
	}
	return terms
}
