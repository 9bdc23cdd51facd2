// Command index computes and stores vector embeddings for every
// content-store row that lacks one (spec §4.3's "idempotent and
// resumable" indexing job). It is safe to interrupt and re-run: a
// second run only touches rows RowsMissingEmbedding still reports.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ai-gamemaster/knowledge-core/internal/config"
	"github.com/ai-gamemaster/knowledge-core/internal/embedding"
	"github.com/ai-gamemaster/knowledge-core/internal/knowledge"
	"github.com/ai-gamemaster/knowledge-core/internal/logging"
	"github.com/ai-gamemaster/knowledge-core/internal/repository"
	"github.com/ai-gamemaster/knowledge-core/internal/store"
)

var (
	configPath string
	force      bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Compute vector embeddings for content-store rows missing one",
	Long: `index scans every catalog kind for rows with no embedding (or, with
--force, every row regardless) and writes freshly computed vectors
back to the store. Re-running after an interruption only processes
what is still missing, never re-embedding rows that already succeeded.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&configPath, "config", "", "path to config YAML (default: built-in defaults)")
	indexCmd.Flags().BoolVar(&force, "force", false, "re-embed every row, including ones that already have an embedding")
}

func main() {
	if err := indexCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	log := logging.Get(logging.CategoryIndex)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	s, err := store.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("open content store: %w", err)
	}
	defer s.Close()

	engine, err := embedding.NewEngine(toEngineConfig(cfg.Embedding))
	if err != nil {
		return fmt.Errorf("create embedding engine: %w", err)
	}
	if hc, ok := engine.(embedding.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding engine %s unreachable: %w", engine.Name(), err)
		}
	}

	batchSize := cfg.Embedding.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}

	total := 0
	for _, k := range store.AllKinds {
		rows, err := s.RowsMissingEmbedding(ctx, k, engine.Dimensions(), force)
		if err != nil {
			return fmt.Errorf("scan %s for missing embeddings: %w", k, err)
		}
		if len(rows) == 0 {
			continue
		}

		count, err := indexKind(ctx, s, engine, k, rows, batchSize, log)
		if err != nil {
			return fmt.Errorf("index %s: %w", k, err)
		}
		fmt.Printf("✓ %-24s %d rows embedded\n", k, count)
		total += count
	}

	fmt.Printf("\nindexed %d rows total\n", total)
	return nil
}

// indexKind embeds one kind's missing rows in chunks of batchSize,
// writing each vector back as soon as its chunk returns.
func indexKind(ctx context.Context, s *store.ContentStore, engine embedding.EmbeddingEngine, k store.Kind, rows []store.Row, batchSize int, log *logging.Logger) (int, error) {
	done := 0
	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		texts := make([]string, len(chunk))
		for i, row := range chunk {
			texts[i] = formatRowForEmbedding(k, row)
		}

		vectors, err := engine.EmbedBatch(ctx, texts)
		if err != nil {
			return done, fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
		}
		if len(vectors) != len(chunk) {
			return done, fmt.Errorf("embed batch [%d:%d]: expected %d vectors, got %d", start, end, len(chunk), len(vectors))
		}

		for i, row := range chunk {
			if err := s.UpdateEmbedding(ctx, k, row.Index, row.ContentPackID, vectors[i]); err != nil {
				return done, fmt.Errorf("store embedding for %s[%s]: %w", k, row.Index, err)
			}
			done++
		}
		log.Info("%s: embedded rows %d-%d of %d", k, start, end, len(rows))
	}
	return done, nil
}

// formatRowForEmbedding turns a raw store row into the text fed to the
// embedding provider, reusing the knowledge base manager's per-kind
// formatter (C4) so indexing and retrieval describe an entity the
// same way.
func formatRowForEmbedding(k store.Kind, row store.Row) string {
	data := map[string]interface{}{}
	if row.Data != "" {
		_ = json.Unmarshal([]byte(row.Data), &data)
	}
	entity := repository.Entity{Index: row.Index, Name: row.Name, URL: row.URL, Data: data}
	return knowledge.FormatEntity(k, entity)
}

func toEngineConfig(c config.EmbeddingConfig) embedding.Config {
	return embedding.Config{
		Provider:       c.Provider,
		Dimensions:     c.Dimensions,
		OllamaEndpoint: c.OllamaEndpoint,
		OllamaModel:    c.OllamaModel,
		GenAIAPIKey:    c.GenAIAPIKey,
		GenAIModel:     c.GenAIModel,
		TaskType:       c.TaskType,
		BatchSize:      c.BatchSize,
	}
}
