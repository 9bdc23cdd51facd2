// Package embedding provides vector embedding generation for semantic
// search. Supports three backends: a deterministic stub (for tests and
// environments with no embedding service), Ollama (local), and Google
// GenAI (cloud).
package embedding

import (
	"context"
	"fmt"
	"math"

	"github.com/ai-gamemaster/knowledge-core/internal/logging"
)

// EmbeddingEngine generates vector embeddings for text.
type EmbeddingEngine interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Name() string
}

// HealthChecker is an optional interface for engines that can verify
// their backing service is reachable before a batch job begins.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Config holds embedding engine configuration, mirroring
// config.EmbeddingConfig (kept as a separate type so this package has
// no import-time dependency on internal/config).
type Config struct {
	Provider string

	Dimensions int

	OllamaEndpoint string
	OllamaModel    string

	GenAIAPIKey string
	GenAIModel  string
	TaskType    string

	BatchSize int
}

// DefaultConfig returns the stub provider, safe to run with no network
// access or API keys.
func DefaultConfig() Config {
	return Config{
		Provider:       "stub",
		Dimensions:     384,
		OllamaEndpoint: "http://localhost:11434",
		OllamaModel:    "embeddinggemma",
		GenAIModel:     "gemini-embedding-001",
		TaskType:       "SEMANTIC_SIMILARITY",
		BatchSize:      64,
	}
}

// NewEngine creates an embedding engine based on configuration.
func NewEngine(cfg Config) (EmbeddingEngine, error) {
	log := logging.Get(logging.CategoryEmbedding)
	log.Info("creating embedding engine provider=%s", cfg.Provider)

	switch cfg.Provider {
	case "", "stub":
		dim := cfg.Dimensions
		if dim <= 0 {
			dim = 384
		}
		return NewStubEngine(dim), nil
	case "ollama":
		return NewOllamaEngine(cfg.OllamaEndpoint, cfg.OllamaModel)
	case "genai":
		return NewGenAIEngine(cfg.GenAIAPIKey, cfg.GenAIModel, cfg.TaskType)
	default:
		log.Error("unsupported embedding provider: %s", cfg.Provider)
		return nil, fmt.Errorf("unsupported embedding provider: %s (use 'stub', 'ollama', or 'genai')", cfg.Provider)
	}
}

// CosineSimilarity calculates the cosine similarity between two
// vectors. Returns a value in [-1, 1]; 0 if either vector has zero
// magnitude, and an error if the lengths differ.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have the same length: %d != %d", len(a), len(b))
	}

	var dotProduct, aMagnitude, bMagnitude float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		aMagnitude += float64(a[i]) * float64(a[i])
		bMagnitude += float64(b[i]) * float64(b[i])
	}

	if aMagnitude == 0 || bMagnitude == 0 {
		return 0, nil
	}
	return dotProduct / (math.Sqrt(aMagnitude) * math.Sqrt(bMagnitude)), nil
}

// SimilarityResult is one scored entry from FindTopK.
type SimilarityResult struct {
	Index      int
	Similarity float64
}

// FindTopK returns the indices of the top k most similar vectors to
// query, ranked by cosine similarity descending. Vectors with a
// dimension mismatch are skipped rather than erroring the whole call.
func FindTopK(query []float32, corpus [][]float32, k int) ([]SimilarityResult, error) {
	if k <= 0 {
		k = 10
	}

	results := make([]SimilarityResult, 0, len(corpus))
	for i, vec := range corpus {
		similarity, err := CosineSimilarity(query, vec)
		if err != nil {
			continue
		}
		results = append(results, SimilarityResult{Index: i, Similarity: similarity})
	}

	for i := 0; i < len(results) && i < k; i++ {
		for j := i + 1; j < len(results); j++ {
			if results[j].Similarity > results[i].Similarity {
				results[i], results[j] = results[j], results[i]
			}
		}
	}
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}
