package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/ai-gamemaster/knowledge-core/internal/logging"
)

// StubEngine is a deterministic, network-free embedding engine: every
// distinct text maps to the same unit-length vector across runs, seeded
// from a hash of the text. It exists so the rest of the pipeline (index
// job, retrieval, tests) can run without a real embedding backend.
//
// Grounded on DummySentenceTransformer in
// app/services/rag/db_knowledge_base_manager.py: hash the text for a
// seed, draw a Gaussian vector from that seed, normalize to unit length.
type StubEngine struct {
	dimensions int
}

// NewStubEngine returns a stub engine producing vectors of dim length.
func NewStubEngine(dim int) *StubEngine {
	if dim <= 0 {
		dim = 384
	}
	logging.Get(logging.CategoryEmbedding).Warn("using stub embedding engine, vectors are not semantically meaningful")
	return &StubEngine{dimensions: dim}
}

func (e *StubEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	seed := textSeed(text)
	r := rand.New(rand.NewSource(seed))

	vec := make([]float32, e.dimensions)
	var norm float64
	for i := range vec {
		v := r.NormFloat64()
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}

func (e *StubEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *StubEngine) Dimensions() int { return e.dimensions }
func (e *StubEngine) Name() string    { return "stub" }

// textSeed derives a stable int64 seed from text via FNV-1a, so the
// same text gives the same seed in every process (Go's hash/maphash is
// seeded randomly per process).
func textSeed(text string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	return int64(h.Sum64())
}
