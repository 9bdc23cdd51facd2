package config

// EmbeddingConfig configures the vector embedding provider used to
// index content and queries into the same vector space.
//
// Supported providers:
//   - "stub":   deterministic hash-based embeddings, no network calls
//   - "ollama": local embedding server
//   - "genai":  Google GenAI cloud embeddings
type EmbeddingConfig struct {
	Provider string `yaml:"provider" json:"provider"`

	// Dimensions is the length of the vectors the stub provider
	// produces. The ollama and genai engines do not read it: they report
	// 768 and 3072 dimensions respectively. All stored vectors and query
	// vectors must agree in length or similarity search is meaningless.
	Dimensions int `yaml:"dimensions" json:"dimensions"`

	OllamaEndpoint string `yaml:"ollama_endpoint" json:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model" json:"ollama_model"`

	GenAIAPIKey string `yaml:"genai_api_key" json:"genai_api_key"`
	GenAIModel  string `yaml:"genai_model" json:"genai_model"`
	TaskType    string `yaml:"task_type" json:"task_type"`

	// BatchSize bounds how many texts are embedded in a single provider
	// call during bulk indexing.
	BatchSize int `yaml:"batch_size" json:"batch_size"`
}

// DefaultEmbeddingConfig returns the deterministic stub provider, which
// needs no external services and is safe for tests and first runs.
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		Provider:       "stub",
		Dimensions:     384,
		OllamaEndpoint: "http://localhost:11434",
		OllamaModel:    "embeddinggemma",
		GenAIModel:     "gemini-embedding-001",
		TaskType:       "SEMANTIC_SIMILARITY",
		BatchSize:      64,
	}
}
