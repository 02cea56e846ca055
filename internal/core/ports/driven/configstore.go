package driven

// ConfigStore provides access to application configuration.
// Implementations handle persistence (e.g., TOML files) and type conversion.
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	// Returns the value and a boolean indicating if the key exists.
	Get(key string) (any, bool)

	// GetString retrieves a string configuration value.
	// Returns empty string if key doesn't exist or isn't a string.
	GetString(key string) string

	// GetInt retrieves an integer configuration value.
	// Returns 0 if key doesn't exist or isn't an integer.
	GetInt(key string) int

	// GetFloat retrieves a floating point configuration value.
	// Returns 0 if key doesn't exist or isn't numeric.
	GetFloat(key string) float64

	// GetBool retrieves a boolean configuration value.
	// Returns false if key doesn't exist or isn't a boolean.
	GetBool(key string) bool

	// Set stores a configuration value.
	// The value is persisted immediately.
	Set(key string, value any) error

	// Save persists the current configuration to storage.
	Save() error

	// Load reads configuration from storage.
	Load() error

	// Path returns the configuration file path.
	Path() string
}

// Well-known configuration keys.
const (
	// ConfigChunkSize is the maximum chunk size in characters.
	// Larger chunks preserve more context per retrieval unit but reduce
	// retrieval precision.
	ConfigChunkSize = "ingest.chunk_size"

	// ConfigChunkOverlap is the overlap window between adjacent chunks
	// in characters. Overlap mitigates boundary information loss.
	ConfigChunkOverlap = "ingest.chunk_overlap"

	// ConfigTopK is the number of chunks retrieved per question.
	ConfigTopK = "retrieval.top_k"

	// ConfigScoreFloor is the minimum similarity score for a retrieved
	// chunk to enter the prompt. 0 disables the floor.
	ConfigScoreFloor = "retrieval.score_floor"

	// ConfigHistoryWindow is the number of most recent turns included
	// in the prompt context.
	ConfigHistoryWindow = "chat.history_window"

	// ConfigRewriteQuestions enables history-aware question rewriting
	// before retrieval. Default off: the raw question is used.
	ConfigRewriteQuestions = "chat.rewrite_questions"

	// ConfigDataDir is the root directory for persisted session indexes.
	ConfigDataDir = "storage.data_dir"

	// ConfigEmbeddingProvider selects the embedding backend
	// (ollama, openai).
	ConfigEmbeddingProvider = "ai.embedding.provider"

	// ConfigEmbeddingModel is the embedding model name.
	ConfigEmbeddingModel = "ai.embedding.model"

	// ConfigEmbeddingBaseURL overrides the embedding API endpoint.
	ConfigEmbeddingBaseURL = "ai.embedding.base_url"

	// ConfigEmbeddingAPIKey is the embedding provider API key.
	ConfigEmbeddingAPIKey = "ai.embedding.api_key"

	// ConfigEmbeddingRPS throttles embedding requests per second during
	// ingestion. Zero disables throttling.
	ConfigEmbeddingRPS = "ai.embedding.requests_per_second"

	// ConfigLLMProvider selects the LLM backend
	// (ollama, openai, anthropic).
	ConfigLLMProvider = "ai.llm.provider"

	// ConfigLLMModel is the LLM model name.
	ConfigLLMModel = "ai.llm.model"

	// ConfigLLMBaseURL overrides the LLM API endpoint.
	ConfigLLMBaseURL = "ai.llm.base_url"

	// ConfigLLMAPIKey is the LLM provider API key.
	ConfigLLMAPIKey = "ai.llm.api_key"
)
