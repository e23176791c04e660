package config

const (
	defaultStorageProvider = "sqlite"
	defaultVectorProvider  = "sqlite"

	defaultOllamaTarget = "http://localhost:11434"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingModel      = "nomic-embed-text"
	defaultEmbeddingDimensions = 768

	defaultLLMProvider = "ollama"
	defaultLLMModel    = "llama3.2"

	defaultWindowSize = 500
	defaultOverlap    = 50

	defaultTopK     = 5
	defaultMinScore = 0.3

	defaultIndexConcurrency = 4
	defaultIngestWorkers    = 3
	defaultIngestQueueSize  = 256

	defaultEventStreamProvider = "nop"
	defaultEventStreamTopic    = "docrag.documents"

	defaultAPIListen      = ":8081"
	defaultMaxUploadBytes = 10 * 1024 * 1024

	defaultClientAPITarget = "http://localhost:8081"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Provider: defaultStorageProvider,
		},
		VectorStore: VectorStoreConfig{
			Provider: defaultVectorProvider,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultOllamaTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		LLM: LLMConfig{
			Provider: defaultLLMProvider,
			Target:   defaultOllamaTarget,
			Model:    defaultLLMModel,
		},
		Chunking: ChunkingConfig{
			WindowSize: defaultWindowSize,
			Overlap:    defaultOverlap,
		},
		Retrieval: RetrievalConfig{
			TopK:     defaultTopK,
			MinScore: defaultMinScore,
		},
		Indexing: IndexingConfig{
			Concurrency: defaultIndexConcurrency,
			Workers:     defaultIngestWorkers,
			QueueSize:   defaultIngestQueueSize,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
		API: APIConfig{
			Listen:         defaultAPIListen,
			MaxUploadBytes: defaultMaxUploadBytes,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
	}
}
