// Package stack builds the docrag service graph (stores, embedder, model
// provider, publisher and the RAG services) from a resolved config.
package stack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/docrag/pkg/chunker"
	"github.com/papercomputeco/docrag/pkg/config"
	"github.com/papercomputeco/docrag/pkg/dotdir"
	embeddingutils "github.com/papercomputeco/docrag/pkg/embeddings/utils"
	"github.com/papercomputeco/docrag/pkg/eventstream"
	eventstreamutils "github.com/papercomputeco/docrag/pkg/eventstream/utils"
	"github.com/papercomputeco/docrag/pkg/llm/provider"
	"github.com/papercomputeco/docrag/pkg/rag"
	"github.com/papercomputeco/docrag/pkg/storage"
	storageutils "github.com/papercomputeco/docrag/pkg/storage/utils"
	"github.com/papercomputeco/docrag/pkg/vector"
	vectorutils "github.com/papercomputeco/docrag/pkg/vector/utils"
)

const (
	// DefaultDBName is the SQLite file used for documents and vectors when
	// no path is configured.
	DefaultDBName = "docrag.db"
)

// Stack is the set of long lived collaborators every command shares.
type Stack struct {
	Config    *config.Config
	Store     storage.Driver
	Vectors   vector.Driver
	Publisher eventstream.Publisher
	RAG       *rag.Service
	Documents *rag.DocumentService

	logger *slog.Logger
}

// ResolveSQLitePath returns the configured SQLite path or the default
// database inside the resolved .docrag directory.
func ResolveSQLitePath(override, configDir string) (string, error) {
	if override != "" {
		return override, nil
	}
	return dotdir.NewManager().Path(configDir, DefaultDBName)
}

// New builds the stack described by cfg. Close releases everything it opened.
func New(ctx context.Context, cfg *config.Config, configDir string, logger *slog.Logger) (*Stack, error) {
	s := &Stack{Config: cfg, logger: logger}

	sqlitePath, err := s.sqlitePath(configDir)
	if err != nil {
		return nil, err
	}

	s.Store, err = storageutils.NewStorageDriver(ctx, &storageutils.NewStorageDriverOpts{
		ProviderType: cfg.Storage.Provider,
		SQLitePath:   sqlitePath,
		PostgresDSN:  cfg.Storage.PostgresDSN,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	vectorTarget := cfg.VectorStore.Target
	if vectorTarget == "" && (cfg.VectorStore.Provider == "sqlite" || cfg.VectorStore.Provider == "") {
		vectorTarget = sqlitePath
	}
	s.Vectors, err = vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		Target:       vectorTarget,
		Collection:   cfg.VectorStore.Collection,
		APIKey:       cfg.VectorStore.APIKey,
		Dimensions:   cfg.Embedding.Dimensions,
		Logger:       logger,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating vector driver: %w", err)
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		APIKey:       cfg.Embedding.APIKey,
		Dimensions:   cfg.Embedding.Dimensions,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	generator, err := provider.New(provider.Config{
		Type:    cfg.LLM.Provider,
		BaseURL: cfg.LLM.Target,
		Model:   cfg.LLM.Model,
		APIKey:  cfg.LLM.APIKey,
		Logger:  logger,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating llm provider: %w", err)
	}

	s.Publisher, err = eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: cfg.EventStream.Provider,
		Brokers:      cfg.EventStream.Brokers,
		Topic:        cfg.EventStream.Topic,
		Logger:       logger,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating event publisher: %w", err)
	}

	s.RAG, err = rag.NewService(rag.Config{
		Embedder:  embedder,
		Generator: generator,
		Driver:    s.Vectors,
		Chunking: chunker.Config{
			WindowSize: cfg.Chunking.WindowSize,
			Overlap:    cfg.Chunking.Overlap,
		},
		IndexConcurrency: cfg.Indexing.Concurrency,
		TopK:             cfg.Retrieval.TopK,
		MinScore:         cfg.Retrieval.MinScore,
		Logger:           logger,
	})
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Documents = rag.NewDocumentService(rag.DocumentServiceConfig{
		RAG:            s.RAG,
		Store:          s.Store,
		Publisher:      s.Publisher,
		MaxUploadBytes: cfg.API.MaxUploadBytes,
		Logger:         logger,
	})

	logger.Debug("docrag stack ready",
		"storage", cfg.Storage.Provider,
		"vector_store", cfg.VectorStore.Provider,
		"embedding", cfg.Embedding.Provider,
		"llm", generator.Name(),
		"eventstream", cfg.EventStream.Provider,
	)

	return s, nil
}

// sqlitePath resolves the database path only when a SQLite backend needs it.
func (s *Stack) sqlitePath(configDir string) (string, error) {
	usesSQLite := s.Config.Storage.Provider == "sqlite" || s.Config.Storage.Provider == "" ||
		((s.Config.VectorStore.Provider == "sqlite" || s.Config.VectorStore.Provider == "") && s.Config.VectorStore.Target == "")
	if !usesSQLite {
		return s.Config.Storage.SQLitePath, nil
	}

	path, err := ResolveSQLitePath(s.Config.Storage.SQLitePath, configDir)
	if err != nil {
		return "", fmt.Errorf("resolving sqlite path: %w", err)
	}
	return path, nil
}

// Close releases the stores and the publisher.
func (s *Stack) Close() error {
	var errs []error
	if s.Publisher != nil {
		errs = append(errs, s.Publisher.Close())
	}
	if s.Vectors != nil {
		errs = append(errs, s.Vectors.Close())
	}
	if s.Store != nil {
		errs = append(errs, s.Store.Close())
	}
	return errors.Join(errs...)
}
