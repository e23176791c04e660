// Package servecmder provides the serve command that runs the docrag API
// server.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docrag/api"
	"github.com/papercomputeco/docrag/cmd/docrag/stack"
	"github.com/papercomputeco/docrag/pkg/config"
	"github.com/papercomputeco/docrag/pkg/logger"
)

type ServeCommander struct {
	flags   config.FlagSet
	listen  string
	logFile string
	debug   bool

	// bound only so they show in --help; values flow through viper
	sqlitePath      string
	storageProvider string
	postgresDSN     string
	vectorProvider  string
	vectorTarget    string
	embeddingProv   string
	embeddingTarget string
	embeddingModel  string
	embeddingDims   uint
	llmProvider     string
	llmTarget       string
	llmModel        string
	topK            int
	minScore        float32
	kafkaBrokers    []string

	cfg       *config.Config
	configDir string
	logger    *slog.Logger
}

var serveFlags = []string{
	config.FlagListen,
	config.FlagStorageProvider,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagLLMProvider,
	config.FlagLLMTarget,
	config.FlagLLMModel,
	config.FlagTopK,
	config.FlagMinScore,
	config.FlagKafkaBrokers,
}

const serveLongDesc string = `Run the docrag API server.

The server accepts document uploads, answers questions over the indexed
documents and exposes an MCP endpoint at /mcp with ask and search tools.

Endpoints:
  POST   /v1/documents               Upload and index a document (multipart "file")
  GET    /v1/documents               List documents
  GET    /v1/documents/:id           Get a document
  DELETE /v1/documents/:id           Delete a document and its chunks
  POST   /v1/documents/:id/reindex   Re-index a stored document
  POST   /v1/chat/query              Answer {"question": "..."}
  GET    /v1/search?query=&top_k=    Raw similarity search

Examples:
  docrag serve
  docrag serve --listen :9000 --llm-provider openai --llm-model gpt-4o-mini
  docrag serve --vector-store-provider qdrant --vector-store-target localhost:6334`

const serveShortDesc string = "Run the docrag API server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{
		flags: config.Flags,
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := stack.LoadConfig(cmd, serveFlags)
			if err != nil {
				return err
			}
			cmder.cfg = cfg
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, cmder.flags, config.FlagStorageProvider, &cmder.storageProvider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, cmder.flags, config.FlagPostgresDSN, &cmder.postgresDSN)
	config.AddStringFlag(cmd, cmder.flags, config.FlagVectorStoreProv, &cmder.vectorProvider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEmbeddingProv, &cmder.embeddingProv)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEmbeddingTgt, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, cmder.flags, config.FlagEmbeddingDims, &cmder.embeddingDims)
	config.AddStringFlag(cmd, cmder.flags, config.FlagLLMProvider, &cmder.llmProvider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagLLMTarget, &cmder.llmTarget)
	config.AddStringFlag(cmd, cmder.flags, config.FlagLLMModel, &cmder.llmModel)
	config.AddIntFlag(cmd, cmder.flags, config.FlagTopK, &cmder.topK)
	config.AddFloat32Flag(cmd, cmder.flags, config.FlagMinScore, &cmder.minScore)
	config.AddStringSliceFlag(cmd, cmder.flags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

func (c *ServeCommander) run(ctx context.Context) error {
	closeLog, err := c.setupLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	if ctx == nil {
		ctx = context.Background()
	}

	s, err := stack.New(ctx, c.cfg, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer s.Close()

	server, err := api.NewServer(api.Config{
		ListenAddr:     c.cfg.API.Listen,
		MaxUploadBytes: c.cfg.API.MaxUploadBytes,
	}, s.RAG, s.Documents, c.logger)
	if err != nil {
		return fmt.Errorf("creating api server: %w", err)
	}

	c.logger.Info("starting docrag",
		"listen", c.cfg.API.Listen,
		"llm_provider", c.cfg.LLM.Provider,
		"llm_model", c.cfg.LLM.Model,
		"embedding_model", c.cfg.Embedding.Model,
		"vector_store", c.cfg.VectorStore.Provider,
	)

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)

	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}

// setupLogger builds the pretty stdout logger and, with --log-file, fans
// records out to a JSON file as well.
func (c *ServeCommander) setupLogger() (func(), error) {
	pretty := logger.New(logger.WithDebug(c.debug), logger.WithPretty(true), logger.WithComponent("serve"))
	if c.logFile == "" {
		c.logger = pretty
		return func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	c.logger = logger.Multi(
		pretty,
		logger.New(logger.WithDebug(c.debug), logger.WithJSON(true), logger.WithWriter(f), logger.WithComponent("serve")),
	)
	return func() { f.Close() }, nil
}
