// ABOUTME: Root Cobra command and global flags for the scholar CLI.
// ABOUTME: Loads config, then wires the store, embedding gateway, ingestion pipeline, and retrieval service.
package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/2389-research/scholar/internal/config"
	"github.com/2389-research/scholar/internal/embeddings"
	"github.com/2389-research/scholar/internal/ingest"
	"github.com/2389-research/scholar/internal/logging"
	"github.com/2389-research/scholar/internal/retrieval"
	"github.com/2389-research/scholar/internal/storage"
)

var globalConfig *config.Config
var globalLogger *log.Logger
var globalStore storage.SourceStore
var globalGateway *embeddings.Gateway
var globalRegistry *prometheus.Registry

// Flags
var (
	configPath   string
	envFile      string
	logLevel     string
	providerFlag string
)

var rootCmd = &cobra.Command{
	Use:   "scholar",
	Short: "Semantic search over academic sources",
	Long: `
███████╗ ██████╗██╗  ██╗ ██████╗ ██╗      █████╗ ██████╗
██╔════╝██╔════╝██║  ██║██╔═══██╗██║     ██╔══██╗██╔══██╗
███████╗██║     ███████║██║   ██║██║     ███████║██████╔╝
╚════██║██║     ██╔══██║██║   ██║██║     ██╔══██║██╔══██╗
███████║╚██████╗██║  ██║╚██████╔╝███████╗██║  ██║██║  ██║
╚══════╝ ╚═════╝╚═╝  ╚═╝ ╚═════╝ ╚══════╝╚═╝  ╚═╝╚═╝  ╚═╝

Embed academic papers and books, store their vectors, and find
the sources closest to a natural-language question.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "setup" {
			return nil
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		globalConfig = cfg
		globalLogger = logging.New(logging.Config{Level: cfg.Log.Level, JSON: cfg.Log.JSON})

		storeOpts, err := cfg.StoreOptions()
		if err != nil {
			return fmt.Errorf("failed to resolve store options: %w", err)
		}
		store, err := storage.Open(cmd.Context(), storeOpts)
		if err != nil {
			return fmt.Errorf("failed to open source store: %w", err)
		}
		globalStore = store

		globalRegistry = prometheus.NewRegistry()
		metrics, err := embeddings.NewMetrics(globalRegistry)
		if err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}

		remote := embeddings.NewRemoteEmbedder(cfg.Embedding.APIURL, cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.RemoteOptions()...)
		globalGateway = embeddings.NewGateway(cfg.GatewayConfig(), remote,
			embeddings.WithLogger(globalLogger.With("component", "gateway")),
			embeddings.WithMetrics(metrics),
		)

		globalLogger.Debug("initialized",
			"provider", cfg.ProviderKind(),
			"fallback", cfg.Embedding.AllowMockFallback,
			"store", storeOpts.Driver,
			"dimension", globalGateway.Dimension(),
		)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if globalStore != nil {
			_ = globalStore.Close()
			globalStore = nil
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/scholar/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, or error")
	rootCmd.PersistentFlags().StringVar(&providerFlag, "provider", "", "Embedding provider: mock or remote")
}

// loadConfig reads the config file, then overlays the dotenv file, the environment, and flags.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if providerFlag != "" {
		cfg.Embedding.Provider = providerFlag
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newPipeline builds an ingestion pipeline from config, letting flags override policy and concurrency.
func newPipeline(policy string, concurrency int) (*ingest.Pipeline, error) {
	if policy == "" {
		policy = globalConfig.Ingest.Policy
	}
	p, err := ingest.ParsePolicy(policy)
	if err != nil {
		return nil, err
	}
	if concurrency <= 0 {
		concurrency = globalConfig.Ingest.Concurrency
	}
	return ingest.NewPipeline(globalGateway, globalStore,
		ingest.WithPolicy(p),
		ingest.WithConcurrency(concurrency),
		ingest.WithLogger(globalLogger.With("component", "ingest")),
	), nil
}

// newService builds the retrieval service over the shared gateway and store.
func newService() *retrieval.Service {
	return retrieval.NewService(globalGateway, globalStore,
		retrieval.WithLogger(globalLogger.With("component", "retrieval")),
	)
}
