// ABOUTME: Configuration management for scholar with YAML config loading and env overrides.
// ABOUTME: Handles embedding provider, storage, ingestion, and logging settings plus ~ expansion.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/2389-research/scholar/internal/embeddings"
	"github.com/2389-research/scholar/internal/ingest"
	"github.com/2389-research/scholar/internal/storage"
)

// Config stores scholar configuration loaded from ~/.config/scholar/config.yaml.
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Storage   StorageConfig   `yaml:"storage"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Log       LogConfig       `yaml:"log"`
}

// EmbeddingConfig selects the embedding provider and holds remote API settings.
type EmbeddingConfig struct {
	Provider          string        `yaml:"provider"`
	AllowMockFallback bool          `yaml:"allow_mock_fallback"`
	APIURL            string        `yaml:"api_url"`
	APIKey            string        `yaml:"api_key,omitempty"`
	Model             string        `yaml:"model"`
	Dimensions        int           `yaml:"dimensions"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second,omitempty"`
	Burst             int           `yaml:"burst,omitempty"`
}

// StorageConfig selects and locates the source store.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path,omitempty"`
	DSN    string `yaml:"dsn,omitempty"`
	Table  string `yaml:"table,omitempty"`
	HNSW   bool   `yaml:"hnsw,omitempty"`
}

// IngestConfig holds batch ingestion defaults.
type IngestConfig struct {
	Policy      string `yaml:"policy"`
	Concurrency int    `yaml:"concurrency"`
}

// LogConfig controls log verbosity and format.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:   string(embeddings.ProviderRemote),
			APIURL:     embeddings.DefaultAPIURL,
			Model:      embeddings.DefaultModel,
			Dimensions: embeddings.DefaultDimension,
			Timeout:    embeddings.DefaultTimeout,
		},
		Storage: StorageConfig{
			Driver: storage.DriverSQLite,
		},
		Ingest: IngestConfig{
			Policy:      "continue",
			Concurrency: 1,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// HasAPIKey returns true if a remote embedding credential is configured.
func (c *Config) HasAPIKey() bool {
	return c.Embedding.APIKey != ""
}

// ProviderKind returns the configured provider, treating the legacy "openai" name as remote.
func (c *Config) ProviderKind() embeddings.ProviderKind {
	kind, ok := embeddings.ParseProviderKind(c.Embedding.Provider)
	if !ok {
		return embeddings.ProviderKind(c.Embedding.Provider)
	}
	return kind
}

// GatewayConfig returns the provider selection passed to the embedding gateway.
func (c *Config) GatewayConfig() embeddings.Config {
	return embeddings.Config{
		Provider:          c.ProviderKind(),
		AllowMockFallback: c.Embedding.AllowMockFallback,
	}
}

// RemoteOptions returns the remote embedder options implied by the embedding section.
func (c *Config) RemoteOptions() []embeddings.RemoteOption {
	var opts []embeddings.RemoteOption
	if c.Embedding.Timeout > 0 {
		opts = append(opts, embeddings.WithTimeout(c.Embedding.Timeout))
	}
	if c.Embedding.Dimensions > 0 && c.Embedding.Dimensions != embeddings.DefaultDimension {
		opts = append(opts, embeddings.WithDimensions(c.Embedding.Dimensions))
	}
	if c.Embedding.RequestsPerSecond > 0 {
		opts = append(opts, embeddings.WithRateLimit(c.Embedding.RequestsPerSecond, c.Embedding.Burst))
	}
	return opts
}

// IngestPolicy parses the configured ingestion policy.
func (c *Config) IngestPolicy() (ingest.Policy, error) {
	return ingest.ParsePolicy(c.Ingest.Policy)
}

// StoreOptions returns the storage factory options, resolving the default database path.
func (c *Config) StoreOptions() (storage.Options, error) {
	opts := storage.Options{
		Driver:    c.Storage.Driver,
		DSN:       c.Storage.DSN,
		Table:     c.Storage.Table,
		Dimension: c.Embedding.Dimensions,
		HNSW:      c.Storage.HNSW,
	}
	if opts.Dimension <= 0 {
		opts.Dimension = embeddings.DefaultDimension
	}
	if opts.Driver == "" || opts.Driver == storage.DriverSQLite {
		path, err := c.DatabasePath()
		if err != nil {
			return storage.Options{}, err
		}
		opts.Path = path
	}
	return opts, nil
}

// DatabasePath returns the SQLite database path, defaulting to sources.db in the data directory.
func (c *Config) DatabasePath() (string, error) {
	if c.Storage.Path != "" {
		return ExpandPath(c.Storage.Path)
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sources.db"), nil
}

var validLogLevels = map[string]bool{"": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true}

// Validate rejects unknown provider, driver, policy, and log level values.
func (c *Config) Validate() error {
	var errs []error
	if _, ok := embeddings.ParseProviderKind(c.Embedding.Provider); !ok {
		errs = append(errs, fmt.Errorf("embedding.provider: unknown provider %q (want mock or remote)", c.Embedding.Provider))
	}
	if c.Embedding.Dimensions < 0 {
		errs = append(errs, fmt.Errorf("embedding.dimensions cannot be negative: %d", c.Embedding.Dimensions))
	}
	if c.Embedding.Timeout < 0 {
		errs = append(errs, fmt.Errorf("embedding.timeout cannot be negative: %s", c.Embedding.Timeout))
	}
	switch c.Storage.Driver {
	case "", storage.DriverMemory, storage.DriverSQLite:
	case storage.DriverPostgres:
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q (want memory, sqlite, or postgres)", c.Storage.Driver))
	}
	if _, err := c.IngestPolicy(); err != nil {
		errs = append(errs, fmt.Errorf("ingest.policy: %w", err))
	}
	if c.Ingest.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("ingest.concurrency cannot be negative: %d", c.Ingest.Concurrency))
	}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	return errors.Join(errs...)
}

// ApplyEnv overlays environment variables onto the configuration.
func (c *Config) ApplyEnv() {
	c.applyEnv(os.Getenv)
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("EMBEDDING_PROVIDER"); v != "" {
		c.Embedding.Provider = strings.ToLower(strings.TrimSpace(v))
	}
	if v := getenv("ALLOW_MOCK_EMBEDDINGS"); v != "" {
		c.Embedding.AllowMockFallback = parseBool(v)
	}
	if v := getenv("OPENAI_API_KEY"); v != "" {
		c.Embedding.APIKey = v
	}
	if v := getenv("OPENAI_BASE_URL"); v != "" {
		c.Embedding.APIURL = v
	}
	if v := getenv("EMBEDDING_MODEL"); v != "" {
		c.Embedding.Model = v
	}
	if v := getenv("SCHOLAR_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = strings.ToLower(strings.TrimSpace(v))
	}
	if v := getenv("DATABASE_URL"); v != "" {
		c.Storage.DSN = v
	} else if dsn := postgresDSN(getenv); dsn != "" {
		c.Storage.DSN = dsn
	}
	if v := getenv("SCHOLAR_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

// postgresDSN composes a connection URL from POSTGRES_* variables when any of them is set.
func postgresDSN(getenv func(string) string) string {
	host := getenv("POSTGRES_HOST")
	port := getenv("POSTGRES_PORT")
	db := getenv("POSTGRES_DB")
	user := getenv("POSTGRES_USER")
	pass := getenv("POSTGRES_PASSWORD")
	if host == "" && port == "" && db == "" && user == "" && pass == "" {
		return ""
	}
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "5432"
	}
	if db == "" {
		db = "academic_helper"
	}
	if user == "" {
		user = "student"
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, pass),
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + db,
	}
	if pass == "" {
		u.User = url.User(user)
	}
	return u.String()
}

// LoadDotEnv loads variables from a .env file without overriding ones already set.
// A missing file is not an error. An empty path means ".env" in the working directory.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// DataDir returns the scholar data directory under $XDG_DATA_HOME.
func DataDir() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "scholar"), nil
}

// GetConfigPath returns the config file path.
func GetConfigPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "scholar", "config.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// Load reads config from the default path. Returns default config if the file doesn't exist.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads config from path over the defaults. A missing file yields the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes config to the default path.
func (c *Config) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes config to path with owner-only permissions.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
