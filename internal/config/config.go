package config

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/straye-as/opportunity-sync/internal/secrets"
	"go.uber.org/zap"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Logging   LoggingConfig
	Server    ServerConfig
	CORS      CORSConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
	GHL       GHLConfig
	Matching  MatchingConfig
	Sync      SyncConfig
	Retry     RetryConfig
	Progress  ProgressConfig
	Storage   StorageConfig
	Secrets   SecretsConfig

	// Accounts is parsed from the SUBACCOUNTS JSON document
	Accounts []AccountConfig `mapstructure:"-"`
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
	// MaxBodyMB caps JSON request bodies carrying opportunity lists
	MaxBodyMB     int64
	EnableSwagger bool
	// PublicHost is advertised in the API docs; empty means localhost
	PublicHost string
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// SecurityConfig holds security header configuration
type SecurityConfig struct {
	ContentTypeNosniff bool
	FrameOptions       string
	ReferrerPolicy     string
}

// RateLimitConfig holds inbound rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	WhitelistIPs      []string
	WhitelistPaths    []string
}

// GHLConfig configures the remote opportunity API client
type GHLConfig struct {
	BaseURL string
	// Timeout applies to each outbound HTTP call (seconds)
	Timeout int
	// PageSize is the number of opportunities requested per page
	PageSize int
	// MaxRecords caps the number of opportunities fetched per pipeline (0 = unlimited)
	MaxRecords int
	// MaxPages is a hard bound on pages fetched per pipeline
	MaxPages int
	// PageDelayMs is slept between page requests
	PageDelayMs int
	// PipelineConcurrency bounds how many pipelines of one account are paginated at once
	PipelineConcurrency int
}

// MatchingConfig holds default matching thresholds
type MatchingConfig struct {
	MatchThreshold          float64
	HighConfidenceThreshold float64
	// Strategy is "greedy" (default) or "optimal"
	Strategy string
}

// SyncConfig holds batch update defaults
type SyncConfig struct {
	BatchSize         int
	Concurrency       int
	BatchDelayMs      int
	RecentErrorsLimit int
}

// RetryConfig configures the bounded retry policy for outbound calls
type RetryConfig struct {
	MaxRetries  int
	BaseDelayMs int
	MaxDelayMs  int
}

// ProgressConfig controls retention of finished operations
type ProgressConfig struct {
	// Retention in minutes; 0 keeps operations until process exit
	Retention int
	PruneCron string
}

type StorageConfig struct {
	// Mode is "none", "local" or "azure"
	Mode                  string
	LocalBasePath         string
	CloudConnectionString string
	CloudContainer        string
}

type SecretsConfig struct {
	// Source determines where account API keys are resolved: "environment", "vault", or "auto"
	Source       string
	KeyVaultName string
	CacheEnabled bool
	CacheTTL     int // seconds
}

// AccountConfig is one CRM sub-account and its API key
type AccountConfig struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	APIKey string `json:"api_key"`
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// writeTimeoutSlack is left after the request timeout for the handler to
// write its timeout response
const writeTimeoutSlack = 5 * time.Second

// WriteTimeoutDuration returns write timeout as duration. It never ends
// before the request timeout so a slow response is not cut off.
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	write := time.Duration(s.WriteTimeout) * time.Second
	if request := s.RequestTimeoutDuration(); request > 0 && write < request+writeTimeoutSlack {
		return request + writeTimeoutSlack
	}
	return write
}

// RequestTimeoutDuration returns request timeout as duration
func (s *ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

// TimeoutDuration returns the per-call HTTP timeout
func (g *GHLConfig) TimeoutDuration() time.Duration {
	return time.Duration(g.Timeout) * time.Second
}

// PageDelayDuration returns the delay between page requests
func (g *GHLConfig) PageDelayDuration() time.Duration {
	return time.Duration(g.PageDelayMs) * time.Millisecond
}

// BatchDelayDuration returns the fixed delay between sync batches
func (s *SyncConfig) BatchDelayDuration() time.Duration {
	return time.Duration(s.BatchDelayMs) * time.Millisecond
}

// BaseDelayDuration returns the first retry backoff
func (r *RetryConfig) BaseDelayDuration() time.Duration {
	return time.Duration(r.BaseDelayMs) * time.Millisecond
}

// MaxDelayDuration returns the backoff cap
func (r *RetryConfig) MaxDelayDuration() time.Duration {
	return time.Duration(r.MaxDelayMs) * time.Millisecond
}

// RetentionDuration returns how long finished operations are kept
func (p *ProgressConfig) RetentionDuration() time.Duration {
	return time.Duration(p.Retention) * time.Minute
}

// AccountAPIKeys returns account id -> API key for accounts that carry a key
func (c *Config) AccountAPIKeys() map[string]string {
	keys := make(map[string]string, len(c.Accounts))
	for _, a := range c.Accounts {
		if a.APIKey != "" {
			keys[a.ID] = a.APIKey
		}
	}
	return keys
}

// Load loads configuration from file and environment variables
// This is a basic load that doesn't resolve account keys from vault
// Use LoadWithSecrets for full secret resolution
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	accounts, err := ParseAccounts(v.GetString("SUBACCOUNTS"))
	if err != nil {
		return nil, err
	}
	cfg.Accounts = accounts

	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}
	if cfg.Storage.CloudConnectionString == "" {
		cfg.Storage.CloudConnectionString = v.GetString("STORAGE_CLOUDCONNECTIONSTRING")
	}

	return &cfg, nil
}

// ParseAccounts decodes the SUBACCOUNTS JSON list. An empty document yields no accounts.
func ParseAccounts(raw string) ([]AccountConfig, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var accounts []AccountConfig
	if err := json.Unmarshal([]byte(raw), &accounts); err != nil {
		return nil, fmt.Errorf("failed to parse SUBACCOUNTS: %w", err)
	}
	return accounts, nil
}

// LoadWithSecrets loads configuration and resolves account API keys from the configured source.
// Keys stored in Key Vault as "account-<id>-api-key" override the SUBACCOUNTS value.
// An environment variable ACCOUNT_<ID>_API_KEY always wins.
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	source := secrets.SecretSource(cfg.Secrets.Source)
	if source == secrets.SourceAuto && cfg.Secrets.KeyVaultName == "" {
		logger.Info("No Key Vault configured, using environment for account keys",
			zap.String("environment", cfg.App.Environment),
		)
		source = secrets.SourceEnvironment
	}

	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:       source,
		VaultName:    cfg.Secrets.KeyVaultName,
		Environment:  cfg.App.Environment,
		CacheEnabled: cfg.Secrets.CacheEnabled,
		CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets provider: %w", err)
	}

	resolved := 0
	for i := range cfg.Accounts {
		acc := &cfg.Accounts[i]
		envName := "ACCOUNT_" + strings.ToUpper(acc.ID) + "_API_KEY"
		key := provider.GetSecretOrEnvWithDefault(ctx, secrets.AccountKeyName(acc.ID), envName, acc.APIKey)
		if key != "" {
			acc.APIKey = key
			resolved++
		}
	}

	logger.Info("Account API keys resolved",
		zap.String("source", string(provider.Source())),
		zap.Bool("key_vault", provider.IsVaultEnabled()),
		zap.Int("accounts", len(cfg.Accounts)),
		zap.Int("with_key", resolved),
	)

	if len(cfg.Accounts) == 0 {
		logger.Warn("No sub-accounts configured; sync operations will fail per record",
			zap.String("hint", "set SUBACCOUNTS to a JSON list of {id, name, api_key}"),
		)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Opportunity Sync")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Server defaults
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 90)
	v.SetDefault("server.requestTimeout", 60)
	v.SetDefault("server.maxBodyMB", 50)
	v.SetDefault("server.enableSwagger", true)
	v.SetDefault("server.publicHost", "")

	// CORS defaults
	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Content-Type", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"Location", "X-Request-ID"})
	v.SetDefault("cors.allowCredentials", false)
	v.SetDefault("cors.maxAge", 300)

	// Security header defaults
	v.SetDefault("security.contentTypeNosniff", true)
	v.SetDefault("security.frameOptions", "DENY")
	v.SetDefault("security.referrerPolicy", "strict-origin-when-cross-origin")

	// Rate limiting defaults
	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 120)
	v.SetDefault("rateLimit.whitelistIPs", []string{"127.0.0.1", "::1"})
	v.SetDefault("rateLimit.whitelistPaths", []string{"/health"})

	// Remote opportunity API defaults
	v.SetDefault("ghl.baseURL", "https://rest.gohighlevel.com/v1")
	v.SetDefault("ghl.timeout", 30)
	v.SetDefault("ghl.pageSize", 100)
	v.SetDefault("ghl.maxRecords", 0)
	v.SetDefault("ghl.maxPages", 100)
	v.SetDefault("ghl.pageDelayMs", 100)
	v.SetDefault("ghl.pipelineConcurrency", 4)

	// Matching defaults
	v.SetDefault("matching.matchThreshold", 0.7)
	v.SetDefault("matching.highConfidenceThreshold", 0.9)
	v.SetDefault("matching.strategy", "greedy")

	// Sync defaults
	v.SetDefault("sync.batchSize", 10)
	v.SetDefault("sync.concurrency", 5)
	v.SetDefault("sync.batchDelayMs", 1000)
	v.SetDefault("sync.recentErrorsLimit", 10)

	// Retry defaults (3 attempts, 1s doubling)
	v.SetDefault("retry.maxRetries", 2)
	v.SetDefault("retry.baseDelayMs", 1000)
	v.SetDefault("retry.maxDelayMs", 10000)

	// Progress retention (0 = keep until process exit)
	v.SetDefault("progress.retention", 0)
	v.SetDefault("progress.pruneCron", "0 */10 * * * *")

	// Result archive defaults
	v.SetDefault("storage.mode", "local")
	v.SetDefault("storage.localBasePath", "./master_child_opportunity_updates/results")
	v.SetDefault("storage.cloudContainer", "opportunity-sync-results")

	// Secrets defaults
	v.SetDefault("secrets.source", "auto")
	v.SetDefault("secrets.cacheEnabled", true)
	v.SetDefault("secrets.cacheTTL", 300)
}
