package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "paperdesk.yaml"

// CLIFlags holds command-line overrides. Nil fields were not set on the command line.
type CLIFlags struct {
	ConfigPath *string
	Port       *string
	LogLevel   *string
	DSN        *string
	NatsURL    *string
	StoreDrv   *string
}

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// LoadWithCLI applies defaults < YAML < ENV < CLI and returns the resolved
// config together with the YAML path that was consulted.
func LoadWithCLI(flags CLIFlags) (*Config, string, error) {
	path := DefaultConfigFile
	if flags.ConfigPath != nil && *flags.ConfigPath != "" {
		path = *flags.ConfigPath
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, path); err != nil {
		return nil, "", fmt.Errorf("config yaml: %w", err)
	}
	loadEnv(&cfg)
	applyCLI(&cfg, flags)

	if err := validate(&cfg); err != nil {
		return nil, "", fmt.Errorf("config validate: %w", err)
	}
	return &cfg, path, nil
}

// ParseFlags parses the global command-line flags shared by all subcommands.
func ParseFlags(args []string) (CLIFlags, error) {
	fs := flag.NewFlagSet("paperdesk", flag.ContinueOnError)
	collect := BindFlags(fs)
	if err := fs.Parse(args); err != nil {
		return CLIFlags{}, err
	}
	return collect(), nil
}

// BindFlags registers the global flags on fs so a subcommand can add its
// own. The returned function, called after fs.Parse, reports the flags that
// were set explicitly.
func BindFlags(fs *flag.FlagSet) func() CLIFlags {
	configPath := fs.String("config", "", "path to YAML config file")
	fs.StringVar(configPath, "c", "", "shorthand for --config")
	port := fs.String("port", "", "HTTP listen port")
	fs.StringVar(port, "p", "", "shorthand for --port")
	logLevel := fs.String("log-level", "", "log level (debug, info, warn, error)")
	dsn := fs.String("dsn", "", "PostgreSQL DSN")
	natsURL := fs.String("nats-url", "", "NATS server URL")
	storeDrv := fs.String("store", "", "store driver (memory, postgres)")

	return func() CLIFlags {
		var flags CLIFlags
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "config", "c":
				flags.ConfigPath = configPath
			case "port", "p":
				flags.Port = port
			case "log-level":
				flags.LogLevel = logLevel
			case "dsn":
				flags.DSN = dsn
			case "nats-url":
				flags.NatsURL = natsURL
			case "store":
				flags.StoreDrv = storeDrv
			}
		})
		return flags
	}
}

// applyCLI overlays explicitly set flags onto cfg.
func applyCLI(cfg *Config, flags CLIFlags) {
	if flags.Port != nil {
		cfg.Server.Port = *flags.Port
	}
	if flags.LogLevel != nil {
		cfg.Logging.Level = *flags.LogLevel
	}
	if flags.DSN != nil {
		cfg.Postgres.DSN = *flags.DSN
	}
	if flags.NatsURL != nil {
		cfg.NATS.URL = *flags.NatsURL
	}
	if flags.StoreDrv != nil {
		cfg.Store.Driver = *flags.StoreDrv
	}
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PAPERDESK_PORT")
	setString(&cfg.Server.CORSOrigin, "PAPERDESK_CORS_ORIGIN")
	setInt64(&cfg.Server.MaxRequestBodySize, "PAPERDESK_MAX_BODY_SIZE")
	setInt(&cfg.Server.MaxBatchSize, "PAPERDESK_MAX_BATCH_SIZE")
	setFloat(&cfg.Server.RateLimit, "PAPERDESK_RATE_LIMIT")
	setInt(&cfg.Server.RateBurst, "PAPERDESK_RATE_BURST")
	setDuration(&cfg.Server.IdempotencyTTL, "PAPERDESK_IDEMPOTENCY_TTL")
	setBool(&cfg.Server.AllowLedgerWrites, "PAPERDESK_ALLOW_LEDGER_WRITES")
	setString(&cfg.Store.Driver, "PAPERDESK_STORE")
	setBool(&cfg.Store.Seed, "PAPERDESK_STORE_SEED")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "PAPERDESK_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "PAPERDESK_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "PAPERDESK_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "PAPERDESK_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "PAPERDESK_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Logging.Level, "PAPERDESK_LOG_LEVEL")
	setString(&cfg.Logging.Service, "PAPERDESK_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "PAPERDESK_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "PAPERDESK_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "PAPERDESK_BREAKER_TIMEOUT")

	// Worker
	setInt(&cfg.Worker.RetryAttempts, "PAPERDESK_WORKER_RETRY_ATTEMPTS")
	setDuration(&cfg.Worker.BackoffBase, "PAPERDESK_WORKER_BACKOFF_BASE")
	setDuration(&cfg.Worker.Timeout, "PAPERDESK_WORKER_TIMEOUT")

	setDuration(&cfg.Queue.MessageTTL, "PAPERDESK_QUEUE_MESSAGE_TTL")

	// Cache
	setBool(&cfg.Cache.Enabled, "PAPERDESK_CACHE_ENABLED")
	setInt64(&cfg.Cache.L1MaxSizeMB, "PAPERDESK_CACHE_L1_SIZE_MB")
	setString(&cfg.Cache.L2Bucket, "PAPERDESK_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.PriceTTL, "PAPERDESK_CACHE_PRICE_TTL")

	setString(&cfg.Rules.File, "PAPERDESK_RULES_FILE")
	setInt(&cfg.History.MaxRecords, "PAPERDESK_HISTORY_MAX_RECORDS")

	// Orchestrator
	setInt(&cfg.Orchestrator.MaxParallel, "PAPERDESK_ORCH_MAX_PARALLEL")
	setString(&cfg.Orchestrator.AsOfDate, "PAPERDESK_ORCH_AS_OF_DATE")

	// OpenTelemetry
	setBool(&cfg.Otel.Enabled, "PAPERDESK_OTEL_ENABLED")
	setString(&cfg.Otel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setBool(&cfg.Otel.Insecure, "PAPERDESK_OTEL_INSECURE")
	setString(&cfg.Otel.ServiceName, "OTEL_SERVICE_NAME")

	setBool(&cfg.MCP.Enabled, "PAPERDESK_MCP_ENABLED")
	setString(&cfg.MCP.APIKey, "PAPERDESK_MCP_API_KEY")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Server.MaxBatchSize < 1 {
		return errors.New("server.max_batch_size must be >= 1")
	}
	if cfg.Server.RateLimit < 0 {
		return errors.New("server.rate_limit must be >= 0")
	}
	switch cfg.Store.Driver {
	case "memory":
	case "postgres":
		if cfg.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required")
		}
		if cfg.Postgres.MaxConns < 1 {
			return errors.New("postgres.max_conns must be >= 1")
		}
	default:
		return fmt.Errorf("store.driver %q is not supported", cfg.Store.Driver)
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Worker.RetryAttempts < 1 {
		return errors.New("worker.retry_attempts must be >= 1")
	}
	if cfg.Worker.BackoffBase < 0 {
		return errors.New("worker.backoff_base must be >= 0")
	}
	if cfg.Queue.MessageTTL <= 0 {
		return errors.New("queue.message_ttl must be > 0")
	}
	if cfg.History.MaxRecords < 0 {
		return errors.New("history.max_records must be >= 0")
	}
	if cfg.Orchestrator.MaxParallel < 1 {
		return errors.New("orchestrator.max_parallel must be >= 1")
	}
	if cfg.Orchestrator.AsOfDate != "" {
		if _, err := time.Parse(time.DateOnly, cfg.Orchestrator.AsOfDate); err != nil {
			return fmt.Errorf("orchestrator.as_of_date: %w", err)
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
