package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Store.Driver != "memory" {
		t.Errorf("expected memory store, got %s", cfg.Store.Driver)
	}
	if cfg.Worker.RetryAttempts != 3 {
		t.Errorf("expected 3 retry attempts, got %d", cfg.Worker.RetryAttempts)
	}
	if cfg.Queue.MessageTTL != 24*time.Hour {
		t.Errorf("expected message ttl 24h, got %v", cfg.Queue.MessageTTL)
	}
	if cfg.Breaker.Timeout != 30*time.Second {
		t.Errorf("expected breaker timeout 30s, got %v", cfg.Breaker.Timeout)
	}
	if cfg.Server.AllowLedgerWrites {
		t.Error("ledger writes over HTTP must be off by default")
	}
	if err := validate(&cfg); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
server:
  port: "9090"
store:
  driver: postgres
postgres:
  max_conns: 20
worker:
  retry_attempts: 5
  backoff_base: 250ms
logging:
  level: "debug"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Store.Driver != "postgres" {
		t.Errorf("expected postgres store, got %s", cfg.Store.Driver)
	}
	if cfg.Postgres.MaxConns != 20 {
		t.Errorf("expected max_conns 20, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Worker.RetryAttempts != 5 {
		t.Errorf("expected retry_attempts 5, got %d", cfg.Worker.RetryAttempts)
	}
	if cfg.Worker.BackoffBase != 250*time.Millisecond {
		t.Errorf("expected backoff_base 250ms, got %v", cfg.Worker.BackoffBase)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	// Unchanged fields keep defaults
	if cfg.Queue.MessageTTL != 24*time.Hour {
		t.Errorf("expected default message ttl, got %v", cfg.Queue.MessageTTL)
	}
}

func TestLoadYAMLMissing(t *testing.T) {
	cfg := Defaults()
	err := loadYAML(&cfg, "/nonexistent/path.yaml")
	if err != nil {
		t.Errorf("missing YAML should not error, got %v", err)
	}
}

func TestLoadYAMLInvalid(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(yamlPath, []byte("server: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverride(t *testing.T) {
	cfg := Defaults()

	t.Setenv("PAPERDESK_PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://test:test@db:5432/test")
	t.Setenv("PAPERDESK_PG_MAX_CONNS", "25")
	t.Setenv("PAPERDESK_LOG_LEVEL", "warn")
	t.Setenv("PAPERDESK_BREAKER_TIMEOUT", "1m")
	t.Setenv("PAPERDESK_WORKER_RETRY_ATTEMPTS", "4")
	t.Setenv("PAPERDESK_QUEUE_MESSAGE_TTL", "2h")
	t.Setenv("PAPERDESK_CACHE_ENABLED", "false")
	t.Setenv("NATS_URL", "nats://bus:4222")
	t.Setenv("PAPERDESK_ALLOW_LEDGER_WRITES", "true")

	loadEnv(&cfg)

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Postgres.DSN != "postgres://test:test@db:5432/test" {
		t.Errorf("unexpected DSN: %s", cfg.Postgres.DSN)
	}
	if cfg.Postgres.MaxConns != 25 {
		t.Errorf("expected max_conns 25, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Logging.Level)
	}
	if cfg.Breaker.Timeout != time.Minute {
		t.Errorf("expected breaker timeout 1m, got %v", cfg.Breaker.Timeout)
	}
	if cfg.Worker.RetryAttempts != 4 {
		t.Errorf("expected retry_attempts 4, got %d", cfg.Worker.RetryAttempts)
	}
	if cfg.Queue.MessageTTL != 2*time.Hour {
		t.Errorf("expected message ttl 2h, got %v", cfg.Queue.MessageTTL)
	}
	if cfg.Cache.Enabled {
		t.Error("expected cache disabled")
	}
	if cfg.NATS.URL != "nats://bus:4222" {
		t.Errorf("unexpected NATS URL: %s", cfg.NATS.URL)
	}
	if !cfg.Server.AllowLedgerWrites {
		t.Error("expected ledger writes enabled")
	}
}

func TestEnvInvalidValuesIgnored(t *testing.T) {
	cfg := Defaults()

	t.Setenv("PAPERDESK_PG_MAX_CONNS", "not-a-number")
	t.Setenv("PAPERDESK_BREAKER_TIMEOUT", "soon")
	t.Setenv("PAPERDESK_CACHE_ENABLED", "maybe")

	loadEnv(&cfg)

	if cfg.Postgres.MaxConns != 15 {
		t.Errorf("invalid int should keep default, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Breaker.Timeout != 30*time.Second {
		t.Errorf("invalid duration should keep default, got %v", cfg.Breaker.Timeout)
	}
	if !cfg.Cache.Enabled {
		t.Error("invalid bool should keep default")
	}
}

func TestValidateRequired(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"empty port", func(c *Config) { c.Server.Port = "" }, "server.port is required"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "sqlite" }, "store.driver"},
		{"empty dsn with postgres", func(c *Config) {
			c.Store.Driver = "postgres"
			c.Postgres.DSN = ""
		}, "postgres.dsn is required"},
		{"zero max_conns with postgres", func(c *Config) {
			c.Store.Driver = "postgres"
			c.Postgres.MaxConns = 0
		}, "postgres.max_conns must be >= 1"},
		{"zero breaker failures", func(c *Config) { c.Breaker.MaxFailures = 0 }, "breaker.max_failures"},
		{"zero retry attempts", func(c *Config) { c.Worker.RetryAttempts = 0 }, "worker.retry_attempts"},
		{"negative backoff", func(c *Config) { c.Worker.BackoffBase = -time.Second }, "worker.backoff_base"},
		{"zero ttl", func(c *Config) { c.Queue.MessageTTL = 0 }, "queue.message_ttl"},
		{"negative history", func(c *Config) { c.History.MaxRecords = -1 }, "history.max_records"},
		{"zero parallel", func(c *Config) { c.Orchestrator.MaxParallel = 0 }, "orchestrator.max_parallel"},
		{"bad as_of_date", func(c *Config) { c.Orchestrator.AsOfDate = "01/02/2025" }, "orchestrator.as_of_date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := validate(&cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("expected error containing %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestLoadFrom_FullHierarchy(t *testing.T) {
	// YAML sets port=9090, env overrides to 7070. Env must win.
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(yamlPath, []byte(`
server:
  port: "9090"
logging:
  level: "debug"
`), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PAPERDESK_PORT", "7070")

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("env should win over yaml, got port %s", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("yaml should win over defaults, got level %s", cfg.Logging.Level)
	}
}

func TestLoadFrom_ValidationFails(t *testing.T) {
	t.Setenv("PAPERDESK_STORE", "cassandra")

	_, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "config validate") {
		t.Errorf("expected wrapped validate error, got %v", err)
	}
}

func TestParseFlags(t *testing.T) {
	flags, err := ParseFlags([]string{"-p", "9999", "--store", "postgres", "--log-level", "error"})
	if err != nil {
		t.Fatalf("ParseFlags: %v", err)
	}
	if flags.Port == nil || *flags.Port != "9999" {
		t.Errorf("expected port flag 9999, got %v", flags.Port)
	}
	if flags.StoreDrv == nil || *flags.StoreDrv != "postgres" {
		t.Errorf("expected store flag postgres, got %v", flags.StoreDrv)
	}
	if flags.DSN != nil {
		t.Error("unset flag should stay nil")
	}
}

func TestBindFlagsWithSubcommandFlags(t *testing.T) {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	file := fs.String("f", "", "request file")
	collect := BindFlags(fs)

	if err := fs.Parse([]string{"-f", "req.json", "--nats-url", "nats://example:4222", "extra"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	flags := collect()
	if *file != "req.json" {
		t.Errorf("expected subcommand flag to parse, got %q", *file)
	}
	if flags.NatsURL == nil || *flags.NatsURL != "nats://example:4222" {
		t.Errorf("expected nats-url flag, got %v", flags.NatsURL)
	}
	if flags.Port != nil {
		t.Error("unset flag should stay nil")
	}
	if got := fs.Args(); len(got) != 1 || got[0] != "extra" {
		t.Errorf("expected positional args [extra], got %v", got)
	}
}

func TestLoadWithCLI_FlagsWin(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(yamlPath, []byte("server:\n  port: \"9090\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PAPERDESK_PORT", "7070")

	port := "6060"
	cfg, path, err := LoadWithCLI(CLIFlags{ConfigPath: &yamlPath, Port: &port})
	if err != nil {
		t.Fatalf("LoadWithCLI: %v", err)
	}
	if path != yamlPath {
		t.Errorf("expected path %s, got %s", yamlPath, path)
	}
	if cfg.Server.Port != "6060" {
		t.Errorf("cli should win over env, got port %s", cfg.Server.Port)
	}
}
