// Command paperdesk runs the PaperDesk order orchestration service.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/Strob0t/PaperDesk/internal/config"
	"github.com/Strob0t/PaperDesk/internal/logger"
)

func main() {
	if err := dispatch(os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// dispatch routes to a subcommand. With no arguments the server starts.
func dispatch(args []string) error {
	cmd := "serve"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		return runServe(args)
	case "run":
		return runRequest(args)
	case "migrate":
		return runMigrate(args)
	case "seed":
		return runSeed(args)
	case "help":
		printHelp()
		return nil
	default:
		printHelp()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `Usage: paperdesk <command> [options]

Commands:
  serve                 Start the HTTP, WebSocket and MCP server (default)
  run -f request.json   Coordinate one request and print the workflow record
  migrate up|down|version
                        Manage the PostgreSQL schema
  seed                  Load the catalog, opening cash and stock into PostgreSQL
  help                  Show this help message

Global options (every command):
  -c, --config   path to YAML config file (default paperdesk.yaml)
  -p, --port     HTTP listen port
  --log-level    debug, info, warn, error
  --store        memory or postgres
  --dsn          PostgreSQL DSN
  --nats-url     NATS server URL

Examples:
  paperdesk serve --store postgres
  paperdesk run -f quote.json
  echo '{"type":"inquiry","question":"Do you sell cardstock?"}' | paperdesk run -f -
  paperdesk migrate down 1
`)
}

// loadConfig parses fs (global flags already bound through config.BindFlags),
// loads the configuration and installs the default logger. The returned
// function flushes the logger.
func loadConfig(fs *flag.FlagSet, collect func() config.CLIFlags, args []string) (*config.Config, func(), error) {
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	cfg, path, err := config.LoadWithCLI(collect())
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	log, closer := logger.New(cfg.Logging)
	slog.SetDefault(log)
	slog.Debug("config loaded", "path", path, "store", cfg.Store.Driver, "log_level", cfg.Logging.Level)
	return cfg, closer.Close, nil
}
