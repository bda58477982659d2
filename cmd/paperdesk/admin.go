package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/Strob0t/PaperDesk/internal/adapter/postgres"
	"github.com/Strob0t/PaperDesk/internal/config"
	"github.com/Strob0t/PaperDesk/internal/domain/ledger"
)

// runMigrate handles "migrate up", "migrate down [n]" and "migrate version".
func runMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	cfg, flush, err := loadConfig(fs, config.BindFlags(fs), args)
	if err != nil {
		return err
	}
	defer flush()

	rest := fs.Args()
	if len(rest) == 0 {
		return errors.New("usage: paperdesk migrate up|down [n]|version")
	}
	ctx := context.Background()
	dsn := cfg.Postgres.DSN

	switch rest[0] {
	case "up":
		if err := postgres.RunMigrations(ctx, dsn); err != nil {
			return err
		}
	case "down":
		steps := 1
		if len(rest) > 1 {
			steps, err = strconv.Atoi(rest[1])
			if err != nil || steps < 1 {
				return fmt.Errorf("invalid step count %q", rest[1])
			}
		}
		if err := postgres.RollbackMigrations(ctx, dsn, steps); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("unknown migrate command: %s", rest[0])
	}

	v, err := postgres.MigrationVersion(ctx, dsn)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "schema version %d\n", v)
	return nil
}

// runSeed loads the catalog, opening cash, opening stock and sample quotes
// into PostgreSQL, then prints the resulting inventory. An already seeded
// database is left untouched.
func runSeed(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	cfg, flush, err := loadConfig(fs, config.BindFlags(fs), args)
	if err != nil {
		return err
	}
	defer flush()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	store := postgres.NewStore(pool)
	if err := store.Seed(ctx, ledger.SeedDate); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	now := time.Now()
	inv, err := store.AllInventory(ctx, now)
	if err != nil {
		return fmt.Errorf("inventory: %w", err)
	}
	cash, err := store.CashBalance(ctx, now)
	if err != nil {
		return fmt.Errorf("cash balance: %w", err)
	}

	names := make([]string, 0, len(inv))
	for name := range inv {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ITEM\tSTOCK")
	for _, name := range names {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", name, inv[name])
	}
	_, _ = fmt.Fprintf(w, "\ncash balance\t%.2f\n", cash)
	return w.Flush()
}
