package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/Strob0t/PaperDesk/internal/config"
	"github.com/Strob0t/PaperDesk/internal/domain/workflow"
)

// runRequest coordinates a single request read from a file (or stdin with
// "-f -") and prints the resulting record. A failed workflow exits non-zero.
func runRequest(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	file := fs.String("f", "", "request JSON file, - for stdin (required)")
	asJSON := fs.Bool("json", false, "always print raw JSON")
	cfg, flush, err := loadConfig(fs, config.BindFlags(fs), args)
	if err != nil {
		return err
	}
	defer flush()

	if *file == "" {
		return errors.New("-f is required")
	}
	req, err := readRequest(*file)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.coord.CoordinateWorkflow(ctx, req)
	if err != nil {
		return fmt.Errorf("coordinate: %w", err)
	}

	if !*asJSON && term.IsTerminal(int(os.Stdout.Fd())) { //nolint:gosec // fd fits in int
		err = printRecord(os.Stdout, rec)
	} else {
		err = json.NewEncoder(os.Stdout).Encode(rec)
	}
	if err != nil {
		return err
	}

	if rec.Status == workflow.StatusFailed {
		return fmt.Errorf("workflow %s failed: %s", rec.ID, rec.Error)
	}
	return nil
}

func readRequest(path string) (*workflow.Request, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path) //nolint:gosec // path is an explicit CLI argument
		if err != nil {
			return nil, fmt.Errorf("open request: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var req workflow.Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

// printRecord renders a human-readable summary followed by the step data.
func printRecord(out io.Writer, rec *workflow.Record) error {
	fmt.Fprintf(out, "Workflow %s  %s  (%s)\n", rec.ID, rec.Status, rec.Request.Type)
	if rec.RejectionReason != "" {
		fmt.Fprintf(out, "Rejected: %s\n", rec.RejectionReason)
	}
	if rec.Error != "" {
		fmt.Fprintf(out, "Error: %s\n", rec.Error)
	}
	if rec.InitialCashBalance != nil && rec.FinalCashBalance != nil {
		fmt.Fprintf(out, "Cash: %.2f -> %.2f (change %.2f)\n",
			*rec.InitialCashBalance, *rec.FinalCashBalance, rec.CashBalanceChange)
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STEP\tAGENT\tOK\tATTEMPTS\tMS\tERROR")
	for i := range rec.Steps {
		s := &rec.Steps[i]
		_, _ = fmt.Fprintf(w, "%d\t%s\t%t\t%d\t%d\t%s\n", i+1, s.Agent, s.Success, s.Attempts, s.DurationMS, s.Error)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	for i := range rec.Steps {
		fmt.Fprintf(out, "[%s]\n", rec.Steps[i].Agent)
		if err := enc.Encode(rec.Steps[i].Data); err != nil {
			return err
		}
	}
	return nil
}
