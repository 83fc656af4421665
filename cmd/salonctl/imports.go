package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/onglesrivieres/salon360-sub000/internal/importer"
)

type importOptions struct {
	Schema  importer.Schema
	StoreID uuid.UUID
	File    string
	DryRun  bool
	Async   bool
	JSON    bool
}

type importRunner interface {
	Run(ctx context.Context, req importer.Request) (importer.Result, error)
	Preview(ctx context.Context, req importer.Request) (importer.Result, error)
}

func parseImportOptions(c *cli.Context, schema string) (importOptions, error) {
	parsed, err := importer.ParseSchema(schema)
	if err != nil {
		return importOptions{}, err
	}
	storeID, err := uuid.Parse(c.String("store"))
	if err != nil {
		return importOptions{}, fmt.Errorf("salonctl: --store: %w", err)
	}
	opts := importOptions{
		Schema:  parsed,
		StoreID: storeID,
		File:    c.String("file"),
		DryRun:  c.Bool("dry-run"),
		Async:   c.Bool("async"),
		JSON:    c.Bool("json"),
	}
	if opts.DryRun && opts.Async {
		return importOptions{}, fmt.Errorf("salonctl: --dry-run and --async are exclusive")
	}
	return opts, nil
}

// readRequest loads the file named by opts. Files ending in .xlsx are read as workbooks.
func readRequest(opts importOptions) (importer.Request, error) {
	f, err := os.Open(opts.File)
	if err != nil {
		return importer.Request{}, err
	}
	defer f.Close()
	xlsx := strings.EqualFold(filepath.Ext(opts.File), ".xlsx")
	req, err := importer.NewUploadRequest(opts.StoreID, opts.Schema, f, xlsx)
	if err != nil {
		return importer.Request{}, fmt.Errorf("salonctl: read %s: %w", opts.File, err)
	}
	req.RunID = uuid.New()
	return req, nil
}

func runImport(ctx context.Context, runner importRunner, req importer.Request, opts importOptions, w io.Writer) error {
	run := runner.Run
	if opts.DryRun {
		run = runner.Preview
	}
	result, err := run(ctx, req)
	if err != nil {
		return err
	}
	if opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return printResult(w, result, opts.DryRun)
}

func printResult(w io.Writer, result importer.Result, dryRun bool) error {
	prefix := ""
	if dryRun {
		prefix = "[dry run] "
	}
	if _, err := fmt.Fprintf(w, "%s%s\n", prefix, result.Message); err != nil {
		return err
	}
	for _, issue := range result.Skipped {
		if _, err := fmt.Fprintf(w, "  skipped line %d (%s): %s\n", issue.Line, issue.Name, issue.Reason); err != nil {
			return err
		}
	}
	for _, msg := range result.Errors {
		if _, err := fmt.Fprintf(w, "  error %s\n", msg); err != nil {
			return err
		}
	}
	for _, line := range result.Lines {
		unit := line.PurchaseUnitName
		if unit == "" {
			unit = "units"
		}
		note := ""
		if line.NeedsMultiplier {
			note = " (define multiplier)"
		}
		if _, err := fmt.Fprintf(w, "  line %d %s: %s %s = %s stock%s\n",
			line.Line, line.ItemName, line.PurchaseQty, unit, line.StockQuantity, note); err != nil {
			return err
		}
	}
	return nil
}

func printRunStatus(w io.Writer, status importer.RunStatus) error {
	if _, err := fmt.Fprintf(w, "run %s %s (%s)\n", status.RunID, status.State, status.Schema); err != nil {
		return err
	}
	if status.Message != "" {
		if _, err := fmt.Fprintf(w, "  %s: %s\n", status.Severity, status.Message); err != nil {
			return err
		}
	}
	if status.Error != "" {
		_, err := fmt.Fprintf(w, "  error: %s\n", status.Error)
		return err
	}
	return nil
}

func printQueueStats(w io.Writer, stats QueueStats) error {
	_, err := fmt.Fprintf(w, "queue %s: pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
		stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
	return err
}
