// Command st aggregates ST exports into the sku, store and brand reports.
//
// Inputs are the files named on the command line, or every .csv and .xlsx
// file in -dir (default data/downloads). Workbooks are converted first.
//
//	st [-config file] [-dir dir] [-since 24h] [-out dir] [-encoding GBK] [-strict=true] [file ...]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"dpt/internal/app"
	"dpt/internal/config"
	"dpt/internal/infrastructure"
	"dpt/internal/operations"
	"dpt/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	dir := flag.String("dir", "", "directory of .csv/.xlsx exports (defaults to data/downloads)")
	since := flag.Duration("since", 0, "only aggregate files in the directory modified within this duration")
	out := flag.String("out", "", "report directory (defaults to data/reports/st)")
	encoding := flag.String("encoding", "", "input encoding UTF8, GBK or GB18030 (defaults to aggregate.encoding)")
	strict := flag.String("strict", "", "abort on the first malformed row (defaults to aggregate.strict)")
	noPersist := flag.Bool("no-persist", false, "skip the database even when database.dsn is set")
	flag.Parse()

	cfg, paths, logger, err := app.Bootstrap(*configPath)
	if err != nil {
		slog.Error("Failed to start", slog.String("error", err.Error()))
		os.Exit(1)
	}

	req, err := buildRequest(flag.Args(), *dir, *out, *encoding, *strict, paths)
	if err == nil && *since > 0 {
		req.Since = time.Now().Add(-*since)
	}
	if err != nil {
		logger.Error("Invalid arguments", slog.String("error", err.Error()))
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, paths, req, !*noPersist, logger); err != nil {
		logger.Error("ST aggregation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, paths *config.Paths, req operations.OperationRequest, persist bool, logger *slog.Logger) error {
	telemetry := cfg.Telemetry
	telemetry.MetricsEnabled = false
	providers, err := infrastructure.InitializeOTel(telemetry, logger)
	if err != nil {
		return err
	}
	defer providers.Shutdown(context.Background())

	var sink operations.RunSink
	if persist && cfg.Database.DSN != "" {
		store, err := storage.Open(ctx, cfg.Database, logger)
		if err != nil {
			return err
		}
		defer store.Close()
		sink = store
	}

	m, err := operations.NewPipeline(cfg, paths, sink, nil, logger)
	if err != nil {
		return err
	}

	state, err := m.Execute(ctx, req)
	printSummary(os.Stdout, state)
	return err
}

// buildRequest turns the command line into a pipeline request. With no
// file arguments and no -dir the downloads directory is aggregated.
func buildRequest(args []string, dir, out, encoding, strict string, paths *config.Paths) (operations.OperationRequest, error) {
	req := operations.OperationRequest{
		Inputs:   args,
		Dir:      dir,
		OutDir:   out,
		Encoding: encoding,
	}
	if len(args) > 0 && dir != "" {
		return req, fmt.Errorf("pass either files or -dir, not both")
	}
	if len(args) == 0 && dir == "" {
		req.Dir = paths.DownloadsDir
	}
	if strict != "" {
		v, err := strconv.ParseBool(strict)
		if err != nil {
			return req, fmt.Errorf("invalid -strict value %q", strict)
		}
		req.Strict = &v
	}
	return req, nil
}

func printSummary(w io.Writer, state *operations.OperationState) {
	if state == nil {
		return
	}
	for _, id := range []string{operations.StepIDConvert, operations.StepIDAggregate, operations.StepIDExport, operations.StepIDPersist} {
		if s := state.GetStep(id); s != nil {
			fmt.Fprintf(w, "%-10s %-9s %s\n", id, s.GetStatus(), s.Duration().Round(time.Millisecond))
		}
	}
	if res := state.Result(); res != nil {
		fmt.Fprintf(w, "files %d, rows read %d, aggregated %d, skipped %d, zero quantity %d\n",
			res.Stats.Files, res.Stats.RowsRead, res.Stats.Aggregated, res.Stats.Skipped, res.Stats.ZeroQuantity)
		fmt.Fprintf(w, "materials %d, stores %d, brands %d\n", len(res.Materials), len(res.Stores), len(res.Brands))
	}
	for _, path := range state.Reports() {
		fmt.Fprintln(w, path)
	}
	if id, ok := state.GetContext(operations.ContextKeyRunID); ok {
		fmt.Fprintf(w, "run %v\n", id)
	}
}
