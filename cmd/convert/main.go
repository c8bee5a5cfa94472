// Command convert writes the first worksheet of ERP workbooks as csv.
//
//	convert [-config file] [-dir dir] [-out dir] [-sheet Sheet1] [-encoding GBK] [-workers n] [file.xlsx ...]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"dpt/internal/app"
	"dpt/internal/charset"
	"dpt/internal/config"
	"dpt/internal/convert"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	dir := flag.String("dir", "", "directory of .xlsx workbooks (defaults to data/downloads)")
	out := flag.String("out", "", "output directory (defaults to data/converted)")
	sheet := flag.String("sheet", "", "worksheet to export (defaults to convert.sheet)")
	encoding := flag.String("encoding", "", "output encoding UTF8, GBK or GB18030 (defaults to convert.encoding)")
	workers := flag.Int("workers", 0, "concurrent conversions (defaults to convert.workers)")
	flag.Parse()

	cfg, paths, logger, err := app.Bootstrap(*configPath)
	if err != nil {
		slog.Error("Failed to start", slog.String("error", err.Error()))
		os.Exit(1)
	}

	opts, err := converterOptions(cfg.Convert, *sheet, *encoding, *workers)
	if err != nil {
		logger.Error("Invalid arguments", slog.String("error", err.Error()))
		flag.Usage()
		os.Exit(2)
	}
	opts.Logger = logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := run(ctx, convert.NewConverter(opts), flag.Args(), orDefault(*dir, paths.DownloadsDir), orDefault(*out, paths.ConvertedDir))
	if err != nil {
		logger.Error("Conversion failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	printResults(os.Stdout, results)
}

// converterOptions overlays the command line on cfg.
func converterOptions(cfg config.ConvertConfig, sheet, encoding string, workers int) (convert.Options, error) {
	opts := convert.Options{
		Sheet:   orDefault(sheet, cfg.Sheet),
		Workers: cfg.Workers,
	}
	if workers > 0 {
		opts.Workers = workers
	}
	enc, err := charset.Parse(orDefault(encoding, cfg.Encoding))
	if err != nil {
		return opts, err
	}
	opts.Encoding = enc
	return opts, nil
}

func run(ctx context.Context, c *convert.Converter, inputs []string, dir, out string) ([]convert.Result, error) {
	if len(inputs) == 0 {
		return c.ConvertDir(ctx, dir, out)
	}
	results := make([]convert.Result, 0, len(inputs))
	for _, path := range inputs {
		res, err := c.ConvertFile(ctx, path, out)
		if err != nil {
			return results, fmt.Errorf("convert %s: %w", path, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func printResults(w io.Writer, results []convert.Result) {
	for _, r := range results {
		fmt.Fprintf(w, "%s -> %s (%d rows)\n", r.Source, r.Output, r.Rows)
	}
	fmt.Fprintf(w, "%d workbooks converted\n", len(results))
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
