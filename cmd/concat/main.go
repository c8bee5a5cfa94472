// Command concat joins csv exports into one file.
//
//	concat -o merged.csv [-dir dir] [-skip-head n | -headless | -head-once] [-skip-tail n] [-crlf] [file ...]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"dpt/internal/app"
	"dpt/internal/files"
)

type options struct {
	output string
	dir    string
	inputs []string
	merge  files.MergeOptions
}

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	opts := parseFlags(flag.CommandLine, os.Args[1:])

	_, paths, logger, err := app.Bootstrap(*configPath)
	if err != nil {
		slog.Error("Failed to start", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := run(ctx, opts, files.NewManager(paths), logger)
	if err != nil {
		logger.Error("Concatenation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	fmt.Printf("%d files, %d lines written, %d lines skipped -> %s\n",
		stats.Files, stats.LinesWritten, stats.LinesSkipped, opts.output)
}

func parseFlags(fs *flag.FlagSet, args []string) options {
	var (
		o        options
		headless bool
		headOnce bool
	)
	fs.StringVar(&o.output, "o", "", "output file (required)")
	fs.StringVar(&o.dir, "dir", "", "concatenate every .csv file in this directory")
	fs.IntVar(&o.merge.SkipHead, "skip-head", 0, "lines to drop from the start of each file")
	fs.BoolVar(&headless, "headless", false, "drop the first line of each file")
	fs.BoolVar(&headOnce, "head-once", false, "drop the first line of each file but the first")
	fs.IntVar(&o.merge.SkipTail, "skip-tail", 0, "lines to drop from the end of each file")
	fs.BoolVar(&o.merge.EnsureCRLF, "crlf", false, "end each file's last line with CRLF")
	fs.Parse(args)
	o.inputs = fs.Args()

	// -skip-head wins over -headless, which wins over -head-once.
	switch {
	case o.merge.SkipHead != 0:
	case headless:
		o.merge.SkipHead = 1
	case headOnce:
		o.merge.SkipHead = 1
		o.merge.HeadOnce = true
	}
	return o
}

func (o options) validate() error {
	if o.output == "" {
		return fmt.Errorf("-o is required")
	}
	if o.dir == "" && len(o.inputs) == 0 {
		return fmt.Errorf("no input files")
	}
	if o.merge.SkipHead < 0 || o.merge.SkipTail < 0 {
		return fmt.Errorf("-skip-head and -skip-tail must not be negative")
	}
	return nil
}

func run(ctx context.Context, o options, fm *files.Manager, logger *slog.Logger) (files.MergeStats, error) {
	if err := o.validate(); err != nil {
		return files.MergeStats{}, err
	}

	inputs := o.inputs
	if o.dir != "" {
		found, err := files.NewDiscovery("").FindCSVFiles(o.dir)
		if err != nil {
			return files.MergeStats{}, err
		}
		inputs = append(inputs, files.Paths(found)...)
	}

	// The output path is relative to the working directory, not the data
	// directory the manager resolves against.
	output, err := filepath.Abs(o.output)
	if err != nil {
		return files.MergeStats{}, err
	}

	var stats files.MergeStats
	err = fm.WriteFile(output, func(w io.Writer) error {
		var err error
		stats, err = files.NewMerger(o.merge).WithLogger(logger).MergeFiles(ctx, w, inputs...)
		return err
	})
	return stats, err
}
