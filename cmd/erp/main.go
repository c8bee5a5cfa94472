// Command erp downloads the ST exports of a schedule from the ERP web client.
//
//	erp [-config file] [-schedule am|pm|full] [-repo 11751] [-dry-run]
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
	"time"

	"dpt/internal/app"
	"dpt/internal/erp"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	schedule := flag.String("schedule", erp.ScheduleFull, "schedule to run: am, pm or full")
	repo := flag.String("repo", "", "local repository (defaults to jde.local_repo)")
	dryRun := flag.Bool("dry-run", false, "print the jobs without opening a browser")
	flag.Parse()

	cfg, paths, logger, err := app.Bootstrap(*configPath)
	if err != nil {
		slog.Error("Failed to start", slog.String("error", err.Error()))
		os.Exit(1)
	}

	localRepo := *repo
	if localRepo == "" {
		localRepo = cfg.JDE.LocalRepo
	}
	jobs, err := erp.BuildSchedule(*schedule, time.Now(), localRepo)
	if err != nil {
		logger.Error("Invalid arguments", slog.String("error", err.Error()))
		flag.Usage()
		os.Exit(2)
	}

	if *dryRun {
		printJobs(os.Stdout, jobs)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	downloads, err := erp.NewClient(cfg.JDE, cfg.Locator, paths, logger).Run(ctx, jobs)
	printDownloads(os.Stdout, downloads)
	if err != nil {
		logger.Error("ERP download failed",
			slog.String("schedule", *schedule),
			slog.Int("completed", len(downloads)),
			slog.Int("jobs", len(jobs)),
			slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func printJobs(w io.Writer, jobs []erp.Job) {
	for _, j := range jobs {
		fmt.Fprintf(w, "%s -> %s\n", j, j.FileName(".xlsx"))
	}
}

func printDownloads(w io.Writer, downloads []erp.Download) {
	for _, d := range downloads {
		fmt.Fprintf(w, "%s -> %s\n", d.Job, d.Path)
	}
}
