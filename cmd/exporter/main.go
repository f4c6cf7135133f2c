package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"example.com/personalize-go/internal/app"
	"example.com/personalize-go/internal/config"
	"example.com/personalize-go/internal/dataset"
	"example.com/personalize-go/internal/export"
	"example.com/personalize-go/internal/logging"
	"example.com/personalize-go/internal/personalize"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: exporter [-temporal] export customers|products|interactions\n")
	flag.PrintDefaults()
}

func main() {
	viaTemporal := flag.Bool("temporal", false, "run the export as a Temporal workflow on the worker instead of in-process")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) > 0 && args[0] == "export" {
		args = args[1:]
	}
	if len(args) != 1 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Stdout, args[0], *viaTemporal); err != nil {
		fmt.Fprintf(os.Stdout, "Process aborted. Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer, rawKind string, viaTemporal bool) error {
	kind, err := dataset.ParseKind(rawKind)
	if err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.NewWithWriter(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	if viaTemporal {
		fmt.Fprintln(out, "Starting the export process...")
		c, err := app.DialTemporal(cfg, logger)
		if err != nil {
			return err
		}
		defer c.Close()
		fmt.Fprintf(out, "Exporting %s through workflow queue %s...\n", kind, export.ExportTaskQueue())
		result, err := export.NewTemporalOrchestrator(c, logger).RunExport(ctx, export.WorkflowInput{Kind: kind, Reason: "cli"})
		if err != nil {
			return err
		}
		if result.Export != nil {
			fmt.Fprintf(out, "Import job %s submitted (%d records).\n", result.Export.JobName, result.Export.Records)
		}
		fmt.Fprintln(out, "Finished.")
		return nil
	}

	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()
	clients, err := personalize.NewClients(ctx, app.AWSSettings(cfg))
	if err != nil {
		return err
	}
	pipeline, err := app.NewPipeline(cfg, stores, clients, logger)
	if err != nil {
		return err
	}
	_, err = pipeline.RunExport(ctx, kind, console(out))
	return err
}

// console prints the milestones of a run as progress lines.
func console(out io.Writer) export.Reporter {
	return func(kind dataset.Kind, m export.Milestone) {
		switch m {
		case export.MilestoneStarted:
			fmt.Fprintln(out, "Starting the export process...")
			fmt.Fprintf(out, "Preparing %s data to be exported...\n", noun(kind))
		case export.MilestoneUploading:
			fmt.Fprintln(out, "Exporting to the AWS dataset...")
		case export.MilestoneDone:
			fmt.Fprintln(out, "Finished.")
		}
	}
}

func noun(kind dataset.Kind) string {
	switch kind {
	case dataset.KindProduct:
		return "products"
	case dataset.KindCustomer:
		return "customers"
	}
	return strings.ToLower(string(kind))
}
