package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"appliance-pipeline/config"
	"appliance-pipeline/models"
	"appliance-pipeline/pipeline"
	"appliance-pipeline/utils"
)

const usage = `Usage: appliance-pipeline <command> [flags]

Commands:
  import      load workbooks from the data directory into the store
  export      dump store tables to staging/01_raw
  preprocess  encode and scale raw tables into staging/02_preprocessed
  features    derive engineered features into staging/03_final
  train       fit price and rating models per category
  predict     fill missing price and rating: predict -input FILE [-output FILE]
  query       print summary queries for every store table
  run         import, export, preprocess, features and train in order

Configuration is read from APP_* environment variables and an optional .env file.
`

// errUsage marks a command-line mistake; usage has already been printed.
var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Stdout, os.Args[1:]); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// run parses the command line, wires the pipeline and executes one command.
func run(ctx context.Context, outW io.Writer, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(outW, usage)
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		fmt.Fprint(outW, usage)
		return nil
	}

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(outW)
	input := fs.String("input", "", "CSV file with records to impute (predict)")
	output := fs.String("output", "", "where to write the imputed CSV (predict)")
	if err := fs.Parse(rest); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return errUsage
	}

	switch cmd {
	case "import", "export", "preprocess", "features", "train", "predict", "query", "run":
	default:
		fmt.Fprintf(outW, "unknown command %q\n\n%s", cmd, usage)
		return errUsage
	}
	if cmd == "predict" && *input == "" {
		fmt.Fprintf(outW, "predict requires -input\n\n%s", usage)
		return errUsage
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := utils.NewLoggerTo(outW, os.Stderr, utils.ParseLevel(cfg.LogLevel))
	logger.Info("=== Appliance pipeline: %s ===", cmd)
	logger.Info("Config: store=%s | data=%s | staging=%s | models=%s | workers=%d",
		cfg.StoreDriver, cfg.DataDir, cfg.StagingDir, cfg.ModelsDir, cfg.MaxConcurrency)

	store, err := pipeline.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open %s store: %v", cfg.StoreDriver, err)
		return err
	}
	defer store.Close()

	r := pipeline.NewRunner(cfg, store, logger, outW)
	switch cmd {
	case "import":
		return r.Import(ctx)
	case "export":
		return r.Export(ctx)
	case "preprocess":
		return r.Preprocess(ctx)
	case "features":
		return r.Features(ctx)
	case "train":
		return r.Train(ctx)
	case "query":
		return r.Query(ctx)
	case "run":
		return r.Run(ctx)
	}

	report, err := r.Predict(ctx, *input, *output)
	if err != nil {
		return err
	}
	fmt.Fprintf(outW, "\n  Run %s: %d records | %d predicted | %d without model | %d skipped | %d failed\n\n",
		report.RunID, report.Records,
		report.Counts[models.KindPredicted],
		report.Counts[models.KindModelNotFound]+report.Counts[models.KindEmptyFeatureSet],
		report.Counts[models.KindMissingCategory],
		report.Counts[models.KindPredictionFailed])
	return nil
}
