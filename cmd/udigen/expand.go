package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dqvis/udigen/udi"
	"github.com/dqvis/udigen/udi/annotations"
	"github.com/dqvis/udigen/udi/catalog"
	"github.com/dqvis/udigen/udi/config"
	"github.com/dqvis/udigen/udi/expand"
	"github.com/dqvis/udigen/udi/report"
	"github.com/dqvis/udigen/udi/solver"
	"github.com/dqvis/udigen/udi/storage"
)

var expandCmd = &cobra.Command{
	Use:   "expand",
	Short: "Expand a template catalogue against a schema catalogue",
	Long: `Loads the template catalogue (JSON or YAML) and the dataset-schema catalogue
(JSON), expands every template against every schema, writes the rows as JSON and
prints a summary. With --store the rows are also saved as a new run.`,
	Example: `  udigen expand --templates templates.yaml --schemas schemas.json --out rows.json
  udigen expand --templates templates.json --schemas schemas.json --store runs.db --workers 8`,
	RunE: runExpand,
}

func init() {
	rootCmd.AddCommand(expandCmd)

	f := expandCmd.Flags()
	f.StringP(config.FlagTemplates, "t", "", "Template catalogue (.json, .yaml, .yml)")
	f.StringP(config.FlagSchemas, "s", "", "Dataset-schema catalogue (.json)")
	f.StringP(config.FlagOutput, "o", "-", "Output file for expanded rows (- for stdout)")
	f.String(config.FlagStore, "", "Badger directory to save the run in")
	f.IntP(config.FlagWorkers, "p", 0, "Parallel (template, schema) pairs (default: number of CPUs)")
	f.Int(config.FlagLimit, 0, "Maximum solutions per pair (0 = unlimited)")
	f.Bool(config.FlagContinueOnError, false, "Skip failing templates instead of aborting")
}

func runExpand(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	templates, err := catalog.LoadTemplates(cfg.Templates)
	if err != nil {
		return err
	}
	schemas, err := catalog.LoadSchemas(cfg.Schemas)
	if err != nil {
		return err
	}
	log.WithField("templates", len(templates)).WithField("schemas", len(schemas)).Info("loaded catalogues")

	var handler annotations.Handler
	if cfg.Verbose {
		handler = annotations.NewOutputFormatter(os.Stderr).Handle
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	x := expand.New(expand.Options{
		Workers:         cfg.Workers,
		Solver:          solver.Options{Limit: cfg.Limit},
		ContinueOnError: cfg.ContinueOnError,
		Logger:          log,
		Handler:         handler,
	})
	rows, expandErr := x.Expand(ctx, templates, schemas)
	failures := countErrors(expandErr)
	if expandErr != nil && !cfg.ContinueOnError {
		return expandErr
	}

	if err := writeRows(cfg.Output, rows); err != nil {
		return err
	}

	summary := os.Stdout
	if cfg.Output == "-" {
		summary = os.Stderr
	}
	report.NewFormatter().Summary(summary, rows)

	if cfg.Store != "" {
		store, err := storage.NewBadgerStore(cfg.Store)
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.SaveRun(storage.Run{
			Templates: cfg.Templates,
			Schemas:   cfg.Schemas,
			Errors:    failures,
		}, rows)
		if err != nil {
			return err
		}
		fmt.Fprintf(summary, "Saved run %s (%d rows)\n", color.CyanString(run.ID), run.Rows)
	}

	if failures > 0 {
		color.New(color.FgYellow).Fprintf(os.Stderr, "%d templates or pairs skipped\n", failures)
	}
	return nil
}

// countErrors counts the failures joined into err.
func countErrors(err error) int {
	if err == nil {
		return 0
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return len(joined.Unwrap())
	}
	return 1
}

func writeRows(path string, rows []udi.ExpandedRow) error {
	if rows == nil {
		rows = []udi.ExpandedRow{}
	}

	var w io.Writer = os.Stdout
	if path != "-" && path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}
