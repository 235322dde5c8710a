package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dqvis/udigen/udi/config"
	"github.com/dqvis/udigen/udi/report"
	"github.com/dqvis/udigen/udi/storage"
)

var (
	rowsRun  string
	rowsJSON bool
)

var rowsCmd = &cobra.Command{
	Use:   "rows",
	Short: "List stored runs or print the rows of one run",
	Example: `  udigen rows --store runs.db
  udigen rows --store runs.db --run 01J2Z3...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Store == "" {
			return fmt.Errorf("no store given (--%s or UDIGEN_STORE)", config.FlagStore)
		}
		store, err := storage.NewBadgerStore(cfg.Store)
		if err != nil {
			return err
		}
		defer store.Close()

		f := report.NewFormatter()
		if rowsRun == "" {
			runs, err := store.Runs()
			if err != nil {
				return err
			}
			f.Runs(os.Stdout, runs)
			return nil
		}

		run, err := store.Run(rowsRun)
		if err != nil {
			return err
		}
		if run == nil {
			return fmt.Errorf("run %s not found", rowsRun)
		}
		rows, err := store.Rows(run.ID)
		if err != nil {
			return err
		}
		if rowsJSON {
			return writeRows("-", rows)
		}
		f.Rows(os.Stdout, rows)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rowsCmd)
	rowsCmd.Flags().String(config.FlagStore, "", "Badger directory holding saved runs")
	rowsCmd.Flags().StringVar(&rowsRun, "run", "", "Run id to print (default: list runs)")
	rowsCmd.Flags().BoolVar(&rowsJSON, "json", false, "Print rows as JSON instead of a table")
}
