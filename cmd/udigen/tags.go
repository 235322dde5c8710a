package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dqvis/udigen/udi/lower"
	"github.com/dqvis/udigen/udi/report"
	"github.com/dqvis/udigen/udi/tags"
)

var tagConstraints []string

var tagsCmd = &cobra.Command{
	Use:   "tags <query template>",
	Short: "Show the tags and variables of a query template",
	Example: `  udigen tags "How many <E> are there, grouped by <F:n>?"
  udigen tags "<E1.F1:q> per <E2>" -c "E1.r.E2.c.to == 'one'"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ext, err := tags.Extract(args[0])
		if err != nil {
			return err
		}
		report.NewFormatter().Tags(os.Stdout, ext)

		constraints, err := lower.Lower(tagConstraints, ext)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Println(color.New(color.Bold).Sprint("Constraints:"))
		for _, c := range constraints {
			fmt.Printf("  %s\n", c)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tagsCmd)
	tagsCmd.Flags().StringArrayVarP(&tagConstraints, "constraint", "c", nil, "Constraint to lower alongside the synthesized ones (repeatable)")
}
