package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/herrtunante/whisp/internal/model"
	"github.com/herrtunante/whisp/internal/registry"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List the registered geospatial layers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := registry.Load()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCATEGORY\tUNIT\tAGGREGATION\tINDICATOR")
		for _, d := range reg.Datasets() {
			indicator := "-"
			if d.Indicator != model.IndicatorNone {
				indicator = d.Indicator.Column()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.Category, d.Unit, d.Aggregation, indicator)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(datasetsCmd)
}
