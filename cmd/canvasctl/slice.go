package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftmetrics/canvas/pkg/canvas"
)

var (
	flagSliceDimensions string
	flagSliceHistory    string
	flagSlicePercents   string
)

var sliceCmd = &cobra.Command{
	Use:   "slice <card-id>",
	Short: "Decompose a metric card into one child per dimension",
	Long: `Slice decomposes a metric card into one child card per dimension,
wires each child back to the parent with a compositional relationship,
and rewrites the parent's formula to the sum of its children.

The --history flag controls what happens to the parent's measurement
series: "manual" leaves the children empty, "forfeit" additionally
clears the parent, and "proportional" splits the series across the
children by the percentages given with --percentages (which must sum
to 100).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dims := splitList(flagSliceDimensions)
		if len(dims) == 0 {
			return fmt.Errorf("--dimensions expects a comma-separated list")
		}
		percents, err := splitFloats(flagSlicePercents)
		if err != nil {
			return err
		}

		c, cleanup, err := openCanvas(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		result, err := c.SliceMetric(cmd.Context(), args[0], dims, flagSliceHistory, percents)
		if err != nil {
			return err
		}
		return printResult(result, func() {
			for _, child := range result.Children {
				fmt.Fprintf(cmd.OutOrStdout(), "created %s  %s\n", child.ID, child.Title)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "parent formula: %s\n", result.Parent.Formula)
		})
	},
}

func init() {
	sliceCmd.Flags().StringVar(&flagSliceDimensions, "dimensions", "", "comma-separated dimension values, one child per value")
	sliceCmd.Flags().StringVar(&flagSliceHistory, "history", canvas.HistoryManual, "manual, forfeit, or proportional")
	sliceCmd.Flags().StringVar(&flagSlicePercents, "percentages", "", "comma-separated percentages for the proportional option")
}
