// card subcommands: add, list, get, set, move, duplicate, delete.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftmetrics/canvas/pkg/types"
)

var (
	flagCardTitle       string
	flagCardDescription string
	flagCardCategory    string
	flagCardSubCategory string
	flagCardTags        string
	flagCardX           float64
	flagCardY           float64
	flagCardFormula     string
	flagCardSource      string
)

var cardCmd = &cobra.Command{
	Use:   "card",
	Short: "Manage metric cards on a canvas",
}

var cardAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a metric card",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := openCanvas(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		category := flagCardCategory
		if category == "" {
			category = types.CategoryDataMetric
		}
		sourceType := flagCardSource
		if sourceType == "" {
			sourceType = types.SourceManual
		}
		card := &types.MetricCard{
			Title:       args[0],
			Description: flagCardDescription,
			Category:    category,
			SubCategory: flagCardSubCategory,
			Tags:        splitList(flagCardTags),
			Position:    types.Position{X: flagCardX, Y: flagCardY},
			SourceType:  sourceType,
			Formula:     flagCardFormula,
		}
		created, err := c.Nodes().CreateNode(cmd.Context(), card)
		if err != nil {
			return err
		}
		return printResult(created, func() {
			fmt.Fprintf(cmd.OutOrStdout(), "added card %s (%s)\n", created.Title, created.ID)
		})
	},
}

var cardListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the cards on the canvas",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := openCanvas(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		nodes := c.Project().Nodes
		return printResult(nodes, func() {
			for _, n := range nodes {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  [%s] %s (%.0f,%.0f)\n",
					n.ID, n.Category, n.Title, n.Position.X, n.Position.Y)
			}
		})
	},
}

var cardGetCmd = &cobra.Command{
	Use:   "get <card-id>",
	Short: "Show one card",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := openCanvas(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		card := c.Nodes().NodeByID(args[0])
		if card == nil {
			return fmt.Errorf("card %s: %w", args[0], types.ErrNotFound)
		}
		return printResult(card, func() {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  [%s/%s] %s\n", card.ID, card.Category, card.SubCategory, card.Title)
			if card.Formula != "" {
				fmt.Fprintf(out, "formula: %s\n", card.Formula)
			}
			for _, v := range card.Data {
				fmt.Fprintf(out, "  %s  %.2f (%+.1f%%, %s)\n", v.Period, v.Value, v.ChangePercent, v.Trend)
			}
		})
	},
}

var cardSetCmd = &cobra.Command{
	Use:   "set <card-id>",
	Short: "Update fields of a card",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := openCanvas(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		var upd types.CardUpdate
		if cmd.Flags().Changed("title") {
			upd.Title = &flagCardTitle
		}
		if cmd.Flags().Changed("description") {
			upd.Description = &flagCardDescription
		}
		if cmd.Flags().Changed("category") {
			upd.Category = &flagCardCategory
		}
		if cmd.Flags().Changed("sub-category") {
			upd.SubCategory = &flagCardSubCategory
		}
		if cmd.Flags().Changed("tags") {
			tags := splitList(flagCardTags)
			upd.Tags = &tags
		}
		if cmd.Flags().Changed("formula") {
			upd.Formula = &flagCardFormula
			calculated := types.SourceCalculated
			upd.SourceType = &calculated
		}
		if err := c.Nodes().PersistNodeUpdate(cmd.Context(), args[0], upd); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "updated card %s\n", args[0])
		return nil
	},
}

var cardMoveCmd = &cobra.Command{
	Use:   "move <card-id>",
	Short: "Move a card; the new position is flushed through autosave",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := openCanvas(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		pos := types.Position{X: flagCardX, Y: flagCardY}
		if err := c.Nodes().UpdateNodePosition(args[0], pos); err != nil {
			return err
		}
		if err := c.Autosave().SaveAll(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "moved card %s to (%.0f,%.0f)\n", args[0], pos.X, pos.Y)
		return nil
	},
}

var cardDuplicateCmd = &cobra.Command{
	Use:   "duplicate <card-id>",
	Short: "Duplicate a card and persist the copy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := openCanvas(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		clone, err := c.Nodes().DuplicateNode(args[0])
		if err != nil {
			return err
		}
		// The duplicate is local-only; persist it under its assigned id.
		if err := c.Nodes().DeleteNode(clone.ID); err != nil {
			return err
		}
		created, err := c.Nodes().CreateNode(cmd.Context(), clone)
		if err != nil {
			return err
		}
		return printResult(created, func() {
			fmt.Fprintf(cmd.OutOrStdout(), "duplicated card as %s (%s)\n", created.Title, created.ID)
		})
	},
}

var cardDeleteCmd = &cobra.Command{
	Use:   "delete <card-id>",
	Short: "Delete a card and its links",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := openCanvas(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		if err := c.Nodes().PersistNodeDelete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted card %s\n", args[0])
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{cardAddCmd, cardSetCmd} {
		cmd.Flags().StringVar(&flagCardTitle, "title", "", "card title")
		cmd.Flags().StringVar(&flagCardDescription, "description", "", "card description")
		cmd.Flags().StringVar(&flagCardCategory, "category", "", "card category")
		cmd.Flags().StringVar(&flagCardSubCategory, "sub-category", "", "card sub-category")
		cmd.Flags().StringVar(&flagCardTags, "tags", "", "comma-separated tags")
		cmd.Flags().StringVar(&flagCardFormula, "formula", "", "calculation formula")
	}
	cardAddCmd.Flags().StringVar(&flagCardSource, "source", "", "source type (Manual, Calculated, Random)")
	cardAddCmd.Flags().Float64Var(&flagCardX, "x", 0, "x position")
	cardAddCmd.Flags().Float64Var(&flagCardY, "y", 0, "y position")
	cardMoveCmd.Flags().Float64Var(&flagCardX, "x", 0, "x position")
	cardMoveCmd.Flags().Float64Var(&flagCardY, "y", 0, "y position")

	cardCmd.AddCommand(cardAddCmd)
	cardCmd.AddCommand(cardListCmd)
	cardCmd.AddCommand(cardGetCmd)
	cardCmd.AddCommand(cardSetCmd)
	cardCmd.AddCommand(cardMoveCmd)
	cardCmd.AddCommand(cardDuplicateCmd)
	cardCmd.AddCommand(cardDeleteCmd)
}
