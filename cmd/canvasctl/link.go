// link subcommands: add, list, set, history, delete.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftmetrics/canvas/pkg/types"
)

var (
	flagLinkType       string
	flagLinkConfidence string
	flagLinkWeight     float64
	flagLinkBetween    string
)

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Manage relationships between cards",
}

var linkAddCmd = &cobra.Command{
	Use:   "add <source-card-id> <target-card-id>",
	Short: "Link two cards",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := openCanvas(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		rel := &types.Relationship{
			SourceID:   args[0],
			TargetID:   args[1],
			Type:       flagLinkType,
			Confidence: flagLinkConfidence,
		}
		if cmd.Flags().Changed("weight") {
			w := flagLinkWeight
			rel.Weight = &w
		}
		created, err := c.Edges().CreateEdge(cmd.Context(), rel)
		if err != nil {
			return err
		}
		return printResult(created, func() {
			fmt.Fprintf(cmd.OutOrStdout(), "linked %s -> %s (%s, %s)\n",
				created.SourceID, created.TargetID, created.Type, created.ID)
		})
	},
}

var linkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List relationships, optionally between two cards",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := openCanvas(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		edges := c.Project().Edges
		if flagLinkBetween != "" {
			pair := splitList(flagLinkBetween)
			if len(pair) != 2 {
				return fmt.Errorf("--between expects two card ids")
			}
			edges = c.Edges().EdgesBetweenNodes(pair[0], pair[1])
		}
		return printResult(edges, func() {
			for _, e := range edges {
				weight := "-"
				if e.Weight != nil {
					weight = fmt.Sprintf("%.2f", *e.Weight)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s -> %s  %s/%s w=%s\n",
					e.ID, e.SourceID, e.TargetID, e.Type, e.Confidence, weight)
			}
		})
	},
}

var linkSetCmd = &cobra.Command{
	Use:   "set <link-id>",
	Short: "Update a relationship; changes are recorded in its history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := openCanvas(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		var upd types.RelationshipUpdate
		if cmd.Flags().Changed("type") {
			upd.Type = &flagLinkType
		}
		if cmd.Flags().Changed("confidence") {
			upd.Confidence = &flagLinkConfidence
		}
		if cmd.Flags().Changed("weight") {
			upd.Weight = &flagLinkWeight
		}
		if err := c.Edges().PersistEdgeUpdate(cmd.Context(), args[0], upd); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "updated link %s\n", args[0])
		return nil
	},
}

var linkHistoryCmd = &cobra.Command{
	Use:   "history <link-id>",
	Short: "Show the audit trail of a relationship",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := openCanvas(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		edge := c.Edges().EdgeByID(args[0])
		if edge == nil {
			return fmt.Errorf("link %s: %w", args[0], types.ErrNotFound)
		}
		return printResult(edge.History, func() {
			for _, h := range edge.History {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-10s %v -> %v  %s\n",
					h.Timestamp.Format("2006-01-02 15:04:05"), h.ChangeType,
					h.OldValue, h.NewValue, h.Description)
			}
		})
	},
}

var linkDeleteCmd = &cobra.Command{
	Use:   "delete <link-id>",
	Short: "Delete a relationship",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := openCanvas(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		if err := c.Edges().PersistEdgeDelete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted link %s\n", args[0])
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{linkAddCmd, linkSetCmd} {
		cmd.Flags().StringVar(&flagLinkType, "type", types.RelationCausal, "relationship type")
		cmd.Flags().StringVar(&flagLinkConfidence, "confidence", types.ConfidenceMedium, "confidence level")
		cmd.Flags().Float64Var(&flagLinkWeight, "weight", 0, "relationship weight in [0,1]")
	}
	linkListCmd.Flags().StringVar(&flagLinkBetween, "between", "", "two comma-separated card ids")

	linkCmd.AddCommand(linkAddCmd)
	linkCmd.AddCommand(linkListCmd)
	linkCmd.AddCommand(linkSetCmd)
	linkCmd.AddCommand(linkHistoryCmd)
	linkCmd.AddCommand(linkDeleteCmd)
}
