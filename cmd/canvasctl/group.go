// group subcommands: make, list, add, remove, collapse, ungroup.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftmetrics/canvas/pkg/types"
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage card groups",
}

var groupMakeCmd = &cobra.Command{
	Use:   "make <card-id> <card-id> [card-id...]",
	Short: "Group two or more cards",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := openCanvas(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		id, err := c.Groups().GroupSelectedNodes(cmd.Context(), args)
		if err != nil {
			return err
		}
		g := c.Groups().GroupByID(id)
		return printResult(g, func() {
			fmt.Fprintf(cmd.OutOrStdout(), "created group %s (%s) with %d cards\n",
				g.Name, g.ID, len(g.NodeIDs))
		})
	},
}

var groupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List groups on the canvas",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := openCanvas(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		groups := c.Project().Groups
		return printResult(groups, func() {
			for _, g := range groups {
				state := "expanded"
				if g.IsCollapsed {
					state = "collapsed"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-24s %d cards  %s\n",
					g.ID, g.Name, len(g.NodeIDs), state)
			}
		})
	},
}

var groupAddCmd = &cobra.Command{
	Use:   "add <group-id> <card-id> [card-id...]",
	Short: "Add cards to a group",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := openCanvas(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		if err := c.Groups().AddNodesToGroup(cmd.Context(), args[0], args[1:]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %d cards to group %s\n", len(args)-1, args[0])
		return nil
	},
}

var groupRemoveCmd = &cobra.Command{
	Use:   "remove <group-id> <card-id> [card-id...]",
	Short: "Remove cards from a group",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := openCanvas(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		if err := c.Groups().RemoveNodesFromGroup(cmd.Context(), args[0], args[1:]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d cards from group %s\n", len(args)-1, args[0])
		return nil
	},
}

var groupCollapseCmd = &cobra.Command{
	Use:   "collapse <group-id>",
	Short: "Toggle a group between collapsed and expanded",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := openCanvas(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		g := c.Groups().GroupByID(args[0])
		if g == nil {
			return fmt.Errorf("group %s: %w", args[0], types.ErrNotFound)
		}
		collapsed := !g.IsCollapsed
		upd := types.GroupUpdate{IsCollapsed: &collapsed}
		if err := c.Groups().PersistGroupUpdate(cmd.Context(), args[0], upd); err != nil {
			return err
		}
		state := "expanded"
		if collapsed {
			state = "collapsed"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "group %s is now %s\n", args[0], state)
		return nil
	},
}

var groupUngroupCmd = &cobra.Command{
	Use:   "ungroup <group-id> [group-id...]",
	Short: "Dissolve groups, keeping their cards",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := openCanvas(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		if err := c.Groups().UngroupSelectedGroups(cmd.Context(), args); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "dissolved %d groups\n", len(args))
		return nil
	},
}

func init() {
	groupCmd.AddCommand(groupMakeCmd)
	groupCmd.AddCommand(groupListCmd)
	groupCmd.AddCommand(groupAddCmd)
	groupCmd.AddCommand(groupRemoveCmd)
	groupCmd.AddCommand(groupCollapseCmd)
	groupCmd.AddCommand(groupUngroupCmd)
}
