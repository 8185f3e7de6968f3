// canvas subcommands: create, list, show, delete.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var flagCanvasDescription string

var canvasCmd = &cobra.Command{
	Use:   "canvas",
	Short: "Manage canvases",
}

var canvasCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new canvas",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := newCanvas()
		if err != nil {
			return err
		}
		defer cleanup()

		project, err := c.CreateCanvas(cmd.Context(), args[0], flagCanvasDescription)
		if err != nil {
			return err
		}
		return printResult(project, func() {
			fmt.Fprintf(cmd.OutOrStdout(), "created canvas %s (%s)\n", project.Name, project.ID)
		})
	},
}

var canvasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List canvases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := newCanvas()
		if err != nil {
			return err
		}
		defer cleanup()

		projects, err := c.ListCanvases(cmd.Context())
		if err != nil {
			return err
		}
		return printResult(projects, func() {
			for _, p := range projects {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", p.ID, p.Name)
			}
		})
	},
}

var canvasShowCmd = &cobra.Command{
	Use:   "show <canvas-id>",
	Short: "Show a canvas with its cards, links, and groups",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flagCanvas = args[0]
		c, cleanup, err := openCanvas(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		p := c.Project()
		return printResult(p, func() {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s\n", p.ID, p.Name)
			fmt.Fprintf(out, "cards: %d  links: %d  groups: %d\n",
				len(p.Nodes), len(p.Edges), len(p.Groups))
		})
	},
}

var canvasDeleteCmd = &cobra.Command{
	Use:   "delete <canvas-id>",
	Short: "Delete a canvas and everything in it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, cleanup, err := newCanvas()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := c.DeleteCanvas(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted canvas %s\n", args[0])
		return nil
	},
}

func init() {
	canvasCreateCmd.Flags().StringVar(&flagCanvasDescription, "description", "", "canvas description")
	canvasCmd.AddCommand(canvasCreateCmd)
	canvasCmd.AddCommand(canvasListCmd)
	canvasCmd.AddCommand(canvasShowCmd)
	canvasCmd.AddCommand(canvasDeleteCmd)
}
