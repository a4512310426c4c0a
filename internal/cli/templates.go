package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"folio/internal/templates"
)

func (c *CLI) templatesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the layout templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tBLOCKS")
			for _, t := range templates.List() {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", t.ID, t.Name, t.Slots())
			}
			return tw.Flush()
		},
	}
}
