package cli

import (
	"github.com/spf13/cobra"

	mcpserver "folio/internal/mcp"
)

func (c *CLI) mcpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve posts and editor sessions over MCP (stdio)",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.openServices(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			srv := mcpserver.New(mcpserver.Deps{
				Posts:    svc.posts,
				Sessions: svc.sessions,
				Emitter:  svc.emitter,
				Logger:   c.logger,
				Version:  version,
			})
			return srv.ServeStdio()
		},
	}
}
