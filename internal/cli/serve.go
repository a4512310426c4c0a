package cli

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"folio/internal/auth"
	"folio/internal/httpapi"
	"folio/internal/service"
)

func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  `Serve the public post endpoints and the token-gated editor endpoints. Scheduled posts are published on publish.schedule; when import.dir is set, JSON documents dropped there are imported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := c.openServices(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			publisher := service.NewPublisher(svc.posts, c.cfg.PublishSchedule, c.logger)
			if err := publisher.Start(ctx); err != nil {
				return err
			}
			defer publisher.Stop()

			if c.cfg.ImportDir != "" {
				watcher := service.NewImportWatcher(svc.posts, c.cfg.ImportDir, svc.emitter, c.logger)
				if n, err := watcher.ImportDir(ctx); err != nil {
					c.logger.Warn("initial import failed", "dir", c.cfg.ImportDir, "err", err)
				} else if n > 0 {
					c.logger.Info("imported documents", "count", n)
				}
				if err := watcher.Start(ctx); err != nil {
					return err
				}
				defer watcher.Stop()
			}

			if c.cfg.AuthToken == "" {
				c.logger.Warn("auth.token is empty: editor routes will reject every request")
			}
			if addr == "" {
				addr = c.cfg.HTTPAddr
			}

			api := httpapi.New(svc.posts, svc.sessions, auth.NewTokenChecker(c.cfg.AuthToken), c.logger)
			if err := api.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides http.addr)")
	return cmd
}
