package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) migrateCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate [slug...]",
		Short: "Convert grid posts into the markup representation",
		Long:  `Rewrite stored posts from positioned grid blocks into a single markup document, in reading order. Without slugs every grid post is converted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := c.openServices(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			p := newProgress(c.logger)
			ids, err := svc.posts.MigrateToMarkup(cmd.Context(), args, dryRun)
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			verb := "Migrated"
			if dryRun {
				verb = "Would migrate"
			}
			p.done(fmt.Sprintf("%s %d posts", verb, len(ids)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the posts that would be converted without writing")
	return cmd
}
