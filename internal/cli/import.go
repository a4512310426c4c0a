package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"folio/internal/service"
)

func (c *CLI) importCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "import [path...]",
		Short: "Upsert post documents from JSON files",
		Long:  `Import post documents by slug. Each path is a JSON file or a directory of *.json files; without paths import.dir is used. With --watch the command keeps importing files written to the directory until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			paths := args
			if len(paths) == 0 {
				if c.cfg.ImportDir == "" {
					return errors.New("no path given and import.dir is not set")
				}
				paths = []string{c.cfg.ImportDir}
			}

			svc, err := c.openServices(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			p := newProgress(c.logger)
			total := 0
			var dirs []string
			for _, path := range paths {
				info, err := os.Stat(path)
				if err != nil {
					return err
				}
				w := service.NewImportWatcher(svc.posts, path, svc.emitter, c.logger)
				if info.IsDir() {
					n, err := w.ImportDir(ctx)
					if err != nil {
						return err
					}
					total += n
					dirs = append(dirs, path)
					continue
				}
				note, err := w.ImportFile(ctx, path)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), note.Slug)
				total++
			}
			p.done(fmt.Sprintf("Imported %d documents", total))

			if !watch {
				return nil
			}
			if len(dirs) == 0 {
				return errors.New("--watch needs a directory")
			}
			for _, dir := range dirs {
				w := service.NewImportWatcher(svc.posts, dir, svc.emitter, c.logger)
				if err := w.Start(ctx); err != nil {
					return err
				}
				defer w.Stop()
			}
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep watching directories for new documents")
	return cmd
}
