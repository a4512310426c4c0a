// Package cli implements the folio command-line interface.
//
// # Commands
//
//   - serve: run the HTTP API with scheduled publishing and the import watcher
//   - mcp: serve posts and editor sessions to AI agents over stdio
//   - render: render a stored post or a document file as a view or HTML
//   - migrate: convert grid posts into the markup representation
//   - templates: list the layout templates
//   - import: upsert post documents from JSON files
//
// All commands read config.yaml from --config-dir and accept --verbose (-v)
// for debug-level logging.
package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"folio/internal/config"
)

var (
	version = "dev"
	commit  string
	date    string
)

// SetVersion sets the version information displayed by --version.
func SetVersion(v, c, d string) {
	if v != "" {
		version = v
	}
	commit = c
	date = d
}

// CLI holds the state shared by every command once the root has parsed its
// persistent flags.
type CLI struct {
	configDir string
	verbose   bool

	cfg    *config.Config
	logger *log.Logger
}

// Execute runs the folio CLI.
func Execute(ctx context.Context) error {
	return newRootCommand().ExecuteContext(ctx)
}

func newRootCommand() *cobra.Command {
	c := &CLI{}

	root := &cobra.Command{
		Use:          "folio",
		Short:        "folio lays out study notes on a grid and serves them",
		Long:         `folio stores posts made of positioned content blocks, renders them as an editable grid or a linear reading view, and exposes an editor over HTTP and MCP.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configDir)
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.logger = newLogger(cmd.ErrOrStderr(), levelFor(c.verbose, cfg.LogLevel))
			return nil
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("folio %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configDir, "config-dir", config.DefaultConfigDir(), "directory holding config.yaml")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.mcpCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.migrateCommand())
	root.AddCommand(c.templatesCommand())
	root.AddCommand(c.importCommand())

	return root
}
