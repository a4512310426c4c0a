package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"folio/internal/domain"
	"folio/internal/grid"
	"folio/internal/migrate"
)

func (c *CLI) renderCommand() *cobra.Command {
	var (
		file   string
		mode   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "render [slug]",
		Short: "Render a post as a grid view or HTML",
		Long:  `Render a stored post by slug, or a post document read from --file, in read or editable mode. Output is HTML by default or the view structure with --format json.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := grid.ParseMode(mode)
			if err != nil {
				return err
			}
			if format != "html" && format != "json" {
				return fmt.Errorf("unknown format %q (want html or json)", format)
			}

			var note *domain.StudyNote
			switch {
			case file != "" && len(args) > 0:
				return errors.New("pass either a slug or --file, not both")
			case file != "":
				note, err = readDocumentFile(file)
				if err != nil {
					return err
				}
			case len(args) == 1:
				svc, err := c.openServices(cmd.Context())
				if err != nil {
					return err
				}
				defer svc.Close()
				note, err = svc.posts.GetBySlug(cmd.Context(), args[0])
				if err != nil {
					return err
				}
			default:
				return errors.New("a slug or --file is required")
			}

			p := newProgress(c.logger)
			view := grid.NewEngine(nil, c.logger).RenderNote(note, m)
			out := cmd.OutOrStdout()
			if format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(view); err != nil {
					return err
				}
			} else if err := view.WriteHTML(out); err != nil {
				return err
			}
			c.logger.Debug("render settings", "mode", m, "cells", len(view.Cells))
			p.done(fmt.Sprintf("Rendered %q", note.Slug))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "render a post document JSON file instead of a stored post")
	cmd.Flags().StringVarP(&mode, "mode", "m", "read", "render mode: read or editable")
	cmd.Flags().StringVar(&format, "format", "html", "output format: html or json")
	return cmd
}

// readDocumentFile loads a storage document from disk and normalizes it.
func readDocumentFile(path string) (*domain.StudyNote, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w: %v", path, domain.ErrInvalidDocument, err)
	}
	return migrate.Normalize(&doc)
}
