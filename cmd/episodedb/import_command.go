package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"episodedb/internal/api"
	"episodedb/internal/catalog"
	"episodedb/internal/config"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "import <path>",
		Short: "Import a video file, or every video file in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			info, err := os.Stat(path)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("path does not exist: %s", path)
				}
				return fmt.Errorf("inspect path: %w", err)
			}

			files := []string{path}
			if info.IsDir() {
				files, err = catalog.ScanVideoFiles(path, recursive)
				if err != nil {
					return err
				}
				if len(files) == 0 {
					return fmt.Errorf("no video files found in %s", path)
				}
			}

			return ctx.withStore(func(store *catalog.Store) error {
				imported := make([]*catalog.Episode, 0, len(files))
				skipped := 0
				for _, file := range files {
					ep, err := store.ImportFile(cmd.Context(), file)
					if err != nil {
						// Directory imports are re-runnable: known files are skipped.
						if info.IsDir() && errors.Is(err, catalog.ErrDuplicateEpisode) {
							skipped++
							continue
						}
						return err
					}
					imported = append(imported, ep)
				}

				if ctx.jsonOutput() {
					return writeJSON(cmd, api.FromEpisodes(imported))
				}
				out := cmd.OutOrStdout()
				for _, ep := range imported {
					fmt.Fprintf(out, "Imported %s as %s\n", ep.FileName, ep.ID)
				}
				if skipped > 0 {
					fmt.Fprintf(out, "Skipped %d already imported file(s)\n", skipped)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Scan subdirectories when importing a directory")
	return cmd
}
