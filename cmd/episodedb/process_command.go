package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"episodedb/internal/api"
	"episodedb/internal/catalog"
	"episodedb/internal/workflow"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var opts workflow.Options

	cmd := &cobra.Command{
		Use:   "process <id>",
		Short: "Inspect, extract, transcribe, and embed one episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !opts.SkipTranscription {
				if err := cfg.RequireOpenAIKey(); err != nil {
					return fmt.Errorf("%w (or pass --skip-transcription)", err)
				}
				if err := cfg.RequireEmbeddingKey(); err != nil {
					return fmt.Errorf("%w (or pass --skip-transcription)", err)
				}
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			id := strings.TrimSpace(args[0])

			return ctx.withStore(func(store *catalog.Store) error {
				runner, err := workflow.NewRunnerFromConfig(cmd.Context(), cfg, store, logger)
				if err != nil {
					return err
				}
				report, err := runner.Process(cmd.Context(), id, opts)
				if err != nil {
					return err
				}
				ep, err := store.MustGet(cmd.Context(), id)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.FromReport(ep, report))
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Processed %s in %s\n", ep.FileName, report.Elapsed.Round(time.Millisecond))
				lines := []string{
					renderField("Duration", formatTimecode(report.Video.DurationSeconds)),
					renderField("Resolution", ep.Video.Resolution()),
					renderField("Audio", report.AudioPath),
					renderField("Thumbnails", thumbnailSummary(report)),
				}
				if !opts.SkipTranscription {
					lines = append(lines,
						renderField("Segments", strconv.Itoa(report.Segments)),
						renderField("Model", report.EmbeddingModel),
					)
				}
				for _, line := range lines {
					fmt.Fprintln(out, line)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&opts.SkipTranscription, "skip-transcription", false, "Skip transcription, segmentation, and embeddings")
	cmd.Flags().BoolVar(&opts.SkipThumbnails, "skip-thumbnails", false, "Skip thumbnail extraction")
	return cmd
}

func thumbnailSummary(report workflow.Report) string {
	summary := strconv.Itoa(report.Thumbnails)
	if report.ThumbnailFailures > 0 {
		summary += fmt.Sprintf(" (%d failed)", report.ThumbnailFailures)
	}
	return summary
}
