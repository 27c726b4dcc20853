package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"episodedb/internal/config"
	"episodedb/internal/media"
	"episodedb/internal/media/extract"
	"episodedb/internal/pipeline"
	"episodedb/internal/workflow"
)

func newThumbnailCommand(ctx *commandContext) *cobra.Command {
	var (
		at     float64
		output string
	)
	cmd := &cobra.Command{
		Use:   "thumbnail <file>",
		Short: "Write a single still taken at a timestamp",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			input, err := existingMediaPath(args[0])
			if err != nil {
				return err
			}
			target, err := outputPath(output)
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			extractor := workflow.NewExtractorFromConfig(cfg, media.ExecRunner{}, logger)
			written, err := extractor.ExtractThumbnailAt(cmd.Context(), input, target, at, pipeline.OptionsFromConfig(cfg).Thumbnails)
			if err != nil {
				return err
			}
			return reportWritten(cmd, ctx, written, at, 0)
		},
	}
	cmd.Flags().Float64Var(&at, "at", 0, "Timestamp in seconds")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Image file to write")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newClipCommand(ctx *commandContext) *cobra.Command {
	var (
		start    float64
		duration float64
		width    int
		height   int
		output   string
	)
	cmd := &cobra.Command{
		Use:   "clip <file>",
		Short: "Cut a clip from a video, copying streams unless a size is given",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			input, err := existingMediaPath(args[0])
			if err != nil {
				return err
			}
			target, err := outputPath(output)
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			opts := extract.ClipOptions{Width: width, Height: height, Timeout: cfg.ClipTimeout()}
			extractor := workflow.NewExtractorFromConfig(cfg, media.ExecRunner{}, logger)
			written, err := extractor.CreateClip(cmd.Context(), input, target, start, duration, opts)
			if err != nil {
				return err
			}
			return reportWritten(cmd, ctx, written, start, duration)
		},
	}
	cmd.Flags().Float64Var(&start, "start", 0, "Start offset in seconds")
	cmd.Flags().Float64Var(&duration, "duration", 0, "Clip length in seconds")
	cmd.Flags().IntVar(&width, "width", 0, "Re-encode to this width (requires --height)")
	cmd.Flags().IntVar(&height, "height", 0, "Re-encode to this height (requires --width)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Video file to write")
	_ = cmd.MarkFlagRequired("output")
	_ = cmd.MarkFlagRequired("duration")
	return cmd
}

func outputPath(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", errors.New("output path is required")
	}
	return config.ExpandPath(raw)
}

type writtenFile struct {
	Path     string  `json:"path"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration,omitempty"`
}

func reportWritten(cmd *cobra.Command, ctx *commandContext, path string, start, duration float64) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, writtenFile{Path: path, Start: start, Duration: duration})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
