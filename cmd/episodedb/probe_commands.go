package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"episodedb/internal/config"
	"episodedb/internal/deps"
	"episodedb/internal/media"
	"episodedb/internal/media/ffprobe"
	"episodedb/internal/workflow"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var validate bool
	cmd := &cobra.Command{
		Use:   "probe <file>",
		Short: "Print the technical descriptor of a video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := existingMediaPath(args[0])
			if err != nil {
				return err
			}

			var desc ffprobe.VideoDescriptor
			if validate {
				logger, logErr := ctx.ensureLogger()
				if logErr != nil {
					return logErr
				}
				desc, err = workflow.NewExtractorFromConfig(cfg, media.ExecRunner{}, logger).Validate(cmd.Context(), path)
			} else {
				desc, err = ffprobe.NewInspector(media.ExecRunner{}, cfg.Media.FFprobeBinary, cfg.ProbeTimeout()).Inspect(cmd.Context(), path)
			}
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, desc)
			}

			resolution := ""
			if desc.Width > 0 && desc.Height > 0 {
				resolution = fmt.Sprintf("%dx%d", desc.Width, desc.Height)
			}
			lines := []string{
				renderField("File", path),
				renderField("Container", desc.FormatName),
				renderField("Duration", fmt.Sprintf("%s (%.2fs)", formatTimecode(desc.DurationSeconds), desc.DurationSeconds)),
				renderField("Resolution", resolution),
				renderField("Frame rate", strconv.FormatFloat(desc.FrameRate, 'f', 3, 64)),
				renderField("Bit rate", strconv.FormatInt(desc.BitRate, 10)),
				renderField("Streams", fmt.Sprintf("%d video, %d audio", desc.VideoStreams, desc.AudioStreams)),
				renderField("Video codec", desc.VideoCodec),
				renderField("Audio codec", desc.AudioCodec),
				renderField("Audio", fmt.Sprintf("%d ch @ %d Hz", desc.AudioChannels, desc.AudioSampleRate)),
			}
			if validate {
				lines = append(lines, renderStatusLine("Validation", statusOK, "ffmpeg available, duration and dimensions present", isTerminal(cmd.OutOrStdout())))
			}
			out := cmd.OutOrStdout()
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&validate, "validate", false, "Also check that ffmpeg runs and the file has a duration and dimensions")
	return cmd
}

func existingMediaPath(raw string) (string, error) {
	path, err := config.ExpandPath(raw)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("inspect path: %w", err)
	}
	return path, nil
}

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check that ffmpeg and ffprobe are installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := deps.CheckBinaries(cmd.Context(), media.ExecRunner{}, deps.MediaRequirements(cfg))
			missing := deps.Missing(statuses)

			if ctx.jsonOutput() {
				if err := writeJSON(cmd, statuses); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := isTerminal(out)
				for _, status := range statuses {
					kind := statusOK
					message := dashIfEmpty(status.Version)
					if !status.Available {
						kind = statusError
						message = status.Detail
					} else if status.Detail != "" {
						kind = statusWarn
						message = status.Detail
					}
					fmt.Fprintln(out, renderStatusLine(status.Name, kind, message, colorize))
				}
			}

			if len(missing) > 0 {
				names := make([]string, 0, len(missing))
				for _, status := range missing {
					names = append(names, status.Name)
				}
				return errors.New("missing required binaries: " + strings.Join(names, ", "))
			}
			return nil
		},
	}
}
