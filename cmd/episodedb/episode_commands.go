package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"episodedb/internal/api"
	"episodedb/internal/catalog"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string
	var limit int
	var pending bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog episodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter catalog.ListFilter
			if raw := strings.TrimSpace(statusFlag); raw != "" {
				status, ok := catalog.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("invalid status %q (expected pending, processing, completed, or failed)", raw)
				}
				filter.Status = status
			}
			if limit < 0 {
				return fmt.Errorf("limit must not be negative")
			}
			filter.Limit = limit

			return ctx.withStore(func(store *catalog.Store) error {
				var (
					episodes []*catalog.Episode
					err      error
				)
				if pending {
					episodes, err = store.Pending(cmd.Context())
				} else {
					episodes, err = store.List(cmd.Context(), filter)
				}
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.FromEpisodes(episodes))
				}
				out := cmd.OutOrStdout()
				if len(episodes) == 0 {
					fmt.Fprintln(out, "No episodes found")
					return nil
				}
				writeRows(out, episodeHeaders(), episodeRows(episodes), []columnAlignment{
					alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignLeft,
				})
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Only list episodes with this processing status")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of episodes to list (0 for all)")
	cmd.Flags().BoolVar(&pending, "pending", false, "List episodes awaiting processing, oldest first")
	return cmd
}

func episodeHeaders() []string {
	return []string{"ID", "CODE", "TITLE", "DURATION", "PROCESSING", "METADATA", "TRANSCRIPT", "THUMBNAILS", "EMBEDDINGS"}
}

func episodeRows(episodes []*catalog.Episode) [][]string {
	rows := make([][]string, 0, len(episodes))
	for _, ep := range episodes {
		duration := "-"
		if ep.Video.DurationSeconds > 0 {
			duration = formatTimecode(ep.Video.DurationSeconds)
		}
		rows = append(rows, []string{
			ep.ID,
			dashIfEmpty(ep.Code()),
			truncate(ep.Title, 40),
			duration,
			string(ep.ProcessingStatus),
			string(ep.MetadataStatus),
			string(ep.TranscriptionStatus),
			string(ep.ThumbnailStatus),
			string(ep.EmbeddingStatus),
		})
	}
	return rows
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var fullTranscript bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an episode with its thumbnails and transcript segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withStore(func(store *catalog.Store) error {
				ep, err := store.MustGet(cmd.Context(), id)
				if err != nil {
					return err
				}
				thumbs, err := store.Thumbnails(cmd.Context(), id)
				if err != nil {
					return err
				}
				segments, err := store.Segments(cmd.Context(), id)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, api.FromEpisodeDetail(ep, thumbs, segments))
				}
				renderEpisode(cmd, ep, thumbs, segments)
				if fullTranscript {
					renderTranscript(cmd, segments)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&fullTranscript, "transcript", false, "Also print the full transcript text")
	return cmd
}

func renderTranscript(cmd *cobra.Command, segments []catalog.Segment) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Transcript", isTerminal(out)) {
		fmt.Fprintln(out, line)
	}
	text := api.TranscriptText(segments)
	if text == "" {
		text = "(no transcript)"
	}
	fmt.Fprintln(out, text)
}

func renderEpisode(cmd *cobra.Command, ep *catalog.Episode, thumbs []catalog.Thumbnail, segments []catalog.Segment) {
	out := cmd.OutOrStdout()
	colorize := isTerminal(out)

	lines := renderSectionHeader(ep.Title, colorize)
	lines = append(lines,
		renderField("ID", ep.ID),
		renderField("File", ep.FilePath),
		renderField("Size", strconv.FormatInt(ep.FileSize, 10)+" bytes"),
		renderField("Episode", ep.Code()),
	)
	if ep.Video.DurationSeconds > 0 {
		lines = append(lines,
			renderField("Duration", formatTimecode(ep.Video.DurationSeconds)),
			renderField("Resolution", ep.Video.Resolution()),
			renderField("Codecs", strings.Trim(ep.Video.VideoCodec+"/"+ep.Video.AudioCodec, "/")),
		)
	}
	lines = append(lines, renderField("Audio", ep.AudioPath), "")

	lines = append(lines, renderSectionHeader("Status", colorize)...)
	lines = append(lines,
		renderStatusLine("Processing", kindForStatus(ep.ProcessingStatus), string(ep.ProcessingStatus), colorize),
		renderStatusLine("Metadata", kindForStatus(ep.MetadataStatus), string(ep.MetadataStatus), colorize),
		renderStatusLine("Transcription", kindForStatus(ep.TranscriptionStatus), string(ep.TranscriptionStatus), colorize),
		renderStatusLine("Thumbnails", kindForStatus(ep.ThumbnailStatus), fmt.Sprintf("%s (%d)", ep.ThumbnailStatus, len(thumbs)), colorize),
		renderStatusLine("Embeddings", kindForStatus(ep.EmbeddingStatus), fmt.Sprintf("%s (%d segments)", ep.EmbeddingStatus, len(segments)), colorize),
	)
	if ep.ErrorMessage != "" {
		lines = append(lines, renderStatusLine("Last error", statusError, ep.ErrorMessage, colorize))
	}
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}

	if len(segments) > 0 {
		fmt.Fprintln(out)
		rows := make([][]string, 0, len(segments))
		for _, seg := range segments {
			rows = append(rows, []string{
				strconv.Itoa(seg.Index),
				formatTimecode(seg.Start) + "-" + formatTimecode(seg.End),
				truncate(seg.Text, 80),
			})
		}
		writeRows(out, []string{"#", "TIME", "TEXT"}, rows, []columnAlignment{alignRight})
	}
}
