package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"episodedb/internal/api"
	"episodedb/internal/catalog"
	"episodedb/internal/config"
	"episodedb/internal/embedding"
	"episodedb/internal/search"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find transcript segments containing text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")
			return ctx.withStore(func(store *catalog.Store) error {
				service := search.NewService(store, nil, 0, 0, logger)
				matches, err := service.Keyword(cmd.Context(), query, limit)
				if err != nil {
					return err
				}
				return printMatches(cmd, ctx, query, matches, false)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of matches")
	return cmd
}

func newSimilarCommand(ctx *commandContext) *cobra.Command {
	var threshold float64
	var limit int

	cmd := &cobra.Command{
		Use:   "similar <text>",
		Short: "Rank transcript segments by semantic similarity to text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			embedder, closeEmbedder, err := newQueryEmbedder(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeEmbedder()

			var thresholdOverride *float64
			if cmd.Flags().Changed("threshold") {
				thresholdOverride = &threshold
			}
			text := strings.Join(args, " ")
			return ctx.withStore(func(store *catalog.Store) error {
				service := search.NewService(store, embedder, cfg.Search.Threshold, cfg.Search.Limit, logger)
				matches, err := service.Similar(cmd.Context(), text, thresholdOverride, limit)
				if err != nil {
					return err
				}
				return printMatches(cmd, ctx, text, matches, true)
			})
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", search.DefaultThreshold, "Minimum cosine similarity, between -1 and 1")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of matches (0 uses search.limit)")
	return cmd
}

// newQueryEmbedder builds the cached query embedder for the configured
// provider. The returned close function releases the cache connection.
func newQueryEmbedder(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*embedding.QueryEmbedder, func(), error) {
	provider, err := embedding.NewProviderFromConfig(cfg, embedding.PurposeQuery)
	if err != nil {
		return nil, nil, err
	}
	cache, err := embedding.NewCacheFromConfig(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {}
	if closer, ok := cache.(io.Closer); ok {
		closeFn = func() { _ = closer.Close() }
	}
	return embedding.NewQueryEmbedder(provider, cache, logger), closeFn, nil
}

func printMatches(cmd *cobra.Command, ctx *commandContext, query string, matches []search.Match, scored bool) error {
	converted := api.FromMatches(matches, scored)
	if ctx.jsonOutput() {
		return writeJSON(cmd, api.SearchResponse{Query: strings.TrimSpace(query), Matches: converted, Count: len(converted)})
	}
	out := cmd.OutOrStdout()
	if len(matches) == 0 {
		fmt.Fprintln(out, "No matches")
		return nil
	}
	headers := []string{"EPISODE", "TIME", "TEXT"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft}
	if scored {
		headers = append([]string{"SCORE"}, headers...)
		aligns = append([]columnAlignment{alignRight}, aligns...)
	}
	rows := make([][]string, 0, len(matches))
	for _, match := range matches {
		row := []string{
			truncate(dashIfEmpty(match.EpisodeTitle), 32),
			formatTimecode(match.Start) + "-" + formatTimecode(match.End),
			truncate(match.Text, 80),
		}
		if scored {
			row = append([]string{fmt.Sprintf("%.3f", match.Similarity)}, row...)
		}
		rows = append(rows, row)
	}
	writeRows(out, headers, rows, aligns)
	return nil
}
