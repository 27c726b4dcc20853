package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"episodedb/internal/api"
	"episodedb/internal/catalog"
	"episodedb/internal/config"
	"episodedb/internal/logging"
	"episodedb/internal/search"
	"episodedb/internal/workflow"
)

const serverLockName = "server.lock"

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog, processing, and search over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			lock, err := acquireServerLock(cfg.LockDir())
			if err != nil {
				return err
			}
			defer func() { _ = lock.Unlock() }()

			address := strings.TrimSpace(bind)
			if address == "" {
				address = cfg.Paths.APIBind
			}

			return ctx.withStore(func(store *catalog.Store) error {
				runner, err := workflow.NewRunnerFromConfig(cmd.Context(), cfg, store, logger)
				if err != nil {
					return err
				}
				embedder, closeEmbedder := serverQueryEmbedder(cmd, cfg, logger)
				defer closeEmbedder()

				searcher := search.NewService(store, embedder, cfg.Search.Threshold, cfg.Search.Limit, logger)
				server := api.NewServer(store, runner, searcher, api.Options{Token: cfg.Paths.APIToken}, logger)
				if err := server.Start(cmd.Context(), address); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", server.Addr())

				<-cmd.Context().Done()
				server.Stop()
				logger.Info("episodedb server stopped")
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to paths.api_bind)")
	return cmd
}

// serverQueryEmbedder returns nil when no embedding provider is configured;
// similarity requests then answer 503 while the rest of the API works.
func serverQueryEmbedder(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (search.QueryEmbedder, func()) {
	embedder, closeFn, err := newQueryEmbedder(cmd.Context(), cfg, logger)
	if err != nil {
		logging.WarnWithContext(logger, "similarity search disabled", "similar_search_disabled",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "set openai.api_key or embedding.cohere_api_key"),
			logging.String(logging.FieldImpact, "POST /search/similar returns 503"),
		)
		return nil, func() {}
	}
	return embedder, closeFn
}

// acquireServerLock ensures a single server per data directory.
func acquireServerLock(dir string) (*flock.Flock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	path := filepath.Join(dir, serverLockName)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire server lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another episodedb server is already running (lock %s)", path)
	}
	return lock, nil
}
