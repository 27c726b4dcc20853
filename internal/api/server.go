package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"episodedb/internal/catalog"
	"episodedb/internal/logging"
	"episodedb/internal/search"
	"episodedb/internal/workflow"
)

// Processor runs the processing workflow for one episode.
type Processor interface {
	Process(ctx context.Context, episodeID string, opts workflow.Options) (workflow.Report, error)
}

// Searcher answers keyword and similarity queries.
type Searcher interface {
	Keyword(ctx context.Context, query string, limit int) ([]search.Match, error)
	Similar(ctx context.Context, text string, threshold *float64, limit int) ([]search.Match, error)
}

// Options configures a Server.
type Options struct {
	// Token enables bearer authentication on every route except /health.
	Token string
}

// Server exposes the catalog, workflow, and search over HTTP.
type Server struct {
	store     *catalog.Store
	processor Processor
	searcher  Searcher
	token     string
	logger    *slog.Logger

	server   *http.Server
	listener net.Listener
}

// NewServer constructs a server. processor and searcher may be nil, in which
// case their routes answer 503.
func NewServer(store *catalog.Store, processor Processor, searcher Searcher, opts Options, logger *slog.Logger) *Server {
	return &Server{
		store:     store,
		processor: processor,
		searcher:  searcher,
		token:     strings.TrimSpace(opts.Token),
		logger:    logging.NewComponentLogger(logger, "api-server"),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.correlationID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Group(func(r chi.Router) {
		r.Use(s.bearerAuth)
		r.Route("/episodes", func(r chi.Router) {
			r.Get("/", s.handleListEpisodes)
			r.Post("/", s.handleImportEpisode)
			r.Get("/pending", s.handlePendingEpisodes)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetEpisode)
				r.Delete("/", s.handleDeleteEpisode)
				r.Post("/process", s.handleProcessEpisode)
			})
		})
		r.Get("/search", s.handleKeywordSearch)
		r.Post("/search/similar", s.handleSimilarSearch)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusNotFound, errors.New("route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
	})
	return r
}

// Start listens on bind and serves until ctx is cancelled or Stop is called.
func (s *Server) Start(ctx context.Context, bind string) error {
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	// Processing runs synchronously in the request, so writes get a long budget.
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2 * time.Hour,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	if s.server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}
