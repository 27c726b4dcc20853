package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"episodedb/internal/catalog"
	"episodedb/internal/logging"
	"episodedb/internal/pipeline"
	"episodedb/internal/services"
	"episodedb/internal/workflow"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.writeError(w, r, http.StatusServiceUnavailable, fmt.Errorf("catalog unavailable: %w", err))
		return
	}
	resp := HealthResponse{Status: "ok", Catalog: s.store.Driver()}
	if stats, err := s.store.Stats(r.Context()); err == nil {
		resp.Stats = make(map[string]int, len(stats))
		for status, count := range stats {
			resp.Stats[string(status)] = count
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListEpisodes(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var filter catalog.ListFilter
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, ok := catalog.ParseStatus(raw)
		if !ok {
			s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid status %q", raw))
			return
		}
		filter.Status = status
	}
	var err error
	if filter.Limit, err = intParam(query.Get("limit")); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid limit: %w", err))
		return
	}
	if filter.Offset, err = intParam(query.Get("offset")); err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid offset: %w", err))
		return
	}

	episodes, err := s.store.List(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, EpisodeListResponse{Episodes: FromEpisodes(episodes), Count: len(episodes)})
}

func (s *Server) handlePendingEpisodes(w http.ResponseWriter, r *http.Request) {
	episodes, err := s.store.Pending(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, EpisodeListResponse{Episodes: FromEpisodes(episodes), Count: len(episodes)})
}

func (s *Server) handleGetEpisode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ep, err := s.store.MustGet(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	thumbs, err := s.store.Thumbnails(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	segments, err := s.store.Segments(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, FromEpisodeDetail(ep, thumbs, segments))
}

func (s *Server) handleImportEpisode(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		s.writeError(w, r, http.StatusBadRequest, errors.New("path is required"))
		return
	}
	ep, err := s.store.ImportFile(r.Context(), req.Path)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	logging.WithContext(services.WithEpisodeID(r.Context(), ep.ID), s.logger).Info("episode imported",
		logging.Event("episode_imported"),
		logging.String("file", ep.FilePath),
	)
	s.writeJSON(w, http.StatusCreated, FromEpisode(ep))
}

func (s *Server) handleDeleteEpisode(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProcessEpisode(w http.ResponseWriter, r *http.Request) {
	if s.processor == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, errors.New("processing is not configured"))
		return
	}
	var req ProcessRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	id := chi.URLParam(r, "id")
	report, err := s.processor.Process(r.Context(), id, workflow.Options{
		SkipTranscription: req.SkipTranscription,
		SkipThumbnails:    req.SkipThumbnails,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	ep, err := s.store.MustGet(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, FromReport(ep, report))
}

func (s *Server) handleKeywordSearch(w http.ResponseWriter, r *http.Request) {
	if s.searcher == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, errors.New("search is not configured"))
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	limit, err := intParam(r.URL.Query().Get("limit"))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid limit: %w", err))
		return
	}
	matches, err := s.searcher.Keyword(r.Context(), query, limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := FromMatches(matches, false)
	s.writeJSON(w, http.StatusOK, SearchResponse{Query: query, Matches: out, Count: len(out)})
}

func (s *Server) handleSimilarSearch(w http.ResponseWriter, r *http.Request) {
	if s.searcher == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, errors.New("search is not configured"))
		return
	}
	var req SimilarRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	if req.Limit < 0 {
		s.writeError(w, r, http.StatusBadRequest, errors.New("limit must not be negative"))
		return
	}
	matches, err := s.searcher.Similar(r.Context(), req.Text, req.Threshold, req.Limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := FromMatches(matches, true)
	s.writeJSON(w, http.StatusOK, SearchResponse{Query: strings.TrimSpace(req.Text), Matches: out, Count: len(out)})
}

func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func intParam(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if value < 0 {
		return 0, errors.New("must not be negative")
	}
	return value, nil
}

// statusFor maps service error markers onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, workflow.ErrEpisodeBusy), errors.Is(err, catalog.ErrDuplicateEpisode):
		return http.StatusConflict
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrConfiguration):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeError(w, r, statusFor(err), err)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	resp := ErrorResponse{
		Error: err.Error(),
		Stage: pipeline.StageOf(err),
	}
	if status >= http.StatusInternalServerError || status == http.StatusConflict {
		resp.Kind = services.Classify(err)
		resp.Retryable = services.IsRetryable(err)
	}
	if id, ok := services.RequestIDFromContext(r.Context()); ok {
		resp.CorrelationID = id
	}
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "request failed", "http_error",
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.Error(err),
		)
	}
	s.writeJSON(w, status, resp)
}
