package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"episodedb/internal/api"
	"episodedb/internal/catalog"
	"episodedb/internal/search"
	"episodedb/internal/testsupport"
	"episodedb/internal/workflow"
)

type stubProcessor struct {
	calls  []workflow.Options
	report workflow.Report
	err    error
}

func (s *stubProcessor) Process(_ context.Context, episodeID string, opts workflow.Options) (workflow.Report, error) {
	s.calls = append(s.calls, opts)
	if s.err != nil {
		return workflow.Report{}, s.err
	}
	report := s.report
	report.EpisodeID = episodeID
	return report, nil
}

type stubEmbedder struct{}

func (stubEmbedder) Model() string { return "test-model" }

func (stubEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}

type harness struct {
	t         *testing.T
	store     *catalog.Store
	processor *stubProcessor
	server    *httptest.Server
	dir       string
	token     string
}

func newHarness(t *testing.T, token string) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	processor := &stubProcessor{report: workflow.Report{RequestID: "run-1", Thumbnails: 3, Segments: 7, Elapsed: 1500 * time.Millisecond}}
	searcher := search.NewService(store, stubEmbedder{}, 0.5, 10, nil)
	srv := api.NewServer(store, processor, searcher, api.Options{Token: token}, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &harness{t: t, store: store, processor: processor, server: ts, dir: t.TempDir(), token: token}
}

func (h *harness) do(method, path string, body any, headers ...string) (*http.Response, map[string]any) {
	h.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, h.server.URL+path, reader)
	if err != nil {
		h.t.Fatalf("new request: %v", err)
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		h.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	payload := map[string]any{}
	if resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			h.t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return resp, payload
}

func (h *harness) importEpisode(name string) string {
	h.t.Helper()
	path := testsupport.WriteEpisodeFiles(h.t, h.dir, name)[0]
	resp, payload := h.do(http.MethodPost, "/episodes", api.ImportRequest{Path: path})
	if resp.StatusCode != http.StatusCreated {
		h.t.Fatalf("import %s: status %d (%v)", name, resp.StatusCode, payload)
	}
	return payload["id"].(string)
}

func expectStatus(t *testing.T, resp *http.Response, payload map[string]any, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("status = %d, want %d (%v)", resp.StatusCode, want, payload)
	}
}

func TestHealthSkipsAuth(t *testing.T) {
	h := newHarness(t, "secret")
	resp, err := http.Get(h.server.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	var payload api.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StatusCode != http.StatusOK || payload.Status != "ok" || payload.Catalog != "sqlite" {
		t.Fatalf("unexpected health %d %+v", resp.StatusCode, payload)
	}
	if resp.Header.Get(api.RequestIDHeader) == "" {
		t.Fatal("expected generated request id header")
	}
}

func TestBearerAuth(t *testing.T) {
	h := newHarness(t, "secret")

	h.token = ""
	resp, payload := h.do(http.MethodGet, "/episodes", nil)
	expectStatus(t, resp, payload, http.StatusUnauthorized)
	if payload["error"] == "" {
		t.Fatalf("expected error body, got %v", payload)
	}

	resp, payload = h.do(http.MethodGet, "/episodes", nil, "Authorization", "Bearer wrong")
	expectStatus(t, resp, payload, http.StatusUnauthorized)

	h.token = "secret"
	resp, payload = h.do(http.MethodGet, "/episodes", nil)
	expectStatus(t, resp, payload, http.StatusOK)
}

func TestImportAndListEpisodes(t *testing.T) {
	h := newHarness(t, "")
	first := h.importEpisode("show.S01E02.second.mkv")
	h.importEpisode("show.S01E01.first.mp4")

	resp, payload := h.do(http.MethodGet, "/episodes", nil)
	expectStatus(t, resp, payload, http.StatusOK)
	episodes := payload["episodes"].([]any)
	if len(episodes) != 2 || payload["count"].(float64) != 2 {
		t.Fatalf("expected 2 episodes, got %v", payload)
	}
	if code := episodes[0].(map[string]any)["code"]; code != "S01E01" {
		t.Fatalf("episodes not in season order, first code %v", code)
	}
	if status := episodes[0].(map[string]any)["processingStatus"]; status != "pending" {
		t.Fatalf("unexpected status %v", status)
	}
	if status := episodes[0].(map[string]any)["metadataStatus"]; status != "pending" {
		t.Fatalf("unexpected metadata status %v", status)
	}

	resp, payload = h.do(http.MethodGet, "/episodes?limit=1&offset=1", nil)
	expectStatus(t, resp, payload, http.StatusOK)
	if got := payload["episodes"].([]any); len(got) != 1 || got[0].(map[string]any)["id"] != first {
		t.Fatalf("unexpected page %v", got)
	}

	resp, payload = h.do(http.MethodGet, "/episodes/pending", nil)
	expectStatus(t, resp, payload, http.StatusOK)
	if payload["count"].(float64) != 2 {
		t.Fatalf("expected 2 pending, got %v", payload)
	}

	resp, payload = h.do(http.MethodGet, "/episodes?status=completed", nil)
	expectStatus(t, resp, payload, http.StatusOK)
	if payload["count"].(float64) != 0 {
		t.Fatalf("expected no completed episodes, got %v", payload)
	}

	resp, payload = h.do(http.MethodGet, "/episodes?status=bogus", nil)
	expectStatus(t, resp, payload, http.StatusBadRequest)
	resp, payload = h.do(http.MethodGet, "/episodes?limit=-2", nil)
	expectStatus(t, resp, payload, http.StatusBadRequest)
}

func TestImportErrors(t *testing.T) {
	h := newHarness(t, "")
	path := testsupport.WriteEpisodeFiles(t, h.dir, "dup.mkv")[0]
	resp, payload := h.do(http.MethodPost, "/episodes", api.ImportRequest{Path: path})
	expectStatus(t, resp, payload, http.StatusCreated)

	resp, payload = h.do(http.MethodPost, "/episodes", api.ImportRequest{Path: path})
	expectStatus(t, resp, payload, http.StatusConflict)

	notes := testsupport.WriteEpisodeFiles(t, h.dir, "notes.txt")[0]
	resp, payload = h.do(http.MethodPost, "/episodes", api.ImportRequest{Path: notes})
	expectStatus(t, resp, payload, http.StatusBadRequest)

	resp, payload = h.do(http.MethodPost, "/episodes", api.ImportRequest{Path: filepath.Join(h.dir, "missing.mkv")})
	expectStatus(t, resp, payload, http.StatusNotFound)

	resp, payload = h.do(http.MethodPost, "/episodes", map[string]string{"file": "x"})
	expectStatus(t, resp, payload, http.StatusBadRequest)

	resp, payload = h.do(http.MethodPost, "/episodes", nil)
	expectStatus(t, resp, payload, http.StatusBadRequest)
}

func TestEpisodeDetailAndDelete(t *testing.T) {
	h := newHarness(t, "")
	id := h.importEpisode("detail.mkv")
	ctx := context.Background()
	if err := h.store.ReplaceThumbnails(ctx, id, []catalog.Thumbnail{{Index: 1, Timestamp: 60, Path: "/tmp/t1.jpg", Format: "jpg"}}); err != nil {
		t.Fatalf("ReplaceThumbnails: %v", err)
	}
	if err := h.store.ReplaceSegments(ctx, id, []catalog.Segment{
		{Index: 0, Start: 1, End: 4, Text: "hello", Embedding: []float32{1, 0}, EmbeddingModel: "test-model"},
		{Index: 1, Start: 4, End: 9, Text: "world", Embedding: []float32{0, 1}, EmbeddingModel: "test-model"},
	}); err != nil {
		t.Fatalf("ReplaceSegments: %v", err)
	}

	resp, payload := h.do(http.MethodGet, "/episodes/"+id, nil)
	expectStatus(t, resp, payload, http.StatusOK)
	if got := payload["thumbnails"].([]any); len(got) != 1 {
		t.Fatalf("expected 1 thumbnail, got %v", got)
	}
	segments := payload["segments"].([]any)
	if len(segments) != 2 || segments[0].(map[string]any)["dimensions"].(float64) != 2 {
		t.Fatalf("unexpected segments %v", segments)
	}
	if payload["transcript"] != "hello world" {
		t.Fatalf("unexpected transcript %v", payload["transcript"])
	}

	resp, payload = h.do(http.MethodDelete, "/episodes/"+id, nil)
	expectStatus(t, resp, payload, http.StatusNoContent)
	resp, payload = h.do(http.MethodGet, "/episodes/"+id, nil)
	expectStatus(t, resp, payload, http.StatusNotFound)
	resp, payload = h.do(http.MethodDelete, "/episodes/"+id, nil)
	expectStatus(t, resp, payload, http.StatusNotFound)
}

func TestProcessEpisode(t *testing.T) {
	h := newHarness(t, "")
	id := h.importEpisode("process.mkv")

	resp, payload := h.do(http.MethodPost, "/episodes/"+id+"/process", api.ProcessRequest{SkipThumbnails: true})
	expectStatus(t, resp, payload, http.StatusOK)
	if payload["segments"].(float64) != 7 || payload["elapsedMs"].(float64) != 1500 {
		t.Fatalf("unexpected process response %v", payload)
	}
	if len(h.processor.calls) != 1 || !h.processor.calls[0].SkipThumbnails || h.processor.calls[0].SkipTranscription {
		t.Fatalf("options not forwarded: %+v", h.processor.calls)
	}

	h.processor.err = fmt.Errorf("%s: %w", id, workflow.ErrEpisodeBusy)
	resp, payload = h.do(http.MethodPost, "/episodes/"+id+"/process", nil)
	expectStatus(t, resp, payload, http.StatusConflict)
	if payload["retryable"] != true {
		t.Fatalf("busy episode should be retryable, got %v", payload)
	}
}

func TestKeywordAndSimilarSearch(t *testing.T) {
	h := newHarness(t, "")
	id := h.importEpisode("search.mkv")
	segments := []catalog.Segment{
		{Index: 0, Start: 1, End: 4, Text: "Hello there, how are you", Embedding: []float32{1, 0}, EmbeddingModel: "test-model"},
		{Index: 1, Start: 5, End: 9, Text: "Something else entirely", Embedding: []float32{0, 1}, EmbeddingModel: "test-model"},
		{Index: 2, Start: 9, End: 12, Text: "Hello again", Embedding: []float32{0.8, 0.6}, EmbeddingModel: "test-model"},
	}
	if err := h.store.ReplaceSegments(context.Background(), id, segments); err != nil {
		t.Fatalf("ReplaceSegments: %v", err)
	}

	resp, payload := h.do(http.MethodGet, "/search?q=hello", nil)
	expectStatus(t, resp, payload, http.StatusOK)
	matches := payload["matches"].([]any)
	if len(matches) != 2 {
		t.Fatalf("expected 2 keyword matches, got %v", matches)
	}
	if _, ok := matches[0].(map[string]any)["similarity"]; ok {
		t.Fatalf("keyword matches should not carry similarity: %v", matches[0])
	}

	resp, payload = h.do(http.MethodGet, "/search?q=", nil)
	expectStatus(t, resp, payload, http.StatusBadRequest)

	resp, payload = h.do(http.MethodPost, "/search/similar", api.SimilarRequest{Text: "greeting"})
	expectStatus(t, resp, payload, http.StatusOK)
	matches = payload["matches"].([]any)
	if len(matches) != 2 {
		t.Fatalf("expected 2 similar matches above 0.5, got %v", matches)
	}
	top := matches[0].(map[string]any)
	if top["text"] != "Hello there, how are you" || top["similarity"].(float64) < 0.99 {
		t.Fatalf("unexpected top match %v", top)
	}

	strict := 0.9
	resp, payload = h.do(http.MethodPost, "/search/similar", api.SimilarRequest{Text: "greeting", Threshold: &strict, Limit: 5})
	expectStatus(t, resp, payload, http.StatusOK)
	if payload["count"].(float64) != 1 {
		t.Fatalf("expected 1 strict match, got %v", payload)
	}

	resp, payload = h.do(http.MethodPost, "/search/similar", api.SimilarRequest{Text: "  "})
	expectStatus(t, resp, payload, http.StatusBadRequest)
}

func TestCorrelationIDEcho(t *testing.T) {
	h := newHarness(t, "")
	resp, payload := h.do(http.MethodGet, "/episodes/unknown", nil, api.RequestIDHeader, "trace-123")
	expectStatus(t, resp, payload, http.StatusNotFound)
	if resp.Header.Get(api.RequestIDHeader) != "trace-123" {
		t.Fatalf("request id not echoed: %q", resp.Header.Get(api.RequestIDHeader))
	}
	if payload["correlationId"] != "trace-123" {
		t.Fatalf("error body missing correlation id: %v", payload)
	}
}

func TestUnconfiguredCollaborators(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	ts := httptest.NewServer(api.NewServer(store, nil, nil, api.Options{}, nil).Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/episodes/x/process", "application/json", bytes.NewReader([]byte(`{}`)))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without processor, got %d", resp.StatusCode)
	}
	resp, err = http.Get(ts.URL + "/search?q=x")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without searcher, got %d", resp.StatusCode)
	}
}
