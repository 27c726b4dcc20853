package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"episodedb/internal/api"
	"episodedb/internal/catalog"
	"episodedb/internal/media/ffprobe"
	"episodedb/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := env.run(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Transcription:   yes")

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, err = env.run(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
	if _, err := env.run(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	// The sample must load as-is; its paths live under HOME.
	t.Setenv("HOME", t.TempDir())
	if out, err = runCLI(t, []string{"--config", target, "config", "validate"}); err != nil {
		t.Fatalf("validate sample: %v", err)
	}
	requireContains(t, out, "Configuration valid")
}

func TestImportListShow(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteEpisodeFiles(t, env.mediaDir,
		"show.S01E01.pilot.mkv",
		"notes.txt",
		filepath.Join("extras", "show.S01E02.second.mp4"),
	)

	out, err := env.run(t, "import", env.mediaDir)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	requireContains(t, out, "Imported show.S01E01.pilot.mkv")
	if strings.Contains(out, "second") {
		t.Fatalf("non-recursive import reached a subdirectory: %q", out)
	}

	out, err = env.run(t, "import", "-r", env.mediaDir)
	if err != nil {
		t.Fatalf("import -r: %v", err)
	}
	requireContains(t, out, "Imported show.S01E02.second.mp4")
	requireContains(t, out, "Skipped 1 already imported file(s)")

	out, err = env.run(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %q", out)
	}
	if !strings.HasPrefix(lines[0], "ID\tCODE\tTITLE") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	requireContains(t, lines[1], "S01E01")
	requireContains(t, lines[2], "S01E02")

	out, err = env.run(t, "--json", "list", "--status", "pending")
	if err != nil {
		t.Fatalf("list --json: %v", err)
	}
	var episodes []api.Episode
	if err := json.Unmarshal([]byte(out), &episodes); err != nil {
		t.Fatalf("decode list json: %v (%q)", err, out)
	}
	if len(episodes) != 2 || episodes[0].Code != "S01E01" || episodes[0].ProcessingStatus != "pending" {
		t.Fatalf("unexpected episodes %+v", episodes)
	}

	out, err = env.run(t, "show", episodes[1].ID)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, episodes[1].FilePath)
	requireContains(t, out, "[INFO] pending")

	out, err = env.run(t, "--json", "show", episodes[0].ID)
	if err != nil {
		t.Fatalf("show --json: %v", err)
	}
	var detail api.EpisodeDetailResponse
	if err := json.Unmarshal([]byte(out), &detail); err != nil {
		t.Fatalf("decode show json: %v", err)
	}
	if detail.Episode.ID != episodes[0].ID || detail.Thumbnails == nil || detail.Segments == nil {
		t.Fatalf("unexpected detail %+v", detail)
	}

	if _, err := env.run(t, "show", "missing-id"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestImportErrors(t *testing.T) {
	env := setupCLITestEnv(t)
	paths := testsupport.WriteEpisodeFiles(t, env.mediaDir, "single.mkv", "readme.txt")

	if _, err := env.run(t, "import", filepath.Join(env.mediaDir, "absent.mkv")); err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("expected missing path error, got %v", err)
	}
	if _, err := env.run(t, "import", paths[1]); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("expected unsupported file error, got %v", err)
	}
	if _, err := env.run(t, "import", paths[0]); err != nil {
		t.Fatalf("import file: %v", err)
	}
	if _, err := env.run(t, "import", paths[0]); err == nil || !strings.Contains(err.Error(), "already imported") {
		t.Fatalf("expected duplicate error for explicit file, got %v", err)
	}
	if _, err := env.run(t, "import", t.TempDir()); err == nil || !strings.Contains(err.Error(), "no video files") {
		t.Fatalf("expected empty directory error, got %v", err)
	}
}

func TestListRejectsUnknownStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := env.run(t, "list", "--status", "archived"); err == nil || !strings.Contains(err.Error(), "invalid status") {
		t.Fatalf("expected invalid status error, got %v", err)
	}
}

func seedSegments(t *testing.T, env *cliTestEnv) string {
	t.Helper()
	path := testsupport.WriteEpisodeFiles(t, env.mediaDir, "show.S02E03.search.mkv")[0]
	store := testsupport.MustOpenCatalog(t, env.cfg)
	ctx := context.Background()
	ep, err := store.ImportFile(ctx, path)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	model := env.cfg.Embedding.Model
	segments := []catalog.Segment{
		{Index: 0, Start: 0, End: 4, Text: "Hello there, how are you", Embedding: []float32{1, 0}, EmbeddingModel: model},
		{Index: 1, Start: 4, End: 70, Text: "The weather is nice today", Embedding: []float32{0, 1}, EmbeddingModel: model},
	}
	if err := store.ReplaceSegments(ctx, ep.ID, segments); err != nil {
		t.Fatalf("ReplaceSegments: %v", err)
	}
	return ep.ID
}

func TestShowTranscript(t *testing.T) {
	env := setupCLITestEnv(t)
	id := seedSegments(t, env)

	out, err := env.run(t, "show", "--transcript", id)
	if err != nil {
		t.Fatalf("show --transcript: %v", err)
	}
	requireContains(t, out, "== Transcript ==")
	requireContains(t, out, "Hello there, how are you The weather is nice today")

	out, err = env.run(t, "--json", "show", id)
	if err != nil {
		t.Fatalf("show --json: %v", err)
	}
	var detail api.EpisodeDetailResponse
	if err := json.Unmarshal([]byte(out), &detail); err != nil {
		t.Fatalf("decode show json: %v", err)
	}
	if detail.Transcript != "Hello there, how are you The weather is nice today" || detail.Episode.MetadataStatus != "pending" {
		t.Fatalf("unexpected detail %+v", detail)
	}
}

func TestSearchCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	seedSegments(t, env)

	out, err := env.run(t, "search", "HELLO")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	requireContains(t, out, "EPISODE\tTIME\tTEXT")
	requireContains(t, out, "0:00-0:04\tHello there, how are you")

	out, err = env.run(t, "search", "nothing", "matches")
	if err != nil {
		t.Fatalf("search without hits: %v", err)
	}
	requireContains(t, out, "No matches")
}

func TestSimilarCommand(t *testing.T) {
	embeddings := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" || r.Header.Get("Authorization") != "Bearer test" {
			http.Error(w, "unexpected request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.8,0.6]}],"model":"text-embedding-3-small"}`))
	}))
	defer embeddings.Close()

	env := setupCLITestEnv(t, testsupport.WithOpenAIBaseURL(embeddings.URL))
	seedSegments(t, env)

	out, err := env.run(t, "--json", "similar", "greetings", "--threshold", "0.5")
	if err != nil {
		t.Fatalf("similar: %v", err)
	}
	var resp api.SearchResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode similar json: %v (%q)", err, out)
	}
	if resp.Count != 2 || resp.Matches[0].Text != "Hello there, how are you" {
		t.Fatalf("unexpected ranking %+v", resp.Matches)
	}
	if resp.Matches[0].Similarity == nil || *resp.Matches[0].Similarity < 0.79 {
		t.Fatalf("expected similarity around 0.8, got %+v", resp.Matches[0])
	}

	out, err = env.run(t, "similar", "greetings", "--threshold", "0.7")
	if err != nil {
		t.Fatalf("similar strict: %v", err)
	}
	requireContains(t, out, "SCORE\tEPISODE")
	requireContains(t, out, "0.800\t")
	if strings.Contains(out, "weather") {
		t.Fatalf("segment below threshold listed: %q", out)
	}
}

func TestSimilarRequiresEmbeddingKey(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithOpenAIKey(""))
	if _, err := env.run(t, "similar", "anything"); err == nil || !strings.Contains(err.Error(), "openai.api_key") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestProcessCommandPreconditions(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithOpenAIKey(""))
	id := seedSegments(t, env)

	_, err := env.run(t, "process", id)
	if err == nil || !strings.Contains(err.Error(), "--skip-transcription") {
		t.Fatalf("expected key hint, got %v", err)
	}

	_, err = env.run(t, "process", "missing-id", "--skip-transcription")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestDepsCommand(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries())
	out, err := env.run(t, "deps")
	if err != nil {
		t.Fatalf("deps: %v", err)
	}
	requireContains(t, out, "FFmpeg:")
	requireContains(t, out, "FFprobe:")
	requireContains(t, out, "[OK]")

	out, err = env.run(t, "--json", "deps")
	if err != nil {
		t.Fatalf("deps --json: %v", err)
	}
	var statuses []map[string]any
	if err := json.Unmarshal([]byte(out), &statuses); err != nil {
		t.Fatalf("decode deps json: %v", err)
	}
	if len(statuses) != 2 || statuses[0]["available"] != true {
		t.Fatalf("unexpected statuses %v", statuses)
	}
}

func TestInspectValidateAndMediaCommands(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithInspectorStub(120))
	video := testsupport.WriteEpisodeFiles(t, env.mediaDir, "show.S03E01.media.mkv")[0]

	out, err := env.run(t, "probe", video)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	requireContains(t, out, "1920x1080")
	requireContains(t, out, "1 video, 1 audio")
	if strings.Contains(out, "Validation") {
		t.Fatalf("plain inspect should not validate: %q", out)
	}

	out, err = env.run(t, "--json", "probe", "--validate", video)
	if err != nil {
		t.Fatalf("inspect --validate: %v", err)
	}
	var desc ffprobe.VideoDescriptor
	if err := json.Unmarshal([]byte(out), &desc); err != nil {
		t.Fatalf("decode inspect json: %v", err)
	}
	if desc.DurationSeconds != 120 || desc.VideoStreams != 1 {
		t.Fatalf("unexpected descriptor %+v", desc)
	}

	still := filepath.Join(env.mediaDir, "stills", "frame.jpg")
	out, err = env.run(t, "thumbnail", video, "--at", "30", "-o", still)
	if err != nil {
		t.Fatalf("thumbnail: %v", err)
	}
	requireContains(t, out, "Wrote "+still)

	clip := filepath.Join(env.mediaDir, "clips", "intro.mkv")
	out, err = env.run(t, "clip", video, "--start", "10", "--duration", "5", "-o", clip)
	if err != nil {
		t.Fatalf("clip: %v", err)
	}
	requireContains(t, out, "Wrote "+clip)

	if _, err := env.run(t, "clip", video, "--duration", "0", "-o", clip); err == nil || !strings.Contains(err.Error(), "invalid clip range") {
		t.Fatalf("expected invalid clip range, got %v", err)
	}
	if _, err := env.run(t, "thumbnail", video, "--at=-1", "-o", still); err == nil || !strings.Contains(err.Error(), "negative timestamp") {
		t.Fatalf("expected negative timestamp error, got %v", err)
	}
}

func TestAcquireServerLock(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "locks")
	lock, err := acquireServerLock(dir)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if _, err := acquireServerLock(dir); err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected second lock to fail, got %v", err)
	}
	if err := lock.Unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	again, err := acquireServerLock(dir)
	if err != nil {
		t.Fatalf("relock: %v", err)
	}
	_ = again.Unlock()
}

func TestOutputHelpers(t *testing.T) {
	cases := map[float64]string{0: "0:00", 59.9: "0:59", 61: "1:01", 3725: "1:02:05", -3: "0:00"}
	for input, want := range cases {
		if got := formatTimecode(input); got != want {
			t.Fatalf("formatTimecode(%v) = %q, want %q", input, got, want)
		}
	}
	if got := truncate("abcdefghij", 6); got != "abc..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate short = %q", got)
	}
	table := renderTable([]string{"A", "B"}, [][]string{{"1"}}, []columnAlignment{alignRight})
	if !strings.Contains(table, "A") || !strings.Contains(table, "1") {
		t.Fatalf("unexpected table %q", table)
	}
}
