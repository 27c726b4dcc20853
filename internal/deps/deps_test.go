package deps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"episodedb/internal/media"
	"episodedb/internal/testsupport"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  ", Optional: true},
	}

	results := CheckBinaries(context.Background(), nil, reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" || results[0].Version != "" {
		t.Fatalf("unexpected detail for available dependency: %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected blank status: %#v", results[2])
	}

	missing := Missing(results)
	if len(missing) != 1 || missing[0].Name != "Missing" {
		t.Fatalf("expected only the required missing binary, got %#v", missing)
	}
}

func TestCheckBinariesRecordsVersion(t *testing.T) {
	binDir := t.TempDir()
	ffmpeg := filepath.Join(binDir, "ffmpeg")
	if err := os.WriteFile(ffmpeg, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	runner := &testsupport.FakeRunner{Handler: func(call testsupport.RunnerCall) (media.CommandResult, error) {
		if !call.HasFlag("-version") {
			t.Fatalf("unexpected args %v", call.Args)
		}
		return media.CommandResult{Stdout: []byte("ffmpeg version 7.1 Copyright (c)\nbuilt with gcc\n")}, nil
	}}

	results := CheckBinaries(context.Background(), runner, []Requirement{{Name: "FFmpeg", Command: ffmpeg}})
	if got := results[0].Version; got != "ffmpeg version 7.1 Copyright (c)" {
		t.Fatalf("unexpected version %q", got)
	}

	runner.Handler = func(testsupport.RunnerCall) (media.CommandResult, error) {
		return media.CommandResult{ExitCode: 1}, nil
	}
	results = CheckBinaries(context.Background(), runner, []Requirement{{Name: "FFmpeg", Command: ffmpeg}})
	if !results[0].Available || results[0].Detail == "" {
		t.Fatalf("expected available binary with version detail, got %#v", results[0])
	}
}

func TestMediaRequirementsFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Media.FFmpegBinary = "/opt/ffmpeg/bin/ffmpeg"
	reqs := MediaRequirements(cfg)
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(reqs))
	}
	if reqs[0].Command != "/opt/ffmpeg/bin/ffmpeg" || reqs[1].Command != cfg.Media.FFprobeBinary {
		t.Fatalf("unexpected requirements: %#v", reqs)
	}
}
