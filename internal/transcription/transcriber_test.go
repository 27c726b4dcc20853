package transcription_test

import (
	"context"
	"errors"
	"testing"

	"episodedb/internal/pipeline"
	"episodedb/internal/services"
	"episodedb/internal/services/openai"
	"episodedb/internal/transcription"
)

type stubClient struct {
	req  openai.TranscriptionRequest
	resp openai.Transcription
	err  error
}

func (s *stubClient) Transcribe(_ context.Context, req openai.TranscriptionRequest) (openai.Transcription, error) {
	s.req = req
	return s.resp, s.err
}

func TestTranscribeAudioFileMapsSegments(t *testing.T) {
	client := &stubClient{resp: openai.Transcription{
		Duration: 30,
		Language: "english",
		Text:     " Hi, Lisa. ",
		Segments: []openai.Segment{{ID: 3, Start: 1, End: 4, Text: " Hi, Lisa.", Tokens: []int{7}, NoSpeechProb: 0.05}},
	}}
	result, err := transcription.New(client, "", "en", nil).TranscribeAudioFile(context.Background(), "/tmp/a.wav")
	if err != nil {
		t.Fatalf("TranscribeAudioFile returned error: %v", err)
	}
	if client.req.Model != "whisper-1" || client.req.ResponseFormat != "verbose_json" || client.req.Temperature != 0 || client.req.Language != "en" {
		t.Fatalf("unexpected request %+v", client.req)
	}
	if result.DurationSeconds != 30 || result.Text != "Hi, Lisa." || len(result.Segments) != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if seg := result.Segments[0]; seg.ID != 3 || seg.End != 4 || seg.NoSpeechProb != 0.05 {
		t.Fatalf("unexpected segment %+v", seg)
	}
}

func TestTranscribeAudioFileTagsStage(t *testing.T) {
	cause := services.Wrap(services.ErrTransient, "openai", "transcribe", "", errors.New("http 503"))
	client := &stubClient{err: cause}
	_, err := transcription.New(client, "whisper-1", "", nil).TranscribeAudioFile(context.Background(), "/tmp/a.wav")
	if pipeline.StageOf(err) != pipeline.StageTranscription {
		t.Fatalf("expected transcription stage, got %v", err)
	}
	if !services.IsRetryable(err) {
		t.Fatal("expected transient cause to remain retryable")
	}
}
