package api

import (
	"time"

	"episodedb/internal/catalog"
	"episodedb/internal/search"
	"episodedb/internal/transcript"
	"episodedb/internal/workflow"
)

// FromEpisode converts a catalog record to its API representation.
func FromEpisode(ep *catalog.Episode) Episode {
	if ep == nil {
		return Episode{}
	}
	dto := Episode{
		ID:                  ep.ID,
		FilePath:            ep.FilePath,
		FileName:            ep.FileName,
		FileSize:            ep.FileSize,
		Checksum:            ep.Checksum,
		Title:               ep.Title,
		Season:              ep.Season,
		EpisodeNumber:       ep.EpisodeNumber,
		Code:                ep.Code(),
		Video:               fromVideoInfo(ep.Video),
		AudioPath:           ep.AudioPath,
		ProcessingStatus:    string(ep.ProcessingStatus),
		TranscriptionStatus: string(ep.TranscriptionStatus),
		ThumbnailStatus:     string(ep.ThumbnailStatus),
		MetadataStatus:      string(ep.MetadataStatus),
		EmbeddingStatus:     string(ep.EmbeddingStatus),
		ErrorMessage:        ep.ErrorMessage,
		CreatedAt:           formatTime(ep.CreatedAt),
		UpdatedAt:           formatTime(ep.UpdatedAt),
	}
	if ep.ProcessedAt != nil {
		dto.ProcessedAt = formatTime(*ep.ProcessedAt)
	}
	return dto
}

// FromEpisodes converts a slice of catalog records. The result is never nil.
func FromEpisodes(episodes []*catalog.Episode) []Episode {
	out := make([]Episode, 0, len(episodes))
	for _, ep := range episodes {
		out = append(out, FromEpisode(ep))
	}
	return out
}

func fromVideoInfo(info catalog.VideoInfo) VideoInfo {
	return VideoInfo{
		DurationSeconds: info.DurationSeconds,
		Width:           info.Width,
		Height:          info.Height,
		Resolution:      info.Resolution(),
		FrameRate:       info.FrameRate,
		BitRate:         info.BitRate,
		VideoCodec:      info.VideoCodec,
		AudioCodec:      info.AudioCodec,
		AudioChannels:   info.AudioChannels,
		AudioSampleRate: info.AudioSampleRate,
		FormatName:      info.FormatName,
	}
}

// FromThumbnails converts stored thumbnails.
func FromThumbnails(thumbs []catalog.Thumbnail) []Thumbnail {
	out := make([]Thumbnail, 0, len(thumbs))
	for _, thumb := range thumbs {
		out = append(out, Thumbnail{
			Index:     thumb.Index,
			Timestamp: thumb.Timestamp,
			Path:      thumb.Path,
			URI:       thumb.URI,
			Width:     thumb.Width,
			Height:    thumb.Height,
			SizeBytes: thumb.SizeBytes,
			Format:    thumb.Format,
		})
	}
	return out
}

// FromSegments converts stored segments, dropping the vectors.
func FromSegments(segments []catalog.Segment) []Segment {
	out := make([]Segment, 0, len(segments))
	for _, seg := range segments {
		out = append(out, Segment{
			ID:             seg.ID,
			Index:          seg.Index,
			Start:          seg.Start,
			End:            seg.End,
			Text:           seg.Text,
			EmbeddingModel: seg.EmbeddingModel,
			Dimensions:     len(seg.Embedding),
		})
	}
	return out
}

// FromEpisodeDetail assembles the detail payload for one episode.
func FromEpisodeDetail(ep *catalog.Episode, thumbs []catalog.Thumbnail, segments []catalog.Segment) EpisodeDetailResponse {
	return EpisodeDetailResponse{
		Episode:    FromEpisode(ep),
		Thumbnails: FromThumbnails(thumbs),
		Segments:   FromSegments(segments),
		Transcript: TranscriptText(segments),
	}
}

// TranscriptText joins the stored segment texts in order.
func TranscriptText(segments []catalog.Segment) string {
	clean := make([]transcript.CleanSegment, 0, len(segments))
	for _, seg := range segments {
		clean = append(clean, transcript.CleanSegment{Index: seg.Index, Start: seg.Start, End: seg.End, Text: seg.Text})
	}
	return transcript.FullText(clean)
}

// FromMatches converts search results. Similarity is omitted for keyword
// matches.
func FromMatches(matches []search.Match, scored bool) []SearchMatch {
	out := make([]SearchMatch, 0, len(matches))
	for _, match := range matches {
		dto := SearchMatch{
			SegmentID:    match.SegmentID,
			EpisodeID:    match.EpisodeID,
			EpisodeTitle: match.EpisodeTitle,
			Start:        match.Start,
			End:          match.End,
			Text:         match.Text,
		}
		if scored {
			score := match.Similarity
			dto.Similarity = &score
		}
		out = append(out, dto)
	}
	return out
}

// FromReport converts a workflow report for the processed episode.
func FromReport(ep *catalog.Episode, report workflow.Report) ProcessResponse {
	return ProcessResponse{
		Episode:           FromEpisode(ep),
		RequestID:         report.RequestID,
		Thumbnails:        report.Thumbnails,
		ThumbnailFailures: report.ThumbnailFailures,
		Segments:          report.Segments,
		EmbeddingModel:    report.EmbeddingModel,
		ElapsedMS:         report.Elapsed.Milliseconds(),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
