package search

import (
	"fmt"
	"math"
	"sort"
)

const (
	DefaultThreshold = 0.7
	DefaultLimit     = 10
)

// Candidate is a stored segment with its embedding.
type Candidate struct {
	SegmentID    string    `json:"segment_id"`
	EpisodeID    string    `json:"episode_id"`
	EpisodeTitle string    `json:"episode_title,omitempty"`
	Start        float64   `json:"start"`
	End          float64   `json:"end"`
	Text         string    `json:"text"`
	Embedding    []float32 `json:"-"`
}

// Match is a candidate scored against a query.
type Match struct {
	Candidate
	Similarity float64 `json:"similarity"`
}

// Cosine returns dot(a,b)/(|a||b|), or 0 when either vector has zero norm.
// Vectors of different length are a programming error and panic.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		panic(fmt.Sprintf("search: cosine of vectors with different dimensions (%d vs %d)", len(a), len(b)))
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Rank scores candidates against query, keeps those at or above threshold,
// and returns at most limit matches by descending similarity. Equal scores
// keep candidate order. A non-positive limit uses DefaultLimit.
func Rank(query []float32, candidates []Candidate, threshold float64, limit int) []Match {
	if limit <= 0 {
		limit = DefaultLimit
	}
	matches := make([]Match, 0, min(len(candidates), limit))
	for _, candidate := range candidates {
		score := Cosine(query, candidate.Embedding)
		if score >= threshold {
			matches = append(matches, Match{Candidate: candidate, Similarity: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
