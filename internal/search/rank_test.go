package search_test

import (
	"fmt"
	"math"
	"testing"

	"episodedb/internal/search"
)

func TestCosineProperties(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0},
		{0.5, -0.25, 2},
		{-3, 4, 0.1},
		{0.001, 0.002, 0.003},
	}
	for i, a := range vectors {
		if self := search.Cosine(a, a); math.Abs(self-1) > 1e-9 {
			t.Fatalf("cosine(v%d, v%d) = %v, want 1", i, i, self)
		}
		for j, b := range vectors {
			ab := search.Cosine(a, b)
			ba := search.Cosine(b, a)
			if ab != ba {
				t.Fatalf("cosine not symmetric for v%d/v%d: %v vs %v", i, j, ab, ba)
			}
			if ab < -1-1e-9 || ab > 1+1e-9 {
				t.Fatalf("cosine(v%d, v%d) = %v outside [-1, 1]", i, j, ab)
			}
		}
	}
}

func TestCosineKnownValues(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 2}, []float32{-1, -2}, -1},
		{"scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 1},
		{"zero query", []float32{0, 0, 0}, []float32{1, 2, 3}, 0},
		{"zero candidate", []float32{1, 2, 3}, []float32{0, 0, 0}, 0},
		{"both zero", []float32{0, 0}, []float32{0, 0}, 0},
		{"empty", []float32{}, []float32{}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := search.Cosine(tc.a, tc.b)
			if math.IsNaN(got) {
				t.Fatalf("cosine returned NaN")
			}
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("cosine = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCosinePanicsOnDimensionMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for mismatched dimensions")
		}
	}()
	search.Cosine([]float32{1, 2}, []float32{1, 2, 3})
}

// unitAt returns a 2-d unit vector whose cosine with (1, 0) is score.
func unitAt(score float64) []float32 {
	return []float32{float32(score), float32(math.Sqrt(1 - score*score))}
}

func TestRankKeepsOnlyQualifyingMatches(t *testing.T) {
	query := []float32{1, 0}
	scores := []float64{0.1, 0.95, 0.3, 0.5, 0.92, 0.0, 0.89, 0.2, 0.7, 0.4}
	candidates := make([]search.Candidate, 0, len(scores))
	for i, score := range scores {
		candidates = append(candidates, search.Candidate{
			SegmentID: fmt.Sprintf("seg-%d", i),
			Embedding: unitAt(score),
		})
	}

	matches := search.Rank(query, candidates, 0.9, 5)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d: %+v", len(matches), matches)
	}
	if matches[0].SegmentID != "seg-1" || matches[1].SegmentID != "seg-4" {
		t.Fatalf("unexpected order: %s, %s", matches[0].SegmentID, matches[1].SegmentID)
	}
	if matches[0].Similarity < matches[1].Similarity {
		t.Fatalf("matches not sorted descending: %v < %v", matches[0].Similarity, matches[1].Similarity)
	}
}

func TestRankHonorsLimitAndOrdering(t *testing.T) {
	query := []float32{1, 0}
	candidates := make([]search.Candidate, 0, 20)
	for i := range 20 {
		candidates = append(candidates, search.Candidate{
			SegmentID: fmt.Sprintf("seg-%02d", i),
			Embedding: unitAt(float64(i) / 20),
		})
	}

	matches := search.Rank(query, candidates, 0.25, 4)
	if len(matches) != 4 {
		t.Fatalf("expected 4 matches, got %d", len(matches))
	}
	want := []string{"seg-19", "seg-18", "seg-17", "seg-16"}
	for i, match := range matches {
		if match.SegmentID != want[i] {
			t.Fatalf("match %d = %s, want %s", i, match.SegmentID, want[i])
		}
		if match.Similarity < 0.25 {
			t.Fatalf("match %d below threshold: %v", i, match.Similarity)
		}
	}
}

func TestRankDefaultsLimitAndKeepsTieOrder(t *testing.T) {
	query := []float32{1, 1}
	candidates := make([]search.Candidate, 0, 15)
	for i := range 15 {
		candidates = append(candidates, search.Candidate{
			SegmentID: fmt.Sprintf("tie-%02d", i),
			Embedding: []float32{2, 2},
		})
	}

	matches := search.Rank(query, candidates, search.DefaultThreshold, 0)
	if len(matches) != search.DefaultLimit {
		t.Fatalf("expected default limit %d, got %d", search.DefaultLimit, len(matches))
	}
	for i, match := range matches {
		if want := fmt.Sprintf("tie-%02d", i); match.SegmentID != want {
			t.Fatalf("tie order changed at %d: %s, want %s", i, match.SegmentID, want)
		}
	}
}

func TestRankEmptyCandidates(t *testing.T) {
	matches := search.Rank([]float32{1}, nil, 0.5, 3)
	if matches == nil || len(matches) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", matches)
	}
}
