package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivechat/drivechat/internal/snapshot"
)

func rec(id string, v ...float32) snapshot.Record {
	return snapshot.Record{
		FileID:   id,
		FileName: id + ".txt",
		Content:  "content of " + id,
		Vector:   v,
		MimeType: "text/plain",
	}
}

// TestSearchRanksDescending tests descending sort by similarity.
func TestSearchRanksDescending(t *testing.T) {
	records := []snapshot.Record{
		rec("orthogonal", 0, 1),
		rec("identical", 1, 0),
		rec("close", 1, 0.2),
	}

	res := Search(records, []float32{1, 0}, Options{})

	require.Len(t, res.Matches, 3)
	assert.Equal(t, "identical", res.Matches[0].Record.FileID)
	assert.Equal(t, "close", res.Matches[1].Record.FileID)
	assert.Equal(t, "orthogonal", res.Matches[2].Record.FileID)
	for i := 1; i < len(res.Matches); i++ {
		assert.GreaterOrEqual(t, res.Matches[i-1].Score, res.Matches[i].Score)
	}
}

// TestSearchEmptyInput tests that an empty record set is a valid call.
func TestSearchEmptyInput(t *testing.T) {
	res := Search(nil, []float32{1, 0}, Options{})

	assert.Empty(t, res.Matches)
	assert.Equal(t, 0, res.TotalMatches)
}

// TestSearchThresholdSubset tests that a thresholded search returns a
// subset of the unthresholded one, filtered by score.
func TestSearchThresholdSubset(t *testing.T) {
	records := []snapshot.Record{
		rec("a", 1, 0),
		rec("b", 1, 0.5),
		rec("c", 0, 1),
		rec("d", -1, 0),
	}
	query := []float32{1, 0}

	all := Search(records, query, Options{})

	for _, threshold := range []float64{-1, 0, 0.5, 0.8, 0.99} {
		filtered := Search(records, query, Options{MinScore: threshold})

		var want []Match
		for _, m := range all.Matches {
			if m.Score >= threshold {
				want = append(want, m)
			}
		}
		assert.Equal(t, len(want), len(filtered.Matches), "threshold %v", threshold)
		for i := range filtered.Matches {
			assert.Equal(t, want[i].Record.FileID, filtered.Matches[i].Record.FileID)
			assert.GreaterOrEqual(t, filtered.Matches[i].Score, threshold)
		}
	}
}

// TestSearchLimit tests limit truncation and TotalMatches reporting.
func TestSearchLimit(t *testing.T) {
	records := []snapshot.Record{
		rec("a", 1, 0),
		rec("b", 1, 0.1),
		rec("c", 1, 0.5),
		rec("d", 1, 2),
	}

	res := Search(records, []float32{1, 0}, Options{Limit: 2})

	assert.Len(t, res.Matches, 2)
	// TotalMatches reports the pre-limit count.
	assert.Equal(t, 4, res.TotalMatches)
}

// TestSearchSkipsCorruptRecords tests that unusable vectors are excluded
// without failing the search.
func TestSearchSkipsCorruptRecords(t *testing.T) {
	records := []snapshot.Record{
		rec("good", 1, 0),
		rec("zero", 0, 0),
		rec("wrong-dim", 1, 0, 0),
	}

	res := Search(records, []float32{1, 0}, Options{})

	require.Len(t, res.Matches, 1)
	assert.Equal(t, "good", res.Matches[0].Record.FileID)
}

// TestSearchStableTieBreak tests equal scores keep input order.
func TestSearchStableTieBreak(t *testing.T) {
	records := []snapshot.Record{
		rec("first", 2, 0),
		rec("second", 5, 0),
		rec("third", 1, 0),
	}

	res := Search(records, []float32{1, 0}, Options{})

	require.Len(t, res.Matches, 3)
	assert.Equal(t, "first", res.Matches[0].Record.FileID)
	assert.Equal(t, "second", res.Matches[1].Record.FileID)
	assert.Equal(t, "third", res.Matches[2].Record.FileID)
}

// TestBandFor tests relevance band boundaries, inclusive on the low end.
func TestBandFor(t *testing.T) {
	tests := []struct {
		score float64
		want  Band
	}{
		{1.0, BandHigh},
		{0.8, BandHigh},
		{0.79, BandMedium},
		{0.6, BandMedium},
		{0.59, BandLow},
		{0.0, BandLow},
		{-1.0, BandLow},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, BandFor(tt.score), "score %v", tt.score)
	}
}
