// Package search ranks snapshot records against a query vector.
package search

import (
	"sort"
	"time"

	"github.com/charmbracelet/log"

	"github.com/drivechat/drivechat/internal/snapshot"
	"github.com/drivechat/drivechat/internal/vector"
)

// Band is the coarse relevance bucket for a match.
type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// Band thresholds, inclusive on the lower end.
const (
	highThreshold   = 0.8
	mediumThreshold = 0.6
)

// Match is one record scored against the query.
type Match struct {
	Record snapshot.Record `json:"record"`
	Score  float64         `json:"score"`
	Band   Band            `json:"band"`
}

// Results holds the ranked matches for one query.
type Results struct {
	// Matches is ordered most similar first.
	Matches []Match `json:"matches"`

	// TotalMatches counts matches above the threshold before the limit
	// was applied, so callers know how many exist beyond what was returned.
	TotalMatches int `json:"totalMatches"`

	// Elapsed is the time spent ranking.
	Elapsed time.Duration `json:"elapsed"`
}

// Options configures a search.
type Options struct {
	// Limit caps the number of returned matches. 0 means unlimited.
	Limit int

	// MinScore filters matches below this similarity score.
	MinScore float64
}

// Search scores every record against the query vector and returns matches
// at or above MinScore, most similar first. Records whose vector cannot be
// compared (wrong dimension, zero magnitude) are skipped rather than
// failing the whole search: one corrupt record must not abort retrieval.
func Search(records []snapshot.Record, query []float32, opts Options) Results {
	start := time.Now()

	matches := make([]Match, 0, len(records))
	for _, rec := range records {
		score, err := vector.CosineSimilarity(rec.Vector, query)
		if err != nil {
			log.Debug("Skipping record with unusable vector", "fileId", rec.FileID, "error", err)
			continue
		}
		if score < opts.MinScore {
			continue
		}
		matches = append(matches, Match{
			Record: rec,
			Score:  score,
			Band:   BandFor(score),
		})
	}

	// Stable sort keeps equal-similarity matches in input order, which is
	// the documented tie-break.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	total := len(matches)
	if opts.Limit > 0 && len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}

	return Results{
		Matches:      matches,
		TotalMatches: total,
		Elapsed:      time.Since(start),
	}
}

// BandFor maps a similarity score to its relevance band.
func BandFor(score float64) Band {
	switch {
	case score >= highThreshold:
		return BandHigh
	case score >= mediumThreshold:
		return BandMedium
	default:
		return BandLow
	}
}
