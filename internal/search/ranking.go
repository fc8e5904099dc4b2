// Package search finds the best catalog source for a track by running
// tiered yt-dlp searches and ranking the results by upload channel
// quality.
package search

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hasod/hasod-go/internal/monitoring"
	"github.com/hasod/hasod-go/internal/ytdlp"
)

// Tier ranks how trustworthy a search result is as an audio source.
// Higher is better.
type Tier int

const (
	TierRegular Tier = iota
	TierOfficialAudio
	TierVEVO
	TierTopic
)

// String returns the tier name for logging and metrics
func (t Tier) String() string {
	switch t {
	case TierTopic:
		return "topic"
	case TierVEVO:
		return "vevo"
	case TierOfficialAudio:
		return "official_audio"
	default:
		return "regular"
	}
}

const resultsPerQuery = 5

// Classify assigns a quality tier to a search result.
//
// Auto-generated "Artist - Topic" channels carry the label's own audio
// and rank highest; VEVO channels next; anything marked as official
// audio after that.
func Classify(e ytdlp.SearchEntry) Tier {
	switch {
	case strings.HasSuffix(e.Uploader, " - Topic"):
		return TierTopic
	case strings.Contains(e.Uploader, "VEVO"):
		return TierVEVO
	case strings.Contains(strings.ToLower(e.Title), "official audio"),
		strings.Contains(strings.ToLower(e.Title), "official music"),
		strings.Contains(e.Description, "Provided to YouTube"):
		return TierOfficialAudio
	default:
		return TierRegular
	}
}

// Searcher abstracts the yt-dlp search call
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]ytdlp.SearchEntry, error)
}

// ProgressFunc is notified before each search query runs
type ProgressFunc func(query string, index, total int)

// Ranker runs the multi-query ranking search
type Ranker struct {
	searcher Searcher
	logger   *zap.Logger
}

// NewRanker creates a ranker over the given searcher
func NewRanker(searcher Searcher, logger *zap.Logger) *Ranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ranker{searcher: searcher, logger: logger}
}

// FindBestSource searches the catalog for the best source URL for a
// track. It issues up to three queries in priority order and returns
// as soon as a Topic channel result appears; a VEVO result stops
// further queries but lets the current batch finish. When nothing
// classifiable is found it returns a synthetic single-result search
// URL so the downloader still has something to fetch.
func (r *Ranker) FindBestSource(ctx context.Context, artist, title string, progress ProgressFunc) (string, Tier) {
	queries := []string{
		fmt.Sprintf("%s %s topic", artist, title),
		fmt.Sprintf("%s %s official audio", artist, title),
		fmt.Sprintf("%s %s", artist, title),
	}

	var bestURL string
	bestTier := Tier(-1)

	for idx, query := range queries {
		if progress != nil {
			progress(query, idx+1, len(queries))
		}
		r.logger.Debug("running catalog search",
			zap.String("query", query),
			zap.Int("attempt", idx+1))

		entries, err := r.searcher.Search(ctx, query, resultsPerQuery)
		if err != nil {
			r.logger.Warn("catalog search failed",
				zap.String("query", query),
				zap.Error(err))
			continue
		}

		for _, entry := range entries {
			tier := Classify(entry)
			r.logger.Debug("search candidate",
				zap.String("title", entry.Title),
				zap.String("uploader", entry.Uploader),
				zap.String("tier", tier.String()))

			if tier <= bestTier {
				continue
			}
			if tier == TierTopic {
				monitoring.RecordSearchTier(tier.String())
				return entry.URL, tier
			}
			bestURL = entry.URL
			bestTier = tier
		}

		if bestTier == TierVEVO {
			break
		}
	}

	if bestURL == "" {
		monitoring.RecordSearchTier("fallback")
		return fmt.Sprintf("ytsearch1:%s %s", artist, title), TierRegular
	}
	monitoring.RecordSearchTier(bestTier.String())
	return bestURL, bestTier
}
