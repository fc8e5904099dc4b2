package resolver

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/hasod/hasod-go/internal/api"
	apperrors "github.com/hasod/hasod-go/internal/errors"
	"github.com/hasod/hasod-go/internal/queue"
)

// CatalogLookup is the public track lookup the Apple Music chain uses.
type CatalogLookup interface {
	LookupTrack(ctx context.Context, trackID string) (*api.ITunesTrack, error)
}

// AppleMusicResolver resolves Apple Music track URLs. There is no
// direct audio source for this service, so after the catalog lookup it
// always continues to the ranking search.
type AppleMusicResolver struct {
	lookup CatalogLookup
	finder SourceFinder
	logger *zap.Logger
}

// NewAppleMusicResolver creates the Apple Music resolver.
func NewAppleMusicResolver(lookup CatalogLookup, finder SourceFinder, logger *zap.Logger) *AppleMusicResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AppleMusicResolver{
		lookup: lookup,
		finder: finder,
		logger: logger,
	}
}

// Resolve implements Resolver.
func (r *AppleMusicResolver) Resolve(ctx context.Context, job *queue.DownloadJob, report ReportFunc) (*Resolution, error) {
	lower := strings.ToLower(job.URL)
	if strings.Contains(lower, "/playlist/") {
		return nil, apperrors.NewUnsupportedError("Apple Music playlists cannot be downloaded")
	}

	trackID := ExtractAppleMusicTrackID(job.URL)
	if trackID == "" {
		if strings.Contains(lower, "/artist/") {
			return nil, apperrors.NewUnsupportedError("artist pages cannot be downloaded, submit a track URL")
		}
		return nil, apperrors.NewUnsupportedError("could not find a track ID in the Apple Music URL")
	}

	report(5, "Looking up track...")

	track, err := r.lookup.LookupTrack(ctx, trackID)
	if err != nil {
		return nil, err
	}

	meta := queue.TrackMetadata{
		Title:     track.TrackName,
		Artist:    track.ArtistName,
		Album:     track.CollectionName,
		Duration:  track.TrackTimeMillis / 1000,
		Thumbnail: UpscaleArtworkURL(track.ArtworkURL100),
	}

	report(10, "Searching for best source...")

	sourceURL, tier := r.finder.FindBestSource(ctx, meta.Artist, meta.Title, nil)

	r.logger.Info("resolved via catalog search",
		zap.String("title", meta.Title),
		zap.String("tier", tier.String()))

	return &Resolution{Metadata: meta, SourceURL: sourceURL}, nil
}

// ExtractAppleMusicTrackID pulls the numeric track id out of either
// Apple Music URL shape: the ?i= query parameter on album URLs, or a
// /song/<id> path segment.
func ExtractAppleMusicTrackID(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if id := u.Query().Get("i"); id != "" {
			return id
		}
	}

	if idx := strings.Index(rawURL, "/song/"); idx >= 0 {
		rest := rawURL[idx+len("/song/"):]
		// /song/song-name/1234567890 puts the id in the last segment
		segments := strings.Split(strings.TrimSuffix(rest, "/"), "/")
		last := segments[len(segments)-1]
		if q := strings.IndexByte(last, '?'); q >= 0 {
			last = last[:q]
		}
		if isDigits(last) {
			return last
		}
	}

	return ""
}

// UpscaleArtworkURL swaps the lookup API's 100x100 thumbnail for the
// 600x600 rendition the CDN also serves.
func UpscaleArtworkURL(artworkURL string) string {
	return strings.Replace(artworkURL, "100x100", "600x600", 1)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
