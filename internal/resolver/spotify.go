package resolver

import (
	"context"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hasod/hasod-go/internal/api"
	"github.com/hasod/hasod-go/internal/decryption"
	apperrors "github.com/hasod/hasod-go/internal/errors"
	"github.com/hasod/hasod-go/internal/monitoring"
	"github.com/hasod/hasod-go/internal/organize"
	"github.com/hasod/hasod-go/internal/queue"
	"github.com/hasod/hasod-go/internal/search"
)

// SpotifyBackend is the slice of the backend client the Spotify chain
// needs.
type SpotifyBackend interface {
	HasToken() bool
	GetSpotifyTrackMetadata(ctx context.Context, spotifyURL string) (*api.SpotifyTrackMetadata, error)
	GetDeezerDownload(ctx context.Context, isrc string) (*api.DeezerDownload, error)
	FetchFile(ctx context.Context, url string) ([]byte, error)
}

// SourceFinder is the ranking search used by the fallback branch.
type SourceFinder interface {
	FindBestSource(ctx context.Context, artist, title string, progress search.ProgressFunc) (string, search.Tier)
}

// SpotifyResolver resolves Spotify track URLs. The chain is: backend
// metadata lookup, then a direct provider download (fetch encrypted
// bytes by ISRC, decrypt, write to the organized path), then the
// catalog ranking search when the direct path is unavailable or fails.
type SpotifyResolver struct {
	backend   SpotifyBackend
	finder    SourceFinder
	organizer *organize.Organizer
	logger    *zap.Logger
}

// NewSpotifyResolver creates the Spotify resolver.
func NewSpotifyResolver(backend SpotifyBackend, finder SourceFinder, organizer *organize.Organizer, logger *zap.Logger) *SpotifyResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SpotifyResolver{
		backend:   backend,
		finder:    finder,
		organizer: organizer,
		logger:    logger,
	}
}

// Resolve implements Resolver.
func (r *SpotifyResolver) Resolve(ctx context.Context, job *queue.DownloadJob, report ReportFunc) (*Resolution, error) {
	lower := strings.ToLower(job.URL)
	switch {
	case strings.Contains(lower, "/artist/"):
		return nil, apperrors.NewUnsupportedError("artist pages cannot be downloaded, submit a track URL")
	case strings.Contains(lower, "/album/"):
		return nil, apperrors.NewUnsupportedError("album URLs must be enqueued through the album operation")
	case strings.Contains(lower, "/playlist/"):
		return nil, apperrors.NewUnsupportedError("playlist URLs must be enqueued through the playlist operation")
	}

	report(5, "Resolving track metadata...")

	trackMeta, err := r.backend.GetSpotifyTrackMetadata(ctx, job.URL)
	if err != nil {
		return nil, err
	}

	meta := queue.TrackMetadata{
		Title:     trackMeta.Name,
		Artist:    trackMeta.Artist,
		Album:     trackMeta.Album,
		Duration:  trackMeta.DurationMS / 1000,
		Thumbnail: trackMeta.ImageURL,
		ISRC:      trackMeta.ISRC,
	}

	if r.backend.HasToken() && meta.ISRC != "" {
		outputPath, directErr := r.tryDirect(ctx, meta, job.Context, report)
		if directErr == nil {
			return &Resolution{Metadata: meta, OutputPath: outputPath}, nil
		}
		if !apperrors.IsContinuable(directErr) {
			return nil, directErr
		}
		r.logger.Warn("direct download failed, falling back to catalog search",
			zap.String("isrc", meta.ISRC),
			zap.Error(directErr))
		monitoring.RecordResolverFallback(string(queue.ServiceSpotify), "direct")
	} else {
		monitoring.RecordResolverFallback(string(queue.ServiceSpotify), "no_token")
	}

	report(10, "Searching for best source...")

	sourceURL, tier := r.finder.FindBestSource(ctx, meta.Artist, meta.Title, func(query string, index, total int) {
		report(10, "Searching for best source...")
		r.logger.Debug("catalog search query",
			zap.String("query", query),
			zap.Int("index", index),
			zap.Int("total", total))
	})

	r.logger.Info("resolved via catalog search",
		zap.String("title", meta.Title),
		zap.String("tier", tier.String()))

	return &Resolution{Metadata: meta, SourceURL: sourceURL}, nil
}

// tryDirect runs the direct provider branch: key issuance, encrypted
// fetch, decryption, write. Filesystem errors are fatal; everything
// else is continuable and lets the caller fall back.
func (r *SpotifyResolver) tryDirect(ctx context.Context, meta queue.TrackMetadata, dctx *queue.DownloadContext, report ReportFunc) (string, error) {
	report(10, "Requesting direct download...")

	dl, err := r.backend.GetDeezerDownload(ctx, meta.ISRC)
	if err != nil {
		return "", err
	}

	report(15, "Downloading from provider...")

	encrypted, err := r.backend.FetchFile(ctx, dl.DownloadURL)
	if err != nil {
		return "", err
	}

	report(80, "Decrypting...")

	start := time.Now()
	decrypted, err := decryption.DecryptPartial(encrypted, dl.DecryptionKey)
	if err != nil {
		return "", apperrors.NewDecryptionError("failed to decrypt track", err)
	}
	monitoring.RecordDecryption(time.Since(start))

	report(90, "Saving file...")

	// The issuance endpoint reports the delivered format; everything
	// except FLAC arrives as MP3.
	ext := ".mp3"
	if strings.EqualFold(dl.Quality, "FLAC") {
		ext = ".flac"
	}

	outputPath, err := r.organizer.OutputPath(meta, dctx, ext)
	if err != nil {
		return "", apperrors.NewFileSystemError("failed to prepare output directory", err)
	}
	if err := os.WriteFile(outputPath, decrypted, 0644); err != nil {
		return "", apperrors.NewFileSystemError("failed to write decrypted file", err)
	}

	r.logger.Info("direct download complete",
		zap.String("path", outputPath),
		zap.String("quality", dl.Quality))

	return outputPath, nil
}
