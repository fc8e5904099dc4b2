package resolver

import (
	"context"

	"go.uber.org/zap"

	"github.com/hasod/hasod-go/internal/queue"
	"github.com/hasod/hasod-go/internal/ytdlp"
)

// MetadataDumper is the metadata-only invocation of the download tool.
type MetadataDumper interface {
	DumpMetadata(ctx context.Context, url string) (ytdlp.Metadata, error)
}

// MediaResolver handles services whose URL is itself the download
// source: YouTube, SoundCloud and Bandcamp. It only needs a metadata
// dump before the generic download runs.
type MediaResolver struct {
	dumper MetadataDumper
	logger *zap.Logger
}

// NewMediaResolver creates a resolver for direct-source services.
func NewMediaResolver(dumper MetadataDumper, logger *zap.Logger) *MediaResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaResolver{dumper: dumper, logger: logger}
}

// Resolve implements Resolver.
func (r *MediaResolver) Resolve(ctx context.Context, job *queue.DownloadJob, report ReportFunc) (*Resolution, error) {
	report(2, "Fetching metadata...")

	meta, err := r.dumper.DumpMetadata(ctx, job.URL)
	if err != nil {
		return nil, err
	}

	meta.InferArtistFromTitle()

	r.logger.Debug("media metadata resolved",
		zap.String("title", meta.Title),
		zap.String("artist", meta.Artist))

	return &Resolution{
		Metadata: queue.TrackMetadata{
			Title:     meta.Title,
			Artist:    meta.Artist,
			Album:     meta.Album,
			Duration:  meta.Duration,
			Thumbnail: meta.Thumbnail,
		},
		SourceURL: job.URL,
	}, nil
}
