package download

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hasod/hasod-go/internal/api"
	"github.com/hasod/hasod-go/internal/monitoring"
	"github.com/hasod/hasod-go/internal/queue"
)

// AlbumSource expands Spotify album and playlist URLs into their
// track lists.
type AlbumSource interface {
	GetSpotifyAlbumMetadata(ctx context.Context, albumURL string) (*api.SpotifyAlbumMetadata, error)
	GetSpotifyPlaylistMetadata(ctx context.Context, playlistURL string) (*api.SpotifyPlaylistMetadata, error)
}

// PlaylistEnumerator expands a media playlist URL into entry URLs
type PlaylistEnumerator interface {
	EnumeratePlaylist(ctx context.Context, playlistURL string) (string, []string, error)
}

// Service is the engine facade: enqueue operations, queue management
// and the processing trigger live here.
type Service struct {
	queue      *queue.Queue
	processor  *Processor
	notifier   *Notifier
	albums     AlbumSource        // may be nil
	enumerator PlaylistEnumerator // may be nil
	logger     *zap.Logger
}

// NewService wires the facade. albums and enumerator may be nil when
// the corresponding bulk enqueue operations are not needed.
func NewService(
	q *queue.Queue,
	processor *Processor,
	notifier *Notifier,
	albums AlbumSource,
	enumerator PlaylistEnumerator,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		queue:      q,
		processor:  processor,
		notifier:   notifier,
		albums:     albums,
		enumerator: enumerator,
		logger:     logger,
	}
}

// EnqueueURL adds a single URL to the queue
func (s *Service) EnqueueURL(url string) queue.DownloadJob {
	job := s.queue.Add(url)
	monitoring.UpdateQueueSize(s.queue.QueuedCount())
	s.notifier.PublishSnapshot(s.queue.Snapshot())
	return *job
}

// EnqueueURLs adds several URLs preserving order
func (s *Service) EnqueueURLs(urls []string) []queue.DownloadJob {
	jobs := s.queue.AddAll(urls)
	monitoring.UpdateQueueSize(s.queue.QueuedCount())
	s.notifier.PublishSnapshot(s.queue.Snapshot())
	return jobs
}

// EnqueueSpotifyAlbum expands an album URL into one pre-populated job
// per track. Every job shares the album context so the organizer
// groups the files into one folder.
func (s *Service) EnqueueSpotifyAlbum(ctx context.Context, albumURL string) (int, error) {
	if s.albums == nil {
		return 0, fmt.Errorf("no album source configured")
	}

	album, err := s.albums.GetSpotifyAlbumMetadata(ctx, albumURL)
	if err != nil {
		return 0, err
	}

	dctx := &queue.DownloadContext{Kind: queue.ContextAlbum, Name: album.Album.Name}
	s.enqueueTracks(album.Tracks, dctx)

	s.logger.Info("album enqueued",
		zap.String("album", album.Album.Name),
		zap.Int("tracks", len(album.Tracks)))
	return len(album.Tracks), nil
}

// EnqueueSpotifyPlaylist expands a playlist URL into one job per track
func (s *Service) EnqueueSpotifyPlaylist(ctx context.Context, playlistURL string) (int, error) {
	if s.albums == nil {
		return 0, fmt.Errorf("no album source configured")
	}

	playlist, err := s.albums.GetSpotifyPlaylistMetadata(ctx, playlistURL)
	if err != nil {
		return 0, err
	}

	dctx := &queue.DownloadContext{Kind: queue.ContextPlaylist, Name: playlist.Playlist.Name}
	s.enqueueTracks(playlist.Tracks, dctx)

	s.logger.Info("playlist enqueued",
		zap.String("playlist", playlist.Playlist.Name),
		zap.Int("tracks", len(playlist.Tracks)))
	return len(playlist.Tracks), nil
}

func (s *Service) enqueueTracks(tracks []api.AlbumTrack, dctx *queue.DownloadContext) {
	for _, track := range tracks {
		job := queue.NewJob("https://open.spotify.com/track/" + track.TrackID)
		job.Metadata = queue.TrackMetadata{
			Title:     track.Name,
			Artist:    track.Artists,
			Album:     track.Album,
			Duration:  track.DurationMS / 1000,
			Thumbnail: track.ImageURL,
		}
		job.Context = dctx
		s.queue.AddJob(job)
	}
	monitoring.UpdateQueueSize(s.queue.QueuedCount())
	s.notifier.PublishSnapshot(s.queue.Snapshot())
}

// EnqueueMediaPlaylist expands a YouTube or SoundCloud playlist into
// one job per entry, all sharing the playlist context.
func (s *Service) EnqueueMediaPlaylist(ctx context.Context, playlistURL string) (int, error) {
	if s.enumerator == nil {
		return 0, fmt.Errorf("no playlist enumerator configured")
	}

	name, urls, err := s.enumerator.EnumeratePlaylist(ctx, playlistURL)
	if err != nil {
		return 0, err
	}

	dctx := &queue.DownloadContext{Kind: queue.ContextPlaylist, Name: name}
	for _, url := range urls {
		job := queue.NewJob(url)
		job.Context = dctx
		s.queue.AddJob(job)
	}
	monitoring.UpdateQueueSize(s.queue.QueuedCount())
	s.notifier.PublishSnapshot(s.queue.Snapshot())

	s.logger.Info("media playlist enqueued",
		zap.String("playlist", name),
		zap.Int("entries", len(urls)))
	return len(urls), nil
}

// Start launches the processing loop if one is not already running.
// It returns false when a loop is already active.
func (s *Service) Start(ctx context.Context) bool {
	if !s.queue.TryBeginProcessing() {
		return false
	}

	monitoring.SetProcessing(true)

	go func() {
		defer func() {
			s.queue.EndProcessing()
			monitoring.SetProcessing(false)
			s.notifier.PublishSnapshot(s.queue.Snapshot())
		}()

		n := s.processor.Run(ctx)
		s.logger.Info("processing loop finished", zap.Int("jobs", n))
	}()

	return true
}

// Snapshot returns the current queue state
func (s *Service) Snapshot() queue.Snapshot {
	return s.queue.Snapshot()
}

// Remove deletes a job from the queue
func (s *Service) Remove(jobID string) bool {
	removed := s.queue.Remove(jobID)
	if removed {
		s.notifier.PublishSnapshot(s.queue.Snapshot())
	}
	return removed
}

// ClearCompleted removes finished and failed jobs
func (s *Service) ClearCompleted() int {
	n := s.queue.ClearCompleted()
	if n > 0 {
		s.notifier.PublishSnapshot(s.queue.Snapshot())
	}
	return n
}

// ClearAll empties the queue
func (s *Service) ClearAll() int {
	n := s.queue.ClearAll()
	if n > 0 {
		s.notifier.PublishSnapshot(s.queue.Snapshot())
	}
	return n
}

// SubscribeSnapshots exposes the notifier's snapshot stream
func (s *Service) SubscribeSnapshots() <-chan queue.Snapshot {
	return s.notifier.SubscribeSnapshots()
}

// SetPanelCallback installs the compact progress callback
func (s *Service) SetPanelCallback(fn func(PanelUpdate)) {
	s.notifier.SetPanelCallback(fn)
}
