package download

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/hasod/hasod-go/internal/errors"
	"github.com/hasod/hasod-go/internal/metadata"
	"github.com/hasod/hasod-go/internal/monitoring"
	"github.com/hasod/hasod-go/internal/organize"
	"github.com/hasod/hasod-go/internal/queue"
	"github.com/hasod/hasod-go/internal/resolver"
	"github.com/hasod/hasod-go/internal/store"
	"github.com/hasod/hasod-go/internal/ytdlp"
)

// Downloader runs the actual media download for a resolved source URL
type Downloader interface {
	Download(ctx context.Context, url, outputTemplate string, cb ytdlp.DownloadCallbacks) error
}

// ArtworkEmbedder remuxes cover art into a finished audio file. The
// in-process tag writer is the fallback when no embedder is available.
type ArtworkEmbedder interface {
	Available() bool
	EmbedArtwork(ctx context.Context, audioPath, artworkPath string) error
}

// Processor drains the queue one job at a time: resolve, download,
// tag, record. Jobs that fail stay in the queue as Error entries and
// never block the ones behind them.
type Processor struct {
	queue     *queue.Queue
	registry  *resolver.Registry
	organizer *organize.Organizer

	downloader Downloader
	tagger     *metadata.Tagger
	embedder   ArtworkEmbedder
	history    *store.History // may be nil
	notifier   *Notifier
	logger     *zap.Logger
}

// NewProcessor wires a processor. history may be nil when persistence
// is disabled; embedder may be nil when no external tool is configured.
func NewProcessor(
	q *queue.Queue,
	registry *resolver.Registry,
	organizer *organize.Organizer,
	downloader Downloader,
	tagger *metadata.Tagger,
	embedder ArtworkEmbedder,
	history *store.History,
	notifier *Notifier,
	logger *zap.Logger,
) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NewNotifier(logger)
	}
	return &Processor{
		queue:      q,
		registry:   registry,
		organizer:  organizer,
		downloader: downloader,
		tagger:     tagger,
		embedder:   embedder,
		history:    history,
		notifier:   notifier,
		logger:     logger,
	}
}

// Run processes queued jobs in order until the queue is empty or the
// context is cancelled. It returns the number of jobs it handled.
func (p *Processor) Run(ctx context.Context) int {
	processed := 0
	for {
		select {
		case <-ctx.Done():
			return processed
		default:
		}

		jobID, ok := p.queue.NextQueued()
		if !ok {
			return processed
		}

		p.process(ctx, jobID)
		processed++

		monitoring.UpdateQueueSize(p.queue.QueuedCount())
		p.notifier.PublishSnapshot(p.queue.Snapshot())
	}
}

func (p *Processor) process(ctx context.Context, jobID string) {
	job, ok := p.queue.Get(jobID)
	if !ok {
		return
	}

	p.logger.Info("processing job",
		zap.String("job_id", job.ID),
		zap.String("service", string(job.Service)),
		zap.String("url", job.URL))

	p.setProgress(jobID, queue.StatusDownloading, 0, "Starting download...")

	report := func(progress float64, message string) {
		p.setProgress(jobID, queue.StatusDownloading, progress, message)
	}

	res, err := p.registry.For(job.Service).Resolve(ctx, &job, report)
	if err != nil {
		p.fail(jobID, job.Service, err)
		return
	}

	p.queue.UpdateMetadata(jobID, func(j *queue.DownloadJob) {
		j.Metadata = res.Metadata
	})

	outputPath := res.OutputPath
	if outputPath == "" {
		outputPath, err = p.download(ctx, jobID, res, job.Context)
		if err != nil {
			p.fail(jobID, job.Service, err)
			return
		}
	}

	p.finalize(ctx, jobID, res.Metadata, outputPath)
}

// download fetches the resolved source via the generic downloader and
// returns the final file path.
func (p *Processor) download(ctx context.Context, jobID string, res *resolver.Resolution, dctx *queue.DownloadContext) (string, error) {
	outputPath, err := p.organizer.OutputPath(res.Metadata, dctx, ".mp3")
	if err != nil {
		return "", err
	}

	// yt-dlp picks the extension itself; converting to MP3 lands on
	// the path the organizer chose.
	template := strings.TrimSuffix(outputPath, ".mp3") + ".%(ext)s"

	cb := ytdlp.DownloadCallbacks{
		OnProgress: func(pct float64) {
			// Reserve the tail of the bar for conversion and tagging.
			p.setProgress(jobID, queue.StatusDownloading, pct*0.9, "Downloading...")
		},
		OnConverting: func() {
			p.setProgress(jobID, queue.StatusConverting, 92, "Converting to MP3...")
		},
	}

	if err := p.downloader.Download(ctx, res.SourceURL, template, cb); err != nil {
		return "", err
	}
	return outputPath, nil
}

// finalize tags the file, embeds artwork, records history and marks
// the job complete. Tagging problems are logged, not fatal: the audio
// is already on disk.
func (p *Processor) finalize(ctx context.Context, jobID string, meta queue.TrackMetadata, outputPath string) {
	p.setProgress(jobID, queue.StatusConverting, 95, "Writing tags...")

	tag := &metadata.Tag{
		Title:  meta.Title,
		Artist: meta.Artist,
		Album:  meta.Album,
		ISRC:   meta.ISRC,
	}

	var artworkPath string
	if p.tagger != nil && meta.Thumbnail != "" {
		data, mime, err := p.tagger.FetchArtwork(ctx, meta.Thumbnail)
		if err != nil {
			p.logger.Warn("artwork fetch failed",
				zap.String("job_id", jobID),
				zap.Error(err))
		} else if p.embedder != nil && p.embedder.Available() {
			artworkPath = strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".cover.jpg"
			if werr := os.WriteFile(artworkPath, data, 0644); werr != nil {
				p.logger.Warn("artwork temp write failed", zap.Error(werr))
				artworkPath = ""
				tag.ArtworkData = data
				tag.ArtworkMIME = mime
			}
		} else {
			tag.ArtworkData = data
			tag.ArtworkMIME = mime
		}
	}

	if p.tagger != nil {
		if err := p.tagger.Apply(outputPath, tag); err != nil {
			p.logger.Warn("tag write failed",
				zap.String("job_id", jobID),
				zap.String("path", outputPath),
				zap.Error(err))
		}
	}

	if artworkPath != "" {
		if err := p.embedder.EmbedArtwork(ctx, outputPath, artworkPath); err != nil {
			p.logger.Warn("artwork embed failed", zap.Error(err))
		}
		if err := os.Remove(artworkPath); err != nil && !os.IsNotExist(err) {
			p.logger.Debug("artwork temp cleanup failed", zap.Error(err))
		}
	}

	p.recordHistory(jobID, meta, outputPath)

	p.queue.SetOutputPath(jobID, outputPath)
	p.queue.UpdateStatus(jobID, queue.StatusComplete, 100, "Download complete")

	if job, ok := p.queue.Get(jobID); ok && job.StartedAt != nil {
		monitoring.RecordJobComplete(string(job.Service), time.Since(time.Unix(*job.StartedAt, 0)))
	}

	p.notifier.PublishPanel(PanelUpdate{
		Phase:       string(queue.StatusComplete),
		Progress:    100,
		Title:       meta.Title,
		QueuedCount: p.queue.QueuedCount(),
	})

	p.logger.Info("job complete",
		zap.String("job_id", jobID),
		zap.String("path", outputPath))
}

func (p *Processor) recordHistory(jobID string, meta queue.TrackMetadata, outputPath string) {
	if p.history == nil {
		return
	}

	job, ok := p.queue.Get(jobID)
	if !ok {
		return
	}

	var size int64
	if info, err := os.Stat(outputPath); err == nil {
		size = info.Size()
	}

	entry := &store.HistoryEntry{
		JobID:    jobID,
		Title:    meta.Title,
		Artist:   meta.Artist,
		Album:    meta.Album,
		Service:  string(job.Service),
		FilePath: outputPath,
		FileSize: size,
	}
	if err := p.history.Add(entry); err != nil {
		p.logger.Warn("history insert failed",
			zap.String("job_id", jobID),
			zap.Error(err))
	}
}

func (p *Processor) fail(jobID string, service queue.Service, err error) {
	job, _ := p.queue.Get(jobID)

	p.queue.UpdateStatus(jobID, queue.StatusError, job.Progress, err.Error())

	errorType := string(apperrors.GetErrorType(err))
	monitoring.RecordJobFailed(string(service), errorType)
	monitoring.RecordError(errorType)

	p.notifier.PublishPanel(PanelUpdate{
		Phase:       string(queue.StatusError),
		Progress:    job.Progress,
		Title:       job.Metadata.Title,
		QueuedCount: p.queue.QueuedCount(),
	})

	p.logger.Warn("job failed",
		zap.String("job_id", jobID),
		zap.String("service", string(service)),
		zap.String("error_type", errorType),
		zap.Error(err))
}

// setProgress updates the job and pushes both event streams: a full
// queue snapshot and the compact panel update. Every status mutation
// goes out this way so subscribers see intermediate progress, not
// just terminal states.
func (p *Processor) setProgress(jobID string, status queue.Status, progress float64, message string) {
	p.queue.UpdateStatus(jobID, status, progress, message)
	p.notifier.PublishSnapshot(p.queue.Snapshot())

	job, ok := p.queue.Get(jobID)
	if !ok {
		return
	}
	p.notifier.PublishPanel(PanelUpdate{
		Phase:       string(status),
		Progress:    progress,
		Title:       job.Metadata.Title,
		QueuedCount: p.queue.QueuedCount(),
	})
}
