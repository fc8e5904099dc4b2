package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hasod/hasod-go/internal/api"
	"github.com/hasod/hasod-go/internal/config"
	"github.com/hasod/hasod-go/internal/download"
	"github.com/hasod/hasod-go/internal/ffmpeg"
	"github.com/hasod/hasod-go/internal/metadata"
	"github.com/hasod/hasod-go/internal/monitoring"
	"github.com/hasod/hasod-go/internal/organize"
	"github.com/hasod/hasod-go/internal/queue"
	"github.com/hasod/hasod-go/internal/resolver"
	"github.com/hasod/hasod-go/internal/search"
	"github.com/hasod/hasod-go/internal/security"
	"github.com/hasod/hasod-go/internal/store"
	"github.com/hasod/hasod-go/internal/ytdlp"
)

const version = "2.0.0"

func main() {
	configPath := flag.String("config", "", "path to settings.json (defaults to the data directory)")
	listenAddr := flag.String("listen", "", "serve /metrics, /healthz and /queue on this address (e.g. :9090)")
	flag.Parse()

	if err := run(*configPath, *listenAddr, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "hasod-core: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, listenAddr string, urls []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := monitoring.NewLogger(&monitoring.LogConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePath:   cfg.Logging.FilePath,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting hasod-core",
		zap.String("version", version),
		zap.String("output_dir", cfg.Download.OutputDir))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	var history *store.History
	if cfg.History.Enabled {
		db, err = store.InitDB(cfg.History.DBPath)
		if err != nil {
			return fmt.Errorf("init history db: %w", err)
		}
		defer db.Close()
		history = store.NewHistory(db)
	}

	bearerToken := cfg.Backend.BearerToken
	if security.IsEncrypted(bearerToken) {
		encryptor := security.NewTokenEncryptor(config.GetDataDir())
		bearerToken, err = encryptor.DecryptToken(bearerToken)
		if err != nil {
			return fmt.Errorf("decrypt bearer token: %w", err)
		}
	}

	timeout := time.Duration(cfg.Network.Timeout) * time.Second
	backend := api.NewBackendClient(cfg.Backend.BaseURL, bearerToken, timeout)
	backend.SetMaxRetries(cfg.Network.MaxRetries)
	itunes := api.NewITunesClient(timeout)

	runner := ytdlp.NewRunner(cfg.Tools.YtDlpPath, logger)
	ranker := search.NewRanker(runner, logger)
	organizer := organize.New(cfg.Download.OutputDir)

	registry := resolver.NewRegistry()
	registry.Register(queue.ServiceSpotify, resolver.NewSpotifyResolver(backend, ranker, organizer, logger))
	registry.Register(queue.ServiceAppleMusic, resolver.NewAppleMusicResolver(itunes, ranker, logger))
	media := resolver.NewMediaResolver(runner, logger)
	registry.Register(queue.ServiceYouTube, media)
	registry.Register(queue.ServiceSoundCloud, media)
	registry.Register(queue.ServiceBandcamp, media)

	tagger := metadata.NewTagger(cfg.Download.EmbedArtwork, cfg.Download.ArtworkSize)
	embedder := ffmpeg.NewRunner(cfg.Tools.FFmpegPath, logger)
	if !embedder.Available() {
		logger.Warn("ffmpeg not found, artwork will be embedded in-process",
			zap.String("path", cfg.Tools.FFmpegPath))
	}

	q := queue.New()
	notifier := download.NewNotifier(logger)
	processor := download.NewProcessor(q, registry, organizer, runner, tagger, embedder, history, notifier, logger)
	svc := download.NewService(q, processor, notifier, backend, runner, logger)

	if listenAddr != "" {
		go serveHTTP(listenAddr, svc, monitoring.NewHealthChecker(version, db), q, logger)
	}

	if err := enqueue(ctx, svc, urls, logger); err != nil {
		return err
	}

	if q.QueuedCount() == 0 && listenAddr == "" {
		logger.Info("nothing to do")
		return nil
	}

	if listenAddr == "" {
		// Subscribe before starting so the final snapshot cannot be
		// missed on a fast queue.
		snapshots := svc.SubscribeSnapshots()
		svc.Start(ctx)
		return waitForDrain(ctx, snapshots, logger)
	}

	svc.Start(ctx)

	// Server mode: run until a signal arrives, restarting the loop
	// whenever new work shows up.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case <-ticker.C:
			if q.QueuedCount() > 0 {
				svc.Start(ctx)
			}
		}
	}
}

// enqueue routes each URL to the matching bulk or single operation
func enqueue(ctx context.Context, svc *download.Service, urls []string, logger *zap.Logger) error {
	for _, url := range urls {
		lower := strings.ToLower(url)
		switch {
		case strings.Contains(lower, "spotify.com") && strings.Contains(lower, "/album/"):
			n, err := svc.EnqueueSpotifyAlbum(ctx, url)
			if err != nil {
				return fmt.Errorf("enqueue album %s: %w", url, err)
			}
			logger.Info("album expanded", zap.String("url", url), zap.Int("tracks", n))
		case strings.Contains(lower, "spotify.com") && strings.Contains(lower, "/playlist/"):
			n, err := svc.EnqueueSpotifyPlaylist(ctx, url)
			if err != nil {
				return fmt.Errorf("enqueue playlist %s: %w", url, err)
			}
			logger.Info("playlist expanded", zap.String("url", url), zap.Int("tracks", n))
		case strings.Contains(lower, "youtube.com") && strings.Contains(lower, "list="):
			n, err := svc.EnqueueMediaPlaylist(ctx, url)
			if err != nil {
				return fmt.Errorf("enqueue playlist %s: %w", url, err)
			}
			logger.Info("playlist expanded", zap.String("url", url), zap.Int("entries", n))
		default:
			job := svc.EnqueueURL(url)
			logger.Info("job enqueued",
				zap.String("service", string(job.Service)),
				zap.String("url", url))
		}
	}
	return nil
}

// waitForDrain blocks until all enqueued jobs reach a terminal state
func waitForDrain(ctx context.Context, snapshots <-chan queue.Snapshot, logger *zap.Logger) error {
	for {
		select {
		case <-ctx.Done():
			logger.Info("interrupted")
			return nil
		case snap := <-snapshots:
			if snap.QueuedCount == 0 && snap.ActiveCount == 0 && !snap.IsProcessing {
				logger.Info("all jobs finished",
					zap.Int("completed", snap.CompletedCount),
					zap.Int("failed", snap.ErrorCount))
				if snap.ErrorCount > 0 {
					return fmt.Errorf("%d job(s) failed", snap.ErrorCount)
				}
				return nil
			}
		}
	}
}

func serveHTTP(addr string, svc *download.Service, health *monitoring.HealthChecker, q *queue.Queue, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		snap := q.Snapshot()
		check := health.Check(snap.QueuedCount, snap.ActiveCount)
		w.Header().Set("Content-Type", "application/json")
		if check.Status == monitoring.HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(check)
	})

	mux.HandleFunc("/queue", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(svc.Snapshot())
	})

	logger.Info("http endpoints listening", zap.String("addr", addr))
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("http server stopped", zap.Error(err))
	}
}
