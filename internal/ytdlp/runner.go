// Package ytdlp drives the yt-dlp binary for metadata dumps, catalog
// searches, playlist enumeration and audio downloads.
package ytdlp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/hasod/hasod-go/internal/errors"
)

// Metadata is the subset of a yt-dlp JSON dump the engine cares about
type Metadata struct {
	Title     string
	Artist    string
	Album     string
	Duration  int // seconds
	Thumbnail string
}

// SearchEntry is one result row from a flat-playlist search dump
type SearchEntry struct {
	URL         string
	Title       string
	Uploader    string
	Description string
	Duration    int
}

// DownloadCallbacks receive progress while a download runs. Either
// field may be nil.
type DownloadCallbacks struct {
	// OnProgress is called with the raw percentage from yt-dlp
	// progress lines (0-100).
	OnProgress func(pct float64)
	// OnConverting is called once extraction/merging starts.
	OnConverting func()
}

// Runner executes yt-dlp subprocesses
type Runner struct {
	binPath string
	logger  *zap.Logger
}

// NewRunner creates a runner for the given yt-dlp binary path
func NewRunner(binPath string, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{binPath: binPath, logger: logger}
}

// rawEntry mirrors the yt-dlp JSON fields we read
type rawEntry struct {
	ID            string  `json:"id"`
	WebpageURL    string  `json:"webpage_url"`
	URL           string  `json:"url"`
	Title         string  `json:"title"`
	Artist        string  `json:"artist"`
	Uploader      string  `json:"uploader"`
	Channel       string  `json:"channel"`
	Album         string  `json:"album"`
	Description   string  `json:"description"`
	Thumbnail     string  `json:"thumbnail"`
	Duration      float64 `json:"duration"`
	PlaylistTitle string  `json:"playlist_title"`
}

// ParseProgress extracts the percentage from a yt-dlp progress line
// of the form "[download]  45.2% of 10.00MiB at 1.00MiB/s ETA 00:05".
func ParseProgress(line string) (float64, bool) {
	if !strings.Contains(line, "[download]") || !strings.Contains(line, "%") {
		return 0, false
	}
	for _, part := range strings.Fields(line) {
		if strings.HasSuffix(part, "%") {
			pct, err := strconv.ParseFloat(strings.TrimSuffix(part, "%"), 64)
			if err == nil {
				return pct, true
			}
		}
	}
	return 0, false
}

// IsConversionMarker reports whether a yt-dlp output line marks the
// start of audio extraction or stream merging.
func IsConversionMarker(line string) bool {
	return strings.Contains(line, "[ExtractAudio]") || strings.Contains(line, "[Merger]")
}

// ParseMetadata decodes a --dump-json metadata blob, filling the
// usual placeholders for missing fields.
func ParseMetadata(jsonStr string) Metadata {
	meta := Metadata{
		Title:  "Unknown",
		Artist: "Unknown Artist",
		Album:  "Unknown Album",
	}

	var raw rawEntry
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return meta
	}

	if raw.Title != "" {
		meta.Title = raw.Title
	}
	switch {
	case raw.Artist != "":
		meta.Artist = raw.Artist
	case raw.Uploader != "":
		meta.Artist = raw.Uploader
	case raw.Channel != "":
		meta.Artist = raw.Channel
	}
	if raw.Album != "" {
		meta.Album = raw.Album
	}
	meta.Duration = int(raw.Duration)
	meta.Thumbnail = raw.Thumbnail
	return meta
}

// InferArtistFromTitle splits "Artist - Title" style titles when the
// uploader gave us no usable artist.
func (m *Metadata) InferArtistFromTitle() {
	if m.Artist != "Unknown Artist" {
		return
	}
	idx := strings.Index(m.Title, " - ")
	if idx < 0 {
		return
	}
	artist := strings.TrimSpace(m.Title[:idx])
	title := strings.TrimSpace(m.Title[idx+3:])
	if artist != "" {
		m.Artist = artist
		m.Title = title
	}
}

// DumpMetadata fetches metadata for a URL without downloading
func (r *Runner) DumpMetadata(ctx context.Context, url string) (Metadata, error) {
	out, err := r.run(ctx, "--dump-json", "--no-download", url)
	if err != nil {
		return Metadata{}, apperrors.NewSubprocessError("yt-dlp metadata dump failed", err)
	}
	return ParseMetadata(strings.TrimSpace(string(out))), nil
}

// Search runs a ytsearchN: query and returns the raw result entries
func (r *Runner) Search(ctx context.Context, query string, limit int) ([]SearchEntry, error) {
	searchURL := fmt.Sprintf("ytsearch%d:%s", limit, query)
	out, err := r.run(ctx, "--dump-json", "--no-download", "--flat-playlist", "--no-warnings", searchURL)
	if err != nil {
		return nil, apperrors.NewSubprocessError("yt-dlp search failed", err)
	}

	var entries []SearchEntry
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var raw rawEntry
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			continue
		}
		url := raw.WebpageURL
		if url == "" {
			url = raw.URL
		}
		if url == "" {
			continue
		}
		uploader := raw.Uploader
		if uploader == "" {
			uploader = raw.Channel
		}
		title := raw.Title
		if title == "" {
			title = "Unknown"
		}
		entries = append(entries, SearchEntry{
			URL:         url,
			Title:       title,
			Uploader:    uploader,
			Description: raw.Description,
			Duration:    int(raw.Duration),
		})
	}
	return entries, nil
}

// EnumeratePlaylist resolves a playlist URL into its name and the
// watch URLs of its entries.
func (r *Runner) EnumeratePlaylist(ctx context.Context, playlistURL string) (string, []string, error) {
	out, err := r.run(ctx, "--flat-playlist", "--dump-json", playlistURL)
	if err != nil {
		return "", nil, apperrors.NewSubprocessError("yt-dlp playlist enumeration failed", err)
	}

	name := "Unknown Playlist"
	var urls []string

	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var raw rawEntry
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			continue
		}
		if name == "Unknown Playlist" && raw.PlaylistTitle != "" {
			name = raw.PlaylistTitle
		}
		if raw.ID != "" {
			urls = append(urls, "https://www.youtube.com/watch?v="+raw.ID)
		}
	}

	if len(urls) == 0 {
		return "", nil, apperrors.NewResolutionError("no videos found in playlist", nil)
	}
	return name, urls, nil
}

// Download fetches a URL as MP3 using the given output template,
// streaming progress to the callbacks. Returns an error on non-zero
// exit.
func (r *Runner) Download(ctx context.Context, url, outputTemplate string, cb DownloadCallbacks) error {
	args := []string{
		url,
		"-f", "bestaudio",
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "0",
		"--prefer-free-formats",
		"--embed-thumbnail",
		"--add-metadata",
		"--output", outputTemplate,
		"--progress",
		"--newline",
		"--no-warnings",
	}

	cmd := exec.CommandContext(ctx, r.binPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return apperrors.NewSubprocessError("failed to open yt-dlp stdout", err)
	}
	cmd.Stderr = cmd.Stdout // yt-dlp writes progress to stdout with --newline; fold stderr in

	if err := cmd.Start(); err != nil {
		return apperrors.NewSubprocessError("failed to start yt-dlp", err)
	}

	converting := false
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		r.logger.Debug("yt-dlp output", zap.String("line", line))

		if pct, ok := ParseProgress(line); ok && cb.OnProgress != nil {
			cb.OnProgress(pct)
		}
		if !converting && IsConversionMarker(line) {
			converting = true
			if cb.OnConverting != nil {
				cb.OnConverting()
			}
		}
	}

	if err := cmd.Wait(); err != nil {
		return apperrors.NewSubprocessError(fmt.Sprintf("yt-dlp exited abnormally: %v", err), err)
	}
	return nil
}

// run executes yt-dlp with args and returns its stdout
func (r *Runner) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.binPath, args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, err
	}
	return out, nil
}
