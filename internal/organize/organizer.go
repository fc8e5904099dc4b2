// Package organize decides where downloaded tracks land on disk and
// keeps the generated path segments filesystem-safe.
package organize

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hasod/hasod-go/internal/queue"
)

const (
	unknownArtist   = "Unknown Artist"
	unknownAlbum    = "Unknown Album"
	unknownPlaylist = "Unknown Playlist"
	unsortedDir     = "unsorted"
)

// SanitizeSegment replaces characters that are invalid in file or
// directory names with underscores and trims surrounding whitespace.
func SanitizeSegment(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, c := range name {
		switch c {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			b.WriteRune('_')
		default:
			b.WriteRune(c)
		}
	}
	return strings.TrimSpace(b.String())
}

// Organizer computes output paths under a base directory
type Organizer struct {
	baseDir string
}

// New creates an organizer rooted at baseDir
func New(baseDir string) *Organizer {
	return &Organizer{baseDir: baseDir}
}

// BaseDir returns the organizer's root directory
func (o *Organizer) BaseDir() string {
	return o.baseDir
}

// OutputPath returns the full path a track should be written to and
// creates the containing directory. The extension must include the
// leading dot (".mp3", ".flac").
//
// Singles go to base/unsorted/, album downloads to
// base/{artist}/{album}/ and playlist downloads to base/{playlist}/.
// When the resolved metadata album and the enqueue-time album name
// disagree, the metadata wins.
func (o *Organizer) OutputPath(meta queue.TrackMetadata, ctx *queue.DownloadContext, ext string) (string, error) {
	dir := o.targetDir(meta, ctx)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return filepath.Join(dir, Filename(meta, ext)), nil
}

// targetDir picks the directory for a track based on its context
func (o *Organizer) targetDir(meta queue.TrackMetadata, ctx *queue.DownloadContext) string {
	kind := queue.ContextSingle
	var ctxName string
	if ctx != nil {
		kind = ctx.Kind
		ctxName = ctx.Name
	}

	switch kind {
	case queue.ContextAlbum:
		artist := meta.Artist
		if artist == "" {
			artist = unknownArtist
		}
		album := meta.Album
		if album == "" {
			album = ctxName
		}
		if album == "" {
			album = unknownAlbum
		}
		return filepath.Join(o.baseDir, SanitizeSegment(artist), SanitizeSegment(album))
	case queue.ContextPlaylist:
		playlist := ctxName
		if playlist == "" {
			playlist = unknownPlaylist
		}
		return filepath.Join(o.baseDir, SanitizeSegment(playlist))
	default:
		return filepath.Join(o.baseDir, unsortedDir)
	}
}

// Filename builds "{artist} - {title}{ext}", dropping the artist part
// when it is empty or unresolved.
func Filename(meta queue.TrackMetadata, ext string) string {
	title := meta.Title
	if title == "" {
		title = "Unknown"
	}
	if meta.Artist == "" || meta.Artist == unknownArtist {
		return SanitizeSegment(title) + ext
	}
	return SanitizeSegment(meta.Artist+" - "+title) + ext
}
