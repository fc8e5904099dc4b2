package organize

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hasod/hasod-go/internal/queue"
)

func TestSanitizeSegment(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"clean name", "Bohemian Rhapsody", "Bohemian Rhapsody"},
		{"slashes", "AC/DC", "AC_DC"},
		{"backslash", "a\\b", "a_b"},
		{"colon", "Reloaded: Live", "Reloaded_ Live"},
		{"asterisk and question", "what*ever?", "what_ever_"},
		{"quotes and angle brackets", `"<title>"`, "__title__"},
		{"pipe", "a|b", "a_b"},
		{"surrounding whitespace", "  trimmed  ", "trimmed"},
		{"all invalid", `/\:*?"<>|`, "_________"},
		{"unicode preserved", "Björk — Jóga", "Björk — Jóga"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeSegment(tt.input)
			if got != tt.expected {
				t.Errorf("SanitizeSegment(%q) = %q, want %q", tt.input, got, tt.expected)
			}
			if strings.ContainsAny(got, `/\:*?"<>|`) {
				t.Errorf("SanitizeSegment(%q) = %q still contains forbidden characters", tt.input, got)
			}
			// Sanitizing is idempotent: a clean segment passes through.
			if again := SanitizeSegment(got); again != got {
				t.Errorf("SanitizeSegment(%q) = %q, want %q unchanged", got, again, got)
			}
		})
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		name     string
		meta     queue.TrackMetadata
		ext      string
		expected string
	}{
		{
			name:     "artist and title",
			meta:     queue.TrackMetadata{Title: "Jóga", Artist: "Björk"},
			ext:      ".mp3",
			expected: "Björk - Jóga.mp3",
		},
		{
			name:     "empty artist",
			meta:     queue.TrackMetadata{Title: "Jóga"},
			ext:      ".mp3",
			expected: "Jóga.mp3",
		},
		{
			name:     "unresolved artist",
			meta:     queue.TrackMetadata{Title: "Jóga", Artist: "Unknown Artist"},
			ext:      ".mp3",
			expected: "Jóga.mp3",
		},
		{
			name:     "invalid characters sanitized",
			meta:     queue.TrackMetadata{Title: "What?", Artist: "AC/DC"},
			ext:      ".mp3",
			expected: "AC_DC - What_.mp3",
		},
		{
			name:     "flac extension",
			meta:     queue.TrackMetadata{Title: "Jóga", Artist: "Björk"},
			ext:      ".flac",
			expected: "Björk - Jóga.flac",
		},
		{
			name:     "empty title",
			meta:     queue.TrackMetadata{},
			ext:      ".mp3",
			expected: "Unknown.mp3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Filename(tt.meta, tt.ext); got != tt.expected {
				t.Errorf("Filename() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestOutputPathSingle(t *testing.T) {
	base := t.TempDir()
	o := New(base)

	meta := queue.TrackMetadata{Title: "Jóga", Artist: "Björk"}
	ctx := &queue.DownloadContext{Kind: queue.ContextSingle}

	path, err := o.OutputPath(meta, ctx, ".mp3")
	if err != nil {
		t.Fatalf("OutputPath() error = %v", err)
	}

	want := filepath.Join(base, "unsorted", "Björk - Jóga.mp3")
	if path != want {
		t.Errorf("OutputPath() = %q, want %q", path, want)
	}

	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Errorf("Expected directory to exist: %v", err)
	}
}

func TestOutputPathNilContextDefaultsToSingle(t *testing.T) {
	base := t.TempDir()
	o := New(base)

	path, err := o.OutputPath(queue.TrackMetadata{Title: "x"}, nil, ".mp3")
	if err != nil {
		t.Fatalf("OutputPath() error = %v", err)
	}
	if filepath.Dir(path) != filepath.Join(base, "unsorted") {
		t.Errorf("Expected unsorted dir, got %q", filepath.Dir(path))
	}
}

func TestOutputPathAlbum(t *testing.T) {
	base := t.TempDir()
	o := New(base)

	meta := queue.TrackMetadata{
		Title:  "Love of My Life",
		Artist: "Queen",
		Album:  "A Night at the Opera",
	}
	ctx := &queue.DownloadContext{Kind: queue.ContextAlbum, Name: "stale name"}

	path, err := o.OutputPath(meta, ctx, ".mp3")
	if err != nil {
		t.Fatalf("OutputPath() error = %v", err)
	}

	// Resolved metadata album takes precedence over the context name.
	want := filepath.Join(base, "Queen", "A Night at the Opera", "Queen - Love of My Life.mp3")
	if path != want {
		t.Errorf("OutputPath() = %q, want %q", path, want)
	}
}

func TestOutputPathAlbumFallbacks(t *testing.T) {
	base := t.TempDir()
	o := New(base)

	tests := []struct {
		name    string
		meta    queue.TrackMetadata
		ctxName string
		wantDir string
	}{
		{
			name:    "context album when metadata empty",
			meta:    queue.TrackMetadata{Title: "t", Artist: "A"},
			ctxName: "Compilation",
			wantDir: filepath.Join(base, "A", "Compilation"),
		},
		{
			name:    "unknown album and artist",
			meta:    queue.TrackMetadata{Title: "t"},
			wantDir: filepath.Join(base, "Unknown Artist", "Unknown Album"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := &queue.DownloadContext{Kind: queue.ContextAlbum, Name: tt.ctxName}
			path, err := o.OutputPath(tt.meta, ctx, ".mp3")
			if err != nil {
				t.Fatalf("OutputPath() error = %v", err)
			}
			if filepath.Dir(path) != tt.wantDir {
				t.Errorf("dir = %q, want %q", filepath.Dir(path), tt.wantDir)
			}
		})
	}
}

func TestOutputPathPlaylist(t *testing.T) {
	base := t.TempDir()
	o := New(base)

	meta := queue.TrackMetadata{Title: "Song", Artist: "Band"}
	ctx := &queue.DownloadContext{Kind: queue.ContextPlaylist, Name: "Road Trip / 2024"}

	path, err := o.OutputPath(meta, ctx, ".mp3")
	if err != nil {
		t.Fatalf("OutputPath() error = %v", err)
	}

	want := filepath.Join(base, "Road Trip _ 2024", "Band - Song.mp3")
	if path != want {
		t.Errorf("OutputPath() = %q, want %q", path, want)
	}
}

func TestOutputPathPlaylistUnnamed(t *testing.T) {
	base := t.TempDir()
	o := New(base)

	ctx := &queue.DownloadContext{Kind: queue.ContextPlaylist}
	path, err := o.OutputPath(queue.TrackMetadata{Title: "x"}, ctx, ".mp3")
	if err != nil {
		t.Fatalf("OutputPath() error = %v", err)
	}
	if filepath.Dir(path) != filepath.Join(base, "Unknown Playlist") {
		t.Errorf("dir = %q", filepath.Dir(path))
	}
}
