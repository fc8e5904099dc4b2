package queue

import (
	"strings"
	"testing"
)

func TestDetectService(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected Service
	}{
		{"youtube watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", ServiceYouTube},
		{"youtube short link", "https://youtu.be/dQw4w9WgXcQ", ServiceYouTube},
		{"youtube music", "https://music.youtube.com/watch?v=abc", ServiceYouTube},
		{"spotify track", "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", ServiceSpotify},
		{"spotify uri", "spotify:track:4uLU6hMCjMI75M1A2tKUQC", ServiceSpotify},
		{"soundcloud", "https://soundcloud.com/artist/track", ServiceSoundCloud},
		{"deezer", "https://www.deezer.com/track/3135556", ServiceDeezer},
		{"tidal", "https://tidal.com/browse/track/77646168", ServiceTidal},
		{"apple music", "https://music.apple.com/us/album/song/123?i=456", ServiceAppleMusic},
		{"bandcamp", "https://artist.bandcamp.com/track/song", ServiceBandcamp},
		{"unknown", "https://example.com/some/audio", ServiceUnknown},
		{"case insensitive", "HTTPS://OPEN.SPOTIFY.COM/TRACK/ABC", ServiceSpotify},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectService(tt.url); got != tt.expected {
				t.Errorf("DetectService(%q) = %v, want %v", tt.url, got, tt.expected)
			}
		})
	}
}

func TestServiceDisplayName(t *testing.T) {
	if got := ServiceAppleMusic.DisplayName(); got != "Apple Music" {
		t.Errorf("DisplayName() = %q, want %q", got, "Apple Music")
	}
	if got := ServiceYouTube.DisplayName(); got != "YouTube" {
		t.Errorf("DisplayName() = %q, want %q", got, "YouTube")
	}
}

func TestStatusIsTerminal(t *testing.T) {
	terminal := []Status{StatusComplete, StatusError}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%v should be terminal", s)
		}
	}
	active := []Status{StatusQueued, StatusDownloading, StatusConverting}
	for _, s := range active {
		if s.IsTerminal() {
			t.Errorf("%v should not be terminal", s)
		}
	}
}

func TestNewJob(t *testing.T) {
	job := NewJob("https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC")

	if job.ID == "" {
		t.Error("Expected non-empty job id")
	}
	if job.Service != ServiceSpotify {
		t.Errorf("Service = %v, want %v", job.Service, ServiceSpotify)
	}
	if job.Status != StatusQueued {
		t.Errorf("Status = %v, want %v", job.Status, StatusQueued)
	}
	if job.Progress != 0 {
		t.Errorf("Progress = %v, want 0", job.Progress)
	}
	if job.Message != "Waiting in queue..." {
		t.Errorf("Message = %q", job.Message)
	}
	if job.Metadata.Artist != "" || job.Metadata.Album != "" {
		t.Error("Expected empty artist/album before resolution")
	}
	if job.CreatedAt == 0 {
		t.Error("Expected created timestamp to be set")
	}
	if job.StartedAt != nil || job.CompletedAt != nil {
		t.Error("Expected started/completed timestamps to be unset")
	}
	if job.Context == nil || job.Context.Kind != ContextSingle {
		t.Error("Expected default single-track context")
	}
}

func TestNewJobUniqueIDs(t *testing.T) {
	a := NewJob("https://youtu.be/abc")
	b := NewJob("https://youtu.be/abc")
	if a.ID == b.ID {
		t.Error("Expected distinct job ids")
	}
}

func TestPlaceholderTitle(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{
			name:     "youtube with video id",
			url:      "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL123",
			expected: "YouTube: dQw4w9WgXcQ",
		},
		{
			name:     "youtube without video id",
			url:      "https://youtu.be/",
			expected: "YouTube video",
		},
		{
			name:     "spotify with track id",
			url:      "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=xyz",
			expected: "Spotify: 4uLU6hMCjMI75M1A2tKUQC",
		},
		{
			name:     "spotify without track path",
			url:      "https://open.spotify.com/album/abc",
			expected: "Spotify track",
		},
		{
			name:     "apple music slug",
			url:      "https://music.apple.com/us/album/bohemian-rhapsody/1440806041?i=1440806768",
			expected: "Bohemian Rhapsody",
		},
		{
			name:     "apple music without slug",
			url:      "https://music.apple.com/us/browse",
			expected: "Apple Music track",
		},
		{
			name:     "soundcloud",
			url:      "https://soundcloud.com/artist/track",
			expected: "SoundCloud track",
		},
		{
			name:     "bandcamp",
			url:      "https://artist.bandcamp.com/track/song",
			expected: "Bandcamp track",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewJob(tt.url)
			if job.Metadata.Title != tt.expected {
				t.Errorf("placeholder title = %q, want %q", job.Metadata.Title, tt.expected)
			}
		})
	}
}

func TestPlaceholderTitleUnknownTruncated(t *testing.T) {
	long := "https://example.com/" + strings.Repeat("a", 60)
	job := NewJob(long)
	if !strings.HasSuffix(job.Metadata.Title, "...") {
		t.Errorf("Expected truncated title, got %q", job.Metadata.Title)
	}
	if len(job.Metadata.Title) != 43 {
		t.Errorf("Expected 40 chars plus ellipsis, got %d", len(job.Metadata.Title))
	}
	if strings.HasPrefix(job.Metadata.Title, "https://") {
		t.Error("Expected scheme to be stripped")
	}
}

func TestTitleFromSlug(t *testing.T) {
	tests := []struct {
		slug     string
		expected string
	}{
		{"bohemian-rhapsody", "Bohemian Rhapsody"},
		{"one", "One"},
		{"a-b-c", "A B C"},
	}
	for _, tt := range tests {
		if got := titleFromSlug(tt.slug); got != tt.expected {
			t.Errorf("titleFromSlug(%q) = %q, want %q", tt.slug, got, tt.expected)
		}
	}
}
