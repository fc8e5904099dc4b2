package queue

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Service identifies the music service a URL belongs to
type Service string

const (
	ServiceYouTube    Service = "YouTube"
	ServiceSpotify    Service = "Spotify"
	ServiceSoundCloud Service = "SoundCloud"
	ServiceDeezer     Service = "Deezer"
	ServiceTidal      Service = "Tidal"
	ServiceAppleMusic Service = "AppleMusic"
	ServiceBandcamp   Service = "Bandcamp"
	ServiceUnknown    Service = "Unknown"
)

// DetectService identifies the service from a URL. First match wins.
func DetectService(url string) Service {
	lower := strings.ToLower(url)
	switch {
	case strings.Contains(lower, "youtube.com") || strings.Contains(lower, "youtu.be"):
		return ServiceYouTube
	case strings.Contains(lower, "spotify.com") || strings.HasPrefix(lower, "spotify:"):
		return ServiceSpotify
	case strings.Contains(lower, "soundcloud.com"):
		return ServiceSoundCloud
	case strings.Contains(lower, "deezer.com"):
		return ServiceDeezer
	case strings.Contains(lower, "tidal.com"):
		return ServiceTidal
	case strings.Contains(lower, "music.apple.com"):
		return ServiceAppleMusic
	case strings.Contains(lower, "bandcamp.com"):
		return ServiceBandcamp
	default:
		return ServiceUnknown
	}
}

// DisplayName returns the human-readable service name
func (s Service) DisplayName() string {
	if s == ServiceAppleMusic {
		return "Apple Music"
	}
	return string(s)
}

// Status represents the lifecycle state of a download job
type Status string

const (
	StatusQueued      Status = "Queued"
	StatusDownloading Status = "Downloading"
	StatusConverting  Status = "Converting"
	StatusComplete    Status = "Complete"
	StatusError       Status = "Error"
)

// IsTerminal reports whether no further transitions happen from this status
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusError
}

// TrackMetadata holds resolved track information. Fields start empty
// and are filled in as resolution progresses.
type TrackMetadata struct {
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Album     string `json:"album"`
	Duration  int    `json:"duration,omitempty"` // seconds
	Thumbnail string `json:"thumbnail,omitempty"`
	ISRC      string `json:"-"`
}

// ContextKind distinguishes how a job was enqueued
type ContextKind int

const (
	ContextSingle ContextKind = iota
	ContextAlbum
	ContextPlaylist
)

// DownloadContext carries the grouping a job belongs to. It drives
// output folder layout and is never serialized to clients.
type DownloadContext struct {
	Kind ContextKind
	Name string // album or playlist name; unused for singles
}

// DownloadJob is one unit of work in the queue
type DownloadJob struct {
	ID          string           `json:"id"`
	URL         string           `json:"url"`
	Service     Service          `json:"service"`
	Status      Status           `json:"status"`
	Progress    float64          `json:"progress"` // 0.0 to 100.0
	Message     string           `json:"message"`
	Metadata    TrackMetadata    `json:"metadata"`
	OutputPath  string           `json:"output_path,omitempty"`
	CreatedAt   int64            `json:"created_at"`
	StartedAt   *int64           `json:"started_at,omitempty"`
	CompletedAt *int64           `json:"completed_at,omitempty"`
	Error       string           `json:"error,omitempty"`
	Context     *DownloadContext `json:"-"`
}

// NewJob creates a queued job for a URL with a placeholder title
// derived from the URL so the UI has something to show before
// metadata resolution.
func NewJob(url string) *DownloadJob {
	service := DetectService(url)
	return &DownloadJob{
		ID:       uuid.NewString(),
		URL:      url,
		Service:  service,
		Status:   StatusQueued,
		Progress: 0,
		Message:  "Waiting in queue...",
		Metadata: TrackMetadata{
			Title: placeholderTitle(url, service),
		},
		CreatedAt: time.Now().Unix(),
		Context:   &DownloadContext{Kind: ContextSingle},
	}
}

// placeholderTitle derives a readable initial title from the URL
func placeholderTitle(url string, service Service) string {
	switch service {
	case ServiceYouTube:
		if idx := strings.Index(url, "v="); idx >= 0 {
			videoID := url[idx+2:]
			if amp := strings.IndexByte(videoID, '&'); amp >= 0 {
				videoID = videoID[:amp]
			}
			if videoID != "" {
				if len(videoID) > 11 {
					videoID = videoID[:11]
				}
				return "YouTube: " + videoID
			}
		}
		return "YouTube video"
	case ServiceSpotify:
		if idx := strings.Index(url, "/track/"); idx >= 0 {
			trackID := url[idx+7:]
			if q := strings.IndexByte(trackID, '?'); q >= 0 {
				trackID = trackID[:q]
			}
			if len(trackID) > 22 {
				trackID = trackID[:22]
			}
			return "Spotify: " + trackID
		}
		return "Spotify track"
	case ServiceAppleMusic:
		if idx := strings.Index(url, "/album/"); idx >= 0 {
			slug := url[idx+7:]
			if sep := strings.IndexByte(slug, '/'); sep >= 0 {
				slug = slug[:sep]
			}
			if slug != "" && slug != "album" {
				return titleFromSlug(slug)
			}
		}
		return "Apple Music track"
	case ServiceSoundCloud:
		return "SoundCloud track"
	case ServiceDeezer:
		return "Deezer track"
	case ServiceTidal:
		return "Tidal track"
	case ServiceBandcamp:
		return "Bandcamp track"
	default:
		clean := strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://")
		if len(clean) > 40 {
			return clean[:40] + "..."
		}
		return clean
	}
}

// titleFromSlug converts "song-name" to "Song Name"
func titleFromSlug(slug string) string {
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
