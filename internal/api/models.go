package api

// SpotifyTrackMetadata is the backend's resolved view of a Spotify track.
type SpotifyTrackMetadata struct {
	TrackID     string `json:"trackId"`
	Name        string `json:"name"`
	Artist      string `json:"artist"`
	Album       string `json:"album"`
	ISRC        string `json:"isrc"`
	DurationMS  int    `json:"duration_ms"`
	ReleaseDate string `json:"releaseDate"`
	ImageURL    string `json:"imageUrl"`
}

// AlbumTrack is one track entry from a bulk album or playlist lookup.
type AlbumTrack struct {
	TrackID    string `json:"trackId"`
	Name       string `json:"name"`
	Artists    string `json:"artists"`
	Album      string `json:"album"`
	DurationMS int    `json:"duration_ms"`
	ImageURL   string `json:"imageUrl"`
}

// SpotifyAlbumMetadata describes an album and its track list.
type SpotifyAlbumMetadata struct {
	Album struct {
		Name   string `json:"name"`
		Artist string `json:"artist"`
	} `json:"album"`
	Tracks []AlbumTrack `json:"tracks"`
}

// SpotifyPlaylistMetadata describes a playlist and its track list.
type SpotifyPlaylistMetadata struct {
	Playlist struct {
		Name  string `json:"name"`
		Owner string `json:"owner"`
	} `json:"playlist"`
	Tracks []AlbumTrack `json:"tracks"`
}

// DeezerDownload holds everything needed to fetch and decrypt one track.
type DeezerDownload struct {
	DownloadURL   string `json:"downloadUrl"`
	DecryptionKey string `json:"decryptionKey"`
	Quality       string `json:"quality"`
}
