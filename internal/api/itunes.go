package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/hasod/hasod-go/internal/errors"
	"github.com/hasod/hasod-go/internal/monitoring"
	"github.com/hasod/hasod-go/internal/network"
)

const itunesAPIURL = "https://itunes.apple.com"

// ITunesTrack is one song result from the iTunes lookup API.
type ITunesTrack struct {
	WrapperType      string `json:"wrapperType"`
	Kind             string `json:"kind"`
	TrackName        string `json:"trackName"`
	ArtistName       string `json:"artistName"`
	CollectionName   string `json:"collectionName"`
	ArtworkURL100    string `json:"artworkUrl100"`
	TrackTimeMillis  int    `json:"trackTimeMillis"`
	TrackViewURL     string `json:"trackViewUrl"`
	ReleaseDate      string `json:"releaseDate"`
	PrimaryGenreName string `json:"primaryGenreName"`
}

// ITunesClient queries the public iTunes lookup API.
type ITunesClient struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rate.Limiter
}

// NewITunesClient creates an iTunes lookup client.
func NewITunesClient(timeout time.Duration) *ITunesClient {
	config := network.DefaultClientConfig()
	config.Timeout = timeout

	return &ITunesClient{
		httpClient:  network.NewClient(config),
		baseURL:     itunesAPIURL,
		rateLimiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 10),
	}
}

// LookupTrack fetches song metadata for an Apple Music track ID.
// The lookup may return album and song entries together; the first
// entry of kind "song" wins.
func (c *ITunesClient) LookupTrack(ctx context.Context, trackID string) (*ITunesTrack, error) {
	if trackID == "" {
		return nil, apperrors.NewValidationError("track ID cannot be empty")
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, apperrors.NewNetworkError("rate limiter wait failed", err)
	}

	endpoint := "/lookup"
	lookupURL := fmt.Sprintf("%s%s?id=%s&entity=song", c.baseURL, endpoint, url.QueryEscape(trackID))

	req, err := http.NewRequestWithContext(ctx, "GET", lookupURL, nil)
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to create request", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		monitoring.RecordAPIRequest(endpoint, "error", time.Since(start))
		return nil, apperrors.NewNetworkError("iTunes lookup request failed", err)
	}
	defer resp.Body.Close()

	monitoring.RecordAPIRequest(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewNetworkError(
			fmt.Sprintf("iTunes lookup failed with status %d", resp.StatusCode), nil).WithStatus(resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to read lookup response", err)
	}

	var result struct {
		ResultCount int           `json:"resultCount"`
		Results     []ITunesTrack `json:"results"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, apperrors.NewResolutionError(fmt.Sprintf("failed to decode lookup response: %v", err), err)
	}

	for i := range result.Results {
		if result.Results[i].Kind == "song" {
			return &result.Results[i], nil
		}
	}

	return nil, apperrors.NewResolutionError(fmt.Sprintf("no song found for track ID %s", trackID), nil)
}
