package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
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

// BackendClient talks to the metadata/download proxy service. The proxy
// owns the Spotify and Deezer credentials; this client only carries an
// optional bearer token for the download endpoints.
type BackendClient struct {
	httpClient     *http.Client
	downloadClient *http.Client
	baseURL        string
	bearerToken    string
	rateLimiter    *rate.Limiter
	retry          apperrors.RetryConfig
}

// NewBackendClient creates a backend client with pooled connections.
func NewBackendClient(baseURL, bearerToken string, timeout time.Duration) *BackendClient {
	config := network.DefaultClientConfig()
	config.Timeout = timeout

	retry := apperrors.DefaultRetryConfig()
	retry.ShouldRetry = isTransportError

	return &BackendClient{
		httpClient:     network.NewClient(config),
		downloadClient: network.GetDownloadClient(5 * time.Minute),
		baseURL:        baseURL,
		bearerToken:    bearerToken,
		rateLimiter:    rate.NewLimiter(rate.Every(100*time.Millisecond), 10), // 10 requests per second
		retry:          retry,
	}
}

// SetMaxRetries overrides how often a failed media fetch is retried
func (c *BackendClient) SetMaxRetries(n int) {
	c.retry.MaxRetries = n
}

// isTransportError reports whether the request itself failed, as
// opposed to completing with an error status. Only transport failures
// are worth retrying.
func isTransportError(err error) bool {
	if !apperrors.IsNetworkError(err) {
		return false
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// HasToken reports whether a bearer token is configured. Without one the
// download endpoints are unavailable and callers should go straight to
// their fallback source.
func (c *BackendClient) HasToken() bool {
	return c.bearerToken != ""
}

// GetSpotifyTrackMetadata resolves a Spotify track URL into full metadata.
func (c *BackendClient) GetSpotifyTrackMetadata(ctx context.Context, spotifyURL string) (*SpotifyTrackMetadata, error) {
	var result struct {
		Success  bool                 `json:"success"`
		Metadata SpotifyTrackMetadata `json:"metadata"`
	}

	if err := c.postJSON(ctx, "/metadata/spotify", map[string]string{"spotifyUrl": spotifyURL}, false, &result); err != nil {
		return nil, err
	}

	if !result.Success {
		return nil, apperrors.NewResolutionError("metadata lookup reported failure", nil)
	}

	return &result.Metadata, nil
}

// GetSpotifyAlbumMetadata resolves an album URL into its track list.
func (c *BackendClient) GetSpotifyAlbumMetadata(ctx context.Context, albumURL string) (*SpotifyAlbumMetadata, error) {
	var result struct {
		Success bool `json:"success"`
		SpotifyAlbumMetadata
	}

	if err := c.postJSON(ctx, "/metadata/spotify/album", map[string]string{"spotifyUrl": albumURL}, false, &result); err != nil {
		return nil, err
	}

	if !result.Success {
		return nil, apperrors.NewResolutionError("album lookup reported failure", nil)
	}

	return &result.SpotifyAlbumMetadata, nil
}

// GetSpotifyPlaylistMetadata resolves a playlist URL into its track list.
func (c *BackendClient) GetSpotifyPlaylistMetadata(ctx context.Context, playlistURL string) (*SpotifyPlaylistMetadata, error) {
	var result struct {
		Success bool `json:"success"`
		SpotifyPlaylistMetadata
	}

	if err := c.postJSON(ctx, "/metadata/spotify/playlist", map[string]string{"spotifyUrl": playlistURL}, false, &result); err != nil {
		return nil, err
	}

	if !result.Success {
		return nil, apperrors.NewResolutionError("playlist lookup reported failure", nil)
	}

	return &result.SpotifyPlaylistMetadata, nil
}

// GetDeezerDownload asks the backend for a download URL and decryption key
// matching the given ISRC. Requires a bearer token.
func (c *BackendClient) GetDeezerDownload(ctx context.Context, isrc string) (*DeezerDownload, error) {
	if !c.HasToken() {
		return nil, apperrors.NewAuthError("no bearer token configured for download endpoint", nil)
	}

	var result DeezerDownload
	if err := c.postJSON(ctx, "/download/deezer", map[string]string{"isrc": isrc}, true, &result); err != nil {
		return nil, err
	}

	if result.DownloadURL == "" || result.DecryptionKey == "" {
		return nil, apperrors.NewResolutionError("download endpoint returned incomplete response", nil)
	}

	return &result, nil
}

// FetchFile downloads raw bytes from a media URL. Used for the encrypted
// track payload and for artwork. Transport failures are retried with
// backoff; HTTP error statuses are not.
func (c *BackendClient) FetchFile(ctx context.Context, fileURL string) ([]byte, error) {
	var data []byte
	err := apperrors.RetryWithBackoff(ctx, c.retry, func() error {
		var attemptErr error
		data, attemptErr = c.fetchFileOnce(ctx, fileURL)
		return attemptErr
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (c *BackendClient) fetchFileOnce(ctx context.Context, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", fileURL, nil)
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to create download request", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return nil, apperrors.NewNetworkError("download request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewNetworkError(
			fmt.Sprintf("download failed with status %d", resp.StatusCode), nil).WithStatus(resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to read download body", err)
	}

	return data, nil
}

// postJSON performs a rate-limited POST with a JSON body and decodes the
// JSON response into out.
func (c *BackendClient) postJSON(ctx context.Context, endpoint string, body interface{}, withAuth bool, out interface{}) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return apperrors.NewNetworkError("rate limiter wait failed", err)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("failed to encode request body: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return apperrors.NewNetworkError("failed to create request", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	if withAuth {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		monitoring.RecordAPIRequest(endpoint, "error", time.Since(start))
		return apperrors.NewNetworkError("request failed", err)
	}
	defer resp.Body.Close()

	monitoring.RecordAPIRequest(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewNetworkError("failed to read response", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return apperrors.NewAuthError(fmt.Sprintf("backend rejected credentials (status %d)", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		return apperrors.NewNetworkError(
			fmt.Sprintf("backend returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200)),
			nil).WithStatus(resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return apperrors.NewResolutionError(fmt.Sprintf("failed to decode response: %v", err), err)
	}

	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
