package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "github.com/hasod/hasod-go/internal/errors"
)

func newTestITunes(t *testing.T, handler http.Handler) *ITunesClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewITunesClient(5 * time.Second)
	client.baseURL = server.URL
	return client
}

func TestLookupTrack(t *testing.T) {
	client := newTestITunes(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lookup" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("id") != "1234567891" {
			t.Errorf("id = %q", r.URL.Query().Get("id"))
		}
		if r.URL.Query().Get("entity") != "song" {
			t.Errorf("entity = %q", r.URL.Query().Get("entity"))
		}

		// The lookup returns the collection first, then the song.
		json.NewEncoder(w).Encode(map[string]interface{}{
			"resultCount": 2,
			"results": []map[string]interface{}{
				{
					"wrapperType":    "collection",
					"collectionName": "Test Album",
					"artistName":     "Test Artist",
				},
				{
					"wrapperType":     "track",
					"kind":            "song",
					"trackName":       "Test Song",
					"artistName":      "Test Artist",
					"collectionName":  "Test Album",
					"artworkUrl100":   "https://example.com/100x100bb.jpg",
					"trackTimeMillis": 215000,
				},
			},
		})
	}))

	track, err := client.LookupTrack(context.Background(), "1234567891")
	if err != nil {
		t.Fatalf("LookupTrack failed: %v", err)
	}

	if track.TrackName != "Test Song" {
		t.Errorf("TrackName = %q, want Test Song", track.TrackName)
	}
	if track.ArtistName != "Test Artist" {
		t.Errorf("ArtistName = %q, want Test Artist", track.ArtistName)
	}
	if track.ArtworkURL100 != "https://example.com/100x100bb.jpg" {
		t.Errorf("ArtworkURL100 = %q", track.ArtworkURL100)
	}
	if track.TrackTimeMillis != 215000 {
		t.Errorf("TrackTimeMillis = %d, want 215000", track.TrackTimeMillis)
	}
}

func TestLookupTrackNoSongResult(t *testing.T) {
	client := newTestITunes(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"resultCount": 1,
			"results": []map[string]interface{}{
				{"wrapperType": "collection", "collectionName": "Album Only"},
			},
		})
	}))

	_, err := client.LookupTrack(context.Background(), "999")
	if err == nil {
		t.Fatal("Expected error when no song entry exists")
	}
	if apperrors.GetErrorType(err) != apperrors.ErrTypeResolution {
		t.Errorf("Error type = %v, want resolution", apperrors.GetErrorType(err))
	}
}

func TestLookupTrackEmptyID(t *testing.T) {
	client := NewITunesClient(time.Second)

	_, err := client.LookupTrack(context.Background(), "")
	if err == nil {
		t.Fatal("Expected error for empty track ID")
	}
	if apperrors.GetErrorType(err) != apperrors.ErrTypeValidation {
		t.Errorf("Error type = %v, want validation", apperrors.GetErrorType(err))
	}
}

func TestLookupTrackServerError(t *testing.T) {
	client := newTestITunes(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := client.LookupTrack(context.Background(), "1234")
	if err == nil {
		t.Fatal("Expected error for 503 response")
	}
	if !apperrors.IsNetworkError(err) {
		t.Errorf("Expected network error, got %v", err)
	}
}
