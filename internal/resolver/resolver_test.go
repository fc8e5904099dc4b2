package resolver

import (
	"context"
	"testing"

	apperrors "github.com/hasod/hasod-go/internal/errors"
	"github.com/hasod/hasod-go/internal/queue"
	"github.com/hasod/hasod-go/internal/search"
	"github.com/hasod/hasod-go/internal/ytdlp"
)

func noReport(progress float64, message string) {}

// fakeFinder returns a fixed source URL and records whether it ran.
type fakeFinder struct {
	url    string
	tier   search.Tier
	called bool
}

func (f *fakeFinder) FindBestSource(ctx context.Context, artist, title string, progress search.ProgressFunc) (string, search.Tier) {
	f.called = true
	return f.url, f.tier
}

func TestRegistryDispatch(t *testing.T) {
	registry := NewRegistry()
	media := NewMediaResolver(&fakeDumper{}, nil)
	registry.Register(queue.ServiceYouTube, media)

	if registry.For(queue.ServiceYouTube) != Resolver(media) {
		t.Error("Expected registered resolver for YouTube")
	}

	// Unregistered services resolve to the unsupported resolver.
	for _, service := range []queue.Service{queue.ServiceDeezer, queue.ServiceTidal, queue.ServiceUnknown} {
		resolver := registry.For(service)
		job := queue.NewJob("https://example.com/whatever")
		_, err := resolver.Resolve(context.Background(), job, noReport)
		if err == nil {
			t.Fatalf("%s: expected unsupported error", service)
		}
		if !apperrors.IsUnsupportedError(err) {
			t.Errorf("%s: error type = %v, want unsupported", service, apperrors.GetErrorType(err))
		}
	}
}

type fakeDumper struct {
	meta ytdlp.Metadata
	err  error
}

func (f *fakeDumper) DumpMetadata(ctx context.Context, url string) (ytdlp.Metadata, error) {
	return f.meta, f.err
}

func TestMediaResolverUsesURLAsSource(t *testing.T) {
	dumper := &fakeDumper{meta: ytdlp.Metadata{
		Title:    "Some Song",
		Artist:   "Some Artist",
		Album:    "Some Album",
		Duration: 200,
	}}
	resolver := NewMediaResolver(dumper, nil)

	job := queue.NewJob("https://www.youtube.com/watch?v=abc12345678")
	res, err := resolver.Resolve(context.Background(), job, noReport)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.SourceURL != job.URL {
		t.Errorf("SourceURL = %q, want job URL", res.SourceURL)
	}
	if res.OutputPath != "" {
		t.Errorf("OutputPath = %q, want empty", res.OutputPath)
	}
	if res.Metadata.Title != "Some Song" {
		t.Errorf("Title = %q", res.Metadata.Title)
	}
	if res.Metadata.Artist != "Some Artist" {
		t.Errorf("Artist = %q", res.Metadata.Artist)
	}
}

func TestMediaResolverInfersArtistFromTitle(t *testing.T) {
	dumper := &fakeDumper{meta: ytdlp.Metadata{
		Title:  "Cool Artist - Cool Song",
		Artist: "Unknown Artist",
	}}
	resolver := NewMediaResolver(dumper, nil)

	job := queue.NewJob("https://soundcloud.com/someone/track")
	res, err := resolver.Resolve(context.Background(), job, noReport)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if res.Metadata.Artist != "Cool Artist" {
		t.Errorf("Artist = %q, want Cool Artist", res.Metadata.Artist)
	}
	if res.Metadata.Title != "Cool Song" {
		t.Errorf("Title = %q, want Cool Song", res.Metadata.Title)
	}
}

func TestMediaResolverDumpFailure(t *testing.T) {
	dumper := &fakeDumper{err: apperrors.NewSubprocessError("yt-dlp metadata dump failed", nil)}
	resolver := NewMediaResolver(dumper, nil)

	job := queue.NewJob("https://bandcamp.com/track/x")
	if _, err := resolver.Resolve(context.Background(), job, noReport); err == nil {
		t.Fatal("Expected error when metadata dump fails")
	}
}
