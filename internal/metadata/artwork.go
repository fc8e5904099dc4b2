package metadata

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"github.com/nfnt/resize"

	"github.com/hasod/hasod-go/internal/network"
)

// FetchArtwork downloads cover art and resizes it to the tagger's embed
// dimension. Returns the image bytes and their MIME type.
func (t *Tagger) FetchArtwork(ctx context.Context, url string) ([]byte, string, error) {
	if url == "" {
		return nil, "", fmt.Errorf("artwork URL cannot be empty")
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create artwork request: %w", err)
	}

	resp, err := network.GetDefaultClient().Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download artwork: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to download artwork: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read artwork data: %w", err)
	}

	// The decoded format decides the MIME type: servers lie in
	// Content-Type, and re-encoding keeps the decoded format anyway.
	if resized, format, err := resizeImage(imageData, t.artworkSize); err == nil {
		return resized, mimeFromFormat(format), nil
	}

	// Undecodable data still embeds fine, keep the original and fall
	// back to the header.
	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return imageData, mimeType, nil
}

func mimeFromFormat(format string) string {
	if format == "png" {
		return "image/png"
	}
	return "image/jpeg"
}

// resizeImage scales an image so its larger dimension equals targetSize,
// preserving aspect ratio. It also reports the decoded format.
func resizeImage(imageData []byte, targetSize int) ([]byte, string, error) {
	img, format, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width == targetSize && height == targetSize {
		return imageData, format, nil
	}

	var resized image.Image
	if width > height {
		resized = resize.Resize(uint(targetSize), 0, img, resize.Lanczos3)
	} else {
		resized = resize.Resize(0, uint(targetSize), img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, resized)
	default:
		err = jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 95})
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode resized image: %w", err)
	}

	return buf.Bytes(), format, nil
}
