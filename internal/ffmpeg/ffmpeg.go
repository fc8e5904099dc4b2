// Package ffmpeg shells out to ffmpeg for the one job the tag writers
// cannot do in-process: remuxing a cover image into an audio stream
// without re-encoding.
package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/hasod/hasod-go/internal/errors"
)

// Runner wraps an ffmpeg binary.
type Runner struct {
	binPath string
	logger  *zap.Logger
}

// NewRunner creates an ffmpeg runner. binPath may be a bare binary name
// resolved via PATH.
func NewRunner(binPath string, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		binPath: binPath,
		logger:  logger,
	}
}

// Available reports whether the ffmpeg binary can be found. Callers use
// this to skip artwork embedding instead of failing the job.
func (r *Runner) Available() bool {
	if strings.ContainsAny(r.binPath, "/\\") {
		_, err := os.Stat(r.binPath)
		return err == nil
	}
	_, err := exec.LookPath(r.binPath)
	return err == nil
}

// EmbedArtwork copies the audio stream and attaches the image file as a
// front cover, then replaces the original file. The audio is never
// re-encoded.
func (r *Runner) EmbedArtwork(ctx context.Context, audioPath, artworkPath string) error {
	tempOutput := strings.TrimSuffix(audioPath, ".mp3") + ".temp.mp3"

	args := []string{
		"-i", audioPath,
		"-i", artworkPath,
		"-map", "0:a",
		"-map", "1:0",
		"-c", "copy",
		"-id3v2_version", "3",
		"-metadata:s:v", "title=Album cover",
		"-metadata:s:v", "comment=Cover (front)",
		"-y",
		tempOutput,
	}

	r.logger.Debug("embedding artwork",
		zap.String("audio", audioPath),
		zap.String("artwork", artworkPath))

	cmd := exec.CommandContext(ctx, r.binPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(tempOutput)
		return apperrors.NewSubprocessError(
			fmt.Sprintf("ffmpeg failed: %s", lastLine(string(output))), err)
	}

	if err := os.Rename(tempOutput, audioPath); err != nil {
		os.Remove(tempOutput)
		return apperrors.NewFileSystemError("failed to replace audio file with embedded version", err)
	}

	return nil
}

// lastLine returns the final non-empty line of command output, which is
// where ffmpeg puts its error summary.
func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return "no output"
}
