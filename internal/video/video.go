// Package video renders a short preview slideshow from a sequence of frames
// by shelling out to ffmpeg.
package video

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"easel/internal/config"
)

var commandContext = exec.CommandContext

// Renderer defines slideshow rendering behaviour.
type Renderer interface {
	Render(ctx context.Context, frames [][]byte) ([]byte, error)
}

// Option configures the CLI renderer.
type Option func(*CLI)

// WithBinary overrides the default ffmpeg binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// CLI wraps the ffmpeg command-line encoder.
type CLI struct {
	binary          string
	fps             int
	bitrate         string
	secondsPerFrame float64
	workDir         string
}

// NewCLI constructs a renderer from the configuration.
func NewCLI(cfg *config.Config, opts ...Option) *CLI {
	cli := &CLI{
		binary:          cfg.FFmpegBinary(),
		fps:             cfg.Video.FPS,
		bitrate:         cfg.Video.Bitrate,
		secondsPerFrame: cfg.Video.SecondsPerFrame,
		workDir:         cfg.Paths.WorkDir,
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Render writes the frames to a scratch directory, concatenates them into an
// MP4, and returns the encoded bytes. Each frame holds for the configured
// duration; ffmpeg resamples to the target frame rate.
func (c *CLI) Render(ctx context.Context, frames [][]byte) ([]byte, error) {
	if len(frames) == 0 {
		return nil, errors.New("no frames to render")
	}

	dir, err := os.MkdirTemp(c.workDir, "easel-video-")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	for i, frame := range frames {
		name := filepath.Join(dir, fmt.Sprintf("frame_%04d.png", i))
		if err := os.WriteFile(name, frame, 0o644); err != nil {
			return nil, fmt.Errorf("write frame %d: %w", i, err)
		}
	}

	inputRate := 1.0 / c.secondsPerFrame
	outputPath := filepath.Join(dir, "preview.mp4")
	args := []string{
		"-y",
		"-framerate", strconv.FormatFloat(inputRate, 'f', -1, 64),
		"-i", filepath.Join(dir, "frame_%04d.png"),
		"-r", strconv.Itoa(c.fps),
		"-c:v", "libx264",
		"-b:v", c.bitrate,
		"-pix_fmt", "yuv420p",
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		outputPath,
	}

	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg render failed: %s: %w", lastLine(output), err)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("read rendered video: %w", err)
	}
	return data, nil
}

func lastLine(output []byte) string {
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}

var _ Renderer = (*CLI)(nil)
