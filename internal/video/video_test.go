package video_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"easel/internal/testsupport"
	"easel/internal/video"
)

// stubFFmpeg writes a script that records its arguments and produces the
// requested output file, so Render can be exercised without a real encoder.
func stubFFmpeg(t *testing.T, dir string, exitCode int) (binary, argsFile string) {
	t.Helper()
	argsFile = filepath.Join(dir, "args.txt")
	binary = filepath.Join(dir, "ffmpeg-stub")
	var script string
	if exitCode == 0 {
		// The last argument is the output path.
		script = "#!/bin/sh\n" +
			"printf '%s\\n' \"$@\" > " + argsFile + "\n" +
			"for out; do :; done\n" +
			"printf 'mp4-bytes' > \"$out\"\n" +
			"exit 0\n"
	} else {
		script = "#!/bin/sh\n" +
			"printf '%s\\n' \"$@\" > " + argsFile + "\n" +
			"echo 'frame_0000.png: invalid data' >&2\n" +
			"exit 1\n"
	}
	if err := os.WriteFile(binary, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return binary, argsFile
}

func TestRenderInvokesEncoder(t *testing.T) {
	dir := t.TempDir()
	binary, argsFile := stubFFmpeg(t, dir, 0)

	cfg := testsupport.NewConfig(t)
	renderer := video.NewCLI(cfg, video.WithBinary(binary))

	out, err := renderer.Render(context.Background(), [][]byte{
		[]byte("frame-a"), []byte("frame-b"), []byte("frame-c"),
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if string(out) != "mp4-bytes" {
		t.Fatalf("unexpected output %q", out)
	}

	raw, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read recorded args: %v", err)
	}
	args := strings.Split(strings.TrimSpace(string(raw)), "\n")
	joined := strings.Join(args, " ")
	for _, want := range []string{
		"-c:v libx264",
		"-pix_fmt yuv420p",
		"-b:v 6000k",
		"-r 40",
		"frame_%04d.png",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("encoder args missing %q: %s", want, joined)
		}
	}
}

func TestRenderCleansScratchDir(t *testing.T) {
	dir := t.TempDir()
	binary, _ := stubFFmpeg(t, dir, 0)

	cfg := testsupport.NewConfig(t)
	renderer := video.NewCLI(cfg, video.WithBinary(binary))

	if _, err := renderer.Render(context.Background(), [][]byte{[]byte("frame")}); err != nil {
		t.Fatalf("render: %v", err)
	}

	entries, err := os.ReadDir(cfg.Paths.WorkDir)
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("scratch dir left behind: %v", entries)
	}
}

func TestRenderReportsEncoderFailure(t *testing.T) {
	dir := t.TempDir()
	binary, _ := stubFFmpeg(t, dir, 1)

	cfg := testsupport.NewConfig(t)
	renderer := video.NewCLI(cfg, video.WithBinary(binary))

	_, err := renderer.Render(context.Background(), [][]byte{[]byte("frame")})
	if err == nil || !strings.Contains(err.Error(), "invalid data") {
		t.Fatalf("expected encoder stderr in error, got %v", err)
	}
}

func TestRenderRejectsEmptyFrameList(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	renderer := video.NewCLI(cfg)

	if _, err := renderer.Render(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty frame list")
	}
}
