package testsupport

import (
	"context"
	"image/color"
	"sync"
	"testing"

	"easel/internal/artifacts"
	"easel/internal/config"
	"easel/internal/daemon"
	"easel/internal/logging"
	"easel/internal/progress"
	"easel/internal/runstore"
	"easel/internal/services/textgen"
	"easel/internal/workflow"
)

// StubUpscaler satisfies the upscaler client interface without network
// access.
type StubUpscaler struct {
	Result []byte
	Err    error
	Calls  int
}

func (s *StubUpscaler) Upscale(ctx context.Context, image []byte, scale int) ([]byte, error) {
	s.Calls++
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Result, nil
}

// StubGenerator satisfies the textgen generator interface. When Started and
// Release are set, Generate signals step entry and then blocks until released
// or the context ends, letting tests interleave observers and cancellation
// with an in-flight run.
type StubGenerator struct {
	Result  textgen.Result
	Err     error
	Started chan struct{}
	Release chan struct{}

	startOnce sync.Once
}

func (s *StubGenerator) Generate(ctx context.Context, image []byte, extraContext string) (textgen.Result, error) {
	if s.Started != nil {
		s.startOnce.Do(func() { close(s.Started) })
	}
	if s.Release != nil {
		select {
		case <-s.Release:
		case <-ctx.Done():
			return textgen.Result{}, ctx.Err()
		}
	}
	return s.Result, s.Err
}

// StubRenderer satisfies the video renderer interface and records how many
// frames it was handed.
type StubRenderer struct {
	Frames int
}

func (s *StubRenderer) Render(ctx context.Context, frames [][]byte) ([]byte, error) {
	s.Frames = len(frames)
	return []byte("mp4-bytes"), nil
}

// DaemonFixture bundles a started daemon with its collaborators for API and
// client tests.
type DaemonFixture struct {
	Cfg      *config.Config
	Daemon   *daemon.Daemon
	Manager  *workflow.Manager
	Store    *runstore.Store
	Archive  *artifacts.Store
	Registry *progress.Registry
	Upscaler *StubUpscaler
	Textgen  *StubGenerator
	Renderer *StubRenderer
	Addr     string
}

// StartDaemon brings up a daemon on an ephemeral loopback port with stubbed
// external services and registers teardown with the test.
func StartDaemon(t testing.TB, cfg *config.Config) *DaemonFixture {
	t.Helper()

	logger := logging.NewNop()
	store := MustOpenStore(t, cfg)

	archive, err := artifacts.OpenStore(context.Background(), cfg.ArchiveBucketURL())
	if err != nil {
		t.Fatalf("open archive store: %v", err)
	}

	f := &DaemonFixture{
		Cfg:      cfg,
		Store:    store,
		Archive:  archive,
		Registry: progress.NewRegistry(cfg.Workflow.ObserverBuffer),
		Upscaler: &StubUpscaler{Result: PNGImage(t, 16, 16, color.White)},
		Textgen: &StubGenerator{Result: textgen.Result{
			Title:       "listing title",
			Description: "listing description",
			AltSEO:      "listing seo paragraph",
			Tags:        []string{"wall art", "print"},
		}},
		Renderer: &StubRenderer{},
	}

	f.Manager, err = workflow.NewManager(cfg, logger, store, archive, f.Registry, f.Upscaler, f.Textgen, f.Renderer)
	if err != nil {
		t.Fatalf("new workflow manager: %v", err)
	}

	f.Daemon, err = daemon.New(cfg, logger, store, archive, f.Manager)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := f.Daemon.Start(context.Background()); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(func() { _ = f.Daemon.Close() })

	f.Addr = f.Daemon.Addr()
	return f
}
