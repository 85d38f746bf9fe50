package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"easel/internal/artifacts"
	"easel/internal/config"
	"easel/internal/logging"
	"easel/internal/pipeline"
	"easel/internal/preflight"
	"easel/internal/progress"
	"easel/internal/runstore"
	"easel/internal/services/textgen"
	"easel/internal/services/upscaler"
	"easel/internal/video"
)

// ErrRunFinished reports a cancel request for a run that already reached a
// terminal state.
var ErrRunFinished = errors.New("run already finished")

// Result is the outcome of a completed run.
type Result struct {
	RunID        string
	Archive      []byte
	ArchiveKey   string
	ArchiveBytes int64
}

// Manager owns the run lifecycle from accepted upload to archived bundle.
type Manager struct {
	cfg          *config.Config
	logger       *slog.Logger
	store        *runstore.Store
	archive      *artifacts.Store
	registry     *progress.Registry
	orchestrator *pipeline.Orchestrator

	upscaler upscaler.Client
	textgen  textgen.Generator
	video    video.Renderer
}

// NewManager wires the manager with its collaborators.
func NewManager(
	cfg *config.Config,
	logger *slog.Logger,
	store *runstore.Store,
	archive *artifacts.Store,
	registry *progress.Registry,
	upscale upscaler.Client,
	texts textgen.Generator,
	renderer video.Renderer,
) (*Manager, error) {
	if cfg == nil || store == nil || archive == nil || registry == nil {
		return nil, errors.New("workflow manager requires config, store, archive, and registry")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:          cfg,
		logger:       logging.NewComponentLogger(logger, "workflow"),
		store:        store,
		archive:      archive,
		registry:     registry,
		orchestrator: pipeline.New(registry, logger),
		upscaler:     upscale,
		textgen:      texts,
		video:        renderer,
	}, nil
}

// NewRunID allocates the identifier a run will be tracked under. Callers that
// want to observe progress from the first event subscribe before Process.
func (m *Manager) NewRunID() string {
	return uuid.NewString()
}

// Process executes one run to completion. The returned Result carries the
// archive bytes for immediate delivery plus the key it was stored under.
func (m *Manager) Process(ctx context.Context, runID string, image []byte, opts runstore.Options) (*Result, error) {
	if runID == "" {
		runID = m.NewRunID()
	}
	if len(image) == 0 {
		return nil, errors.New("empty image upload")
	}
	if err := preflight.ForRun(m.cfg, opts); err != nil {
		return nil, err
	}

	// Mark the run live before the record exists so a cancel racing the
	// insert still latches.
	m.registry.Begin(runID)
	defer m.registry.End(runID)

	if _, err := m.store.Create(ctx, runID, opts); err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}

	ctx = logging.WithRunID(ctx, runID)
	log := logging.WithContext(ctx, m.logger)
	started := time.Now()
	log.Info("run started",
		logging.Bool("enhance", opts.Enhance),
		logging.Bool("mockups", opts.Mockups),
		logging.Bool("video", opts.Video),
		logging.Bool("texts", opts.Texts))

	outputs, err := m.orchestrator.Run(ctx, runID, image, m.buildSteps(opts))
	if err != nil {
		return nil, m.finishFailed(ctx, log, runID, err)
	}

	bundle, err := m.assemble(runID, opts, outputs)
	if err != nil {
		return nil, m.finishFailed(ctx, log, runID, &pipeline.StepError{Step: "archive", Err: err})
	}

	key, err := m.archive.Put(ctx, runID, bundle)
	if err != nil {
		return nil, m.finishFailed(ctx, log, runID, &pipeline.StepError{Step: "archive", Err: err})
	}

	size := int64(len(bundle))
	if err := m.store.Finish(ctx, runID, runstore.StatusCompleted, "", "", key, size); err != nil {
		log.Error("record run completion", logging.Error(err))
	}
	log.Info("run completed",
		logging.String("archive", key),
		logging.Int64("bytes", size),
		logging.Duration("elapsed", time.Since(started)))

	return &Result{RunID: runID, Archive: bundle, ArchiveKey: key, ArchiveBytes: size}, nil
}

// Cancel requests cooperative cancellation of an active run. An unknown run
// id is acknowledged as a no-op: the registry latches the flag when it is
// already tracking the run and ignores the request otherwise.
func (m *Manager) Cancel(ctx context.Context, runID string) error {
	run, err := m.store.Get(ctx, runID)
	if err != nil {
		return err
	}
	if run == nil {
		m.registry.Cancel(runID)
		return nil
	}
	if run.Status.Terminal() {
		return ErrRunFinished
	}
	m.registry.Cancel(runID)
	return nil
}

// Subscribe attaches an observer to a run's progress feed.
func (m *Manager) Subscribe(runID string) ([]progress.Event, *progress.Subscription) {
	return m.registry.Subscribe(runID)
}

func (m *Manager) finishFailed(ctx context.Context, log *slog.Logger, runID string, runErr error) error {
	status := runstore.StatusFailed
	step := ""
	message := runErr.Error()

	var stepErr *pipeline.StepError
	switch {
	case errors.Is(runErr, pipeline.ErrCancelled):
		status = runstore.StatusCancelled
		message = progress.CancelledDetail
	case errors.As(runErr, &stepErr):
		step = stepErr.Step
		message = stepErr.Err.Error()
	}

	if err := m.store.Finish(ctx, runID, status, step, message, "", 0); err != nil {
		log.Error("record run outcome", logging.Error(err))
	}
	if status == runstore.StatusCancelled {
		log.Info("run cancelled")
	} else {
		log.Warn("run failed", logging.String("step", step), logging.String("detail", message))
	}
	return runErr
}

// assemble flattens step outputs into the archive, steps ordered as declared
// so mockups land together and the processed image leads.
func (m *Manager) assemble(runID string, opts runstore.Options, outputs map[string]pipeline.Output) ([]byte, error) {
	manifest := &artifacts.Manifest{
		RunID:   runID,
		DPI:     opts.DPI,
		Enhance: opts.Enhance,
		Upscale: opts.Upscale,
		Mockups: opts.Mockups,
		Video:   opts.Video,
		Texts:   opts.Texts,
	}
	if texts, ok := outputs[StepTexts].Value.(artifacts.Texts); ok {
		manifest.ListingTexts = &texts
	}

	var files []artifacts.File
	for _, step := range []string{StepResize, StepMockups, StepVideo, StepTexts} {
		output, ok := outputs[step]
		if !ok {
			continue
		}
		for _, f := range output.Files {
			files = append(files, artifacts.File{Name: f.Path, Data: f.Data})
		}
	}
	return artifacts.BuildArchive(manifest, files)
}
