package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"easel/internal/logging"
	"easel/internal/progress"
)

// cancelPollInterval bounds how quickly a cancel request propagates into the
// per-run context handed to steps. Checkpoints at step start remain the
// authoritative cancellation gate.
const cancelPollInterval = 200 * time.Millisecond

// Orchestrator drives step graphs for submitted runs.
type Orchestrator struct {
	registry *progress.Registry
	logger   *slog.Logger
}

// New constructs an orchestrator publishing into the given registry.
func New(registry *progress.Registry, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		registry: registry,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
	}
}

type runState struct {
	mu       sync.Mutex
	outputs  map[string]Output
	ok       map[string]bool
	firstErr *StepError
}

func (s *runState) succeeded(step string, out Output) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputs[step] = out
	s.ok[step] = true
}

func (s *runState) failed(step string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.firstErr == nil {
		s.firstErr = &StepError{Step: step, Err: err}
	}
}

func (s *runState) failure() *StepError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firstErr
}

func (s *runState) depsSatisfied(needs []string) (map[string]Output, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deps := make(map[string]Output, len(needs))
	for _, need := range needs {
		if !s.ok[need] {
			return nil, false
		}
		deps[need] = s.outputs[need]
	}
	return deps, true
}

// Run executes the step graph for runID against the submitted image. It
// returns the outputs of all steps on success; on failure or cancellation all
// collected outputs are discarded and the first failure (or ErrCancelled) is
// returned. The caller observes the same outcome on the progress stream.
func (o *Orchestrator) Run(ctx context.Context, runID string, image []byte, steps []Step) (map[string]Output, error) {
	if err := validateGraph(steps); err != nil {
		return nil, err
	}

	o.registry.Begin(runID)
	defer o.registry.End(runID)

	logger := o.logger.With(logging.String(logging.FieldRunID, runID))
	start := time.Now()

	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()
	go o.watchCancel(runCtx, stopRun, runID)

	state := &runState{
		outputs: make(map[string]Output, len(steps)),
		ok:      make(map[string]bool, len(steps)),
	}
	settled := make(map[string]chan struct{}, len(steps))
	for _, step := range steps {
		settled[step.Name] = make(chan struct{})
	}

	var wg sync.WaitGroup
	wg.Add(len(steps))
	for _, step := range steps {
		go func(step Step) {
			defer wg.Done()
			defer close(settled[step.Name])
			o.runStep(runCtx, runID, logger, state, settled, step, image)
		}(step)
	}
	wg.Wait()

	cancelled := o.registry.Cancelled(runID)
	failure := state.failure()

	switch {
	case cancelled:
		// The registry already synthesized the terminal cancel event.
		logger.Info("run cancelled",
			logging.String(logging.FieldEventType, "run_cancelled"),
			logging.Duration("run_duration", time.Since(start)),
		)
		return nil, ErrCancelled
	case failure != nil:
		o.registry.Publish(runID, progress.RunError(failure.Step, failure.Err.Error()))
		logger.Error("run failed",
			logging.String(logging.FieldStep, failure.Step),
			logging.Error(failure.Err),
			logging.Duration("run_duration", time.Since(start)),
		)
		return nil, failure
	default:
		o.registry.Publish(runID, progress.RunDone())
		logger.Info("run completed",
			logging.String(logging.FieldEventType, "run_complete"),
			logging.Int("steps", len(steps)),
			logging.Duration("run_duration", time.Since(start)),
		)
		return state.outputs, nil
	}
}

func (o *Orchestrator) runStep(
	ctx context.Context,
	runID string,
	logger *slog.Logger,
	state *runState,
	settled map[string]chan struct{},
	step Step,
	image []byte,
) {
	for _, need := range step.Needs {
		select {
		case <-settled[need]:
		case <-ctx.Done():
			return
		}
	}

	deps, ready := state.depsSatisfied(step.Needs)
	if !ready {
		// A dependency failed or was skipped; this step never starts.
		return
	}
	if state.failure() != nil {
		return
	}

	// Cancellation checkpoint: consult the flag before starting, never after.
	if o.registry.Cancelled(runID) {
		return
	}

	stepLogger := logger.With(logging.String(logging.FieldStep, step.Name))
	stepStart := time.Now()
	o.registry.Publish(runID, progress.Started(step.Name))
	stepLogger.Info("step started", logging.String(logging.FieldEventType, "step_start"))

	out, err := step.Run(logging.WithStep(ctx, step.Name), Inputs{
		RunID: runID,
		Image: image,
		Deps:  deps,
	})
	if err != nil {
		state.failed(step.Name, err)
		o.registry.Publish(runID, progress.Failed(step.Name))
		stepLogger.Error("step failed",
			logging.Error(err),
			logging.Duration("step_duration", time.Since(stepStart)),
		)
		return
	}

	// A cancel may have landed while the step was executing; its result is
	// discarded with the rest of the run, but the completion is still
	// reported so observers see the step settle.
	state.succeeded(step.Name, out)
	o.registry.Publish(runID, progress.Done(step.Name, out.Meta))
	stepLogger.Info("step completed",
		logging.String(logging.FieldEventType, "step_complete"),
		logging.Duration("step_duration", time.Since(stepStart)),
	)
}

// watchCancel propagates a recorded cancel request into the run context so
// network-bound steps abort early instead of running to completion unused.
func (o *Orchestrator) watchCancel(ctx context.Context, stopRun context.CancelFunc, runID string) {
	ticker := time.NewTicker(cancelPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if o.registry.Cancelled(runID) {
				stopRun()
				return
			}
		}
	}
}

func validateGraph(steps []Step) error {
	if len(steps) == 0 {
		return graphErrorf("no steps configured")
	}
	index := make(map[string][]string, len(steps))
	for _, step := range steps {
		if step.Name == "" {
			return graphErrorf("step with empty name")
		}
		if step.Run == nil {
			return graphErrorf("step %s has no operation", step.Name)
		}
		if _, dup := index[step.Name]; dup {
			return graphErrorf("duplicate step %s", step.Name)
		}
		index[step.Name] = step.Needs
	}
	for name, needs := range index {
		for _, need := range needs {
			if _, ok := index[need]; !ok {
				return graphErrorf("step %s depends on unknown step %s", name, need)
			}
		}
	}

	// Kahn-style settling detects cycles without running anything.
	resolved := make(map[string]bool, len(index))
	for len(resolved) < len(index) {
		progressed := false
		for name, needs := range index {
			if resolved[name] {
				continue
			}
			ready := true
			for _, need := range needs {
				if !resolved[need] {
					ready = false
					break
				}
			}
			if ready {
				resolved[name] = true
				progressed = true
			}
		}
		if !progressed {
			return graphErrorf("dependency cycle detected")
		}
	}
	return nil
}
