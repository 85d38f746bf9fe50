package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"easel/internal/pipeline"
	"easel/internal/progress"
)

type recorder struct {
	mu    sync.Mutex
	order []string
}

func (r *recorder) mark(step string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, step)
}

func (r *recorder) ran() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

func (r *recorder) index(step string) int {
	for i, name := range r.ran() {
		if name == step {
			return i
		}
	}
	return -1
}

func okStep(name string, rec *recorder, needs ...string) pipeline.Step {
	return pipeline.Step{
		Name:  name,
		Needs: needs,
		Run: func(ctx context.Context, in pipeline.Inputs) (pipeline.Output, error) {
			rec.mark(name)
			return pipeline.Output{Value: name}, nil
		},
	}
}

func TestRunRespectsDependencyOrder(t *testing.T) {
	registry := progress.NewRegistry(16)
	orch := pipeline.New(registry, nil)
	rec := &recorder{}

	steps := []pipeline.Step{
		okStep("video", rec, "mockups"),
		okStep("mockups", rec, "resize"),
		okStep("resize", rec),
		okStep("texts", rec),
	}

	outputs, err := orch.Run(context.Background(), "run-1", []byte("img"), steps)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(outputs) != 4 {
		t.Fatalf("expected 4 outputs, got %d", len(outputs))
	}
	if rec.index("resize") > rec.index("mockups") || rec.index("mockups") > rec.index("video") {
		t.Fatalf("dependency order violated: %v", rec.ran())
	}
}

func TestRunPassesDependencyOutputs(t *testing.T) {
	registry := progress.NewRegistry(16)
	orch := pipeline.New(registry, nil)

	var got any
	steps := []pipeline.Step{
		{
			Name: "resize",
			Run: func(ctx context.Context, in pipeline.Inputs) (pipeline.Output, error) {
				return pipeline.Output{Value: "processed"}, nil
			},
		},
		{
			Name:  "mockups",
			Needs: []string{"resize"},
			Run: func(ctx context.Context, in pipeline.Inputs) (pipeline.Output, error) {
				got = in.Deps["resize"].Value
				return pipeline.Output{}, nil
			},
		},
	}

	if _, err := orch.Run(context.Background(), "run-1", nil, steps); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got != "processed" {
		t.Fatalf("dependent step did not receive upstream output, got %v", got)
	}
}

func TestFailureShortCircuitsDependents(t *testing.T) {
	registry := progress.NewRegistry(16)
	orch := pipeline.New(registry, nil)
	rec := &recorder{}

	boom := errors.New("decode failed")
	steps := []pipeline.Step{
		{
			Name: "resize",
			Run: func(ctx context.Context, in pipeline.Inputs) (pipeline.Output, error) {
				return pipeline.Output{}, boom
			},
		},
		okStep("mockups", rec, "resize"),
		okStep("video", rec, "mockups"),
	}

	_, err := orch.Run(context.Background(), "run-1", nil, steps)
	var stepErr *pipeline.StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("expected StepError, got %v", err)
	}
	if stepErr.Step != "resize" || !errors.Is(err, boom) {
		t.Fatalf("unexpected failure attribution: %v", err)
	}
	if len(rec.ran()) != 0 {
		t.Fatalf("dependents of a failed step must not start, ran %v", rec.ran())
	}
}

func TestFailureStillLetsIndependentWorkSettle(t *testing.T) {
	registry := progress.NewRegistry(16)
	orch := pipeline.New(registry, nil)

	textsStarted := make(chan struct{})
	release := make(chan struct{})
	var textsDone bool
	steps := []pipeline.Step{
		{
			Name: "resize",
			Run: func(ctx context.Context, in pipeline.Inputs) (pipeline.Output, error) {
				<-textsStarted
				return pipeline.Output{}, errors.New("boom")
			},
		},
		{
			Name: "texts",
			Run: func(ctx context.Context, in pipeline.Inputs) (pipeline.Output, error) {
				close(textsStarted)
				<-release
				textsDone = true
				return pipeline.Output{}, nil
			},
		},
	}

	go func() {
		<-textsStarted
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()

	if _, err := orch.Run(context.Background(), "run-1", nil, steps); err == nil {
		t.Fatal("expected run failure")
	}
	if !textsDone {
		t.Fatal("in-flight independent step should have settled before Run returned")
	}
}

func TestCancelLatchedBeforeRunSkipsAllSteps(t *testing.T) {
	registry := progress.NewRegistry(16)
	orch := pipeline.New(registry, nil)
	rec := &recorder{}

	// The run's owner marks it live before launching the graph; a cancel in
	// that window must stick and stop every step at its start checkpoint.
	registry.Begin("run-1")
	defer registry.End("run-1")
	registry.Cancel("run-1")

	steps := []pipeline.Step{
		okStep("resize", rec),
		okStep("mockups", rec, "resize"),
	}
	_, err := orch.Run(context.Background(), "run-1", nil, steps)
	if !errors.Is(err, pipeline.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if len(rec.ran()) != 0 {
		t.Fatalf("steps ran despite pre-run cancel: %v", rec.ran())
	}
}

func TestCancelBeforeStartSkipsSteps(t *testing.T) {
	registry := progress.NewRegistry(16)
	orch := pipeline.New(registry, nil)
	rec := &recorder{}

	started := make(chan struct{})
	release := make(chan struct{})
	steps := []pipeline.Step{
		{
			Name: "resize",
			Run: func(ctx context.Context, in pipeline.Inputs) (pipeline.Output, error) {
				close(started)
				<-release
				return pipeline.Output{}, nil
			},
		},
		okStep("mockups", rec, "resize"),
	}

	go func() {
		<-started
		registry.Cancel("run-1")
		close(release)
	}()

	_, err := orch.Run(context.Background(), "run-1", nil, steps)
	if !errors.Is(err, pipeline.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if len(rec.ran()) != 0 {
		t.Fatalf("step started after cancel checkpoint: %v", rec.ran())
	}
}

func TestCancelEmitsSingleTerminalEvent(t *testing.T) {
	registry := progress.NewRegistry(16)
	orch := pipeline.New(registry, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	steps := []pipeline.Step{
		{
			Name: "resize",
			Run: func(ctx context.Context, in pipeline.Inputs) (pipeline.Output, error) {
				close(started)
				<-release
				return pipeline.Output{}, nil
			},
		},
	}

	_, sub := registry.Subscribe("run-1")
	go func() {
		<-started
		registry.Cancel("run-1")
		close(release)
	}()

	_, err := orch.Run(context.Background(), "run-1", nil, steps)
	if !errors.Is(err, pipeline.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	sub.Close()

	terminals := 0
	for event := range sub.Events() {
		if event.Terminal() {
			terminals++
			if event.Detail != progress.CancelledDetail {
				t.Fatalf("unexpected terminal detail %q", event.Detail)
			}
		}
	}
	if terminals != 1 {
		t.Fatalf("expected exactly one terminal event, got %d", terminals)
	}
}

func TestCancelPropagatesIntoStepContext(t *testing.T) {
	registry := progress.NewRegistry(16)
	orch := pipeline.New(registry, nil)

	started := make(chan struct{})
	steps := []pipeline.Step{
		{
			Name: "resize",
			Run: func(ctx context.Context, in pipeline.Inputs) (pipeline.Output, error) {
				close(started)
				select {
				case <-ctx.Done():
					return pipeline.Output{}, ctx.Err()
				case <-time.After(5 * time.Second):
					return pipeline.Output{}, nil
				}
			},
		},
	}

	go func() {
		<-started
		registry.Cancel("run-1")
	}()

	start := time.Now()
	_, err := orch.Run(context.Background(), "run-1", nil, steps)
	if !errors.Is(err, pipeline.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("cancel did not reach the in-flight step context")
	}
}

func TestRunPublishesTerminalDoneWithStepTrail(t *testing.T) {
	registry := progress.NewRegistry(16)
	orch := pipeline.New(registry, nil)
	rec := &recorder{}

	_, sub := registry.Subscribe("run-1")
	steps := []pipeline.Step{
		okStep("resize", rec),
		okStep("mockups", rec, "resize"),
	}
	if _, err := orch.Run(context.Background(), "run-1", nil, steps); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	sub.Close()

	var last progress.Event
	count := 0
	for event := range sub.Events() {
		last = event
		count++
	}
	// started+done per step plus the terminal.
	if count != 5 {
		t.Fatalf("expected 5 events, got %d", count)
	}
	if last.Type != progress.EventDone {
		t.Fatalf("expected terminal done last, got %#v", last)
	}
}

func TestGraphValidation(t *testing.T) {
	registry := progress.NewRegistry(16)
	orch := pipeline.New(registry, nil)
	noop := func(ctx context.Context, in pipeline.Inputs) (pipeline.Output, error) {
		return pipeline.Output{}, nil
	}

	cases := []struct {
		name  string
		steps []pipeline.Step
	}{
		{"empty graph", nil},
		{"unknown dependency", []pipeline.Step{
			{Name: "mockups", Needs: []string{"resize"}, Run: noop},
		}},
		{"duplicate step", []pipeline.Step{
			{Name: "resize", Run: noop},
			{Name: "resize", Run: noop},
		}},
		{"cycle", []pipeline.Step{
			{Name: "a", Needs: []string{"b"}, Run: noop},
			{Name: "b", Needs: []string{"a"}, Run: noop},
		}},
		{"missing operation", []pipeline.Step{
			{Name: "resize"},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := orch.Run(context.Background(), "run-1", nil, tc.steps)
			var graphErr *pipeline.GraphError
			if !errors.As(err, &graphErr) {
				t.Fatalf("expected GraphError, got %v", err)
			}
		})
	}
}
