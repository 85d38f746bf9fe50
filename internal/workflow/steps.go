package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"easel/internal/artifacts"
	"easel/internal/imaging"
	"easel/internal/mockups"
	"easel/internal/pipeline"
	"easel/internal/runstore"
)

// Step names double as the identifiers reported on progress events.
const (
	StepResize  = "resize"
	StepMockups = "mockups"
	StepVideo   = "video"
	StepTexts   = "texts"
)

// buildSteps assembles the dependency graph for one run. Only requested
// features contribute steps; resize is unconditional because every other step
// and the archive build on the normalized image.
func (m *Manager) buildSteps(opts runstore.Options) []pipeline.Step {
	steps := []pipeline.Step{{
		Name: StepResize,
		Run: func(ctx context.Context, in pipeline.Inputs) (pipeline.Output, error) {
			return m.runResize(ctx, in.Image, opts)
		},
	}}

	if opts.Mockups {
		steps = append(steps, pipeline.Step{
			Name:  StepMockups,
			Needs: []string{StepResize},
			Run: func(ctx context.Context, in pipeline.Inputs) (pipeline.Output, error) {
				return m.runMockups(in.Deps[StepResize])
			},
		})
	}

	if opts.Video {
		needs := []string{StepResize}
		if opts.Mockups {
			needs = []string{StepMockups}
		}
		steps = append(steps, pipeline.Step{
			Name:  StepVideo,
			Needs: needs,
			Run: func(ctx context.Context, in pipeline.Inputs) (pipeline.Output, error) {
				return m.runVideo(ctx, in, opts)
			},
		})
	}

	if opts.Texts {
		steps = append(steps, pipeline.Step{
			Name: StepTexts,
			Run: func(ctx context.Context, in pipeline.Inputs) (pipeline.Output, error) {
				return m.runTexts(ctx, in.Image, opts)
			},
		})
	}

	return steps
}

// runResize normalizes the upload to a PNG stamped with the requested DPI,
// optionally routing it through the upscaler first.
func (m *Manager) runResize(ctx context.Context, image []byte, opts runstore.Options) (pipeline.Output, error) {
	source := image
	if opts.Enhance {
		upscaled, err := m.upscaler.Upscale(ctx, image, opts.Upscale)
		if err != nil {
			return pipeline.Output{}, fmt.Errorf("upscale: %w", err)
		}
		source = upscaled
	}

	processed, err := imaging.ToPNGWithDPI(source, opts.DPI)
	if err != nil {
		return pipeline.Output{}, fmt.Errorf("normalize image: %w", err)
	}

	return pipeline.Output{
		Files: []pipeline.File{{Path: "image/processed.png", Data: processed}},
		Meta: map[string]string{
			"bytes": strconv.Itoa(len(processed)),
			"dpi":   strconv.Itoa(opts.DPI),
		},
		Value: processed,
	}, nil
}

func (m *Manager) runMockups(resized pipeline.Output) (pipeline.Output, error) {
	processed, ok := resized.Value.([]byte)
	if !ok {
		return pipeline.Output{}, fmt.Errorf("resize output missing image data")
	}

	builder, err := mockups.Load(m.cfg)
	if err != nil {
		return pipeline.Output{}, err
	}
	rendered, err := builder.Compose(processed)
	if err != nil {
		return pipeline.Output{}, err
	}

	files := make([]pipeline.File, 0, len(rendered))
	for _, mock := range rendered {
		files = append(files, pipeline.File{Path: "mockups/" + mock.Name, Data: mock.Data})
	}
	return pipeline.Output{
		Files: files,
		Meta:  map[string]string{"count": strconv.Itoa(len(rendered))},
		Value: rendered,
	}, nil
}

// runVideo renders the preview slideshow. Frames come from the mockups when
// they were generated; otherwise the processed image repeats so the clip has
// some duration.
func (m *Manager) runVideo(ctx context.Context, in pipeline.Inputs, opts runstore.Options) (pipeline.Output, error) {
	var frames [][]byte
	if opts.Mockups {
		rendered, ok := in.Deps[StepMockups].Value.([]mockups.Rendered)
		if !ok {
			return pipeline.Output{}, fmt.Errorf("mockups output missing rendered frames")
		}
		for _, mock := range rendered {
			frames = append(frames, mock.Data)
		}
	} else {
		processed, ok := in.Deps[StepResize].Value.([]byte)
		if !ok {
			return pipeline.Output{}, fmt.Errorf("resize output missing image data")
		}
		frames = [][]byte{processed, processed, processed}
	}

	clip, err := m.video.Render(ctx, frames)
	if err != nil {
		return pipeline.Output{}, err
	}
	return pipeline.Output{
		Files: []pipeline.File{{Path: "video/preview.mp4", Data: clip}},
		Meta: map[string]string{
			"frames": strconv.Itoa(len(frames)),
			"bytes":  strconv.Itoa(len(clip)),
		},
	}, nil
}

func (m *Manager) runTexts(ctx context.Context, image []byte, opts runstore.Options) (pipeline.Output, error) {
	result, err := m.textgen.Generate(ctx, image, opts.Context)
	if err != nil {
		return pipeline.Output{}, err
	}

	texts := artifacts.Texts{
		Title:       result.Title,
		Description: result.Description,
		AltSEO:      result.AltSEO,
		Tags:        result.Tags,
	}
	encoded, err := json.Marshal(texts)
	if err != nil {
		return pipeline.Output{}, fmt.Errorf("encode listing texts: %w", err)
	}
	return pipeline.Output{
		Files: []pipeline.File{{Path: "texts/listing.json", Data: encoded}},
		Meta:  map[string]string{"tags": strconv.Itoa(len(result.Tags))},
		Value: texts,
	}, nil
}
