package pipeline

import "context"

// File is one artifact produced by a step, addressed by its archive path.
type File struct {
	Path string
	Data []byte
}

// Output carries everything a finished step hands back: archive files,
// progress metadata surfaced to observers, and an arbitrary value made
// available to dependent steps.
type Output struct {
	Files []File
	Meta  map[string]string
	Value any
}

// Inputs is what a step receives when it starts: the submitted image and the
// outputs of its declared dependencies.
type Inputs struct {
	RunID string
	Image []byte
	Deps  map[string]Output
}

// Step is a named unit of pipeline work. Needs lists the step names whose
// outputs this step consumes; they must all succeed before Run is invoked.
type Step struct {
	Name  string
	Needs []string
	Run   func(ctx context.Context, in Inputs) (Output, error)
}
