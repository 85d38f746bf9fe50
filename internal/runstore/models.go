package runstore

import "time"

// Status represents the lifecycle of a persisted run record.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Options records the step selection a run was submitted with.
type Options struct {
	DPI     int    `json:"dpi"`
	Enhance bool   `json:"enhance"`
	Upscale int    `json:"upscale"`
	Mockups bool   `json:"mockups"`
	Video   bool   `json:"video"`
	Texts   bool   `json:"texts"`
	Context string `json:"context,omitempty"`
}

// Run is one persisted run record.
type Run struct {
	ID           string
	Status       Status
	Options      Options
	ErrorStep    string
	ErrorMessage string
	ArchiveKey   string
	ArchiveBytes int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	FinishedAt   *time.Time
}
