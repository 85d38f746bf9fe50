package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// RunOptions mirrors the step selection a run was submitted with.
type RunOptions struct {
	DPI     int    `json:"dpi"`
	Enhance bool   `json:"enhance"`
	Upscale int    `json:"upscale"`
	Mockups bool   `json:"mockups"`
	Video   bool   `json:"video"`
	Texts   bool   `json:"texts"`
	Context string `json:"context,omitempty"`
}

// Run is the transport representation of a run record.
type Run struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"`
	Options      RunOptions `json:"options"`
	ErrorStep    string     `json:"errorStep,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	ArchiveKey   string     `json:"archiveKey,omitempty"`
	ArchiveBytes int64      `json:"archiveBytes,omitempty"`
	CreatedAt    string     `json:"createdAt"`
	FinishedAt   string     `json:"finishedAt,omitempty"`
}

// RunListResponse wraps the run listing endpoint payload.
type RunListResponse struct {
	Runs []Run `json:"runs"`
}

// RunResponse wraps a single run payload.
type RunResponse struct {
	Run Run `json:"run"`
}

// CancelResponse reports the outcome of a cancel request.
type CancelResponse struct {
	ID        string `json:"id"`
	Cancelled bool   `json:"cancelled"`
	Detail    string `json:"detail,omitempty"`
}

// CheckResult is the transport form of a preflight check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates runtime information for the status endpoint.
type DaemonStatus struct {
	Running      bool          `json:"running"`
	PID          int           `json:"pid"`
	RunDBPath    string        `json:"runDbPath"`
	LockFilePath string        `json:"lockFilePath"`
	ActiveRuns   int           `json:"activeRuns"`
	Checks       []CheckResult `json:"checks"`
}
