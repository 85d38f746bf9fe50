package daemon

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"easel/internal/api"
	"easel/internal/logging"
	"easel/internal/pipeline"
	"easel/internal/progress"
	"easel/internal/runstore"
	"easel/internal/workflow"
)

// runIDHeader carries the run identifier on process responses. Clients that
// want to observe progress submit their own identifier in the same header and
// subscribe to it before uploading.
const runIDHeader = "X-Easel-Run"

const maxUploadBytes = 64 << 20

// handleProcess accepts a multipart upload, runs the pipeline synchronously,
// and responds with the ZIP bundle.
func (s *apiServer) handleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("parse upload: %v", err))
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()
	image, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("read upload: %v", err))
		return
	}
	if len(image) == 0 {
		s.writeError(w, http.StatusBadRequest, "empty image upload")
		return
	}

	opts, err := parseOptions(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runID := requestedRunID(r)
	if runID == "" {
		runID = s.daemon.manager.NewRunID()
	}

	result, err := s.daemon.manager.Process(r.Context(), runID, image, opts)
	if err != nil {
		w.Header().Set(runIDHeader, runID)
		s.writeProcessError(w, err)
		return
	}

	w.Header().Set(runIDHeader, result.RunID)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="package.zip"`)
	w.Header().Set("Content-Length", strconv.FormatInt(result.ArchiveBytes, 10))
	if _, err := w.Write(result.Archive); err != nil {
		s.logger.Warn("write archive response", logging.Error(err))
	}
}

func (s *apiServer) writeProcessError(w http.ResponseWriter, err error) {
	var stepErr *pipeline.StepError
	var graphErr *pipeline.GraphError
	switch {
	case errors.Is(err, pipeline.ErrCancelled):
		s.writeError(w, http.StatusConflict, progress.CancelledDetail)
	case errors.As(err, &graphErr):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &stepErr):
		s.writeError(w, http.StatusInternalServerError, err.Error())
	default:
		s.writeError(w, http.StatusBadRequest, err.Error())
	}
}

func (s *apiServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var statuses []runstore.Status
	for _, value := range r.URL.Query()["status"] {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		statuses = append(statuses, runstore.Status(trimmed))
	}

	runs, err := s.daemon.store.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.RunListResponse{Runs: api.FromRuns(runs)})
}

func (s *apiServer) handleRunGet(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	run, err := s.daemon.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if run == nil {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.RunResponse{Run: api.FromRun(run)})
}

func (s *apiServer) handleRunCancel(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	err := s.daemon.manager.Cancel(r.Context(), id)
	switch {
	case err == nil:
		s.writeJSON(w, http.StatusOK, api.CancelResponse{ID: id, Cancelled: true})
	case errors.Is(err, workflow.ErrRunFinished):
		s.writeJSON(w, http.StatusConflict, api.CancelResponse{ID: id, Detail: "run already finished"})
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) handleRunArchive(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	run, err := s.daemon.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if run == nil || run.ArchiveKey == "" {
		s.writeError(w, http.StatusNotFound, "archive not found")
		return
	}
	data, err := s.daemon.archive.Get(r.Context(), run.ArchiveKey)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "archive not found")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="package.zip"`)
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("write archive response", logging.Error(err))
	}
}

func parseOptions(r *http.Request) (runstore.Options, error) {
	opts := runstore.Options{
		DPI:     300,
		Upscale: 2,
		Context: strings.TrimSpace(r.FormValue("context")),
	}
	if value := strings.TrimSpace(r.FormValue("dpi")); value != "" {
		dpi, err := strconv.Atoi(value)
		if err != nil {
			return opts, fmt.Errorf("invalid dpi %q", value)
		}
		opts.DPI = dpi
	}
	if opts.DPI < 72 || opts.DPI > 1200 {
		return opts, fmt.Errorf("dpi must be between 72 and 1200, got %d", opts.DPI)
	}
	if value := strings.TrimSpace(r.FormValue("upscale")); value != "" {
		scale, err := strconv.Atoi(value)
		if err != nil {
			return opts, fmt.Errorf("invalid upscale %q", value)
		}
		opts.Upscale = scale
	}
	if opts.Upscale != 2 && opts.Upscale != 4 {
		return opts, fmt.Errorf("upscale must be 2 or 4, got %d", opts.Upscale)
	}

	var err error
	if opts.Enhance, err = parseBool(r, "enhance"); err != nil {
		return opts, err
	}
	if opts.Mockups, err = parseBool(r, "mockups"); err != nil {
		return opts, err
	}
	if opts.Video, err = parseBool(r, "video"); err != nil {
		return opts, err
	}
	if opts.Texts, err = parseBool(r, "texts"); err != nil {
		return opts, err
	}
	return opts, nil
}

func parseBool(r *http.Request, field string) (bool, error) {
	value := strings.TrimSpace(r.FormValue(field))
	if value == "" {
		return false, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q", field, value)
	}
	return parsed, nil
}

func requestedRunID(r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(runIDHeader))
	if id == "" {
		id = strings.TrimSpace(r.FormValue("run"))
	}
	if strings.ContainsAny(id, "/\\") {
		return ""
	}
	return id
}
