// Package client provides HTTP access to a running easel daemon for the CLI.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"easel/internal/api"
	"easel/internal/progress"
	"easel/internal/runstore"
)

// Client talks to the daemon's HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New constructs a client for the daemon at the given host:port.
func New(bind string) *Client {
	base := strings.TrimSpace(bind)
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		// Process uploads block until the pipeline finishes, so the
		// client itself carries no timeout; callers bound requests with
		// their context.
		httpClient: &http.Client{},
	}
}

// ProcessResult is the outcome of a process upload.
type ProcessResult struct {
	RunID   string
	Archive []byte
}

// Process uploads an image with the given options and returns the finished
// archive. A non-empty runID is forwarded so observers subscribed to it see
// the run's progress.
func (c *Client) Process(ctx context.Context, runID string, filename string, image []byte, opts runstore.Options) (*ProcessResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("write upload: %w", err)
	}
	fields := map[string]string{
		"dpi":     strconv.Itoa(opts.DPI),
		"enhance": strconv.FormatBool(opts.Enhance),
		"upscale": strconv.Itoa(opts.Upscale),
		"mockups": strconv.FormatBool(opts.Mockups),
		"video":   strconv.FormatBool(opts.Video),
		"texts":   strconv.FormatBool(opts.Texts),
	}
	if opts.Context != "" {
		fields["context"] = opts.Context
	}
	for field, value := range fields {
		if err := writer.WriteField(field, value); err != nil {
			return nil, fmt.Errorf("write field %s: %w", field, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/process", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if runID != "" {
		req.Header.Set("X-Easel-Run", runID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("process request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	archive, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	return &ProcessResult{
		RunID:   resp.Header.Get("X-Easel-Run"),
		Archive: archive,
	}, nil
}

// Status retrieves daemon runtime information.
func (c *Client) Status(ctx context.Context) (*api.DaemonStatus, error) {
	var status api.DaemonStatus
	if err := c.getJSON(ctx, "/api/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Runs lists run records, optionally filtered by status.
func (c *Client) Runs(ctx context.Context, statuses ...string) ([]api.Run, error) {
	path := "/api/runs"
	if len(statuses) > 0 {
		query := make([]string, 0, len(statuses))
		for _, status := range statuses {
			query = append(query, "status="+status)
		}
		path += "?" + strings.Join(query, "&")
	}
	var resp api.RunListResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Runs, nil
}

// Run fetches one run record.
func (c *Client) Run(ctx context.Context, id string) (*api.Run, error) {
	var resp api.RunResponse
	if err := c.getJSON(ctx, "/api/runs/"+id, &resp); err != nil {
		return nil, err
	}
	return &resp.Run, nil
}

// Cancel requests cancellation of a run.
func (c *Client) Cancel(ctx context.Context, id string) (*api.CancelResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/runs/"+id+"/cancel", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cancel request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusConflict {
		return nil, decodeError(resp)
	}
	var payload api.CancelResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode cancel response: %w", err)
	}
	return &payload, nil
}

// Watch subscribes to a run's SSE feed and invokes fn for every event,
// including the replay prefix. It returns once the run reaches a terminal
// event or the context ends.
func (c *Client) Watch(ctx context.Context, id string, fn func(progress.Event)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/runs/"+id+"/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("watch request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		var event progress.Event
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			continue
		}
		if event.Type == progress.EventPing {
			continue
		}
		fn(event)
		if event.Terminal() {
			return nil
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("read event stream: %w", err)
	}
	return ctx.Err()
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("daemon request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return fmt.Errorf("daemon: %s (http %d)", payload.Error, resp.StatusCode)
	}
	return fmt.Errorf("daemon: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

// WaitReady polls the status endpoint until the daemon answers or the
// deadline passes.
func (c *Client) WaitReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if _, err := c.Status(ctx); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("daemon not reachable at %s", c.baseURL)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}
