// Package upscaler wraps the ImgUpscaler resolution-enhancement API: upload,
// poll until the job settles, then download the enlarged result.
package upscaler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"easel/internal/config"
	"easel/internal/imaging"
	"easel/internal/logging"
)

const (
	uploadPath = "/UploadNew"
	statusPath = "/CheckStatusNew"

	statusSuccess = "success"
	statusFailed  = "failed"
	statusError   = "error"
)

// transientRetryDelay spaces the single retry taken after a timed-out hop.
const transientRetryDelay = 2 * time.Second

// Client defines upscaling behaviour.
type Client interface {
	Upscale(ctx context.Context, image []byte, scale int) ([]byte, error)
}

// Option customizes the HTTP client.
type Option func(*HTTPClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the default API base (useful for tests/mocks).
func WithBaseURL(base string) Option {
	return func(c *HTTPClient) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// HTTPClient talks to the hosted upscaler service.
type HTTPClient struct {
	baseURL         string
	httpClient      *http.Client
	downloadTimeout time.Duration
	pollInterval    time.Duration
	pollTimeout     time.Duration
	logger          *slog.Logger
}

// NewHTTPClient constructs a client from the configuration.
func NewHTTPClient(cfg *config.Config, logger *slog.Logger, opts ...Option) *HTTPClient {
	client := &HTTPClient{
		baseURL:         strings.TrimRight(cfg.Upscaler.BaseURL, "/"),
		httpClient:      &http.Client{Timeout: time.Duration(cfg.Upscaler.RequestTimeout) * time.Second},
		downloadTimeout: time.Duration(cfg.Upscaler.DownloadTimeout) * time.Second,
		pollInterval:    time.Duration(cfg.Upscaler.PollInterval) * time.Second,
		pollTimeout:     time.Duration(cfg.Upscaler.PollTimeout) * time.Second,
		logger:          logging.NewComponentLogger(logger, "upscaler"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Upscale runs the full upload, poll, download cycle and returns the enlarged
// image bytes. Scale must be 2 or 4; the upstream service accepts nothing
// else.
func (c *HTTPClient) Upscale(ctx context.Context, image []byte, scale int) ([]byte, error) {
	if scale != 2 && scale != 4 {
		return nil, fmt.Errorf("upscale: scale must be 2 or 4, got %d", scale)
	}
	if len(image) == 0 {
		return nil, errors.New("upscale: empty image")
	}

	// The upstream endpoint rejects formats other than PNG and JPEG.
	normalized, format, err := imaging.NormalizeForUpload(image)
	if err != nil {
		return nil, fmt.Errorf("upscale: normalize input: %w", err)
	}

	jobCode, err := c.upload(ctx, normalized, format, scale)
	if err != nil {
		return nil, err
	}
	c.logger.Info("upscale job accepted", logging.String("job", jobCode), logging.Int("scale", scale))

	downloadURL, err := c.poll(ctx, jobCode, scale)
	if err != nil {
		return nil, err
	}
	return c.download(ctx, downloadURL)
}

func (c *HTTPClient) upload(ctx context.Context, image []byte, format string, scale int) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("myfile", "input."+format)
	if err != nil {
		return "", fmt.Errorf("upscale upload: build form: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return "", fmt.Errorf("upscale upload: write image: %w", err)
	}
	if err := writer.WriteField("scaleRadio", strconv.Itoa(scale)); err != nil {
		return "", fmt.Errorf("upscale upload: write scale: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("upscale upload: close form: %w", err)
	}

	respBody, err := c.postWithRetry(ctx, c.baseURL+uploadPath, writer.FormDataContentType(), body.Bytes())
	if err != nil {
		return "", fmt.Errorf("upscale upload: %w", err)
	}

	if code := gjson.GetBytes(respBody, "code").Int(); code != 200 {
		return "", fmt.Errorf("upscale upload: unexpected response code %d: %s", code, trimmed(respBody))
	}
	jobCode := gjson.GetBytes(respBody, "data.code").String()
	if jobCode == "" {
		return "", fmt.Errorf("upscale upload: no job code in response: %s", trimmed(respBody))
	}
	return jobCode, nil
}

func (c *HTTPClient) poll(ctx context.Context, jobCode string, scale int) (string, error) {
	deadline := time.Now().Add(c.pollTimeout)
	payload := []byte(fmt.Sprintf(`{"code":%q,"scaleRadio":"%d"}`, jobCode, scale))

	var lastStatus string
	for time.Now().Before(deadline) {
		respBody, err := c.postWithRetry(ctx, c.baseURL+statusPath, "application/json; charset=UTF-8", payload)
		if err != nil {
			return "", fmt.Errorf("upscale status: %w", err)
		}
		if code := gjson.GetBytes(respBody, "code").Int(); code != 200 {
			return "", fmt.Errorf("upscale status: unexpected response code %d: %s", code, trimmed(respBody))
		}

		lastStatus = gjson.GetBytes(respBody, "data.status").String()
		switch lastStatus {
		case statusSuccess:
			downloadURL := gjson.GetBytes(respBody, "data.downloadUrls.0").String()
			if downloadURL == "" {
				return "", fmt.Errorf("upscale status: success without download URL: %s", trimmed(respBody))
			}
			return downloadURL, nil
		case statusFailed, statusError:
			return "", fmt.Errorf("upscale job failed: %s", trimmed(respBody))
		}

		c.logger.Debug("upscale job pending",
			logging.String("job", jobCode),
			logging.String("status", lastStatus))
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
	return "", fmt.Errorf("upscale timed out after %s (last status %q)", c.pollTimeout, lastStatus)
}

func (c *HTTPClient) download(ctx context.Context, downloadURL string) ([]byte, error) {
	if _, err := url.Parse(downloadURL); err != nil {
		return nil, fmt.Errorf("upscale download: bad url: %w", err)
	}

	client := &http.Client{Timeout: c.downloadTimeout}
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(transientRetryDelay):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
		if err != nil {
			return nil, fmt.Errorf("upscale download: request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			if isTimeout(err) {
				continue
			}
			return nil, fmt.Errorf("upscale download: %w", err)
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= http.StatusMultipleChoices {
			return nil, fmt.Errorf("upscale download: http %d", resp.StatusCode)
		}
		return data, nil
	}
	return nil, fmt.Errorf("upscale download: %w", lastErr)
}

// postWithRetry issues a POST with one retry after a timed-out attempt.
func (c *HTTPClient) postWithRetry(ctx context.Context, endpoint, contentType string, payload []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(transientRetryDelay):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("request: %w", err)
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Accept", "application/json, text/plain, */*")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if isTimeout(err) {
				continue
			}
			return nil, fmt.Errorf("request failed: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= http.StatusMultipleChoices {
			return nil, fmt.Errorf("http %d: %s", resp.StatusCode, trimmed(body))
		}
		return body, nil
	}
	return nil, fmt.Errorf("request failed after retry: %w", lastErr)
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func trimmed(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

var _ Client = (*HTTPClient)(nil)
