// Package textgen produces marketplace listing copy (title, description, SEO
// paragraph, tags) from a single image via an OpenAI-compatible chat
// completions API. Model output is validated against hard character
// constraints; violations are fed back as corrections for a bounded number of
// retries.
package textgen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"easel/internal/config"
	"easel/internal/imaging"
	"easel/internal/logging"
)

// Result is the validated listing copy for one image.
type Result struct {
	Title       string
	Description string
	AltSEO      string
	Tags        []string
}

// Generator defines listing copy generation behaviour.
type Generator interface {
	Generate(ctx context.Context, image []byte, extraContext string) (Result, error)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the default API base (useful for tests/mocks).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// Client wraps the chat completions API.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	imageDetail string
	maxRetries  int
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient constructs a client from the configuration.
func NewClient(cfg *config.Config, logger *slog.Logger, opts ...Option) *Client {
	client := &Client{
		apiKey:      strings.TrimSpace(cfg.LLM.APIKey),
		baseURL:     strings.TrimRight(cfg.LLM.BaseURL, "/"),
		model:       cfg.LLM.Model,
		imageDetail: cfg.LLM.ImageDetail,
		maxRetries:  cfg.LLM.MaxRetries,
		httpClient:  &http.Client{Timeout: time.Duration(cfg.LLM.TimeoutSeconds) * time.Second},
		logger:      logging.NewComponentLogger(logger, "textgen"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Generate runs the prompt and validation loop. On a constraint violation the
// model gets the errors back verbatim and another chance, up to the
// configured retry budget.
func (c *Client) Generate(ctx context.Context, image []byte, extraContext string) (Result, error) {
	var empty Result
	if c.apiKey == "" {
		return empty, errors.New("textgen: api key required")
	}
	if len(image) == 0 {
		return empty, errors.New("textgen: empty image")
	}

	dataURL, err := encodeDataURL(image)
	if err != nil {
		return empty, fmt.Errorf("textgen: encode image: %w", err)
	}
	extraContext = strings.TrimSpace(extraContext)

	var corrections []string
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		content := c.buildUserContent(dataURL, extraContext, corrections)
		raw, err := c.complete(ctx, content)
		if err != nil {
			return empty, err
		}

		parsed, parseErr := parsePayload(raw)
		if parseErr != nil {
			corrections = []string{"output must be a single valid minified JSON object, nothing else."}
			if attempt == c.maxRetries {
				return empty, fmt.Errorf("textgen: parse model output: %w", parseErr)
			}
			continue
		}

		errs := validate(parsed)
		if len(errs) == 0 {
			return Result{
				Title:       parsed.Title,
				Description: fmt.Sprintf(descriptionTemplate, strings.TrimSpace(parsed.Intro), strings.TrimSpace(parsed.Love)),
				AltSEO:      parsed.AltSEO,
				Tags:        splitTags(parsed.Tags),
			}, nil
		}

		c.logger.Warn("model output failed validation",
			logging.Int("attempt", attempt+1),
			logging.String("errors", strings.Join(errs, "; ")))
		corrections = errs
		if attempt == c.maxRetries {
			return empty, fmt.Errorf("textgen: output failed validation: %s", strings.Join(errs, "; "))
		}
	}
	return empty, errors.New("textgen: generation failed")
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

func (c *Client) buildUserContent(dataURL, extraContext string, corrections []string) []contentPart {
	var parts []contentPart
	if len(corrections) > 0 {
		parts = append(parts, contentPart{
			Type: "text",
			Text: "Previous output violated constraints:\n- " + strings.Join(corrections, "\n- ") + "\nReturn corrected JSON now.",
		})
		if extraContext != "" {
			parts = append(parts, contentPart{Type: "text", Text: "Reminder, user context: " + extraContext})
		}
	} else {
		parts = append(parts, contentPart{Type: "text", Text: userInstructions})
		if extraContext != "" {
			parts = append(parts, contentPart{Type: "text", Text: "Additional context from user: " + extraContext})
		}
	}
	parts = append(parts, contentPart{
		Type:     "image_url",
		ImageURL: &imageURL{URL: dataURL, Detail: c.imageDetail},
	})
	return parts
}

func (c *Client) complete(ctx context.Context, content []contentPart) (string, error) {
	request := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: content},
		},
	}
	encoded, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("textgen: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("textgen: request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("textgen: request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("textgen: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("textgen: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if apiErr := gjson.GetBytes(body, "error.message"); apiErr.Exists() {
		return "", fmt.Errorf("textgen: api error: %s", strings.TrimSpace(apiErr.String()))
	}
	content0 := strings.TrimSpace(gjson.GetBytes(body, "choices.0.message.content").String())
	if content0 == "" {
		return "", errors.New("textgen: empty completion")
	}
	return content0, nil
}

// parsePayload decodes the model output, tolerating a markdown code fence
// around the JSON.
func parsePayload(raw string) (fields, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.Trim(raw, "`")
		raw = strings.TrimPrefix(raw, "json")
		raw = strings.TrimSpace(raw)
	}
	if !gjson.Valid(raw) {
		return fields{}, fmt.Errorf("not valid JSON: %s", truncate(raw, 120))
	}
	parsed := gjson.Parse(raw)
	return fields{
		Title:  parsed.Get("title").String(),
		Intro:  parsed.Get("intro").String(),
		Love:   parsed.Get("love").String(),
		AltSEO: parsed.Get("alt_seo").String(),
		Tags:   parsed.Get("tags").String(),
	}, nil
}

func encodeDataURL(image []byte) (string, error) {
	_, format, err := imaging.Decode(image)
	if err != nil {
		return "", err
	}
	mime := imaging.MIMEForFormat(format)
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(image), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ Generator = (*Client)(nil)
