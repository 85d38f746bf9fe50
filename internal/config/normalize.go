package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLLM()
	c.normalizeUpscaler()
	if err := c.normalizeMockups(); err != nil {
		return err
	}
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizeLLM() {
	if c.LLM.APIKey == "" {
		if key := strings.TrimSpace(os.Getenv("EASEL_LLM_API_KEY")); key != "" {
			c.LLM.APIKey = key
		} else if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
			c.LLM.APIKey = key
		}
	}
	c.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(c.LLM.BaseURL), "/")
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		c.LLM.Model = defaultLLMModel
	}
	if strings.TrimSpace(c.LLM.ImageDetail) == "" {
		c.LLM.ImageDetail = defaultLLMImageDetail
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeout
	}
	if c.LLM.MaxRetries < 0 {
		c.LLM.MaxRetries = defaultLLMMaxRetries
	}
}

func (c *Config) normalizeUpscaler() {
	c.Upscaler.BaseURL = strings.TrimRight(strings.TrimSpace(c.Upscaler.BaseURL), "/")
	if c.Upscaler.BaseURL == "" {
		c.Upscaler.BaseURL = defaultUpscalerBaseURL
	}
	if c.Upscaler.RequestTimeout <= 0 {
		c.Upscaler.RequestTimeout = defaultUpscalerTimeout
	}
	if c.Upscaler.DownloadTimeout <= 0 {
		c.Upscaler.DownloadTimeout = defaultDownloadTimeout
	}
	if c.Upscaler.PollInterval <= 0 {
		c.Upscaler.PollInterval = defaultPollInterval
	}
	if c.Upscaler.PollTimeout <= 0 {
		c.Upscaler.PollTimeout = defaultPollTimeout
	}
}

func (c *Config) normalizeMockups() error {
	if c.Mockups.JPEGQuality <= 0 {
		c.Mockups.JPEGQuality = defaultJPEGQuality
	}
	if strings.TrimSpace(c.Mockups.TemplatesPath) == "" {
		return nil
	}
	expanded, err := expandPath(c.Mockups.TemplatesPath)
	if err != nil {
		return fmt.Errorf("mockups.templates_path: %w", err)
	}
	c.Mockups.TemplatesPath = expanded
	return nil
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.KeepaliveSeconds <= 0 {
		c.Workflow.KeepaliveSeconds = defaultKeepaliveSeconds
	}
	if c.Workflow.ObserverBuffer <= 0 {
		c.Workflow.ObserverBuffer = defaultObserverBuffer
	}
	if c.Workflow.RetentionDays <= 0 {
		c.Workflow.RetentionDays = defaultRetentionDays
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
