package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateVideo() error {
	if c.Video.FPS <= 0 || c.Video.FPS > 120 {
		return fmt.Errorf("video.fps must be between 1 and 120, got %d", c.Video.FPS)
	}
	if c.Video.SecondsPerFrame <= 0 {
		return errors.New("video.seconds_per_frame must be positive")
	}
	if strings.TrimSpace(c.Video.Bitrate) == "" {
		return errors.New("video.bitrate must be set")
	}
	return nil
}

func (c *Config) validateOutput() error {
	if c.Output.DPI < 72 || c.Output.DPI > 1200 {
		return fmt.Errorf("output.dpi must be between 72 and 1200, got %d", c.Output.DPI)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
