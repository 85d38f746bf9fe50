package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	WorkDir string `toml:"work_dir"`
	APIBind string `toml:"api_bind"`
}

// Archive contains configuration for packaged output storage.
type Archive struct {
	// BucketURL is a gocloud.dev bucket URL (file://, s3://, gs://, azblob://).
	// When empty it defaults to a file bucket under data_dir/archives.
	BucketURL string `toml:"bucket_url"`
}

// Upscaler contains configuration for the external resolution-enhancement service.
type Upscaler struct {
	BaseURL         string `toml:"base_url"`
	RequestTimeout  int    `toml:"request_timeout"`
	DownloadTimeout int    `toml:"download_timeout"`
	PollInterval    int    `toml:"poll_interval"`
	PollTimeout     int    `toml:"poll_timeout"`
}

// LLM contains connection settings for marketplace text generation.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	ImageDetail    string `toml:"image_detail"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRetries     int    `toml:"max_retries"`
}

// Mockups contains configuration for mockup composition.
type Mockups struct {
	TemplatesPath string `toml:"templates_path"`
	JPEGQuality   int    `toml:"jpeg_quality"`
}

// Video contains configuration for preview video synthesis.
type Video struct {
	FPS             int     `toml:"fps"`
	Bitrate         string  `toml:"bitrate"`
	SecondsPerFrame float64 `toml:"seconds_per_frame"`
}

// Output contains defaults applied to submitted runs.
type Output struct {
	DPI int `toml:"dpi"`
}

// Workflow contains timing and buffering knobs for run orchestration.
type Workflow struct {
	KeepaliveSeconds int `toml:"keepalive_seconds"`
	ObserverBuffer   int `toml:"observer_buffer"`
	RetentionDays    int `toml:"retention_days"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for easel.
//
// Configuration sections by subsystem:
//   - Paths: directories and API bind address
//   - Archive: packaged output storage bucket
//   - Upscaler: external resolution-enhancement service
//   - LLM: marketplace text generation connection
//   - Mockups: composition templates and encoding quality
//   - Video: preview video synthesis settings
//   - Output: per-run defaults (DPI)
//   - Workflow: progress keep-alive, observer buffering, retention
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Archive  Archive  `toml:"archive"`
	Upscaler Upscaler `toml:"upscaler"`
	LLM      LLM      `toml:"llm"`
	Mockups  Mockups  `toml:"mockups"`
	Video    Video    `toml:"video"`
	Output   Output   `toml:"output"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/easel/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("easel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.WorkDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ArchiveBucketURL resolves the configured bucket URL, defaulting to a local
// file bucket under the data directory.
func (c *Config) ArchiveBucketURL() string {
	if url := strings.TrimSpace(c.Archive.BucketURL); url != "" {
		return url
	}
	return "file://" + filepath.ToSlash(filepath.Join(c.Paths.DataDir, "archives"))
}

// FFmpegBinary returns the ffmpeg executable name used for preview video synthesis.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
