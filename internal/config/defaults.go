package config

const (
	defaultDataDir          = "~/.local/share/easel"
	defaultLogDir           = "~/.local/share/easel/logs"
	defaultWorkDir          = "~/.local/share/easel/work"
	defaultAPIBind          = "127.0.0.1:7319"
	defaultUpscalerBaseURL  = "https://get1.imglarger.com/api/UpscalerNew"
	defaultUpscalerTimeout  = 60
	defaultDownloadTimeout  = 120
	defaultPollInterval     = 5
	defaultPollTimeout      = 300
	defaultLLMBaseURL       = "https://api.openai.com/v1"
	defaultLLMModel         = "gpt-5"
	defaultLLMImageDetail   = "low"
	defaultLLMTimeout       = 120
	defaultLLMMaxRetries    = 2
	defaultJPEGQuality      = 92
	defaultVideoFPS         = 40
	defaultVideoBitrate     = "6000k"
	defaultSecondsPerFrame  = 1.2
	defaultDPI              = 300
	defaultKeepaliveSeconds = 15
	defaultObserverBuffer   = 64
	defaultRetentionDays    = 30
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			WorkDir: defaultWorkDir,
			APIBind: defaultAPIBind,
		},
		Upscaler: Upscaler{
			BaseURL:         defaultUpscalerBaseURL,
			RequestTimeout:  defaultUpscalerTimeout,
			DownloadTimeout: defaultDownloadTimeout,
			PollInterval:    defaultPollInterval,
			PollTimeout:     defaultPollTimeout,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			ImageDetail:    defaultLLMImageDetail,
			TimeoutSeconds: defaultLLMTimeout,
			MaxRetries:     defaultLLMMaxRetries,
		},
		Mockups: Mockups{
			JPEGQuality: defaultJPEGQuality,
		},
		Video: Video{
			FPS:             defaultVideoFPS,
			Bitrate:         defaultVideoBitrate,
			SecondsPerFrame: defaultSecondsPerFrame,
		},
		Output: Output{
			DPI: defaultDPI,
		},
		Workflow: Workflow{
			KeepaliveSeconds: defaultKeepaliveSeconds,
			ObserverBuffer:   defaultObserverBuffer,
			RetentionDays:    defaultRetentionDays,
		},
		Logging: Logging{
			Level: defaultLogLevel,
		},
	}
}
