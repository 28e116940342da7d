package config

const (
	defaultStateDir      = "~/.local/share/fabula/state"
	defaultOutputDir     = "~/fabula/output"
	defaultLogDir        = "~/.local/share/fabula/logs"
	defaultCheckpointDir = "~/.local/share/fabula/checkpoints"

	defaultBudgetLimitUSD   = 50.0
	defaultWarningThreshold = 0.8
	defaultAccountingWindow = "session"

	defaultMaxScenes           = 10
	defaultQuality             = "standard"
	defaultPausePollIntervalMS = 250

	defaultMaxRetries  = 3
	defaultBaseDelayMS = 1000
	defaultMaxDelayMS  = 30000

	defaultTextBaseURL  = "https://openrouter.ai/api/v1/chat/completions"
	defaultTextModel    = "google/gemini-3-flash-preview"
	defaultImageBaseURL = "https://api.fabula.media/v1/images"
	defaultImageModel   = "sdxl-turbo"
	defaultVideoBaseURL = "https://api.fabula.media/v1/videos"
	defaultVideoModel   = "svd-xt"
	defaultAudioBaseURL = "https://api.fabula.media/v1/audio"
	defaultAudioModel   = "tts-multilingual"
	defaultMusicModel   = "musicgen-medium"
	defaultVoice        = "narrator-en"

	defaultServiceTimeoutSeconds = 60

	defaultMaxTimingDifference = 0.2
	defaultCrossfadeSeconds    = 0.5
	defaultMaxVolumeAdjustment = 2.0

	defaultNotifyRequestTimeout = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// OutputFormats recognized by the finalization stage.
var recognizedOutputFormats = map[string]bool{
	"mp4":  true,
	"webm": true,
	"avi":  true,
	"mov":  true,
}

// AccountingWindows recognized by the budget governor.
var recognizedAccountingWindows = map[string]bool{
	"session": true,
	"daily":   true,
	"weekly":  true,
	"monthly": true,
}

// QualityTiers recognized by the generation settings.
var recognizedQualityTiers = map[string]bool{
	"draft":    true,
	"standard": true,
	"high":     true,
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:      defaultStateDir,
			OutputDir:     defaultOutputDir,
			LogDir:        defaultLogDir,
			CheckpointDir: defaultCheckpointDir,
		},
		Budget: Budget{
			LimitUSD:         defaultBudgetLimitUSD,
			WarningThreshold: defaultWarningThreshold,
			AccountingWindow: defaultAccountingWindow,
		},
		Generation: Generation{
			MaxScenes:           defaultMaxScenes,
			OutputFormats:       []string{"mp4"},
			Quality:             defaultQuality,
			PausePollIntervalMS: defaultPausePollIntervalMS,
		},
		Retry: Retry{
			MaxRetries:  defaultMaxRetries,
			BaseDelayMS: defaultBaseDelayMS,
			MaxDelayMS:  defaultMaxDelayMS,
			Jitter:      true,
		},
		Text: Service{
			BaseURL:        defaultTextBaseURL,
			Model:          defaultTextModel,
			TimeoutSeconds: defaultServiceTimeoutSeconds,
		},
		Image: Service{
			BaseURL:        defaultImageBaseURL,
			Model:          defaultImageModel,
			TimeoutSeconds: defaultServiceTimeoutSeconds,
		},
		Video: Service{
			BaseURL:        defaultVideoBaseURL,
			Model:          defaultVideoModel,
			TimeoutSeconds: defaultServiceTimeoutSeconds,
		},
		Audio: Audio{
			Service: Service{
				BaseURL:        defaultAudioBaseURL,
				Model:          defaultAudioModel,
				TimeoutSeconds: defaultServiceTimeoutSeconds,
			},
			Voice:      defaultVoice,
			MusicModel: defaultMusicModel,
		},
		Timeline: Timeline{
			MaxTimingDifference: defaultMaxTimingDifference,
			DefaultCrossfade:    defaultCrossfadeSeconds,
			MaxVolumeAdjustment: defaultMaxVolumeAdjustment,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
