package speech

import (
	"os"
	"strings"
	"time"
)

// Default voice for TTS. Dish names and content are Vietnamese, so the
// default is a Vietnamese neural voice.
// Full list: https://learn.microsoft.com/en-us/azure/ai-services/speech-service/language-support
const DefaultVoice = "vi-VN-HoaiMyNeural"

// Audio format returned by Azure and expected by the player.
const DefaultAudioFormat = "riff-24khz-16bit-mono-pcm"

// Audio parameters matching the default format.
const (
	SampleRate   = 24000
	ChannelCount = 1
	BitDepth     = 16
)

// Env var names for Azure Speech credentials and voice settings.
const (
	EnvAzureSpeechKey    = "AZURE_SPEECH_KEY"
	EnvAzureSpeechRegion = "AZURE_SPEECH_REGION"
	EnvVoice             = "MONAN_VOICE"
	EnvCacheDir          = "MONAN_TTS_CACHE"
)

// Config is the speech configuration read from the environment.
type Config struct {
	Key      string
	Region   string
	Voice    string
	CacheDir string
}

// ConfigFromEnv reads the speech settings. Missing values fall back to
// defaults; a missing key or region leaves the config disabled.
func ConfigFromEnv() Config {
	cfg := Config{
		Key:      strings.TrimSpace(os.Getenv(EnvAzureSpeechKey)),
		Region:   strings.TrimSpace(os.Getenv(EnvAzureSpeechRegion)),
		Voice:    strings.TrimSpace(os.Getenv(EnvVoice)),
		CacheDir: strings.TrimSpace(os.Getenv(EnvCacheDir)),
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
	return cfg
}

// Enabled reports whether Azure credentials are present.
func (c Config) Enabled() bool { return c.Key != "" && c.Region != "" }

// Priority levels for speech requests. Higher value = speaks first.
type Priority int

const (
	PriorityLow      Priority = iota // progress chatter
	PriorityNormal                   // results, info
	PriorityHigh                     // timeouts, failures
	PriorityCritical                 // interrupts everything
)

// SpeechRequest is a queued item waiting to be spoken.
type SpeechRequest struct {
	Text     string
	Priority Priority
	QueuedAt time.Time
}

// voiceLang returns the xml:lang of a voice name such as vi-VN-HoaiMyNeural.
func voiceLang(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 3 {
		return "vi-VN"
	}
	return parts[0] + "-" + parts[1]
}
