package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Transport mode names.
const (
	TransportWebRTC   = "webrtc"
	TransportDeepgram = "deepgram"
)

// Config stores runtime configuration for the univox client.
type Config struct {
	Server   ServerConfig
	Audio    AudioConfig
	Deepgram DeepgramConfig
	Session  SessionConfig
}

type ServerConfig struct {
	URL      string
	STUNURLs []string
}

type AudioConfig struct {
	RecorderCommand string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	Channels        int
}

type DeepgramConfig struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

type SessionConfig struct {
	Transport         string
	ChunkSize         int
	HeartbeatInterval time.Duration
	SignalingTimeout  time.Duration
}

// Load resolves configuration from environment variables and sensible
// defaults. The only logically required value is the backend address,
// which falls back to the well-known local univox port.
func Load() (Config, error) {
	transport := strings.ToLower(envOrDefault("UNIVOX_TRANSPORT", TransportWebRTC))
	if transport != TransportWebRTC && transport != TransportDeepgram {
		return Config{}, fmt.Errorf("unsupported UNIVOX_TRANSPORT %q", transport)
	}

	// The WebRTC transport ships PCMU, which is fixed at 8 kHz; direct
	// Deepgram streaming takes 16 kHz linear16.
	defaultSampleRate := 8000
	if transport == TransportDeepgram {
		defaultSampleRate = 16000
	}

	cfg := Config{
		Server: ServerConfig{
			URL:      envOrDefault("UNIVOX_SERVER_URL", "http://localhost:7860"),
			STUNURLs: splitList(os.Getenv("UNIVOX_STUN_URLS")),
		},
		Audio: AudioConfig{
			RecorderCommand: envOrDefault("UNIVOX_FFMPEG_COMMAND", "ffmpeg"),
			InputFormat:     envOrDefault("UNIVOX_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice:     envOrDefault("UNIVOX_AUDIO_INPUT_DEVICE", "default"),
			SampleRate:      envOrDefaultInt("UNIVOX_SAMPLE_RATE", defaultSampleRate),
			Channels:        envOrDefaultInt("UNIVOX_CHANNELS", 1),
		},
		Deepgram: DeepgramConfig{
			APIKey:      strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
			APIBaseURL:  envOrDefault("DEEPGRAM_API_BASE", "https://api.deepgram.com/v1"),
			Model:       envOrDefault("DEEPGRAM_MODEL", "nova-3-general"),
			Language:    strings.TrimSpace(os.Getenv("DEEPGRAM_LANGUAGE")),
			SmartFormat: envOrDefaultBool("DEEPGRAM_SMART_FORMAT", true),
		},
		Session: SessionConfig{
			Transport:         transport,
			ChunkSize:         envOrDefaultInt("UNIVOX_AUDIO_CHUNK_SIZE", 4096),
			HeartbeatInterval: time.Duration(envOrDefaultInt("UNIVOX_HEARTBEAT_INTERVAL_MS", 1000)) * time.Millisecond,
			SignalingTimeout:  time.Duration(envOrDefaultInt("UNIVOX_SIGNALING_TIMEOUT_MS", 15000)) * time.Millisecond,
		},
	}

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = defaultSampleRate
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Session.ChunkSize < 256 {
		cfg.Session.ChunkSize = 4096
	}
	if cfg.Session.HeartbeatInterval <= 0 {
		cfg.Session.HeartbeatInterval = time.Second
	}

	return cfg, nil
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
