package config

import (
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Gemini     GeminiConfig
	ElevenLabs ElevenLabsConfig
	Agents     AgentsConfig
	Storage    StorageConfig
	Summary    SummaryConfig
	Retrieval  RetrievalConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port        int
	CORSOrigins string
}

type GeminiConfig struct {
	APIKey      string
	Model       string
	EmbedModel  string
	MaxAttempts int
	RetryDelay  time.Duration
	Timeout     time.Duration
}

type ElevenLabsConfig struct {
	APIKey         string
	DefaultVoiceID string
}

type AgentsConfig struct {
	MaxLive int
}

type StorageConfig struct {
	DataDir string
}

// SummaryConfig selects how voice summaries are produced: "local" reduces
// the figure's own answers, "model" asks the upstream model to write one.
type SummaryConfig struct {
	Strategy string
}

type RetrievalConfig struct {
	TopK int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:        5000,
			CORSOrigins: "*",
		},
		Gemini: GeminiConfig{
			EmbedModel:  "gemini-embedding-001",
			MaxAttempts: 3,
			RetryDelay:  2 * time.Second,
			Timeout:     300 * time.Second,
		},
		Agents: AgentsConfig{
			MaxLive: 30,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Summary: SummaryConfig{
			Strategy: "local",
		},
		Retrieval: RetrievalConfig{
			TopK: 5,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.talkwith.app) and API
// keys fall back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/talkwith/config.json
// and API keys fall back to a secrets file under $XDG_DATA_HOME.
//
// Environment variables (TALKWITH_*) override backend values on all
// platforms. Missing API keys are not an error here; the features that need
// them report their absence when called.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts platform secret storage for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Gemini.APIKey == "" {
		if key, err := kc.Get("talkwith", "gemini_api_key"); err == nil && key != "" {
			cfg.Gemini.APIKey = key
		}
	}
	if cfg.ElevenLabs.APIKey == "" {
		if key, err := kc.Get("talkwith", "elevenlabs_api_key"); err == nil && key != "" {
			cfg.ElevenLabs.APIKey = key
		}
	}

	return cfg, nil
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
