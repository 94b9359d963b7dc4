package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "TALKWITH_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.cors_origins", typ: kString, env: "TALKWITH_SERVER_CORS_ORIGINS",
		apply:   func(cfg *Config, v any) { cfg.Server.CORSOrigins = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.CORSOrigins },
	},
	{
		key: "gemini.api_key", typ: kString, env: "TALKWITH_GEMINI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Gemini.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.APIKey },
	},
	{
		key: "gemini.model", typ: kString, env: "TALKWITH_GEMINI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.Model },
	},
	{
		key: "gemini.embed_model", typ: kString, env: "TALKWITH_GEMINI_EMBED_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.EmbedModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.EmbedModel },
	},
	{
		key: "gemini.max_attempts", typ: kInt, env: "TALKWITH_GEMINI_MAX_ATTEMPTS",
		apply:   func(cfg *Config, v any) { cfg.Gemini.MaxAttempts = v.(int) },
		extract: func(cfg Config) any { return cfg.Gemini.MaxAttempts },
	},
	{
		key: "gemini.retry_delay", typ: kDuration, env: "TALKWITH_GEMINI_RETRY_DELAY",
		apply:   func(cfg *Config, v any) { cfg.Gemini.RetryDelay = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Gemini.RetryDelay },
	},
	{
		key: "gemini.timeout", typ: kDuration, env: "TALKWITH_GEMINI_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Gemini.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Gemini.Timeout },
	},
	{
		key: "elevenlabs.api_key", typ: kString, env: "TALKWITH_ELEVENLABS_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.ElevenLabs.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.ElevenLabs.APIKey },
	},
	{
		key: "elevenlabs.default_voice_id", typ: kString, env: "TALKWITH_ELEVENLABS_DEFAULT_VOICE_ID",
		apply:   func(cfg *Config, v any) { cfg.ElevenLabs.DefaultVoiceID = v.(string) },
		extract: func(cfg Config) any { return cfg.ElevenLabs.DefaultVoiceID },
	},
	{
		key: "agents.max_live", typ: kInt, env: "TALKWITH_AGENTS_MAX_LIVE",
		apply:   func(cfg *Config, v any) { cfg.Agents.MaxLive = v.(int) },
		extract: func(cfg Config) any { return cfg.Agents.MaxLive },
	},
	{
		key: "storage.data_dir", typ: kString, env: "TALKWITH_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "summary.strategy", typ: kString, env: "TALKWITH_SUMMARY_STRATEGY",
		apply:   func(cfg *Config, v any) { cfg.Summary.Strategy = v.(string) },
		extract: func(cfg Config) any { return cfg.Summary.Strategy },
	},
	{
		key: "retrieval.top_k", typ: kInt, env: "TALKWITH_RETRIEVAL_TOP_K",
		apply:   func(cfg *Config, v any) { cfg.Retrieval.TopK = v.(int) },
		extract: func(cfg Config) any { return cfg.Retrieval.TopK },
	},
	{
		key: "log.level", typ: kString, env: "TALKWITH_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kDuration:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if d, err := time.ParseDuration(v); err == nil {
					s.apply(cfg, d)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kDuration:
			if d, err := time.ParseDuration(raw); err == nil {
				s.apply(cfg, d)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
