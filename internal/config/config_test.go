package config

import (
	"testing"
	"time"
)

// mockKeychain is a test double for the keychain interface.
type mockKeychain struct {
	values map[string]string
	err    error
}

func (m mockKeychain) Get(service, account string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.values[service+"/"+account], nil
}

// mapBackend is an in-memory ConfigBackend for testing.
type mapBackend struct {
	strings map[string]string
	ints    map[string]int
}

func (b *mapBackend) GetString(key string) (string, bool, error) {
	v, ok := b.strings[key]
	return v, ok, nil
}

func (b *mapBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.ints[key]
	return v, ok, nil
}

func (b *mapBackend) SetString(key, val string) error {
	if b.strings == nil {
		b.strings = make(map[string]string)
	}
	b.strings[key] = val
	return nil
}

func (b *mapBackend) SetInt(key string, val int) error {
	if b.ints == nil {
		b.ints = make(map[string]int)
	}
	b.ints[key] = val
	return nil
}

func (b *mapBackend) Delete(key string) error {
	delete(b.strings, key)
	delete(b.ints, key)
	return nil
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(&mapBackend{}, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Server.CORSOrigins != "*" {
		t.Errorf("Server.CORSOrigins = %q, want %q", cfg.Server.CORSOrigins, "*")
	}
	if cfg.Gemini.EmbedModel != "gemini-embedding-001" {
		t.Errorf("Gemini.EmbedModel = %q", cfg.Gemini.EmbedModel)
	}
	if cfg.Gemini.MaxAttempts != 3 {
		t.Errorf("Gemini.MaxAttempts = %d, want 3", cfg.Gemini.MaxAttempts)
	}
	if cfg.Gemini.RetryDelay != 2*time.Second {
		t.Errorf("Gemini.RetryDelay = %v, want 2s", cfg.Gemini.RetryDelay)
	}
	if cfg.Gemini.Timeout != 300*time.Second {
		t.Errorf("Gemini.Timeout = %v, want 5m", cfg.Gemini.Timeout)
	}
	if cfg.Agents.MaxLive != 30 {
		t.Errorf("Agents.MaxLive = %d, want 30", cfg.Agents.MaxLive)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("Retrieval.TopK = %d, want 5", cfg.Retrieval.TopK)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.Storage.DataDir == "" {
		t.Error("Storage.DataDir is empty")
	}
}

func TestMissingAPIKeysAreNotAnError(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(&mapBackend{}, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gemini.APIKey != "" || cfg.ElevenLabs.APIKey != "" {
		t.Errorf("expected empty API keys, got %q and %q", cfg.Gemini.APIKey, cfg.ElevenLabs.APIKey)
	}
}

func TestBackendValues(t *testing.T) {
	clearEnv(t)

	b := &mapBackend{
		strings: map[string]string{
			"gemini.model":       "gemini-1.5-pro",
			"gemini.retry_delay": "500ms",
			"storage.data_dir":   "/tmp/talkwith-test",
		},
		ints: map[string]int{
			"server.port":     8080,
			"agents.max_live": 10,
		},
	}

	cfg, err := loadWith(b, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Gemini.Model != "gemini-1.5-pro" {
		t.Errorf("Gemini.Model = %q", cfg.Gemini.Model)
	}
	if cfg.Gemini.RetryDelay != 500*time.Millisecond {
		t.Errorf("Gemini.RetryDelay = %v, want 500ms", cfg.Gemini.RetryDelay)
	}
	if cfg.Agents.MaxLive != 10 {
		t.Errorf("Agents.MaxLive = %d, want 10", cfg.Agents.MaxLive)
	}
	if cfg.Storage.DataDir != "/tmp/talkwith-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
}

func TestInvalidBackendDurationKeepsDefault(t *testing.T) {
	clearEnv(t)

	b := &mapBackend{strings: map[string]string{"gemini.retry_delay": "not-a-duration"}}

	cfg, err := loadWith(b, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gemini.RetryDelay != 2*time.Second {
		t.Errorf("Gemini.RetryDelay = %v, want default 2s", cfg.Gemini.RetryDelay)
	}
}

func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("TALKWITH_GEMINI_API_KEY", "env-key")
	t.Setenv("TALKWITH_SERVER_PORT", "9000")
	t.Setenv("TALKWITH_GEMINI_TIMEOUT", "90s")

	b := &mapBackend{ints: map[string]int{"server.port": 8080}}

	cfg, err := loadWith(b, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Gemini.APIKey != "env-key" {
		t.Errorf("Gemini.APIKey = %q, want %q", cfg.Gemini.APIKey, "env-key")
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want env override 9000", cfg.Server.Port)
	}
	if cfg.Gemini.Timeout != 90*time.Second {
		t.Errorf("Gemini.Timeout = %v, want 90s", cfg.Gemini.Timeout)
	}
}

func TestKeychainFallback(t *testing.T) {
	clearEnv(t)

	kc := mockKeychain{values: map[string]string{
		"talkwith/gemini_api_key":     "kc-gemini",
		"talkwith/elevenlabs_api_key": "kc-eleven",
	}}

	cfg, err := loadWith(&mapBackend{}, kc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Gemini.APIKey != "kc-gemini" {
		t.Errorf("Gemini.APIKey = %q, want %q", cfg.Gemini.APIKey, "kc-gemini")
	}
	if cfg.ElevenLabs.APIKey != "kc-eleven" {
		t.Errorf("ElevenLabs.APIKey = %q, want %q", cfg.ElevenLabs.APIKey, "kc-eleven")
	}
}

func TestEnvWinsOverKeychain(t *testing.T) {
	clearEnv(t)
	t.Setenv("TALKWITH_ELEVENLABS_API_KEY", "env-eleven")

	kc := mockKeychain{values: map[string]string{
		"talkwith/elevenlabs_api_key": "kc-eleven",
	}}

	cfg, err := loadWith(&mapBackend{}, kc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ElevenLabs.APIKey != "env-eleven" {
		t.Errorf("ElevenLabs.APIKey = %q, want %q", cfg.ElevenLabs.APIKey, "env-eleven")
	}
}

func TestSetKeyValidation(t *testing.T) {
	if err := SetKey("gemini.api_key", "x"); err == nil {
		t.Error("expected error setting a secret key")
	}
	if err := SetKey("no.such.key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestShowAllOmitsSecrets(t *testing.T) {
	for _, ki := range ShowAll(defaults()) {
		if ki.Key == "gemini.api_key" || ki.Key == "elevenlabs.api_key" {
			t.Errorf("secret key %q exposed by ShowAll", ki.Key)
		}
	}
}
