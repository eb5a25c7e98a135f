package config

import (
	"strings"
	"testing"
)

const validYAML = `
server:
  public_base_url: https://agent.example.com
providers:
  stt: deepgram
  llm: anthropic
  tts: lokutor
`

func TestLoadFromReaderAppliesDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Fatalf("expected default listen addr, got %q", cfg.Server.ListenAddr)
	}
	if cfg.Agent.Language != "en" {
		t.Fatalf("expected default language, got %q", cfg.Agent.Language)
	}
	if cfg.Agent.MaxContextMessages != 40 {
		t.Fatalf("expected default max context messages, got %d", cfg.Agent.MaxContextMessages)
	}
}

func TestLoadFromReaderMissingPublicURL(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader(`
providers:
  stt: deepgram
  llm: anthropic
  tts: lokutor
`))
	if err == nil || !strings.Contains(err.Error(), "public_base_url") {
		t.Fatalf("expected public_base_url validation error, got %v", err)
	}
}

func TestLoadFromReaderMissingProviders(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader(`
server:
  public_base_url: https://agent.example.com
`))
	if err == nil {
		t.Fatalf("expected validation error for missing providers")
	}
	for _, want := range []string{"providers.stt", "providers.llm", "providers.tts"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected error to mention %q, got %v", want, err)
		}
	}
}

func TestLoadFromReaderUnknownFieldRejected(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader(validYAML + "\nbogus_field: true\n"))
	if err == nil {
		t.Fatalf("expected decode error for unknown top-level field")
	}
}

func TestLoadFromReaderNegativeTimeoutRejected(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader(validYAML + "\nagent:\n  tts_drain_timeout_seconds: -1\n"))
	if err == nil || !strings.Contains(err.Error(), "tts_drain_timeout_seconds") {
		t.Fatalf("expected negative timeout validation error, got %v", err)
	}
}
